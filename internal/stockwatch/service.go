// Package stockwatch follows order events and keeps the low-stock set in
// Redis in line with product stock levels.
package stockwatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type ProductReader interface {
	Product(ctx context.Context, id string) (*crm.Product, error)
}

type Service struct {
	Products    ProductReader
	Redis       *redis.Client
	Alerts      *redisx.LowStock
	Threshold   int
	ServiceName string
}

// HandleOrderEvent is installed as the consumer handler.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		// a malformed message never gets better; skip it
		slog.ErrorContext(ctx, "skipping undecodable event", "offset", m.Offset, "err", err)
		return nil
	}
	switch env.EventType {
	case crm.EventOrderPlaced, crm.EventOrderUpdated, crm.EventOrderDeleted:
	default:
		return nil
	}

	first, err := redisx.Dedup(ctx, s.Redis, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[crm.OrderEventPayload](env.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "skipping event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}
	seen := map[string]bool{}
	for _, it := range p.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		if err := s.Check(ctx, it.ProductID); err != nil {
			if ferr := redisx.ForgetDedup(ctx, s.Redis, s.ServiceName, env.EventID); ferr != nil {
				slog.WarnContext(ctx, "forget dedup mark", "event_id", env.EventID, "err", ferr)
			}
			return err
		}
	}
	return nil
}

// Check flags productID when its stock is at or below the threshold and
// clears the flag otherwise.
func (s *Service) Check(ctx context.Context, productID string) error {
	p, err := s.Products.Product(ctx, productID)
	if errors.Is(err, crm.ErrNotFound) {
		return s.Alerts.Clear(ctx, productID)
	}
	if err != nil {
		return err
	}
	if p.Stock > s.Threshold {
		return s.Alerts.Clear(ctx, productID)
	}
	slog.WarnContext(ctx, "low stock", "product_id", p.ID, "name", p.Name, "stock", p.Stock, "threshold", s.Threshold)
	return s.Alerts.Flag(ctx, p.ID, p.Stock)
}

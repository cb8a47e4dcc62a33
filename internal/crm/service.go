package crm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
)

// Service implements every query and mutation of the CRM. Events,
// Idempotency and Alerts are optional.
type Service struct {
	Store       Store
	Tokens      *auth.Issuer
	Events      EventSink
	Idempotency IdempotencyStore
	Alerts      StockAlerts
	Logger      *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// internal logs a store failure and hides it behind a generic error.
func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.log().ErrorContext(ctx, "store failure", "op", op, "err", err)
	return internalError(op, err)
}

func caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return auth.Identity{}, newError(KindUnauthenticated, "authentication required")
	}
	return id, nil
}

// now is truncated to the precision Postgres stores, so a timestamp read
// back compares equal to the one written.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

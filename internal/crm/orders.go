package crm

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/google/uuid"
)

type OrderInput struct {
	ClientID string
	Items    []LineItem
	// IdempotencyKey makes retries of the same placement return the order
	// created by the first attempt. Optional.
	IdempotencyKey string
}

// OrderUpdate changes an order. Zero fields are left untouched; a nil Items
// slice keeps the current line items.
type OrderUpdate struct {
	ClientID string
	Items    []LineItem
	Status   Status
}

type ClientRanking struct {
	Client     Client
	TotalCents int64
}

type SellerRanking struct {
	Seller     User
	TotalCents int64
}

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// validateItems rejects empty orders and non-positive quantities and merges
// repeated products so stock is checked against the cumulative quantity.
func validateItems(items []LineItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, newError(KindInvalidInput, "an order needs at least one item")
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, newError(KindInvalidInput, "line item without product")
		}
		if it.Qty <= 0 {
			return nil, newError(KindInvalidInput, "quantity for product %s must be positive", it.ProductID)
		}
	}
	return Quantities(items), nil
}

// priceItems checks every item against current stock, in the given order,
// and stamps unit prices. held is stock already reserved by the order being
// revised and counts as available.
func (s *Service) priceItems(ctx context.Context, items []LineItem, held map[string]int) ([]LineItem, int64, error) {
	out := make([]LineItem, 0, len(items))
	var total int64
	for _, it := range items {
		p, err := s.Store.Product(ctx, it.ProductID)
		if err != nil {
			if isNotFound(err) {
				return nil, 0, newError(KindProductNotFound, "product %s does not exist", it.ProductID)
			}
			return nil, 0, s.internal(ctx, "price items", err)
		}
		if available := p.Stock + held[p.ID]; it.Qty > available {
			return nil, 0, newError(KindInsufficientStock,
				"product %q exceeds available stock: requested %d, available %d", p.Name, it.Qty, available)
		}
		if p.PriceCents > (math.MaxInt64-total)/int64(it.Qty) {
			return nil, 0, newError(KindInvalidInput, "order total is too large")
		}
		it.PriceCents = p.PriceCents
		total += p.PriceCents * int64(it.Qty)
		out = append(out, it)
	}
	return out, total, nil
}

// stockFailure maps an error from an atomic stock operation.
func (s *Service) stockFailure(ctx context.Context, op string, err error) error {
	var se *StockError
	if errors.As(err, &se) {
		e := newError(KindInsufficientStock,
			"product %q exceeds available stock: requested %d, available %d", se.Name, se.Requested, se.Available)
		e.Err = err
		return e
	}
	var me *MissingProductError
	if errors.As(err, &me) {
		return newError(KindProductNotFound, "product %s does not exist", me.ProductID)
	}
	if isNotFound(err) {
		return newError(KindOrderNotFound, "order does not exist")
	}
	if errors.Is(err, ErrConflict) {
		return newError(KindConflict, "order was changed by another request, retry")
	}
	return s.internal(ctx, op, err)
}

// authorizeOrder checks that me sells to the order's client. Orders whose
// client vanished fall back to the seller recorded on the order.
func (s *Service) authorizeOrder(ctx context.Context, o *Order, me auth.Identity) error {
	c, err := s.Store.Client(ctx, o.ClientID)
	switch {
	case isNotFound(err):
		if o.SellerID != me.ID {
			return newError(KindPermissionDenied, "order %s belongs to another seller", o.ID)
		}
		return nil
	case err != nil:
		return s.internal(ctx, "authorize order", err)
	}
	if c.SellerID != me.ID {
		return newError(KindPermissionDenied, "order %s belongs to another seller", o.ID)
	}
	return nil
}

func (s *Service) loadOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.Store.Order(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(KindOrderNotFound, "order %s does not exist", id)
		}
		return nil, s.internal(ctx, "get order", err)
	}
	return o, nil
}

func (s *Service) emit(ctx context.Context, eventType string, o *Order) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(ctx, eventType, o.ID, orderPayload(o))
}

// PlaceOrder validates the client and the requested stock, then reserves the
// stock and records the order as one atomic step. With an idempotency key,
// retries return the order of the first attempt.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (*Order, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	k := strings.TrimSpace(in.IdempotencyKey)
	if k == "" || s.Idempotency == nil {
		return s.placeOrder(ctx, me, in)
	}

	key := me.ID + ":" + k
	replay, claimed, err := s.claim(ctx, key)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}
	o, err := s.placeOrder(ctx, me, in)
	if !claimed {
		return o, err
	}
	if err != nil {
		if rerr := s.Idempotency.ReleaseOrder(context.WithoutCancel(ctx), key); rerr != nil {
			s.log().WarnContext(ctx, "release idempotency key", "err", rerr)
		}
		return nil, err
	}
	if err := s.Idempotency.RememberOrder(ctx, key, o.ID); err != nil {
		s.log().WarnContext(ctx, "remember idempotency key", "order_id", o.ID, "err", err)
	}
	return o, nil
}

// claim reserves key for this placement or finds the order an earlier
// attempt produced. An unreachable idempotency store is logged and the
// placement goes ahead unclaimed. A key whose order was deleted is taken
// over.
func (s *Service) claim(ctx context.Context, key string) (replay *Order, claimed bool, err error) {
	id, claimed, err := s.Idempotency.ClaimOrder(ctx, key)
	if err != nil {
		s.log().WarnContext(ctx, "claim idempotency key", "err", err)
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}
	if id == "" {
		return nil, false, newError(KindConflict, "an order with this idempotency key is still being placed")
	}
	o, err := s.Store.Order(ctx, id)
	switch {
	case isNotFound(err):
		return nil, true, nil
	case err != nil:
		s.log().WarnContext(ctx, "load replayed order", "order_id", id, "err", err)
		return nil, false, nil
	}
	return o, false, nil
}

func (s *Service) placeOrder(ctx context.Context, me auth.Identity, in OrderInput) (*Order, error) {
	if _, err := s.ownedClient(ctx, in.ClientID, me); err != nil {
		return nil, err
	}
	items, err := validateItems(in.Items)
	if err != nil {
		return nil, err
	}
	priced, total, err := s.priceItems(ctx, items, nil)
	if err != nil {
		return nil, err
	}

	t := now()
	o := &Order{
		ID:         uuid.NewString(),
		Items:      priced,
		ClientID:   in.ClientID,
		SellerID:   me.ID,
		Status:     StatusPending,
		TotalCents: total,
		CreatedAt:  t,
		UpdatedAt:  t,
	}
	if err := s.Store.PlaceOrder(ctx, o); err != nil {
		return nil, s.stockFailure(ctx, "place order", err)
	}
	s.log().InfoContext(ctx, "order placed", "order_id", o.ID, "seller_id", me.ID, "total_cents", total)
	s.emit(ctx, EventOrderPlaced, o)
	return o, nil
}

// UpdateOrder checks permissions first, then the status transition, then
// stock for revised items. Item revisions and cancellation adjust stock
// atomically with the order write.
func (s *Service) UpdateOrder(ctx context.Context, id string, in OrderUpdate) (*Order, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrder(ctx, o, me); err != nil {
		return nil, err
	}

	next := *o
	if in.ClientID != "" && in.ClientID != o.ClientID {
		if _, err := s.ownedClient(ctx, in.ClientID, me); err != nil {
			return nil, err
		}
		next.ClientID = in.ClientID
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, newError(KindInvalidInput, "unknown order status %q", in.Status)
		}
		if !CanTransition(o.Status, in.Status) {
			return nil, newError(KindInvalidStatusTransition, "order cannot move from %s to %s", o.Status, in.Status)
		}
		next.Status = in.Status
	}

	var release, reserve []LineItem
	if in.Items != nil {
		if o.Status != StatusPending || next.Status == StatusCanceled {
			return nil, newError(KindInvalidInput, "items of a %s order cannot be changed", next.Status)
		}
		items, err := validateItems(in.Items)
		if err != nil {
			return nil, err
		}
		held := make(map[string]int, len(o.Items))
		for _, it := range o.Items {
			held[it.ProductID] += it.Qty
		}
		priced, total, err := s.priceItems(ctx, items, held)
		if err != nil {
			return nil, err
		}
		release, reserve = o.Items, priced
		next.Items, next.TotalCents = priced, total
	}
	if o.Status != StatusCanceled && next.Status == StatusCanceled {
		release = o.Items
	}

	next.UpdatedAt = now()
	if err := s.Store.ReviseOrder(ctx, &next, o.UpdatedAt, release, reserve); err != nil {
		return nil, s.stockFailure(ctx, "update order", err)
	}
	s.emit(ctx, EventOrderUpdated, &next)
	return &next, nil
}

// DeleteOrder removes an order. Pending orders give their stock back.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOrder(ctx, o, me); err != nil {
		return err
	}
	var release []LineItem
	if o.Status == StatusPending {
		release = o.Items
	}
	if err := s.Store.DeleteOrder(ctx, id, o.UpdatedAt, release); err != nil {
		return s.stockFailure(ctx, "delete order", err)
	}
	s.emit(ctx, EventOrderDeleted, o)
	return nil
}

func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.listOrders(ctx, OrderFilter{})
}

func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOrder(ctx, o, me); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) OrdersForSeller(ctx context.Context) ([]Order, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.listOrders(ctx, OrderFilter{SellerID: me.ID})
}

// OrdersByStatus lists the caller's orders in the given status.
func (s *Service) OrdersByStatus(ctx context.Context, status Status) ([]Order, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, newError(KindInvalidInput, "unknown order status %q", status)
	}
	return s.listOrders(ctx, OrderFilter{SellerID: me.ID, Status: status})
}

func (s *Service) listOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	list, err := s.Store.Orders(ctx, f)
	if err != nil {
		return nil, s.internal(ctx, "list orders", err)
	}
	return list, nil
}

func rankingLimit(limit int) int {
	if limit <= 0 {
		return defaultRankingLimit
	}
	if limit > maxRankingLimit {
		return maxRankingLimit
	}
	return limit
}

// TopClients ranks clients by the total of their completed orders.
func (s *Service) TopClients(ctx context.Context, limit int) ([]ClientRanking, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	rs, err := s.Store.TopClients(ctx, rankingLimit(limit))
	if err != nil {
		return nil, s.internal(ctx, "top clients", err)
	}
	out := make([]ClientRanking, 0, len(rs))
	for _, r := range rs {
		c, err := s.Store.Client(ctx, r.ID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "top clients", err)
		}
		out = append(out, ClientRanking{Client: *c, TotalCents: r.TotalCents})
	}
	return out, nil
}

// TopSellers ranks sellers by the total of their completed orders.
func (s *Service) TopSellers(ctx context.Context, limit int) ([]SellerRanking, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	rs, err := s.Store.TopSellers(ctx, rankingLimit(limit))
	if err != nil {
		return nil, s.internal(ctx, "top sellers", err)
	}
	out := make([]SellerRanking, 0, len(rs))
	for _, r := range rs {
		u, err := s.Store.UserByID(ctx, r.ID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "top sellers", err)
		}
		out = append(out, SellerRanking{Seller: *u, TotalCents: r.TotalCents})
	}
	return out, nil
}

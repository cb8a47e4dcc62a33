package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

// stageStock computes stock levels after giving back release and taking
// reserve. Nothing is written; commitStock applies the result.
func (s *Store) stageStock(release, reserve []crm.LineItem) (map[string]int, error) {
	staged := map[string]int{}
	level := func(id string) (int, bool) {
		if v, ok := staged[id]; ok {
			return v, true
		}
		p, ok := s.products[id]
		return p.Stock, ok
	}
	for _, it := range release {
		// deleted products have nothing to give back to
		if v, ok := level(it.ProductID); ok {
			staged[it.ProductID] = v + it.Qty
		}
	}
	for _, it := range reserve {
		v, ok := level(it.ProductID)
		if !ok {
			return nil, &crm.MissingProductError{ProductID: it.ProductID}
		}
		if v < it.Qty {
			return nil, &crm.StockError{
				ProductID: it.ProductID,
				Name:      s.products[it.ProductID].Name,
				Requested: it.Qty,
				Available: v,
			}
		}
		staged[it.ProductID] = v - it.Qty
	}
	return staged, nil
}

func (s *Store) commitStock(staged map[string]int) {
	for id, v := range staged {
		p := s.products[id]
		p.Stock = v
		s.products[id] = p
	}
}

func (s *Store) PlaceOrder(_ context.Context, o *crm.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, err := s.stageStock(nil, o.Items)
	if err != nil {
		return err
	}
	s.commitStock(staged)
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) Order(_ context.Context, id string) (*crm.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, crm.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) Orders(_ context.Context, f crm.OrderFilter) ([]crm.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []crm.Order{}
	for _, o := range s.orders {
		if f.SellerID != "" && o.SellerID != f.SellerID {
			continue
		}
		if f.ClientID != "" && o.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// current checks that order id exists and was last written at seen.
func (s *Store) current(id string, seen time.Time) error {
	o, ok := s.orders[id]
	if !ok {
		return crm.ErrNotFound
	}
	if !o.UpdatedAt.Equal(seen) {
		return crm.ErrConflict
	}
	return nil
}

func (s *Store) ReviseOrder(_ context.Context, o *crm.Order, seen time.Time, release, reserve []crm.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.current(o.ID, seen); err != nil {
		return err
	}
	staged, err := s.stageStock(release, reserve)
	if err != nil {
		return err
	}
	s.commitStock(staged)
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id string, seen time.Time, release []crm.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.current(id, seen); err != nil {
		return err
	}
	staged, err := s.stageStock(release, nil)
	if err != nil {
		return err
	}
	s.commitStock(staged)
	delete(s.orders, id)
	return nil
}

func (s *Store) TopClients(_ context.Context, limit int) ([]crm.Ranking, error) {
	return s.rank(limit, func(o crm.Order) string { return o.ClientID }), nil
}

func (s *Store) TopSellers(_ context.Context, limit int) ([]crm.Ranking, error) {
	return s.rank(limit, func(o crm.Order) string { return o.SellerID }), nil
}

func (s *Store) rank(limit int, key func(crm.Order) string) []crm.Ranking {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]int64{}
	for _, o := range s.orders {
		if o.Status == crm.StatusCompleted {
			totals[key(o)] += o.TotalCents
		}
	}
	out := make([]crm.Ranking, 0, len(totals))
	for id, t := range totals {
		out = append(out, crm.Ranking{ID: id, TotalCents: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCents != out[j].TotalCents {
			return out[i].TotalCents > out[j].TotalCents
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

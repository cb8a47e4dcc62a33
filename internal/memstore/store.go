// Package memstore keeps CRM records in process memory. A single mutex
// serializes every operation, so stock reservations are atomic exactly like
// the Postgres transactions they stand in for.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]crm.User
	products map[string]crm.Product
	clients  map[string]crm.Client
	orders   map[string]crm.Order
}

var _ crm.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    map[string]crm.User{},
		products: map[string]crm.Product{},
		clients:  map[string]crm.Client{},
		orders:   map[string]crm.Order{},
	}
}

func cloneOrder(o crm.Order) crm.Order {
	o.Items = append([]crm.LineItem(nil), o.Items...)
	return o
}

// ---- users ----

func (s *Store) InsertUser(_ context.Context, u *crm.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Email == u.Email {
			return crm.ErrDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*crm.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*crm.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, crm.ErrNotFound
}

// ---- products ----

func (s *Store) InsertProduct(_ context.Context, p *crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *Store) Product(_ context.Context, id string) (*crm.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return &p, nil
}

func (s *Store) Products(_ context.Context) ([]crm.Product, error) {
	return s.filterProducts(func(crm.Product) bool { return true }), nil
}

func (s *Store) SearchProducts(_ context.Context, text string) ([]crm.Product, error) {
	text = strings.ToLower(text)
	return s.filterProducts(func(p crm.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), text)
	}), nil
}

func (s *Store) filterProducts(keep func(crm.Product) bool) []crm.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []crm.Product{}
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) UpdateProduct(_ context.Context, p *crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return crm.ErrNotFound
	}
	s.products[p.ID] = *p
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return crm.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// ---- clients ----

func (s *Store) emailInUse(email, exceptID string) bool {
	for _, c := range s.clients {
		if c.Email == email && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) InsertClient(_ context.Context, c *crm.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailInUse(c.Email, "") {
		return crm.ErrDuplicate
	}
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) Client(_ context.Context, id string) (*crm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, crm.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ClientByEmail(_ context.Context, email string) (*crm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, crm.ErrNotFound
}

func (s *Store) Clients(_ context.Context, sellerID string) ([]crm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []crm.Client{}
	for _, c := range s.clients {
		if sellerID == "" || c.SellerID == sellerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateClient(_ context.Context, c *crm.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return crm.ErrNotFound
	}
	if s.emailInUse(c.Email, c.ID) {
		return crm.ErrDuplicate
	}
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) DeleteClient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return crm.ErrNotFound
	}
	for _, o := range s.orders {
		if o.ClientID == id {
			return crm.ErrReferenced
		}
	}
	delete(s.clients, id)
	return nil
}

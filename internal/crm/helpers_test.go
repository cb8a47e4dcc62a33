package crm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/memstore"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *crm.Service
	store  *memstore.Store
	tokens *auth.Issuer
	events *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	store := memstore.New()
	events := &recordingSink{}
	return &fixture{
		svc:    &crm.Service{Store: store, Tokens: tokens, Events: events},
		store:  store,
		tokens: tokens,
		events: events,
	}
}

// seller registers a user and returns a context authenticated as that user.
func (f *fixture) seller(t *testing.T, email string) (context.Context, *crm.User) {
	t.Helper()
	u, err := f.svc.RegisterUser(context.Background(), crm.NewUser{
		Name: "Ana", Surname: "Seller", Email: email, Password: "secret123",
	})
	require.NoError(t, err)
	return auth.WithIdentity(context.Background(), u.Identity()), u
}

func (f *fixture) product(t *testing.T, name string, stock int, priceCents int64) *crm.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), crm.ProductInput{Name: name, Stock: stock, PriceCents: priceCents})
	require.NoError(t, err)
	return p
}

func (f *fixture) client(t *testing.T, ctx context.Context, email string) *crm.Client {
	t.Helper()
	c, err := f.svc.CreateClient(ctx, crm.ClientInput{
		Name: "Carla", Surname: "Client", Company: "ACME", Email: email, Phone: "555-0100",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Product(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func requireKind(t *testing.T, err error, kind crm.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, crm.KindOf(err), "error: %v", err)
}

type recordedEvent struct {
	Type    string
	Key     string
	Payload crm.OrderEventPayload
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) Emit(_ context.Context, eventType, key string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := payload.(crm.OrderEventPayload)
	r.events = append(r.events, recordedEvent{Type: eventType, Key: key, Payload: p})
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type mapIdempotency struct {
	mu sync.Mutex
	m  map[string]string
}

// ClaimOrder stores "" for a claim still in flight.
func (m *mapIdempotency) ClaimOrder(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.m[key]; ok {
		return id, false, nil
	}
	if m.m == nil {
		m.m = map[string]string{}
	}
	m.m[key] = ""
	return "", true, nil
}

func (m *mapIdempotency) ReleaseOrder(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
	return nil
}

func (m *mapIdempotency) RememberOrder(_ context.Context, key, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.m == nil {
		m.m = map[string]string{}
	}
	m.m[key] = orderID
	return nil
}

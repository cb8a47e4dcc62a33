package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to the database named by CRM_TEST_POSTGRES_DSN and
// empties every CRM table. Tests using it are skipped when the variable is
// unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("CRM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, EnsureSchema(ctx, db))
	_, err = db.Exec(ctx, `TRUNCATE order_items, orders, clients, products, users`)
	require.NoError(t, err)
	return db
}

func TestLockOrder(t *testing.T) {
	in := []crm.LineItem{{ProductID: "c"}, {ProductID: "a"}, {ProductID: "b"}}
	got := lockOrder(in)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ProductID, got[1].ProductID, got[2].ProductID})
	assert.Equal(t, "c", in[0].ProductID, "input left untouched")
}

type pgFixture struct {
	store  *Store
	seller *crm.User
	client *crm.Client
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	s := &Store{DB: openTestDB(t)}
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &crm.User{ID: "u-1", Name: "Ana", Surname: "Lopez", Email: "ana@example.com", PasswordHash: "x", CreatedAt: now}
	require.NoError(t, s.InsertUser(ctx, u))
	c := &crm.Client{ID: "c-1", Name: "Carla", Surname: "Diaz", Company: "ACME", Email: "carla@acme.com", SellerID: u.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertClient(ctx, c))
	return &pgFixture{store: s, seller: u, client: c}
}

func (f *pgFixture) product(t *testing.T, id string, stock int) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, f.store.InsertProduct(context.Background(), &crm.Product{
		ID: id, Name: "Product " + id, Stock: stock, PriceCents: 100, CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *pgFixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Product(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *pgFixture) order(id string, items ...crm.LineItem) *crm.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &crm.Order{
		ID: id, Items: items, ClientID: f.client.ID, SellerID: f.seller.ID,
		Status: crm.StatusPending, TotalCents: 100, CreatedAt: now, UpdatedAt: now,
	}
}

func TestPG_Duplicates(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	err := f.store.InsertUser(ctx, &crm.User{ID: "u-2", Name: "x", Surname: "y", Email: f.seller.Email, PasswordHash: "x"})
	assert.ErrorIs(t, err, crm.ErrDuplicate)

	dup := *f.client
	dup.ID = "c-2"
	assert.ErrorIs(t, f.store.InsertClient(ctx, &dup), crm.ErrDuplicate)

	_, err = f.store.Client(ctx, "missing")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestPG_PlaceOrderIsAtomic(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	f.product(t, "a", 5)
	f.product(t, "b", 1)

	err := f.store.PlaceOrder(ctx, f.order("o-1",
		crm.LineItem{ProductID: "a", Qty: 2}, crm.LineItem{ProductID: "b", Qty: 2}))
	var se *crm.StockError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "b", se.ProductID)
	assert.Equal(t, 5, f.stock(t, "a"))

	err = f.store.PlaceOrder(ctx, f.order("o-2", crm.LineItem{ProductID: "ghost", Qty: 1}))
	assert.ErrorIs(t, err, crm.ErrNotFound)

	require.NoError(t, f.store.PlaceOrder(ctx, f.order("o-3",
		crm.LineItem{ProductID: "b", Qty: 1}, crm.LineItem{ProductID: "a", Qty: 2})))
	assert.Equal(t, 3, f.stock(t, "a"))
	assert.Equal(t, 0, f.stock(t, "b"))

	o, err := f.store.Order(ctx, "o-3")
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "b", o.Items[0].ProductID, "line order preserved")
}

func TestPG_ConcurrentPlacement(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	f.product(t, "p", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"o-1", "o-2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = f.store.PlaceOrder(ctx, f.order(id, crm.LineItem{ProductID: "p", Qty: 3}))
		}(i, id)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			var se *crm.StockError
			require.True(t, errors.As(err, &se), "got %v", err)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, f.stock(t, "p"))
}

func TestPG_ReviseAndDelete(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	f.product(t, "a", 4)
	f.product(t, "b", 4)

	o := f.order("o-1", crm.LineItem{ProductID: "a", Qty: 4})
	require.NoError(t, f.store.PlaceOrder(ctx, o))

	next := *o
	next.Items = []crm.LineItem{{ProductID: "a", Qty: 1}, {ProductID: "b", Qty: 3}}
	next.UpdatedAt = o.UpdatedAt.Add(time.Second)
	require.NoError(t, f.store.ReviseOrder(ctx, &next, o.UpdatedAt, o.Items, next.Items))
	assert.Equal(t, 3, f.stock(t, "a"))
	assert.Equal(t, 1, f.stock(t, "b"))

	tooMuch := next
	tooMuch.Items = []crm.LineItem{{ProductID: "b", Qty: 9}}
	tooMuch.UpdatedAt = next.UpdatedAt.Add(time.Second)
	err := f.store.ReviseOrder(ctx, &tooMuch, next.UpdatedAt, next.Items, tooMuch.Items)
	var se *crm.StockError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, 3, f.stock(t, "a"))
	assert.Equal(t, 1, f.stock(t, "b"))

	done := next
	done.Status = crm.StatusCompleted
	done.UpdatedAt = next.UpdatedAt.Add(time.Second)
	assert.ErrorIs(t, f.store.ReviseOrder(ctx, &done, o.UpdatedAt, nil, nil), crm.ErrConflict)
	require.NoError(t, f.store.ReviseOrder(ctx, &done, next.UpdatedAt, nil, nil))
	list, err := f.store.Orders(ctx, crm.OrderFilter{SellerID: f.seller.ID, Status: crm.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 2)

	assert.ErrorIs(t, f.store.DeleteClient(ctx, f.client.ID), crm.ErrReferenced)

	ranks, err := f.store.TopClients(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []crm.Ranking{{ID: f.client.ID, TotalCents: 100}}, ranks)

	require.NoError(t, f.store.DeleteOrder(ctx, "o-1", done.UpdatedAt, nil))
	assert.ErrorIs(t, f.store.DeleteOrder(ctx, "o-1", done.UpdatedAt, nil), crm.ErrNotFound)
	assert.NoError(t, f.store.DeleteClient(ctx, f.client.ID))
}

func TestPG_SearchEscapesWildcards(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, name := range []string{"100% cotton", "1000 cotton"} {
		require.NoError(t, f.store.InsertProduct(ctx, &crm.Product{ID: name, Name: name, CreatedAt: now, UpdatedAt: now}))
	}
	ps, err := f.store.SearchProducts(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "100% cotton", ps[0].Name)
}

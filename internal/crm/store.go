package crm

import (
	"context"
	"time"
)

// Stores return ErrNotFound for missing records and ErrDuplicate when a
// unique email is already taken.

type UserStore interface {
	InsertUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
}

type ProductStore interface {
	InsertProduct(ctx context.Context, p *Product) error
	Product(ctx context.Context, id string) (*Product, error)
	Products(ctx context.Context) ([]Product, error)
	SearchProducts(ctx context.Context, text string) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type ClientStore interface {
	InsertClient(ctx context.Context, c *Client) error
	Client(ctx context.Context, id string) (*Client, error)
	ClientByEmail(ctx context.Context, email string) (*Client, error)
	// Clients lists every client, or only those of sellerID when it is set.
	Clients(ctx context.Context, sellerID string) ([]Client, error)
	UpdateClient(ctx context.Context, c *Client) error
	DeleteClient(ctx context.Context, id string) error
}

// OrderStore persists orders together with their effect on product stock.
// Every method that takes line items applies them atomically: either all
// stock adjustments and the order write are committed, or none are.
type OrderStore interface {
	// PlaceOrder decrements stock for every item of o and inserts o.
	// A line that cannot be covered fails with *StockError, an unknown
	// product with *MissingProductError.
	PlaceOrder(ctx context.Context, o *Order) error
	Order(ctx context.Context, id string) (*Order, error)
	Orders(ctx context.Context, f OrderFilter) ([]Order, error)
	// ReviseOrder gives back the release quantities, takes the reserve
	// quantities and saves o. seen is the UpdatedAt the caller read; a
	// different stored value fails with ErrConflict.
	ReviseOrder(ctx context.Context, o *Order, seen time.Time, release, reserve []LineItem) error
	// DeleteOrder gives back the release quantities and deletes the order,
	// with the same ErrConflict check as ReviseOrder.
	DeleteOrder(ctx context.Context, id string, seen time.Time, release []LineItem) error
	TopClients(ctx context.Context, limit int) ([]Ranking, error)
	TopSellers(ctx context.Context, limit int) ([]Ranking, error)
}

type Store interface {
	UserStore
	ProductStore
	ClientStore
	OrderStore
}

// IdempotencyStore remembers which order a client-supplied idempotency key
// produced.
type IdempotencyStore interface {
	// ClaimOrder atomically reserves key for a new placement. When key is
	// already taken it returns claimed=false and the order id stored under
	// it, which is empty while the first placement is still in flight.
	ClaimOrder(ctx context.Context, key string) (orderID string, claimed bool, err error)
	RememberOrder(ctx context.Context, key, orderID string) error
	// ReleaseOrder drops a claim whose placement failed.
	ReleaseOrder(ctx context.Context, key string) error
}

// StockAlerts lists products flagged as low on stock.
type StockAlerts interface {
	LowStock(ctx context.Context) ([]string, error)
}

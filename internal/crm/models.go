package crm

import (
	"math"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Product price is kept in cents; the API exposes it as a decimal.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	PriceCents int64     `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	SellerID  string    `json:"seller"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LineItem is one product reference inside an order. PriceCents is the unit
// price captured when the line was reserved.
type LineItem struct {
	ProductID  string `json:"id"`
	Qty        int    `json:"quantity"`
	PriceCents int64  `json:"-"`
}

type Order struct {
	ID         string     `json:"id"`
	Items      []LineItem `json:"items"`
	ClientID   string     `json:"client"`
	SellerID   string     `json:"seller"`
	Status     Status     `json:"status"`
	TotalCents int64      `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	SellerID string
	ClientID string
	Status   Status
}

// Ranking is one row of a top clients / top sellers aggregation over
// completed orders.
type Ranking struct {
	ID         string
	TotalCents int64
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Surname: u.Surname}
}

// Quantities merges line items by product, keeping first-seen order.
func Quantities(items []LineItem) []LineItem {
	idx := make(map[string]int, len(items))
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Qty += it.Qty
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// CentsToAmount and AmountToCents convert between stored cents and the
// decimal amounts used on the wire.
func CentsToAmount(c int64) float64 { return float64(c) / 100 }

// MaxAmount is the largest decimal amount AmountToCents accepts. Its cents
// value stays below 2^53, where float64 still resolves single cents.
const MaxAmount = 1e13

// AmountToCents rounds a to whole cents. NaN, infinities, negative amounts
// and amounts above MaxAmount fail with INVALID_INPUT.
func AmountToCents(a float64) (int64, error) {
	if math.IsNaN(a) || a < 0 || a > MaxAmount {
		return 0, newError(KindInvalidInput, "amount must be between 0 and %.0f", MaxAmount)
	}
	return int64(a*100 + 0.5), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/jackc/pgx/v5"
)

// lockOrder sorts a copy of items by product id so concurrent transactions
// take row locks in the same order.
func lockOrder(items []crm.LineItem) []crm.LineItem {
	out := append([]crm.LineItem(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// reserve takes stock for every item with a conditional decrement. The first
// item that cannot be covered aborts; the caller rolls back.
func reserve(ctx context.Context, tx pgx.Tx, items []crm.LineItem) error {
	for _, it := range lockOrder(items) {
		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 1 {
			continue
		}

		var name string
		var stock int
		err = tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1`, it.ProductID).Scan(&name, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return &crm.MissingProductError{ProductID: it.ProductID}
		}
		if err != nil {
			return err
		}
		return &crm.StockError{ProductID: it.ProductID, Name: name, Requested: it.Qty, Available: stock}
	}
	return nil
}

// release gives stock back. Products deleted since the reservation are
// skipped.
func release(ctx context.Context, tx pgx.Tx, items []crm.LineItem) error {
	for _, it := range lockOrder(items) {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now()
			WHERE id = $1`, it.ProductID, it.Qty); err != nil {
			return err
		}
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, o *crm.Order) error {
	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, it.ProductID, it.Qty, it.PriceCents); err != nil {
			return err
		}
	}
	return nil
}

// PlaceOrder: reserve stock -> insert order -> insert items, in one tx.
// Any failure leaves stock untouched (rollback via defer).
func (s *Store) PlaceOrder(ctx context.Context, o *crm.Order) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := reserve(ctx, tx, o.Items); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, client_id, seller_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.ClientID, o.SellerID, string(o.Status), o.TotalCents, o.CreatedAt, o.UpdatedAt); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockCurrent locks the order row and checks it was last written at seen,
// so two writers of one order serialize and the later one sees the conflict.
func lockCurrent(ctx context.Context, tx pgx.Tx, id string, seen time.Time) error {
	var updated time.Time
	if err := tx.QueryRow(ctx, `SELECT updated_at FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&updated); err != nil {
		return notFound(err)
	}
	if !updated.Equal(seen) {
		return crm.ErrConflict
	}
	return nil
}

func (s *Store) ReviseOrder(ctx context.Context, o *crm.Order, seen time.Time, rel, res []crm.LineItem) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockCurrent(ctx, tx, o.ID, seen); err != nil {
		return err
	}
	if err := release(ctx, tx, rel); err != nil {
		return err
	}
	if err := reserve(ctx, tx, res); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET client_id=$2, status=$3, total_cents=$4, updated_at=$5
		WHERE id=$1`,
		o.ID, o.ClientID, string(o.Status), o.TotalCents, o.UpdatedAt); err != nil {
		return err
	}
	if res != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, o); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteOrder(ctx context.Context, id string, seen time.Time, rel []crm.LineItem) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockCurrent(ctx, tx, id, seen); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id); err != nil {
		return err
	}
	if err := release(ctx, tx, rel); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, client_id, seller_id, status, total_cents, created_at, updated_at`

func scanOrder(row pgx.Row) (*crm.Order, error) {
	var o crm.Order
	var status string
	if err := row.Scan(&o.ID, &o.ClientID, &o.SellerID, &status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	o.Status = crm.Status(status)
	return &o, nil
}

func (s *Store) Order(ctx context.Context, id string) (*crm.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, []*crm.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) Orders(ctx context.Context, f crm.OrderFilter) ([]crm.Order, error) {
	var where []string
	var args []any
	add := func(col, v string) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if f.SellerID != "" {
		add("seller_id", f.SellerID)
	}
	if f.ClientID != "" {
		add("client_id", f.ClientID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at`

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*crm.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, list); err != nil {
		return nil, err
	}

	out := make([]crm.Order, 0, len(list))
	for _, o := range list {
		out = append(out, *o)
	}
	return out, nil
}

// loadItems fills Items of every order with one query.
func (s *Store) loadItems(ctx context.Context, list []*crm.Order) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*crm.Order, len(list))
	ids := make([]string, 0, len(list))
	for _, o := range list {
		byID[o.ID] = o
		ids = append(ids, o.ID)
		o.Items = []crm.LineItem{}
	}
	rows, err := s.DB.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, line`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it crm.LineItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (s *Store) TopClients(ctx context.Context, limit int) ([]crm.Ranking, error) {
	return s.rank(ctx, "client_id", limit)
}

func (s *Store) TopSellers(ctx context.Context, limit int) ([]crm.Ranking, error) {
	return s.rank(ctx, "seller_id", limit)
}

// rank sums completed order totals grouped by col, which must be a trusted
// column name.
func (s *Store) rank(ctx context.Context, col string, limit int) ([]crm.Ranking, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+col+`, SUM(total_cents)::BIGINT AS total
		FROM orders WHERE status = 'COMPLETED'
		GROUP BY `+col+`
		ORDER BY total DESC, `+col+`
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []crm.Ranking{}
	for rows.Next() {
		var r crm.Ranking
		if err := rows.Scan(&r.ID, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

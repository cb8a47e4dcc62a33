package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

var _ crm.Store = (*Store)(nil)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return crm.ErrNotFound
	}
	return err
}

// ---- users ----

func (s *Store) InsertUser(ctx context.Context, u *crm.User) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO users(id, name, surname, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Surname, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return crm.ErrDuplicate
	}
	return err
}

const userColumns = `id, name, surname, email, password_hash, created_at`

func scanUser(row pgx.Row) (*crm.User, error) {
	var u crm.User
	if err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*crm.User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*crm.User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

// ---- products ----

const productColumns = `id, name, stock, price_cents, created_at, updated_at`

func scanProduct(row pgx.Row) (*crm.Product, error) {
	var p crm.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) InsertProduct(ctx context.Context, p *crm.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, name, stock, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Stock, p.PriceCents, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) Product(ctx context.Context, id string) (*crm.Product, error) {
	return scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (s *Store) queryProducts(ctx context.Context, sql string, args ...any) ([]crm.Product, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []crm.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) Products(ctx context.Context) ([]crm.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) SearchProducts(ctx context.Context, text string) ([]crm.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products
		WHERE name ILIKE '%' || $1 || '%' ORDER BY name`, likeEscaper.Replace(text))
}

func (s *Store) UpdateProduct(ctx context.Context, p *crm.Product) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET name=$2, stock=$3, price_cents=$4, updated_at=$5
		WHERE id=$1`,
		p.ID, p.Name, p.Stock, p.PriceCents, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return crm.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return crm.ErrNotFound
	}
	return nil
}

// ---- clients ----

const clientColumns = `id, name, surname, company, email, phone, seller_id, created_at, updated_at`

func scanClient(row pgx.Row) (*crm.Client, error) {
	var c crm.Client
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Company, &c.Email, &c.Phone, &c.SellerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) InsertClient(ctx context.Context, c *crm.Client) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO clients(id, name, surname, company, email, phone, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Surname, c.Company, c.Email, c.Phone, c.SellerID, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return crm.ErrDuplicate
	}
	return err
}

func (s *Store) Client(ctx context.Context, id string) (*crm.Client, error) {
	return scanClient(s.DB.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id))
}

func (s *Store) ClientByEmail(ctx context.Context, email string) (*crm.Client, error) {
	return scanClient(s.DB.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE email=$1`, email))
}

func (s *Store) Clients(ctx context.Context, sellerID string) ([]crm.Client, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+clientColumns+` FROM clients
		WHERE $1 = '' OR seller_id = $1 ORDER BY created_at`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []crm.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateClient(ctx context.Context, c *crm.Client) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE clients SET name=$2, surname=$3, company=$4, email=$5, phone=$6, updated_at=$7
		WHERE id=$1`,
		c.ID, c.Name, c.Surname, c.Company, c.Email, c.Phone, c.UpdatedAt)
	if isUniqueViolation(err) {
		return crm.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return crm.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return crm.ErrReferenced
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return crm.ErrNotFound
	}
	return nil
}

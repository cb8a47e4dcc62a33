package crm

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ProductInput struct {
	Name       string
	Stock      int
	PriceCents int64
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return newError(KindInvalidInput, "product name is required")
	case in.Stock < 0:
		return newError(KindInvalidInput, "stock cannot be negative")
	case in.PriceCents < 0:
		return newError(KindInvalidInput, "price cannot be negative")
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := now()
	p := &Product{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Stock:      in.Stock,
		PriceCents: in.PriceCents,
		CreatedAt:  t,
		UpdatedAt:  t,
	}
	if err := s.Store.InsertProduct(ctx, p); err != nil {
		return nil, s.internal(ctx, "create product", err)
	}
	return p, nil
}

func (s *Service) Product(ctx context.Context, id string) (*Product, error) {
	p, err := s.Store.Product(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(KindProductNotFound, "product %s does not exist", id)
		}
		return nil, s.internal(ctx, "get product", err)
	}
	return p, nil
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	ps, err := s.Store.Products(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list products", err)
	}
	return ps, nil
}

func (s *Service) SearchProducts(ctx context.Context, text string) ([]Product, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.Products(ctx)
	}
	ps, err := s.Store.SearchProducts(ctx, text)
	if err != nil {
		return nil, s.internal(ctx, "search products", err)
	}
	return ps, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Stock = in.Stock
	p.PriceCents = in.PriceCents
	p.UpdatedAt = now()
	if err := s.Store.UpdateProduct(ctx, p); err != nil {
		if isNotFound(err) {
			return nil, newError(KindProductNotFound, "product %s does not exist", id)
		}
		return nil, s.internal(ctx, "update product", err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.Product(ctx, id); err != nil {
		return err
	}
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		if isNotFound(err) {
			return newError(KindProductNotFound, "product %s does not exist", id)
		}
		return s.internal(ctx, "delete product", err)
	}
	return nil
}

// LowStockProducts returns the products currently flagged by the stock
// watcher. Flags pointing at deleted products are skipped.
func (s *Service) LowStockProducts(ctx context.Context) ([]Product, error) {
	if s.Alerts == nil {
		return []Product{}, nil
	}
	ids, err := s.Alerts.LowStock(ctx)
	if err != nil {
		return nil, s.internal(ctx, "low stock alerts", err)
	}
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.Store.Product(ctx, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, s.internal(ctx, "low stock alerts", err)
		}
		out = append(out, *p)
	}
	return out, nil
}

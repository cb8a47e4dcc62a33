package crm

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/google/uuid"
)

type ClientInput struct {
	Name    string
	Surname string
	Company string
	Email   string
	Phone   string
}

func (in *ClientInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	switch {
	case in.Name == "" || in.Surname == "":
		return newError(KindInvalidInput, "client name and surname are required")
	case in.Company == "":
		return newError(KindInvalidInput, "client company is required")
	case in.Email == "":
		return newError(KindInvalidInput, "client email is required")
	}
	return nil
}

// ownedClient loads a client and checks that me is its seller.
func (s *Service) ownedClient(ctx context.Context, id string, me auth.Identity) (*Client, error) {
	c, err := s.Store.Client(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(KindClientNotFound, "client %s does not exist", id)
		}
		return nil, s.internal(ctx, "get client", err)
	}
	if c.SellerID != me.ID {
		return nil, newError(KindPermissionDenied, "client %s belongs to another seller", id)
	}
	return c, nil
}

// emailTaken reports whether another client than exceptID uses email.
func (s *Service) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	c, err := s.Store.ClientByEmail(ctx, email)
	switch {
	case isNotFound(err):
		return false, nil
	case err != nil:
		return false, s.internal(ctx, "get client by email", err)
	}
	return c.ID != exceptID, nil
}

func (s *Service) CreateClient(ctx context.Context, in ClientInput) (*Client, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(KindDuplicateClient, "client %s already exists", in.Email)
	}
	t := now()
	c := &Client{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Surname:   in.Surname,
		Company:   in.Company,
		Email:     in.Email,
		Phone:     in.Phone,
		SellerID:  me.ID,
		CreatedAt: t,
		UpdatedAt: t,
	}
	if err := s.Store.InsertClient(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, newError(KindDuplicateClient, "client %s already exists", in.Email)
		}
		return nil, s.internal(ctx, "create client", err)
	}
	return c, nil
}

// Clients lists every client of every seller.
func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	cs, err := s.Store.Clients(ctx, "")
	if err != nil {
		return nil, s.internal(ctx, "list clients", err)
	}
	return cs, nil
}

func (s *Service) ClientsForSeller(ctx context.Context) ([]Client, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := s.Store.Clients(ctx, me.ID)
	if err != nil {
		return nil, s.internal(ctx, "list seller clients", err)
	}
	return cs, nil
}

func (s *Service) Client(ctx context.Context, id string) (*Client, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.ownedClient(ctx, id, me)
}

func (s *Service) UpdateClient(ctx context.Context, id string, in ClientInput) (*Client, error) {
	me, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ownedClient(ctx, id, me)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Email != c.Email {
		taken, err := s.emailTaken(ctx, in.Email, c.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, newError(KindDuplicateClient, "client %s already exists", in.Email)
		}
	}
	c.Name = in.Name
	c.Surname = in.Surname
	c.Company = in.Company
	c.Email = in.Email
	c.Phone = in.Phone
	c.UpdatedAt = now()
	if err := s.Store.UpdateClient(ctx, c); err != nil {
		switch {
		case isNotFound(err):
			return nil, newError(KindClientNotFound, "client %s does not exist", id)
		case errors.Is(err, ErrDuplicate):
			return nil, newError(KindDuplicateClient, "client %s already exists", in.Email)
		}
		return nil, s.internal(ctx, "update client", err)
	}
	return c, nil
}

// DeleteClient removes a client that has no orders.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	me, err := caller(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ownedClient(ctx, id, me); err != nil {
		return err
	}
	orders, err := s.Store.Orders(ctx, OrderFilter{ClientID: id})
	if err != nil {
		return s.internal(ctx, "delete client", err)
	}
	if len(orders) > 0 {
		return newError(KindInvalidInput, "client %s still has %d orders", id, len(orders))
	}
	if err := s.Store.DeleteClient(ctx, id); err != nil {
		switch {
		case isNotFound(err):
			return newError(KindClientNotFound, "client %s does not exist", id)
		case errors.Is(err, ErrReferenced):
			// an order was placed after the check above
			return newError(KindInvalidInput, "client %s still has orders", id)
		}
		return s.internal(ctx, "delete client", err)
	}
	return nil
}

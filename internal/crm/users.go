package crm

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/google/uuid"
)

// bcrypt rejects passwords longer than this.
const maxPasswordLen = 72

type NewUser struct {
	Name     string
	Surname  string
	Email    string
	Password string
}

// RegisterUser creates a seller account. The returned user carries the
// password hash; callers must not expose it.
func (s *Service) RegisterUser(ctx context.Context, in NewUser) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = normalizeEmail(in.Email)
	switch {
	case in.Name == "" || in.Surname == "":
		return nil, newError(KindInvalidInput, "name and surname are required")
	case in.Email == "":
		return nil, newError(KindInvalidInput, "email is required")
	case in.Password == "":
		return nil, newError(KindInvalidInput, "password is required")
	case len(in.Password) > maxPasswordLen:
		return nil, newError(KindInvalidInput, "password must be at most %d bytes", maxPasswordLen)
	}

	_, err := s.Store.UserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, newError(KindDuplicateUser, "user %s already exists", in.Email)
	case !isNotFound(err):
		return nil, s.internal(ctx, "register user", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}
	u := &User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now(),
	}
	if err := s.Store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, newError(KindDuplicateUser, "user %s already exists", in.Email)
		}
		return nil, s.internal(ctx, "register user", err)
	}
	s.log().InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks the credentials and returns a freshly issued token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := s.Store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return "", newError(KindUserNotFound, "user %s does not exist", normalizeEmail(email))
		}
		return "", s.internal(ctx, "authenticate", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", newError(KindInvalidCredentials, "incorrect password")
	}
	token, err := s.Tokens.Issue(u.Identity())
	if err != nil {
		return "", s.internal(ctx, "issue token", err)
	}
	return token, nil
}

// ObtainUser decodes the identity carried by token.
func (s *Service) ObtainUser(ctx context.Context, token string) (auth.Identity, error) {
	id, err := s.Tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, &Error{Kind: KindInvalidToken, Message: "invalid or expired token", Err: err}
	}
	return id, nil
}

package crm

import (
	"errors"
	"fmt"
)

// Kind categorizes errors returned by the service. The value is what API
// clients see in the error's "code" extension.
type Kind string

const (
	KindDuplicateUser           Kind = "DUPLICATE_USER"
	KindUserNotFound            Kind = "USER_NOT_FOUND"
	KindInvalidCredentials      Kind = "INVALID_CREDENTIALS"
	KindInvalidToken            Kind = "INVALID_TOKEN"
	KindProductNotFound         Kind = "PRODUCT_NOT_FOUND"
	KindClientNotFound          Kind = "CLIENT_NOT_FOUND"
	KindDuplicateClient         Kind = "DUPLICATE_CLIENT"
	KindPermissionDenied        Kind = "PERMISSION_DENIED"
	KindUnauthenticated         Kind = "UNAUTHENTICATED"
	KindInsufficientStock       Kind = "INSUFFICIENT_STOCK"
	KindOrderNotFound           Kind = "ORDER_NOT_FOUND"
	KindInvalidInput            Kind = "INVALID_INPUT"
	KindInvalidStatusTransition Kind = "INVALID_STATUS_TRANSITION"
	KindConflict                Kind = "CONFLICT"
	KindInternal                Kind = "INTERNAL"
)

// Error is a request-level failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, if any. It is never shown to API clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err, or KindInternal for errors that did not
// originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Store-level errors. Stores return these and the service maps them to kinds.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrConflict   = errors.New("record changed concurrently")
	ErrReferenced = errors.New("record still referenced by other records")
)

// StockError reports a line item that could not be reserved. Available is
// the stock observed at the time of the failed reservation.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (%s): requested %d, available %d",
		e.ProductID, e.Name, e.Requested, e.Available)
}

// MissingProductError reports a line item referencing an unknown product.
type MissingProductError struct {
	ProductID string
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *MissingProductError) Is(target error) bool { return target == ErrNotFound }

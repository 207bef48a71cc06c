package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies ledger and account failures so callers can branch
// without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindDuplicate
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindDuplicate:
		return "duplicate"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ValidationError is bad input shape or range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func NewNotFoundError(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// InsufficientStockError means a sale asked for more than is on hand.
// Available is zero when the product does not exist.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
	Missing   bool
}

func (e *InsufficientStockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %d does not exist", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Key)
}

// IOError wraps persistence or filesystem failures. The caller may retry.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Cause() error {
	return e.Err
}

// WrapIO tags err as an IOError unless it already carries a domain kind.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &IOError{Op: op, Err: errors.WithStack(err)}
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var (
		ve *ValidationError
		ne *NotFoundError
		ie *InsufficientStockError
		de *DuplicateError
		oe *IOError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ne):
		return KindNotFound
	case errors.As(err, &ie):
		return KindInsufficientStock
	case errors.As(err, &de):
		return KindDuplicate
	case errors.As(err, &oe):
		return KindIO
	}
	return KindUnknown
}

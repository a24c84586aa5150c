package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBasket        = errors.New("basket is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCommitFailed       = errors.New("order could not be committed, try again")
	ErrStaleBasket        = errors.New("basket changed during checkout")
	ErrDuplicateCheckout  = errors.New("checkout already committed for idempotency key")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrClientNotFound     = errors.New("client not found")
	ErrBasketLineNotFound = errors.New("basket line not found")
	ErrOrderNotFound      = errors.New("order not found")
)

// InsufficientStockError names the first product that could not cover the
// requested quantity. Available is -1 when the product no longer exists.
type InsufficientStockError struct {
	ProductID   ProductID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for product: %s", e.ProductName)
	}
	return fmt.Sprintf("insufficient stock for product: %d", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CommitError wraps a storage failure that happened while committing a
// checkout. The cause is for logs only.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit checkout: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

func (e *CommitError) Is(target error) bool {
	return target == ErrCommitFailed
}

// IsValidation reports whether err is a checkout validation failure that the
// caller can act on (as opposed to a transient commit failure).
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBasket) || errors.Is(err, ErrInsufficientStock)
}

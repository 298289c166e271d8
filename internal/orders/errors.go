package orders

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidStatus     = errors.New("invalid order status")
)

// ValidationError lists every problem found in a placement request. Nothing
// has been written when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientStockError is raised by the stock decrement step when the
// guarded policy finds fewer units than requested.
type InsufficientStockError struct {
	ProductID int64
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TxError reports the unit of work step that failed. The transaction has been
// rolled back by the time the caller sees it.
type TxError struct {
	Step string
	Err  error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("place order: %s: %v", e.Step, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

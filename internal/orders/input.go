package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/orderflow-checkout/internal/domain"
)

type ItemInput struct {
	ProductID int64
	Quantity  int
}

// PlaceOrderInput is everything a checkout needs. Total is client supplied and
// is not checked against item prices.
type PlaceOrderInput struct {
	UserID                int64
	Total                 decimal.NullDecimal
	PaymentMethod         domain.PaymentMethod
	Items                 []ItemInput
	ShippingAddress       *domain.ShippingAddress
	SubscribeToNewsletter bool
}

func (in PlaceOrderInput) Validate() error {
	var problems []string
	if in.UserID <= 0 {
		problems = append(problems, "userId is required")
	}
	if !in.Total.Valid {
		problems = append(problems, "total is required")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	for i, item := range in.Items {
		switch {
		case item.ProductID <= 0:
			problems = append(problems, fmt.Sprintf("item %d: missing productId", i+1))
		case item.Quantity == 0:
			problems = append(problems, fmt.Sprintf("item %d: missing quantity", i+1))
		case item.Quantity < 0:
			problems = append(problems, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// NewOrder is the order row written by the unit of work.
type NewOrder struct {
	UserID                int64
	Total                 decimal.Decimal
	PaymentMethod         domain.PaymentMethod
	Status                domain.OrderStatus
	SubscribeToNewsletter bool
	CreatedAt             time.Time
}

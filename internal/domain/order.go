package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status an order may hold, in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodCash
}

// Label is the human readable payment method used in notifications.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCard:
		return "Card"
	case PaymentMethodCash:
		return "Cash on delivery"
	default:
		return string(m)
	}
}

// OrderItem is one product line of an order. Name, Price and Image are only
// populated when the item is read back joined with its product.
type OrderItem struct {
	ProductID int64            `json:"productId"`
	Quantity  int              `json:"quantity"`
	Name      string           `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Image     string           `json:"image,omitempty"`
}

type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Phone   string `json:"phone"`
}

type Order struct {
	ID                    int64            `json:"id"`
	UserID                int64            `json:"userId"`
	Total                 decimal.Decimal  `json:"total"`
	PaymentMethod         PaymentMethod    `json:"paymentMethod"`
	Status                OrderStatus      `json:"status"`
	SubscribeToNewsletter bool             `json:"subscribeToNewsletter"`
	Items                 []OrderItem      `json:"items"`
	ShippingAddress       *ShippingAddress `json:"shippingAddress,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartItem is a pending product selection of a user. Product fields are
// joined in on reads.
type CartItem struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

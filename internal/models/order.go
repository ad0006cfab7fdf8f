package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether status is one of the order lifecycle states.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// MaxOrderTotal is the largest amount orders.total_amount NUMERIC(10,2) can hold.
var MaxOrderTotal = decimal.RequireFromString("99999999.99")

type Order struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"userId" db:"user_id"`
	Status      string          `json:"status" db:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount" db:"total_amount"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
	Items       []*OrderItem    `json:"items,omitempty" db:"-"`
	User        *UserSummary    `json:"user,omitempty" db:"-"` // Owning user, read path only
}

// OrderUpdate carries the fields a client may change after checkout.
// The total and the line items are fixed at creation time.
type OrderUpdate struct {
	Status *string `json:"status,omitempty"`
}

// OrderCreate is the checkout request: who is buying and what.
type OrderCreate struct {
	UserID int64       `json:"userId"`
	Items  []OrderLine `json:"items"`
}

type OrderLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

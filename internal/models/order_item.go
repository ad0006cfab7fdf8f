package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. Price is the product's unit price at
// the moment the order was placed.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"orderId" db:"order_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	Product   *Product        `json:"product,omitempty" db:"-"`
}

// Subtotal returns quantity * price.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

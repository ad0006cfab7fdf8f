package messaging

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated = "OrderCreated"
	// DefaultOrderCreatedTopic is used when no topic is configured.
	DefaultOrderCreatedTopic = "order.created"
)

// Envelope wraps every event published by the service.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlationId,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     int64              `json:"orderId"`
	UserID      int64              `json:"userId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Items       []OrderCreatedItem `json:"items"`
}

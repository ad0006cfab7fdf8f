package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// OrderEventPublisher announces committed orders to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer   messageWriter
	producer string
	now      func() time.Time
}

// NewKafkaPublisher returns a publisher writing synchronously to topic.
// Messages are keyed by order id so events of one order stay on one partition.
func NewKafkaPublisher(brokers []string, topic, producer string) OrderEventPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, producer)
}

func newKafkaPublisher(w messageWriter, producer string) *kafkaPublisher {
	return &kafkaPublisher{writer: w, producer: producer, now: time.Now}
}

func (p *kafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	payload := OrderCreatedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       make([]OrderCreatedItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, OrderCreatedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal order created payload: %w", err)
	}

	orderID := strconv.FormatInt(order.ID, 10)
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    p.now().UTC(),
		Producer:      p.producer,
		CorrelationID: orderID,
		Payload:       rawPayload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(EventOrderCreated)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", EventOrderCreated, orderID, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event. Used when no
// brokers are configured.
func NewNoopPublisher() OrderEventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }
func (noopPublisher) Close() error                                             { return nil }

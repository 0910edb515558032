// Package events publishes order ledger events after a transaction commits.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"noun-crm/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TypeOrderCreated identifies OrderCreated payloads
const TypeOrderCreated = "order.created"

// OrderCreated is emitted once per committed order. Money is encoded as
// decimal strings.
type OrderCreated struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	CustomerID     string    `json:"customer_id,omitempty"`
	TotalAmount    string    `json:"total_amount"`
	TotalCost      string    `json:"total_cost"`
	EarnedPoints   int       `json:"earned_points"`
	RedeemedPoints int       `json:"redeemed_points"`
	PointsDebited  int       `json:"points_debited"`
	PaymentMethod  string    `json:"payment_method"`
	Source         string    `json:"source"`
	Lines          int       `json:"lines"`
	SkippedLines   int       `json:"skipped_lines"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewOrderCreated builds the event for a stored order
func NewOrderCreated(order *domain.Order) OrderCreated {
	evt := OrderCreated{
		Type:           TypeOrderCreated,
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		TotalAmount:    order.TotalAmount.StringFixed(2),
		TotalCost:      order.TotalCost.StringFixed(2),
		EarnedPoints:   order.EarnedPoints,
		RedeemedPoints: order.RedeemedPoints,
		PointsDebited:  order.PointsDebited,
		PaymentMethod:  order.PaymentMethod,
		Source:         order.Source,
		Lines:          len(order.Items),
		CreatedAt:      order.CreatedAt.UTC(),
	}
	if order.CustomerID != nil {
		evt.CustomerID = order.CustomerID.String()
	}
	for _, item := range order.Items {
		if !item.Matched {
			evt.SkippedLines++
		}
	}
	return evt
}

// Publisher delivers order events
type Publisher interface {
	PublishOrderCreated(ctx context.Context, evt OrderCreated) error
	Close() error
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id, so all
// events of one order land on the same partition.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// NewKafkaPublisher creates a synchronous publisher for topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

// NewKafkaPublisherWith injects a writer; used by tests.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	b, err := json.Marshal(&evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the application log when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	p.logger.Info("Order event",
		zap.String("type", evt.Type),
		zap.String("order_id", evt.OrderID),
		zap.String("order_number", evt.OrderNumber),
		zap.String("total_amount", evt.TotalAmount),
		zap.Int("earned_points", evt.EarnedPoints),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// New picks the Kafka publisher when brokers are configured
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info("No Kafka brokers configured, order events go to the log")
		return NewLogPublisher(logger)
	}
	logger.Info("Publishing order events to Kafka",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
	)
	return NewKafkaPublisher(brokers, topic)
}

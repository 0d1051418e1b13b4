package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omnisync/backend/internal/domain/shared"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultExchange receives notifications when none is configured
	DefaultExchange = "omnisync.notifications"
	exchangeType    = "topic"
	dialAttempts    = 5
)

// AMQPPublisher is the subset of *amqp.Channel the forwarder needs
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder publishes each notification as JSON to a topic exchange,
// routed by notification type.
type AMQPForwarder struct {
	publisher AMQPPublisher
	exchange  string
	conn      *amqp.Connection
	ch        *amqp.Channel
}

// NewAMQPForwarder wraps an open publisher
func NewAMQPForwarder(publisher AMQPPublisher, exchange string) *AMQPForwarder {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPForwarder{publisher: publisher, exchange: exchange}
}

// DialAMQPForwarder connects to the broker, retrying briefly while it starts,
// and declares the durable topic exchange.
func DialAMQPForwarder(ctx context.Context, url, exchange string, logger *zap.Logger) (*AMQPForwarder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("failed to connect to AMQP broker", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,     // name
		exchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	f := NewAMQPForwarder(ch, exchange)
	f.conn, f.ch = conn, ch
	return f, nil
}

// Name implements shared.NotificationHandler
func (f *AMQPForwarder) Name() string { return "amqp" }

// Handle implements shared.NotificationHandler
func (f *AMQPForwarder) Handle(ctx context.Context, n shared.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("could not marshal notification: %w", err)
	}
	return f.publisher.PublishWithContext(ctx,
		f.exchange, // exchange
		n.Type,     // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID.String(),
			Timestamp:    n.OccurredAt,
			Type:         n.Type,
			Body:         body,
		},
	)
}

// Close closes the channel and connection opened by DialAMQPForwarder
func (f *AMQPForwarder) Close() error {
	if f.ch != nil {
		_ = f.ch.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

var _ shared.NotificationHandler = (*AMQPForwarder)(nil)

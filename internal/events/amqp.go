package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/hongminglow/expense-tracker-be/internal/log"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange, using the event
// type as routing key.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     io.Closer
	channel  amqpChannel
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newAMQPPublisher(conn, ch, exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(conn io.Closer, ch amqpChannel, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, logger: log.Component(logger, log.ComponentEvents)}, nil
}

// Publish sends event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event ExpenseEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Published expense event",
		log.FieldOperation, log.OpPublish,
		"exchange", p.exchange,
		"routing_key", event.Type,
		log.FieldExpenseID, event.ExpenseID)
	return nil
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

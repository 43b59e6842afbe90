package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const ExchangeKind = "topic"

// RabbitMQPublisher publishes to a durable topic exchange with the event
// type as routing key. The connection is opened lazily and reopened
// after the broker drops it.
type RabbitMQPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitMQPublisher(url, exchange string, log *zap.Logger) *RabbitMQPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitMQPublisher{url: url, exchange: exchange, log: log}
}

func (p *RabbitMQPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}
	if err := DeclareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.log.Info("rabbitmq publisher connected", zap.String("exchange", p.exchange))
	return ch, nil
}

// DeclareExchange is shared by the publisher and the worker so both
// sides agree on the exchange shape.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"type": eventType},
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.reset()
		}
		return fmt.Errorf("rabbitmq: publish %s: %w", eventType, err)
	}
	return nil
}

func (p *RabbitMQPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQWorker binds a durable queue to the exchange for every event
// type the consumer handles, then feeds deliveries in batches. Failed
// deliveries are nacked with requeue; the rest are acked.
type RabbitMQWorker struct {
	url       string
	exchange  string
	queue     string
	consumer  *Consumer
	log       *zap.Logger
	batchSize int
	batchWait time.Duration
	backoff   time.Duration
}

func NewRabbitMQWorker(url, exchange, queue string, c *Consumer, batchSize int, batchWait time.Duration, log *zap.Logger) *RabbitMQWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if batchWait <= 0 {
		batchWait = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitMQWorker{
		url: url, exchange: exchange, queue: queue, consumer: c,
		log: log, batchSize: batchSize, batchWait: batchWait,
		backoff: 2 * time.Second,
	}
}

// ErrDeliveriesClosed means the broker closed the consume channel while
// the worker was still supposed to run.
var ErrDeliveriesClosed = errors.New("rabbitmq: deliveries channel closed")

// Run consumes until ctx ends. A dropped connection or a failed dial is
// logged and retried after the backoff.
func (w *RabbitMQWorker) Run(ctx context.Context) error {
	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.log.Error("rabbitmq worker interrupted; reconnecting",
			zap.String("queue", w.queue),
			zap.Duration("backoff", w.backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.backoff):
		}
	}
}

func (w *RabbitMQWorker) session(ctx context.Context) error {
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}
	defer ch.Close()

	if err := DeclareExchange(ch, w.exchange); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(w.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue %s: %w", w.queue, err)
	}
	for _, key := range w.consumer.Types() {
		if err := ch.QueueBind(q.Name, key, w.exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: bind %s: %w", key, err)
		}
	}
	if err := ch.Qos(w.batchSize, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, w.consumer.Name(), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}
	w.log.Info("rabbitmq worker started",
		zap.String("queue", q.Name),
		zap.Strings("bindings", w.consumer.Types()))

	return w.drain(ctx, deliveries)
}

// drain feeds deliveries to the consumer in batches. It returns nil when
// ctx ends and ErrDeliveriesClosed when the channel closes first.
func (w *RabbitMQWorker) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		batch, open := collectBatch(ctx, deliveries, w.batchSize, w.batchWait)
		if len(batch) > 0 {
			w.handle(ctx, batch)
		}
		if ctx.Err() != nil {
			return nil
		}
		if !open {
			return ErrDeliveriesClosed
		}
	}
}

func (w *RabbitMQWorker) handle(ctx context.Context, batch []amqp.Delivery) {
	msgs := make([]Message, len(batch))
	for i, d := range batch {
		msgs[i] = Message{ID: deliveryID(d), Body: d.Body}
	}

	res := w.consumer.ProcessBatch(ctx, msgs)
	failed := make(map[string]bool, len(res.Failed))
	for _, id := range res.Failed {
		failed[id] = true
	}

	for i, d := range batch {
		var err error
		if failed[msgs[i].ID] {
			err = d.Nack(false, true)
		} else {
			err = d.Ack(false)
		}
		if err != nil {
			w.log.Warn("rabbitmq ack failed", zap.String("message_id", msgs[i].ID), zap.Error(err))
		}
	}
}

func deliveryID(d amqp.Delivery) string {
	if d.MessageId != "" {
		return d.MessageId
	}
	return "tag-" + strconv.FormatUint(d.DeliveryTag, 10)
}

// collectBatch reads up to size items, returning early once wait has
// passed since the first item arrived. open is false once the source
// channel is closed.
func collectBatch[T any](ctx context.Context, src <-chan T, size int, wait time.Duration) (batch []T, open bool) {
	select {
	case <-ctx.Done():
		return nil, true
	case item, ok := <-src:
		if !ok {
			return nil, false
		}
		batch = append(batch, item)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for len(batch) < size {
		select {
		case <-ctx.Done():
			return batch, true
		case <-timer.C:
			return batch, true
		case item, ok := <-src:
			if !ok {
				return batch, false
			}
			batch = append(batch, item)
		}
	}
	return batch, true
}

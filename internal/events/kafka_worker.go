package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokers, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(brokers),
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

// KafkaWorker reads one message at a time from a consumer group. Kafka
// has no per-message redelivery, so a failed message is retried here a
// few times before its offset is committed anyway.
type KafkaWorker struct {
	r        KafkaReader
	consumer *Consumer
	log      *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewKafkaWorker(r KafkaReader, c *Consumer, log *zap.Logger) *KafkaWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaWorker{r: r, consumer: c, log: log, attempts: 3, backoff: 500 * time.Millisecond}
}

func (w *KafkaWorker) Run(ctx context.Context) error {
	defer w.r.Close()
	w.log.Info("kafka worker started", zap.Strings("types", w.consumer.Types()))
	for {
		m, err := w.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		w.process(ctx, m)

		if err := w.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: commit: %w", err)
		}
	}
}

func (w *KafkaWorker) process(ctx context.Context, m kafka.Message) {
	msg := Message{ID: kafkaMessageID(m), Body: m.Value}
	for attempt := 1; attempt <= w.attempts; attempt++ {
		res := w.consumer.ProcessBatch(ctx, []Message{msg})
		if len(res.Failed) == 0 {
			return
		}
		if attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	w.log.Error("kafka message dropped after retries",
		zap.String("message_id", msg.ID),
		zap.Int("attempts", w.attempts))
}

func kafkaMessageID(m kafka.Message) string {
	return m.Topic + "/" + strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10)
}

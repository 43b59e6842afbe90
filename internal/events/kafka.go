package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to one topic keyed by event type.
type KafkaPublisher struct {
	w KafkaWriter
}

func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaPublisher(w KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(eventType),
		Value:   body,
		Headers: []kafka.Header{{Key: "type", Value: []byte(eventType)}},
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: write %s: %w", eventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

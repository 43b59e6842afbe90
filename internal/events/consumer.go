package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrBadEnvelope      = errors.New("bad envelope")
)

// Message is one delivered event as seen by the consumer. ID is the
// broker's identifier and is what gets reported back on failure.
type Message struct {
	ID   string
	Body []byte
}

type Handler func(ctx context.Context, payload json.RawMessage) error

// BatchResult lists the ids that must be redelivered. Successfully
// handled and ignored messages never appear in Failed.
type BatchResult struct {
	Failed     []string
	Processed  int
	Ignored    int
	Duplicates int
}

type Consumer struct {
	name     string
	handlers map[string]Handler
	dedupe   DedupeStore
	log      *zap.Logger
}

type Option func(*Consumer)

// WithDedupe skips messages this consumer already handled successfully.
func WithDedupe(s DedupeStore) Option {
	return func(c *Consumer) { c.dedupe = s }
}

func NewConsumer(name string, log *zap.Logger, opts ...Option) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Consumer{
		name:     name,
		handlers: map[string]Handler{},
		log:      log.With(zap.String("consumer", name)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Consumer) Name() string { return c.name }

func (c *Consumer) Handle(eventType string, h Handler) {
	c.handlers[eventType] = h
}

// Types returns the registered event types in a stable order; brokers
// use it for queue bindings.
func (c *Consumer) Types() []string {
	out := make([]string, 0, len(c.handlers))
	for t := range c.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeIgnored
	outcomeDuplicate
)

// ProcessBatch handles every message independently. One bad message
// never affects the others.
func (c *Consumer) ProcessBatch(ctx context.Context, msgs []Message) BatchResult {
	res := BatchResult{Failed: []string{}}
	for _, m := range msgs {
		out, err := c.processOne(ctx, m)
		if err != nil {
			c.log.Warn("event processing failed",
				zap.String("message_id", m.ID),
				zap.Error(err))
			if m.ID != "" {
				res.Failed = append(res.Failed, m.ID)
			}
			continue
		}
		switch out {
		case outcomeProcessed:
			res.Processed++
		case outcomeIgnored:
			res.Ignored++
		case outcomeDuplicate:
			res.Duplicates++
		}
	}
	c.log.Info("event batch processed",
		zap.Int("received", len(msgs)),
		zap.Int("processed", res.Processed),
		zap.Int("ignored", res.Ignored),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("failures", len(res.Failed)))
	return res
}

func (c *Consumer) processOne(ctx context.Context, m Message) (out outcome, err error) {
	eventType, payload, err := ParseEnvelope(m.Body)
	if err != nil {
		return 0, err
	}

	h, ok := c.handlers[eventType]
	if !ok {
		c.log.Info("ignoring event", zap.String("event_type", eventType), zap.String("message_id", m.ID))
		return outcomeIgnored, nil
	}

	if c.dedupe != nil && m.ID != "" {
		seen, derr := c.dedupe.Seen(ctx, c.name, m.ID)
		if derr != nil {
			c.log.Warn("dedupe lookup failed; processing anyway", zap.String("message_id", m.ID), zap.Error(derr))
		} else if seen {
			return outcomeDuplicate, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", eventType, r)
		}
	}()
	if err := h(ctx, payload); err != nil {
		return 0, fmt.Errorf("handler %s: %w", eventType, err)
	}

	if c.dedupe != nil && m.ID != "" {
		// the side effect already happened; a failed mark only risks a
		// duplicate on redelivery, so it is not reported as a failure
		if merr := c.dedupe.MarkProcessed(ctx, c.name, m.ID, eventType, m.Body); merr != nil {
			c.log.Warn("dedupe mark failed", zap.String("message_id", m.ID), zap.Error(merr))
		}
	}
	return outcomeProcessed, nil
}

// ParseEnvelope validates the {type, payload} shape. A missing or null
// payload is treated as an empty object; a payload that is present but
// not an object is rejected. The legacy "event_type" key is accepted.
func ParseEnvelope(body []byte) (string, json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", nil, fmt.Errorf("%w: empty body", ErrMalformedMessage)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if obj == nil {
		return "", nil, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	rawType, ok := obj["type"]
	if !ok || isNull(rawType) {
		rawType, ok = obj["event_type"]
	}
	var eventType string
	if !ok || json.Unmarshal(rawType, &eventType) != nil || eventType == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrBadEnvelope)
	}

	payload, ok := obj["payload"]
	if !ok || isNull(payload) {
		return eventType, json.RawMessage(`{}`), nil
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return "", nil, fmt.Errorf("%w: payload is not an object", ErrBadEnvelope)
	}
	return eventType, payload, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

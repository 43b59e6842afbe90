package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Publisher hands an event to the configured backend. Which backend is
// decided once at startup (see FromConfig); callers never branch on it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// Safe wraps p so Publish never fails. Used after a local commit, where
// the caller-visible outcome is already fixed. Errors and panics from
// the backend are logged and dropped.
func Safe(p Publisher, log *zap.Logger, timeout time.Duration) Publisher {
	if sp, ok := p.(*safePublisher); ok {
		return sp
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &safePublisher{inner: p, log: log, timeout: timeout}
}

type safePublisher struct {
	inner   Publisher
	log     *zap.Logger
	timeout time.Duration
}

func (s *safePublisher) Publish(ctx context.Context, eventType string, payload any) (err error) {
	if s.inner == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("event publish panicked",
				zap.String("event_type", eventType),
				zap.Any("panic", r))
		}
		err = nil
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if perr := s.inner.Publish(ctx, eventType, payload); perr != nil {
		s.log.Error("event publish failed",
			zap.String("event_type", eventType),
			zap.Error(perr))
		return nil
	}
	s.log.Debug("event published", zap.String("event_type", eventType))
	return nil
}

func (s *safePublisher) Close() error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

// Noop drops events; EVENT_BACKEND=noop for local runs without a broker.
type Noop struct{ Log *zap.Logger }

func (n Noop) Publish(_ context.Context, eventType string, _ any) error {
	if n.Log != nil {
		n.Log.Info("event dropped (noop backend)", zap.String("event_type", eventType))
	}
	return nil
}

func (Noop) Close() error { return nil }

// Recorder keeps published envelopes in memory. Tests use it in place
// of a broker; set Err to simulate an outage.
type Recorder struct {
	mu   sync.Mutex
	Sent []Envelope
	Err  error
}

func (r *Recorder) Publish(_ context.Context, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	body, err := Encode(eventType, payload)
	if err != nil {
		return err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("events: recorder: %w", err)
	}
	r.Sent = append(r.Sent, env)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.Sent))
	copy(out, r.Sent)
	return out
}

// OfType returns recorded envelopes with the given type.
func (r *Recorder) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

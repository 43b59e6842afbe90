// Package notifications turns domain events into customer emails.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/email"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

var ErrMissingField = errors.New("notifications: missing required field")

type Handlers struct {
	sender email.Sender
	log    *zap.Logger
}

func NewHandlers(sender email.Sender, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{sender: sender, log: log}
}

func (h *Handlers) Register(c *events.Consumer) {
	c.Handle(events.TypeUserRegistered, h.UserRegistered)
	c.Handle(events.TypePaymentSucceeded, h.PaymentSucceeded)
}

func (h *Handlers) UserRegistered(ctx context.Context, payload json.RawMessage) error {
	var ev events.UserRegistered
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode user.registered: %w", err)
	}
	if strings.TrimSpace(ev.Email) == "" {
		return fmt.Errorf("%w: email", ErrMissingField)
	}
	if strings.TrimSpace(ev.VerifyURL) == "" {
		return fmt.Errorf("%w: verify_url", ErrMissingField)
	}

	html, err := email.VerificationHTML(ev.VerifyURL)
	if err != nil {
		return err
	}
	if err := h.sender.Send(ctx, ev.Email, email.SubjectVerify, html); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	h.log.Info("sent verification email", zap.String("to", ev.Email))
	return nil
}

// paymentNotice accepts order_id as a number or a string, and amount
// when total is absent.
type paymentNotice struct {
	Email   string        `json:"email"`
	OrderID flexID        `json:"order_id"`
	Total   *money.Amount `json:"total"`
	Amount  *money.Amount `json:"amount"`
}

type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order_id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func (h *Handlers) PaymentSucceeded(ctx context.Context, payload json.RawMessage) error {
	var ev paymentNotice
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode payment.succeeded: %w", err)
	}
	if strings.TrimSpace(ev.Email) == "" {
		return fmt.Errorf("%w: email", ErrMissingField)
	}
	if ev.OrderID == "" {
		return fmt.Errorf("%w: order_id", ErrMissingField)
	}
	total := ev.Total
	if total == nil {
		total = ev.Amount
	}
	if total == nil {
		return fmt.Errorf("%w: total", ErrMissingField)
	}

	html, err := email.PaymentConfirmedHTML(string(ev.OrderID), *total)
	if err != nil {
		return err
	}
	if err := h.sender.Send(ctx, ev.Email, email.SubjectPaymentConfirmed, html); err != nil {
		return fmt.Errorf("send payment email: %w", err)
	}
	h.log.Info("sent payment email", zap.String("to", ev.Email), zap.String("order_id", string(ev.OrderID)))
	return nil
}

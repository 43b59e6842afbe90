package events

import (
	"encoding/json"
	"fmt"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

const (
	TypeUserRegistered   = "user.registered"
	TypePaymentSucceeded = "payment.succeeded"
)

// Envelope is the wire format shared by every backend:
//
//	{"type": "payment.succeeded", "payload": {...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(eventType string, payload any) ([]byte, error) {
	if eventType == "" {
		return nil, fmt.Errorf("events: empty event type")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// PaymentSucceeded is published once a payment row is committed, and by
// the order service when its own pay endpoint transitions an order.
type PaymentSucceeded struct {
	OrderID         uint64        `json:"order_id"`
	UserID          uint64        `json:"user_id"`
	PaymentID       uint64        `json:"payment_id,omitempty"`
	Email           string        `json:"email,omitempty"`
	Amount          *money.Amount `json:"amount,omitempty"`
	Total           money.Amount  `json:"total"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	PhoneNumber     string        `json:"phone_number,omitempty"`
}

// UserRegistered is published by the auth service.
type UserRegistered struct {
	Email     string `json:"email"`
	VerifyURL string `json:"verify_url"`
}

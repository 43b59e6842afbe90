package payments

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

const statusCreated = "CREATED"

type Service struct {
	ledger *Ledger
	orders OrderClient
	pub    events.Publisher
	log    *zap.Logger
}

// NewService wires the payment saga. pub is wrapped with events.Safe if
// the caller has not done so.
func NewService(ledger *Ledger, orders OrderClient, pub events.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		ledger: ledger,
		orders: orders,
		pub:    events.Safe(pub, log, 0),
		log:    log,
	}
}

type PayInput struct {
	OrderID         uint64
	Claims          auth.Claims
	ShippingAddress string
	PhoneNumber     string
}

type PayResult struct {
	PaymentID  uint64
	Idempotent bool
}

// Pay records a successful payment for the caller's order.
//
// The ledger insert is the only step whose failure reaches the caller.
// Once it commits, publishing payment.succeeded and asking the order
// service to mark the order PAID are attempted once each and their
// errors are only logged. Concurrent attempts are arbitrated by the
// unique (order_id, user_id) index, not by a lock here.
func (s *Service) Pay(ctx context.Context, in PayInput) (PayResult, error) {
	if fields := validatePayInput(in); fields != nil {
		return PayResult{}, apperr.InvalidErr("Invalid payment details", fields)
	}
	userID := in.Claims.UserID
	log := s.log.With(zap.Uint64("order_id", in.OrderID), zap.Uint64("user_id", userID))

	existing, err := s.ledger.FindByOrderUser(ctx, in.OrderID, userID)
	if err != nil {
		log.Error("payment lookup failed", zap.Error(err))
		return PayResult{}, apperr.Wrap(err)
	}
	if existing != nil {
		if existing.Status == StatusSuccess {
			log.Info("payment replayed", zap.Uint64("payment_id", existing.ID))
			return PayResult{PaymentID: existing.ID, Idempotent: true}, nil
		}
		return PayResult{}, apperr.ConflictErr("Payment already attempted").WithCause(ErrDuplicatePayment)
	}

	order, err := s.orders.FetchOrder(ctx, in.OrderID, in.Claims.RawToken)
	if err != nil {
		log.Warn("fetch order failed", zap.Error(err))
		return PayResult{}, apperr.Wrap(err)
	}
	if order.Status != statusCreated {
		return PayResult{}, apperr.ConflictErr("Cannot pay order in status " + order.Status).
			WithCause(ErrOrderNotPayable)
	}

	p, err := s.ledger.CreateSucceeded(ctx, in.OrderID, userID, order.Total)
	if errors.Is(err, ErrDuplicatePayment) {
		log.Info("concurrent payment lost the race")
		return PayResult{}, apperr.ConflictErr("Payment already attempted").WithCause(err)
	}
	if err != nil {
		log.Error("payment insert failed", zap.Error(err))
		return PayResult{}, apperr.Wrap(err)
	}
	log.Info("payment recorded", zap.Uint64("payment_id", p.ID), zap.Stringer("amount", p.Amount))

	email := in.Claims.Email
	if email == "" {
		email = order.UserEmail
	}
	amount := p.Amount
	_ = s.pub.Publish(ctx, events.TypePaymentSucceeded, events.PaymentSucceeded{
		OrderID:         in.OrderID,
		UserID:          userID,
		PaymentID:       p.ID,
		Email:           email,
		Amount:          &amount,
		Total:           order.Total,
		ShippingAddress: in.ShippingAddress,
		PhoneNumber:     in.PhoneNumber,
	})

	if err := s.orders.MarkPaid(ctx, in.OrderID, in.Claims.RawToken); err != nil {
		if errors.Is(err, ErrMarkPaidDisabled) {
			log.Debug("mark paid callback disabled")
		} else {
			log.Warn("mark order paid failed; reconciler will catch up", zap.Error(err))
		}
	}

	return PayResult{PaymentID: p.ID}, nil
}

func validatePayInput(in PayInput) map[string]string {
	fields := map[string]string{}
	if in.OrderID == 0 {
		fields["order_id"] = "must be a positive id"
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		fields["shipping_address"] = "is required"
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		fields["phone_number"] = "is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (s *Service) GetPayment(ctx context.Context, c auth.Claims, id uint64) (Payment, error) {
	p, err := s.ledger.GetForUser(ctx, id, c.UserID)
	if errors.Is(err, ErrPaymentNotFound) {
		return Payment{}, apperr.NotFoundErr("Payment not found").WithCause(err)
	}
	if err != nil {
		s.log.Error("get payment failed", zap.Error(err))
		return Payment{}, apperr.Wrap(err)
	}
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, c auth.Claims) ([]Payment, error) {
	out, err := s.ledger.ListForUser(ctx, c.UserID)
	if err != nil {
		s.log.Error("list payments failed", zap.Error(err))
		return nil, apperr.Wrap(err)
	}
	return out, nil
}

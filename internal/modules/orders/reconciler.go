package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
)

// Reconciler closes the window where a payment committed but the
// payment service's mark-paid callback to this service failed. It
// consumes payment.succeeded and applies the same idempotent transition.
type Reconciler struct {
	repo *Repo
	log  *zap.Logger
}

func NewReconciler(repo *Repo, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{repo: repo, log: log}
}

// Register adds the reconciler's handlers to c.
func (r *Reconciler) Register(c *events.Consumer) {
	c.Handle(events.TypePaymentSucceeded, r.HandlePaymentSucceeded)
}

func (r *Reconciler) HandlePaymentSucceeded(ctx context.Context, payload json.RawMessage) error {
	var ev events.PaymentSucceeded
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode payment.succeeded: %w", err)
	}
	if ev.OrderID == 0 {
		return fmt.Errorf("payment.succeeded without order_id")
	}

	var (
		o            Order
		transitioned bool
		err          error
	)
	if ev.UserID != 0 {
		o, transitioned, err = r.repo.MarkPaid(ctx, ev.OrderID, ev.UserID)
	} else {
		o, transitioned, err = r.repo.MarkPaidByID(ctx, ev.OrderID)
	}

	switch {
	case errors.Is(err, ErrOrderNotFound):
		// retrying cannot make it appear
		r.log.Warn("reconcile: order not found",
			zap.Uint64("order_id", ev.OrderID),
			zap.Uint64("user_id", ev.UserID))
		return nil
	case err != nil:
		return err
	case transitioned:
		r.log.Info("reconcile: order marked PAID", zap.Uint64("order_id", o.ID))
	default:
		r.log.Debug("reconcile: order already PAID", zap.Uint64("order_id", o.ID))
	}
	return nil
}

package orders

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/auth"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/events"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/modules/catalog"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

type Service struct {
	repo         *Repo
	prices       catalog.PriceResolver
	pub          events.Publisher
	publishOnPay bool
	log          *zap.Logger
}

// NewService wires the order service. pub is wrapped with events.Safe;
// publishOnPay enables payment.succeeded from PayOrder.
func NewService(repo *Repo, prices catalog.PriceResolver, pub events.Publisher, publishOnPay bool, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, prices: prices, pub: events.Safe(pub, log, 0), publishOnPay: publishOnPay, log: log}
}

// CreateOrder merges duplicate lines, resolves prices and writes the
// order. Nothing is stored when any price cannot be resolved.
func (s *Service) CreateOrder(ctx context.Context, c auth.Claims, lines []Line) (Order, error) {
	if fields, err := ValidateLines(lines); err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			return Order{}, apperr.InvalidErr("Empty cart", nil).WithCause(err)
		case errors.Is(err, ErrInvalidQty):
			return Order{}, apperr.InvalidErr("Invalid qty", fields).WithCause(err)
		default:
			return Order{}, apperr.InvalidErr("Invalid product id", fields).WithCause(err)
		}
	}

	merged := MergeLines(lines)
	if fields := CheckMerged(merged); fields != nil {
		return Order{}, apperr.InvalidErr("Invalid qty", fields).WithCause(ErrInvalidQty)
	}
	prices, err := s.prices.Resolve(ctx, productIDs(merged))
	if err != nil {
		s.log.Warn("price resolution failed", zap.Uint64("user_id", c.UserID), zap.Error(err))
		return Order{}, apperr.Wrap(err)
	}

	o, err := s.repo.Create(ctx, c.UserID, c.Email, merged, prices)
	if err != nil {
		s.log.Error("create order failed", zap.Uint64("user_id", c.UserID), zap.Error(err))
		return Order{}, apperr.Wrap(err)
	}
	s.log.Info("order created",
		zap.Uint64("order_id", o.ID),
		zap.Uint64("user_id", o.UserID),
		zap.Stringer("total", o.Total))
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, c auth.Claims, id uint64) (Order, error) {
	o, err := s.repo.GetForUser(ctx, id, c.UserID)
	if err != nil {
		return Order{}, s.mapErr(err)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, c auth.Claims) ([]Order, error) {
	out, err := s.repo.ListForUser(ctx, c.UserID)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return out, nil
}

// PayOrder is the order service's direct CREATED -> PAID transition.
// Paying an already PAID order succeeds without side effects. The
// payment.succeeded publish only happens when the service was built with
// publishOnPay (ORDER_PUBLISH_ON_PAY, off by default).
func (s *Service) PayOrder(ctx context.Context, c auth.Claims, id uint64) (Order, error) {
	o, transitioned, err := s.repo.MarkPaid(ctx, id, c.UserID)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return Order{}, apperr.ConflictErr("Cannot pay in status " + o.Status).WithCause(err)
		}
		return Order{}, s.mapErr(err)
	}
	if !transitioned {
		return o, nil
	}

	s.log.Info("order paid", zap.Uint64("order_id", o.ID), zap.Uint64("user_id", o.UserID))
	if s.publishOnPay {
		_ = s.pub.Publish(ctx, events.TypePaymentSucceeded, events.PaymentSucceeded{
			OrderID: o.ID,
			UserID:  o.UserID,
			Email:   o.UserEmail,
			Total:   o.Total,
		})
	}
	return o, nil
}

// PatchStatus backs PATCH /orders/:id. PAID is the only status a client
// may ask for.
func (s *Service) PatchStatus(ctx context.Context, c auth.Claims, id uint64, status string) (Order, error) {
	if strings.ToUpper(strings.TrimSpace(status)) != StatusPaid {
		return Order{}, apperr.InvalidErr("Unsupported status", map[string]string{
			"status": "only PAID is accepted",
		}).WithCause(ErrUnsupportedStatus)
	}
	return s.PayOrder(ctx, c, id)
}

func (s *Service) AdminList(ctx context.Context, in AdminListParams) (AdminListResult, error) {
	res, err := s.repo.AdminList(ctx, in)
	if err != nil {
		return AdminListResult{}, s.mapErr(err)
	}
	return res, nil
}

func (s *Service) AdminGet(ctx context.Context, id uint64) (Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, s.mapErr(err)
	}
	return o, nil
}

func (s *Service) mapErr(err error) error {
	if errors.Is(err, ErrOrderNotFound) {
		return apperr.NotFoundErr("Not found").WithCause(err)
	}
	s.log.Error("order storage error", zap.Error(err))
	return apperr.Wrap(err)
}

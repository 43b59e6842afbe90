package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/database"
	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

type Ledger struct{ db *gorm.DB }

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) DB() *gorm.DB { return l.db }

// FindByOrderUser returns nil, nil when no attempt exists yet.
func (l *Ledger) FindByOrderUser(ctx context.Context, orderID, userID uint64) (*Payment, error) {
	var p Payment
	err := l.db.WithContext(ctx).
		First(&p, "order_id = ? AND user_id = ?", orderID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payments: find: %w", err)
	}
	return &p, nil
}

// CreateSucceeded inserts the SUCCESS row in a single statement. Losing
// the race on ux_payments_order_user returns ErrDuplicatePayment.
func (l *Ledger) CreateSucceeded(ctx context.Context, orderID, userID uint64, amount money.Amount) (Payment, error) {
	p := Payment{
		OrderID: orderID,
		UserID:  userID,
		Amount:  amount,
		Status:  StatusSuccess,
	}
	if err := l.db.WithContext(ctx).Create(&p).Error; err != nil {
		if database.IsDuplicate(err) {
			return Payment{}, ErrDuplicatePayment
		}
		return Payment{}, fmt.Errorf("payments: insert: %w", err)
	}
	return p, nil
}

func (l *Ledger) GetForUser(ctx context.Context, paymentID, userID uint64) (Payment, error) {
	var p Payment
	err := l.db.WithContext(ctx).First(&p, "id = ? AND user_id = ?", paymentID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, ErrPaymentNotFound
	}
	if err != nil {
		return Payment{}, fmt.Errorf("payments: get: %w", err)
	}
	return p, nil
}

// ListForUser returns the caller's payments, newest first.
func (l *Ledger) ListForUser(ctx context.Context, userID uint64) ([]Payment, error) {
	var out []Payment
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("payments: list: %w", err)
	}
	return out, nil
}

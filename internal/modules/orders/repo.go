package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

// Repo is the order ledger. Reads are always scoped by owner in the
// query itself so foreign orders look exactly like missing ones.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// DB returns the underlying database connection for direct queries.
func (r *Repo) DB() *gorm.DB { return r.db }

// Create writes the order and its items in one transaction. lines must
// already be merged; every product needs an entry in prices.
func (r *Repo) Create(ctx context.Context, userID uint64, email string, lines []Line, prices map[uint64]money.Amount) (Order, error) {
	total := money.Zero
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := prices[l.ProductID]
		if !ok {
			return Order{}, fmt.Errorf("%w: %d", ErrMissingPrice, l.ProductID)
		}
		total = total.Add(p.Times(l.Qty))
		items = append(items, OrderItem{ProductID: l.ProductID, Qty: l.Qty, UnitPrice: p})
	}

	o := Order{
		UserID:    userID,
		UserEmail: email,
		Status:    StatusCreated,
		Total:     total,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&o).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("orders: create: %w", err)
	}
	o.Items = items
	return o, nil
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *Repo) GetForUser(ctx context.Context, orderID, userID uint64) (Order, error) {
	var o Order
	err := withItems(r.db.WithContext(ctx)).
		First(&o, "id = ? AND user_id = ?", orderID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: get: %w", err)
	}
	return o, nil
}

// GetByID ignores ownership; admin views only.
func (r *Repo) GetByID(ctx context.Context, orderID uint64) (Order, error) {
	var o Order
	err := withItems(r.db.WithContext(ctx)).First(&o, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: get: %w", err)
	}
	return o, nil
}

// ListForUser returns the caller's orders, newest first.
func (r *Repo) ListForUser(ctx context.Context, userID uint64) ([]Order, error) {
	var out []Order
	err := withItems(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	return out, nil
}

// MarkPaid moves the caller's order from CREATED to PAID. transitioned
// is false when the order was already PAID; that is not an error.
func (r *Repo) MarkPaid(ctx context.Context, orderID, userID uint64) (Order, bool, error) {
	return r.markPaid(ctx, "id = ? AND user_id = ?", orderID, userID)
}

// MarkPaidByID is MarkPaid without the owner scope, for events that do
// not carry a user id.
func (r *Repo) MarkPaidByID(ctx context.Context, orderID uint64) (Order, bool, error) {
	return r.markPaid(ctx, "id = ?", orderID)
}

func (r *Repo) markPaid(ctx context.Context, cond string, args ...any) (Order, bool, error) {
	var (
		o            Order
		transitioned bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&Order{}).
			Where(cond, args...).
			Where("status = ?", StatusCreated). // guard
			Updates(map[string]any{
				"status":     StatusPaid,
				"paid_at":    now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected > 0

		if err := withItems(tx).Where(cond, args...).First(&o).Error; err != nil {
			return err
		}
		if o.Status != StatusPaid {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusPaid)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, false, ErrOrderNotFound
	}
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return o, false, err
		}
		return Order{}, false, fmt.Errorf("orders: mark paid: %w", err)
	}
	return o, transitioned, nil
}

package payments

import (
	"time"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

// Rows are only ever written as SUCCESS; the other statuses exist so
// rows written by other tooling are still readable.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Payment references an order by id only; orders live in another
// service's storage. ux_payments_order_user decides which concurrent
// attempt wins.
type Payment struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"`
	OrderID   uint64       `gorm:"not null;uniqueIndex:ux_payments_order_user,priority:1"`
	UserID    uint64       `gorm:"not null;uniqueIndex:ux_payments_order_user,priority:2;index:ix_payments_user_id"`
	Amount    money.Amount `gorm:"not null"`
	Status    string       `gorm:"type:varchar(50);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Payment) TableName() string { return "payments" }

func Models() []any { return []any{&Payment{}} }

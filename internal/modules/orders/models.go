package orders

import (
	"time"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/money"
)

// Order statuses only move forward: CREATED -> PAID.
const (
	StatusCreated = "CREATED"
	StatusPaid    = "PAID"
)

type Order struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"`
	UserID    uint64       `gorm:"not null;index:ix_orders_user_id"`
	UserEmail string       `gorm:"type:varchar(255);not null"`
	Status    string       `gorm:"type:varchar(50);not null"`
	Total     money.Amount `gorm:"not null"`
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

// OrderItem freezes the unit price seen at order time.
type OrderItem struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement"`
	OrderID   uint64       `gorm:"not null;index:ix_order_items_order_id"`
	ProductID uint64       `gorm:"not null"`
	Qty       int          `gorm:"not null"`
	UnitPrice money.Amount `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// Models lists what the order service migrates.
func Models() []any { return []any{&Order{}, &OrderItem{}} }

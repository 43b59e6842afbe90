package orders

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type AdminListParams struct {
	Status   string
	UserID   uint64
	Page     int
	PageSize int
}

type AdminListResult struct {
	Items []Order
	Total int64
}

func (r *Repo) AdminList(ctx context.Context, in AdminListParams) (AdminListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 30
	}

	status := strings.ToUpper(strings.TrimSpace(in.Status))

	base := r.db.WithContext(ctx).Model(&Order{})
	if status != "" {
		base = base.Where("status = ?", status)
	}
	if in.UserID != 0 {
		base = base.Where("user_id = ?", in.UserID)
	}

	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return AdminListResult{}, fmt.Errorf("orders: admin count: %w", err)
	}

	var items []Order
	if err := withItems(base).
		Order("id DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return AdminListResult{}, fmt.Errorf("orders: admin list: %w", err)
	}

	return AdminListResult{Items: items, Total: total}, nil
}

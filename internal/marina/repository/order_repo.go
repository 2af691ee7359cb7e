package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

// OrderRepository persists legacy single-rate orders.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if storeID := filters["store_id"]; storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	if purchaserID := filters["purchaser_id"]; purchaserID != "" {
		query = query.Where("purchaser_id = ?", purchaserID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

// FindOpenForPurchaser lists orders a purchaser can act on: everything still
// waiting for a purchase plus the orders already claimed by them.
func (r *OrderRepository) FindOpenForPurchaser(ctx context.Context, purchaserID string) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Where("status = ? OR purchaser_id = ?", entity.OrderStatusPendingPurchase, purchaserID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// GenerateOrderID produces a short human-facing order id, BM-{6 hex}.
func (r *OrderRepository) GenerateOrderID() string {
	id := uuid.New()
	return fmt.Sprintf("BM-%X", id[:3])
}

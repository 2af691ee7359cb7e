package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

// PORepository persists bid-based purchase orders with their line items and
// bids. Bids are always loaded in insertion order so recommendation
// tie-breaks stay deterministic.
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// preloadBids orders bids by submission time so the recommendation
// tie-break (first submitted wins) is stable across reads.
func preloadBids(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var orders []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if storeID := filters["store_id"]; storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("LineItems").
		Preload("LineItems.Article").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Preload("LineItems.Article").
		Preload("LineItems.Bids", preloadBids).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// Create persists the order and its line items atomically.
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *PORepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(po).Error
}

func (r *PORepository) FindLineItemByID(ctx context.Context, itemID string) (*entity.OrderLineItem, error) {
	var item entity.OrderLineItem
	err := r.db.WithContext(ctx).
		Preload("Article").
		Preload("Bids", preloadBids).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PORepository) CreateBid(ctx context.Context, bid *entity.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// UpdateBidStatuses persists recommendation recomputes: one UPDATE per bid
// whose status changed, in a single transaction.
func (r *PORepository) UpdateBidStatuses(ctx context.Context, bids []*entity.Bid) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range bids {
			if err := tx.Model(&entity.Bid{}).Where("id = ?", b.ID).
				Update("status", b.Status).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// HasApprovedBid reports whether any bid on any line item of the order has
// been approved. Approval freezes recommendations for the whole order.
func (r *PORepository) HasApprovedBid(ctx context.Context, poID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Bid{}).
		Joins("JOIN order_line_items ON order_line_items.id = bids.line_item_id").
		Where("order_line_items.po_id = ? AND bids.status = ?", poID, entity.BidStatusApproved).
		Count(&count).Error
	return count > 0, err
}

// GenerateNumber produces the next sequential PO number, PO-{year}-{seq}.
func (r *PORepository) GenerateNumber(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PO-%s-", year)

	var maxNumber string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Select("COALESCE(MAX(po_number), '')").
		Where("po_number LIKE ?", prefix+"%").
		Scan(&maxNumber).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNumber != "" {
		fmt.Sscanf(maxNumber, "PO-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PO-%s-%04d", year, seq), nil
}

// Transaction runs fn inside one database transaction; used by the service
// layer for approve-bid (approve one, reject siblings, allocate, maybe
// advance the order) and other multi-row commits.
func (r *PORepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

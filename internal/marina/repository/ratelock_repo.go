package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

// RateLockRepository persists weekly rate locks. Locks are append-only: they
// are created by admins and never updated or deleted.
type RateLockRepository struct {
	db *gorm.DB
}

func NewRateLockRepository(db *gorm.DB) *RateLockRepository {
	return &RateLockRepository{db: db}
}

// FindRate resolves the locked selling rate for (article, week, year).
func (r *RateLockRepository) FindRate(ctx context.Context, articleID string, week, year int) (*entity.WeeklyRateLock, error) {
	var lock entity.WeeklyRateLock
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND week_number = ? AND year = ?", articleID, week, year).
		First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lock, nil
}

func (r *RateLockRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WeeklyRateLock, int64, error) {
	var locks []entity.WeeklyRateLock
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WeeklyRateLock{})
	if articleID := filters["article_id"]; articleID != "" {
		query = query.Where("article_id = ?", articleID)
	}
	if year := filters["year"]; year != "" {
		query = query.Where("year = ?", year)
	}
	if week := filters["week_number"]; week != "" {
		query = query.Where("week_number = ?", week)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Article").
		Order("year DESC, week_number DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&locks).Error

	return locks, total, err
}

func (r *RateLockRepository) Create(ctx context.Context, lock *entity.WeeklyRateLock) error {
	return r.db.WithContext(ctx).Create(lock).Error
}

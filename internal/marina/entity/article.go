package entity

import "time"

// Article is immutable reference data for a purchasable good.
type Article struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	ArticleNumber string    `json:"article_number" gorm:"size:50;uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	Unit          string    `json:"unit" gorm:"size:20;default:kg"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Article) TableName() string {
	return "articles"
}

// WeeklyRateLock fixes the guaranteed selling rate for an article in one ISO
// week. Created by admins, never mutated; line items copy the rate at order
// creation and keep it for life.
type WeeklyRateLock struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	ArticleID   string    `json:"article_id" gorm:"size:32;not null;uniqueIndex:idx_rate_lock_key"`
	WeekNumber  int       `json:"week_number" gorm:"not null;uniqueIndex:idx_rate_lock_key"`
	Year        int       `json:"year" gorm:"not null;uniqueIndex:idx_rate_lock_key"`
	SellingRate float64   `json:"selling_rate" gorm:"type:decimal(12,4);not null"`
	CreatedBy   string    `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time `json:"created_at"`

	Article *Article `json:"article,omitempty" gorm:"foreignKey:ArticleID"`
}

func (WeeklyRateLock) TableName() string {
	return "weekly_rate_locks"
}

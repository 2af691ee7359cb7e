package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories bundles every repository over one gorm handle.
type Repositories struct {
	User     *UserRepository
	Article  *ArticleRepository
	RateLock *RateLockRepository
	PO       *PORepository
	Order    *OrderRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Article:  NewArticleRepository(db),
		RateLock: NewRateLockRepository(db),
		PO:       NewPORepository(db),
		Order:    NewOrderRepository(db),
	}
}

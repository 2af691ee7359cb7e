package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

// ArticleRepository persists the article reference data.
type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) FindAll(ctx context.Context) ([]entity.Article, error) {
	var articles []entity.Article
	err := r.db.WithContext(ctx).Order("article_number ASC").Find(&articles).Error
	return articles, err
}

func (r *ArticleRepository) FindByNumber(ctx context.Context, articleNumber string) (*entity.Article, error) {
	var article entity.Article
	err := r.db.WithContext(ctx).Where("article_number = ?", articleNumber).First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *entity.Article) error {
	return r.db.WithContext(ctx).Create(article).Error
}

func (r *ArticleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Article{}).Count(&count).Error
	return count, err
}

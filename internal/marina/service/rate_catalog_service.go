package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
)

// ErrRateNotLocked means no admin has locked a selling rate for the
// (article, week, year) key. Line items for that article cannot be created.
var ErrRateNotLocked = errors.New("no rate locked for article in this week")

const rateCacheTTL = time.Hour

// RateCatalogService manages article reference data and weekly rate locks.
// Lookups go through Redis cache-aside; locks are immutable so a cached
// value can never go stale, only missing.
type RateCatalogService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRateCatalogService(repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *RateCatalogService {
	return &RateCatalogService{repos: repos, rdb: rdb, logger: logger}
}

func (s *RateCatalogService) ListArticles(ctx context.Context) ([]entity.Article, error) {
	return s.repos.Article.FindAll(ctx)
}

func (s *RateCatalogService) CreateArticle(ctx context.Context, articleNumber, name, unit string) (*entity.Article, error) {
	if articleNumber == "" || name == "" {
		return nil, fmt.Errorf("%w: article_number and name are required", ErrInvalidInput)
	}
	if unit == "" {
		unit = "kg"
	}

	article := &entity.Article{
		ID:            uuid.New().String()[:32],
		ArticleNumber: articleNumber,
		Name:          name,
		Unit:          unit,
	}
	if err := s.repos.Article.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return article, nil
}

// CreateLock fixes the selling rate for (article, week, year). Locks are
// append-only; attempting to re-lock an existing key fails on the unique
// index rather than overwriting.
func (s *RateCatalogService) CreateLock(ctx context.Context, adminID, articleNumber string, week, year int, rate float64) (*entity.WeeklyRateLock, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: selling rate must be positive", ErrInvalidInput)
	}
	if week < 1 || week > 53 {
		return nil, fmt.Errorf("%w: week_number must be in 1..53", ErrInvalidInput)
	}

	article, err := s.repos.Article.FindByNumber(ctx, articleNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown article %q", ErrInvalidInput, articleNumber)
		}
		return nil, err
	}

	lock := &entity.WeeklyRateLock{
		ID:          uuid.New().String()[:32],
		ArticleID:   article.ID,
		WeekNumber:  week,
		Year:        year,
		SellingRate: rate,
		CreatedBy:   adminID,
	}
	if err := s.repos.RateLock.Create(ctx, lock); err != nil {
		return nil, fmt.Errorf("create rate lock: %w", err)
	}

	s.cacheSet(ctx, article.ID, week, year, rate)
	lock.Article = article
	return lock, nil
}

func (s *RateCatalogService) ListLocks(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.WeeklyRateLock, int64, error) {
	return s.repos.RateLock.FindAll(ctx, page, pageSize, filters)
}

// Lookup resolves the locked selling rate for (article, week, year).
// Returns ErrRateNotLocked when absent: the caller must refuse to create a
// line item for that article.
func (s *RateCatalogService) Lookup(ctx context.Context, articleID string, week, year int) (float64, error) {
	if rate, ok := s.cacheGet(ctx, articleID, week, year); ok {
		return rate, nil
	}

	lock, err := s.repos.RateLock.FindRate(ctx, articleID, week, year)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrRateNotLocked
		}
		return 0, err
	}
	if lock.SellingRate <= 0 {
		return 0, ErrRateNotLocked
	}

	s.cacheSet(ctx, articleID, week, year, lock.SellingRate)
	return lock.SellingRate, nil
}

func rateCacheKey(articleID string, week, year int) string {
	return fmt.Sprintf("rate:%s:%d:%d", articleID, year, week)
}

func (s *RateCatalogService) cacheGet(ctx context.Context, articleID string, week, year int) (float64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	value, err := s.rdb.Get(ctx, rateCacheKey(articleID, week, year)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Rate cache read failed", zap.Error(err))
		}
		return 0, false
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return rate, true
}

func (s *RateCatalogService) cacheSet(ctx context.Context, articleID string, week, year int, rate float64) {
	if s.rdb == nil {
		return
	}
	value := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := s.rdb.Set(ctx, rateCacheKey(articleID, week, year), value, rateCacheTTL).Err(); err != nil {
		s.logger.Warn("Rate cache write failed", zap.Error(err))
	}
}

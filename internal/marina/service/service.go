package service

import (
	"context"
	"errors"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/config"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/notify"
)

// Sentinel errors the handler layer maps to HTTP statuses. Services wrap
// them with fmt.Errorf("%w: ...") so the reason survives to the response.
var (
	// ErrInvalidInput is a 400: the request itself is malformed or violates
	// a configuration rule (unknown category, missing rate lock).
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is a 403: the caller's role or ownership does not permit
	// the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrPrecondition is a 409: the aggregate is not in a state that allows
	// the transition. The aggregate is never mutated on this path.
	ErrPrecondition = errors.New("precondition not met")
)

// BlobStore is what the services need from photo storage. Satisfied by
// blob.Store; tests substitute an in-memory fake.
type BlobStore interface {
	Upload(ctx context.Context, reader io.Reader, size int64, fileName, contentType string) (string, error)
}

// Services bundles the business services behind the handlers.
type Services struct {
	Auth   *AuthService
	Rates  *RateCatalogService
	PO     *POService
	Legacy *LegacyOrderService
	Export *ExportService
}

func NewServices(
	cfg *config.Config,
	repos *repository.Repositories,
	rdb *redis.Client,
	blobStore BlobStore,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *Services {
	rates := NewRateCatalogService(repos, rdb, logger)
	return &Services{
		Auth:   NewAuthService(repos, rdb, cfg.JWT, logger),
		Rates:  rates,
		PO:     NewPOService(repos, rates, blobStore, notifier, logger),
		Legacy: NewLegacyOrderService(repos, cfg.SellingRates, notifier, logger),
		Export: NewExportService(repos),
	}
}

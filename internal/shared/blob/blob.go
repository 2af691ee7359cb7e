// Package blob stores proof photos in MinIO and hands back the URL the
// frontend can render.
package blob

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/config"
)

// Store wraps a MinIO bucket for photo uploads.
type Store struct {
	client *minio.Client
	bucket string
	// baseURL is the public prefix stored on orders, e.g. "http://minio:9000".
	baseURL string
}

// New connects to MinIO. The returned store fails all uploads if the
// endpoint is not configured; callers that require photo proof must treat
// that as a hard error, not a silent skip.
func New(cfg config.MinIOConfig) (*Store, error) {
	if cfg.Endpoint == "" {
		return &Store{bucket: cfg.Bucket}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s://%s", scheme, cfg.Endpoint),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// Another instance may have raced us.
		exists, existsErr := s.client.BucketExists(ctx, s.bucket)
		if existsErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload writes the photo under a date/uuid object name and returns its URL.
func (s *Store) Upload(ctx context.Context, reader io.Reader, size int64, fileName, contentType string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("storage not configured")
	}

	objectName := fmt.Sprintf("photos/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, objectName), nil
}

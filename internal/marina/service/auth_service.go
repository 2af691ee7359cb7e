package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/config"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// AuthService authenticates users and issues JWT access tokens plus opaque
// refresh tokens stored in Redis.
type AuthService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	cfg    config.JWTConfig
	logger *zap.Logger
}

func NewAuthService(repos *repository.Repositories, rdb *redis.Client, cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{repos: repos, rdb: rdb, cfg: cfg, logger: logger}
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *entity.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.repos.User.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	pair := &TokenPair{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.cfg.AccessTokenExpire.Seconds()),
		User:        user,
	}

	if s.rdb != nil {
		refreshToken := uuid.New().String()
		key := "refresh:" + refreshToken
		if err := s.rdb.Set(ctx, key, user.ID, s.cfg.RefreshTokenExpire).Err(); err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
		pair.RefreshToken = refreshToken
	}

	return pair, nil
}

// Refresh rotates the refresh token and issues a new access token. The old
// refresh token is consumed whether or not issuance succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if s.rdb == nil {
		return nil, ErrInvalidRefresh
	}

	key := "refresh:" + refreshToken
	userID, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("Delete consumed refresh token failed", zap.Error(err))
	}

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	next := uuid.New().String()
	if err := s.rdb.Set(ctx, "refresh:"+next, user.ID, s.cfg.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: next,
		ExpiresIn:    int64(s.cfg.AccessTokenExpire.Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.repos.User.FindByID(ctx, userID)
}

func (s *AuthService) issueAccessToken(user *entity.User) (string, error) {
	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpire)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// SeedUsers creates the built-in demo accounts if the users table does not
// have them yet. Passwords default to "password".
func (s *AuthService) SeedUsers(ctx context.Context) error {
	seeds := []struct {
		username string
		role     entity.Role
	}{
		{"metro", entity.RoleStore},
		{"buyer1", entity.RolePurchaser},
		{"admin", entity.RoleAdmin},
	}

	for _, seed := range seeds {
		if _, err := s.repos.User.FindByUsername(ctx, seed.username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		user := &entity.User{
			ID:             uuid.New().String()[:32],
			Username:       seed.username,
			HashedPassword: string(hash),
			Role:           seed.role,
		}
		if err := s.repos.User.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.username, err)
		}
		s.logger.Info("Seeded user", zap.String("username", seed.username), zap.String("role", string(seed.role)))
	}
	return nil
}

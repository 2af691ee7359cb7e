package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/config"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/handler"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/middleware"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/blob"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/notify"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting blue-marina service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Article{},
		&entity.WeeklyRateLock{},
		&entity.PurchaseOrder{},
		&entity.OrderLineItem{},
		&entity.Bid{},
		&entity.Order{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis, zapLogger)

	blobStore, err := blob.New(cfg.MinIO)
	if err != nil {
		zapLogger.Fatal("Failed to connect to blob storage", zap.Error(err))
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := blobStore.EnsureBucket(ctx); err != nil {
			zapLogger.Fatal("Failed to ensure photo bucket", zap.Error(err))
		}
		cancel()
	}

	repos := repository.NewRepositories(db)
	notifier := notify.New(cfg.Notify.WebhookURL, zapLogger)
	services := service.NewServices(cfg, repos, rdb, blobStore, notifier, zapLogger)

	if err := seed(services, repos, zapLogger); err != nil {
		zapLogger.Fatal("Seeding failed", zap.Error(err))
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	handler.RegisterRoutes(router, handler.NewHandlers(services), cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// initRedis connects to Redis. The service degrades without it (no rate
// cache, no refresh tokens), so a connection failure is a warning.
func initRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, rate cache and refresh tokens disabled", zap.Error(err))
		return nil
	}
	return rdb
}

// seed creates the demo accounts and the starting article catalog on an
// empty database.
func seed(services *service.Services, repos *repository.Repositories, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := services.Auth.SeedUsers(ctx); err != nil {
		return err
	}

	count, err := repos.Article.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	articles := []struct {
		number string
		name   string
		unit   string
	}{
		{"ART-SALMON", "Norwegian Salmon", "kg"},
		{"ART-SEABASS", "Sea Bass", "kg"},
		{"ART-SHRIMP", "Tiger Shrimp", "kg"},
		{"ART-TUNA", "Yellowfin Tuna", "kg"},
	}
	for _, a := range articles {
		article := &entity.Article{
			ID:            uuid.New().String()[:32],
			ArticleNumber: a.number,
			Name:          a.name,
			Unit:          a.unit,
		}
		if err := repos.Article.Create(ctx, article); err != nil {
			return fmt.Errorf("seed article %s: %w", a.number, err)
		}
	}
	logger.Info("Seeded article catalog", zap.Int("count", len(articles)))
	return nil
}

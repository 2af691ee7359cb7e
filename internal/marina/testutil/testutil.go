package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/config"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/handler"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/shared/notify"
)

const (
	TestSchema = "test_marina"
	JWTSecret  = "blue-marina-test-jwt-secret"
)

// TestEnv holds test environment resources.
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	Repos  *repository.Repositories
	Blob   *FakeBlobStore
	T      *testing.T
}

// FakeBlobStore records uploads in memory. Set Fail to simulate an
// unreachable blob store.
type FakeBlobStore struct {
	Uploads []string
	Fail    bool
}

func (f *FakeBlobStore) Upload(ctx context.Context, reader io.Reader, size int64, fileName, contentType string) (string, error) {
	if f.Fail {
		return "", fmt.Errorf("blob store unreachable")
	}
	url := fmt.Sprintf("http://blob.test/photos/%d-%s", len(f.Uploads), fileName)
	f.Uploads = append(f.Uploads, url)
	return url, nil
}

// projectRoot returns the project root directory by looking for go.mod.
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB creates a test database connection using a dedicated test
// schema. Each test gets an isolated schema that is dropped afterwards.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "marina")
	password := getEnv("DB_PASSWORD", "marina123")
	dbname := getEnv("DB_NAME", "blue_marina")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// search_path in the DSN so all pooled connections use the test schema.
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.User{},
		&entity.Article{},
		&entity.WeeklyRateLock{},
		&entity.PurchaseOrder{},
		&entity.OrderLineItem{},
		&entity.Bid{},
		&entity.Order{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupEnv builds a full test environment: isolated database, repositories,
// services over a fake blob store, and a router with all routes registered.
// Redis is absent in tests; the services tolerate that.
func SetupEnv(t *testing.T) *TestEnv {
	t.Helper()

	db := SetupTestDB(t)
	repos := repository.NewRepositories(db)
	blob := &FakeBlobStore{}
	zlog := zap.NewNop()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             JWTSecret,
			AccessTokenExpire:  time.Hour,
			RefreshTokenExpire: 24 * time.Hour,
			Issuer:             "blue-marina-test",
		},
		SellingRates: map[string]float64{
			"Fish":    100.0,
			"Meat":    120.0,
			"Produce": 50.0,
			"Dairy":   80.0,
		},
	}

	svc := service.NewServices(cfg, repos, nil, blob, notify.New("", zlog), zlog)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r, handler.NewHandlers(svc), JWTSecret)

	return &TestEnv{DB: db, Router: r, Repos: repos, Blob: blob, T: t}
}

// GenerateTestToken creates a valid JWT token for testing.
func GenerateTestToken(userID, username string, role entity.Role) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"uid":      userID,
		"username": username,
		"role":     string(role),
		"iss":      "blue-marina-test",
		"iat":      now.Unix(),
		"exp":      now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// SeedUser creates a user row with a throwaway password hash.
func SeedUser(t *testing.T, db *gorm.DB, id, username string, role entity.Role) *entity.User {
	t.Helper()
	user := &entity.User{
		ID:             id,
		Username:       username,
		HashedPassword: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		Role:           role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

// SeedArticleWithRate creates an article and locks a selling rate for the
// current ISO week.
func SeedArticleWithRate(t *testing.T, db *gorm.DB, id, number, name string, rate float64) *entity.Article {
	t.Helper()
	article := &entity.Article{
		ID:            id,
		ArticleNumber: number,
		Name:          name,
		Unit:          "kg",
	}
	if err := db.Create(article).Error; err != nil {
		t.Fatalf("Failed to seed article: %v", err)
	}

	year, week := time.Now().ISOWeek()
	lock := &entity.WeeklyRateLock{
		ID:          "lock-" + id,
		ArticleID:   article.ID,
		WeekNumber:  week,
		Year:        year,
		SellingRate: rate,
	}
	if err := db.Create(lock).Error; err != nil {
		t.Fatalf("Failed to seed rate lock: %v", err)
	}
	return article
}

// DoRequest executes a JSON request against the test router.
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoMultipart executes a multipart request with form fields and one file
// named "photo".
func DoMultipart(r *gin.Engine, method, path string, fields map[string]string, fileName string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, _ := mw.CreateFormFile("photo", fileName)
		fw.Write([]byte("fake-image-bytes"))
	}
	mw.Close()

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body.
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
)

// RateHandler serves the article catalog and weekly rate locks. All
// mutations are admin-only, enforced by the router.
type RateHandler struct {
	svc *service.RateCatalogService
}

func NewRateHandler(svc *service.RateCatalogService) *RateHandler {
	return &RateHandler{svc: svc}
}

// ListArticles GET /api/v1/articles
func (h *RateHandler) ListArticles(c *gin.Context) {
	articles, err := h.svc.ListArticles(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": articles})
}

type createArticleRequest struct {
	ArticleNumber string `json:"article_number" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Unit          string `json:"unit"`
}

// CreateArticle POST /api/v1/articles
func (h *RateHandler) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	article, err := h.svc.CreateArticle(c.Request.Context(), req.ArticleNumber, req.Name, req.Unit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, article)
}

// ListRateLocks GET /api/v1/rate-locks
func (h *RateHandler) ListRateLocks(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"article_id":  c.Query("article_id"),
		"year":        c.Query("year"),
		"week_number": c.Query("week_number"),
	}

	locks, total, err := h.svc.ListLocks(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, ListResponse{
		Items:      locks,
		Pagination: NewPagination(page, pageSize, total),
	})
}

type createRateLockRequest struct {
	ArticleNumber string  `json:"article_number" binding:"required"`
	WeekNumber    int     `json:"week_number" binding:"required"`
	Year          int     `json:"year" binding:"required"`
	SellingRate   float64 `json:"selling_rate" binding:"required"`
}

// CreateRateLock POST /api/v1/rate-locks
func (h *RateHandler) CreateRateLock(c *gin.Context) {
	var req createRateLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	lock, err := h.svc.CreateLock(c.Request.Context(), GetUserID(c), req.ArticleNumber, req.WeekNumber, req.Year, req.SellingRate)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, lock)
}

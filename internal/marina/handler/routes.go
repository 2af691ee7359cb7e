package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/middleware"
)

// RegisterRoutes wires every endpoint under /api/v1. Role gates live here,
// in one place, so the role surface of the API is reviewable at a glance.
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	api := r.Group("/api/v1")

	// Public
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	authed := api.Group("", middleware.JWTAuth(jwtSecret))
	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/auth/logout", h.Auth.Logout)

	// Reference data: readable by everyone, written by admins.
	authed.GET("/articles", h.Rate.ListArticles)
	authed.GET("/rate-locks", h.Rate.ListRateLocks)

	admin := authed.Group("", middleware.RequireRole(entity.RoleAdmin))
	admin.POST("/articles", h.Rate.CreateArticle)
	admin.POST("/rate-locks", h.Rate.CreateRateLock)

	// Bid-based purchase orders. Listing and detail are open to every
	// role; the services scope stores to their own orders.
	authed.GET("/purchase-orders", h.PO.List)
	authed.GET("/purchase-orders/:id", h.PO.Get)

	store := authed.Group("", middleware.RequireRole(entity.RoleStore))
	store.POST("/purchase-orders", h.PO.Create)
	store.POST("/purchase-orders/:id/line-items/:itemId/bids/:bidId/approve", h.PO.ApproveBid)
	store.POST("/purchase-orders/:id/receipt", h.PO.ConfirmReceipt)

	purchaser := authed.Group("", middleware.RequireRole(entity.RolePurchaser))
	purchaser.POST("/line-items/:id/bids", h.PO.SubmitBid)

	admin.POST("/purchase-orders/:id/logistics", h.Logistics.Assign)
	admin.POST("/purchase-orders/:id/delivery", h.Logistics.Delivered)
	admin.GET("/purchase-orders-export", h.PO.Export)

	// Legacy single-buy-rate orders.
	authed.GET("/orders", h.Order.List)
	authed.GET("/orders/:id", h.Order.Get)
	store.POST("/orders", h.Order.Create)
	store.POST("/orders/:id/confirm", h.Order.Confirm)

	purchaser.POST("/orders/:id/accept", h.Order.Accept)
	purchaser.POST("/orders/:id/purchase", h.Order.Purchase)

	admin.POST("/orders/:id/approve", h.Order.Approve)
	admin.POST("/orders/:id/reject", h.Order.Reject)
	admin.POST("/orders/:id/dispatch", h.Order.Dispatch)
	admin.POST("/orders/:id/delivered", h.Order.Delivered)
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
)

// OrderHandler serves the legacy single-buy-rate order flow.
type OrderHandler struct {
	svc *service.LegacyOrderService
}

func NewOrderHandler(svc *service.LegacyOrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	Category string `json:"category" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// Create POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), GetUserID(c), req.Category, req.Quantity)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, order)
}

// List GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	orders, total, err := h.svc.List(c.Request.Context(), GetUserID(c), GetUserRole(c), page, pageSize, c.Query("status"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, ListResponse{
		Items:      orders,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), GetUserID(c), GetUserRole(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

// Accept POST /api/v1/orders/:id/accept
func (h *OrderHandler) Accept(c *gin.Context) {
	order, err := h.svc.Accept(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

type purchaseRequest struct {
	BuyRate float64 `json:"buy_rate" binding:"required"`
}

// Purchase POST /api/v1/orders/:id/purchase
func (h *OrderHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.SubmitPurchase(c.Request.Context(), GetUserID(c), c.Param("id"), req.BuyRate)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

// Approve POST /api/v1/orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	order, err := h.svc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

// Reject POST /api/v1/orders/:id/reject
func (h *OrderHandler) Reject(c *gin.Context) {
	order, err := h.svc.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

type dispatchRequest struct {
	ExpectedDeliveryTime *time.Time `json:"expected_delivery_time"`
}

// Dispatch POST /api/v1/orders/:id/dispatch
func (h *OrderHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Dispatch(c.Request.Context(), c.Param("id"), req.ExpectedDeliveryTime)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

// Delivered POST /api/v1/orders/:id/delivered
func (h *OrderHandler) Delivered(c *gin.Context) {
	order, err := h.svc.MarkDelivered(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

// Confirm POST /api/v1/orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	order, err := h.svc.ConfirmDelivery(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, order)
}

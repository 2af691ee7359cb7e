package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
)

// POHandler serves the bid-based purchase order flow: creation, listing,
// the bid detail view, bid submission and approval, and receipt.
type POHandler struct {
	svc    *service.POService
	export *service.ExportService
}

func NewPOHandler(svc *service.POService, export *service.ExportService) *POHandler {
	return &POHandler{svc: svc, export: export}
}

type createPORequest struct {
	Items []service.LineItemInput `json:"items" binding:"required,dive"`
}

// Create POST /api/v1/purchase-orders
func (h *POHandler) Create(c *gin.Context) {
	var req createPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), GetUserID(c), req.Items)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, result)
}

// List GET /api/v1/purchase-orders
func (h *POHandler) List(c *gin.Context) {
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

// Get GET /api/v1/purchase-orders/:id
//
// Viewing an order recomputes its bid recommendations unless a bid has
// already been approved.
func (h *POHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), GetUserID(c), GetUserRole(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// SubmitBid POST /api/v1/line-items/:id/bids  (multipart: bid_rate, photo)
func (h *POHandler) SubmitBid(c *gin.Context) {
	bidRate, err := strconv.ParseFloat(c.PostForm("bid_rate"), 64)
	if err != nil {
		BadRequest(c, "bid_rate must be a number")
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		BadRequest(c, "a proof photo is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "cannot read photo: "+err.Error())
		return
	}
	defer file.Close()

	bid, err := h.svc.SubmitBid(
		c.Request.Context(),
		GetUserID(c),
		c.Param("id"),
		bidRate,
		file,
		fileHeader.Size,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, bid)
}

// ApproveBid POST /api/v1/purchase-orders/:id/line-items/:itemId/bids/:bidId/approve
func (h *POHandler) ApproveBid(c *gin.Context) {
	po, err := h.svc.ApproveBid(
		c.Request.Context(),
		GetUserID(c),
		c.Param("id"),
		c.Param("itemId"),
		c.Param("bidId"),
	)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

type receiptRequest struct {
	Accepted bool   `json:"accepted"`
	Notes    string `json:"notes"`
}

// ConfirmReceipt POST /api/v1/purchase-orders/:id/receipt
func (h *POHandler) ConfirmReceipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	po, err := h.svc.ConfirmReceipt(c.Request.Context(), GetUserID(c), c.Param("id"), req.Accepted, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// Export GET /api/v1/purchase-orders/export
func (h *POHandler) Export(c *gin.Context) {
	f, filename, err := h.export.ExportPOs(c.Request.Context(), c.Query("status"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

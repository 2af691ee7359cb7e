package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/service"
)

// LogisticsHandler serves the admin dispatch and delivery actions on
// bid-based purchase orders.
type LogisticsHandler struct {
	svc *service.POService
}

func NewLogisticsHandler(svc *service.POService) *LogisticsHandler {
	return &LogisticsHandler{svc: svc}
}

// Assign POST /api/v1/purchase-orders/:id/logistics
// (multipart: driver, pickup_time RFC3339, temperature optional, photo optional)
func (h *LogisticsHandler) Assign(c *gin.Context) {
	driver := c.PostForm("driver")
	if driver == "" {
		BadRequest(c, "driver is required")
		return
	}

	pickupTime, err := time.Parse(time.RFC3339, c.PostForm("pickup_time"))
	if err != nil {
		BadRequest(c, "pickup_time must be RFC3339")
		return
	}

	in := service.LogisticsInput{
		Driver:     driver,
		PickupTime: pickupTime,
	}

	if raw := c.PostForm("temperature"); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			BadRequest(c, "temperature must be a number")
			return
		}
		in.PickupTemperature = &temp
	}

	file, fileHeader, closePhoto, err := optionalPhoto(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if file != nil {
		defer closePhoto()
		in.Photo = file
		in.PhotoSize = fileHeader.Size
		in.PhotoName = fileHeader.Filename
		in.PhotoContentType = fileHeader.Header.Get("Content-Type")
	}

	po, err := h.svc.AssignLogistics(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// Delivered POST /api/v1/purchase-orders/:id/delivery  (multipart: photo)
func (h *LogisticsHandler) Delivered(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		BadRequest(c, "a delivery photo is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "cannot read photo: "+err.Error())
		return
	}
	defer file.Close()

	po, err := h.svc.MarkDelivered(
		c.Request.Context(),
		c.Param("id"),
		file,
		fileHeader.Size,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
	)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, po)
}

// optionalPhoto reads the "photo" form file if one was attached.
func optionalPhoto(c *gin.Context) (io.Reader, *multipart.FileHeader, func(), error) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		// No file attached.
		return nil, nil, nil, nil
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, nil, err
	}
	return file, fileHeader, func() { file.Close() }, nil
}

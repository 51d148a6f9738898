package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/response"
)

type bookingService interface {
	Submit(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*models.Booking, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error)
	Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Booking, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error)
	List(ctx context.Context, query dto.ListBookingsQuery, actor *models.JWTClaims) ([]models.Booking, *models.Pagination, error)
}

type bulkService interface {
	Apply(ctx context.Context, req dto.BulkApplyRequest, actor *models.JWTClaims) (*dto.BulkApplyResult, error)
}

// BookingHandler exposes the booking ledger.
type BookingHandler struct {
	bookings bookingService
	bulk     bulkService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(bookings bookingService, bulk bulkService) *BookingHandler {
	return &BookingHandler{bookings: bookings, bulk: bulk}
}

// Create godoc
// @Summary Submit a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	booking, err := h.bookings.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param startDate query string false "Inclusive start date"
// @Param endDate query string false "Inclusive end date"
// @Param employeeId query string false "Employee filter (admins only)"
// @Param timeSlotId query string false "Slot filter"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param sortBy query string false "date, created_at or status"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var query dto.ListBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	bookings, pagination, err := h.bookings.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Approve godoc
// @Summary Approve a pending booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/approve [patch]
func (h *BookingHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	booking, err := h.bookings.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Reject godoc
// @Summary Reject a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.RejectBookingRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/reject [patch]
func (h *BookingHandler) Reject(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	booking, err := h.bookings.Reject(c.Request.Context(), c.Param("id"), req.Reason, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Cancel godoc
// @Summary Cancel an approved booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if _, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Bulk godoc
// @Summary Reconcile a week of selections
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.BulkApplyRequest true "Desired selections"
// @Success 200 {object} response.Envelope
// @Router /bookings/bulk [post]
func (h *BookingHandler) Bulk(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.BulkApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	result, err := h.bulk.Apply(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

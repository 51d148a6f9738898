package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/response"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type timeSlotService interface {
	List(ctx context.Context, dayOfWeek *int) ([]models.TimeSlot, error)
	Get(ctx context.Context, id string) (*models.TimeSlot, error)
	Create(ctx context.Context, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error)
	Update(ctx context.Context, id string, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	LimitFor(ctx context.Context, slotID string) (*int, error)
	SetLimit(ctx context.Context, slotID string, maxEmployees *int, actor *models.JWTClaims) (*dto.TimeSlotLimitResponse, error)
}

type availabilityService interface {
	BatchAvailability(ctx context.Context, date week.Date, slotIDs []string) (map[string]models.SlotAvailability, error)
}

// TimeSlotHandler manages slot definitions, their capacity and availability.
type TimeSlotHandler struct {
	slots        timeSlotService
	availability availabilityService
}

// NewTimeSlotHandler constructs handler.
func NewTimeSlotHandler(slots timeSlotService, availability availabilityService) *TimeSlotHandler {
	return &TimeSlotHandler{slots: slots, availability: availability}
}

// List godoc
// @Summary List time slots
// @Tags TimeSlots
// @Produce json
// @Param dayOfWeek query int false "Weekday filter, 0 = Sunday"
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *TimeSlotHandler) List(c *gin.Context) {
	var dayOfWeek *int
	if raw := c.Query("dayOfWeek"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be an integer"))
			return
		}
		dayOfWeek = &day
	}
	slots, err := h.slots.List(c.Request.Context(), dayOfWeek)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get time slot
// @Tags TimeSlots
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id} [get]
func (h *TimeSlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create time slot
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.TimeSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /time-slots [post]
func (h *TimeSlotHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	slot, err := h.slots.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Replace time slot
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param id path string true "Time slot ID"
// @Param payload body dto.TimeSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id} [put]
func (h *TimeSlotHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	slot, err := h.slots.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete time slot
// @Tags TimeSlots
// @Param id path string true "Time slot ID"
// @Success 204
// @Router /time-slots/{id} [delete]
func (h *TimeSlotHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.slots.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetLimit godoc
// @Summary Get time slot capacity
// @Tags TimeSlots
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id}/limit [get]
func (h *TimeSlotHandler) GetLimit(c *gin.Context) {
	id := c.Param("id")
	limit, err := h.slots.LimitFor(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TimeSlotLimitResponse{TimeSlotID: id, MaxEmployees: limit}, nil)
}

// SetLimit godoc
// @Summary Set or clear time slot capacity
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param id path string true "Time slot ID"
// @Param payload body dto.SetLimitRequest true "Limit payload, null for unlimited"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id}/limit [post]
func (h *TimeSlotHandler) SetLimit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	limit, err := h.slots.SetLimit(c.Request.Context(), c.Param("id"), req.MaxEmployees, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, limit, nil)
}

// BatchAvailability godoc
// @Summary Occupancy of many slots on one date
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.BatchAvailabilityRequest true "Date and slot ids"
// @Success 200 {object} response.Envelope
// @Router /time-slots/batch-availability [post]
func (h *TimeSlotHandler) BatchAvailability(c *gin.Context) {
	var req dto.BatchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	date, err := week.ParseDate(req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	result, err := h.availability.BatchAvailability(c.Request.Context(), date, req.TimeSlotIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", date.String())
	response.JSON(c, http.StatusOK, dto.BatchAvailabilityResponse(result), nil, middleware.ExtractMeta(c))
}

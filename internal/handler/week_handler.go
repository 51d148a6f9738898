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

type weekService interface {
	View(ctx context.Context, rawDate, employeeID string, actor *models.JWTClaims) (*dto.WeekView, error)
}

// WeekHandler serves the composed week view.
type WeekHandler struct {
	service weekService
}

// NewWeekHandler constructs handler.
func NewWeekHandler(service weekService) *WeekHandler {
	return &WeekHandler{service: service}
}

// View godoc
// @Summary Week view with availability and bookings
// @Tags Weeks
// @Produce json
// @Param date query string false "Any date in the week, defaults to today"
// @Param employeeId query string false "Employee filter (admins only)"
// @Success 200 {object} response.Envelope
// @Router /weeks [get]
func (h *WeekHandler) View(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	view, err := h.service.View(c.Request.Context(), c.Query("date"), c.Query("employeeId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

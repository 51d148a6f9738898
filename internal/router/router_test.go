package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/handler"
	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type tokens map[string]*models.JWTClaims

func (t tokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type stubs struct{}

func (stubs) Get(ctx context.Context) (*models.SystemSettings, error) {
	return &models.SystemSettings{}, nil
}

func (stubs) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.SystemSettings, error) {
	return &models.SystemSettings{}, nil
}

type bookings struct{}

func (bookings) Submit(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*models.Booking, error) {
	return &models.Booking{ID: "b-1"}, nil
}

func (bookings) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	return &models.Booking{ID: id, Status: models.BookingStatusApproved}, nil
}

func (bookings) Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Booking, error) {
	return &models.Booking{ID: id}, nil
}

func (bookings) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	return &models.Booking{ID: id}, nil
}

func (bookings) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	return &models.Booking{ID: id}, nil
}

func (bookings) List(ctx context.Context, query dto.ListBookingsQuery, actor *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	return nil, &models.Pagination{}, nil
}

func (bookings) Apply(ctx context.Context, req dto.BulkApplyRequest, actor *models.JWTClaims) (*dto.BulkApplyResult, error) {
	return &dto.BulkApplyResult{}, nil
}

type slots struct{}

func (slots) List(ctx context.Context, dayOfWeek *int) ([]models.TimeSlot, error) { return nil, nil }

func (slots) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	return &models.TimeSlot{ID: id}, nil
}

func (slots) Create(ctx context.Context, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	return &models.TimeSlot{}, nil
}

func (slots) Update(ctx context.Context, id string, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	return &models.TimeSlot{}, nil
}

func (slots) Delete(ctx context.Context, id string, actor *models.JWTClaims) error { return nil }

func (slots) LimitFor(ctx context.Context, slotID string) (*int, error) { return nil, nil }

func (slots) SetLimit(ctx context.Context, slotID string, maxEmployees *int, actor *models.JWTClaims) (*dto.TimeSlotLimitResponse, error) {
	return &dto.TimeSlotLimitResponse{TimeSlotID: slotID}, nil
}

func (slots) BatchAvailability(ctx context.Context, date week.Date, slotIDs []string) (map[string]models.SlotAvailability, error) {
	return map[string]models.SlotAvailability{}, nil
}

type exports struct{}

func (exports) Roster(ctx context.Context, query dto.RosterExportQuery, actor *models.JWTClaims) (*dto.ExportResult, error) {
	return &dto.ExportResult{Format: "csv"}, nil
}

func (exports) Open(token string) (*os.File, string, error) {
	return nil, "", appErrors.ErrLinkExpired
}

type weeks struct{}

func (weeks) View(ctx context.Context, rawDate, employeeID string, actor *models.JWTClaims) (*dto.WeekView, error) {
	return &dto.WeekView{}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(Config{
		Auth: tokens{
			"admin": {UserID: "admin-1", Role: models.RoleAdmin},
			"emp":   {UserID: "emp-1", Role: models.RoleEmployee},
		},
		Settings:  handler.NewSettingsHandler(stubs{}),
		TimeSlots: handler.NewTimeSlotHandler(slots{}, slots{}),
		Bookings:  handler.NewBookingHandler(bookings{}, bookings{}),
		Exports:   handler.NewExportHandler(exports{}),
		Weeks:     handler.NewWeekHandler(weeks{}),
		Ops:       handler.NewMetricsHandler(nil, nil),
	})
}

func call(r http.Handler, method, path, token, body string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoutesEnforceAuthentication(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/bookings", "", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/bookings", "forged", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/bookings", "emp", ""))
}

func TestCancelRouteReturnsNoContent(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodDelete, "/api/v1/bookings/b-1", "", ""))
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "/api/v1/bookings/b-1", "emp", ""))
}

func TestRoutesEnforceAdminRole(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPatch, "/api/v1/bookings/b-1/approve", "emp", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodPatch, "/api/v1/bookings/b-1/approve", "admin", ""))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPut, "/api/v1/settings", "emp", `{"firstDayOfWeek":1}`))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/time-slots/s-1/limit", "emp", `{"maxEmployees":2}`))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/bookings/export", "emp", ""))
}

func TestStaticSegmentsWinOverIDs(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/bookings/export?startDate=2024-05-01&endDate=2024-05-02", "admin", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/time-slots/batch-availability", "emp", `{"date":"2024-05-06","timeSlotIds":["a"]}`))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/time-slots/s-1", "emp", ""))
}

func TestExportDownloadSkipsBearerAuth(t *testing.T) {
	r := newTestRouter()
	assert.Equal(t, http.StatusGone, call(r, http.MethodGet, "/api/v1/export/tok", "", ""))
}

func TestWriteRoutesAreRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New(Config{
		Auth:        tokens{"emp": {UserID: "emp-1", Role: models.RoleEmployee}},
		RateLimiter: middleware.NewRateLimiter(0.001, 1, 0),
		Settings:    handler.NewSettingsHandler(stubs{}),
		TimeSlots:   handler.NewTimeSlotHandler(slots{}, slots{}),
		Bookings:    handler.NewBookingHandler(bookings{}, bookings{}),
		Exports:     handler.NewExportHandler(exports{}),
		Weeks:       handler.NewWeekHandler(weeks{}),
		Ops:         handler.NewMetricsHandler(nil, nil),
	})
	body := `{"date":"2024-05-06","timeSlotId":"s-1"}`
	assert.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/api/v1/bookings", "emp", body))
	assert.Equal(t, http.StatusTooManyRequests, call(r, http.MethodPost, "/api/v1/bookings", "emp", body))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/bookings", "emp", ""))
}

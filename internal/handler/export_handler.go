package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/response"
)

type exportService interface {
	Roster(ctx context.Context, query dto.RosterExportQuery, actor *models.JWTClaims) (*dto.ExportResult, error)
	Open(token string) (*os.File, string, error)
}

// ExportHandler renders rosters and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Roster godoc
// @Summary Export approved bookings
// @Tags Exports
// @Produce json
// @Param startDate query string true "Inclusive start date"
// @Param endDate query string true "Inclusive end date"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /bookings/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var query dto.RosterExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c, err)
		return
	}
	result, err := h.service.Roster(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 410 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Param("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, contentType, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filepath.Base(file.Name())))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

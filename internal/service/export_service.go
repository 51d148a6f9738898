package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/export"
	"github.com/noah-isme/shift-booking-api/pkg/storage"
)

const maxRosterSpanDays = 92

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type slotNames interface {
	GetMany(ctx context.Context, ids []string) (map[string]models.TimeSlot, error)
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders approved-booking rosters and hands out signed links.
type ExportService struct {
	bookings  rangeReader
	slots     slotNames
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[string]Renderer
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(bookings rangeReader, slots slotNames, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		bookings: bookings,
		slots:    slots,
		storage:  files,
		signer:   signer,
		renderers: map[string]Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Roster renders the approved bookings between two dates and returns a signed
// download link.
func (s *ExportService) Roster(ctx context.Context, query dto.RosterExportQuery, actor *models.JWTClaims) (*dto.ExportResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may export rosters")
	}
	start, err := optionalDate(query.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(query.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	if end.Before(*start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	if start.DaysUntil(*end) > maxRosterSpanDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export range is limited to %d days", maxRosterSpanDays))
	}
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	bookings, err := s.bookings.InRange(ctx, *start, *end, nil, models.BookingStatusApproved)
	if err != nil {
		return nil, err
	}
	slotIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		slotIDs = append(slotIDs, b.TimeSlotID)
	}
	slots := map[string]models.TimeSlot{}
	if len(slotIDs) > 0 {
		if slots, err = s.slots.GetMany(ctx, uniqueSorted(slotIDs)); err != nil {
			return nil, err
		}
	}

	dataset := rosterDataset(bookings, slots)
	title := fmt.Sprintf("Shift Roster %s to %s", start, end)
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("roster_%s_%s_%s.%s", start, end, s.now().UTC().Format("20060102_150405"), renderer.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign roster link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("roster exported",
		zap.String("export_id", exportID),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)))
	return &dto.ExportResult{
		URL:       fmt.Sprintf("%s/export/%s", prefix, token),
		Format:    format,
		Rows:      len(dataset.Rows),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the stored file. The caller
// closes the returned file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.ErrLinkExpired
		}
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, s.contentTypeFor(relPath), nil
}

// Cleanup removes exports older than ttl, or the configured TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) contentTypeFor(relPath string) string {
	for _, r := range s.renderers {
		if strings.HasSuffix(relPath, "."+r.Extension()) {
			return r.ContentType()
		}
	}
	return "application/octet-stream"
}

var rosterHeaders = []string{"Date", "Weekday", "Start", "End", "Slot", "Employee", "Approved By", "Booking ID"}

func rosterDataset(bookings []models.Booking, slots map[string]models.TimeSlot) export.Dataset {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		slotName := b.TimeSlotID
		if slot, ok := slots[b.TimeSlotID]; ok && slot.Name != nil {
			slotName = *slot.Name
		}
		approvedBy := ""
		if b.ApprovedBy != nil {
			approvedBy = *b.ApprovedBy
		}
		rows = append(rows, map[string]string{
			"Date":        b.Date.String(),
			"Weekday":     b.Date.Weekday().String(),
			"Start":       b.StartTime.String(),
			"End":         b.EndTime.String(),
			"Slot":        slotName,
			"Employee":    b.EmployeeID,
			"Approved By": approvedBy,
			"Booking ID":  b.ID,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}

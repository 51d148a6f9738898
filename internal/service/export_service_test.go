package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/storage"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.SignedURLSigner) {
	t.Helper()
	f := newLedgerFixture(t, BookingServiceConfig{})
	approver := "admin-1"
	f.repo.seed(models.Booking{
		ID: "b1", EmployeeID: "emp-1", Date: week.MustParseDate(monday), TimeSlotID: "slot-1",
		StartTime: week.MustParseTimeOfDay("09:00"), EndTime: week.MustParseTimeOfDay("17:00"),
		Status: models.BookingStatusApproved, ApprovedBy: &approver,
	})
	f.repo.seed(models.Booking{ID: "b2", EmployeeID: "emp-2", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusPending})

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(f.svc, newSlotResolver(mondaySlot("slot-1")), store, signer, ExportConfig{APIPrefix: "/api/v1"}, nil)
	return svc, signer
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Roster(context.Background(), dto.RosterExportQuery{StartDate: "2024-05-01", EndDate: "2024-05-31"}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, 1, result.Rows, "only approved bookings are exported")
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))

	token := strings.TrimPrefix(result.URL, "/api/v1/export/")
	file, contentType, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "text/csv", contentType)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Date,Weekday,Start,End,Slot,Employee,Approved By,Booking ID")
	assert.Contains(t, string(body), "2024-05-06,Monday,09:00,17:00,Morning slot-1,emp-1,admin-1,b1")
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Roster(context.Background(), dto.RosterExportQuery{StartDate: monday, EndDate: monday, Format: "PDF"}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, "pdf", result.Format)

	file, contentType, err := svc.Open(strings.TrimPrefix(result.URL, "/api/v1/export/"))
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "application/pdf", contentType)
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportServiceRosterValidation(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Roster(ctx, dto.RosterExportQuery{StartDate: monday, EndDate: monday}, employeeClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Roster(ctx, dto.RosterExportQuery{StartDate: monday}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Roster(ctx, dto.RosterExportQuery{StartDate: monday, EndDate: "2024-05-01"}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Roster(ctx, dto.RosterExportQuery{StartDate: "2024-01-01", EndDate: "2024-12-31"}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Roster(ctx, dto.RosterExportQuery{StartDate: monday, EndDate: monday, Format: "xlsx"}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceOpenRejectsBadTokens(t *testing.T) {
	svc, signer := newExportServiceForTest(t)

	_, _, err := svc.Open("garbage")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	token, _, err := signer.Generate("x", "missing.csv")
	require.NoError(t, err)
	_, _, err = svc.Open(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

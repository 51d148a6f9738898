package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

func wednesdaySlot(id string) models.TimeSlot {
	slot := mondaySlot(id)
	slot.DayOfWeek = week.Wednesday
	return slot
}

func newBulkFixture(t *testing.T) (*BulkService, *ledgerFixture) {
	t.Helper()
	f := newLedgerFixture(t, BookingServiceConfig{}, mondaySlot("slot-1"), mondaySlot("slot-2"), wednesdaySlot("slot-3"))
	bulk := NewBulkService(f.svc, firstDayStub{first: week.Monday}, f.audit, nil, nil)
	return bulk, f
}

func TestBulkServiceApplyDiffsAndCollectsFailures(t *testing.T) {
	bulk, f := newBulkFixture(t)
	mon := week.MustParseDate(monday)
	f.repo.seed(models.Booking{ID: "b1", EmployeeID: "emp1", Date: mon, TimeSlotID: "slot-1", StartTime: week.MustParseTimeOfDay("09:00"), Status: models.BookingStatusApproved})
	f.repo.seed(models.Booking{ID: "b2", EmployeeID: "emp1", Date: mon, TimeSlotID: "slot-2", StartTime: week.MustParseTimeOfDay("09:00"), Status: models.BookingStatusPending})
	f.repo.seed(models.Booking{ID: "b3", EmployeeID: "emp2", Date: mon, TimeSlotID: "slot-1", StartTime: week.MustParseTimeOfDay("09:00"), Status: models.BookingStatusApproved})

	result, err := bulk.Apply(context.Background(), dto.BulkApplyRequest{
		WeekOf: "2024-05-09",
		Selections: map[string]map[int][]string{
			"emp1": {2: {"slot-3", "slot-1"}},
		},
		Approve: true,
	}, adminClaims)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-06", result.WeekStart.String())
	assert.Equal(t, "2024-05-12", result.WeekEnd.String())

	require.Len(t, result.Created, 1)
	assert.Equal(t, "slot-3", result.Created[0].TimeSlotID)
	assert.Equal(t, "2024-05-08", result.Created[0].Date.String())
	assert.Equal(t, models.BookingStatusApproved, result.Created[0].Status)

	assert.Equal(t, []string{"b1"}, result.Cancelled)
	assert.Equal(t, []string{"b2"}, result.Rejected)

	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, ActionSubmit, failure.Action)
	assert.Equal(t, "slot-1", failure.TimeSlotID)
	assert.Equal(t, appErrors.ErrValidation.Code, failure.Code)

	b2, err := f.repo.FindByID(context.Background(), "b2")
	require.NoError(t, err)
	require.NotNil(t, b2.RejectionReason)
	assert.Equal(t, BulkRemovalReason, *b2.RejectionReason)

	b3, err := f.repo.FindByID(context.Background(), "b3")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, b3.Status, "employees outside the selections are untouched")
	assert.Contains(t, f.audit.actions(), models.AuditActionBulkApply)
}

func TestBulkServiceApplyIsIdempotent(t *testing.T) {
	bulk, _ := newBulkFixture(t)
	req := dto.BulkApplyRequest{
		WeekOf:     monday,
		Selections: map[string]map[int][]string{"emp1": {0: {"slot-1"}}},
	}

	first, err := bulk.Apply(context.Background(), req, adminClaims)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)
	assert.Equal(t, models.BookingStatusPending, first.Created[0].Status)

	second, err := bulk.Apply(context.Background(), req, adminClaims)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Cancelled)
	assert.Empty(t, second.Rejected)
	assert.Empty(t, second.Failures)
}

func TestBulkServiceApplyValidation(t *testing.T) {
	bulk, _ := newBulkFixture(t)
	ctx := context.Background()

	_, err := bulk.Apply(ctx, dto.BulkApplyRequest{WeekOf: monday, Selections: map[string]map[int][]string{}}, employeeClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = bulk.Apply(ctx, dto.BulkApplyRequest{WeekOf: "next week", Selections: map[string]map[int][]string{}}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = bulk.Apply(ctx, dto.BulkApplyRequest{WeekOf: monday, Selections: map[string]map[int][]string{"emp1": {7: {"slot-1"}}}}, adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type availabilityStub struct {
	calls int
}

func (s *availabilityStub) BatchAvailability(ctx context.Context, date week.Date, slotIDs []string) (map[string]models.SlotAvailability, error) {
	s.calls++
	out := make(map[string]models.SlotAvailability, len(slotIDs))
	for _, id := range slotIDs {
		out[id] = models.SlotAvailability{Count: 1, MaxEmployees: intPtr(2), Available: true}
	}
	return out, nil
}

func TestWeekServiceViewOrdersColumnsFromFirstDay(t *testing.T) {
	f := newLedgerFixture(t, BookingServiceConfig{})
	f.repo.seed(models.Booking{ID: "mine", EmployeeID: "emp-1", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusApproved})
	f.repo.seed(models.Booking{ID: "theirs", EmployeeID: "emp-2", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusPending})
	f.repo.seed(models.Booking{ID: "gone", EmployeeID: "emp-1", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusCancelled})

	avail := &availabilityStub{}
	svc := NewWeekService(firstDayStub{first: week.Wednesday}, newSlotResolver(mondaySlot("slot-1"), wednesdaySlot("slot-3")), avail, f.svc)

	view, err := svc.View(context.Background(), "2024-05-09", "", employeeClaims)
	require.NoError(t, err)

	assert.Equal(t, 3, view.FirstDayOfWeek)
	assert.Equal(t, "2024-05-08", view.StartDate.String())
	assert.Equal(t, "2024-05-14", view.EndDate.String())
	require.Len(t, view.Days, 7)
	assert.Equal(t, "Wednesday", view.Days[0].WeekdayName)
	assert.Len(t, view.Days[0].Slots, 1)
	assert.Equal(t, int(week.Monday), view.Days[5].Weekday)
	assert.Equal(t, "2024-05-13", view.Days[5].Date.String())
	require.Len(t, view.Days[5].Slots, 1)
	assert.Equal(t, 1, view.Days[5].Slots[0].Availability.Count)
	assert.Equal(t, 2, avail.calls, "one batch per column with slots")

	assert.Empty(t, view.Bookings, "2024-05-06 is outside this window")
}

func TestWeekServiceViewScopesBookings(t *testing.T) {
	f := newLedgerFixture(t, BookingServiceConfig{})
	f.repo.seed(models.Booking{ID: "mine", EmployeeID: "emp-1", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusApproved})
	f.repo.seed(models.Booking{ID: "theirs", EmployeeID: "emp-2", Date: week.MustParseDate(monday), TimeSlotID: "slot-1", Status: models.BookingStatusPending})
	svc := NewWeekService(firstDayStub{first: week.Monday}, newSlotResolver(mondaySlot("slot-1")), &availabilityStub{}, f.svc)
	ctx := context.Background()

	own, err := svc.View(ctx, monday, "emp-2", employeeClaims)
	require.NoError(t, err)
	require.Len(t, own.Bookings, 1)
	assert.Equal(t, "mine", own.Bookings[0].ID)

	all, err := svc.View(ctx, monday, "", adminClaims)
	require.NoError(t, err)
	assert.Len(t, all.Bookings, 2)

	one, err := svc.View(ctx, monday, "emp-2", adminClaims)
	require.NoError(t, err)
	require.Len(t, one.Bookings, 1)
	assert.Equal(t, "theirs", one.Bookings[0].ID)
}

func TestWeekServiceViewDefaultsToToday(t *testing.T) {
	f := newLedgerFixture(t, BookingServiceConfig{})
	svc := NewWeekService(firstDayStub{first: week.Sunday}, newSlotResolver(), &availabilityStub{}, f.svc)
	svc.now = func() time.Time { return time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC) }

	view, err := svc.View(context.Background(), "", "", adminClaims)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-25", view.StartDate.String())
	assert.Equal(t, "2024-03-02", view.EndDate.String())

	_, err = svc.View(context.Background(), "29-02-2024", "", adminClaims)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

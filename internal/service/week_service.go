package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type slotLister interface {
	List(ctx context.Context, dayOfWeek *int) ([]models.TimeSlot, error)
}

type availabilityReader interface {
	BatchAvailability(ctx context.Context, date week.Date, slotIDs []string) (map[string]models.SlotAvailability, error)
}

type rangeReader interface {
	InRange(ctx context.Context, start, end week.Date, employeeIDs []string, statuses ...models.BookingStatus) ([]models.Booking, error)
}

// WeekService assembles the week grid: window, columns, slots with occupancy
// and the live bookings inside the window.
type WeekService struct {
	settings     firstDayProvider
	slots        slotLister
	availability availabilityReader
	bookings     rangeReader
	now          func() time.Time
}

// NewWeekService constructs a WeekService.
func NewWeekService(settings firstDayProvider, slots slotLister, availability availabilityReader, bookings rangeReader) *WeekService {
	return &WeekService{settings: settings, slots: slots, availability: availability, bookings: bookings, now: time.Now}
}

// View renders the week containing rawDate, or today when rawDate is empty.
// Employees only see their own bookings.
func (s *WeekService) View(ctx context.Context, rawDate, employeeID string, actor *models.JWTClaims) (*dto.WeekView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ref := week.DateOf(s.now())
	if strings.TrimSpace(rawDate) != "" {
		parsed, err := week.ParseDate(strings.TrimSpace(rawDate))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
		}
		ref = parsed
	}
	first, err := s.settings.FirstDayOfWeek(ctx)
	if err != nil {
		return nil, err
	}
	window := week.ComputeWindow(ref, first)

	slots, err := s.slots.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	byWeekday := make(map[week.Weekday][]models.TimeSlot, week.DaysPerWeek)
	for _, slot := range slots {
		byWeekday[slot.DayOfWeek] = append(byWeekday[slot.DayOfWeek], slot)
	}

	view := &dto.WeekView{
		FirstDayOfWeek: int(first),
		StartDate:      window.Start(),
		EndDate:        window.End(),
		Days:           make([]dto.WeekColumn, 0, week.DaysPerWeek),
	}
	for i := 0; i < week.DaysPerWeek; i++ {
		idx := week.DisplayIndex(i)
		wd := week.WeekdayForIndex(idx, first)
		date := window.At(idx)
		column := dto.WeekColumn{
			Index:       i,
			Weekday:     int(wd),
			WeekdayName: wd.String(),
			Date:        date,
			Slots:       []dto.WeekSlot{},
		}
		daySlots := byWeekday[wd]
		if len(daySlots) > 0 {
			ids := make([]string, len(daySlots))
			for j, slot := range daySlots {
				ids[j] = slot.ID
			}
			occupancy, err := s.availability.BatchAvailability(ctx, date, ids)
			if err != nil {
				return nil, err
			}
			for _, slot := range daySlots {
				column.Slots = append(column.Slots, dto.WeekSlot{TimeSlot: slot, Availability: occupancy[slot.ID]})
			}
		}
		view.Days = append(view.Days, column)
	}

	var employees []string
	switch {
	case !actor.IsAdmin():
		employees = []string{actor.UserID}
	case strings.TrimSpace(employeeID) != "":
		employees = []string{strings.TrimSpace(employeeID)}
	}
	bookings, err := s.bookings.InRange(ctx, window.Start(), window.End(), employees,
		models.BookingStatusPending, models.BookingStatusApproved)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	view.Bookings = bookings
	return view, nil
}

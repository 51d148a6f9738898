package dto

import (
	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// WeekView is the week grid rendered by clients.
type WeekView struct {
	FirstDayOfWeek int              `json:"firstDayOfWeek"`
	StartDate      week.Date        `json:"startDate"`
	EndDate        week.Date        `json:"endDate"`
	Days           []WeekColumn     `json:"days"`
	Bookings       []models.Booking `json:"bookings"`
}

// WeekColumn is one display column of the grid.
type WeekColumn struct {
	Index       int        `json:"index"`
	Weekday     int        `json:"weekday"`
	WeekdayName string     `json:"weekdayName"`
	Date        week.Date  `json:"date"`
	Slots       []WeekSlot `json:"slots"`
}

// WeekSlot is a slot and its occupancy on the column's date.
type WeekSlot struct {
	models.TimeSlot
	Availability models.SlotAvailability `json:"availability"`
}

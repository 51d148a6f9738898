package models

import (
	"time"

	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// TimeSlot is a recurring shift template for one calendar weekday.
type TimeSlot struct {
	ID          string         `db:"id" json:"id"`
	DayOfWeek   week.Weekday   `db:"day_of_week" json:"dayOfWeek"`
	StartTime   week.TimeOfDay `db:"start_time" json:"startTime"`
	EndTime     week.TimeOfDay `db:"end_time" json:"endTime"`
	Name        *string        `db:"name" json:"name,omitempty"`
	Description *string        `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// TimeSlotLimit caps approved bookings per date. A nil MaxEmployees is unlimited.
type TimeSlotLimit struct {
	TimeSlotID   string    `db:"time_slot_id" json:"timeSlotId"`
	MaxEmployees *int      `db:"max_employees" json:"maxEmployees"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// TimeSlotFilter narrows slot listings.
type TimeSlotFilter struct {
	DayOfWeek *week.Weekday
}

// SlotAvailability is the occupancy of one slot on one date.
type SlotAvailability struct {
	Count        int  `json:"count"`
	MaxEmployees *int `json:"maxEmployees"`
	Available    bool `json:"available"`
}

package dto

import "github.com/noah-isme/shift-booking-api/internal/models"

// TimeSlotRequest is the payload for creating or replacing a slot.
type TimeSlotRequest struct {
	DayOfWeek   *int    `json:"dayOfWeek" validate:"required"`
	StartTime   string  `json:"startTime" validate:"required"`
	EndTime     string  `json:"endTime" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// SetLimitRequest sets or clears a slot's capacity. A null value means unlimited.
type SetLimitRequest struct {
	MaxEmployees *int `json:"maxEmployees"`
}

// TimeSlotLimitResponse reports a slot's capacity.
type TimeSlotLimitResponse struct {
	TimeSlotID   string `json:"timeSlotId"`
	MaxEmployees *int   `json:"maxEmployees"`
}

// BatchAvailabilityRequest asks for occupancy of several slots on one date.
type BatchAvailabilityRequest struct {
	Date        string   `json:"date" validate:"required"`
	TimeSlotIDs []string `json:"timeSlotIds" validate:"required,min=1,max=200,dive,required"`
}

// BatchAvailabilityResponse maps slot id to occupancy.
type BatchAvailabilityResponse map[string]models.SlotAvailability

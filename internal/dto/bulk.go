package dto

import (
	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// BulkApplyRequest describes the desired bookings of a displayed week.
// Selections maps employee id to display column (0..6) to slot ids.
// Employees omitted from Selections are left untouched.
type BulkApplyRequest struct {
	WeekOf     string                      `json:"weekOf" validate:"required"`
	Selections map[string]map[int][]string `json:"selections" validate:"required"`
	Approve    bool                        `json:"approve"`
}

// BulkFailure reports one instruction that could not be applied.
type BulkFailure struct {
	Action     string    `json:"action"`
	EmployeeID string    `json:"employeeId"`
	Date       week.Date `json:"date"`
	TimeSlotID string    `json:"timeSlotId"`
	BookingID  string    `json:"bookingId,omitempty"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

// BulkApplyResult summarises the outcome of a bulk edit.
type BulkApplyResult struct {
	WeekStart week.Date        `json:"weekStart"`
	WeekEnd   week.Date        `json:"weekEnd"`
	Created   []models.Booking `json:"created"`
	Cancelled []string         `json:"cancelled"`
	Rejected  []string         `json:"rejected"`
	Failures  []BulkFailure    `json:"failures"`
}

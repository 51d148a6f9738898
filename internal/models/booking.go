package models

import (
	"time"

	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled:
		return true
	}
	return false
}

// Live reports whether the status still occupies the employee/date/slot triple.
func (s BookingStatus) Live() bool {
	return s == BookingStatusPending || s == BookingStatusApproved
}

// Booking is one employee's claim on a slot for a concrete date. Start and end
// times are copied from the slot when the booking is created.
type Booking struct {
	ID              string         `db:"id" json:"id"`
	EmployeeID      string         `db:"employee_id" json:"employeeId"`
	Date            week.Date      `db:"date" json:"date"`
	TimeSlotID      string         `db:"time_slot_id" json:"timeSlotId"`
	StartTime       week.TimeOfDay `db:"start_time" json:"startTime"`
	EndTime         week.TimeOfDay `db:"end_time" json:"endTime"`
	Status          BookingStatus  `db:"status" json:"status"`
	Notes           *string        `db:"notes" json:"notes,omitempty"`
	RequestedBy     string         `db:"requested_by" json:"requestedBy"`
	ApprovedBy      *string        `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovalDate    *time.Time     `db:"approval_date" json:"approvalDate,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CancelledBy     *string        `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledAt     *time.Time     `db:"cancelled_at" json:"cancelledAt,omitempty"`
	WeekStartDate   week.Date      `db:"week_start_date" json:"weekStartDate"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// BookingFilter captures listing criteria.
type BookingFilter struct {
	StartDate   *week.Date
	EndDate     *week.Date
	EmployeeID  string
	EmployeeIDs []string
	TimeSlotID  string
	Statuses    []BookingStatus
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// CancellationEvent is published after an approved booking is cancelled so the
// shift can be offered to someone else.
type CancellationEvent struct {
	BookingID   string    `json:"bookingId"`
	EmployeeID  string    `json:"employeeId"`
	Date        week.Date `json:"date"`
	TimeSlotID  string    `json:"timeSlotId"`
	CancelledBy string    `json:"cancelledBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

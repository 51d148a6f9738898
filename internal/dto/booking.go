package dto

// CreateBookingRequest submits a booking. EmployeeID defaults to the caller.
type CreateBookingRequest struct {
	EmployeeID string  `json:"employeeId" validate:"omitempty,max=64"`
	Date       string  `json:"date" validate:"required"`
	TimeSlotID string  `json:"timeSlotId" validate:"required"`
	Notes      *string `json:"notes" validate:"omitempty,max=1000"`
}

// RejectBookingRequest carries the mandatory rejection reason.
type RejectBookingRequest struct {
	Reason string `json:"reason"`
}

// ListBookingsQuery holds the query string of the booking listing.
type ListBookingsQuery struct {
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	EmployeeID string `form:"employeeId"`
	TimeSlotID string `form:"timeSlotId"`
	Status     string `form:"status"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	SortBy     string `form:"sortBy"`
	SortOrder  string `form:"sortOrder"`
}

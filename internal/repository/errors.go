package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateBooking is returned when a live booking already holds the
	// employee/date/slot triple.
	ErrDuplicateBooking = errors.New("duplicate live booking")
	// ErrCapacityExceeded is returned when a slot has no room left on a date.
	ErrCapacityExceeded = errors.New("time slot at capacity")
	// ErrSlotInUse is returned when deleting a slot that bookings still reference.
	ErrSlotInUse = errors.New("time slot referenced by bookings")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

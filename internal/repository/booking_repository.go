package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

const bookingColumns = `id, employee_id, date, time_slot_id, start_time, end_time, status, notes, requested_by,
approved_by, approval_date, rejection_reason, cancelled_by, cancelled_at, week_start_date, version, created_at, updated_at`

const insertBookingQuery = `INSERT INTO bookings (id, employee_id, date, time_slot_id, start_time, end_time, status, notes,
requested_by, approved_by, approval_date, week_start_date, version, created_at, updated_at)
VALUES (:id, :employee_id, :date, :time_slot_id, :start_time, :end_time, :status, :notes,
:requested_by, :approved_by, :approval_date, :week_start_date, :version, :created_at, :updated_at)`

// BookingRepository is the only writer of booking rows. Every status change is
// a guarded update on (id, status, version); approvals additionally hold a
// transaction-scoped advisory lock per slot and date while counting capacity.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a pending booking. A live booking for the same employee,
// date and slot yields ErrDuplicateBooking.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	prepareInsert(booking)
	if _, err := r.db.NamedExecContext(ctx, insertBookingQuery, booking); err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// CreateApproved inserts a booking directly in approved state after checking
// capacity under the slot/date lock.
func (r *BookingRepository) CreateApproved(ctx context.Context, booking *models.Booking) error {
	prepareInsert(booking)
	return r.withSlotDateLock(ctx, booking.TimeSlotID, booking.Date, func(tx *sqlx.Tx) error {
		if err := checkCapacity(ctx, tx, booking.TimeSlotID, booking.Date); err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertBookingQuery, booking); err != nil {
			if isPQCode(err, pqUniqueViolation) {
				return ErrDuplicateBooking
			}
			return fmt.Errorf("create approved booking: %w", err)
		}
		return nil
	})
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = "SELECT " + bookingColumns + " FROM bookings WHERE id = $1"
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings matching the filter with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if len(filter.EmployeeIDs) > 0 {
		args = append(args, pq.Array(filter.EmployeeIDs))
		conditions = append(conditions, fmt.Sprintf("employee_id = ANY($%d)", len(args)))
	}
	if filter.TimeSlotID != "" {
		args = append(args, filter.TimeSlotID)
		conditions = append(conditions, fmt.Sprintf("time_slot_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"date":       "date",
		"created_at": "created_at",
		"status":     "status",
		"employee":   "employee_id",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	pagination := ""
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size > 500 {
			size = 500
		}
		pagination = fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC, id ASC%s", bookingColumns, base, column, order, pagination)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	total := len(bookings)
	if pagination != "" {
		if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
			return nil, 0, fmt.Errorf("count bookings: %w", err)
		}
	}
	return bookings, total, nil
}

// CountApproved returns approved booking counts per slot on date in one
// grouped query. Slots without approvals are absent from the result.
func (r *BookingRepository) CountApproved(ctx context.Context, date week.Date, slotIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(slotIDs))
	if len(slotIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT time_slot_id, COUNT(*) AS count FROM bookings
WHERE date = $1 AND status = 'approved' AND time_slot_id = ANY($2)
GROUP BY time_slot_id`
	var rows []struct {
		TimeSlotID string `db:"time_slot_id"`
		Count      int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, date, pq.Array(slotIDs)); err != nil {
		return nil, fmt.Errorf("count approved bookings: %w", err)
	}
	for _, row := range rows {
		counts[row.TimeSlotID] = row.Count
	}
	return counts, nil
}

// Approve moves a pending booking to approved. The capacity check and the
// status write happen in one transaction holding the slot/date lock, so two
// concurrent approvals for the same slot and date cannot both pass the check.
// Returns ErrCapacityExceeded when full and sql.ErrNoRows when the booking is
// no longer pending at the expected version.
func (r *BookingRepository) Approve(ctx context.Context, booking *models.Booking, approver string, at time.Time) (*models.Booking, error) {
	var updated models.Booking
	err := r.withSlotDateLock(ctx, booking.TimeSlotID, booking.Date, func(tx *sqlx.Tx) error {
		if err := checkCapacity(ctx, tx, booking.TimeSlotID, booking.Date); err != nil {
			return err
		}
		const query = `UPDATE bookings SET status = 'approved', approved_by = $1, approval_date = $2, updated_at = $2, version = version + 1
WHERE id = $3 AND status = 'pending' AND version = $4
RETURNING ` + bookingColumns
		return tx.GetContext(ctx, &updated, query, approver, at, booking.ID, booking.Version)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reject moves a pending booking to rejected. Returns sql.ErrNoRows when the
// booking is no longer pending at the expected version.
func (r *BookingRepository) Reject(ctx context.Context, booking *models.Booking, approver, reason string, at time.Time) (*models.Booking, error) {
	const query = `UPDATE bookings SET status = 'rejected', approved_by = $1, rejection_reason = $2, updated_at = $3, version = version + 1
WHERE id = $4 AND status = 'pending' AND version = $5
RETURNING ` + bookingColumns
	var updated models.Booking
	if err := r.db.GetContext(ctx, &updated, query, approver, reason, at, booking.ID, booking.Version); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel tombstones an approved booking. Returns sql.ErrNoRows when the
// booking is no longer approved at the expected version.
func (r *BookingRepository) Cancel(ctx context.Context, booking *models.Booking, actor string, at time.Time) (*models.Booking, error) {
	const query = `UPDATE bookings SET status = 'cancelled', cancelled_by = $1, cancelled_at = $2, updated_at = $2, version = version + 1
WHERE id = $3 AND status = 'approved' AND version = $4
RETURNING ` + bookingColumns
	var updated models.Booking
	if err := r.db.GetContext(ctx, &updated, query, actor, at, booking.ID, booking.Version); err != nil {
		return nil, err
	}
	return &updated, nil
}

// withSlotDateLock runs fn in a transaction that first takes an advisory lock
// keyed by slot and date. The lock is released on commit or rollback.
func (r *BookingRepository) withSlotDateLock(ctx context.Context, slotID string, date week.Date, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slotDateKey(slotID, date)); err != nil {
		return fmt.Errorf("lock slot date: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// checkCapacity must run inside withSlotDateLock.
func checkCapacity(ctx context.Context, tx *sqlx.Tx, slotID string, date week.Date) error {
	var max sql.NullInt64
	err := tx.GetContext(ctx, &max, `SELECT max_employees FROM time_slot_limits WHERE time_slot_id = $1`, slotID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read time slot limit: %w", err)
	}
	if !max.Valid {
		return nil
	}
	var count int64
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE time_slot_id = $1 AND date = $2 AND status = 'approved'`, slotID, date); err != nil {
		return fmt.Errorf("count approved bookings: %w", err)
	}
	if count >= max.Int64 {
		return ErrCapacityExceeded
	}
	return nil
}

func slotDateKey(slotID string, date week.Date) string {
	return slotID + ":" + date.String()
}

func prepareInsert(booking *models.Booking) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = booking.CreatedAt
	if booking.Version == 0 {
		booking.Version = 1
	}
}

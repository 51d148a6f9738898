package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

var bookingRowColumns = []string{"id", "employee_id", "date", "time_slot_id", "start_time", "end_time", "status", "notes", "requested_by",
	"approved_by", "approval_date", "rejection_reason", "cancelled_by", "cancelled_at", "week_start_date", "version", "created_at", "updated_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func bookingRows(id, status string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingRowColumns).AddRow(
		id, "emp-1", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), "slot-1", "09:00:00", "13:00:00", status, nil, "emp-1",
		"admin-1", now, nil, nil, nil, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), version, now, now,
	)
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:         "b-1",
		EmployeeID: "emp-1",
		Date:       week.MustParseDate("2024-05-06"),
		TimeSlotID: "slot-1",
		Status:     models.BookingStatusPending,
		Version:    1,
	}
}

func TestBookingRepositoryApproveWithinCapacity(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("slot-1:2024-05-06").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_employees FROM time_slot_limits")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_employees"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE time_slot_id = $1 AND date = $2 AND status = 'approved'")).
		WithArgs("slot-1", "2024-05-06").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = 'approved'")).
		WithArgs("admin-1", at, "b-1", 1).
		WillReturnRows(bookingRows("b-1", "approved", 2))
	mock.ExpectCommit()

	updated, err := repo.Approve(context.Background(), pendingBooking(), "admin-1", at)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, updated.Status)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "2024-05-06", updated.Date.String())
	assert.Equal(t, "09:00", updated.StartTime.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryApproveAtCapacityRollsBack(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_employees FROM time_slot_limits")).
		WillReturnRows(sqlmock.NewRows([]string{"max_employees"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), pendingBooking(), "admin-1", time.Now())
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryApproveUnlimitedSkipsCount(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_employees FROM time_slot_limits")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = 'approved'")).
		WillReturnRows(bookingRows("b-1", "approved", 2))
	mock.ExpectCommit()

	_, err := repo.Approve(context.Background(), pendingBooking(), "admin-1", at)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryApproveStaleVersion(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_employees FROM time_slot_limits")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = 'approved'")).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), pendingBooking(), "admin-1", time.Now())
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateDuplicate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	b := pendingBooking()
	b.ID = ""
	err := repo.Create(context.Background(), b)
	require.ErrorIs(t, err, ErrDuplicateBooking)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 1, b.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateApprovedChecksCapacity(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).WithArgs("slot-1:2024-05-06").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_employees FROM time_slot_limits")).
		WillReturnRows(sqlmock.NewRows([]string{"max_employees"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	b := pendingBooking()
	b.Status = models.BookingStatusApproved
	require.NoError(t, repo.CreateApproved(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryRejectAndCancelAreGuarded(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)
	at := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = 'rejected'")).
		WithArgs("admin-1", "no coverage", at, "b-1", 1).
		WillReturnRows(bookingRows("b-1", "rejected", 2))
	rejected, err := repo.Reject(context.Background(), pendingBooking(), "admin-1", "no coverage", at)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)

	approved := pendingBooking()
	approved.Status = models.BookingStatusApproved
	approved.Version = 2
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE bookings SET status = 'cancelled'")).
		WithArgs("emp-1", at, "b-1", 2).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	_, err = repo.Cancel(context.Background(), approved, "emp-1", at)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCountApprovedBatch(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT time_slot_id, COUNT(*) AS count FROM bookings")).
		WithArgs("2024-05-06", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"time_slot_id", "count"}).AddRow("slot-1", 2).AddRow("slot-3", 1))

	counts, err := repo.CountApproved(context.Background(), week.MustParseDate("2024-05-06"), []string{"slot-1", "slot-2", "slot-3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"slot-1": 2, "slot-3": 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListFilters(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewBookingRepository(db)
	start := week.MustParseDate("2024-05-06")
	end := week.MustParseDate("2024-05-12")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, employee_id, date")).
		WithArgs("2024-05-06", "2024-05-12", "emp-1", sqlmock.AnyArg()).
		WillReturnRows(bookingRows("b-1", "pending", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WithArgs("2024-05-06", "2024-05-12", "emp-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	list, total, err := repo.List(context.Background(), models.BookingFilter{
		StartDate:  &start,
		EndDate:    &end,
		EmployeeID: "emp-1",
		Statuses:   []models.BookingStatus{models.BookingStatusPending},
		Page:       1,
		PageSize:   1,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

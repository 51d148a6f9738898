package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/shift-booking-api/internal/models"
)

const timeSlotColumns = `id, day_of_week, start_time, end_time, name, description, created_at, updated_at`

// TimeSlotRepository persists slot templates and their capacity limits.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns slots ordered by weekday and start time.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	query := "SELECT " + timeSlotColumns + " FROM time_slots"
	var args []interface{}
	if filter.DayOfWeek != nil {
		query += " WHERE day_of_week = $1"
		args = append(args, int(*filter.DayOfWeek))
	}
	query += " ORDER BY day_of_week ASC, start_time ASC, id ASC"

	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// FindByID loads a slot by id.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	const query = "SELECT " + timeSlotColumns + " FROM time_slots WHERE id = $1"
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByIDs loads all slots whose id is in ids. Unknown ids are skipped.
func (r *TimeSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]models.TimeSlot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = "SELECT " + timeSlotColumns + " FROM time_slots WHERE id = ANY($1) ORDER BY day_of_week, start_time"
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find time slots: %w", err)
	}
	return slots, nil
}

// Create inserts a slot.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO time_slots (id, day_of_week, start_time, end_time, name, description, created_at, updated_at)
VALUES (:id, :day_of_week, :start_time, :end_time, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// Update rewrites a slot's definition. Existing bookings keep their copied times.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_slots SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update time slot rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot and its limit. It refuses while any booking, live or
// historical, references the slot.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete time slot tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM time_slots WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	var referenced bool
	if err := tx.GetContext(ctx, &referenced, `SELECT EXISTS (SELECT 1 FROM bookings WHERE time_slot_id = $1)`, id); err != nil {
		return fmt.Errorf("check time slot references: %w", err)
	}
	if referenced {
		return ErrSlotInUse
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slot_limits WHERE time_slot_id = $1`, id); err != nil {
		return fmt.Errorf("delete time slot limit: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id); err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return ErrSlotInUse
		}
		return fmt.Errorf("delete time slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete time slot: %w", err)
	}
	return nil
}

// GetLimit returns the slot's limit row, or sql.ErrNoRows when none is set.
func (r *TimeSlotRepository) GetLimit(ctx context.Context, slotID string) (*models.TimeSlotLimit, error) {
	const query = `SELECT time_slot_id, max_employees, updated_at FROM time_slot_limits WHERE time_slot_id = $1`
	var limit models.TimeSlotLimit
	if err := r.db.GetContext(ctx, &limit, query, slotID); err != nil {
		return nil, err
	}
	return &limit, nil
}

// ListLimits returns limit rows for the given slots in one query.
func (r *TimeSlotRepository) ListLimits(ctx context.Context, slotIDs []string) ([]models.TimeSlotLimit, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT time_slot_id, max_employees, updated_at FROM time_slot_limits WHERE time_slot_id = ANY($1)`
	var limits []models.TimeSlotLimit
	if err := r.db.SelectContext(ctx, &limits, query, pq.Array(slotIDs)); err != nil {
		return nil, fmt.Errorf("list time slot limits: %w", err)
	}
	return limits, nil
}

// UpsertLimit creates or replaces the limit keyed by time_slot_id. A nil
// MaxEmployees removes the row so the slot falls back to unlimited.
func (r *TimeSlotRepository) UpsertLimit(ctx context.Context, limit *models.TimeSlotLimit) error {
	limit.UpdatedAt = time.Now().UTC()
	if limit.MaxEmployees == nil {
		const clear = `DELETE FROM time_slot_limits WHERE time_slot_id = $1`
		if _, err := r.db.ExecContext(ctx, clear, limit.TimeSlotID); err != nil {
			return fmt.Errorf("clear time slot limit: %w", err)
		}
		return nil
	}
	const query = `INSERT INTO time_slot_limits (time_slot_id, max_employees, updated_at)
VALUES (:time_slot_id, :max_employees, :updated_at)
ON CONFLICT (time_slot_id)
DO UPDATE SET max_employees = EXCLUDED.max_employees, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, limit); err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("upsert time slot limit: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

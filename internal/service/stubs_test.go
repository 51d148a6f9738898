package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/internal/repository"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

var (
	adminClaims    = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	employeeClaims = &models.JWTClaims{UserID: "emp-1", Role: models.RoleEmployee}
)

type auditRepoStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (s *auditRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *auditRepoStub) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	for i, l := range s.logs {
		out[i] = l.Action
	}
	return out
}

type firstDayStub struct {
	first week.Weekday
	err   error
}

func (s firstDayStub) FirstDayOfWeek(ctx context.Context) (week.Weekday, error) {
	return s.first, s.err
}

type slotResolverStub struct {
	slots map[string]models.TimeSlot
}

func newSlotResolver(slots ...models.TimeSlot) *slotResolverStub {
	s := &slotResolverStub{slots: make(map[string]models.TimeSlot)}
	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
	return s
}

func (s *slotResolverStub) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	return &slot, nil
}

func (s *slotResolverStub) List(ctx context.Context, dayOfWeek *int) ([]models.TimeSlot, error) {
	out := []models.TimeSlot{}
	for _, slot := range s.slots {
		if dayOfWeek == nil || int(slot.DayOfWeek) == *dayOfWeek {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *slotResolverStub) GetMany(ctx context.Context, ids []string) (map[string]models.TimeSlot, error) {
	out := make(map[string]models.TimeSlot)
	for _, id := range ids {
		if slot, ok := s.slots[id]; ok {
			out[id] = slot
		}
	}
	return out, nil
}

// memBookingRepo mirrors the guarantees of the SQL repository: a single mutex
// stands in for the per slot/date advisory lock and rows are guarded by
// status and version.
type memBookingRepo struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*models.Booking
	limits   map[string]int
	listErr  error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking), limits: make(map[string]int)}
}

func (r *memBookingRepo) setLimit(slotID string, max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[slotID] = max
}

func (r *memBookingRepo) seed(b models.Booking) *models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Version == 0 {
		b.Version = 1
	}
	stored := b
	r.bookings[b.ID] = &stored
	return &stored
}

func (r *memBookingRepo) insertLocked(booking *models.Booking) error {
	for _, existing := range r.bookings {
		if existing.Status.Live() && existing.EmployeeID == booking.EmployeeID &&
			existing.Date.Equal(booking.Date) && existing.TimeSlotID == booking.TimeSlotID {
			return repository.ErrDuplicateBooking
		}
	}
	r.seq++
	if booking.ID == "" {
		booking.ID = fmt.Sprintf("b-%d", r.seq)
	}
	booking.Version = 1
	stored := *booking
	r.bookings[booking.ID] = &stored
	return nil
}

func (r *memBookingRepo) approvedLocked(slotID string, date week.Date) int {
	n := 0
	for _, b := range r.bookings {
		if b.TimeSlotID == slotID && b.Date.Equal(date) && b.Status == models.BookingStatusApproved {
			n++
		}
	}
	return n
}

func (r *memBookingRepo) hasRoomLocked(slotID string, date week.Date) bool {
	max, limited := r.limits[slotID]
	return !limited || r.approvedLocked(slotID, date) < max
}

func (r *memBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(booking)
}

func (r *memBookingRepo) CreateApproved(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRoomLocked(booking.TimeSlotID, booking.Date) {
		return repository.ErrCapacityExceeded
	}
	return r.insertLocked(booking)
}

func (r *memBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	employees := map[string]bool{}
	for _, id := range filter.EmployeeIDs {
		employees[id] = true
	}
	statuses := map[models.BookingStatus]bool{}
	for _, s := range filter.Statuses {
		statuses[s] = true
	}
	out := []models.Booking{}
	for _, b := range r.bookings {
		if filter.StartDate != nil && b.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && b.Date.After(*filter.EndDate) {
			continue
		}
		if filter.EmployeeID != "" && b.EmployeeID != filter.EmployeeID {
			continue
		}
		if len(employees) > 0 && !employees[b.EmployeeID] {
			continue
		}
		if filter.TimeSlotID != "" && b.TimeSlotID != filter.TimeSlotID {
			continue
		}
		if len(statuses) > 0 && !statuses[b.Status] {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, len(out), nil
}

func (r *memBookingRepo) transitionLocked(booking *models.Booking, from models.BookingStatus) (*models.Booking, error) {
	current, ok := r.bookings[booking.ID]
	if !ok || current.Status != from || current.Version != booking.Version {
		return nil, sql.ErrNoRows
	}
	return current, nil
}

func (r *memBookingRepo) Approve(ctx context.Context, booking *models.Booking, approver string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRoomLocked(booking.TimeSlotID, booking.Date) {
		return nil, repository.ErrCapacityExceeded
	}
	current, err := r.transitionLocked(booking, models.BookingStatusPending)
	if err != nil {
		return nil, err
	}
	current.Status = models.BookingStatusApproved
	current.ApprovedBy = &approver
	current.ApprovalDate = &at
	current.Version++
	cp := *current
	return &cp, nil
}

func (r *memBookingRepo) Reject(ctx context.Context, booking *models.Booking, approver, reason string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.transitionLocked(booking, models.BookingStatusPending)
	if err != nil {
		return nil, err
	}
	current.Status = models.BookingStatusRejected
	current.ApprovedBy = &approver
	current.RejectionReason = &reason
	current.Version++
	cp := *current
	return &cp, nil
}

func (r *memBookingRepo) Cancel(ctx context.Context, booking *models.Booking, actor string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.transitionLocked(booking, models.BookingStatusApproved)
	if err != nil {
		return nil, err
	}
	current.Status = models.BookingStatusCancelled
	current.CancelledBy = &actor
	current.CancelledAt = &at
	current.Version++
	cp := *current
	return &cp, nil
}

type hookRecorder struct {
	mu     sync.Mutex
	events []models.CancellationEvent
}

func (h *hookRecorder) BookingCancelled(ctx context.Context, event models.CancellationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

type invalidationRecorder struct {
	mu    sync.Mutex
	dates []week.Date
}

func (r *invalidationRecorder) InvalidateDate(ctx context.Context, date week.Date) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
}

func mondaySlot(id string) models.TimeSlot {
	name := "Morning " + id
	return models.TimeSlot{
		ID:        id,
		DayOfWeek: week.Monday,
		StartTime: week.MustParseTimeOfDay("09:00"),
		EndTime:   week.MustParseTimeOfDay("17:00"),
		Name:      &name,
	}
}

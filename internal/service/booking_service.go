package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/internal/repository"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// Ledger actions used for metrics labels.
const (
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	CreateApproved(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	Approve(ctx context.Context, booking *models.Booking, approver string, at time.Time) (*models.Booking, error)
	Reject(ctx context.Context, booking *models.Booking, approver, reason string, at time.Time) (*models.Booking, error)
	Cancel(ctx context.Context, booking *models.Booking, actor string, at time.Time) (*models.Booking, error)
}

type slotResolver interface {
	Get(ctx context.Context, id string) (*models.TimeSlot, error)
}

type firstDayProvider interface {
	FirstDayOfWeek(ctx context.Context) (week.Weekday, error)
}

type availabilityInvalidator interface {
	InvalidateDate(ctx context.Context, date week.Date)
}

// CancellationHook is told about every approved booking that was cancelled so
// the shift can be offered to someone else. Implementations must not block.
type CancellationHook interface {
	BookingCancelled(ctx context.Context, event models.CancellationEvent)
}

// BookingServiceConfig tunes the ledger.
type BookingServiceConfig struct {
	AutoApprove bool
	// Location resolves date+startTime when deciding whether a booking has started.
	Location *time.Location
}

// BookingService is the only mutator of bookings. Capacity is enforced when a
// booking is approved, never when it is submitted, unless auto-approval is on.
type BookingService struct {
	repo         bookingRepository
	slots        slotResolver
	settings     firstDayProvider
	availability availabilityInvalidator
	hook         CancellationHook
	metrics      *MetricsService
	audit        auditor
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          BookingServiceConfig
	now          func() time.Time
}

// NewBookingService wires the ledger. availability, hook and metrics may be nil.
func NewBookingService(
	repo bookingRepository,
	slots slotResolver,
	settings firstDayProvider,
	availability availabilityInvalidator,
	hook CancellationHook,
	metrics *MetricsService,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg BookingServiceConfig,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &BookingService{
		repo:         repo,
		slots:        slots,
		settings:     settings,
		availability: availability,
		hook:         hook,
		metrics:      metrics,
		audit:        auditor{repo: audit, logger: logger, component: "booking-service"},
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Submit records a pending booking for the slot on the given date.
func (s *BookingService) Submit(ctx context.Context, req dto.CreateBookingRequest, actor *models.JWTClaims) (*models.Booking, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.fail(ActionSubmit, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload"))
	}
	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		employeeID = actor.UserID
	}
	if employeeID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employees may only book for themselves")
	}
	date, err := week.ParseDate(req.Date)
	if err != nil {
		return nil, s.fail(ActionSubmit, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD"))
	}
	slot, err := s.slots.Get(ctx, req.TimeSlotID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, s.fail(ActionSubmit, appErrors.Clone(appErrors.ErrValidation, "unknown timeSlotId"))
		}
		return nil, s.fail(ActionSubmit, err)
	}
	if date.Weekday() != slot.DayOfWeek {
		return nil, s.fail(ActionSubmit, appErrors.Clone(appErrors.ErrValidation, "date falls on "+date.Weekday().String()+" but the slot runs on "+slot.DayOfWeek.String()))
	}
	first, err := s.settings.FirstDayOfWeek(ctx)
	if err != nil {
		return nil, s.fail(ActionSubmit, err)
	}

	now := s.now().UTC()
	booking := &models.Booking{
		EmployeeID:    employeeID,
		Date:          date,
		TimeSlotID:    slot.ID,
		StartTime:     slot.StartTime,
		EndTime:       slot.EndTime,
		Status:        models.BookingStatusPending,
		Notes:         trimmedPtr(req.Notes),
		RequestedBy:   actor.UserID,
		WeekStartDate: week.ComputeWindow(date, first).Start(),
		CreatedAt:     now,
	}

	if s.cfg.AutoApprove {
		booking.Status = models.BookingStatusApproved
		booking.ApprovedBy = &booking.RequestedBy
		booking.ApprovalDate = &now
		err = s.repo.CreateApproved(ctx, booking)
	} else {
		err = s.repo.Create(ctx, booking)
	}
	if err != nil {
		return nil, s.fail(ActionSubmit, mapLedgerError(err, "failed to create booking"))
	}
	if booking.Status == models.BookingStatusApproved {
		s.invalidate(ctx, booking.Date)
	}
	s.metrics.RecordBookingTransition(ActionSubmit, ResultSuccess)
	s.logger.Info("booking submitted",
		zap.String("booking_id", booking.ID),
		zap.String("employee_id", booking.EmployeeID),
		zap.String("date", booking.Date.String()),
		zap.String("time_slot_id", booking.TimeSlotID),
		zap.String("status", string(booking.Status)))
	return booking, nil
}

// Approve moves a pending booking to approved if the slot has room on its date.
func (s *BookingService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may approve bookings")
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, s.fail(ActionApprove, wrongState(booking.Status, "approved"))
	}
	updated, err := s.repo.Approve(ctx, booking, actor.UserID, s.now().UTC())
	if err != nil {
		return nil, s.fail(ActionApprove, mapLedgerError(err, "failed to approve booking"))
	}
	s.invalidate(ctx, updated.Date)
	s.metrics.RecordBookingTransition(ActionApprove, ResultSuccess)
	s.audit.record(ctx, actor, models.AuditActionBookingApprove, "booking", updated.ID,
		map[string]string{"status": string(booking.Status)}, map[string]string{"status": string(updated.Status)})
	return updated, nil
}

// Reject denies a pending booking. A non-blank reason is required.
func (s *BookingService) Reject(ctx context.Context, id, reason string, actor *models.JWTClaims) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may reject bookings")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, s.fail(ActionReject, appErrors.Clone(appErrors.ErrValidation, "reason is required"))
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, s.fail(ActionReject, wrongState(booking.Status, "rejected"))
	}
	updated, err := s.repo.Reject(ctx, booking, actor.UserID, reason, s.now().UTC())
	if err != nil {
		return nil, s.fail(ActionReject, mapLedgerError(err, "failed to reject booking"))
	}
	s.metrics.RecordBookingTransition(ActionReject, ResultSuccess)
	s.audit.record(ctx, actor, models.AuditActionBookingReject, "booking", updated.ID,
		map[string]string{"status": string(booking.Status)},
		map[string]string{"status": string(updated.Status), "reason": reason})
	return updated, nil
}

// Cancel withdraws an approved booking that has not started yet and notifies
// the cancellation hook.
func (s *BookingService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.EmployeeID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employees may only cancel their own bookings")
	}
	if booking.Status != models.BookingStatusApproved {
		return nil, s.fail(ActionCancel, wrongState(booking.Status, "cancelled"))
	}
	now := s.now()
	if !booking.Date.At(booking.StartTime, s.cfg.Location).After(now) {
		return nil, s.fail(ActionCancel, appErrors.Clone(appErrors.ErrConflict, "booking has already started"))
	}
	updated, err := s.repo.Cancel(ctx, booking, actor.UserID, now.UTC())
	if err != nil {
		return nil, s.fail(ActionCancel, mapLedgerError(err, "failed to cancel booking"))
	}
	s.invalidate(ctx, updated.Date)
	s.metrics.RecordBookingTransition(ActionCancel, ResultSuccess)
	s.audit.record(ctx, actor, models.AuditActionBookingCancel, "booking", updated.ID,
		map[string]string{"status": string(booking.Status)}, map[string]string{"status": string(updated.Status)})

	if s.hook != nil {
		cancelledAt := now.UTC()
		if updated.CancelledAt != nil {
			cancelledAt = *updated.CancelledAt
		}
		s.hook.BookingCancelled(ctx, models.CancellationEvent{
			BookingID:   updated.ID,
			EmployeeID:  updated.EmployeeID,
			Date:        updated.Date,
			TimeSlotID:  updated.TimeSlotID,
			CancelledBy: actor.UserID,
			CancelledAt: cancelledAt,
		})
	}
	return updated, nil
}

// Get returns a booking. Employees only see their own.
func (s *BookingService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Booking, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.EmployeeID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return booking, nil
}

// List returns bookings matching the query. Employees are pinned to their own.
func (s *BookingService) List(ctx context.Context, query dto.ListBookingsQuery, actor *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.BookingFilter{
		EmployeeID: strings.TrimSpace(query.EmployeeID),
		TimeSlotID: strings.TrimSpace(query.TimeSlotID),
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if !actor.IsAdmin() {
		filter.EmployeeID = actor.UserID
	}
	var err error
	if filter.StartDate, err = optionalDate(query.StartDate, "startDate"); err != nil {
		return nil, nil, err
	}
	if filter.EndDate, err = optionalDate(query.EndDate, "endDate"); err != nil {
		return nil, nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	if filter.Statuses, err = parseStatuses(query.Status); err != nil {
		return nil, nil, err
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// InRange returns every booking in [start, end] with one of statuses. An empty
// employeeIDs slice matches all employees.
func (s *BookingService) InRange(ctx context.Context, start, end week.Date, employeeIDs []string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	filter := models.BookingFilter{
		StartDate:   &start,
		EndDate:     &end,
		EmployeeIDs: employeeIDs,
		Statuses:    statuses,
	}
	bookings, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) invalidate(ctx context.Context, date week.Date) {
	if s.availability != nil {
		s.availability.InvalidateDate(ctx, date)
	}
}

// fail records the outcome of a failed ledger action and returns err unchanged.
func (s *BookingService) fail(action string, err error) error {
	s.metrics.RecordBookingTransition(action, resultFor(err))
	return err
}

func resultFor(err error) string {
	switch {
	case appErrors.Is(err, appErrors.ErrCapacityExceeded):
		return ResultCapacity
	case appErrors.Is(err, appErrors.ErrDuplicateBooking):
		return ResultDuplicate
	case appErrors.Is(err, appErrors.ErrConflict):
		return ResultConflict
	case appErrors.Is(err, appErrors.ErrValidation):
		return ResultInvalid
	default:
		return ResultError
	}
}

func mapLedgerError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrCapacityExceeded):
		return appErrors.ErrCapacityExceeded
	case errors.Is(err, repository.ErrDuplicateBooking):
		return appErrors.ErrDuplicateBooking
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrConflict, "booking was modified concurrently; reload and retry")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func wrongState(current models.BookingStatus, target string) error {
	return appErrors.Clone(appErrors.ErrConflict, "booking is "+string(current)+" and cannot be "+target)
}

func optionalDate(raw, field string) (*week.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := week.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, field+" must be YYYY-MM-DD")
	}
	return &d, nil
}

func parseStatuses(raw string) ([]models.BookingStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var statuses []models.BookingStatus
	for _, part := range strings.Split(raw, ",") {
		status := models.BookingStatus(strings.ToLower(strings.TrimSpace(part)))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

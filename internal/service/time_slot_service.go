package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/internal/repository"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type timeSlotRepository interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id string) error
	GetLimit(ctx context.Context, slotID string) (*models.TimeSlotLimit, error)
	ListLimits(ctx context.Context, slotIDs []string) ([]models.TimeSlotLimit, error)
	UpsertLimit(ctx context.Context, limit *models.TimeSlotLimit) error
}

// TimeSlotService is the registry of slot templates and their limits.
type TimeSlotService struct {
	repo      timeSlotRepository
	audit     auditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService constructs a TimeSlotService.
func NewTimeSlotService(repo timeSlotRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{
		repo:      repo,
		audit:     auditor{repo: audit, logger: logger, component: "time-slot-service"},
		validator: validate,
		logger:    logger,
	}
}

// List returns all slots, or only those of one weekday.
func (s *TimeSlotService) List(ctx context.Context, dayOfWeek *int) ([]models.TimeSlot, error) {
	filter := models.TimeSlotFilter{}
	if dayOfWeek != nil {
		wd := week.Weekday(*dayOfWeek)
		if !wd.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be between 0 and 6")
		}
		filter.DayOfWeek = &wd
	}
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	return slots, nil
}

// SlotsForWeekday returns the slots defined for a calendar weekday.
func (s *TimeSlotService) SlotsForWeekday(ctx context.Context, wd week.Weekday) ([]models.TimeSlot, error) {
	day := int(wd)
	return s.List(ctx, &day)
}

// Get returns one slot.
func (s *TimeSlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return slot, nil
}

// GetMany loads slots by id, keyed by id.
func (s *TimeSlotService) GetMany(ctx context.Context, ids []string) (map[string]models.TimeSlot, error) {
	slots, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	out := make(map[string]models.TimeSlot, len(slots))
	for _, slot := range slots {
		out[slot.ID] = slot
	}
	return out, nil
}

// Create validates and stores a new slot.
func (s *TimeSlotService) Create(ctx context.Context, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	slot, err := s.buildSlot(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	s.audit.record(ctx, actor, models.AuditActionSlotCreate, "time_slot", slot.ID, nil, slot)
	return slot, nil
}

// Update replaces a slot's definition. Bookings keep the times they were created with.
func (s *TimeSlotService) Update(ctx context.Context, id string, req dto.TimeSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slot, err := s.buildSlot(req)
	if err != nil {
		return nil, err
	}
	slot.ID = id
	slot.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time slot")
	}
	s.audit.record(ctx, actor, models.AuditActionSlotUpdate, "time_slot", id, existing, slot)
	return slot, nil
}

// Delete removes a slot that no booking references.
func (s *TimeSlotService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		case errors.Is(err, repository.ErrSlotInUse):
			return appErrors.Clone(appErrors.ErrConflict, "time slot is referenced by bookings")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
		}
	}
	s.audit.record(ctx, actor, models.AuditActionSlotDelete, "time_slot", id, nil, nil)
	return nil
}

// LimitFor returns the slot's capacity; nil means unlimited.
func (s *TimeSlotService) LimitFor(ctx context.Context, slotID string) (*int, error) {
	if _, err := s.Get(ctx, slotID); err != nil {
		return nil, err
	}
	limit, err := s.repo.GetLimit(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot limit")
	}
	return limit.MaxEmployees, nil
}

// LimitsFor returns capacities for several slots in one query. Slots without
// a row are absent from the map and are unlimited.
func (s *TimeSlotService) LimitsFor(ctx context.Context, slotIDs []string) (map[string]*int, error) {
	limits, err := s.repo.ListLimits(ctx, slotIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot limits")
	}
	out := make(map[string]*int, len(limits))
	for _, limit := range limits {
		out[limit.TimeSlotID] = limit.MaxEmployees
	}
	return out, nil
}

// SetLimit creates or replaces a slot's capacity. Nil clears it. Existing
// approved bookings are never revoked by a lower limit.
func (s *TimeSlotService) SetLimit(ctx context.Context, slotID string, maxEmployees *int, actor *models.JWTClaims) (*dto.TimeSlotLimitResponse, error) {
	if maxEmployees != nil && *maxEmployees < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "maxEmployees must be a positive integer or null")
	}
	previous, err := s.LimitFor(ctx, slotID)
	if err != nil {
		return nil, err
	}
	limit := &models.TimeSlotLimit{TimeSlotID: slotID, MaxEmployees: maxEmployees}
	if err := s.repo.UpsertLimit(ctx, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set time slot limit")
	}
	s.audit.record(ctx, actor, models.AuditActionLimitSet, "time_slot_limit", slotID,
		map[string]*int{"maxEmployees": previous}, map[string]*int{"maxEmployees": maxEmployees})
	return &dto.TimeSlotLimitResponse{TimeSlotID: slotID, MaxEmployees: maxEmployees}, nil
}

func (s *TimeSlotService) buildSlot(req dto.TimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	wd := week.Weekday(*req.DayOfWeek)
	if !wd.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be between 0 and 6")
	}
	start, err := week.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startTime")
	}
	end, err := week.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endTime")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	return &models.TimeSlot{
		DayOfWeek:   wd,
		StartTime:   start,
		EndTime:     end,
		Name:        trimmedPtr(req.Name),
		Description: trimmedPtr(req.Description),
	}, nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/dto"
	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type configurationRepository interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

// SettingsServiceConfig tunes runtime behaviour.
type SettingsServiceConfig struct {
	DefaultFirstDayOfWeek int
}

// SettingsService reads and writes the process-wide booking settings.
// Callers receive the first day of week as a value and thread it into the
// week math explicitly.
type SettingsService struct {
	repo      configurationRepository
	audit     auditor
	validator *validator.Validate
	logger    *zap.Logger
	fallback  week.Weekday
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo configurationRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := week.Weekday(cfg.DefaultFirstDayOfWeek)
	if !fallback.Valid() {
		fallback = week.Sunday
	}
	return &SettingsService{
		repo:      repo,
		audit:     auditor{repo: audit, logger: logger, component: "settings-service"},
		validator: validate,
		logger:    logger,
		fallback:  fallback,
	}
}

// Get returns the current settings, falling back to the configured default
// when nothing has been stored yet.
func (s *SettingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	cfg, err := s.repo.Get(ctx, models.ConfigKeyFirstDayOfWeek)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.SystemSettings{FirstDayOfWeek: int(s.fallback)}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	first, err := parseWeekday(cfg.Value)
	if err != nil {
		s.logger.Warn("stored first_day_of_week is invalid, using default", zap.String("value", cfg.Value))
		first = s.fallback
	}
	updatedAt := cfg.UpdatedAt
	return &models.SystemSettings{FirstDayOfWeek: int(first), UpdatedBy: cfg.UpdatedBy, UpdatedAt: &updatedAt}, nil
}

// FirstDayOfWeek returns the configured first day as a Weekday.
func (s *SettingsService) FirstDayOfWeek(ctx context.Context) (week.Weekday, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return week.Weekday(settings.FirstDayOfWeek), nil
}

// Update changes the first day of week. Stored dates and weekdays are not
// touched; only display ordering changes.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.SystemSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "firstDayOfWeek must be between 0 and 6")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	prev, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &models.Configuration{
		Key:         models.ConfigKeyFirstDayOfWeek,
		Value:       strconv.Itoa(*req.FirstDayOfWeek),
		Type:        models.ConfigurationTypeInteger,
		Description: strPtr("First day of the displayed week, 0=Sunday through 6=Saturday"),
		UpdatedBy:   userIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}

	s.audit.record(ctx, actor, models.AuditActionSettingsUpdate, "settings", models.ConfigKeyFirstDayOfWeek,
		map[string]int{"firstDayOfWeek": prev.FirstDayOfWeek},
		map[string]int{"firstDayOfWeek": *req.FirstDayOfWeek})

	updatedAt := cfg.UpdatedAt
	return &models.SystemSettings{FirstDayOfWeek: *req.FirstDayOfWeek, UpdatedBy: cfg.UpdatedBy, UpdatedAt: &updatedAt}, nil
}

func parseWeekday(raw string) (week.Weekday, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	wd := week.Weekday(n)
	if !wd.Valid() {
		return 0, errors.New("weekday out of range")
	}
	return wd, nil
}

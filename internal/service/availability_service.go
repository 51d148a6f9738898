package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/models"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

const availabilityCachePrefix = "availability"

type approvedCounter interface {
	CountApproved(ctx context.Context, date week.Date, slotIDs []string) (map[string]int, error)
}

type limitLookup interface {
	LimitsFor(ctx context.Context, slotIDs []string) (map[string]*int, error)
}

// AvailabilityService reports slot occupancy for a date. It issues one grouped
// count and one limit lookup per call however many slots are requested. Results
// are for display; approvals recheck capacity under lock.
type AvailabilityService struct {
	bookings approvedCounter
	limits   limitLookup
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAvailabilityService constructs the calculator. cache and metrics may be nil.
func NewAvailabilityService(bookings approvedCounter, limits limitLookup, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{bookings: bookings, limits: limits, cache: cache, metrics: metrics, logger: logger}
}

// BatchAvailability maps every requested slot id to its occupancy on date.
func (s *AvailabilityService) BatchAvailability(ctx context.Context, date week.Date, slotIDs []string) (map[string]models.SlotAvailability, error) {
	if date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	ids := uniqueSorted(slotIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timeSlotIds must not be empty")
	}
	s.metrics.ObserveAvailabilityBatch(len(ids))

	key := availabilityCacheKey(date, ids)
	var cached map[string]models.SlotAvailability
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	counts, err := s.bookings.CountApproved(ctx, date, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approved bookings")
	}
	limits, err := s.limits.LimitsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.SlotAvailability, len(ids))
	for _, id := range ids {
		result[id] = availabilityOf(counts[id], limits[id])
	}

	_ = s.cache.Set(ctx, key, result, 0)
	return result, nil
}

// InvalidateDate drops every cached availability entry for date.
func (s *AvailabilityService) InvalidateDate(ctx context.Context, date week.Date) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("%s:%s:*", availabilityCachePrefix, date)); err != nil {
		s.logger.Debug("availability invalidation skipped", zap.String("date", date.String()), zap.Error(err))
	}
}

func availabilityOf(count int, max *int) models.SlotAvailability {
	return models.SlotAvailability{
		Count:        count,
		MaxEmployees: max,
		Available:    max == nil || count < *max,
	}
}

func availabilityCacheKey(date week.Date, sortedIDs []string) string {
	return fmt.Sprintf("%s:%s:%s", availabilityCachePrefix, date, strings.Join(sortedIDs, ","))
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-booking-api/internal/repository"
	appErrors "github.com/noah-isme/shift-booking-api/pkg/errors"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

type countStub struct {
	counts map[string]int
	calls  int
	seen   []string
	err    error
}

func (s *countStub) CountApproved(ctx context.Context, date week.Date, slotIDs []string) (map[string]int, error) {
	s.calls++
	s.seen = slotIDs
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]int{}
	for _, id := range slotIDs {
		if n, ok := s.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type limitStub struct {
	limits map[string]*int
	calls  int
}

func (s *limitStub) LimitsFor(ctx context.Context, slotIDs []string) (map[string]*int, error) {
	s.calls++
	return s.limits, nil
}

func intPtr(v int) *int { return &v }

func TestAvailabilityBatchUsesTwoReads(t *testing.T) {
	counts := &countStub{counts: map[string]int{"full": 2, "open": 1}}
	limits := &limitStub{limits: map[string]*int{"full": intPtr(2), "open": intPtr(3)}}
	svc := NewAvailabilityService(counts, limits, nil, nil, nil)

	result, err := svc.BatchAvailability(context.Background(), week.MustParseDate(monday), []string{"open", "full", "empty", "open"})
	require.NoError(t, err)

	assert.Equal(t, 1, counts.calls)
	assert.Equal(t, 1, limits.calls)
	assert.Equal(t, []string{"empty", "full", "open"}, counts.seen)
	require.Len(t, result, 3)

	assert.Equal(t, 2, result["full"].Count)
	assert.False(t, result["full"].Available)
	assert.True(t, result["open"].Available)

	empty := result["empty"]
	assert.Equal(t, 0, empty.Count)
	assert.Nil(t, empty.MaxEmployees)
	assert.True(t, empty.Available)
}

func TestAvailabilityBatchValidation(t *testing.T) {
	svc := NewAvailabilityService(&countStub{}, &limitStub{}, nil, nil, nil)

	_, err := svc.BatchAvailability(context.Background(), week.MustParseDate(monday), nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.BatchAvailability(context.Background(), week.Date{}, []string{"a"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAvailabilityBatchStorageError(t *testing.T) {
	svc := NewAvailabilityService(&countStub{err: errors.New("db down")}, &limitStub{}, nil, nil, nil)

	_, err := svc.BatchAvailability(context.Background(), week.MustParseDate(monday), []string{"a"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestAvailabilityCacheHitAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCacheService(repository.NewCacheRepository(client), NewMetricsService(), 15*time.Second, nil, true)
	counts := &countStub{counts: map[string]int{"a": 1}}
	limits := &limitStub{limits: map[string]*int{"a": intPtr(1)}}
	svc := NewAvailabilityService(counts, limits, cache, nil, nil)
	ctx := context.Background()
	date := week.MustParseDate(monday)

	first, err := svc.BatchAvailability(ctx, date, []string{"a"})
	require.NoError(t, err)
	second, err := svc.BatchAvailability(ctx, date, []string{"a", "a"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counts.calls, "second call is served from cache")
	assert.True(t, mr.Exists("availability:2024-05-06:a"))

	svc.InvalidateDate(ctx, date)
	assert.False(t, mr.Exists("availability:2024-05-06:a"))

	_, err = svc.BatchAvailability(ctx, date, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.calls)

	mr.FastForward(16 * time.Second)
	assert.False(t, mr.Exists("availability:2024-05-06:a"))
}

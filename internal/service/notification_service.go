package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/jobs"
)

// CancellationNotifier delivers a cancellation event to one destination.
type CancellationNotifier interface {
	Name() string
	Notify(ctx context.Context, event models.CancellationEvent) error
}

type eventPublisher interface {
	Publish(ctx context.Context, channel string, value interface{}) error
}

// LogNotifier writes cancellation events to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Name implements CancellationNotifier.
func (n *LogNotifier) Name() string { return "log" }

// Notify implements CancellationNotifier.
func (n *LogNotifier) Notify(_ context.Context, event models.CancellationEvent) error {
	n.logger.Info("shift released by cancellation",
		zap.String("booking_id", event.BookingID),
		zap.String("employee_id", event.EmployeeID),
		zap.String("date", event.Date.String()),
		zap.String("time_slot_id", event.TimeSlotID),
		zap.String("cancelled_by", event.CancelledBy))
	return nil
}

// RedisNotifier publishes cancellation events as JSON on a pub/sub channel.
type RedisNotifier struct {
	publisher eventPublisher
	channel   string
}

// NewRedisNotifier constructs a RedisNotifier.
func NewRedisNotifier(publisher eventPublisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = "shift:cancelled"
	}
	return &RedisNotifier{publisher: publisher, channel: channel}
}

// Name implements CancellationNotifier.
func (n *RedisNotifier) Name() string { return "redis" }

// Notify implements CancellationNotifier.
func (n *RedisNotifier) Notify(ctx context.Context, event models.CancellationEvent) error {
	return n.publisher.Publish(ctx, n.channel, event)
}

// NotificationConfig tunes the delivery queue.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService receives cancellation events from the ledger and fans
// them out to notifiers on a background queue. Each notifier gets its own job
// so a failing destination is retried without repeating the others.
type NotificationService struct {
	queue     *jobs.Queue[models.CancellationEvent]
	notifiers map[string]CancellationNotifier
	order     []string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs the service. Call Start before use.
func NewNotificationService(cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger, notifiers ...CancellationNotifier) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		notifiers: make(map[string]CancellationNotifier, len(notifiers)),
		metrics:   metrics,
		logger:    logger,
	}
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		if _, dup := s.notifiers[n.Name()]; dup {
			continue
		}
		s.notifiers[n.Name()] = n
		s.order = append(s.order, n.Name())
	}
	s.queue = jobs.NewQueue[models.CancellationEvent]("cancellation-notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop delivers the events already queued, then stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Stats exposes queue counters.
func (s *NotificationService) Stats() jobs.Stats {
	return s.queue.Stats()
}

// BookingCancelled implements CancellationHook. It never blocks the caller;
// events that cannot be queued are logged and dropped.
func (s *NotificationService) BookingCancelled(_ context.Context, event models.CancellationEvent) {
	for _, name := range s.order {
		if _, err := s.queue.Enqueue(name, event); err != nil {
			s.metrics.RecordNotification(name, err)
			s.logger.Warn("cancellation notification dropped",
				zap.String("notifier", name),
				zap.String("booking_id", event.BookingID),
				zap.Error(err))
		}
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job[models.CancellationEvent]) error {
	notifier, ok := s.notifiers[job.Type]
	if !ok {
		return fmt.Errorf("unknown notifier %q", job.Type)
	}
	err := notifier.Notify(ctx, job.Payload)
	s.metrics.RecordNotification(notifier.Name(), err)
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shift-booking-api/api/swagger"
	"github.com/noah-isme/shift-booking-api/internal/handler"
	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/repository"
	"github.com/noah-isme/shift-booking-api/internal/router"
	"github.com/noah-isme/shift-booking-api/internal/service"
	"github.com/noah-isme/shift-booking-api/pkg/cache"
	"github.com/noah-isme/shift-booking-api/pkg/config"
	"github.com/noah-isme/shift-booking-api/pkg/database"
	"github.com/noah-isme/shift-booking-api/pkg/logger"
	"github.com/noah-isme/shift-booking-api/pkg/storage"
)

// @title Shift Booking API
// @version 1.0.0
// @description Weekly shift booking with per-slot capacity, approvals and bulk edits.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Fatal("init export storage", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	bookingRepo := repository.NewBookingRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Booking.AvailabilityCacheTTL, logr, cfg.Booking.CacheEnabled)
	settingsSvc := service.NewSettingsService(configRepo, auditRepo, validate, logr, service.SettingsServiceConfig{
		DefaultFirstDayOfWeek: cfg.Booking.DefaultFirstDayOfWeek,
	})
	slotSvc := service.NewTimeSlotService(slotRepo, auditRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(bookingRepo, slotSvc, cacheSvc, metrics, logr)

	notifications := service.NewNotificationService(service.NotificationConfig{
		Workers:    cfg.Notification.Workers,
		MaxRetries: cfg.Notification.MaxRetries,
	}, metrics, logr,
		service.NewLogNotifier(logr),
		service.NewRedisNotifier(cacheRepo, cfg.Notification.Channel),
	)
	notifications.Start(ctx)
	metrics.RegisterGauge("cancellation_queue_pending", "Cancellation notifications waiting for a worker", func() float64 {
		return float64(notifications.Stats().Pending)
	})

	bookingSvc := service.NewBookingService(bookingRepo, slotSvc, settingsSvc, availabilitySvc, notifications, metrics, auditRepo, validate, logr,
		service.BookingServiceConfig{AutoApprove: cfg.Booking.AutoApprove, Location: time.UTC})
	bulkSvc := service.NewBulkService(bookingSvc, settingsSvc, auditRepo, validate, logr)
	weekSvc := service.NewWeekService(settingsSvc, slotSvc, availabilitySvc, bookingSvc)
	exportSvc := service.NewExportService(bookingSvc, slotSvc, files,
		storage.NewSignedURLSigner(cfg.Export.SignedURLSecret, cfg.Export.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: 24 * time.Hour}, logr)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	}

	engine := router.New(router.Config{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		RateLimiter:    limiter,
		Settings:       handler.NewSettingsHandler(settingsSvc),
		TimeSlots:      handler.NewTimeSlotHandler(slotSvc, availabilitySvc),
		Bookings:       handler.NewBookingHandler(bookingSvc, bulkSvc),
		Exports:        handler.NewExportHandler(exportSvc),
		Weeks:          handler.NewWeekHandler(weekSvc),
		Ops: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": db,
			"redis":    handler.PingerFunc(cacheRepo.Ping),
		}),
	})

	go runExportCleanup(ctx, exportSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	notifications.Stop()
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("export cleanup", zap.Int("removed", len(removed)))
			}
		}
	}
}

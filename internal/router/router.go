package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/handler"
	"github.com/noah-isme/shift-booking-api/internal/middleware"
	"github.com/noah-isme/shift-booking-api/internal/service"
	"github.com/noah-isme/shift-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shift-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shift-booking-api/pkg/middleware/requestid"
)

// Config carries everything needed to mount the API.
type Config struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter

	Settings  *handler.SettingsHandler
	TimeSlots *handler.TimeSlotHandler
	Bookings  *handler.BookingHandler
	Exports   *handler.ExportHandler
	Weeks     *handler.WeekHandler
	Ops       *handler.MetricsHandler
}

// New builds the gin engine with every route of the API.
func New(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", cfg.Ops.Health)
	r.GET("/ready", cfg.Ops.Ready)
	r.GET("/metrics", cfg.Ops.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.RequestOrigin())

	// Signed links carry their own authorisation.
	api.GET("/export/:token", cfg.Exports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(cfg.Auth))
	admin := middleware.AdminOnly()
	writes := rateLimit(cfg.RateLimiter)

	authed.GET("/metrics/snapshot", admin, cfg.Ops.Snapshot)

	authed.GET("/settings", cfg.Settings.Get)
	authed.PUT("/settings", admin, cfg.Settings.Update)

	slots := authed.Group("/time-slots")
	slots.GET("", cfg.TimeSlots.List)
	slots.POST("", admin, cfg.TimeSlots.Create)
	slots.POST("/batch-availability", cfg.TimeSlots.BatchAvailability)
	slots.GET("/:id", cfg.TimeSlots.Get)
	slots.PUT("/:id", admin, cfg.TimeSlots.Update)
	slots.DELETE("/:id", admin, cfg.TimeSlots.Delete)
	slots.GET("/:id/limit", cfg.TimeSlots.GetLimit)
	slots.POST("/:id/limit", admin, cfg.TimeSlots.SetLimit)

	bookings := authed.Group("/bookings")
	bookings.POST("", writes, cfg.Bookings.Create)
	bookings.GET("", cfg.Bookings.List)
	bookings.POST("/bulk", admin, writes, cfg.Bookings.Bulk)
	bookings.GET("/export", admin, cfg.Exports.Roster)
	bookings.GET("/:id", cfg.Bookings.Get)
	bookings.PATCH("/:id/approve", admin, writes, cfg.Bookings.Approve)
	bookings.PATCH("/:id/reject", admin, writes, cfg.Bookings.Reject)
	bookings.DELETE("/:id", writes, cfg.Bookings.Cancel)

	authed.GET("/weeks", cfg.Weeks.View)

	return r
}

func rateLimit(limiter *middleware.RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return limiter.Middleware()
}

package routes

import (
	"net/http"

	"hydrolink-monitor/internal/config"
	"hydrolink-monitor/internal/database"
	"hydrolink-monitor/internal/delivery/http/handler"
	devicerepository "hydrolink-monitor/internal/device/repository"
	deviceservice "hydrolink-monitor/internal/device/service"
	"hydrolink-monitor/internal/history"
	"hydrolink-monitor/internal/logger"
	"hydrolink-monitor/internal/middleware"
	"hydrolink-monitor/internal/notification"
	"hydrolink-monitor/internal/telemetry"
	userservice "hydrolink-monitor/internal/user/service"

	"github.com/gin-gonic/gin"
)

// Dependencies carries the wired services the HTTP layer serves.
type Dependencies struct {
	Config            *config.Config
	DB                *database.Database
	UserService       *userservice.UserService
	DeviceRepo        *devicerepository.DeviceRepository
	DeviceService     *deviceservice.DeviceService
	HistoryRepo       history.Repository
	NotificationStore notification.Store
	Processor         *telemetry.Processor
}

func SetupRoutes(deps *Dependencies) *gin.Engine {
	cfg := deps.Config

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := deps.DB.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Processor.Metrics())
	})

	userHandler := handler.NewUserHandler(deps.UserService)
	deviceHandler := handler.NewDeviceHandler(deps.DeviceService)
	historyHandler := handler.NewHistoryHandler(deps.HistoryRepo, deps.DeviceRepo)
	notificationHandler := handler.NewNotificationHandler(deps.NotificationStore, deps.DeviceRepo)

	v1 := router.Group("/api/v1")
	{
		userHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			userHandler.RegisterProtectedRoutes(protected)
			deviceHandler.RegisterRoutes(protected)
			historyHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
		}
	}

	logger.Info("All routes initialized")
	return router
}

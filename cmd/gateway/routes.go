package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"gastro-analytics/config"
	"gastro-analytics/internal/database"
	"gastro-analytics/internal/gateway/handlers"
	"gastro-analytics/internal/gateway/middleware"
	"gastro-analytics/internal/reporting"
	"gastro-analytics/internal/variance"
)

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	categories := database.NewCategoryStore(db)
	thresholds := database.NewThresholdStore(db)

	tracker := variance.NewTracker(categories)
	if err := thresholds.LoadAll(bootCtx, tracker); err != nil {
		log.Fatalf("Failed to load thresholds: %v", err)
	}

	store := reporting.NewGormStore(db)
	notifier := reporting.NewRedisNotifier(redisClient)
	service := reporting.NewService(store, notifier, nil, cfg.Scheduler.ReportTimeout)
	if err := service.SeedDefaults(bootCtx); err != nil {
		log.Fatalf("Failed to seed defaults: %v", err)
	}

	authHandler := handlers.NewAuthHTTPHandler(cfg.Auth)
	varianceHandler := handlers.NewVarianceHTTPHandler(tracker, thresholds, redisClient)
	reportingHandler := handlers.NewReportingHTTPHandler(service)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(cfg.Gateway.RateLimit))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/token", authHandler.IssueToken)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth([]byte(cfg.Auth.JWTSecret)))
	{
		varianceGroup := protected.Group("/variance")
		{
			varianceGroup.PUT("/locations/:location/thresholds", varianceHandler.SetThresholds)
			varianceGroup.GET("/locations/:location/thresholds", varianceHandler.GetThresholds)
			varianceGroup.POST("/analyze", varianceHandler.Analyze)
			varianceGroup.GET("/locations/:location/analysis", varianceHandler.GetCachedAnalysis)
		}

		reports := protected.Group("/reports")
		{
			reports.POST("", reportingHandler.CreateReport)
			reports.GET("", reportingHandler.ListReports)
			reports.GET("/:id", reportingHandler.GetReport)
			reports.PUT("/:id", reportingHandler.UpdateReport)
			reports.DELETE("/:id", reportingHandler.DeleteReport)
			reports.POST("/:id/execute", reportingHandler.ExecuteReport)
			reports.GET("/:id/executions", reportingHandler.ListExecutions)
		}

		alerts := protected.Group("/alerts")
		{
			alerts.POST("", reportingHandler.CreateAlertRule)
			alerts.GET("", reportingHandler.ListAlertRules)
			alerts.GET("/:id", reportingHandler.GetAlertRule)
			alerts.POST("/check", reportingHandler.CheckAlerts)
			alerts.POST("/:id/resolve", reportingHandler.ResolveAlert)
		}

		analytics := protected.Group("/analytics")
		{
			analytics.GET("/reporting", reportingHandler.ReportingAnalytics)
		}
	}

	r.GET("/health", healthCheckHandler(db, redisClient))

	port := ":" + cfg.Gateway.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK

		unavailableServices := []string{}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			unavailableServices = append(unavailableServices, "database")
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			unavailableServices = append(unavailableServices, "redis")
		}

		if len(unavailableServices) > 0 {
			status = "degraded"
			httpStatus = http.StatusPartialContent
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailableServices,
			"timestamp":            time.Now(),
		})
	}
}

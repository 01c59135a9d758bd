package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"gastro-analytics/config"
	"gastro-analytics/internal/database"
	"gastro-analytics/internal/reporting"
)

const liveMetricsKey = "metrics:live"

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := reporting.NewGormStore(db)
	notifier := reporting.NewRedisNotifier(redisClient)
	service := reporting.NewService(store, notifier, nil, cfg.Scheduler.ReportTimeout)

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := service.SeedDefaults(bootCtx); err != nil {
		cancel()
		log.Fatalf("Failed to seed defaults: %v", err)
	}
	cancel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Scheduler.TickInterval)
	defer ticker.Stop()

	log.Printf("⏱ scheduler running, tick every %s", cfg.Scheduler.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler shutting down")
			return
		case now := <-ticker.C:
			tick(ctx, service, redisClient, now)
		}
	}
}

func tick(ctx context.Context, service *reporting.Service, redisClient *redis.Client, now time.Time) {
	runDueReports(ctx, service, now)
	checkLiveAlerts(ctx, service, redisClient)

	escalated, err := service.EscalateDueAlerts(ctx, now)
	if err != nil {
		log.Printf("escalation pass failed: %v", err)
	} else if len(escalated) > 0 {
		log.Printf("escalated %d alert(s)", len(escalated))
	}
}

func runDueReports(ctx context.Context, service *reporting.Service, now time.Time) {
	due, err := service.GetScheduledReports(ctx, reporting.ReportFilter{
		Status:    reporting.ReportStatusActive,
		DueBefore: &now,
	})
	if err != nil {
		log.Printf("failed to list due reports: %v", err)
		return
	}

	for _, report := range due {
		execution, err := service.ExecuteReport(ctx, report.ID)
		if err != nil {
			log.Printf("report %s execution error: %v", report.ID, err)
			continue
		}
		if execution.Status == reporting.ExecFailed {
			log.Printf("report %s failed: %s", report.ID, execution.ErrorMessage)
		} else {
			log.Printf("report %s completed in %dms, %d recipient(s) notified",
				report.ID, execution.DurationMs, execution.RecipientsNotified)
		}
	}
}

func checkLiveAlerts(ctx context.Context, service *reporting.Service, redisClient *redis.Client) {
	raw, err := redisClient.HGetAll(ctx, liveMetricsKey).Result()
	if err != nil {
		log.Printf("failed to read live metrics: %v", err)
		return
	}
	if len(raw) == 0 {
		return
	}

	metrics := make(map[string]float64, len(raw))
	for name, value := range raw {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.Printf("skipping metric %s: %v", name, err)
			continue
		}
		metrics[name] = parsed
	}

	triggered, err := service.CheckAlerts(ctx, metrics)
	if err != nil {
		log.Printf("alert check failed: %v", err)
		return
	}
	if len(triggered) > 0 {
		log.Printf("triggered %d alert(s)", len(triggered))
	}
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis     RedisConfig
	DB        DBConfig
	Auth      AuthConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Credentials the gateway accepts on /auth/token.
	ServiceUser     string
	ServicePassword string
}

type GatewayConfig struct {
	Port string
	// RateLimit uses the "<count>-<period>" format, e.g. "60-M".
	RateLimit string
}

type SchedulerConfig struct {
	TickInterval  time.Duration
	ReportTimeout time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, _ := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	tickSeconds, _ := strconv.Atoi(getEnv("SCHEDULER_TICK_SECONDS", "60"))
	reportTimeout, _ := strconv.Atoi(getEnv("REPORT_TIMEOUT_SECONDS", "30"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("ANALYTICS_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			TokenTTL:        time.Duration(tokenTTL) * time.Minute,
			ServiceUser:     getEnv("GATEWAY_USER", "analytics"),
			ServicePassword: getEnv("GATEWAY_PASSWORD", ""),
		},
		Gateway: GatewayConfig{
			Port:      getEnv("GATEWAY_PORT", "8080"),
			RateLimit: getEnv("GATEWAY_RATE_LIMIT", "60-M"),
		},
		Scheduler: SchedulerConfig{
			TickInterval:  time.Duration(tickSeconds) * time.Second,
			ReportTimeout: time.Duration(reportTimeout) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

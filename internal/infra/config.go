package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Store drivers understood by repo.Open.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config represents process configuration loaded once from the environment.
// It is constructed at process entry and passed to constructors by value or pointer;
// nothing reads the environment after LoadConfig returns.
type Config struct {
	AppEnv      string
	Port        string
	ServiceName string

	StoreDriver string
	DatabaseURL string

	PollInterval       time.Duration
	JobTimeout         time.Duration
	MaxStorageFailures int
	WorkerConcurrency  int
	WorkerID           string

	RedisURL     string
	RedisChannel string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from .env files and environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	// Missing .env files are fine.
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		ServiceName:        getEnv("SERVICE_NAME", "job-orchestrator"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JobTimeout:         getEnvDuration("JOB_TIMEOUT", 0),
		MaxStorageFailures: getEnvInt("WORKER_MAX_STORAGE_FAILURES", 10),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 1),
		WorkerID:           getEnv("WORKER_ID", defaultWorkerID()),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisChannel:       getEnv("REDIS_CHANNEL", "jobs:queued"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	poll, err := parseDuration("JOB_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.PollInterval = poll

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for store driver %q", cfg.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("JOB_POLL_INTERVAL must be positive")
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.MaxStorageFailures < 1 {
		cfg.MaxStorageFailures = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := parseDuration(key, fallback)
	if err != nil {
		return fallback
	}
	return d
}

// parseDuration accepts Go duration strings ("1500ms", "2s") or bare seconds.
func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

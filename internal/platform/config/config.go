package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers []string
	TopicPrefix  string

	ScraperBaseURL      string
	ScraperTimeout      time.Duration
	ScraperRetries      int
	ScrapeRatePerMinute int

	TrackingBatchSize   int
	TrackingConcurrency int
	TrackPending        bool

	CompletionThreshold decimal.Decimal
	MinimumPayout       decimal.Decimal
	SyncTolerance       decimal.Decimal
	EarningsMaxRetries  int
	CampaignLockTTL     time.Duration
	OutboxBatchSize     int

	ViewTrackingCron string
	ReconcileCron    string
	CompletionCron   string
	OutboxRelayCron  string

	EnableViewTrackingJob bool
	EnableReconcileJob    bool
	EnableCompletionJob   bool
	EnableOutboxRelay     bool
}

// Load reads .env files when present and then the process environment.
// A malformed numeric or decimal value is an error; an absent one takes the default.
func Load() (Config, error) {
	//nolint:errcheck
	godotenv.Load("../../.env")
	//nolint:errcheck
	godotenv.Load("./.env")

	var loadErr error
	collect := func(err error) {
		if err != nil && loadErr == nil {
			loadErr = err
		}
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}

	cfg := Config{
		ServiceName:  envString("SERVICE_NAME", "clipledger"),
		HTTPPort:     envString("HTTP_PORT", "8080"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: brokers,
		TopicPrefix:  envString("KAFKA_TOPIC_PREFIX", ""),

		ScraperBaseURL: os.Getenv("SCRAPER_BASE_URL"),
		TrackPending:   envBool("TRACK_PENDING_SUBMISSIONS", false),

		ViewTrackingCron: envString("VIEW_TRACKING_CRON", "@every 15m"),
		ReconcileCron:    envString("RECONCILE_CRON", "@every 1h"),
		CompletionCron:   envString("COMPLETION_CRON", "@every 5m"),
		OutboxRelayCron:  envString("OUTBOX_RELAY_CRON", "@every 10s"),

		EnableViewTrackingJob: envBool("ENABLE_VIEW_TRACKING_JOB", true),
		EnableReconcileJob:    envBool("ENABLE_RECONCILE_JOB", true),
		EnableCompletionJob:   envBool("ENABLE_COMPLETION_JOB", true),
		EnableOutboxRelay:     envBool("ENABLE_OUTBOX_RELAY", true),
	}

	var err error
	cfg.ScraperTimeout, err = envDuration("SCRAPER_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.ScraperRetries, err = envInt("SCRAPER_RETRIES", 2)
	collect(err)
	cfg.ScrapeRatePerMinute, err = envInt("SCRAPE_RATE_PER_MINUTE", 0)
	collect(err)
	cfg.TrackingBatchSize, err = envInt("VIEW_TRACKING_BATCH_SIZE", 100)
	collect(err)
	cfg.TrackingConcurrency, err = envInt("VIEW_TRACKING_CONCURRENCY", 4)
	collect(err)
	cfg.CompletionThreshold, err = envDecimal("COMPLETION_THRESHOLD", decimal.RequireFromString("0.99"))
	collect(err)
	cfg.MinimumPayout, err = envDecimal("MIN_PAYOUT_AMOUNT", decimal.NewFromInt(50))
	collect(err)
	cfg.SyncTolerance, err = envDecimal("SYNC_TOLERANCE", decimal.RequireFromString("0.01"))
	collect(err)
	cfg.EarningsMaxRetries, err = envInt("EARNINGS_MAX_RETRIES", 3)
	collect(err)
	cfg.CampaignLockTTL, err = envDuration("CAMPAIGN_LOCK_TTL", 30*time.Second)
	collect(err)
	cfg.OutboxBatchSize, err = envInt("OUTBOX_BATCH_SIZE", 100)
	collect(err)

	if loadErr != nil {
		return Config{}, loadErr
	}
	if cfg.CompletionThreshold.LessThanOrEqual(decimal.Zero) || cfg.CompletionThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("COMPLETION_THRESHOLD must be in (0, 1], got %s", cfg.CompletionThreshold)
	}
	return cfg, nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return value, nil
}

func envDecimal(name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", name, err)
	}
	return value, nil
}

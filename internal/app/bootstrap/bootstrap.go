package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	earnings "clipledger/contexts/finance-core/earnings-reconciliation"
	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/memory"
	postgresadapter "clipledger/contexts/finance-core/earnings-reconciliation/adapters/postgres"
	redisadapter "clipledger/contexts/finance-core/earnings-reconciliation/adapters/redis"
	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/scraper"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
	"clipledger/internal/platform/config"
	"clipledger/internal/platform/db"
	"clipledger/internal/platform/httpserver"
	"clipledger/internal/platform/messaging"
	"clipledger/internal/shared/events"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// Runtime is a fully wired earnings module plus the connections it owns.
type Runtime struct {
	Config   config.Config
	Module   earnings.Module
	Postgres *db.Postgres

	redis      *redis.Client
	kafka      *messaging.KafkaPublisher
	subscriber messaging.Subscriber
	logger     *slog.Logger
}

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
	logger  *slog.Logger
}

type WorkerApp struct {
	runtime *Runtime
	cron    *cron.Cron
	logger  *slog.Logger
}

// BuildRuntime connects Postgres, the optional Redis lock and rate limiter,
// the scraper service and the event publisher, then wires the module.
func BuildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if strings.TrimSpace(cfg.ScraperBaseURL) == "" {
		return nil, errors.New("SCRAPER_BASE_URL is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Postgres: pg, logger: logger}

	deps := earnings.Dependencies{
		Fetcher: scraper.NewUniformRouter(scraper.NewHTTPFetcher(cfg.ScraperBaseURL, cfg.ScraperTimeout, cfg.ScraperRetries)),
		Clock:   postgresadapter.SystemClock{},
		IDGen:   postgresadapter.UUIDGenerator{},
		Policy:  policyFromConfig(cfg),
		Logger:  logger,
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	deps.Campaigns = repo
	deps.Clips = repo
	deps.Earnings = repo
	deps.Submissions = repo
	deps.Tracking = repo
	deps.UserTotals = repo
	deps.Payouts = repo
	deps.Outbox = repo
	deps.OutboxRepo = repo

	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.redis = client
		deps.Locker = redisadapter.NewCampaignLocker(client, cfg.CampaignLockTTL, logger)
		deps.PayoutLock = redisadapter.NewUserPayoutLocker(client, cfg.CampaignLockTTL, logger)
		if cfg.ScrapeRatePerMinute > 0 {
			deps.RateLimiter = redisadapter.NewScrapeRateLimiter(client, cfg.ScrapeRatePerMinute)
		}
	} else {
		logger.Warn("REDIS_URL not set, campaign and payout locks are process-local",
			"event", "bootstrap_local_locker",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		deps.Locker = memory.NewKeyedLocker()
		deps.PayoutLock = memory.NewKeyedLocker()
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := messaging.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		subscriber, err := messaging.NewKafkaSubscriber(cfg.KafkaBrokers, logger)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.kafka = publisher
		rt.subscriber = subscriber
		deps.Publisher = publisher
	} else {
		bus := messaging.NewInProcessBus(logger)
		rt.subscriber = bus
		deps.Publisher = bus
	}

	rt.Module = earnings.NewModule(deps)
	return rt, nil
}

func policyFromConfig(cfg config.Config) earnings.Policy {
	return earnings.Policy{
		CompletionThreshold: cfg.CompletionThreshold,
		MinimumPayout:       cfg.MinimumPayout,
		SyncTolerance:       cfg.SyncTolerance,
		EarningsMaxRetries:  cfg.EarningsMaxRetries,
		TrackingBatchSize:   cfg.TrackingBatchSize,
		TrackingConcurrency: cfg.TrackingConcurrency,
		TrackPending:        cfg.TrackPending,
		ScrapeTimeout:       cfg.ScraperTimeout,
		OutboxBatchSize:     cfg.OutboxBatchSize,
		TopicPrefix:         cfg.TopicPrefix,
		DisablePipeline:     !cfg.EnableViewTrackingJob,
		DisableReconcile:    !cfg.EnableReconcileJob,
		DisableCompletion:   !cfg.EnableCompletionJob,
		DisableRelay:        !cfg.EnableOutboxRelay,
	}
}

func (r *Runtime) Close() error {
	var errs []error
	if r.kafka != nil {
		errs = append(errs, r.kafka.Close())
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
	}
	if r.Postgres != nil {
		errs = append(errs, r.Postgres.Close())
	}
	return errors.Join(errs...)
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	rt, err := BuildRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &APIApp{
		runtime: rt,
		server:  httpserver.New(rt.Module, logger, normalizeAddr(cfg.HTTPPort)),
		logger:  logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	rt, err := BuildRuntime(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		runtime: rt,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		logger: logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

type scheduledJob struct {
	name string
	spec string
	run  func(context.Context) error
}

// Run schedules the batch jobs and blocks until ctx is done. Each job is
// skipped while its previous run is still going.
func (w *WorkerApp) Run(ctx context.Context) error {
	cfg := w.runtime.Config
	jobs := w.runtime.Module.Workers
	scheduled := []scheduledJob{
		{name: "earnings_pipeline", spec: cfg.ViewTrackingCron, run: jobs.Pipeline.RunOnce},
		{name: "spend_reconcile", spec: cfg.ReconcileCron, run: jobs.Reconcile.RunOnce},
		{name: "completion_monitor", spec: cfg.CompletionCron, run: jobs.Completion.RunOnce},
		{name: "outbox_relay", spec: cfg.OutboxRelayCron, run: jobs.Relay.RunOnce},
	}
	for _, job := range scheduled {
		job := job
		if _, err := w.cron.AddFunc(job.spec, func() { w.runJob(ctx, job) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	if err := w.runtime.subscriber.Subscribe(ctx, cfg.TopicPrefix+"campaign.completed", cfg.ServiceName+"-completion-notices", w.noticeCompletion); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"jobs", len(scheduled),
	)
	w.cron.Start()
	<-ctx.Done()
	<-w.cron.Stop().Done()
	return nil
}

func (w *WorkerApp) runJob(ctx context.Context, job scheduledJob) {
	if ctx.Err() != nil {
		return
	}
	if err := job.run(ctx); err != nil {
		w.logger.Error("scheduled job failed",
			"event", "bootstrap_job_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"job", job.name,
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) noticeCompletion(_ context.Context, event events.Envelope) error {
	w.logger.Info("campaign completion published",
		"event", "campaign_completion_notice",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"campaign_id", event.PartitionKey,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

var _ ports.EventPublisher = (*messaging.InProcessBus)(nil)
var _ ports.EventPublisher = (*messaging.KafkaPublisher)(nil)

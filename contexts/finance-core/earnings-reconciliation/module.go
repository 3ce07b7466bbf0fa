package earningsreconciliation

import (
	"log/slog"
	"time"

	httpadapter "clipledger/contexts/finance-core/earnings-reconciliation/adapters/http"
	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/memory"
	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/queries"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/workers"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

type Module struct {
	Handler httpadapter.Handler
	Workers Workers
	Store   *memory.Store
}

// Workers are the periodic jobs a scheduler drives via RunOnce.
type Workers struct {
	Pipeline   workers.EarningsPipelineJob
	Reconcile  workers.SpendReconcileJob
	Completion workers.CompletionMonitorJob
	Relay      workers.OutboxRelay
}

// Policy carries the tunable thresholds. Zero values fall back to defaults.
type Policy struct {
	CompletionThreshold decimal.Decimal
	MinimumPayout       decimal.Decimal
	SyncTolerance       decimal.Decimal
	EarningsMaxRetries  int
	TrackingBatchSize   int
	TrackingConcurrency int
	TrackPending        bool
	ScrapeTimeout       time.Duration
	OutboxBatchSize     int
	TopicPrefix         string

	DisablePipeline   bool
	DisableReconcile  bool
	DisableCompletion bool
	DisableRelay      bool
}

type Dependencies struct {
	Campaigns   ports.CampaignRepository
	Clips       ports.ClipRepository
	Earnings    ports.EarningsRepository
	Submissions ports.SubmissionRepository
	Tracking    ports.ViewTrackingRepository
	UserTotals  ports.UserTotalsRepository
	Payouts     ports.PayoutRepository
	Outbox      ports.OutboxWriter
	OutboxRepo  ports.OutboxRepository
	Publisher   ports.EventPublisher
	Fetcher     ports.ViewCountFetcher
	RateLimiter ports.ScrapeRateLimiter
	Locker      ports.CampaignLocker
	PayoutLock  ports.UserLocker
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Policy      Policy
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	policy := deps.Policy

	trackViews := commands.TrackViewsUseCase{
		Tracking:      deps.Tracking,
		Clips:         deps.Clips,
		Fetcher:       deps.Fetcher,
		RateLimiter:   deps.RateLimiter,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		TrackPending:  policy.TrackPending,
		ScrapeTimeout: policy.ScrapeTimeout,
		Concurrency:   policy.TrackingConcurrency,
		Logger:        deps.Logger,
	}
	calculateEarnings := commands.CalculateEarningsUseCase{
		Clips:       deps.Clips,
		Submissions: deps.Submissions,
		Campaigns:   deps.Campaigns,
		Earnings:    deps.Earnings,
		Locker:      deps.Locker,
		Clock:       deps.Clock,
		MaxRetries:  policy.EarningsMaxRetries,
		Logger:      deps.Logger,
	}
	syncSpend := commands.SyncSpendUseCase{
		Campaigns:   deps.Campaigns,
		Earnings:    deps.Earnings,
		Submissions: deps.Submissions,
		Clips:       deps.Clips,
		UserTotals:  deps.UserTotals,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	completeCampaign := commands.CompleteCampaignUseCase{
		Campaigns: deps.Campaigns,
		Earnings:  deps.Earnings,
		Sync:      syncSpend,
		Locker:    deps.Locker,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Threshold: policy.CompletionThreshold,
		Logger:    deps.Logger,
	}
	balances := application.BalanceReader{
		Submissions: deps.Submissions,
		Clips:       deps.Clips,
		Payouts:     deps.Payouts,
	}
	markPaid := commands.MarkPaymentsPaidUseCase{
		Balances: balances,
		Payouts:  deps.Payouts,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	requestPayout := commands.RequestPayoutUseCase{
		Balances:      balances,
		Payouts:       deps.Payouts,
		Locker:        deps.PayoutLock,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		MinimumPayout: policy.MinimumPayout,
		Logger:        deps.Logger,
	}
	processPayout := commands.ProcessPayoutRequestUseCase{
		Payouts: deps.Payouts,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
	}
	reviewSubmission := commands.ReviewSubmissionUseCase{
		Submissions: deps.Submissions,
		Clips:       deps.Clips,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}

	pipeline := workers.EarningsPipelineJob{
		TrackViews:        trackViews,
		CalculateEarnings: calculateEarnings,
		Clips:             deps.Clips,
		Completion:        completeCampaign,
		BatchSize:         policy.TrackingBatchSize,
		Disabled:          policy.DisablePipeline,
		Logger:            deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			TrackViews:        trackViews,
			CalculateEarnings: calculateEarnings,
			SyncSpend:         syncSpend,
			CompleteCampaign:  completeCampaign,
			MarkPaymentsPaid:  markPaid,
			RequestPayout:     requestPayout,
			ProcessPayout:     processPayout,
			ReviewSubmission:  reviewSubmission,
			SyncStatus: queries.SyncStatusQuery{
				Campaigns: deps.Campaigns,
				Earnings:  deps.Earnings,
				Tolerance: policy.SyncTolerance,
			},
			PendingPayments: queries.PendingPaymentsQuery{
				Balances:      balances,
				MinimumPayout: policy.MinimumPayout,
			},
			ProcessedPayments: queries.ProcessedPaymentsQuery{Submissions: deps.Submissions},
			ViewHistory: queries.ViewHistoryQuery{
				Clips:    deps.Clips,
				Tracking: deps.Tracking,
			},
			UserEarnings: queries.UserEarningsQuery{
				Balances: balances,
				Totals:   deps.UserTotals,
			},
			Pipeline: pipeline,
			Logger:   deps.Logger,
		},
		Workers: Workers{
			Pipeline: pipeline,
			Reconcile: workers.SpendReconcileJob{
				Sync:     syncSpend,
				Disabled: policy.DisableReconcile,
				Logger:   deps.Logger,
			},
			Completion: workers.CompletionMonitorJob{
				Completion: completeCampaign,
				Disabled:   policy.DisableCompletion,
				Logger:     deps.Logger,
			},
			Relay: workers.OutboxRelay{
				Outbox:      deps.OutboxRepo,
				Publisher:   deps.Publisher,
				Clock:       deps.Clock,
				BatchSize:   policy.OutboxBatchSize,
				TopicPrefix: policy.TopicPrefix,
				Disabled:    policy.DisableRelay || deps.OutboxRepo == nil || deps.Publisher == nil,
				Logger:      deps.Logger,
			},
		},
	}
}

// NewInMemoryModule wires every port to one memory.Store and in-process
// campaign and payout lockers. publisher may be nil.
func NewInMemoryModule(
	seed memory.Seed,
	fetcher ports.ViewCountFetcher,
	publisher ports.EventPublisher,
	policy Policy,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Campaigns:   store,
		Clips:       store,
		Earnings:    store,
		Submissions: store,
		Tracking:    store,
		UserTotals:  store,
		Payouts:     store,
		Outbox:      store,
		OutboxRepo:  store,
		Publisher:   publisher,
		Fetcher:     fetcher,
		Locker:      memory.NewKeyedLocker(),
		PayoutLock:  memory.NewKeyedLocker(),
		Clock:       store,
		IDGen:       store,
		Policy:      policy,
		Logger:      logger,
	})
	module.Store = store
	return module
}

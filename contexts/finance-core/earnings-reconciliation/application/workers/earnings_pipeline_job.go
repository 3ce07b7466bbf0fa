package workers

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

const defaultPendingBatch = 100

// PipelineRun summarizes one earnings pipeline cycle.
type PipelineRun struct {
	Tracking           commands.TrackViewsResult
	EarningsCalculated int
	EarningsFailed     int
	CampaignsSynced    int
	CampaignsCompleted int
}

// EarningsPipelineJob runs tracking, earnings, reconciliation and completion
// in order. Scrapes finish before any campaign lock is taken. Clips still
// flagged earnings_pending from an earlier cycle are recalculated even when
// this cycle's scrape saw no change.
type EarningsPipelineJob struct {
	TrackViews        commands.TrackViewsUseCase
	CalculateEarnings commands.CalculateEarningsUseCase
	Clips             ports.ClipRepository
	Completion        commands.CompleteCampaignUseCase
	BatchSize         int
	Disabled          bool
	Logger            *slog.Logger
}

func (j EarningsPipelineJob) RunOnce(ctx context.Context) error {
	_, err := j.Run(ctx)
	return err
}

func (j EarningsPipelineJob) Run(ctx context.Context) (PipelineRun, error) {
	logger := application.ResolveLogger(j.Logger)
	if j.Disabled {
		logger.Info("earnings pipeline job disabled by feature flag",
			"event", "earnings_pipeline_disabled",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
		)
		return PipelineRun{}, nil
	}

	run := PipelineRun{}
	tracking, err := j.TrackViews.Execute(ctx, commands.TrackViewsCommand{BatchSize: j.BatchSize})
	run.Tracking = tracking
	if err != nil {
		logger.Error("earnings pipeline tracking failed",
			"event", "earnings_pipeline_tracking_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return run, err
	}

	touched := make(map[string]struct{})
	queue := make([]string, 0, len(tracking.UpdatedClips))
	queued := make(map[string]struct{}, len(tracking.UpdatedClips))
	for _, updated := range tracking.UpdatedClips {
		for _, campaignID := range updated.CampaignIDs {
			touched[campaignID] = struct{}{}
		}
		queued[updated.ClipID] = struct{}{}
		queue = append(queue, updated.ClipID)
	}
	for _, clipID := range j.pendingClips(ctx, logger) {
		if _, dup := queued[clipID]; dup {
			continue
		}
		queued[clipID] = struct{}{}
		queue = append(queue, clipID)
	}

	for _, clipID := range queue {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		result, err := j.CalculateEarnings.Execute(ctx, clipID)
		if errors.Is(err, domainerrors.ErrNoActiveSubmission) {
			continue
		}
		if err != nil {
			run.EarningsFailed++
			logger.Warn("earnings pipeline clip calculation failed",
				"event", "earnings_pipeline_clip_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "worker",
				"clip_id", clipID,
				"error", err.Error(),
			)
			continue
		}
		run.EarningsCalculated++
		if result.CampaignID != "" {
			touched[result.CampaignID] = struct{}{}
		}
	}

	campaignIDs := make([]string, 0, len(touched))
	for campaignID := range touched {
		campaignIDs = append(campaignIDs, campaignID)
	}
	sort.Strings(campaignIDs)
	for _, campaignID := range campaignIDs {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		// Evaluate reconciles before it checks completion triggers.
		result, err := j.Completion.Evaluate(ctx, campaignID)
		if err != nil {
			logger.Error("earnings pipeline campaign reconcile failed",
				"event", "earnings_pipeline_reconcile_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "worker",
				"campaign_id", campaignID,
				"error", err.Error(),
			)
			continue
		}
		run.CampaignsSynced++
		if result.Completed {
			run.CampaignsCompleted++
		}
	}

	if run.Tracking.Processed > 0 || len(queue) > 0 {
		logger.Info("earnings pipeline cycle completed",
			"event", "earnings_pipeline_cycle_completed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"processed", run.Tracking.Processed,
			"earnings_calculated", run.EarningsCalculated,
			"earnings_failed", run.EarningsFailed,
			"campaigns_synced", run.CampaignsSynced,
			"campaigns_completed", run.CampaignsCompleted,
		)
	}
	return run, nil
}

// pendingClips lists clips whose last calculation did not complete. A listing
// error only delays the retry to the next cycle.
func (j EarningsPipelineJob) pendingClips(ctx context.Context, logger *slog.Logger) []string {
	if j.Clips == nil {
		return nil
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = defaultPendingBatch
	}
	clips, err := j.Clips.ListEarningsPending(ctx, limit)
	if err != nil {
		logger.Warn("earnings pipeline pending clips unavailable",
			"event", "earnings_pipeline_pending_list_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return nil
	}
	ids := make([]string, 0, len(clips))
	for _, clip := range clips {
		ids = append(ids, clip.ClipID)
	}
	return ids
}

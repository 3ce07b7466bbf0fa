package workers

import (
	"context"
	"log/slog"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
)

// CompletionMonitorJob activates scheduled campaigns whose start date has
// arrived, then completes active campaigns that hit a trigger.
type CompletionMonitorJob struct {
	Completion commands.CompleteCampaignUseCase
	Disabled   bool
	Logger     *slog.Logger
}

func (j CompletionMonitorJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	if j.Disabled {
		logger.Info("completion monitor job disabled by feature flag",
			"event", "completion_monitor_disabled",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
		)
		return nil
	}

	activated, err := j.Completion.ActivateScheduled(ctx)
	if err != nil {
		logger.Error("scheduled campaign activation failed",
			"event", "campaign_activation_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	sweep, err := j.Completion.EvaluateActive(ctx)
	if err != nil {
		logger.Error("completion sweep failed",
			"event", "completion_sweep_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(activated) > 0 || len(sweep.Completed) > 0 {
		logger.Info("completion monitor cycle completed",
			"event", "completion_monitor_completed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"activated", len(activated),
			"evaluated", sweep.Evaluated,
			"completed", len(sweep.Completed),
			"failed", sweep.Failed,
		)
	}
	return nil
}

package workers

import (
	"context"
	"log/slog"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
)

// SpendReconcileJob re-derives every campaign's spent from clip earnings.
type SpendReconcileJob struct {
	Sync     commands.SyncSpendUseCase
	Disabled bool
	Logger   *slog.Logger
}

func (j SpendReconcileJob) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	if j.Disabled {
		logger.Info("spend reconcile job disabled by feature flag",
			"event", "spend_reconcile_disabled",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
		)
		return nil
	}
	result, err := j.Sync.SyncAllCampaigns(ctx)
	if err != nil {
		logger.Error("spend reconcile cycle failed",
			"event", "spend_reconcile_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if result.Corrected > 0 || result.Failed > 0 {
		logger.Info("spend reconcile cycle completed",
			"event", "spend_reconcile_completed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"corrected", result.Corrected,
			"failed", result.Failed,
			"total_difference", result.TotalDifference.StringFixed(2),
		)
	}
	return nil
}

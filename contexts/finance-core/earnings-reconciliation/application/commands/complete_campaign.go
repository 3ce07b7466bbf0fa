package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

const adminActor = "admin"

type CompleteCampaignCommand struct {
	CampaignID string
	Reason     string
	ActorID    string
}

// CompletionResult is the final budget status of one campaign after an
// evaluation or a forced completion.
type CompletionResult struct {
	CampaignID       string
	Title            string
	Status           entities.CampaignStatus
	Completed        bool
	Trigger          services.CompletionTrigger
	CompletionReason string
	CompletedAt      *time.Time
	Budget           decimal.Decimal
	Spent            decimal.Decimal
	Remaining        decimal.Decimal
	Utilization      decimal.Decimal
	Sync             SyncCampaignResult
	Clips            []ports.ClipEarningsLine
}

type CompletionSweepResult struct {
	Evaluated int
	Completed []CompletionResult
	Failed    int
}

// CompleteCampaignUseCase drives the ACTIVE -> COMPLETED transition, both
// automatic (budget threshold or deadline) and admin forced.
type CompleteCampaignUseCase struct {
	Campaigns ports.CampaignRepository
	Earnings  ports.EarningsRepository
	Sync      SyncSpendUseCase
	Locker    ports.CampaignLocker
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Threshold decimal.Decimal
	Logger    *slog.Logger
}

// Complete forces completion of an active or paused campaign.
func (uc CompleteCampaignUseCase) Complete(ctx context.Context, cmd CompleteCampaignCommand) (CompletionResult, error) {
	campaignID := strings.TrimSpace(cmd.CampaignID)
	if campaignID == "" {
		return CompletionResult{}, domainerrors.ErrInvalidInput
	}
	unlock, err := uc.lock(ctx, campaignID)
	if err != nil {
		return CompletionResult{}, err
	}
	defer unlock()

	campaign, err := uc.Campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return CompletionResult{}, err
	}
	if campaign.Status != entities.CampaignStatusActive && campaign.Status != entities.CampaignStatusPaused {
		return CompletionResult{}, domainerrors.ErrInvalidStateTransition
	}
	actor := strings.TrimSpace(cmd.ActorID)
	if actor == "" {
		actor = adminActor
	}
	return uc.complete(ctx, campaign, services.CompletionTriggerManual, cmd.Reason, actor)
}

// Evaluate reconciles one campaign and completes it when a trigger applies.
func (uc CompleteCampaignUseCase) Evaluate(ctx context.Context, campaignID string) (CompletionResult, error) {
	campaignID = strings.TrimSpace(campaignID)
	unlock, err := uc.lock(ctx, campaignID)
	if err != nil {
		return CompletionResult{}, err
	}
	defer unlock()

	sync, err := uc.Sync.SyncCampaign(ctx, campaignID)
	if err != nil {
		return CompletionResult{}, err
	}
	campaign, err := uc.Campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return CompletionResult{}, err
	}

	now := uc.Clock.Now().UTC()
	trigger := services.EvaluateCompletion(campaign, now, uc.Threshold)
	if trigger == services.CompletionTriggerNone {
		result := summarize(campaign)
		result.Sync = sync
		return result, nil
	}
	return uc.complete(ctx, campaign, trigger, "", "system")
}

// EvaluateActive runs Evaluate over every active campaign. One failing
// campaign does not stop the sweep.
func (uc CompleteCampaignUseCase) EvaluateActive(ctx context.Context) (CompletionSweepResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaigns, err := uc.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{
		Statuses: []entities.CampaignStatus{entities.CampaignStatusActive},
	})
	if err != nil {
		return CompletionSweepResult{}, err
	}

	sweep := CompletionSweepResult{}
	for _, campaign := range campaigns {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}
		sweep.Evaluated++
		result, err := uc.Evaluate(ctx, campaign.CampaignID)
		if err != nil {
			sweep.Failed++
			logger.Error("campaign completion evaluation failed",
				"event", "campaign_completion_evaluation_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "application",
				"campaign_id", campaign.CampaignID,
				"error", err.Error(),
			)
			continue
		}
		if result.Completed {
			sweep.Completed = append(sweep.Completed, result)
		}
	}
	return sweep, nil
}

// ActivateScheduled moves scheduled campaigns whose start date has arrived
// to ACTIVE and returns their ids.
func (uc CompleteCampaignUseCase) ActivateScheduled(ctx context.Context) ([]string, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaigns, err := uc.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{
		Statuses: []entities.CampaignStatus{entities.CampaignStatusScheduled},
	})
	if err != nil {
		return nil, err
	}

	now := uc.Clock.Now().UTC()
	activated := make([]string, 0)
	for _, campaign := range campaigns {
		if !campaign.StartReached(now) {
			continue
		}
		from := campaign.Status
		campaign.Status = entities.CampaignStatusActive
		campaign.UpdatedAt = now
		if err := uc.Campaigns.UpdateCampaignStatus(ctx, campaign); err != nil {
			return activated, err
		}
		if err := uc.appendState(ctx, campaign.CampaignID, from, campaign.Status, "system", "start date reached", now); err != nil {
			return activated, err
		}
		if err := application.AppendEvent(ctx, uc.Outbox, uc.IDGen,
			"campaign.activated", "campaign_id", campaign.CampaignID, now,
			map[string]any{
				"campaign_id":  campaign.CampaignID,
				"activated_at": now.Format(time.RFC3339),
			},
		); err != nil {
			return activated, err
		}
		activated = append(activated, campaign.CampaignID)
		logger.Info("scheduled campaign activated",
			"event", "campaign_activated",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"campaign_id", campaign.CampaignID,
		)
	}
	return activated, nil
}

// complete runs the final reconciliation pass, stamps the completion and
// itemizes per-clip earnings. The caller holds the campaign lock.
func (uc CompleteCampaignUseCase) complete(
	ctx context.Context,
	campaign entities.Campaign,
	trigger services.CompletionTrigger,
	manualReason string,
	actor string,
) (CompletionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	sync, err := uc.Sync.SyncCampaign(ctx, campaign.CampaignID)
	if err != nil {
		return CompletionResult{}, err
	}
	campaign.Spent = sync.NewSpent

	now := uc.Clock.Now().UTC()
	from := campaign.Status
	campaign.Status = entities.CampaignStatusCompleted
	campaign.CompletedAt = &now
	campaign.CompletionReason = services.CompletionReason(trigger, campaign, manualReason)
	campaign.UpdatedAt = now
	if err := uc.Campaigns.UpdateCampaignStatus(ctx, campaign); err != nil {
		return CompletionResult{}, err
	}
	if err := uc.appendState(ctx, campaign.CampaignID, from, campaign.Status, actor, campaign.CompletionReason, now); err != nil {
		return CompletionResult{}, err
	}
	if err := application.AppendEvent(ctx, uc.Outbox, uc.IDGen,
		"campaign.completed", "campaign_id", campaign.CampaignID, now,
		map[string]any{
			"campaign_id":       campaign.CampaignID,
			"trigger":           string(trigger),
			"completion_reason": campaign.CompletionReason,
			"budget":            campaign.Budget.StringFixed(services.MoneyPlaces),
			"spent":             campaign.Spent.StringFixed(services.MoneyPlaces),
			"completed_at":      now.Format(time.RFC3339),
		},
	); err != nil {
		return CompletionResult{}, err
	}

	lines, err := uc.Earnings.ListCampaignClipEarnings(ctx, campaign.CampaignID)
	if err != nil {
		return CompletionResult{}, err
	}

	result := summarize(campaign)
	result.Completed = true
	result.Trigger = trigger
	result.Sync = sync
	result.Clips = lines

	logger.Info("campaign completed",
		"event", "campaign_completed",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"trigger", string(trigger),
		"spent", campaign.Spent.StringFixed(services.MoneyPlaces),
		"budget", campaign.Budget.StringFixed(services.MoneyPlaces),
	)
	return result, nil
}

func (uc CompleteCampaignUseCase) lock(ctx context.Context, campaignID string) (func(), error) {
	if uc.Locker == nil {
		return func() {}, nil
	}
	unlock, err := uc.Locker.Lock(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrLockNotAcquired, err)
	}
	return unlock, nil
}

func (uc CompleteCampaignUseCase) appendState(
	ctx context.Context,
	campaignID string,
	from entities.CampaignStatus,
	to entities.CampaignStatus,
	actor string,
	reason string,
	now time.Time,
) error {
	historyID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	return uc.Campaigns.AppendState(ctx, entities.StateHistory{
		HistoryID:    historyID,
		CampaignID:   campaignID,
		FromState:    from,
		ToState:      to,
		ChangedBy:    actor,
		ChangeReason: reason,
		CreatedAt:    now,
	})
}

func summarize(campaign entities.Campaign) CompletionResult {
	return CompletionResult{
		CampaignID:       campaign.CampaignID,
		Title:            campaign.Title,
		Status:           campaign.Status,
		CompletionReason: campaign.CompletionReason,
		CompletedAt:      campaign.CompletedAt,
		Budget:           campaign.Budget,
		Spent:            campaign.Spent,
		Remaining:        campaign.Remaining(),
		Utilization:      campaign.Utilization(),
	}
}

package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

type SyncCampaignResult struct {
	CampaignID         string
	Title              string
	OldSpent           decimal.Decimal
	NewSpent           decimal.Decimal
	Difference         decimal.Decimal
	Budget             decimal.Decimal
	ApprovedClipsCount int
	OverBudget         bool
	Error              string
}

type SyncAllResult struct {
	Campaigns       []SyncCampaignResult
	TotalCampaigns  int
	Corrected       int
	Failed          int
	TotalDifference decimal.Decimal
}

// SyncSpendUseCase overwrites campaign.spent with the sum of its clips'
// earnings and refreshes the affected users' denormalized totals.
type SyncSpendUseCase struct {
	Campaigns   ports.CampaignRepository
	Earnings    ports.EarningsRepository
	Submissions ports.SubmissionRepository
	Clips       ports.ClipRepository
	UserTotals  ports.UserTotalsRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc SyncSpendUseCase) SyncCampaign(ctx context.Context, campaignID string) (SyncCampaignResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID = strings.TrimSpace(campaignID)
	result := SyncCampaignResult{CampaignID: campaignID}

	campaign, err := uc.Campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Title = campaign.Title
	result.Budget = campaign.Budget
	result.OldSpent = campaign.Spent

	spent, clips, err := uc.Earnings.SumCampaignEarnings(ctx, campaignID, "")
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	now := uc.Clock.Now().UTC()
	if err := uc.Campaigns.OverwriteSpent(ctx, campaignID, spent, now); err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.NewSpent = spent
	result.Difference = spent.Sub(campaign.Spent)
	result.ApprovedClipsCount = clips
	result.OverBudget = spent.GreaterThan(campaign.Budget)

	if !result.Difference.IsZero() {
		logger.Warn("campaign spend drift corrected",
			"event", "campaign_spend_drift_corrected",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"campaign_id", campaignID,
			"old_spent", result.OldSpent.StringFixed(services.MoneyPlaces),
			"new_spent", result.NewSpent.StringFixed(services.MoneyPlaces),
			"difference", result.Difference.StringFixed(services.MoneyPlaces),
		)
		if err := application.AppendEvent(ctx, uc.Outbox, uc.IDGen,
			"campaign.spend_synced", "campaign_id", campaignID, now,
			map[string]any{
				"campaign_id": campaignID,
				"old_spent":   result.OldSpent.StringFixed(services.MoneyPlaces),
				"new_spent":   result.NewSpent.StringFixed(services.MoneyPlaces),
				"difference":  result.Difference.StringFixed(services.MoneyPlaces),
			},
		); err != nil {
			result.Error = err.Error()
			return result, err
		}
	}
	if result.OverBudget {
		logger.Warn("campaign spend exceeds budget after reconciliation",
			"event", "campaign_spend_over_budget",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"campaign_id", campaignID,
			"spent", spent.StringFixed(services.MoneyPlaces),
			"budget", campaign.Budget.StringFixed(services.MoneyPlaces),
		)
	}

	if err := uc.refreshUserTotals(ctx, campaignID); err != nil {
		result.Error = err.Error()
		return result, err
	}
	return result, nil
}

func (uc SyncSpendUseCase) SyncAllCampaigns(ctx context.Context) (SyncAllResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaigns, err := uc.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{})
	if err != nil {
		return SyncAllResult{}, err
	}

	result := SyncAllResult{TotalDifference: decimal.Zero}
	for _, campaign := range campaigns {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item, err := uc.SyncCampaign(ctx, campaign.CampaignID)
		result.TotalCampaigns++
		if err != nil {
			result.Failed++
			logger.Error("campaign spend sync failed",
				"event", "campaign_spend_sync_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "application",
				"campaign_id", campaign.CampaignID,
				"error", err.Error(),
			)
		} else if !item.Difference.IsZero() {
			result.Corrected++
			result.TotalDifference = result.TotalDifference.Add(item.Difference)
		}
		result.Campaigns = append(result.Campaigns, item)
	}

	logger.Info("campaign spend sync completed",
		"event", "campaign_spend_sync_completed",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"campaigns", result.TotalCampaigns,
		"corrected", result.Corrected,
		"failed", result.Failed,
	)
	return result, nil
}

// refreshUserTotals recomputes totals for every user with a submission in
// the campaign, across all of that user's approved and paid submissions.
func (uc SyncSpendUseCase) refreshUserTotals(ctx context.Context, campaignID string) error {
	if uc.UserTotals == nil || uc.Submissions == nil || uc.Clips == nil {
		return nil
	}
	inCampaign, err := uc.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{CampaignID: campaignID})
	if err != nil {
		return err
	}
	userSet := make(map[string]struct{})
	for _, item := range inCampaign {
		userSet[item.UserID] = struct{}{}
	}
	if len(userSet) == 0 {
		return nil
	}
	userIDs := make([]string, 0, len(userSet))
	for userID := range userSet {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	earning, err := uc.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{
		UserIDs: userIDs,
		Statuses: []entities.SubmissionStatus{
			entities.SubmissionStatusApproved,
			entities.SubmissionStatusPaid,
		},
	})
	if err != nil {
		return err
	}

	totals := make(map[string]*entities.UserTotals, len(userIDs))
	for _, userID := range userIDs {
		totals[userID] = &entities.UserTotals{UserID: userID}
	}
	seen := make(map[string]struct{})
	for _, submission := range earning {
		if !submission.CountsTowardSpend() {
			continue
		}
		key := submission.CampaignID + "/" + submission.ClipID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		clip, err := uc.Clips.GetClip(ctx, submission.ClipID)
		if err != nil {
			return err
		}
		total := totals[submission.UserID]
		total.TotalViews += services.ViewsGained(clip.Views, submission.InitialViews)
		total.TotalEarnings = total.TotalEarnings.Add(clip.Earnings)
	}

	now := uc.Clock.Now().UTC()
	for _, userID := range userIDs {
		total := totals[userID]
		total.UpdatedAt = now
		if err := uc.UserTotals.SaveUserTotals(ctx, *total); err != nil {
			return err
		}
	}
	return nil
}

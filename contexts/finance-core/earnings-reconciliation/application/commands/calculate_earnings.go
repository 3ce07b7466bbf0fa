package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

const defaultEarningsMaxRetries = 3

type EarningsResult struct {
	ClipID           string
	SubmissionID     string
	CampaignID       string
	Success          bool
	Skipped          bool
	Earnings         decimal.Decimal
	PreviousEarnings decimal.Decimal
	Delta            decimal.Decimal
	Views            int64
	ViewsGained      int64
	RawEarnings      decimal.Decimal
	RemainingBudget  decimal.Decimal
	Capped           bool
	Error            string
}

// CalculateEarningsUseCase converts a clip's trusted view delta into earnings
// at the campaign payout rate, clamped to the campaign's remaining budget.
type CalculateEarningsUseCase struct {
	Clips       ports.ClipRepository
	Submissions ports.SubmissionRepository
	Campaigns   ports.CampaignRepository
	Earnings    ports.EarningsRepository
	Locker      ports.CampaignLocker
	Clock       ports.Clock
	MaxRetries  int
	Logger      *slog.Logger
}

func (uc CalculateEarningsUseCase) Execute(ctx context.Context, clipID string) (EarningsResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	clipID = strings.TrimSpace(clipID)
	result := EarningsResult{ClipID: clipID}

	clip, err := uc.Clips.GetClip(ctx, clipID)
	if err != nil {
		return failed(result, err)
	}
	links, err := uc.spendLinks(ctx, clip.ClipID)
	if err != nil {
		return failed(result, err)
	}
	submission, ok := activeSubmission(links)
	if !ok {
		// Nothing can earn for this clip, so its marker must not keep it queued.
		uc.clearPending(ctx, clip.ClipID, clip.Views)
		return failed(result, domainerrors.ErrNoActiveSubmission)
	}
	result.SubmissionID = submission.SubmissionID
	result.CampaignID = submission.CampaignID

	if uc.Locker != nil {
		for _, campaignID := range linkedCampaigns(links) {
			unlock, err := uc.Locker.Lock(ctx, campaignID)
			if err != nil {
				return failed(result, fmt.Errorf("%w: %v", domainerrors.ErrLockNotAcquired, err))
			}
			defer unlock()
		}
	}

	retries := uc.MaxRetries
	if retries <= 0 {
		retries = defaultEarningsMaxRetries
	}
	for attempt := 0; attempt <= retries; attempt++ {
		result, err = uc.attempt(ctx, result, submission)
		if errors.Is(err, domainerrors.ErrEarningsConflict) {
			logger.Warn("clip earnings write conflicted, retrying",
				"event", "clip_earnings_conflict",
				"module", "finance-core/earnings-reconciliation",
				"layer", "application",
				"clip_id", clipID,
				"campaign_id", submission.CampaignID,
				"attempt", attempt+1,
			)
			continue
		}
		if err == nil {
			uc.clearPending(ctx, clipID, result.Views)
		}
		return result, err
	}
	logger.Error("clip earnings retries exhausted",
		"event", "clip_earnings_retries_exhausted",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"clip_id", clipID,
		"campaign_id", submission.CampaignID,
	)
	return failed(result, domainerrors.ErrEarningsConflict)
}

// attempt runs one read-compute-write pass. Campaigns, clip and the other
// clips' sums are re-read every time so a retry sees the conflicting write.
func (uc CalculateEarningsUseCase) attempt(
	ctx context.Context,
	result EarningsResult,
	submission entities.ClipSubmission,
) (EarningsResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	campaign, err := uc.Campaigns.GetCampaign(ctx, submission.CampaignID)
	if err != nil {
		return failed(result, err)
	}
	clip, err := uc.Clips.GetClip(ctx, result.ClipID)
	if err != nil {
		return failed(result, err)
	}
	result.Views = clip.Views
	result.PreviousEarnings = clip.Earnings
	result.Earnings = clip.Earnings
	result.ViewsGained = services.ViewsGained(clip.Views, submission.InitialViews)

	if !campaign.AcceptsEarnings() {
		result.Success = true
		result.Skipped = true
		result.Delta = decimal.Zero
		return result, nil
	}

	// clip.earnings lands in the spent of every campaign the clip counts
	// toward, so the tightest of those budgets is the cap.
	links, err := uc.spendLinks(ctx, clip.ClipID)
	if err != nil {
		return failed(result, err)
	}
	budgets := []ports.CampaignBudget{{CampaignID: campaign.CampaignID, Budget: campaign.Budget}}
	others, _, err := uc.Earnings.SumCampaignEarnings(ctx, campaign.CampaignID, clip.ClipID)
	if err != nil {
		return failed(result, err)
	}
	budget := campaign.Budget
	for _, campaignID := range linkedCampaigns(links) {
		if campaignID == campaign.CampaignID {
			continue
		}
		linked, err := uc.Campaigns.GetCampaign(ctx, campaignID)
		if err != nil {
			return failed(result, err)
		}
		linkedOthers, _, err := uc.Earnings.SumCampaignEarnings(ctx, campaignID, clip.ClipID)
		if err != nil {
			return failed(result, err)
		}
		budgets = append(budgets, ports.CampaignBudget{CampaignID: campaignID, Budget: linked.Budget})
		if linked.Budget.Sub(linkedOthers).LessThan(budget.Sub(others)) {
			budget = linked.Budget
			others = linkedOthers
		}
	}

	decision := services.DecideEarnings(services.EarningsInput{
		CurrentViews:       clip.Views,
		InitialViews:       submission.InitialViews,
		PayoutRate:         campaign.PayoutRate,
		Budget:             budget,
		OtherClipsEarnings: others,
		StoredEarnings:     clip.Earnings,
		FirstCalculation:   !clip.EarningsCalculated,
	})
	result.ViewsGained = decision.ViewsGained
	result.RawEarnings = decision.RawEarnings
	result.RemainingBudget = decision.RemainingBudget
	result.Capped = decision.Capped
	result.Earnings = decision.Final
	result.Delta = decision.Delta

	if !decision.Persist {
		result.Success = true
		return result, nil
	}

	now := uc.Clock.Now().UTC()
	if err := uc.Earnings.SaveClipEarnings(ctx, ports.ClipEarningsWrite{
		ClipID:    clip.ClipID,
		Previous:  clip.Earnings,
		Earnings:  decision.Final,
		Budgets:   budgets,
		UpdatedAt: now,
	}); err != nil {
		if errors.Is(err, domainerrors.ErrEarningsConflict) {
			return result, err
		}
		return failed(result, err)
	}

	submission.RaisePayout(decision.Final)
	submission.UpdatedAt = now
	if err := uc.Submissions.UpdateSubmission(ctx, submission); err != nil {
		return failed(result, err)
	}

	result.Success = true
	logger.Info("clip earnings calculated",
		"event", "clip_earnings_calculated",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"clip_id", clip.ClipID,
		"campaign_id", campaign.CampaignID,
		"linked_campaigns", len(budgets),
		"views_gained", decision.ViewsGained,
		"earnings", decision.Final.StringFixed(services.MoneyPlaces),
		"delta", decision.Delta.StringFixed(services.MoneyPlaces),
		"capped", decision.Capped,
	)
	return result, nil
}

// spendLinks lists the submissions through which clip earnings count toward
// a campaign's spent.
func (uc CalculateEarningsUseCase) spendLinks(ctx context.Context, clipID string) ([]entities.ClipSubmission, error) {
	return uc.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{
		ClipID: clipID,
		Statuses: []entities.SubmissionStatus{
			entities.SubmissionStatusApproved,
			entities.SubmissionStatusPaid,
		},
	})
}

func (uc CalculateEarningsUseCase) clearPending(ctx context.Context, clipID string, views int64) {
	if err := uc.Clips.ClearEarningsPending(ctx, clipID, views); err != nil {
		application.ResolveLogger(uc.Logger).Warn("clip earnings marker not cleared",
			"event", "clip_earnings_pending_clear_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "application",
			"clip_id", clipID,
			"error", err.Error(),
		)
	}
}

// activeSubmission picks the most recently approved submission for a clip.
func activeSubmission(links []entities.ClipSubmission) (entities.ClipSubmission, bool) {
	var active entities.ClipSubmission
	found := false
	for _, item := range links {
		if item.Status != entities.SubmissionStatusApproved {
			continue
		}
		if !found || approvedAfter(item, active) {
			active = item
			found = true
		}
	}
	return active, found
}

// linkedCampaigns returns the distinct campaign ids in sorted order, which is
// also the lock order.
func linkedCampaigns(links []entities.ClipSubmission) []string {
	ids := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, item := range links {
		if _, dup := seen[item.CampaignID]; dup {
			continue
		}
		seen[item.CampaignID] = struct{}{}
		ids = append(ids, item.CampaignID)
	}
	sort.Strings(ids)
	return ids
}

func approvedAfter(a entities.ClipSubmission, b entities.ClipSubmission) bool {
	if a.ApprovedAt == nil {
		return false
	}
	if b.ApprovedAt == nil {
		return true
	}
	return a.ApprovedAt.After(*b.ApprovedAt)
}

func failed(result EarningsResult, err error) (EarningsResult, error) {
	result.Success = false
	result.Error = err.Error()
	return result, err
}

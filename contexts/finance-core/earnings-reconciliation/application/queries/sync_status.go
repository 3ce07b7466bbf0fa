package queries

import (
	"context"
	"strings"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

// DefaultSyncTolerance is the one-cent slack below which drift is ignored.
var DefaultSyncTolerance = decimal.RequireFromString("0.01")

type CampaignSyncStatus struct {
	CampaignID         string
	Title              string
	Status             entities.CampaignStatus
	Budget             decimal.Decimal
	StoredSpent        decimal.Decimal
	ActualSpent        decimal.Decimal
	Difference         decimal.Decimal
	ApprovedClipsCount int
	NeedsSync          bool
	OverBudget         bool
}

type SyncStatusResult struct {
	Campaigns      []CampaignSyncStatus
	TotalCampaigns int
	NeedingSync    int
}

// SyncStatusQuery previews spend drift without writing anything.
type SyncStatusQuery struct {
	Campaigns ports.CampaignRepository
	Earnings  ports.EarningsRepository
	Tolerance decimal.Decimal
}

func (q SyncStatusQuery) Execute(ctx context.Context) (SyncStatusResult, error) {
	campaigns, err := q.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{})
	if err != nil {
		return SyncStatusResult{}, err
	}
	result := SyncStatusResult{Campaigns: make([]CampaignSyncStatus, 0, len(campaigns))}
	for _, campaign := range campaigns {
		item, err := q.status(ctx, campaign)
		if err != nil {
			return SyncStatusResult{}, err
		}
		result.TotalCampaigns++
		if item.NeedsSync {
			result.NeedingSync++
		}
		result.Campaigns = append(result.Campaigns, item)
	}
	return result, nil
}

func (q SyncStatusQuery) Campaign(ctx context.Context, campaignID string) (CampaignSyncStatus, error) {
	campaign, err := q.Campaigns.GetCampaign(ctx, strings.TrimSpace(campaignID))
	if err != nil {
		return CampaignSyncStatus{}, err
	}
	return q.status(ctx, campaign)
}

func (q SyncStatusQuery) status(ctx context.Context, campaign entities.Campaign) (CampaignSyncStatus, error) {
	actual, clips, err := q.Earnings.SumCampaignEarnings(ctx, campaign.CampaignID, "")
	if err != nil {
		return CampaignSyncStatus{}, err
	}
	tolerance := q.Tolerance
	if tolerance.IsNegative() || tolerance.IsZero() {
		tolerance = DefaultSyncTolerance
	}
	difference := actual.Sub(campaign.Spent)
	return CampaignSyncStatus{
		CampaignID:         campaign.CampaignID,
		Title:              campaign.Title,
		Status:             campaign.Status,
		Budget:             campaign.Budget,
		StoredSpent:        campaign.Spent,
		ActualSpent:        actual,
		Difference:         difference,
		ApprovedClipsCount: clips,
		NeedsSync:          difference.Abs().GreaterThan(tolerance),
		OverBudget:         actual.GreaterThan(campaign.Budget),
	}, nil
}

package services

import (
	"strings"
	"testing"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"

	"github.com/shopspring/decimal"
)

func TestEvaluateCompletion(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name     string
		campaign entities.Campaign
		expect   CompletionTrigger
	}{
		{
			name:     "below threshold",
			campaign: entities.Campaign{Status: entities.CampaignStatusActive, Budget: dec("100"), Spent: dec("98.99"), Deadline: &future},
			expect:   CompletionTriggerNone,
		},
		{
			name:     "at threshold",
			campaign: entities.Campaign{Status: entities.CampaignStatusActive, Budget: dec("100"), Spent: dec("99.00")},
			expect:   CompletionTriggerBudgetExhausted,
		},
		{
			name:     "deadline passed",
			campaign: entities.Campaign{Status: entities.CampaignStatusActive, Budget: dec("100"), Spent: dec("10"), Deadline: &past},
			expect:   CompletionTriggerDeadline,
		},
		{
			name:     "budget wins over deadline",
			campaign: entities.Campaign{Status: entities.CampaignStatusActive, Budget: dec("100"), Spent: dec("100"), Deadline: &past},
			expect:   CompletionTriggerBudgetExhausted,
		},
		{
			name:     "paused campaigns are not evaluated",
			campaign: entities.Campaign{Status: entities.CampaignStatusPaused, Budget: dec("100"), Spent: dec("100")},
			expect:   CompletionTriggerNone,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EvaluateCompletion(tc.campaign, now, DefaultCompletionThreshold); got != tc.expect {
				t.Fatalf("expected %q, got %q", tc.expect, got)
			}
		})
	}
}

func TestEvaluateCompletionInvalidThresholdFallsBack(t *testing.T) {
	campaign := entities.Campaign{Status: entities.CampaignStatusActive, Budget: dec("100"), Spent: dec("99")}
	if got := EvaluateCompletion(campaign, time.Now(), decimal.NewFromInt(2)); got != CompletionTriggerBudgetExhausted {
		t.Fatalf("expected default threshold to apply, got %q", got)
	}
}

func TestCompletionReasonCarriesUtilization(t *testing.T) {
	campaign := entities.Campaign{Budget: dec("50"), Spent: dec("50")}
	reason := CompletionReason(CompletionTriggerBudgetExhausted, campaign, "")
	if !strings.Contains(reason, "100.00%") || !strings.Contains(reason, "(50.00/50.00)") {
		t.Fatalf("unexpected reason %q", reason)
	}

	manual := CompletionReason(CompletionTriggerManual, campaign, "  ")
	if !strings.HasPrefix(manual, "Manually completed by admin: ") {
		t.Fatalf("unexpected manual reason %q", manual)
	}
}

package services

import (
	"fmt"
	"strings"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"

	"github.com/shopspring/decimal"
)

type CompletionTrigger string

const (
	CompletionTriggerNone            CompletionTrigger = ""
	CompletionTriggerBudgetExhausted CompletionTrigger = "budget_exhausted"
	CompletionTriggerDeadline        CompletionTrigger = "deadline_reached"
	CompletionTriggerManual          CompletionTrigger = "manual"
)

// DefaultCompletionThreshold completes a campaign once 99% of its budget is spent.
var DefaultCompletionThreshold = decimal.RequireFromString("0.99")

// EvaluateCompletion decides whether an active campaign should complete.
// Budget exhaustion wins over the deadline when both apply.
func EvaluateCompletion(campaign entities.Campaign, now time.Time, threshold decimal.Decimal) CompletionTrigger {
	if campaign.Status != entities.CampaignStatusActive {
		return CompletionTriggerNone
	}
	if !threshold.IsPositive() || threshold.GreaterThan(decimal.NewFromInt(1)) {
		threshold = DefaultCompletionThreshold
	}
	if campaign.Spent.GreaterThanOrEqual(campaign.Budget.Mul(threshold)) {
		return CompletionTriggerBudgetExhausted
	}
	if campaign.DeadlinePassed(now) {
		return CompletionTriggerDeadline
	}
	return CompletionTriggerNone
}

func CompletionReason(trigger CompletionTrigger, campaign entities.Campaign, manualReason string) string {
	utilization := fmt.Sprintf("%s%% of budget utilized (%s/%s)",
		campaign.Utilization().StringFixed(2),
		campaign.Spent.StringFixed(MoneyPlaces),
		campaign.Budget.StringFixed(MoneyPlaces),
	)
	switch trigger {
	case CompletionTriggerBudgetExhausted:
		return "Budget exhausted: " + utilization
	case CompletionTriggerDeadline:
		return "Deadline reached: " + utilization
	default:
		reason := strings.TrimSpace(manualReason)
		if reason == "" {
			reason = "Manually completed by admin"
		}
		return reason + ": " + utilization
	}
}

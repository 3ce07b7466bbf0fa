package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// Campaign carries the budget fields the earnings pipeline depends on.
// Spent is a derived aggregate: only the spend reconciler writes it.
type Campaign struct {
	CampaignID       string
	Title            string
	Budget           decimal.Decimal
	Spent            decimal.Decimal
	PayoutRate       decimal.Decimal // currency per 1000 views
	Status           CampaignStatus
	StartDate        *time.Time
	Deadline         *time.Time
	CompletedAt      *time.Time
	CompletionReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted || c.Status == CampaignStatusCancelled
}

func (c Campaign) AcceptsEarnings() bool {
	return c.Status == CampaignStatusActive
}

// Remaining returns budget minus spent, floored at zero.
func (c Campaign) Remaining() decimal.Decimal {
	remaining := c.Budget.Sub(c.Spent)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Utilization returns spent/budget as a percentage. Zero budgets report 100%.
func (c Campaign) Utilization() decimal.Decimal {
	if !c.Budget.IsPositive() {
		return decimal.NewFromInt(100)
	}
	return c.Spent.Div(c.Budget).Mul(decimal.NewFromInt(100)).Round(2)
}

func (c Campaign) DeadlinePassed(now time.Time) bool {
	return c.Deadline != nil && !c.Deadline.UTC().After(now.UTC())
}

func (c Campaign) StartReached(now time.Time) bool {
	return c.StartDate != nil && !c.StartDate.UTC().After(now.UTC())
}

type StateHistory struct {
	HistoryID    string
	CampaignID   string
	FromState    CampaignStatus
	ToState      CampaignStatus
	ChangedBy    string
	ChangeReason string
	CreatedAt    time.Time
}

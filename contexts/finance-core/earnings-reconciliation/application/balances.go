package application

import (
	"context"
	"sort"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

type UserBalance struct {
	UserID              string
	ApprovedSubmissions int
	UnpaidEarnings      decimal.Decimal
	CoveredByRequests   decimal.Decimal
	PendingRequests     decimal.Decimal
	Payable             decimal.Decimal
	Available           decimal.Decimal
}

// BalanceReader derives payable balances from clip earnings and payout
// requests. Nothing here is cached; every call re-reads the stores.
type BalanceReader struct {
	Submissions ports.SubmissionRepository
	Clips       ports.ClipRepository
	Payouts     ports.PayoutRepository
}

// Balances returns one balance per user. With no userIDs it covers every user
// holding an approved submission.
func (r BalanceReader) Balances(ctx context.Context, userIDs []string) ([]UserBalance, error) {
	submissions, err := r.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{
		UserIDs:  userIDs,
		Statuses: []entities.SubmissionStatus{entities.SubmissionStatusApproved},
	})
	if err != nil {
		return nil, err
	}

	balances := make(map[string]*UserBalance)
	ensure := func(userID string) *UserBalance {
		item, ok := balances[userID]
		if !ok {
			item = &UserBalance{UserID: userID}
			balances[userID] = item
		}
		return item
	}
	for _, userID := range userIDs {
		ensure(userID)
	}

	clipEarnings := make(map[string]decimal.Decimal)
	seen := make(map[string]struct{})
	for _, submission := range submissions {
		balance := ensure(submission.UserID)
		balance.ApprovedSubmissions++
		if !submission.HasClip() {
			continue
		}
		key := submission.UserID + "/" + submission.ClipID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		earnings, cached := clipEarnings[submission.ClipID]
		if !cached {
			clip, err := r.Clips.GetClip(ctx, submission.ClipID)
			if err != nil {
				return nil, err
			}
			earnings = clip.Earnings
			clipEarnings[submission.ClipID] = earnings
		}
		balance.UnpaidEarnings = balance.UnpaidEarnings.Add(earnings)
	}

	notSettled := false
	requests, err := r.Payouts.ListPayoutRequests(ctx, ports.PayoutRequestFilter{
		UserIDs: userIDs,
		Statuses: []entities.PayoutRequestStatus{
			entities.PayoutRequestStatusPending,
			entities.PayoutRequestStatusCompleted,
		},
		Settled: &notSettled,
	})
	if err != nil {
		return nil, err
	}
	for _, request := range requests {
		balance, ok := balances[request.UserID]
		if !ok {
			continue
		}
		switch request.Status {
		case entities.PayoutRequestStatusCompleted:
			balance.CoveredByRequests = balance.CoveredByRequests.Add(request.Amount)
		case entities.PayoutRequestStatusPending:
			balance.PendingRequests = balance.PendingRequests.Add(request.Amount)
		}
	}

	items := make([]UserBalance, 0, len(balances))
	for _, balance := range balances {
		balance.Payable = services.PayableBalance(balance.UnpaidEarnings, balance.CoveredByRequests)
		balance.Available = services.PayableBalance(balance.Payable, balance.PendingRequests)
		items = append(items, *balance)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Payable.Equal(items[j].Payable) {
			return items[i].Payable.GreaterThan(items[j].Payable)
		}
		return items[i].UserID < items[j].UserID
	})
	return items, nil
}

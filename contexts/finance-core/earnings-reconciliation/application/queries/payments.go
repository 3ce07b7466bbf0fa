package queries

import (
	"context"
	"sort"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

type PendingPaymentsResult struct {
	Users              []application.UserBalance
	TotalPendingAmount decimal.Decimal
	MinimumPayout      decimal.Decimal
}

// PendingPaymentsQuery lists users whose payable balance reaches the minimum payout.
type PendingPaymentsQuery struct {
	Balances      application.BalanceReader
	MinimumPayout decimal.Decimal
}

func (q PendingPaymentsQuery) Execute(ctx context.Context) (PendingPaymentsResult, error) {
	minimum := q.MinimumPayout
	if !minimum.IsPositive() {
		minimum = services.DefaultMinimumPayout
	}
	balances, err := q.Balances.Balances(ctx, nil)
	if err != nil {
		return PendingPaymentsResult{}, err
	}

	result := PendingPaymentsResult{
		Users:              make([]application.UserBalance, 0, len(balances)),
		TotalPendingAmount: decimal.Zero,
		MinimumPayout:      minimum,
	}
	for _, balance := range balances {
		if !services.MeetsMinimum(balance.Payable, minimum) {
			continue
		}
		result.Users = append(result.Users, balance)
		result.TotalPendingAmount = result.TotalPendingAmount.Add(balance.Payable)
	}
	return result, nil
}

type ProcessedPayment struct {
	UserID         string
	Submissions    int
	TotalPaid      decimal.Decimal
	PaymentMethods []string
	LastPaidAt     *time.Time
}

type ProcessedPaymentsResult struct {
	Users          []ProcessedPayment
	TotalPaidOut   decimal.Decimal
	TotalSubmitted int
}

// ProcessedPaymentsQuery groups paid submissions per user.
type ProcessedPaymentsQuery struct {
	Submissions ports.SubmissionRepository
}

func (q ProcessedPaymentsQuery) Execute(ctx context.Context) (ProcessedPaymentsResult, error) {
	items, err := q.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{
		Statuses: []entities.SubmissionStatus{entities.SubmissionStatusPaid},
	})
	if err != nil {
		return ProcessedPaymentsResult{}, err
	}

	byUser := make(map[string]*ProcessedPayment)
	methods := make(map[string]map[string]struct{})
	seen := make(map[string]struct{})
	for _, item := range items {
		payment, ok := byUser[item.UserID]
		if !ok {
			payment = &ProcessedPayment{UserID: item.UserID, TotalPaid: decimal.Zero}
			byUser[item.UserID] = payment
			methods[item.UserID] = make(map[string]struct{})
		}
		payment.Submissions++
		if item.PaymentMethod != "" {
			methods[item.UserID][item.PaymentMethod] = struct{}{}
		}
		if item.PaidAt != nil && (payment.LastPaidAt == nil || item.PaidAt.After(*payment.LastPaidAt)) {
			paidAt := *item.PaidAt
			payment.LastPaidAt = &paidAt
		}
		if item.Payout == nil {
			continue
		}
		// A clip resubmitted to several campaigns is paid once.
		key := item.UserID + "/" + item.ClipID
		if item.ClipID != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		payment.TotalPaid = payment.TotalPaid.Add(*item.Payout)
	}

	result := ProcessedPaymentsResult{
		Users:        make([]ProcessedPayment, 0, len(byUser)),
		TotalPaidOut: decimal.Zero,
	}
	for userID, payment := range byUser {
		for method := range methods[userID] {
			payment.PaymentMethods = append(payment.PaymentMethods, method)
		}
		sort.Strings(payment.PaymentMethods)
		result.Users = append(result.Users, *payment)
		result.TotalPaidOut = result.TotalPaidOut.Add(payment.TotalPaid)
		result.TotalSubmitted += payment.Submissions
	}
	sort.Slice(result.Users, func(i, j int) bool {
		return result.Users[i].UserID < result.Users[j].UserID
	})
	return result, nil
}

type UserEarnings struct {
	Balance application.UserBalance
	Totals  entities.UserTotals
}

// UserEarningsQuery joins a live balance with the reconciled user totals.
type UserEarningsQuery struct {
	Balances application.BalanceReader
	Totals   ports.UserTotalsRepository
}

func (q UserEarningsQuery) Execute(ctx context.Context, userID string) (UserEarnings, error) {
	balances, err := q.Balances.Balances(ctx, []string{userID})
	if err != nil {
		return UserEarnings{}, err
	}
	result := UserEarnings{Balance: application.UserBalance{UserID: userID}}
	if len(balances) > 0 {
		result.Balance = balances[0]
	}
	totals, ok, err := q.Totals.GetUserTotals(ctx, userID)
	if err != nil {
		return UserEarnings{}, err
	}
	if ok {
		result.Totals = totals
	} else {
		result.Totals = entities.UserTotals{UserID: userID}
	}
	return result, nil
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

type MarkPaymentsPaidCommand struct {
	UserIDs       []string
	PaymentMethod string
	Notes         string
}

type UserPaymentResult struct {
	UserID          string
	SubmissionsPaid int
	Amount          decimal.Decimal
}

type MarkPaymentsPaidResult struct {
	Users           []UserPaymentResult
	SubmissionsPaid int
	TotalAmount     decimal.Decimal
	PaidAt          time.Time
}

// MarkPaymentsPaidUseCase flips approved submissions to PAID. It records a
// status change only; no money moves here.
type MarkPaymentsPaidUseCase struct {
	Balances application.BalanceReader
	Payouts  ports.PayoutRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc MarkPaymentsPaidUseCase) Execute(ctx context.Context, cmd MarkPaymentsPaidCommand) (MarkPaymentsPaidResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userIDs := normalizeIDs(cmd.UserIDs)
	method := strings.TrimSpace(cmd.PaymentMethod)
	if len(userIDs) == 0 || method == "" {
		return MarkPaymentsPaidResult{}, domainerrors.ErrInvalidInput
	}

	balances, err := uc.Balances.Balances(ctx, userIDs)
	if err != nil {
		return MarkPaymentsPaidResult{}, err
	}
	owed := make(map[string]decimal.Decimal, len(balances))
	for _, balance := range balances {
		owed[balance.UserID] = balance.Payable
	}

	now := uc.Clock.Now().UTC()
	result := MarkPaymentsPaidResult{TotalAmount: decimal.Zero, PaidAt: now}
	for _, userID := range userIDs {
		changed, err := uc.Payouts.MarkUserPaid(ctx, userID, method, strings.TrimSpace(cmd.Notes), now)
		if err != nil {
			return result, err
		}
		item := UserPaymentResult{
			UserID:          userID,
			SubmissionsPaid: len(changed),
			Amount:          owed[userID],
		}
		if item.SubmissionsPaid == 0 {
			item.Amount = decimal.Zero
		}
		result.Users = append(result.Users, item)
		result.SubmissionsPaid += item.SubmissionsPaid
		result.TotalAmount = result.TotalAmount.Add(item.Amount)

		if item.SubmissionsPaid == 0 {
			continue
		}
		if err := application.AppendEvent(ctx, uc.Outbox, uc.IDGen,
			"payments.marked_paid", "user_id", userID, now,
			map[string]any{
				"user_id":          userID,
				"payment_method":   method,
				"amount":           item.Amount.StringFixed(services.MoneyPlaces),
				"submissions_paid": item.SubmissionsPaid,
				"paid_at":          now.Format(time.RFC3339),
			},
		); err != nil {
			return result, err
		}
	}

	logger.Info("payments marked as paid",
		"event", "payments_marked_paid",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"users", len(userIDs),
		"submissions_paid", result.SubmissionsPaid,
		"total_amount", result.TotalAmount.StringFixed(services.MoneyPlaces),
	)
	return result, nil
}

type RequestPayoutCommand struct {
	UserID        string
	Amount        decimal.Decimal
	PaymentMethod string
}

// RequestPayoutUseCase opens a withdrawal request against the user's
// available balance. The balance read and the insert run under the user's
// payout lock; without it two requests can both pass the check.
type RequestPayoutUseCase struct {
	Balances      application.BalanceReader
	Payouts       ports.PayoutRepository
	Locker        ports.UserLocker
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	MinimumPayout decimal.Decimal
	Logger        *slog.Logger
}

func (uc RequestPayoutUseCase) Execute(ctx context.Context, cmd RequestPayoutCommand) (entities.PayoutRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	method := strings.TrimSpace(cmd.PaymentMethod)
	amount := services.RoundMoneyDown(cmd.Amount)
	if userID == "" || method == "" || !amount.IsPositive() {
		return entities.PayoutRequest{}, domainerrors.ErrInvalidInput
	}
	minimum := uc.MinimumPayout
	if !minimum.IsPositive() {
		minimum = services.DefaultMinimumPayout
	}
	if !services.MeetsMinimum(amount, minimum) {
		return entities.PayoutRequest{}, domainerrors.ErrInvalidInput
	}

	if uc.Locker != nil {
		unlock, err := uc.Locker.Lock(ctx, userID)
		if err != nil {
			return entities.PayoutRequest{}, fmt.Errorf("%w: %v", domainerrors.ErrLockNotAcquired, err)
		}
		defer unlock()
	}

	balances, err := uc.Balances.Balances(ctx, []string{userID})
	if err != nil {
		return entities.PayoutRequest{}, err
	}
	available := decimal.Zero
	if len(balances) > 0 {
		available = balances[0].Available
	}
	if amount.GreaterThan(available) {
		return entities.PayoutRequest{}, &domainerrors.BalanceError{
			Available: available.StringFixed(services.MoneyPlaces),
		}
	}

	requestID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.PayoutRequest{}, err
	}
	request := entities.PayoutRequest{
		RequestID:     requestID,
		UserID:        userID,
		Amount:        amount,
		Status:        entities.PayoutRequestStatusPending,
		PaymentMethod: method,
		RequestedAt:   uc.Clock.Now().UTC(),
	}
	if err := uc.Payouts.CreatePayoutRequest(ctx, request); err != nil {
		return entities.PayoutRequest{}, err
	}

	logger.Info("payout requested",
		"event", "payout_requested",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"user_id", userID,
		"request_id", requestID,
		"amount", amount.StringFixed(services.MoneyPlaces),
	)
	return request, nil
}

type PayoutAction string

const (
	PayoutActionComplete PayoutAction = "complete"
	PayoutActionReject   PayoutAction = "reject"
)

type ProcessPayoutRequestCommand struct {
	RequestID string
	Action    PayoutAction
}

type ProcessPayoutRequestUseCase struct {
	Payouts ports.PayoutRepository
	Clock   ports.Clock
	Logger  *slog.Logger
}

func (uc ProcessPayoutRequestUseCase) Execute(ctx context.Context, cmd ProcessPayoutRequestCommand) (entities.PayoutRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	request, err := uc.Payouts.GetPayoutRequest(ctx, strings.TrimSpace(cmd.RequestID))
	if err != nil {
		return entities.PayoutRequest{}, err
	}
	if request.Status != entities.PayoutRequestStatusPending {
		return entities.PayoutRequest{}, domainerrors.ErrInvalidStateTransition
	}

	switch cmd.Action {
	case PayoutActionComplete:
		request.Status = entities.PayoutRequestStatusCompleted
	case PayoutActionReject:
		request.Status = entities.PayoutRequestStatusRejected
	default:
		return entities.PayoutRequest{}, domainerrors.ErrInvalidInput
	}
	now := uc.Clock.Now().UTC()
	request.ProcessedAt = &now
	if err := uc.Payouts.UpdatePayoutRequest(ctx, request); err != nil {
		return entities.PayoutRequest{}, err
	}

	logger.Info("payout request processed",
		"event", "payout_request_processed",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"request_id", request.RequestID,
		"user_id", request.UserID,
		"status", string(request.Status),
	)
	return request, nil
}

func normalizeIDs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	items := make([]string, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		items = append(items, value)
	}
	sort.Strings(items)
	return items
}

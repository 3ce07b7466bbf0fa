package commands_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/memory"
	"clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
)

func paymentStore() *memory.Store {
	clipA, subA := approvedClip("c1", "clip-a", "user-a", 0, 0)
	clipA.Earnings = dec("45.00")
	clipB, subB := approvedClip("c1", "clip-b", "user-a", 0, 0)
	clipB.Earnings = dec("35.00")
	clipC, subC := approvedClip("c1", "clip-c", "user-b", 0, 0)
	clipC.Earnings = dec("49.99")
	return newStore(
		[]entities.Campaign{campaign("c1", "500", "10")},
		[]entities.Clip{clipA, clipB, clipC},
		[]entities.ClipSubmission{subA, subB, subC},
	)
}

func balances(store *memory.Store) application.BalanceReader {
	return application.BalanceReader{Submissions: store, Clips: store, Payouts: store}
}

func TestRequestPayoutChecksAvailableBalance(t *testing.T) {
	store := paymentStore()
	uc := commands.RequestPayoutUseCase{
		Balances: balances(store),
		Payouts:  store,
		Clock:    store,
		IDGen:    store,
		Logger:   quietLogger(),
	}

	_, err := uc.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-a", Amount: dec("80.01"), PaymentMethod: "paypal"})
	var balanceErr *domainerrors.BalanceError
	if !errors.As(err, &balanceErr) || balanceErr.Available != "80.00" {
		t.Fatalf("expected balance error with 80.00 available, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("balance error must unwrap to ErrInsufficientBalance")
	}

	request, err := uc.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-a", Amount: dec("60.009"), PaymentMethod: "paypal"})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}
	if request.Amount.StringFixed(2) != "60.00" || request.Status != entities.PayoutRequestStatusPending {
		t.Fatalf("unexpected request: %+v", request)
	}

	_, err = uc.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-a", Amount: dec("50"), PaymentMethod: "paypal"})
	if !errors.As(err, &balanceErr) || balanceErr.Available != "20.00" {
		t.Fatalf("pending request must reduce availability to 20.00, got %v", err)
	}

	_, err = uc.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-b", Amount: dec("49.99"), PaymentMethod: "paypal"})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected below-minimum request to be rejected, got %v", err)
	}
}

func TestProcessPayoutRequestOnlyFromPending(t *testing.T) {
	store := paymentStore()
	request, err := commands.RequestPayoutUseCase{
		Balances: balances(store), Payouts: store, Clock: store, IDGen: store, Logger: quietLogger(),
	}.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-a", Amount: dec("50"), PaymentMethod: "paypal"})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}

	uc := commands.ProcessPayoutRequestUseCase{Payouts: store, Clock: store, Logger: quietLogger()}
	processed, err := uc.Execute(context.Background(), commands.ProcessPayoutRequestCommand{RequestID: request.RequestID, Action: commands.PayoutActionComplete})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed.Status != entities.PayoutRequestStatusCompleted || processed.ProcessedAt == nil {
		t.Fatalf("unexpected processed request: %+v", processed)
	}
	if _, err := uc.Execute(context.Background(), commands.ProcessPayoutRequestCommand{RequestID: request.RequestID, Action: commands.PayoutActionReject}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	items, err := balances(store).Balances(context.Background(), []string{"user-a"})
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if items[0].Payable.StringFixed(2) != "30.00" {
		t.Fatalf("completed request must reduce payable to 30.00, got %s", items[0].Payable)
	}
}

func TestMarkPaymentsPaid(t *testing.T) {
	store := paymentStore()
	uc := commands.MarkPaymentsPaidUseCase{
		Balances: balances(store),
		Payouts:  store,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Logger:   quietLogger(),
	}

	result, err := uc.Execute(context.Background(), commands.MarkPaymentsPaidCommand{
		UserIDs:       []string{"user-a", " user-a ", "user-z"},
		PaymentMethod: "paypal",
		Notes:         "batch 7",
	})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if result.SubmissionsPaid != 2 || result.TotalAmount.StringFixed(2) != "80.00" {
		t.Fatalf("unexpected result: %+v", result)
	}

	submission, _ := store.GetSubmission(context.Background(), "sub-clip-a")
	if submission.Status != entities.SubmissionStatusPaid || submission.PaidAt == nil || submission.Payout == nil || submission.Payout.StringFixed(2) != "45.00" {
		t.Fatalf("unexpected paid submission: %+v", submission)
	}
	untouched, _ := store.GetSubmission(context.Background(), "sub-clip-c")
	if untouched.Status != entities.SubmissionStatusApproved {
		t.Fatalf("user-b submission must stay approved")
	}

	again, err := uc.Execute(context.Background(), commands.MarkPaymentsPaidCommand{UserIDs: []string{"user-a"}, PaymentMethod: "paypal"})
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if again.SubmissionsPaid != 0 || !again.TotalAmount.IsZero() {
		t.Fatalf("second run must be a no-op, got %+v", again)
	}

	if _, err := uc.Execute(context.Background(), commands.MarkPaymentsPaidCommand{UserIDs: []string{"user-a"}}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without payment method, got %v", err)
	}
}

func TestConcurrentPayoutRequestsShareOneBalance(t *testing.T) {
	store := paymentStore()
	uc := commands.RequestPayoutUseCase{
		Balances: balances(store),
		Payouts:  store,
		Locker:   memory.NewKeyedLocker(),
		Clock:    store,
		IDGen:    store,
		Logger:   quietLogger(),
	}

	var accepted, refused atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), commands.RequestPayoutCommand{UserID: "user-a", Amount: dec("80"), PaymentMethod: "paypal"})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domainerrors.ErrInsufficientBalance):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 || refused.Load() != 7 {
		t.Fatalf("expected 1 accepted and 7 refused, got %d and %d", accepted.Load(), refused.Load())
	}
	items, err := balances(store).Balances(context.Background(), []string{"user-a"})
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if !items[0].Available.IsZero() {
		t.Fatalf("expected nothing left available, got %s", items[0].Available)
	}
}

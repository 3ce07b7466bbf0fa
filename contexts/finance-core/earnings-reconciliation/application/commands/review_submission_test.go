package commands_test

import (
	"context"
	"errors"
	"testing"

	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
)

func TestReviewSubmissionApproveSnapshotsViews(t *testing.T) {
	clip, sub := approvedClip("c1", "clip-a", "user-a", 7300, 0)
	sub.Status = entities.SubmissionStatusPending
	sub.ApprovedAt = nil
	store := newStore([]entities.Campaign{campaign("c1", "100", "10")}, []entities.Clip{clip}, []entities.ClipSubmission{sub})
	uc := commands.ReviewSubmissionUseCase{Submissions: store, Clips: store, Clock: store, Logger: quietLogger()}

	approved, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: sub.SubmissionID, Action: commands.ReviewActionApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.InitialViews != 7300 || approved.ApprovedAt == nil {
		t.Fatalf("expected baseline 7300 and approval stamp, got %+v", approved)
	}

	if _, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: sub.SubmissionID, Action: commands.ReviewActionReject, Reason: "late"}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition on re-review, got %v", err)
	}
}

func TestReviewSubmissionRejectRequiresReason(t *testing.T) {
	clip, sub := approvedClip("c1", "clip-a", "user-a", 10, 0)
	sub.Status = entities.SubmissionStatusPending
	store := newStore([]entities.Campaign{campaign("c1", "100", "10")}, []entities.Clip{clip}, []entities.ClipSubmission{sub})
	uc := commands.ReviewSubmissionUseCase{Submissions: store, Clips: store, Clock: store, Logger: quietLogger()}

	if _, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: sub.SubmissionID, Action: commands.ReviewActionReject}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	rejected, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: sub.SubmissionID, Action: commands.ReviewActionReject, Reason: "wrong sound"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != entities.SubmissionStatusRejected || rejected.RejectionReason != "wrong sound" {
		t.Fatalf("unexpected rejected submission: %+v", rejected)
	}
}

func TestReviewSubmissionRefusesSecondEarningLinkForClip(t *testing.T) {
	clip, small := approvedClip("small", "clip-x", "user-a", 10000, 0)
	_, big := approvedClip("big", "clip-x", "user-a", 10000, 0)
	big.SubmissionID = "sub-clip-x-big"
	big.Status = entities.SubmissionStatusPending
	big.ApprovedAt = nil
	store := newStore(
		[]entities.Campaign{campaign("small", "10", "10"), campaign("big", "1000", "10")},
		[]entities.Clip{clip},
		[]entities.ClipSubmission{small, big},
	)
	uc := commands.ReviewSubmissionUseCase{Submissions: store, Clips: store, Clock: store, Logger: quietLogger()}

	if _, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: big.SubmissionID, Action: commands.ReviewActionApprove}); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	stored, _ := store.GetSubmission(context.Background(), big.SubmissionID)
	if stored.Status != entities.SubmissionStatusPending {
		t.Fatalf("expected submission left pending, got %s", stored.Status)
	}

	small.Status = entities.SubmissionStatusRejected
	small.RejectionReason = "withdrawn"
	store.PutSubmission(small)
	if _, err := uc.Execute(context.Background(), commands.ReviewSubmissionCommand{SubmissionID: big.SubmissionID, Action: commands.ReviewActionApprove}); err != nil {
		t.Fatalf("approve once the clip is free: %v", err)
	}
}

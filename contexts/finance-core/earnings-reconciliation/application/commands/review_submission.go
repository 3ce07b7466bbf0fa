package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
)

type ReviewSubmissionCommand struct {
	SubmissionID string
	Action       ReviewAction
	Reason       string
}

// ReviewSubmissionUseCase approves or rejects a pending submission. Approval
// pins the views baseline that earnings are measured from. A clip earns
// through one approved or paid submission at a time, since its earnings
// count toward the spent of every campaign it is linked to.
type ReviewSubmissionUseCase struct {
	Submissions ports.SubmissionRepository
	Clips       ports.ClipRepository
	Clock       ports.Clock
	Logger      *slog.Logger
}

func (uc ReviewSubmissionUseCase) Execute(ctx context.Context, cmd ReviewSubmissionCommand) (entities.ClipSubmission, error) {
	logger := application.ResolveLogger(uc.Logger)
	submission, err := uc.Submissions.GetSubmission(ctx, strings.TrimSpace(cmd.SubmissionID))
	if err != nil {
		return entities.ClipSubmission{}, err
	}
	if submission.Status != entities.SubmissionStatusPending {
		return entities.ClipSubmission{}, domainerrors.ErrInvalidStateTransition
	}

	now := uc.Clock.Now().UTC()
	switch cmd.Action {
	case ReviewActionApprove:
		if submission.HasClip() {
			if err := uc.ensureClipUnclaimed(ctx, submission); err != nil {
				return entities.ClipSubmission{}, err
			}
			clip, err := uc.Clips.GetClip(ctx, submission.ClipID)
			if err != nil {
				return entities.ClipSubmission{}, err
			}
			submission.InitialViews = clip.Views
		}
		submission.Status = entities.SubmissionStatusApproved
		submission.ApprovedAt = &now
	case ReviewActionReject:
		reason := strings.TrimSpace(cmd.Reason)
		if reason == "" {
			return entities.ClipSubmission{}, domainerrors.ErrInvalidInput
		}
		submission.Status = entities.SubmissionStatusRejected
		submission.RejectionReason = reason
	default:
		return entities.ClipSubmission{}, domainerrors.ErrInvalidInput
	}
	submission.UpdatedAt = now
	if err := uc.Submissions.UpdateSubmission(ctx, submission); err != nil {
		return entities.ClipSubmission{}, err
	}

	logger.Info("submission reviewed",
		"event", "submission_reviewed",
		"module", "finance-core/earnings-reconciliation",
		"layer", "application",
		"submission_id", submission.SubmissionID,
		"clip_id", submission.ClipID,
		"status", string(submission.Status),
		"initial_views", submission.InitialViews,
	)
	return submission, nil
}

func (uc ReviewSubmissionUseCase) ensureClipUnclaimed(ctx context.Context, submission entities.ClipSubmission) error {
	linked, err := uc.Submissions.ListSubmissions(ctx, ports.SubmissionFilter{
		ClipID: submission.ClipID,
		Statuses: []entities.SubmissionStatus{
			entities.SubmissionStatusApproved,
			entities.SubmissionStatusPaid,
		},
	})
	if err != nil {
		return err
	}
	for _, item := range linked {
		if item.SubmissionID != submission.SubmissionID {
			return fmt.Errorf("%w: clip %s already earns through submission %s",
				domainerrors.ErrInvalidStateTransition, submission.ClipID, item.SubmissionID)
		}
	}
	return nil
}

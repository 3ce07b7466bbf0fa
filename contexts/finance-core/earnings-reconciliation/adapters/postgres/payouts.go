package postgresadapter

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreatePayoutRequest(ctx context.Context, request entities.PayoutRequest) error {
	row := payoutRequestModel{
		RequestID:     strings.TrimSpace(request.RequestID),
		UserID:        strings.TrimSpace(request.UserID),
		Amount:        request.Amount,
		Status:        string(request.Status),
		PaymentMethod: strings.TrimSpace(request.PaymentMethod),
		Settled:       request.Settled,
		RequestedAt:   request.RequestedAt.UTC(),
		ProcessedAt:   utcPtr(request.ProcessedAt),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetPayoutRequest(ctx context.Context, requestID string) (entities.PayoutRequest, error) {
	var row payoutRequestModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", strings.TrimSpace(requestID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PayoutRequest{}, domainerrors.ErrPayoutRequestNotFound
		}
		return entities.PayoutRequest{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) UpdatePayoutRequest(ctx context.Context, request entities.PayoutRequest) error {
	result := r.db.WithContext(ctx).
		Model(&payoutRequestModel{}).
		Where("request_id = ?", strings.TrimSpace(request.RequestID)).
		Updates(map[string]any{
			"status":       string(request.Status),
			"settled":      request.Settled,
			"processed_at": utcPtr(request.ProcessedAt),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPayoutRequestNotFound
	}
	return nil
}

func (r *Repository) ListPayoutRequests(ctx context.Context, filter ports.PayoutRequestFilter) ([]entities.PayoutRequest, error) {
	tx := r.db.WithContext(ctx).Model(&payoutRequestModel{})
	if len(filter.UserIDs) > 0 {
		tx = tx.Where("user_id IN ?", filter.UserIDs)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if filter.Settled != nil {
		tx = tx.Where("settled = ?", *filter.Settled)
	}

	var rows []payoutRequestModel
	if err := tx.Order("requested_at ASC").Order("request_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.PayoutRequest, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// MarkUserPaid flips the user's approved submissions to paid, lifting each
// payout to the clip's current earnings, and settles completed requests.
func (r *Repository) MarkUserPaid(
	ctx context.Context,
	userID string,
	method string,
	notes string,
	paidAt time.Time,
) ([]entities.ClipSubmission, error) {
	changed := make([]entities.ClipSubmission, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []submissionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ?", strings.TrimSpace(userID), string(entities.SubmissionStatusApproved)).
			Order("created_at ASC").
			Find(&rows).
			Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		clipIDs := make([]string, 0, len(rows))
		for _, row := range rows {
			if row.ClipID != nil {
				clipIDs = append(clipIDs, *row.ClipID)
			}
		}
		earnings := make(map[string]decimal.Decimal, len(clipIDs))
		if len(clipIDs) > 0 {
			var clips []clipModel
			if err := tx.Where("clip_id IN ?", clipIDs).Find(&clips).Error; err != nil {
				return err
			}
			for _, clip := range clips {
				earnings[clip.ClipID] = clip.Earnings
			}
		}

		stamp := paidAt.UTC()
		for _, row := range rows {
			submission := row.toEntity()
			if amount, ok := earnings[submission.ClipID]; ok {
				submission.RaisePayout(amount)
			}
			submission.Status = entities.SubmissionStatusPaid
			submission.PaidAt = &stamp
			submission.PaymentMethod = method
			submission.PaymentNotes = notes
			submission.UpdatedAt = stamp
			if err := tx.Model(&submissionModel{}).
				Where("submission_id = ?", submission.SubmissionID).
				Updates(submissionUpdates(submission)).
				Error; err != nil {
				return err
			}
			changed = append(changed, submission)
		}

		return tx.Model(&payoutRequestModel{}).
			Where("user_id = ? AND status = ? AND settled = ?",
				strings.TrimSpace(userID), string(entities.PayoutRequestStatusCompleted), false).
			Update("settled", true).
			Error
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func sortLines(lines []ports.ClipEarningsLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Earnings.Equal(lines[j].Earnings) {
			return lines[i].Earnings.GreaterThan(lines[j].Earnings)
		}
		return lines[i].ClipID < lines[j].ClipID
	})
}

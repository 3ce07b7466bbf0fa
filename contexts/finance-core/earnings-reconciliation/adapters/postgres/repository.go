package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/services"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements every persistence port of the earnings context on
// one gorm handle.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var spendStatuses = []string{
	string(entities.SubmissionStatusApproved),
	string(entities.SubmissionStatusPaid),
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error) {
	var row campaignModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCampaigns(ctx context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	tx := r.db.WithContext(ctx).Model(&campaignModel{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		tx = tx.Where("status IN ?", statuses)
	}

	var rows []campaignModel
	if err := tx.Order("campaign_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateCampaignStatus(ctx context.Context, campaign entities.Campaign) error {
	result := r.db.WithContext(ctx).
		Model(&campaignModel{}).
		Where("campaign_id = ?", strings.TrimSpace(campaign.CampaignID)).
		Updates(map[string]any{
			"status":            string(campaign.Status),
			"completed_at":      utcPtr(campaign.CompletedAt),
			"completion_reason": campaign.CompletionReason,
			"updated_at":        campaign.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCampaignNotFound
	}
	return nil
}

func (r *Repository) OverwriteSpent(ctx context.Context, campaignID string, spent decimal.Decimal, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&campaignModel{}).
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		Updates(map[string]any{
			"spent":      spent,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCampaignNotFound
	}
	return nil
}

func (r *Repository) AppendState(ctx context.Context, item entities.StateHistory) error {
	row := stateHistoryModel{
		HistoryID:    strings.TrimSpace(item.HistoryID),
		CampaignID:   strings.TrimSpace(item.CampaignID),
		FromState:    string(item.FromState),
		ToState:      string(item.ToState),
		ChangedBy:    strings.TrimSpace(item.ChangedBy),
		ChangeReason: strings.TrimSpace(item.ChangeReason),
		CreatedAt:    item.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetClip(ctx context.Context, clipID string) (entities.Clip, error) {
	var row clipModel
	err := r.db.WithContext(ctx).
		Where("clip_id = ?", strings.TrimSpace(clipID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Clip{}, domainerrors.ErrClipNotFound
		}
		return entities.Clip{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) RecordTrustedViews(ctx context.Context, clipID string, views int64, scrapedAt time.Time) error {
	// SET expressions read the pre-update row, so views here is the old count.
	return r.updateClip(ctx, clipID, map[string]any{
		"earnings_pending": gorm.Expr("earnings_pending OR views <> ?", views),
		"views":            views,
		"last_scraped_at":  scrapedAt.UTC(),
		"updated_at":       scrapedAt.UTC(),
	})
}

func (r *Repository) ListEarningsPending(ctx context.Context, limit int) ([]entities.Clip, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []clipModel
	if err := r.db.WithContext(ctx).
		Where("earnings_pending = ?", true).
		Order("updated_at ASC").
		Order("clip_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Clip, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ClearEarningsPending(ctx context.Context, clipID string, views int64) error {
	return r.db.WithContext(ctx).
		Model(&clipModel{}).
		Where("clip_id = ? AND views = ?", strings.TrimSpace(clipID), views).
		Update("earnings_pending", false).
		Error
}

func (r *Repository) TouchScraped(ctx context.Context, clipID string, scrapedAt time.Time) error {
	return r.updateClip(ctx, clipID, map[string]any{
		"last_scraped_at": scrapedAt.UTC(),
	})
}

func (r *Repository) updateClip(ctx context.Context, clipID string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&clipModel{}).
		Where("clip_id = ?", strings.TrimSpace(clipID)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrClipNotFound
	}
	return nil
}

type campaignSumRow struct {
	Total decimal.Decimal `gorm:"column:total"`
	Clips int             `gorm:"column:clips"`
}

// sumCampaignEarnings counts each linked clip once even when several
// approved submissions reference it.
func sumCampaignEarnings(tx *gorm.DB, campaignID string, excludeClipID string) (decimal.Decimal, int, error) {
	var row campaignSumRow
	err := tx.Raw(`
SELECT COALESCE(SUM(c.earnings), 0) AS total, COUNT(*) AS clips
FROM clips c
WHERE c.clip_id IN (
	SELECT DISTINCT s.clip_id
	FROM clip_submissions s
	WHERE s.campaign_id = ?
	  AND s.status IN ?
	  AND s.clip_id IS NOT NULL
)
AND c.clip_id <> ?`,
		campaignID, spendStatuses, excludeClipID,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total, row.Clips, nil
}

func (r *Repository) SumCampaignEarnings(ctx context.Context, campaignID string, excludeClipID string) (decimal.Decimal, int, error) {
	if _, err := r.GetCampaign(ctx, campaignID); err != nil {
		return decimal.Zero, 0, err
	}
	return sumCampaignEarnings(r.db.WithContext(ctx), strings.TrimSpace(campaignID), strings.TrimSpace(excludeClipID))
}

// SaveClipEarnings locks every listed campaign row in id order, then the clip
// row, so concurrent writers sharing a campaign serialise on the budget check.
func (r *Repository) SaveClipEarnings(ctx context.Context, write ports.ClipEarningsWrite) error {
	if len(write.Budgets) == 0 {
		return domainerrors.ErrInvalidInput
	}
	campaignIDs := make([]string, 0, len(write.Budgets))
	for _, limit := range write.Budgets {
		campaignIDs = append(campaignIDs, limit.CampaignID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaigns []campaignModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("campaign_id IN ?", campaignIDs).
			Order("campaign_id ASC").
			Find(&campaigns).
			Error; err != nil {
			return err
		}
		if len(campaigns) != len(uniqueStrings(campaignIDs)) {
			return domainerrors.ErrCampaignNotFound
		}
		var clip clipModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("clip_id = ?", write.ClipID).
			First(&clip).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrClipNotFound
			}
			return err
		}
		if !clip.Earnings.Equal(write.Previous) {
			return domainerrors.ErrEarningsConflict
		}
		for _, limit := range write.Budgets {
			others, _, err := sumCampaignEarnings(tx, limit.CampaignID, write.ClipID)
			if err != nil {
				return err
			}
			if !services.WithinBudget(limit.Budget, others, write.Earnings) {
				return domainerrors.ErrEarningsConflict
			}
		}
		return tx.Model(&clipModel{}).
			Where("clip_id = ?", write.ClipID).
			Updates(map[string]any{
				"earnings":            write.Earnings,
				"earnings_calculated": true,
				"earnings_updated_at": write.UpdatedAt.UTC(),
				"updated_at":          write.UpdatedAt.UTC(),
			}).
			Error
	})
}

type clipEarningsRow struct {
	ClipID       string          `gorm:"column:clip_id"`
	SubmissionID string          `gorm:"column:submission_id"`
	UserID       string          `gorm:"column:user_id"`
	URL          string          `gorm:"column:url"`
	Platform     string          `gorm:"column:platform"`
	Status       string          `gorm:"column:status"`
	Views        int64           `gorm:"column:views"`
	InitialViews int64           `gorm:"column:initial_views"`
	Earnings     decimal.Decimal `gorm:"column:earnings"`
}

func (r *Repository) ListCampaignClipEarnings(ctx context.Context, campaignID string) ([]ports.ClipEarningsLine, error) {
	var rows []clipEarningsRow
	err := r.db.WithContext(ctx).Raw(`
SELECT DISTINCT ON (c.clip_id)
	c.clip_id, s.submission_id, s.user_id, c.url, c.platform, s.status,
	c.views, s.initial_views, c.earnings
FROM clip_submissions s
JOIN clips c ON c.clip_id = s.clip_id
WHERE s.campaign_id = ? AND s.status IN ?
ORDER BY c.clip_id, s.created_at ASC`,
		strings.TrimSpace(campaignID), spendStatuses,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]ports.ClipEarningsLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, ports.ClipEarningsLine{
			ClipID:       row.ClipID,
			SubmissionID: row.SubmissionID,
			UserID:       row.UserID,
			ClipURL:      row.URL,
			Platform:     entities.Platform(row.Platform),
			Status:       entities.SubmissionStatus(row.Status),
			Views:        row.Views,
			InitialViews: row.InitialViews,
			Earnings:     row.Earnings,
		})
	}
	sortLines(lines)
	return lines, nil
}

func (r *Repository) GetSubmission(ctx context.Context, submissionID string) (entities.ClipSubmission, error) {
	var row submissionModel
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ClipSubmission{}, domainerrors.ErrSubmissionNotFound
		}
		return entities.ClipSubmission{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter ports.SubmissionFilter) ([]entities.ClipSubmission, error) {
	tx := r.db.WithContext(ctx).Model(&submissionModel{})
	if filter.CampaignID != "" {
		tx = tx.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.ClipID != "" {
		tx = tx.Where("clip_id = ?", filter.ClipID)
	}
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

	var rows []submissionModel
	if err := tx.Order("created_at ASC").Order("submission_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.ClipSubmission, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, submission entities.ClipSubmission) error {
	result := r.db.WithContext(ctx).
		Model(&submissionModel{}).
		Where("submission_id = ?", strings.TrimSpace(submission.SubmissionID)).
		Updates(submissionUpdates(submission))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubmissionNotFound
	}
	return nil
}

func (r *Repository) SaveUserTotals(ctx context.Context, totals entities.UserTotals) error {
	row := userTotalsModel{
		UserID:        strings.TrimSpace(totals.UserID),
		TotalViews:    totals.TotalViews,
		TotalEarnings: totals.TotalEarnings,
		UpdatedAt:     totals.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_views", "total_earnings", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) GetUserTotals(ctx context.Context, userID string) (entities.UserTotals, bool, error) {
	var row userTotalsModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.UserTotals{}, false, nil
		}
		return entities.UserTotals{}, false, err
	}
	return entities.UserTotals{
		UserID:        row.UserID,
		TotalViews:    row.TotalViews,
		TotalEarnings: row.TotalEarnings,
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, true, nil
}

package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListTrackingCandidates orders by last_scraped_at with never-scraped clips
// first so a large backlog cannot starve any clip.
func (r *Repository) ListTrackingCandidates(
	ctx context.Context,
	statuses []entities.SubmissionStatus,
	limit int,
) ([]ports.TrackingCandidate, error) {
	if limit <= 0 {
		limit = 50
	}
	statusValues := make([]string, 0, len(statuses))
	for _, status := range statuses {
		statusValues = append(statusValues, string(status))
	}

	var clips []clipModel
	if err := r.db.WithContext(ctx).
		Model(&clipModel{}).
		Where("status = ?", string(entities.ClipStatusTracking)).
		Where(`EXISTS (
	SELECT 1 FROM clip_submissions s
	JOIN campaigns k ON k.campaign_id = s.campaign_id
	WHERE s.clip_id = clips.clip_id AND s.status IN ? AND k.status = ?)`,
			statusValues, string(entities.CampaignStatusActive)).
		Order("last_scraped_at ASC NULLS FIRST").
		Order("clip_id ASC").
		Limit(limit).
		Find(&clips).
		Error; err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return []ports.TrackingCandidate{}, nil
	}

	clipIDs := make([]string, 0, len(clips))
	for _, clip := range clips {
		clipIDs = append(clipIDs, clip.ClipID)
	}
	type link struct {
		ClipID     string `gorm:"column:clip_id"`
		CampaignID string `gorm:"column:campaign_id"`
	}
	var links []link
	if err := r.db.WithContext(ctx).Raw(`
SELECT DISTINCT s.clip_id, s.campaign_id
FROM clip_submissions s
JOIN campaigns k ON k.campaign_id = s.campaign_id
WHERE s.clip_id IN ? AND s.status IN ? AND k.status = ?
ORDER BY s.campaign_id`,
		clipIDs, statusValues, string(entities.CampaignStatusActive),
	).Scan(&links).Error; err != nil {
		return nil, err
	}
	campaigns := make(map[string][]string, len(clips))
	for _, item := range links {
		campaigns[item.ClipID] = append(campaigns[item.ClipID], item.CampaignID)
	}

	items := make([]ports.TrackingCandidate, 0, len(clips))
	for _, clip := range clips {
		items = append(items, ports.TrackingCandidate{
			Clip:        clip.toEntity(),
			CampaignIDs: campaigns[clip.ClipID],
		})
	}
	return items, nil
}

func (r *Repository) AppendViewSample(ctx context.Context, sample entities.ViewSample) error {
	row := viewSampleModel{
		SampleID:  strings.TrimSpace(sample.SampleID),
		ClipID:    strings.TrimSpace(sample.ClipID),
		Views:     sample.Views,
		Date:      sample.ScrapedAt.UTC().Truncate(24 * time.Hour),
		ScrapedAt: sample.ScrapedAt.UTC(),
		Success:   sample.Success,
		Flag:      string(sample.Flag),
		Detail:    sample.Detail,
	}
	if row.SampleID == "" {
		row.SampleID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) LastTrustedSample(ctx context.Context, clipID string) (entities.ViewSample, bool, error) {
	var row viewSampleModel
	err := r.db.WithContext(ctx).
		Where("clip_id = ? AND success = ?", strings.TrimSpace(clipID), true).
		Order("scraped_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ViewSample{}, false, nil
		}
		return entities.ViewSample{}, false, err
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListViewSamples(ctx context.Context, clipID string, limit int) ([]entities.ViewSample, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []viewSampleModel
	if err := r.db.WithContext(ctx).
		Where("clip_id = ?", strings.TrimSpace(clipID)).
		Order("scraped_at DESC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.ViewSample, len(rows))
	for i, row := range rows {
		items[len(rows)-1-i] = row.toEntity()
	}
	return items, nil
}

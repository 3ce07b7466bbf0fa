package queries

import (
	"context"
	"strings"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

const defaultViewHistoryLimit = 100

type ViewHistory struct {
	Clip    entities.Clip
	Samples []entities.ViewSample
}

type ViewHistoryQuery struct {
	Clips    ports.ClipRepository
	Tracking ports.ViewTrackingRepository
}

// Execute returns up to limit of the newest samples, oldest first.
func (q ViewHistoryQuery) Execute(ctx context.Context, clipID string, limit int) (ViewHistory, error) {
	clip, err := q.Clips.GetClip(ctx, strings.TrimSpace(clipID))
	if err != nil {
		return ViewHistory{}, err
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultViewHistoryLimit
	}
	samples, err := q.Tracking.ListViewSamples(ctx, clip.ClipID, limit)
	if err != nil {
		return ViewHistory{}, err
	}
	return ViewHistory{Clip: clip, Samples: samples}, nil
}

package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/adapters/memory"
	"clipledger/contexts/finance-core/earnings-reconciliation/application/commands"
	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func campaign(id string, budget string, rate string) entities.Campaign {
	return entities.Campaign{
		CampaignID: id,
		Title:      "Campaign " + id,
		Budget:     dec(budget),
		Spent:      decimal.Zero,
		PayoutRate: dec(rate),
		Status:     entities.CampaignStatusActive,
		CreatedAt:  fixedNow.Add(-48 * time.Hour),
		UpdatedAt:  fixedNow.Add(-48 * time.Hour),
	}
}

// approvedClip returns a tracked clip and the approved submission linking it
// to campaignID.
func approvedClip(campaignID string, clipID string, userID string, views int64, initialViews int64) (entities.Clip, entities.ClipSubmission) {
	url := fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", userID, clipID)
	approvedAt := fixedNow.Add(-24 * time.Hour)
	return entities.Clip{
			ClipID:    clipID,
			UserID:    userID,
			URL:       url,
			Platform:  entities.PlatformTikTok,
			Status:    entities.ClipStatusTracking,
			Views:     views,
			CreatedAt: fixedNow.Add(-24 * time.Hour),
			UpdatedAt: fixedNow.Add(-24 * time.Hour),
		}, entities.ClipSubmission{
			SubmissionID: "sub-" + clipID,
			CampaignID:   campaignID,
			UserID:       userID,
			ClipID:       clipID,
			ClipURL:      url,
			Platform:     entities.PlatformTikTok,
			Status:       entities.SubmissionStatusApproved,
			InitialViews: initialViews,
			CreatedAt:    fixedNow.Add(-24 * time.Hour),
			UpdatedAt:    fixedNow.Add(-24 * time.Hour),
			ApprovedAt:   &approvedAt,
		}
}

func newStore(campaigns []entities.Campaign, clips []entities.Clip, submissions []entities.ClipSubmission) *memory.Store {
	store := memory.NewStore(memory.Seed{Campaigns: campaigns, Clips: clips, Submissions: submissions})
	store.SetNow(func() time.Time { return fixedNow })
	return store
}

func calculator(store *memory.Store, locker ports.CampaignLocker) commands.CalculateEarningsUseCase {
	return commands.CalculateEarningsUseCase{
		Clips:       store,
		Submissions: store,
		Campaigns:   store,
		Earnings:    store,
		Locker:      locker,
		Clock:       store,
		MaxRetries:  20,
		Logger:      quietLogger(),
	}
}

func syncer(store *memory.Store) commands.SyncSpendUseCase {
	return commands.SyncSpendUseCase{
		Campaigns:   store,
		Earnings:    store,
		Submissions: store,
		Clips:       store,
		UserTotals:  store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		Logger:      quietLogger(),
	}
}

func completer(store *memory.Store) commands.CompleteCampaignUseCase {
	return commands.CompleteCampaignUseCase{
		Campaigns: store,
		Earnings:  store,
		Sync:      syncer(store),
		Locker:    memory.NewKeyedLocker(),
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    quietLogger(),
	}
}

// scriptedFetcher returns a fixed view count per clip URL.
type scriptedFetcher struct {
	mu    sync.Mutex
	views map[string]int64
	fail  map[string]bool
	calls int
}

func (f *scriptedFetcher) FetchViewCount(_ context.Context, clipURL string, _ entities.Platform) (ports.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[clipURL] {
		return ports.FetchResult{}, domainerrors.ErrScrapeFailed
	}
	return ports.FetchResult{Views: f.views[clipURL], Success: true}, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, entities.Platform) (bool, error) {
	return false, nil
}

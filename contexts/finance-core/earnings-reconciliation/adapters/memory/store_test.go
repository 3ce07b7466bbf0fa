package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	domainerrors "clipledger/contexts/finance-core/earnings-reconciliation/domain/errors"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"

	"github.com/shopspring/decimal"
)

func seedStore() *Store {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)
	return NewStore(Seed{
		Campaigns: []entities.Campaign{
			{CampaignID: "c1", Budget: decimal.NewFromInt(100), PayoutRate: decimal.NewFromInt(10), Status: entities.CampaignStatusActive},
			{CampaignID: "c2", Budget: decimal.NewFromInt(100), PayoutRate: decimal.NewFromInt(10), Status: entities.CampaignStatusPaused},
		},
		Clips: []entities.Clip{
			{ClipID: "k1", UserID: "u1", Status: entities.ClipStatusTracking, Earnings: decimal.NewFromInt(60), LastScrapedAt: &now},
			{ClipID: "k2", UserID: "u2", Status: entities.ClipStatusTracking, Earnings: decimal.NewFromInt(30), LastScrapedAt: &earlier},
			{ClipID: "k3", UserID: "u3", Status: entities.ClipStatusTracking},
			{ClipID: "k4", UserID: "u4", Status: entities.ClipStatusTracking},
		},
		Submissions: []entities.ClipSubmission{
			{SubmissionID: "s1", CampaignID: "c1", UserID: "u1", ClipID: "k1", Status: entities.SubmissionStatusApproved},
			{SubmissionID: "s2", CampaignID: "c1", UserID: "u2", ClipID: "k2", Status: entities.SubmissionStatusPaid},
			{SubmissionID: "s3", CampaignID: "c1", UserID: "u3", ClipID: "k3", Status: entities.SubmissionStatusApproved},
			{SubmissionID: "s4", CampaignID: "c2", UserID: "u4", ClipID: "k4", Status: entities.SubmissionStatusApproved},
		},
	})
}

func TestSaveClipEarningsRejectsStalePrevious(t *testing.T) {
	store := seedStore()
	err := store.SaveClipEarnings(context.Background(), ports.ClipEarningsWrite{
		ClipID:   "k1",
		Previous: decimal.NewFromInt(50),
		Earnings: decimal.NewFromInt(65),
		Budgets:  []ports.CampaignBudget{{CampaignID: "c1", Budget: decimal.NewFromInt(100)}},
	})
	if !errors.Is(err, domainerrors.ErrEarningsConflict) {
		t.Fatalf("expected ErrEarningsConflict, got %v", err)
	}
}

func TestSaveClipEarningsRejectsOverBudgetWrite(t *testing.T) {
	store := seedStore()
	err := store.SaveClipEarnings(context.Background(), ports.ClipEarningsWrite{
		ClipID:   "k3",
		Previous: decimal.Zero,
		Earnings: decimal.RequireFromString("10.01"),
		Budgets:  []ports.CampaignBudget{{CampaignID: "c1", Budget: decimal.NewFromInt(100)}},
	})
	if !errors.Is(err, domainerrors.ErrEarningsConflict) {
		t.Fatalf("expected ErrEarningsConflict, got %v", err)
	}

	err = store.SaveClipEarnings(context.Background(), ports.ClipEarningsWrite{
		ClipID:   "k3",
		Previous: decimal.Zero,
		Earnings: decimal.NewFromInt(10),
		Budgets:  []ports.CampaignBudget{{CampaignID: "c1", Budget: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("exact fit should be accepted: %v", err)
	}
	clip, _ := store.GetClip(context.Background(), "k3")
	if !clip.EarningsCalculated || clip.EarningsUpdatedAt == nil {
		t.Fatalf("expected calculated stamp, got %+v", clip)
	}
}

func TestSumCampaignEarningsCountsApprovedAndPaid(t *testing.T) {
	store := seedStore()
	total, clips, err := store.SumCampaignEarnings(context.Background(), "c1", "")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total.String() != "90" || clips != 3 {
		t.Fatalf("expected 90 over 3 clips, got %s over %d", total, clips)
	}
	excluded, _, _ := store.SumCampaignEarnings(context.Background(), "c1", "k1")
	if excluded.String() != "30" {
		t.Fatalf("expected 30 without k1, got %s", excluded)
	}
}

func TestListTrackingCandidatesOrdersNeverScrapedFirst(t *testing.T) {
	store := seedStore()
	items, err := store.ListTrackingCandidates(context.Background(), []entities.SubmissionStatus{
		entities.SubmissionStatusApproved,
		entities.SubmissionStatusPaid,
	}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, item := range items {
		got = append(got, item.Clip.ClipID)
	}
	// k4 belongs to a paused campaign.
	want := []string{"k3", "k2", "k1"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestViewSamplesReturnNewestWindowAscending(t *testing.T) {
	store := seedStore()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = store.AppendViewSample(context.Background(), entities.ViewSample{
			SampleID:  "v" + string(rune('0'+i)),
			ClipID:    "k1",
			Views:     int64(100 * (i + 1)),
			ScrapedAt: base.Add(time.Duration(i) * time.Minute),
			Success:   i != 4,
		})
	}
	samples, err := store.ListViewSamples(context.Background(), "k1", 3)
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(samples) != 3 || samples[0].Views != 300 || samples[2].Views != 500 {
		t.Fatalf("unexpected window: %+v", samples)
	}
	last, ok, _ := store.LastTrustedSample(context.Background(), "k1")
	if !ok || last.Views != 400 {
		t.Fatalf("expected last trusted 400, got %+v ok=%v", last, ok)
	}
}

func TestKeyedLockerSerialisesPerCampaign(t *testing.T) {
	locker := NewKeyedLocker()
	unlock, err := locker.Lock(context.Background(), "c1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	other, err := locker.Lock(context.Background(), "c2")
	if err != nil {
		t.Fatalf("independent campaign must not block: %v", err)
	}
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "c1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while c1 is held, got %v", err)
	}

	unlock()
	unlock()
	again, err := locker.Lock(context.Background(), "c1")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}

func TestPutReplacesRowsSeenBySums(t *testing.T) {
	store := seedStore()
	ctx := context.Background()

	campaign, _ := store.GetCampaign(ctx, "c2")
	campaign.Status = entities.CampaignStatusActive
	store.PutCampaign(campaign)
	store.PutSubmission(entities.ClipSubmission{
		SubmissionID: "s5", CampaignID: "c2", UserID: "u1", ClipID: "k1",
		Status: entities.SubmissionStatusApproved,
	})

	total, clips, err := store.SumCampaignEarnings(ctx, "c2", "")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	// k4 has no earnings; k1 now also counts toward c2.
	if total.String() != "60" || clips != 2 {
		t.Fatalf("expected 60 over 2 clips, got %s over %d", total, clips)
	}
	items, _ := store.ListTrackingCandidates(ctx, []entities.SubmissionStatus{entities.SubmissionStatusApproved}, 0)
	for _, item := range items {
		if item.Clip.ClipID == "k1" && len(item.CampaignIDs) != 2 {
			t.Fatalf("expected k1 tracked for both campaigns, got %v", item.CampaignIDs)
		}
	}
}

func TestSaveClipEarningsChecksEveryListedCampaign(t *testing.T) {
	store := seedStore()
	ctx := context.Background()
	// k3 also counts toward c2, whose budget is 5.
	campaign, _ := store.GetCampaign(ctx, "c2")
	campaign.Budget = decimal.NewFromInt(5)
	store.PutCampaign(campaign)
	store.PutSubmission(entities.ClipSubmission{
		SubmissionID: "s6", CampaignID: "c2", UserID: "u3", ClipID: "k3",
		Status: entities.SubmissionStatusPaid,
	})

	err := store.SaveClipEarnings(ctx, ports.ClipEarningsWrite{
		ClipID:   "k3",
		Previous: decimal.Zero,
		Earnings: decimal.NewFromInt(6),
		Budgets: []ports.CampaignBudget{
			{CampaignID: "c1", Budget: decimal.NewFromInt(100)},
			{CampaignID: "c2", Budget: decimal.NewFromInt(5)},
		},
	})
	if !errors.Is(err, domainerrors.ErrEarningsConflict) {
		t.Fatalf("expected ErrEarningsConflict from the c2 cap, got %v", err)
	}
	if err := store.SaveClipEarnings(ctx, ports.ClipEarningsWrite{ClipID: "k3", Earnings: decimal.NewFromInt(1)}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without budgets, got %v", err)
	}
}

func TestEarningsPendingFollowsViewChanges(t *testing.T) {
	store := seedStore()
	ctx := context.Background()
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	if err := store.RecordTrustedViews(ctx, "k1", 0, at); err != nil {
		t.Fatalf("record: %v", err)
	}
	if pending, _ := store.ListEarningsPending(ctx, 0); len(pending) != 0 {
		t.Fatalf("unchanged views must not mark the clip, got %d", len(pending))
	}

	_ = store.RecordTrustedViews(ctx, "k1", 900, at)
	_ = store.RecordTrustedViews(ctx, "k2", 400, at.Add(time.Minute))
	pending, _ := store.ListEarningsPending(ctx, 0)
	if len(pending) != 2 || pending[0].ClipID != "k1" {
		t.Fatalf("expected k1 then k2 pending, got %+v", pending)
	}

	// A calculation against stale views leaves the marker in place.
	_ = store.ClearEarningsPending(ctx, "k1", 500)
	_ = store.ClearEarningsPending(ctx, "k2", 400)
	pending, _ = store.ListEarningsPending(ctx, 0)
	if len(pending) != 1 || pending[0].ClipID != "k1" {
		t.Fatalf("expected only k1 still pending, got %+v", pending)
	}
}

package ports

import (
	"context"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"
	"clipledger/internal/shared/events"
	"clipledger/internal/shared/outbox"

	"github.com/shopspring/decimal"
)

type CampaignFilter struct {
	Statuses []entities.CampaignStatus
}

type CampaignRepository interface {
	GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]entities.Campaign, error)
	// UpdateCampaignStatus writes status, completion stamps and updated_at only.
	UpdateCampaignStatus(ctx context.Context, campaign entities.Campaign) error
	// OverwriteSpent replaces campaign.spent with an authoritative value.
	OverwriteSpent(ctx context.Context, campaignID string, spent decimal.Decimal, updatedAt time.Time) error
	AppendState(ctx context.Context, item entities.StateHistory) error
}

type ClipRepository interface {
	GetClip(ctx context.Context, clipID string) (entities.Clip, error)
	// RecordTrustedViews updates views and last_scraped_at together, and
	// sets earnings_pending when views changed.
	RecordTrustedViews(ctx context.Context, clipID string, views int64, scrapedAt time.Time) error
	// TouchScraped updates last_scraped_at only.
	TouchScraped(ctx context.Context, clipID string, scrapedAt time.Time) error
	// ListEarningsPending returns clips whose earnings have not been
	// calculated against their current views, oldest update first.
	ListEarningsPending(ctx context.Context, limit int) ([]entities.Clip, error)
	// ClearEarningsPending drops the marker only while views still equal
	// the count the calculation used.
	ClearEarningsPending(ctx context.Context, clipID string, views int64) error
}

// CampaignBudget is one cap a clip earnings write must respect.
type CampaignBudget struct {
	CampaignID string
	Budget     decimal.Decimal
}

type ClipEarningsWrite struct {
	ClipID   string
	Previous decimal.Decimal
	Earnings decimal.Decimal
	// Budgets holds every campaign the clip counts toward.
	Budgets   []CampaignBudget
	UpdatedAt time.Time
}

type EarningsRepository interface {
	// SumCampaignEarnings returns the authoritative sum of clip earnings over
	// approved/paid submissions with a linked clip, each clip counted once,
	// skipping excludeClipID when it is non-empty.
	SumCampaignEarnings(ctx context.Context, campaignID string, excludeClipID string) (decimal.Decimal, int, error)
	// SaveClipEarnings is a conditional write: it fails with
	// ErrEarningsConflict when the stored earnings differ from Previous or
	// when the write would take any listed campaign over its budget.
	SaveClipEarnings(ctx context.Context, write ClipEarningsWrite) error
	ListCampaignClipEarnings(ctx context.Context, campaignID string) ([]ClipEarningsLine, error)
}

type ClipEarningsLine struct {
	ClipID       string
	SubmissionID string
	UserID       string
	ClipURL      string
	Platform     entities.Platform
	Status       entities.SubmissionStatus
	Views        int64
	InitialViews int64
	Earnings     decimal.Decimal
}

type SubmissionFilter struct {
	CampaignID string
	UserIDs    []string
	ClipID     string
	Statuses   []entities.SubmissionStatus
}

type SubmissionRepository interface {
	GetSubmission(ctx context.Context, submissionID string) (entities.ClipSubmission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]entities.ClipSubmission, error)
	UpdateSubmission(ctx context.Context, submission entities.ClipSubmission) error
}

// TrackingCandidate is one clip due for a scrape plus the campaigns it earns for.
type TrackingCandidate struct {
	Clip        entities.Clip
	CampaignIDs []string
}

type ViewTrackingRepository interface {
	// ListTrackingCandidates returns tracked clips linked to a submission in
	// one of statuses under an active campaign, oldest last_scraped_at first
	// (never-scraped clips lead).
	ListTrackingCandidates(ctx context.Context, statuses []entities.SubmissionStatus, limit int) ([]TrackingCandidate, error)
	AppendViewSample(ctx context.Context, sample entities.ViewSample) error
	LastTrustedSample(ctx context.Context, clipID string) (entities.ViewSample, bool, error)
	ListViewSamples(ctx context.Context, clipID string, limit int) ([]entities.ViewSample, error)
}

type UserTotalsRepository interface {
	SaveUserTotals(ctx context.Context, totals entities.UserTotals) error
	GetUserTotals(ctx context.Context, userID string) (entities.UserTotals, bool, error)
}

type PayoutRequestFilter struct {
	UserIDs  []string
	Statuses []entities.PayoutRequestStatus
	Settled  *bool
}

type PayoutRepository interface {
	CreatePayoutRequest(ctx context.Context, request entities.PayoutRequest) error
	GetPayoutRequest(ctx context.Context, requestID string) (entities.PayoutRequest, error)
	UpdatePayoutRequest(ctx context.Context, request entities.PayoutRequest) error
	ListPayoutRequests(ctx context.Context, filter PayoutRequestFilter) ([]entities.PayoutRequest, error)
	// MarkUserPaid moves the user's approved submissions to paid and settles
	// their completed payout requests in one transaction. It returns the
	// submissions that changed.
	MarkUserPaid(ctx context.Context, userID string, method string, notes string, paidAt time.Time) ([]entities.ClipSubmission, error)
}

// FetchResult is what a platform scraper reports for one clip.
type FetchResult struct {
	Views   int64
	Success bool
}

// ViewCountFetcher is the platform scraper boundary. Implementations must
// honour ctx deadlines.
type ViewCountFetcher interface {
	FetchViewCount(ctx context.Context, clipURL string, platform entities.Platform) (FetchResult, error)
}

// CampaignLocker serialises earnings read-compute-write per campaign.
type CampaignLocker interface {
	Lock(ctx context.Context, campaignID string) (unlock func(), err error)
}

// UserLocker serialises payout balance checks per user.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

type ScrapeRateLimiter interface {
	Allow(ctx context.Context, platform entities.Platform) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage = outbox.Message

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

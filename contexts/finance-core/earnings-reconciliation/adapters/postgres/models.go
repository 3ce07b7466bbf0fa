package postgresadapter

import (
	"errors"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/domain/entities"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type campaignModel struct {
	CampaignID       string          `gorm:"column:campaign_id;primaryKey"`
	Title            string          `gorm:"column:title"`
	Budget           decimal.Decimal `gorm:"column:budget;type:numeric(14,2)"`
	Spent            decimal.Decimal `gorm:"column:spent;type:numeric(14,2)"`
	PayoutRate       decimal.Decimal `gorm:"column:payout_rate;type:numeric(12,4)"`
	Status           string          `gorm:"column:status"`
	StartDate        *time.Time      `gorm:"column:start_date"`
	Deadline         *time.Time      `gorm:"column:deadline"`
	CompletedAt      *time.Time      `gorm:"column:completed_at"`
	CompletionReason string          `gorm:"column:completion_reason"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

func (m campaignModel) toEntity() entities.Campaign {
	return entities.Campaign{
		CampaignID:       m.CampaignID,
		Title:            m.Title,
		Budget:           m.Budget,
		Spent:            m.Spent,
		PayoutRate:       m.PayoutRate,
		Status:           entities.CampaignStatus(m.Status),
		StartDate:        utcPtr(m.StartDate),
		Deadline:         utcPtr(m.Deadline),
		CompletedAt:      utcPtr(m.CompletedAt),
		CompletionReason: m.CompletionReason,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

type clipModel struct {
	ClipID             string          `gorm:"column:clip_id;primaryKey"`
	UserID             string          `gorm:"column:user_id"`
	URL                string          `gorm:"column:url"`
	Platform           string          `gorm:"column:platform"`
	Status             string          `gorm:"column:status"`
	Views              int64           `gorm:"column:views"`
	Earnings           decimal.Decimal `gorm:"column:earnings;type:numeric(14,2)"`
	EarningsCalculated bool            `gorm:"column:earnings_calculated"`
	EarningsPending    bool            `gorm:"column:earnings_pending;not null;default:false;index"`
	LastScrapedAt      *time.Time      `gorm:"column:last_scraped_at"`
	EarningsUpdatedAt  *time.Time      `gorm:"column:earnings_updated_at"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
}

func (clipModel) TableName() string {
	return "clips"
}

func (m clipModel) toEntity() entities.Clip {
	return entities.Clip{
		ClipID:             m.ClipID,
		UserID:             m.UserID,
		URL:                m.URL,
		Platform:           platformFromColumn(m.Platform),
		Status:             entities.ClipStatus(m.Status),
		Views:              m.Views,
		Earnings:           m.Earnings,
		EarningsCalculated: m.EarningsCalculated,
		EarningsPending:    m.EarningsPending,
		LastScrapedAt:      utcPtr(m.LastScrapedAt),
		EarningsUpdatedAt:  utcPtr(m.EarningsUpdatedAt),
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

type submissionModel struct {
	SubmissionID    string              `gorm:"column:submission_id;primaryKey"`
	CampaignID      string              `gorm:"column:campaign_id"`
	UserID          string              `gorm:"column:user_id"`
	ClipID          *string             `gorm:"column:clip_id"`
	ClipURL         string              `gorm:"column:clip_url"`
	Platform        string              `gorm:"column:platform"`
	Status          string              `gorm:"column:status"`
	InitialViews    int64               `gorm:"column:initial_views"`
	Payout          decimal.NullDecimal `gorm:"column:payout;type:numeric(14,2)"`
	PaymentMethod   string              `gorm:"column:payment_method"`
	PaymentNotes    string              `gorm:"column:payment_notes"`
	RejectionReason string              `gorm:"column:rejection_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at"`
	ApprovedAt      *time.Time          `gorm:"column:approved_at"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
}

func (submissionModel) TableName() string {
	return "clip_submissions"
}

func (m submissionModel) toEntity() entities.ClipSubmission {
	item := entities.ClipSubmission{
		SubmissionID:    m.SubmissionID,
		CampaignID:      m.CampaignID,
		UserID:          m.UserID,
		ClipURL:         m.ClipURL,
		Platform:        platformFromColumn(m.Platform),
		Status:          entities.SubmissionStatus(m.Status),
		InitialViews:    m.InitialViews,
		PaymentMethod:   m.PaymentMethod,
		PaymentNotes:    m.PaymentNotes,
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		ApprovedAt:      utcPtr(m.ApprovedAt),
		PaidAt:          utcPtr(m.PaidAt),
	}
	if m.ClipID != nil {
		item.ClipID = *m.ClipID
	}
	if m.Payout.Valid {
		payout := m.Payout.Decimal
		item.Payout = &payout
	}
	return item
}

func submissionUpdates(item entities.ClipSubmission) map[string]any {
	payout := decimal.NullDecimal{}
	if item.Payout != nil {
		payout = decimal.NewNullDecimal(*item.Payout)
	}
	return map[string]any{
		"status":           string(item.Status),
		"initial_views":    item.InitialViews,
		"payout":           payout,
		"payment_method":   item.PaymentMethod,
		"payment_notes":    item.PaymentNotes,
		"rejection_reason": item.RejectionReason,
		"updated_at":       item.UpdatedAt.UTC(),
		"approved_at":      utcPtr(item.ApprovedAt),
		"paid_at":          utcPtr(item.PaidAt),
	}
}

type viewSampleModel struct {
	SampleID  string    `gorm:"column:sample_id;primaryKey"`
	ClipID    string    `gorm:"column:clip_id"`
	Views     int64     `gorm:"column:views"`
	Date      time.Time `gorm:"column:date;type:date"`
	ScrapedAt time.Time `gorm:"column:scraped_at"`
	Success   bool      `gorm:"column:success"`
	Flag      string    `gorm:"column:flag"`
	Detail    string    `gorm:"column:detail"`
}

func (viewSampleModel) TableName() string {
	return "view_tracking"
}

func (m viewSampleModel) toEntity() entities.ViewSample {
	return entities.ViewSample{
		SampleID:  m.SampleID,
		ClipID:    m.ClipID,
		Views:     m.Views,
		ScrapedAt: m.ScrapedAt.UTC(),
		Success:   m.Success,
		Flag:      entities.SampleFlag(m.Flag),
		Detail:    m.Detail,
	}
}

type stateHistoryModel struct {
	HistoryID    string    `gorm:"column:history_id;primaryKey"`
	CampaignID   string    `gorm:"column:campaign_id"`
	FromState    string    `gorm:"column:from_state"`
	ToState      string    `gorm:"column:to_state"`
	ChangedBy    string    `gorm:"column:changed_by"`
	ChangeReason string    `gorm:"column:change_reason"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (stateHistoryModel) TableName() string {
	return "campaign_state_history"
}

type userTotalsModel struct {
	UserID        string          `gorm:"column:user_id;primaryKey"`
	TotalViews    int64           `gorm:"column:total_views"`
	TotalEarnings decimal.Decimal `gorm:"column:total_earnings;type:numeric(14,2)"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (userTotalsModel) TableName() string {
	return "user_earnings_totals"
}

type payoutRequestModel struct {
	RequestID     string          `gorm:"column:request_id;primaryKey"`
	UserID        string          `gorm:"column:user_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	Status        string          `gorm:"column:status"`
	PaymentMethod string          `gorm:"column:payment_method"`
	Settled       bool            `gorm:"column:settled"`
	RequestedAt   time.Time       `gorm:"column:requested_at"`
	ProcessedAt   *time.Time      `gorm:"column:processed_at"`
}

func (payoutRequestModel) TableName() string {
	return "payout_requests"
}

func (m payoutRequestModel) toEntity() entities.PayoutRequest {
	return entities.PayoutRequest{
		RequestID:     m.RequestID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		Status:        entities.PayoutRequestStatus(m.Status),
		PaymentMethod: m.PaymentMethod,
		Settled:       m.Settled,
		RequestedAt:   m.RequestedAt.UTC(),
		ProcessedAt:   utcPtr(m.ProcessedAt),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "earnings_outbox"
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// platformFromColumn normalizes legacy spellings such as "TikTok" or "X".
// Unknown values pass through and are rejected by the scraper router.
func platformFromColumn(raw string) entities.Platform {
	platform, err := entities.ParsePlatform(raw)
	if err != nil {
		return entities.Platform(raw)
	}
	return platform
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

package http

// Money values are fixed two-place decimal strings so no client ever sees a
// float rounding of a budget or an earning.

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Available string `json:"available,omitempty"`
}

type SyncSpendRequest struct {
	CampaignID string `json:"campaign_id"`
}

type CampaignSyncDTO struct {
	CampaignID         string `json:"campaign_id"`
	Title              string `json:"title"`
	OldSpent           string `json:"old_spent"`
	NewSpent           string `json:"new_spent"`
	Difference         string `json:"difference"`
	Budget             string `json:"budget"`
	ApprovedClipsCount int    `json:"approved_clips_count"`
	OverBudget         bool   `json:"over_budget"`
	Error              string `json:"error,omitempty"`
}

type SyncSpendResponse struct {
	Campaigns       []CampaignSyncDTO `json:"campaigns"`
	TotalCampaigns  int               `json:"total_campaigns"`
	Corrected       int               `json:"corrected"`
	Failed          int               `json:"failed"`
	TotalDifference string            `json:"total_difference"`
}

type CampaignSyncStatusDTO struct {
	CampaignID         string `json:"campaign_id"`
	Title              string `json:"title"`
	Status             string `json:"status"`
	Budget             string `json:"budget"`
	StoredSpent        string `json:"stored_spent"`
	ActualSpent        string `json:"actual_spent"`
	Difference         string `json:"difference"`
	ApprovedClipsCount int    `json:"approved_clips_count"`
	NeedsSync          bool   `json:"needs_sync"`
	OverBudget         bool   `json:"over_budget"`
}

type SyncStatusResponse struct {
	Campaigns      []CampaignSyncStatusDTO `json:"campaigns"`
	TotalCampaigns int                     `json:"total_campaigns"`
	NeedingSync    int                     `json:"needing_sync"`
}

type CompleteCampaignRequest struct {
	CampaignID       string `json:"campaign_id"`
	CompletionReason string `json:"completion_reason"`
}

type ClipEarningsDTO struct {
	ClipID       string `json:"clip_id"`
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	ClipURL      string `json:"clip_url"`
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	Views        int64  `json:"views"`
	InitialViews int64  `json:"initial_views"`
	ViewsGained  int64  `json:"views_gained"`
	Earnings     string `json:"earnings"`
}

type CompleteCampaignResponse struct {
	CampaignID       string            `json:"campaign_id"`
	Title            string            `json:"title"`
	Status           string            `json:"status"`
	CompletionReason string            `json:"completion_reason"`
	CompletedAt      string            `json:"completed_at,omitempty"`
	Budget           string            `json:"budget"`
	Spent            string            `json:"spent"`
	Remaining        string            `json:"remaining"`
	Utilization      string            `json:"utilization_percent"`
	Clips            []ClipEarningsDTO `json:"clips"`
}

type UserBalanceDTO struct {
	UserID              string `json:"user_id"`
	ApprovedSubmissions int    `json:"approved_submissions"`
	UnpaidEarnings      string `json:"unpaid_earnings"`
	CoveredByRequests   string `json:"covered_by_requests"`
	PendingRequests     string `json:"pending_requests"`
	Payable             string `json:"payable"`
	Available           string `json:"available"`
}

type PendingPaymentsResponse struct {
	Status             string           `json:"status"`
	Users              []UserBalanceDTO `json:"users"`
	TotalPendingAmount string           `json:"total_pending_amount"`
	MinimumPayout      string           `json:"minimum_payout"`
}

type ProcessedPaymentDTO struct {
	UserID         string   `json:"user_id"`
	Submissions    int      `json:"submissions"`
	TotalPaid      string   `json:"total_paid"`
	PaymentMethods []string `json:"payment_methods"`
	LastPaidAt     string   `json:"last_paid_at,omitempty"`
}

type ProcessedPaymentsResponse struct {
	Status       string                `json:"status"`
	Users        []ProcessedPaymentDTO `json:"users"`
	TotalPaidOut string                `json:"total_paid_out"`
}

type MarkPaymentsPaidRequest struct {
	UserIDs       []string `json:"user_ids"`
	PaymentMethod string   `json:"payment_method"`
	Notes         string   `json:"notes"`
}

type UserPaymentDTO struct {
	UserID          string `json:"user_id"`
	SubmissionsPaid int    `json:"submissions_paid"`
	Amount          string `json:"amount"`
}

type MarkPaymentsPaidResponse struct {
	Users           []UserPaymentDTO `json:"users"`
	SubmissionsPaid int              `json:"submissions_paid"`
	TotalAmount     string           `json:"total_amount"`
	PaidAt          string           `json:"paid_at"`
}

type TrackViewsRequest struct {
	BatchSize int `json:"batch_size"`
}

type TrackingErrorDTO struct {
	ClipID   string `json:"clip_id"`
	ClipURL  string `json:"clip_url"`
	Platform string `json:"platform"`
	Message  string `json:"message"`
}

type TrackViewsResponse struct {
	Processed  int                `json:"processed"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Anomalies  int                `json:"anomalies"`
	Errors     []TrackingErrorDTO `json:"errors"`
}

type EarningsResponse struct {
	ClipID          string `json:"clip_id"`
	SubmissionID    string `json:"submission_id,omitempty"`
	CampaignID      string `json:"campaign_id,omitempty"`
	Success         bool   `json:"success"`
	Skipped         bool   `json:"skipped"`
	Earnings        string `json:"earnings"`
	Delta           string `json:"delta"`
	ViewsGained     int64  `json:"views_gained"`
	RawEarnings     string `json:"raw_earnings"`
	RemainingBudget string `json:"remaining_budget"`
	Capped          bool   `json:"capped"`
	Error           string `json:"error,omitempty"`
}

type ViewSampleDTO struct {
	Views     int64  `json:"views"`
	ScrapedAt string `json:"scraped_at"`
	Success   bool   `json:"success"`
	Flag      string `json:"flag,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type ViewHistoryResponse struct {
	ClipID   string          `json:"clip_id"`
	Platform string          `json:"platform"`
	Views    int64           `json:"views"`
	Samples  []ViewSampleDTO `json:"samples"`
}

type ReviewSubmissionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type SubmissionDTO struct {
	SubmissionID string `json:"submission_id"`
	CampaignID   string `json:"campaign_id"`
	UserID       string `json:"user_id"`
	ClipID       string `json:"clip_id,omitempty"`
	Status       string `json:"status"`
	InitialViews int64  `json:"initial_views"`
	Payout       string `json:"payout,omitempty"`
}

type PayoutRequestCreate struct {
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

type ProcessPayoutRequest struct {
	Action string `json:"action"`
}

type PayoutRequestDTO struct {
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	RequestedAt   string `json:"requested_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
}

type UserEarningsResponse struct {
	Balance       UserBalanceDTO `json:"balance"`
	TotalViews    int64          `json:"total_views"`
	TotalEarnings string         `json:"total_earnings"`
}

type PipelineRunResponse struct {
	Tracking           TrackViewsResponse `json:"tracking"`
	EarningsCalculated int                `json:"earnings_calculated"`
	EarningsFailed     int                `json:"earnings_failed"`
	CampaignsSynced    int                `json:"campaigns_synced"`
	CampaignsCompleted int                `json:"campaigns_completed"`
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
	SubmissionStatusPaid     SubmissionStatus = "paid"
)

// ClipSubmission links a user's clip to a campaign. Each submission owns its
// own InitialViews baseline and Payout.
type ClipSubmission struct {
	SubmissionID    string
	CampaignID      string
	UserID          string
	ClipID          string
	ClipURL         string
	Platform        Platform
	Status          SubmissionStatus
	InitialViews    int64
	Payout          *decimal.Decimal
	PaymentMethod   string
	PaymentNotes    string
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	PaidAt          *time.Time
}

func (s ClipSubmission) HasClip() bool {
	return s.ClipID != ""
}

// CountsTowardSpend reports whether the linked clip's earnings belong to the
// campaign's authoritative spend.
func (s ClipSubmission) CountsTowardSpend() bool {
	return s.HasClip() && (s.Status == SubmissionStatusApproved || s.Status == SubmissionStatusPaid)
}

// RaisePayout sets the payout to amount unless a larger payout is already recorded.
func (s *ClipSubmission) RaisePayout(amount decimal.Decimal) {
	if s.Payout != nil && s.Payout.GreaterThanOrEqual(amount) {
		return
	}
	value := amount
	s.Payout = &value
}

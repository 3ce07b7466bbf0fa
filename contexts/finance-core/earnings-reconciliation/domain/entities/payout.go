package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutRequestStatus string

const (
	PayoutRequestStatusPending   PayoutRequestStatus = "pending"
	PayoutRequestStatusCompleted PayoutRequestStatus = "completed"
	PayoutRequestStatusRejected  PayoutRequestStatus = "rejected"
)

// PayoutRequest is a user's withdrawal request. Settled flips once the
// submissions it covered were marked paid, so a completed request is never
// subtracted from the payable balance twice.
type PayoutRequest struct {
	RequestID     string
	UserID        string
	Amount        decimal.Decimal
	Status        PayoutRequestStatus
	PaymentMethod string
	Settled       bool
	RequestedAt   time.Time
	ProcessedAt   *time.Time
}

// UserTotals is the earnings-relevant, denormalized subset of a user.
type UserTotals struct {
	UserID        string
	TotalViews    int64
	TotalEarnings decimal.Decimal
	UpdatedAt     time.Time
}

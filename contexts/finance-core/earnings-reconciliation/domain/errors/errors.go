package errors

import "errors"

var (
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrClipNotFound           = errors.New("clip not found")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrPayoutRequestNotFound  = errors.New("payout request not found")
	ErrNoActiveSubmission     = errors.New("clip has no active submission")
	ErrCampaignNotActive      = errors.New("campaign is not active")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidPlatform        = errors.New("unsupported platform")
	ErrEarningsConflict       = errors.New("clip earnings changed concurrently")
	ErrInsufficientBalance    = errors.New("requested amount exceeds available balance")
	ErrScrapeFailed           = errors.New("view count scrape failed")
	ErrRateLimited            = errors.New("scrape rate limit exceeded")
	ErrLockNotAcquired        = errors.New("campaign lock not acquired")
)

// BalanceError carries the balance a rejected payout request could have drawn.
// Available is a fixed two-place decimal string.
type BalanceError struct {
	Available string
}

func (e *BalanceError) Error() string {
	return ErrInsufficientBalance.Error() + " (available " + e.Available + ")"
}

func (e *BalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClipStatus string

const (
	ClipStatusTracking ClipStatus = "tracking"
	ClipStatusArchived ClipStatus = "archived"
	ClipStatusRemoved  ClipStatus = "removed"
)

type Clip struct {
	ClipID             string
	UserID             string
	URL                string
	Platform           Platform
	Status             ClipStatus
	Views              int64
	Earnings           decimal.Decimal
	EarningsCalculated bool
	// EarningsPending is set when trusted views move and cleared once a
	// calculation has run against those views.
	EarningsPending    bool
	LastScrapedAt      *time.Time
	EarningsUpdatedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c Clip) Tracked() bool {
	return c.Status == ClipStatusTracking
}

type SampleFlag string

const (
	SampleFlagNone       SampleFlag = ""
	SampleFlagRegression SampleFlag = "regression"
	SampleFlagScrapeFail SampleFlag = "scrape_failed"
)

// ViewSample is one append-only observation of a clip's view count.
type ViewSample struct {
	SampleID  string
	ClipID    string
	Views     int64
	ScrapedAt time.Time
	Success   bool
	Flag      SampleFlag
	Detail    string
}

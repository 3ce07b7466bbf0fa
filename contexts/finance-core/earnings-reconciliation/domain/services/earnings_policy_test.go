package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestRawEarningsFloorsToCents(t *testing.T) {
	cases := []struct {
		name   string
		views  int64
		rate   string
		expect string
	}{
		{name: "whole thousands", views: 2000, rate: "10", expect: "20.00"},
		{name: "fractional cent floors", views: 1, rate: "10", expect: "0.01"},
		{name: "below one cent", views: 1, rate: "0.5", expect: "0.00"},
		{name: "odd rate", views: 1234, rate: "3.33", expect: "4.10"},
		{name: "no views", views: 0, rate: "10", expect: "0.00"},
		{name: "zero rate", views: 5000, rate: "0", expect: "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RawEarnings(tc.views, dec(tc.rate))
			if got.StringFixed(MoneyPlaces) != tc.expect {
				t.Fatalf("expected %s, got %s", tc.expect, got.StringFixed(MoneyPlaces))
			}
		})
	}
}

func TestDecideEarningsClampsToRemainingBudget(t *testing.T) {
	decision := DecideEarnings(EarningsInput{
		CurrentViews:       2000,
		InitialViews:       0,
		PayoutRate:         dec("10"),
		Budget:             dec("100"),
		OtherClipsEarnings: dec("95"),
		FirstCalculation:   true,
	})
	if decision.Final.StringFixed(2) != "5.00" {
		t.Fatalf("expected clamp to 5.00, got %s", decision.Final.StringFixed(2))
	}
	if !decision.Capped || decision.RawEarnings.StringFixed(2) != "20.00" {
		t.Fatalf("expected capped raw 20.00, got %+v", decision)
	}
	if !decision.Persist {
		t.Fatalf("first calculation must persist")
	}
}

func TestDecideEarningsOverspentCampaignYieldsZero(t *testing.T) {
	decision := DecideEarnings(EarningsInput{
		CurrentViews:       5000,
		PayoutRate:         dec("10"),
		Budget:             dec("100"),
		OtherClipsEarnings: dec("120"),
		FirstCalculation:   true,
	})
	if !decision.Final.IsZero() || !decision.RemainingBudget.IsZero() {
		t.Fatalf("expected zero earnings on overspent campaign, got %+v", decision)
	}
}

func TestDecideEarningsNeverDecreasesStoredValue(t *testing.T) {
	decision := DecideEarnings(EarningsInput{
		CurrentViews:       1000,
		PayoutRate:         dec("10"),
		Budget:             dec("100"),
		OtherClipsEarnings: dec("95"),
		StoredEarnings:     dec("8.00"),
	})
	if decision.Persist {
		t.Fatalf("lower recalculation must not persist")
	}
	if decision.Final.StringFixed(2) != "8.00" || !decision.Delta.IsZero() {
		t.Fatalf("expected stored 8.00 kept with zero delta, got %+v", decision)
	}
}

func TestDecideEarningsGrowsStoredValue(t *testing.T) {
	decision := DecideEarnings(EarningsInput{
		CurrentViews:   3000,
		InitialViews:   1000,
		PayoutRate:     dec("10"),
		Budget:         dec("100"),
		StoredEarnings: dec("10.00"),
	})
	if !decision.Persist || decision.Final.StringFixed(2) != "20.00" || decision.Delta.StringFixed(2) != "10.00" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestViewsGainedIgnoresRegression(t *testing.T) {
	if got := ViewsGained(900, 1000); got != 0 {
		t.Fatalf("expected 0 gained views, got %d", got)
	}
}

func TestWithinBudget(t *testing.T) {
	if !WithinBudget(dec("100"), dec("95"), dec("5")) {
		t.Fatalf("exact budget should be allowed")
	}
	if WithinBudget(dec("100"), dec("95"), dec("5.01")) {
		t.Fatalf("overshoot must be rejected")
	}
	if !WithinBudget(dec("100"), dec("120"), decimal.Zero) {
		t.Fatalf("zero earnings is always writable")
	}
}

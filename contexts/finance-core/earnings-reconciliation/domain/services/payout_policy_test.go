package services

import "testing"

func TestMeetsMinimumAtBoundary(t *testing.T) {
	if MeetsMinimum(dec("49.99"), DefaultMinimumPayout) {
		t.Fatalf("49.99 must not meet the 50.00 minimum")
	}
	if !MeetsMinimum(dec("50.00"), DefaultMinimumPayout) {
		t.Fatalf("50.00 must meet the 50.00 minimum")
	}
}

func TestPayableBalanceFloorsAtZero(t *testing.T) {
	if got := PayableBalance(dec("40"), dec("55")); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	if got := PayableBalance(dec("80"), dec("30")); got.StringFixed(2) != "50.00" {
		t.Fatalf("expected 50.00, got %s", got)
	}
}

package services

import "github.com/shopspring/decimal"

// DefaultMinimumPayout is the smallest balance that is surfaced as payable.
var DefaultMinimumPayout = decimal.NewFromInt(50)

// PayableBalance is unpaid approved earnings minus amounts already handed out
// through completed payout requests, floored at zero.
func PayableBalance(unpaidEarnings decimal.Decimal, coveredByRequests decimal.Decimal) decimal.Decimal {
	balance := unpaidEarnings.Sub(coveredByRequests)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

func MeetsMinimum(balance decimal.Decimal, minimum decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(minimum)
}

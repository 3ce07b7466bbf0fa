package services

import "github.com/shopspring/decimal"

// MoneyPlaces is the scale all persisted money amounts are kept at.
const MoneyPlaces = 2

var perMille = decimal.NewFromInt(1000)

// RoundMoneyDown truncates toward negative infinity at cent precision so a
// rounded amount can never exceed the unrounded one.
func RoundMoneyDown(value decimal.Decimal) decimal.Decimal {
	return value.RoundFloor(MoneyPlaces)
}

func ViewsGained(currentViews int64, initialViews int64) int64 {
	if currentViews <= initialViews {
		return 0
	}
	return currentViews - initialViews
}

func RawEarnings(viewsGained int64, payoutRate decimal.Decimal) decimal.Decimal {
	if viewsGained <= 0 || !payoutRate.IsPositive() {
		return decimal.Zero
	}
	return RoundMoneyDown(decimal.NewFromInt(viewsGained).Mul(payoutRate).Div(perMille))
}

type EarningsInput struct {
	CurrentViews       int64
	InitialViews       int64
	PayoutRate         decimal.Decimal
	Budget             decimal.Decimal
	OtherClipsEarnings decimal.Decimal
	StoredEarnings     decimal.Decimal
	FirstCalculation   bool
}

type EarningsDecision struct {
	ViewsGained     int64
	RawEarnings     decimal.Decimal
	RemainingBudget decimal.Decimal
	Calculated      decimal.Decimal
	Final           decimal.Decimal
	Delta           decimal.Decimal
	Capped          bool
	Persist         bool
}

// DecideEarnings clamps a clip's raw earnings to what is left of the budget
// after every other clip's earnings, and applies the non-decrease rule: the
// stored value only moves when it grows or has never been calculated.
func DecideEarnings(in EarningsInput) EarningsDecision {
	gained := ViewsGained(in.CurrentViews, in.InitialViews)
	raw := RawEarnings(gained, in.PayoutRate)

	remaining := RoundMoneyDown(in.Budget.Sub(in.OtherClipsEarnings))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	calculated := decimal.Min(raw, remaining)
	if calculated.IsNegative() {
		calculated = decimal.Zero
	}

	decision := EarningsDecision{
		ViewsGained:     gained,
		RawEarnings:     raw,
		RemainingBudget: remaining,
		Calculated:      calculated,
		Capped:          raw.GreaterThan(calculated),
	}
	if in.FirstCalculation || calculated.GreaterThan(in.StoredEarnings) {
		decision.Persist = true
		decision.Final = calculated
	} else {
		decision.Final = in.StoredEarnings
	}
	decision.Delta = decision.Final.Sub(in.StoredEarnings)
	return decision
}

// WithinBudget reports whether writing clipEarnings next to others keeps the
// campaign total at or under budget.
func WithinBudget(budget decimal.Decimal, others decimal.Decimal, clipEarnings decimal.Decimal) bool {
	return others.Add(clipEarnings).LessThanOrEqual(budget) || clipEarnings.IsZero()
}

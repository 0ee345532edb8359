package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Statistics is a derived snapshot over a record set, never persisted.
	Statistics struct {
		TotalDistance     decimal.Decimal `json:"totalDistance"`
		TotalCost         decimal.Decimal `json:"totalCost"`
		AverageDailyPrice decimal.Decimal `json:"averageDailyPrice"`
		TripsCount        int             `json:"tripsCount"`
		TotalRefuelAmount decimal.Decimal `json:"totalRefuelAmount"`
	}

	// MonthlyBalance is the report for one calendar month. Balance >= 0 is a
	// surplus (fuel paid for but not yet consumed), < 0 a deficit.
	// ConsumptionRatio is the share of the refuel budget consumed by trips,
	// saturated to [0, 1] for display.
	MonthlyBalance struct {
		Year             int             `json:"year"`
		Month            int             `json:"month"`
		TripsCost        decimal.Decimal `json:"monthlyTripsCost"`
		RefuelTotal      decimal.Decimal `json:"monthlyRefuelTotal"`
		Balance          decimal.Decimal `json:"balance"`
		ConsumptionRatio decimal.Decimal `json:"consumptionRatio"`
	}

	// UserSummary is one row of the admin account-summary view.
	UserSummary struct {
		User          User            `json:"user"`
		TotalSpent    decimal.Decimal `json:"totalSpent"`
		TotalRefueled decimal.Decimal `json:"totalRefueled"`
		Balance       decimal.Decimal `json:"balance"`
	}
)

// ComputeStatistics reduces a record set to its dashboard snapshot. The
// totals are lifetime, not month-filtered; the monthly report is computed
// separately (the original application showed both side by side and that
// split is kept).
func ComputeStatistics(trips []TripRecord, refuels []RefuelRecord) Statistics {
	return Statistics{
		TotalDistance:     TotalDistance(trips),
		TotalCost:         TotalCost(trips),
		AverageDailyPrice: AverageCost(trips),
		TripsCount:        len(trips),
		TotalRefuelAmount: TotalRefuelAmount(refuels),
	}
}

// ComputeMonthlyBalance filters the record set to one calendar month and
// balances paid refuels against computed trip costs. The caller must have
// applied access filtering already; the engine has no notion of a viewer.
func ComputeMonthlyBalance(trips []TripRecord, refuels []RefuelRecord, year int, month time.Month) MonthlyBalance {
	tripsCost := TotalCost(FilterTripsByMonth(trips, year, month))
	refuelTotal := TotalRefuelAmount(FilterRefuelsByMonth(refuels, year, month))
	return MonthlyBalance{
		Year:             year,
		Month:            int(month),
		TripsCost:        tripsCost,
		RefuelTotal:      refuelTotal,
		Balance:          refuelTotal.Sub(tripsCost),
		ConsumptionRatio: consumptionRatio(tripsCost, refuelTotal),
	}
}

// consumptionRatio guards the zero denominator and saturates at 1.
func consumptionRatio(tripsCost, refuelTotal decimal.Decimal) decimal.Decimal {
	if refuelTotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	ratio := tripsCost.Div(refuelTotal)
	if ratio.IsNegative() {
		return decimal.Zero
	}
	one := decimal.NewFromInt(1)
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

// ComputeUserSummaries runs the monthly balance per user over the full record
// set, producing the admin account-summary rows in the order users are given.
func ComputeUserSummaries(users []User, trips []TripRecord, refuels []RefuelRecord, year int, month time.Month) []UserSummary {
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		b := ComputeMonthlyBalance(
			FilterTrips(RegularViewer(u.ID), trips),
			FilterRefuels(RegularViewer(u.ID), refuels),
			year, month,
		)
		summaries = append(summaries, UserSummary{
			User:          u,
			TotalSpent:    b.TripsCost,
			TotalRefueled: b.RefuelTotal,
			Balance:       b.Balance,
		})
	}
	return summaries
}

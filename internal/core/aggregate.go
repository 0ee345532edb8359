package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pure reductions over record slices. All sums are order-independent; every
// function returns zero for empty input rather than failing.

// TotalDistance sums the odometer deltas of all trips.
func TotalDistance(trips []TripRecord) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trips {
		total = total.Add(t.Distance())
	}
	return total
}

// TotalCost sums the stored DailyPrice of all trips.
func TotalCost(trips []TripRecord) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trips {
		total = total.Add(t.DailyPrice)
	}
	return total
}

// AverageCost is TotalCost divided by trip count, zero for empty input.
func AverageCost(trips []TripRecord) decimal.Decimal {
	if len(trips) == 0 {
		return decimal.Zero
	}
	return TotalCost(trips).Div(decimal.NewFromInt(int64(len(trips))))
}

// TotalRefuelAmount sums the paid amounts of all refuels.
func TotalRefuelAmount(refuels []RefuelRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refuels {
		total = total.Add(r.Amount)
	}
	return total
}

// inMonth reports whether the stored date string falls in the given calendar
// month. Unparseable dates are excluded rather than aborting the aggregation.
func inMonth(date string, year int, month time.Month) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return d.Year() == year && d.Month() == month
}

// FilterTripsByMonth keeps trips whose date falls in the given month.
func FilterTripsByMonth(trips []TripRecord, year int, month time.Month) []TripRecord {
	out := make([]TripRecord, 0, len(trips))
	for _, t := range trips {
		if inMonth(t.Date, year, month) {
			out = append(out, t)
		}
	}
	return out
}

// FilterRefuelsByMonth keeps refuels whose date falls in the given month.
func FilterRefuelsByMonth(refuels []RefuelRecord, year int, month time.Month) []RefuelRecord {
	out := make([]RefuelRecord, 0, len(refuels))
	for _, r := range refuels {
		if inMonth(r.Date, year, month) {
			out = append(out, r)
		}
	}
	return out
}

package core

import "github.com/shopspring/decimal"

// fuelEconomy is the assumed distance covered per liter of fuel. It is a
// fixed system parameter, not user-configurable.
var fuelEconomy = decimal.NewFromInt(12)

// TripCost computes the cost of a trip from its odometer readings and the
// fuel price in effect: (end - start) / 12 * pricePerLiter.
//
// Returns ErrInvalidRange when end <= start; the record must be rejected
// before construction, never clamped. The result is exact within decimal
// division precision and is rounded only at presentation time.
func TripCost(startOdometer, endOdometer, pricePerLiter decimal.Decimal) (decimal.Decimal, error) {
	distance := endOdometer.Sub(startOdometer)
	if distance.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidRange
	}
	return distance.Div(fuelEconomy).Mul(pricePerLiter), nil
}

// NewTrip validates and builds a trip record, precomputing DailyPrice. The
// odometer readings must be non-negative and strictly increasing.
func NewTrip(id, userID, date string, startOdometer, endOdometer, pricePerLiter decimal.Decimal) (TripRecord, error) {
	if err := ValidateDate(date); err != nil {
		return TripRecord{}, err
	}
	if startOdometer.IsNegative() || endOdometer.IsNegative() {
		return TripRecord{}, ErrInvalidRange
	}
	cost, err := TripCost(startOdometer, endOdometer, pricePerLiter)
	if err != nil {
		return TripRecord{}, err
	}
	return TripRecord{
		ID:            id,
		UserID:        userID,
		Date:          date,
		StartOdometer: startOdometer,
		EndOdometer:   endOdometer,
		PricePerLiter: pricePerLiter,
		DailyPrice:    cost,
	}, nil
}

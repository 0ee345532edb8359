package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeMonthlyBalanceEmpty(t *testing.T) {
	b := ComputeMonthlyBalance(nil, nil, 2025, time.January)
	if !b.Balance.IsZero() {
		t.Fatalf("balance on empty sets = %s, want 0", b.Balance)
	}
	if !b.ConsumptionRatio.IsZero() {
		t.Fatalf("ratio on empty sets = %s, want 0", b.ConsumptionRatio)
	}
}

// Trips only: everything consumed is a deficit.
func TestComputeMonthlyBalanceDeficit(t *testing.T) {
	trips := []TripRecord{mustTrip(t, "u1", "2025-01-10", "100", "160", "10")}
	b := ComputeMonthlyBalance(trips, nil, 2025, time.January)

	if !b.TripsCost.Equal(dec("50")) {
		t.Fatalf("trips cost = %s, want 50", b.TripsCost)
	}
	if !b.Balance.Equal(dec("-50")) {
		t.Fatalf("balance = %s, want -50 (deficit)", b.Balance)
	}
	// refuel total is zero: the ratio guard applies even with nonzero cost
	if !b.ConsumptionRatio.IsZero() {
		t.Fatalf("ratio = %s, want 0 via division guard", b.ConsumptionRatio)
	}
}

// Refuels exceeding consumption: surplus with a partial ratio.
func TestComputeMonthlyBalanceSurplus(t *testing.T) {
	trips := []TripRecord{mustTrip(t, "u1", "2025-01-10", "0", "120", "10")}
	refuels := []RefuelRecord{mustRefuel(t, "u1", "2025-01-12", "200")}
	b := ComputeMonthlyBalance(trips, refuels, 2025, time.January)

	if !b.TripsCost.Equal(dec("100")) {
		t.Fatalf("trips cost = %s, want 100", b.TripsCost)
	}
	if !b.RefuelTotal.Equal(dec("200")) {
		t.Fatalf("refuel total = %s, want 200", b.RefuelTotal)
	}
	if !b.Balance.Equal(dec("100")) {
		t.Fatalf("balance = %s, want 100 (surplus)", b.Balance)
	}
	if !b.ConsumptionRatio.Equal(dec("0.5")) {
		t.Fatalf("ratio = %s, want 0.5", b.ConsumptionRatio)
	}
}

func TestComputeMonthlyBalanceRefuelsOnly(t *testing.T) {
	refuels := []RefuelRecord{mustRefuel(t, "u1", "2025-01-12", "150")}
	b := ComputeMonthlyBalance(nil, refuels, 2025, time.January)

	if !b.Balance.Equal(dec("150")) {
		t.Fatalf("balance = %s, want 150", b.Balance)
	}
	// 0 / 150 is a valid division, not a guard case
	if !b.ConsumptionRatio.IsZero() {
		t.Fatalf("ratio = %s, want 0", b.ConsumptionRatio)
	}
}

// The ratio saturates at 1 when more was consumed than paid for.
func TestConsumptionRatioSaturates(t *testing.T) {
	trips := []TripRecord{mustTrip(t, "u1", "2025-01-10", "0", "600", "10")} // cost 500
	refuels := []RefuelRecord{mustRefuel(t, "u1", "2025-01-12", "100")}
	b := ComputeMonthlyBalance(trips, refuels, 2025, time.January)

	one := decimal.NewFromInt(1)
	if !b.ConsumptionRatio.Equal(one) {
		t.Fatalf("ratio = %s, want saturated 1", b.ConsumptionRatio)
	}
	if b.ConsumptionRatio.IsNegative() || b.ConsumptionRatio.GreaterThan(one) {
		t.Fatalf("ratio %s escaped [0, 1]", b.ConsumptionRatio)
	}
}

// Only records of the requested month enter the balance.
func TestComputeMonthlyBalanceMonthScoped(t *testing.T) {
	trips := []TripRecord{
		mustTrip(t, "u1", "2025-01-10", "0", "60", "10"),  // in scope, cost 50
		mustTrip(t, "u1", "2025-02-10", "60", "600", "10"), // other month
	}
	refuels := []RefuelRecord{
		mustRefuel(t, "u1", "2025-01-12", "80"), // in scope
		mustRefuel(t, "u1", "2024-01-12", "900"), // other year
	}
	b := ComputeMonthlyBalance(trips, refuels, 2025, time.January)
	if !b.Balance.Equal(dec("30")) {
		t.Fatalf("balance = %s, want 30", b.Balance)
	}
}

func TestComputeStatisticsLifetime(t *testing.T) {
	trips := []TripRecord{
		mustTrip(t, "u1", "2025-01-10", "0", "60", "10"),
		mustTrip(t, "u1", "2024-06-01", "60", "120", "10"),
	}
	refuels := []RefuelRecord{
		mustRefuel(t, "u1", "2025-01-12", "80"),
		mustRefuel(t, "u1", "2023-12-31", "20"),
	}
	s := ComputeStatistics(trips, refuels)
	if s.TripsCount != 2 {
		t.Fatalf("trips count = %d, want 2", s.TripsCount)
	}
	if !s.TotalDistance.Equal(dec("120")) {
		t.Fatalf("total distance = %s, want 120", s.TotalDistance)
	}
	// the dashboard totals span all time, not just the current month
	if !s.TotalCost.Equal(dec("100")) {
		t.Fatalf("total cost = %s, want 100", s.TotalCost)
	}
	if !s.AverageDailyPrice.Equal(dec("50")) {
		t.Fatalf("average = %s, want 50", s.AverageDailyPrice)
	}
	if !s.TotalRefuelAmount.Equal(dec("100")) {
		t.Fatalf("refuel amount = %s, want 100", s.TotalRefuelAmount)
	}
}

func TestComputeUserSummaries(t *testing.T) {
	users := []User{
		{ID: "u1", Username: "driver-one", Role: RoleRegular},
		{ID: "u2", Username: "driver-two", Role: RoleRegular},
		{ID: "u3", Username: "idle", Role: RoleRegular},
	}
	trips := []TripRecord{
		mustTrip(t, "u1", "2025-01-10", "0", "120", "10"),  // cost 100
		mustTrip(t, "u2", "2025-01-11", "0", "60", "10"),   // cost 50
		mustTrip(t, "u2", "2025-02-11", "60", "600", "10"), // other month
	}
	refuels := []RefuelRecord{
		mustRefuel(t, "u1", "2025-01-12", "200"),
		mustRefuel(t, "u2", "2025-01-13", "30"),
	}

	got := ComputeUserSummaries(users, trips, refuels, 2025, time.January)
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if !got[0].Balance.Equal(dec("100")) {
		t.Fatalf("u1 balance = %s, want 100", got[0].Balance)
	}
	if !got[1].Balance.Equal(dec("-20")) {
		t.Fatalf("u2 balance = %s, want -20", got[1].Balance)
	}
	if !got[2].TotalSpent.IsZero() || !got[2].TotalRefueled.IsZero() {
		t.Fatalf("idle user should have zero totals, got %+v", got[2])
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mishwar/internal/core"
	"mishwar/internal/storage"
)

// RecordService handles trips, refuels, the shared fuel price, statistics
// and monthly reports.
type RecordService struct {
	store            Store
	publisher        SyncPublisher
	defaultFuelPrice decimal.Decimal
}

func NewRecordService(store Store, publisher SyncPublisher, defaultFuelPrice decimal.Decimal) *RecordService {
	return &RecordService{
		store:            store,
		publisher:        publisher,
		defaultFuelPrice: defaultFuelPrice,
	}
}

// CreateTrip validates and saves a trip at the current shared fuel price,
// then asks the worker to mirror it. A failed publish never fails the
// request, the record stays pending and the periodic scan retries it.
func (s *RecordService) CreateTrip(ctx context.Context, userID, date string, startOdometer, endOdometer decimal.Decimal) (core.TripRecord, error) {
	price, err := s.GetFuelPrice(ctx)
	if err != nil {
		return core.TripRecord{}, fmt.Errorf("read fuel price: %w", err)
	}

	trip, err := core.NewTrip(uuid.NewString(), userID, date, startOdometer, endOdometer, price)
	if err != nil {
		return core.TripRecord{}, err
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return core.TripRecord{}, fmt.Errorf("save trip: %w", err)
	}

	s.publishSync(ctx, storage.KindTrip, trip.ID)
	return trip, nil
}

func (s *RecordService) CreateRefuel(ctx context.Context, userID, date string, amount, liters decimal.Decimal) (core.RefuelRecord, error) {
	refuel, err := core.NewRefuel(uuid.NewString(), userID, date, amount, liters)
	if err != nil {
		return core.RefuelRecord{}, err
	}

	if err := s.store.CreateRefuel(ctx, refuel); err != nil {
		return core.RefuelRecord{}, fmt.Errorf("save refuel: %w", err)
	}

	s.publishSync(ctx, storage.KindRefuel, refuel.ID)
	return refuel, nil
}

func (s *RecordService) publishSync(ctx context.Context, kind, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Mirror publisher not available, record stays pending",
			"kind", kind, "record_id", id)
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "record_id", id, "error", err)
	}
}

// ListTrips returns the trips the viewer may see, admins get everyone's.
func (s *RecordService) ListTrips(ctx context.Context, viewer core.Viewer) ([]core.TripRecord, error) {
	trips, err := s.store.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterTrips(viewer, trips), nil
}

func (s *RecordService) ListRefuels(ctx context.Context, viewer core.Viewer) ([]core.RefuelRecord, error) {
	refuels, err := s.store.ListRefuels(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterRefuels(viewer, refuels), nil
}

// LastEndOdometer is the prefill value for the next trip's start reading.
func (s *RecordService) LastEndOdometer(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.store.LastEndOdometer(ctx, userID)
}

// DeleteTrip removes a trip when the viewer owns it or is an admin.
func (s *RecordService) DeleteTrip(ctx context.Context, viewer core.Viewer, id string) error {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return err
	}
	if !viewer.CanDelete(trip.UserID) {
		return ErrForbidden
	}
	if err := s.store.DeleteTrip(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Trip deleted", "trip_id", id, "user_id", trip.UserID)
	return nil
}

func (s *RecordService) DeleteRefuel(ctx context.Context, viewer core.Viewer, id string) error {
	refuel, err := s.store.GetRefuel(ctx, id)
	if err != nil {
		return err
	}
	if !viewer.CanDelete(refuel.UserID) {
		return ErrForbidden
	}
	if err := s.store.DeleteRefuel(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Refuel deleted", "refuel_id", id, "user_id", refuel.UserID)
	return nil
}

// Statistics aggregates the viewer's visible records over all time.
func (s *RecordService) Statistics(ctx context.Context, viewer core.Viewer) (core.Statistics, error) {
	trips, err := s.ListTrips(ctx, viewer)
	if err != nil {
		return core.Statistics{}, err
	}
	refuels, err := s.ListRefuels(ctx, viewer)
	if err != nil {
		return core.Statistics{}, err
	}
	return core.ComputeStatistics(trips, refuels), nil
}

// MonthlyReport scopes the viewer's records to one month and balances trip
// spending against refuels.
func (s *RecordService) MonthlyReport(ctx context.Context, viewer core.Viewer, year int, month time.Month) (core.MonthlyBalance, error) {
	trips, err := s.ListTrips(ctx, viewer)
	if err != nil {
		return core.MonthlyBalance{}, err
	}
	refuels, err := s.ListRefuels(ctx, viewer)
	if err != nil {
		return core.MonthlyBalance{}, err
	}
	return core.ComputeMonthlyBalance(trips, refuels, year, month), nil
}

// GetFuelPrice returns the shared price per liter, falling back to the
// configured default when nobody has set one yet.
func (s *RecordService) GetFuelPrice(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.store.GetSetting(ctx, storage.FuelPriceKey)
	if errors.Is(err, storage.ErrUnknownSetting) {
		return s.defaultFuelPrice, nil
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("stored fuel price %q: %w", raw, err)
	}
	return price, nil
}

// SetFuelPrice updates the shared price used for every trip created after it.
// Existing trips keep the price they were priced at.
func (s *RecordService) SetFuelPrice(ctx context.Context, price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return core.ErrInvalidAmount
	}
	if err := s.store.SetSetting(ctx, storage.FuelPriceKey, price.String()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Fuel price updated", "price_per_liter", price.String())
	return nil
}

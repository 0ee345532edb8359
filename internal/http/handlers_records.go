package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"mishwar/internal/core"
)

type createTripRequest struct {
	Date          string `json:"date"`
	StartOdometer string `json:"startOdometer"`
	EndOdometer   string `json:"endOdometer"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := core.ParseNonNegative(req.StartOdometer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start odometer")
		return
	}
	end, err := core.ParseNonNegative(req.EndOdometer)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end odometer")
		return
	}

	trip, err := s.records.CreateTrip(r.Context(), info.userID, req.Date, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateAggregates()
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	trips, err := s.records.ListTrips(r.Context(), info.viewer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if trips == nil {
		trips = []core.TripRecord{}
	}
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) handleLastOdometer(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	last, err := s.records.LastEndOdometer(r.Context(), info.userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"lastEndOdometer": last})
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	if err := s.records.DeleteTrip(r.Context(), info.viewer, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateAggregates()
	w.WriteHeader(http.StatusNoContent)
}

type createRefuelRequest struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Liters string `json:"liters"`
}

func (s *Server) handleCreateRefuel(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	var req createRefuelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	liters := decimal.Zero
	if req.Liters != "" {
		if liters, err = core.ParseNonNegative(req.Liters); err != nil {
			writeError(w, http.StatusBadRequest, "invalid liters")
			return
		}
	}

	refuel, err := s.records.CreateRefuel(r.Context(), info.userID, req.Date, amount, liters)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateAggregates()
	writeJSON(w, http.StatusCreated, refuel)
}

func (s *Server) handleListRefuels(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	refuels, err := s.records.ListRefuels(r.Context(), info.viewer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if refuels == nil {
		refuels = []core.RefuelRecord{}
	}
	writeJSON(w, http.StatusOK, refuels)
}

func (s *Server) handleDeleteRefuel(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	if err := s.records.DeleteRefuel(r.Context(), info.viewer, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateAggregates()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())

	cacheKey := "stats:" + info.userID
	if stats, ok := s.statsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.records.Statistics(r.Context(), info.viewer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.statsCache.Set(cacheKey, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	year, month := parseYearMonth(r)

	cacheKey := reportCacheKey(info.userID, year, month)
	if report, ok := s.reportCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.records.MonthlyReport(r.Context(), info.viewer, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.reportCache.Set(cacheKey, report)
	writeJSON(w, http.StatusOK, report)
}

type fuelPriceResponse struct {
	PricePerLiter decimal.Decimal `json:"pricePerLiter"`
}

func (s *Server) handleGetFuelPrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.records.GetFuelPrice(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fuelPriceResponse{PricePerLiter: price})
}

type setFuelPriceRequest struct {
	PricePerLiter string `json:"pricePerLiter"`
}

func (s *Server) handleSetFuelPrice(w http.ResponseWriter, r *http.Request) {
	var req setFuelPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := core.ParseAmount(req.PricePerLiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	if err := s.records.SetFuelPrice(r.Context(), price); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// New price applies to trips created from now on.
	s.invalidateAggregates()
	writeJSON(w, http.StatusOK, fuelPriceResponse{PricePerLiter: price})
}

// Package http exposes the JSON API: login, trip and refuel records,
// statistics, monthly reports, the shared fuel price and the admin surface.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"mishwar/internal/cache"
	"mishwar/internal/core"
	"mishwar/internal/services"
)

// RecordService is the record surface the handlers call.
type RecordService interface {
	CreateTrip(ctx context.Context, userID, date string, startOdometer, endOdometer decimal.Decimal) (core.TripRecord, error)
	CreateRefuel(ctx context.Context, userID, date string, amount, liters decimal.Decimal) (core.RefuelRecord, error)
	ListTrips(ctx context.Context, viewer core.Viewer) ([]core.TripRecord, error)
	ListRefuels(ctx context.Context, viewer core.Viewer) ([]core.RefuelRecord, error)
	DeleteTrip(ctx context.Context, viewer core.Viewer, id string) error
	DeleteRefuel(ctx context.Context, viewer core.Viewer, id string) error
	LastEndOdometer(ctx context.Context, userID string) (decimal.Decimal, error)
	Statistics(ctx context.Context, viewer core.Viewer) (core.Statistics, error)
	MonthlyReport(ctx context.Context, viewer core.Viewer, year int, month time.Month) (core.MonthlyBalance, error)
	GetFuelPrice(ctx context.Context) (decimal.Decimal, error)
	SetFuelPrice(ctx context.Context, price decimal.Decimal) error
}

// UserService is the account surface the handlers call.
type UserService interface {
	Login(ctx context.Context, username, password string) (core.User, error)
	CreateUser(ctx context.Context, username, password string, role core.Role) (core.User, error)
	UpdateUser(ctx context.Context, id, username, password string, role core.Role) (core.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	Summaries(ctx context.Context, year int, month time.Month) ([]core.UserSummary, error)
}

// TokenVerifier checks bearer tokens and issues new ones at login.
type TokenVerifier interface {
	Issue(user core.User) (string, time.Time, error)
	Verify(raw string) (userID string, role core.Role, err error)
}

var (
	_ RecordService = (*services.RecordService)(nil)
	_ UserService   = (*services.UserService)(nil)
)

type Server struct {
	http.Server

	records RecordService
	users   UserService
	tokens  TokenVerifier

	rateLimiter *rateLimiter

	// Cached aggregates, purged on every write.
	reportCache *cache.LRUCache[core.MonthlyBalance]
	statsCache  *cache.LRUCache[core.Statistics]
	cacheMgr    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires the router and middleware and returns a ready-to-run
// server.
func NewServer(addr string, records RecordService, users UserService, tokens TokenVerifier) *Server {
	s := &Server{
		records:     records,
		users:       users,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
		reportCache: cache.NewLRUCache[core.MonthlyBalance](200, 5*time.Minute),
		statsCache:  cache.NewLRUCache[core.Statistics](100, 5*time.Minute),
		cacheMgr:    cache.NewManager(),
	}
	s.cacheMgr.Register(s.reportCache)
	s.cacheMgr.Register(s.statsCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.withObservability)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", s.handleListTrips)
				r.Post("/", s.handleCreateTrip)
				r.Get("/last-odometer", s.handleLastOdometer)
				r.Delete("/{id}", s.handleDeleteTrip)
			})

			r.Route("/refuels", func(r chi.Router) {
				r.Get("/", s.handleListRefuels)
				r.Post("/", s.handleCreateRefuel)
				r.Delete("/{id}", s.handleDeleteRefuel)
			})

			r.Get("/stats", s.handleStats)
			r.Get("/reports/monthly", s.handleMonthlyReport)

			r.Route("/settings/fuel-price", func(r chi.Router) {
				r.Get("/", s.handleGetFuelPrice)
				r.With(s.adminOnly).Put("/", s.handleSetFuelPrice)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminOnly)
				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Put("/users/{id}", s.handleUpdateUser)
				r.Delete("/users/{id}", s.handleDeleteUser)
				r.Get("/users/{id}/export.csv", s.handleUserExportCSV)
				r.Get("/summary", s.handleSummary)
				r.Get("/summary.csv", s.handleSummaryCSV)
			})
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheMgr.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidateAggregates drops cached stats and reports after any write.
func (s *Server) invalidateAggregates() {
	s.reportCache.Purge()
	s.statsCache.Purge()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

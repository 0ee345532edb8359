package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mishwar/internal/core"
	"mishwar/internal/export"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	writeJSON(w, http.StatusOK, views)
}

type upsertUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UpdateUser(r.Context(), chi.URLParam(r, "id"), req.Username, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	info, _ := authFromContext(r.Context())
	id := chi.URLParam(r, "id")

	// Admins cannot delete their own account while logged into it.
	if id == info.userID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateAggregates()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	summaries, err := s.users.Summaries(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, map[string]any{
			"user":          viewOf(sum.User),
			"totalSpent":    sum.TotalSpent,
			"totalRefueled": sum.TotalRefueled,
			"balance":       sum.Balance,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   int(month),
		"entries": views,
	})
}

func (s *Server) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	summaries, err := s.users.Summaries(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="summary-%04d-%02d.csv"`, year, int(month)))
	if err := export.WriteSummaryCSV(w, summaries, year, month); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write summary CSV", "error", err)
	}
}

func (s *Server) handleUserExportCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Scope the listing to the exported user, not the requesting admin.
	owner := core.RegularViewer(id)
	trips, err := s.records.ListTrips(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	refuels, err := s.records.ListRefuels(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="records-%s.csv"`, user.Username))
	if err := export.WriteUserDetailCSV(w, user, trips, refuels); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write user export CSV", "error", err)
	}
}

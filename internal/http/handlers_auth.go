package http

import (
	"log/slog"
	"net/http"
	"time"

	"mishwar/internal/core"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

// userView is the public shape of a user, without the password.
type userView struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

func viewOf(u core.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tok, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     tok,
		ExpiresAt: expiresAt,
		User:      viewOf(user),
	})
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mishwar/internal/core"
)

// UserService handles login and the admin-only user management surface.
type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// Login matches the submitted credentials against a stored user.
func (s *UserService) Login(ctx context.Context, username, password string) (core.User, error) {
	if username == "" || password == "" {
		return core.User{}, ErrInvalidCredentials
	}
	user, err := s.store.GetUserByCredentials(ctx, username, password)
	if err != nil {
		slog.WarnContext(ctx, "Login rejected", "username", username)
		return core.User{}, ErrInvalidCredentials
	}
	slog.InfoContext(ctx, "Login accepted", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// CreateUser registers a new driver or admin. Callers enforce that only
// admins reach this.
func (s *UserService) CreateUser(ctx context.Context, username, password string, role core.Role) (core.User, error) {
	user := core.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  password,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return core.User{}, err
	}
	return user, nil
}

// UpdateUser changes username, password or role. An empty password keeps the
// stored one.
func (s *UserService) UpdateUser(ctx context.Context, id, username, password string, role core.Role) (core.User, error) {
	existing, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}

	existing.Username = username
	existing.Role = role
	if password != "" {
		existing.Password = password
	}
	if err := existing.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.store.UpdateUser(ctx, existing); err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User updated", "user_id", id, "role", role)
	return existing, nil
}

// DeleteUser removes the user and every trip and refuel they own.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	return s.store.DeleteUserCascade(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

// EnsureBootstrapAdmin seeds the first admin account on an empty user table
// so a fresh deployment can be logged into.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin, err := s.CreateUser(ctx, username, password, core.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	slog.InfoContext(ctx, "Bootstrap admin created", "user_id", admin.ID, "username", username)
	return nil
}

// Summaries builds the admin month overview: one balance row per user.
func (s *UserService) Summaries(ctx context.Context, year int, month time.Month) ([]core.UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := s.store.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	refuels, err := s.store.ListRefuels(ctx)
	if err != nil {
		return nil, err
	}
	return core.ComputeUserSummaries(users, trips, refuels, year, month), nil
}

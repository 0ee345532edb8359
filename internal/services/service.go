// Package services orchestrates record and user operations across the local
// store and the AMQP mirror pipeline. Writes land in SQLite first and the
// mirror message is best effort.
package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"mishwar/internal/core"
	"mishwar/internal/storage"
)

var (
	ErrForbidden          = errors.New("operation not allowed")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store is the slice of the repository the services need.
type Store interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByCredentials(ctx context.Context, username, password string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, u core.User) error
	DeleteUserCascade(ctx context.Context, id string) error

	CreateTrip(ctx context.Context, t core.TripRecord) error
	GetTrip(ctx context.Context, id string) (core.TripRecord, error)
	ListTrips(ctx context.Context) ([]core.TripRecord, error)
	LastEndOdometer(ctx context.Context, userID string) (decimal.Decimal, error)
	DeleteTrip(ctx context.Context, id string) error

	CreateRefuel(ctx context.Context, r core.RefuelRecord) error
	GetRefuel(ctx context.Context, id string) (core.RefuelRecord, error)
	ListRefuels(ctx context.Context) ([]core.RefuelRecord, error)
	DeleteRefuel(ctx context.Context, id string) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

var _ Store = (*storage.SQLiteRepository)(nil)

// SyncPublisher announces freshly written records to the mirror worker.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, kind, id string) error
}

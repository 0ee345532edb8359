// Package storage is the local SQLite store for users, trips, refuels and
// settings. It is the source of truth for the running service; the mirror
// worker reconciles pending rows with the remote spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mishwar/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for mirrored records.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// Record kinds used by sync bookkeeping and AMQP messages.
const (
	KindTrip   = "trip"
	KindRefuel = "refuel"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrUnknownKind    = errors.New("unknown record kind")
	ErrUnknownSetting = errors.New("unknown setting")
)

// FuelPriceKey is the settings row holding the shared fuel price.
const FuelPriceKey = "global_fuel_price"

// PendingRecord identifies a record that has not been mirrored yet.
type PendingRecord struct {
	Kind string
	ID   string
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Password, string(u.Role), u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password, role, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByCredentials performs the login comparison: exact username and
// stored password match.
func (r *SQLiteRepository) GetUserByCredentials(ctx context.Context, username, password string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password, role, created_at FROM users WHERE username = ? AND password = ?`,
		username, password)
	return scanUser(row)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password, role, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password = ?, role = ? WHERE id = ?`,
		u.Username, u.Password, string(u.Role), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

// DeleteUserCascade removes a user together with all trips and refuels they
// own, in one transaction.
func (r *SQLiteRepository) DeleteUserCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trips WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user trips: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM refuels WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user refuels: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}

	slog.InfoContext(ctx, "User deleted with owned records", "user_id", id)
	return nil
}

// ---- trips ----

func (r *SQLiteRepository) CreateTrip(ctx context.Context, t core.TripRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trips (id, user_id, date, start_odometer, end_odometer, price_per_liter, daily_price, sync_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Date,
		t.StartOdometer.String(), t.EndOdometer.String(),
		t.PricePerLiter.String(), t.DailyPrice.String(),
		SyncPending, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}

	slog.InfoContext(ctx, "Trip saved",
		"trip_id", t.ID, "user_id", t.UserID, "date", t.Date, "daily_price", t.DailyPrice.String())
	return nil
}

func (r *SQLiteRepository) GetTrip(ctx context.Context, id string) (core.TripRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, start_odometer, end_odometer, price_per_liter, daily_price
		 FROM trips WHERE id = ?`, id)
	return scanTrip(row)
}

// ListTrips returns all trips, newest date first like the original listing.
// Access filtering happens in core, not in SQL.
func (r *SQLiteRepository) ListTrips(ctx context.Context) ([]core.TripRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, start_odometer, end_odometer, price_per_liter, daily_price
		 FROM trips ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []core.TripRecord
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// LastEndOdometer returns the most recent end reading for a user, zero when
// the user has no trips. Record forms prefill the start reading with it.
func (r *SQLiteRepository) LastEndOdometer(ctx context.Context, userID string) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT end_odometer FROM trips WHERE user_id = ? ORDER BY date DESC, created_at DESC LIMIT 1`,
		userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("last end odometer: %w", err)
	}
	return parseStored(raw)
}

func (r *SQLiteRepository) DeleteTrip(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return requireAffected(res)
}

// ---- refuels ----

func (r *SQLiteRepository) CreateRefuel(ctx context.Context, rec core.RefuelRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refuels (id, user_id, date, amount, liters, sync_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Date, rec.Amount.String(), rec.Liters.String(),
		SyncPending, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create refuel: %w", err)
	}

	slog.InfoContext(ctx, "Refuel saved",
		"refuel_id", rec.ID, "user_id", rec.UserID, "date", rec.Date, "amount", rec.Amount.String())
	return nil
}

func (r *SQLiteRepository) GetRefuel(ctx context.Context, id string) (core.RefuelRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, amount, liters FROM refuels WHERE id = ?`, id)
	return scanRefuel(row)
}

func (r *SQLiteRepository) ListRefuels(ctx context.Context) ([]core.RefuelRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, amount, liters FROM refuels ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list refuels: %w", err)
	}
	defer rows.Close()

	var refuels []core.RefuelRecord
	for rows.Next() {
		rec, err := scanRefuel(rows)
		if err != nil {
			return nil, err
		}
		refuels = append(refuels, rec)
	}
	return refuels, rows.Err()
}

func (r *SQLiteRepository) DeleteRefuel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refuels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete refuel: %w", err)
	}
	return requireAffected(res)
}

// ---- settings ----

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownSetting
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// ---- sync bookkeeping ----

// GetPendingRecords returns records not yet mirrored, oldest first. This is
// the backup path when AMQP messages were lost.
func (r *SQLiteRepository) GetPendingRecords(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id FROM (
		     SELECT 'trip' AS kind, id, created_at FROM trips WHERE sync_status = ?
		     UNION ALL
		     SELECT 'refuel' AS kind, id, created_at FROM refuels WHERE sync_status = ?
		 ) ORDER BY created_at LIMIT ?`,
		SyncPending, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending records: %w", err)
	}
	defer rows.Close()

	var pending []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.Kind, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncDone)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind, id string) error {
	return r.setSyncStatus(ctx, kind, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, kind, id, status string) error {
	var table string
	switch kind {
	case KindTrip:
		table = "trips"
	case KindRefuel:
		table = "refuels"
	default:
		return ErrUnknownKind
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("mark %s %s as %s: %w", kind, id, status, err)
	}
	return nil
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Password, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		u.CreatedAt = ts
	}
	return u, nil
}

func scanTrip(row rowScanner) (core.TripRecord, error) {
	var (
		t                       core.TripRecord
		start, end, price, cost string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Date, &start, &end, &price, &cost)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TripRecord{}, ErrNotFound
	}
	if err != nil {
		return core.TripRecord{}, fmt.Errorf("scan trip: %w", err)
	}
	if t.StartOdometer, err = parseStored(start); err != nil {
		return core.TripRecord{}, err
	}
	if t.EndOdometer, err = parseStored(end); err != nil {
		return core.TripRecord{}, err
	}
	if t.PricePerLiter, err = parseStored(price); err != nil {
		return core.TripRecord{}, err
	}
	if t.DailyPrice, err = parseStored(cost); err != nil {
		return core.TripRecord{}, err
	}
	return t, nil
}

func scanRefuel(row rowScanner) (core.RefuelRecord, error) {
	var (
		rec            core.RefuelRecord
		amount, liters string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &amount, &liters)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RefuelRecord{}, ErrNotFound
	}
	if err != nil {
		return core.RefuelRecord{}, fmt.Errorf("scan refuel: %w", err)
	}
	if rec.Amount, err = parseStored(amount); err != nil {
		return core.RefuelRecord{}, err
	}
	if rec.Liters, err = parseStored(liters); err != nil {
		return core.RefuelRecord{}, err
	}
	return rec, nil
}

func parseStored(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored decimal %q: %w", raw, err)
	}
	return d, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

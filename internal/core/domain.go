package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// RoleAdmin is the administrative role ("main" on the wire, matching the
	// stored value). Admins see every driver's records, manage accounts and
	// set the shared fuel price.
	RoleAdmin Role = "main"
	// RoleRegular users see and manage only their own records.
	RoleRegular Role = "regular"
)

// DateLayout is the calendar-date format records are stored with. Dates have
// no time component.
const DateLayout = "2006-01-02"

type (
	Role string

	// User is an account. Password is stored as-is and used only for
	// credential comparison at login.
	User struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Password  string    `json:"password,omitempty"`
		Role      Role      `json:"role"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// TripRecord is a single driving event bounded by two odometer readings.
	// PricePerLiter is a snapshot of the shared fuel price at creation time,
	// and DailyPrice the cost derived from it; both are stored, never
	// recomputed on read.
	TripRecord struct {
		ID            string          `json:"id"`
		UserID        string          `json:"userId"`
		Date          string          `json:"date"`
		StartOdometer decimal.Decimal `json:"startOdometer"`
		EndOdometer   decimal.Decimal `json:"endOdometer"`
		PricePerLiter decimal.Decimal `json:"pricePerLiter"`
		DailyPrice    decimal.Decimal `json:"dailyPrice"`
	}

	// RefuelRecord is a fuel-purchase payment. Liters is informational only
	// and takes no part in any calculation.
	RefuelRecord struct {
		ID     string          `json:"id"`
		UserID string          `json:"userId"`
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount"`
		Liters decimal.Decimal `json:"liters"`
	}
)

var (
	ErrInvalidRange  = errors.New("end odometer must be greater than start odometer")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyUsername = errors.New("empty username")
	ErrInvalidRole   = errors.New("invalid role")
)

// Distance is the odometer delta of the trip.
func (t TripRecord) Distance() decimal.Decimal {
	return t.EndOdometer.Sub(t.StartOdometer)
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRegular
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// ValidateDate checks that s is a well-formed calendar date. Creation rejects
// malformed dates; dates already in storage are handled leniently by the
// month filters instead.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// NewRefuel validates and builds a refuel record. Amount must be strictly
// positive; Liters may be zero (unknown volume).
func NewRefuel(id, userID, date string, amount, liters decimal.Decimal) (RefuelRecord, error) {
	if err := ValidateDate(date); err != nil {
		return RefuelRecord{}, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return RefuelRecord{}, ErrInvalidAmount
	}
	if liters.IsNegative() {
		return RefuelRecord{}, ErrInvalidAmount
	}
	return RefuelRecord{
		ID:     id,
		UserID: userID,
		Date:   date,
		Amount: amount,
		Liters: liters,
	}, nil
}

// Package google mirrors trips and refuels to a Google Spreadsheet using a
// service account. Each record becomes one appended row on its sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"mishwar/internal/core"
	ports "mishwar/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tripsSheet    string
	refuelsSheet  string
}

var _ ports.RecordMirror = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet. Credentials come
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, tripsSheet, refuelsSheet string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if tripsSheet == "" {
		tripsSheet = "Trips"
	}
	if refuelsSheet == "" {
		refuelsSheet = "Refuels"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tripsSheet:    tripsSheet,
		refuelsSheet:  refuelsSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func (c *Client) AppendTrip(ctx context.Context, t core.TripRecord) (string, error) {
	return c.appendRow(ctx, c.tripsSheet, tripRow(t))
}

func (c *Client) AppendRefuel(ctx context.Context, r core.RefuelRecord) (string, error) {
	return c.appendRow(ctx, c.refuelsSheet, refuelRow(r))
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Read column A to find the next free row, then write the full row there.
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := rowRange(sheet, nextRow, len(row))
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write row to sheet %s: %w", sheet, err)
	}

	return dataRange, nil
}

// tripRow lays a trip out as one sheet row:
// ID, Date, UserID, StartOdometer, EndOdometer, PricePerLiter, DailyPrice.
func tripRow(t core.TripRecord) []any {
	return []any{
		t.ID,
		t.Date,
		t.UserID,
		t.StartOdometer.String(),
		t.EndOdometer.String(),
		t.PricePerLiter.String(),
		t.DailyPrice.String(),
	}
}

// refuelRow: ID, Date, UserID, Amount, Liters.
func refuelRow(r core.RefuelRecord) []any {
	return []any{
		r.ID,
		r.Date,
		r.UserID,
		r.Amount.String(),
		r.Liters.String(),
	}
}

// rowRange builds an A1 range covering width columns of one row.
func rowRange(sheet string, row, width int) string {
	lastCol := rune('A' + width - 1)
	return fmt.Sprintf("%s!A%d:%c%d", sheet, row, lastCol, row)
}

// Package export renders records and summaries as CSV downloads. Files are
// prefixed with a UTF-8 BOM so spreadsheet apps detect the encoding.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"mishwar/internal/core"
)

const utf8BOM = "\uFEFF"

// WriteSummaryCSV writes one balance row per user for the given month.
func WriteSummaryCSV(w io.Writer, summaries []core.UserSummary, year int, month time.Month) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Period", fmt.Sprintf("%04d-%02d", year, int(month))},
		{},
		{"Username", "Role", "Trips Cost", "Refuel Total", "Balance"},
	}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.User.Username,
			string(s.User.Role),
			core.FormatMoney(s.TotalSpent),
			core.FormatMoney(s.TotalRefueled),
			core.FormatMoney(s.Balance),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write summary rows: %w", err)
	}
	return cw.Error()
}

// WriteUserDetailCSV writes a user's trips and refuels as two sections in
// one file.
func WriteUserDetailCSV(w io.Writer, user core.User, trips []core.TripRecord, refuels []core.RefuelRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"User", user.Username},
		{},
		{"Trips"},
		{"Date", "Start Odometer", "End Odometer", "Distance", "Price Per Liter", "Cost"},
	}
	for _, t := range trips {
		rows = append(rows, []string{
			t.Date,
			t.StartOdometer.String(),
			t.EndOdometer.String(),
			t.Distance().String(),
			t.PricePerLiter.String(),
			core.FormatMoney(t.DailyPrice),
		})
	}

	rows = append(rows,
		[]string{},
		[]string{"Refuels"},
		[]string{"Date", "Amount", "Liters"},
	)
	for _, r := range refuels {
		rows = append(rows, []string{
			r.Date,
			core.FormatMoney(r.Amount),
			r.Liters.String(),
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write detail rows: %w", err)
	}
	return cw.Error()
}

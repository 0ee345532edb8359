// Package backend selects the mirror implementation the worker appends
// records to.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"mishwar/internal/config"
	"mishwar/internal/sheets"
	"mishwar/internal/sheets/google"
	"mishwar/internal/sheets/memory"
)

// NewMirror builds the configured mirror. "none" returns nil, callers must
// treat a nil mirror as mirroring disabled.
func NewMirror(ctx context.Context, cfg *config.Config) (sheets.RecordMirror, error) {
	switch cfg.MirrorBackend {
	case config.MirrorNone:
		slog.InfoContext(ctx, "Record mirroring disabled")
		return nil, nil
	case config.MirrorMemory:
		slog.InfoContext(ctx, "Using in-memory record mirror")
		return memory.New(), nil
	case config.MirrorSheets:
		client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.TripsSheetName, cfg.RefuelsSheetName)
		if err != nil {
			return nil, fmt.Errorf("create sheets mirror: %w", err)
		}
		slog.InfoContext(ctx, "Using Google Sheets record mirror",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"trips_sheet", cfg.TripsSheetName,
			"refuels_sheet", cfg.RefuelsSheetName)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown mirror backend: %s", cfg.MirrorBackend)
	}
}

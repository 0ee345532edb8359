package sheets

import (
	"context"

	"mishwar/internal/core"
)

// Ports for outbound mirror adapters.
type (
	TripWriter interface {
		AppendTrip(ctx context.Context, t core.TripRecord) (rowRef string, err error)
	}

	RefuelWriter interface {
		AppendRefuel(ctx context.Context, r core.RefuelRecord) (rowRef string, err error)
	}
)

// RecordMirror is what the sync worker needs: append-only access to both
// record sheets. Deletions are intentionally absent, the mirror is a journal.
type RecordMirror interface {
	TripWriter
	RefuelWriter
}

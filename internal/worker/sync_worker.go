// Package worker mirrors locally written trips and refuels to the configured
// mirror. It consumes AMQP messages for fresh records and periodically scans
// for pending ones whose messages were lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mishwar/internal/amqp"
	"mishwar/internal/core"
	"mishwar/internal/sheets"
	"mishwar/internal/storage"
)

// Store is the repository slice the worker needs.
type Store interface {
	GetTrip(ctx context.Context, id string) (core.TripRecord, error)
	GetRefuel(ctx context.Context, id string) (core.RefuelRecord, error)
	GetPendingRecords(ctx context.Context, limit int) ([]storage.PendingRecord, error)
	MarkSynced(ctx context.Context, kind, id string) error
	MarkSyncError(ctx context.Context, kind, id string) error
}

type SyncWorker struct {
	store     Store
	mirror    sheets.RecordMirror
	batchSize int
}

func NewSyncWorker(store Store, mirror sheets.RecordMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors the record named by one AMQP message. Returning
// an error makes the consumer nack and requeue it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "kind", msg.Kind, "record_id", msg.ID)
	return w.mirrorRecord(ctx, msg.Kind, msg.ID)
}

// ProcessPendingRecords mirrors records still marked pending. This is the
// backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingRecords(ctx context.Context) error {
	return w.drainPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending scan once at worker startup to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.drainPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) drainPending(ctx context.Context, limit int) error {
	pending, err := w.store.GetPendingRecords(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if err := w.mirrorRecord(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending record",
				"kind", p.Kind, "record_id", p.ID, "error", err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending scan completed",
		"total", len(pending), "synced", synced, "errors", len(pending)-synced)
	return nil
}

// RunPendingLoop scans for pending records on a fixed interval until ctx
// ends.
func (w *SyncWorker) RunPendingLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingRecords(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending scan failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) mirrorRecord(ctx context.Context, kind, id string) error {
	if w.mirror == nil {
		slog.WarnContext(ctx, "No mirror configured, leaving record pending",
			"kind", kind, "record_id", id)
		return nil
	}

	var (
		rowRef string
		err    error
	)
	switch kind {
	case storage.KindTrip:
		var trip core.TripRecord
		if trip, err = w.store.GetTrip(ctx, id); err == nil {
			rowRef, err = w.mirror.AppendTrip(ctx, trip)
		}
	case storage.KindRefuel:
		var refuel core.RefuelRecord
		if refuel, err = w.store.GetRefuel(ctx, id); err == nil {
			rowRef, err = w.mirror.AppendRefuel(ctx, refuel)
		}
	default:
		return fmt.Errorf("%w: %s", storage.ErrUnknownKind, kind)
	}

	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, kind, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", kind, "record_id", id, "error", markErr)
		}
		return fmt.Errorf("mirror %s %s: %w", kind, id, err)
	}

	if err := w.store.MarkSynced(ctx, kind, id); err != nil {
		// The append worked, only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", kind, "record_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Record mirrored", "kind", kind, "record_id", id, "row_ref", rowRef)
	return nil
}

// Package memory is an in-process mirror used in tests and local setups
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mishwar/internal/core"
	ports "mishwar/internal/sheets"
)

type Mirror struct {
	mu      sync.Mutex
	trips   []core.TripRecord
	refuels []core.RefuelRecord
}

var _ ports.RecordMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// AppendTrip stores the trip and returns a synthetic row reference.
func (m *Mirror) AppendTrip(_ context.Context, t core.TripRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips = append(m.trips, t)
	return fmt.Sprintf("mem:trips:%d", len(m.trips)), nil
}

func (m *Mirror) AppendRefuel(_ context.Context, r core.RefuelRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuels = append(m.refuels, r)
	return fmt.Sprintf("mem:refuels:%d", len(m.refuels)), nil
}

func (m *Mirror) Trips() []core.TripRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.TripRecord(nil), m.trips...)
}

func (m *Mirror) Refuels() []core.RefuelRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.RefuelRecord(nil), m.refuels...)
}

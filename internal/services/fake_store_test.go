package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"mishwar/internal/core"
	"mishwar/internal/storage"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	users    map[string]core.User
	trips    map[string]core.TripRecord
	refuels  map[string]core.RefuelRecord
	settings map[string]string

	failCreateTrip error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]core.User),
		trips:    make(map[string]core.TripRecord),
		refuels:  make(map[string]core.RefuelRecord),
		settings: make(map[string]string),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u core.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return storage.ErrUsernameTaken
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByCredentials(_ context.Context, username, password string) (core.User, error) {
	for _, u := range f.users {
		if u.Username == username && u.Password == password {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (f *fakeStore) ListUsers(_ context.Context) ([]core.User, error) {
	var users []core.User
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u core.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return storage.ErrNotFound
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) DeleteUserCascade(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	for tid, t := range f.trips {
		if t.UserID == id {
			delete(f.trips, tid)
		}
	}
	for rid, r := range f.refuels {
		if r.UserID == id {
			delete(f.refuels, rid)
		}
	}
	return nil
}

func (f *fakeStore) CreateTrip(_ context.Context, t core.TripRecord) error {
	if f.failCreateTrip != nil {
		return f.failCreateTrip
	}
	f.trips[t.ID] = t
	return nil
}

func (f *fakeStore) GetTrip(_ context.Context, id string) (core.TripRecord, error) {
	t, ok := f.trips[id]
	if !ok {
		return core.TripRecord{}, storage.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTrips(_ context.Context) ([]core.TripRecord, error) {
	var trips []core.TripRecord
	for _, t := range f.trips {
		trips = append(trips, t)
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })
	return trips, nil
}

func (f *fakeStore) LastEndOdometer(_ context.Context, userID string) (decimal.Decimal, error) {
	last := decimal.Zero
	lastDate := ""
	for _, t := range f.trips {
		if t.UserID == userID && t.Date >= lastDate {
			last = t.EndOdometer
			lastDate = t.Date
		}
	}
	return last, nil
}

func (f *fakeStore) DeleteTrip(_ context.Context, id string) error {
	if _, ok := f.trips[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.trips, id)
	return nil
}

func (f *fakeStore) CreateRefuel(_ context.Context, r core.RefuelRecord) error {
	f.refuels[r.ID] = r
	return nil
}

func (f *fakeStore) GetRefuel(_ context.Context, id string) (core.RefuelRecord, error) {
	r, ok := f.refuels[id]
	if !ok {
		return core.RefuelRecord{}, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRefuels(_ context.Context) ([]core.RefuelRecord, error) {
	var refuels []core.RefuelRecord
	for _, r := range f.refuels {
		refuels = append(refuels, r)
	}
	sort.Slice(refuels, func(i, j int) bool { return refuels[i].ID < refuels[j].ID })
	return refuels, nil
}

func (f *fakeStore) DeleteRefuel(_ context.Context, id string) error {
	if _, ok := f.refuels[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.refuels, id)
	return nil
}

func (f *fakeStore) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := f.settings[key]
	if !ok {
		return "", storage.ErrUnknownSetting
	}
	return v, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

// fakePublisher records published sync messages.
type fakePublisher struct {
	published []string // "kind:id"
	err       error
}

func (p *fakePublisher) PublishRecordSync(_ context.Context, kind, id string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, kind+":"+id)
	return nil
}

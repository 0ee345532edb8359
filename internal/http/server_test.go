package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mishwar/internal/core"
	"mishwar/internal/services"
	"mishwar/internal/storage"
	"mishwar/internal/token"
)

// fakeBackend implements RecordService and UserService in memory.
type fakeBackend struct {
	users     map[string]core.User
	trips     map[string]core.TripRecord
	refuels   map[string]core.RefuelRecord
	fuelPrice decimal.Decimal
	nextID    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		users:     make(map[string]core.User),
		trips:     make(map[string]core.TripRecord),
		refuels:   make(map[string]core.RefuelRecord),
		fuelPrice: decimal.NewFromFloat(12.25),
	}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeBackend) addUser(username, password string, role core.Role) core.User {
	u := core.User{ID: f.id("u"), Username: username, Password: password, Role: role}
	f.users[u.ID] = u
	return u
}

func (f *fakeBackend) CreateTrip(_ context.Context, userID, date string, start, end decimal.Decimal) (core.TripRecord, error) {
	trip, err := core.NewTrip(f.id("t"), userID, date, start, end, f.fuelPrice)
	if err != nil {
		return core.TripRecord{}, err
	}
	f.trips[trip.ID] = trip
	return trip, nil
}

func (f *fakeBackend) CreateRefuel(_ context.Context, userID, date string, amount, liters decimal.Decimal) (core.RefuelRecord, error) {
	refuel, err := core.NewRefuel(f.id("r"), userID, date, amount, liters)
	if err != nil {
		return core.RefuelRecord{}, err
	}
	f.refuels[refuel.ID] = refuel
	return refuel, nil
}

func (f *fakeBackend) ListTrips(_ context.Context, viewer core.Viewer) ([]core.TripRecord, error) {
	var trips []core.TripRecord
	for _, t := range f.trips {
		trips = append(trips, t)
	}
	return core.FilterTrips(viewer, trips), nil
}

func (f *fakeBackend) ListRefuels(_ context.Context, viewer core.Viewer) ([]core.RefuelRecord, error) {
	var refuels []core.RefuelRecord
	for _, r := range f.refuels {
		refuels = append(refuels, r)
	}
	return core.FilterRefuels(viewer, refuels), nil
}

func (f *fakeBackend) DeleteTrip(_ context.Context, viewer core.Viewer, id string) error {
	t, ok := f.trips[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !viewer.CanDelete(t.UserID) {
		return services.ErrForbidden
	}
	delete(f.trips, id)
	return nil
}

func (f *fakeBackend) DeleteRefuel(_ context.Context, viewer core.Viewer, id string) error {
	r, ok := f.refuels[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !viewer.CanDelete(r.UserID) {
		return services.ErrForbidden
	}
	delete(f.refuels, id)
	return nil
}

func (f *fakeBackend) LastEndOdometer(_ context.Context, userID string) (decimal.Decimal, error) {
	last := decimal.Zero
	for _, t := range f.trips {
		if t.UserID == userID && t.EndOdometer.GreaterThan(last) {
			last = t.EndOdometer
		}
	}
	return last, nil
}

func (f *fakeBackend) Statistics(ctx context.Context, viewer core.Viewer) (core.Statistics, error) {
	trips, _ := f.ListTrips(ctx, viewer)
	refuels, _ := f.ListRefuels(ctx, viewer)
	return core.ComputeStatistics(trips, refuels), nil
}

func (f *fakeBackend) MonthlyReport(ctx context.Context, viewer core.Viewer, year int, month time.Month) (core.MonthlyBalance, error) {
	trips, _ := f.ListTrips(ctx, viewer)
	refuels, _ := f.ListRefuels(ctx, viewer)
	return core.ComputeMonthlyBalance(trips, refuels, year, month), nil
}

func (f *fakeBackend) GetFuelPrice(context.Context) (decimal.Decimal, error) {
	return f.fuelPrice, nil
}

func (f *fakeBackend) SetFuelPrice(_ context.Context, price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return core.ErrInvalidAmount
	}
	f.fuelPrice = price
	return nil
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (core.User, error) {
	for _, u := range f.users {
		if u.Username == username && u.Password == password {
			return u, nil
		}
	}
	return core.User{}, services.ErrInvalidCredentials
}

func (f *fakeBackend) CreateUser(_ context.Context, username, password string, role core.Role) (core.User, error) {
	u := core.User{ID: f.id("u"), Username: username, Password: password, Role: role, CreatedAt: time.Now()}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeBackend) UpdateUser(_ context.Context, id, username, password string, role core.Role) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	u.Username = username
	u.Role = role
	if password != "" {
		u.Password = password
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeBackend) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	for tid, t := range f.trips {
		if t.UserID == id {
			delete(f.trips, tid)
		}
	}
	return nil
}

func (f *fakeBackend) ListUsers(_ context.Context) ([]core.User, error) {
	var users []core.User
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeBackend) GetUser(_ context.Context, id string) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeBackend) Summaries(ctx context.Context, year int, month time.Month) ([]core.UserSummary, error) {
	var users []core.User
	for _, u := range f.users {
		users = append(users, u)
	}
	trips, _ := f.ListTrips(ctx, core.AdminViewer())
	refuels, _ := f.ListRefuels(ctx, core.AdminViewer())
	return core.ComputeUserSummaries(users, trips, refuels, year, month), nil
}

// newTestServer builds a server with a fake backend, a seeded admin and
// regular user, and real HS256 tokens.
func newTestServer(t *testing.T) (*Server, *fakeBackend, map[string]string) {
	t.Helper()

	backend := newFakeBackend()
	admin := backend.addUser("admin", "adminpw", core.RoleAdmin)
	regular := backend.addUser("sara", "sarapw", core.RoleRegular)

	tokens := token.NewManager("test-secret", time.Hour)
	srv := NewServer(":0", backend, backend, tokens)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	issued := map[string]string{}
	for name, user := range map[string]core.User{"admin": admin, "regular": regular} {
		raw, _, err := tokens.Issue(user)
		if err != nil {
			t.Fatalf("issue %s token: %v", name, err)
		}
		issued[name] = raw
	}
	issued["adminID"] = admin.ID
	issued["regularID"] = regular.ID
	return srv, backend, issued
}

func doRequest(t *testing.T, srv *Server, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestServer_Login(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/login", "",
		map[string]string{"username": "sara", "password": "sarapw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d, body %s", rec.Code, rec.Body)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" || resp.User.Username != "sara" || resp.User.Role != core.RoleRegular {
		t.Errorf("login response = %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "sarapw") {
		t.Error("login response must not echo the password")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/login", "",
		map[string]string{"username": "sara", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}
}

func TestServer_AuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/api/trips", "/api/refuels", "/api/stats", "/api/reports/monthly"} {
		if rec := doRequest(t, srv, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, rec.Code)
		}
	}

	if rec := doRequest(t, srv, http.MethodGet, "/api/trips", "bogus-token", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/trips with bogus token = %d, want 401", rec.Code)
	}
}

func TestServer_TripLifecycle(t *testing.T) {
	srv, _, toks := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/trips", toks["regular"],
		map[string]string{"date": "2025-03-10", "startOdometer": "100", "endOdometer": "220"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create trip = %d, body %s", rec.Code, rec.Body)
	}

	var trip core.TripRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &trip); err != nil {
		t.Fatalf("decode trip: %v", err)
	}
	// (220-100)/12 * 12.25
	if !trip.DailyPrice.Equal(decimal.RequireFromString("122.5")) {
		t.Errorf("dailyPrice = %s, want 122.5", trip.DailyPrice)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/trips", toks["regular"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list trips = %d", rec.Code)
	}
	var trips []core.TripRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &trips); err != nil {
		t.Fatalf("decode trips: %v", err)
	}
	if len(trips) != 1 {
		t.Errorf("trips = %d, want 1", len(trips))
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/trips/"+trip.ID, toks["regular"], nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete trip = %d, want 204", rec.Code)
	}
}

func TestServer_CreateTrip_Rejections(t *testing.T) {
	srv, _, toks := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"equal odometers", map[string]string{"date": "2025-03-10", "startOdometer": "200", "endOdometer": "200"}},
		{"reversed odometers", map[string]string{"date": "2025-03-10", "startOdometer": "300", "endOdometer": "200"}},
		{"bad date", map[string]string{"date": "03/10/2025", "startOdometer": "100", "endOdometer": "200"}},
		{"garbage odometer", map[string]string{"date": "2025-03-10", "startOdometer": "abc", "endOdometer": "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/trips", toks["regular"], tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("create trip = %d, want 400; body %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestServer_OwnershipAndAdminVisibility(t *testing.T) {
	srv, backend, toks := newTestServer(t)

	trip, err := backend.CreateTrip(context.Background(), toks["regularID"], "2025-03-10",
		decimal.Zero, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	other := backend.addUser("tarek", "pw", core.RoleRegular)
	otherTok, _, err := token.NewManager("test-secret", time.Hour).Issue(other)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// The other regular user cannot see or delete it.
	rec := doRequest(t, srv, http.MethodGet, "/api/trips", otherTok, nil)
	if body := rec.Body.String(); strings.Contains(body, trip.ID) {
		t.Errorf("other user should not see the trip: %s", body)
	}
	rec = doRequest(t, srv, http.MethodDelete, "/api/trips/"+trip.ID, otherTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", rec.Code)
	}

	// The admin sees and may delete it.
	rec = doRequest(t, srv, http.MethodGet, "/api/trips", toks["admin"], nil)
	if !strings.Contains(rec.Body.String(), trip.ID) {
		t.Error("admin should see every trip")
	}
	rec = doRequest(t, srv, http.MethodDelete, "/api/trips/"+trip.ID, toks["admin"], nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("admin delete = %d, want 204", rec.Code)
	}
}

func TestServer_FuelPrice(t *testing.T) {
	srv, _, toks := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/settings/fuel-price", toks["regular"], nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "12.25") {
		t.Errorf("get price = %d, body %s", rec.Code, rec.Body)
	}

	// Regular users may read but not change it.
	rec = doRequest(t, srv, http.MethodPut, "/api/settings/fuel-price", toks["regular"],
		map[string]string{"pricePerLiter": "13.4"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("regular price update = %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/settings/fuel-price", toks["admin"],
		map[string]string{"pricePerLiter": "13.4"})
	if rec.Code != http.StatusOK {
		t.Errorf("admin price update = %d, body %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/settings/fuel-price", toks["admin"],
		map[string]string{"pricePerLiter": "-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative price = %d, want 400", rec.Code)
	}
}

func TestServer_AdminSurfaceForbiddenForRegulars(t *testing.T) {
	srv, _, toks := newTestServer(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/users"},
		{http.MethodGet, "/api/admin/summary"},
		{http.MethodGet, "/api/admin/summary.csv"},
	}
	for _, p := range paths {
		if rec := doRequest(t, srv, p.method, p.path, toks["regular"], nil); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as regular = %d, want 403", p.method, p.path, rec.Code)
		}
	}
}

func TestServer_UserManagement(t *testing.T) {
	srv, _, toks := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/admin/users", toks["admin"],
		map[string]string{"username": "nadia", "password": "pw", "role": "regular"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d, body %s", rec.Code, rec.Body)
	}
	var created userView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/admin/users/"+created.ID, toks["admin"],
		map[string]string{"username": "nadia.h", "role": "main"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "nadia.h") {
		t.Errorf("update user = %d, body %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/admin/users/"+created.ID, toks["admin"], nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete user = %d, want 204", rec.Code)
	}

	// Self-deletion is refused.
	rec = doRequest(t, srv, http.MethodDelete, "/api/admin/users/"+toks["adminID"], toks["admin"], nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self delete = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/admin/users", toks["admin"],
		map[string]string{"username": "x", "password": "pw", "role": "owner"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad role = %d, want 400", rec.Code)
	}
}

func TestServer_SummaryCSV(t *testing.T) {
	srv, backend, toks := newTestServer(t)

	backend.fuelPrice = decimal.NewFromInt(10)
	if _, err := backend.CreateTrip(context.Background(), toks["regularID"], "2025-03-10",
		decimal.Zero, decimal.NewFromInt(120)); err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/admin/summary.csv?year=2025&month=3", toks["admin"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary csv = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %s, want text/csv", ct)
	}
	if !strings.Contains(rec.Body.String(), "sara,regular,100.00") {
		t.Errorf("csv missing sara row:\n%s", rec.Body)
	}
}

func TestServer_MonthlyReport(t *testing.T) {
	srv, backend, toks := newTestServer(t)

	backend.fuelPrice = decimal.NewFromInt(10)
	ctx := context.Background()
	if _, err := backend.CreateTrip(ctx, toks["regularID"], "2025-03-10",
		decimal.Zero, decimal.NewFromInt(120)); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	if _, err := backend.CreateRefuel(ctx, toks["regularID"], "2025-03-15",
		decimal.NewFromInt(150), decimal.Zero); err != nil {
		t.Fatalf("seed refuel: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/reports/monthly?year=2025&month=3", toks["regular"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d", rec.Code)
	}

	var report core.MonthlyBalance
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance = %s, want 50", report.Balance)
	}
	if report.ConsumptionRatio.LessThan(decimal.RequireFromString("0.66")) ||
		report.ConsumptionRatio.GreaterThan(decimal.RequireFromString("0.67")) {
		t.Errorf("consumptionRatio = %s, want about 0.667", report.ConsumptionRatio)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("61st request within a minute should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients are limited independently")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"direct", "203.0.113.9:1234", nil, "203.0.113.9"},
		{"trusted proxy with xff", "127.0.0.1:1234",
			map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "198.51.100.7"},
		{"untrusted peer ignores xff", "203.0.113.9:1234",
			map[string]string{"X-Forwarded-For": "198.51.100.7"}, "203.0.113.9"},
		{"trusted proxy with real-ip", "10.0.0.5:9999",
			map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := extractClientIP(req); got != tt.expected {
				t.Errorf("extractClientIP() = %s, want %s", got, tt.expected)
			}
		})
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solvane/lumen/internal/events"
	"github.com/solvane/lumen/internal/models"
	"github.com/solvane/lumen/internal/offline"
	"github.com/solvane/lumen/internal/remote"
	"github.com/solvane/lumen/internal/testutil"
	"github.com/solvane/lumen/internal/tracker"
)

// stubProvider is a remote backend that accepts everything and stores nothing.
type stubProvider struct{}

func (stubProvider) ReadHabits(context.Context, string) (models.HabitMap, error) {
	return models.HabitMap{}, nil
}
func (stubProvider) WriteHabits(context.Context, string, models.HabitMap) error { return nil }
func (stubProvider) ReadProgress(context.Context, string) (models.ProgressMap, error) {
	return models.ProgressMap{}, nil
}
func (stubProvider) WriteProgress(context.Context, string, models.ProgressMap) error { return nil }
func (stubProvider) Ping(context.Context) error                                      { return nil }

var _ remote.Provider = stubProvider{}

// testEnv sets up a tracker service over a stub backend and temp cache.
// authToken="" means disabled mode; non-empty means token mode.
func testEnv(t *testing.T, authToken string) (*tracker.Service, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	broker := events.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	svc := tracker.New("u1", stubProvider{}, db, offline.NewQueue(db, logger), broker, logger, time.Sunday)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func createHabit(t *testing.T, router http.Handler, name string) models.Habit {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name, "target": 1})
	req := httptest.NewRequest(http.MethodPost, "/habits", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q = %d, body = %s", name, w.Code, w.Body.String())
	}
	var h models.Habit
	_ = json.Unmarshal(w.Body.Bytes(), &h)
	return h
}

func TestCreateAndGetHabit(t *testing.T) {
	_, router := testEnv(t, "")

	h := createHabit(t, router, "Read")

	req := httptest.NewRequest(http.MethodGet, "/habits/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Habit
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.ID != h.ID || got.Name != "Read" {
		t.Errorf("habit = %+v", got)
	}
	if !got.Active {
		t.Error("new habit should be active")
	}
}

func TestCreateDuplicateName(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Exercise")

	body, _ := json.Marshal(map[string]string{"name": " exercise "})
	req := httptest.NewRequest(http.MethodPost, "/habits", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateEmptyName(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"name": "   "})
	req := httptest.NewRequest(http.MethodPost, "/habits", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", w.Code)
	}
}

func TestPatchHabit(t *testing.T) {
	_, router := testEnv(t, "")
	h := createHabit(t, router, "Run")

	body, _ := json.Marshal(map[string]any{"target": 5, "isActive": false})
	req := httptest.NewRequest(http.MethodPatch, "/habits/1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Habit
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Target != 5 || got.Active {
		t.Errorf("patched habit = %+v", got)
	}
	if got.Name != h.Name {
		t.Errorf("name changed unexpectedly: %q", got.Name)
	}
}

func TestDeleteHabit(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Bye")

	req := httptest.NewRequest(http.MethodDelete, "/habits/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	// GET should now 404.
	req = httptest.NewRequest(http.MethodGet, "/habits/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestListHabitsActiveFilter(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "A")
	createHabit(t, router, "B")

	body, _ := json.Marshal(map[string]any{"isActive": false})
	req := httptest.NewRequest(http.MethodPatch, "/habits/2", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/habits?active=true", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp HabitListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Habits[0].Name != "A" {
		t.Errorf("active list = %+v", resp)
	}
}

func TestSetProgressBoolAndNumber(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	// Bool value completes the only habit.
	body := []byte(`{"value": true}`)
	req := httptest.NewRequest(http.MethodPut, "/progress/2024-01-15/1", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put bool = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ProgressResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Percent != 100 {
		t.Errorf("percent = %d, want 100", resp.Percent)
	}

	// Numeric value overwrites it.
	body = []byte(`{"value": 0.5}`)
	req = httptest.NewRequest(http.MethodPut, "/progress/2024-01-15/1", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put number = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Percent != 50 {
		t.Errorf("percent = %d, want 50", resp.Percent)
	}
}

func TestSetProgressRejectsBadInput(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	cases := []struct {
		name string
		url  string
		body string
		want int
	}{
		{"string value", "/progress/2024-01-15/1", `{"value": "yes"}`, http.StatusBadRequest},
		{"missing value", "/progress/2024-01-15/1", `{}`, http.StatusBadRequest},
		{"bad date", "/progress/15-01-2024/1", `{"value": true}`, http.StatusBadRequest},
		{"unknown habit", "/progress/2024-01-15/99", `{"value": true}`, http.StatusNotFound},
		{"bad habit id", "/progress/2024-01-15/abc", `{"value": true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, tc.url, bytes.NewReader([]byte(tc.body)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestGetDayAndClearDay(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	req := httptest.NewRequest(http.MethodPut, "/progress/2024-01-15/1", bytes.NewReader([]byte(`{"value": true}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/progress/2024-01-15", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get day = %d", w.Code)
	}
	var day DayResponse
	_ = json.Unmarshal(w.Body.Bytes(), &day)
	if len(day.Entries) != 1 || day.Percent != 100 {
		t.Errorf("day = %+v", day)
	}

	req = httptest.NewRequest(http.MethodDelete, "/progress/2024-01-15", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("clear day = %d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/progress/2024-01-15", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	day = DayResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &day)
	if len(day.Entries) != 0 || day.Percent != 0 {
		t.Errorf("day after clear = %+v", day)
	}
}

func TestClearAllProgress(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	for _, date := range []string{"2024-01-15", "2024-01-16"} {
		req := httptest.NewRequest(http.MethodPut, "/progress/"+date+"/1", bytes.NewReader([]byte(`{"value": true}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	req := httptest.NewRequest(http.MethodDelete, "/progress", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear all = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/progress/2024-01-15", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var day DayResponse
	_ = json.Unmarshal(w.Body.Bytes(), &day)
	if len(day.Entries) != 0 {
		t.Errorf("entries after clear all = %+v", day.Entries)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	req := httptest.NewRequest(http.MethodPut, "/progress/2024-03-10/1", bytes.NewReader([]byte(`{"value": true}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/calendar/2024-03", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("calendar = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CalendarResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Days) != 42 {
		t.Fatalf("days = %d, want 42", len(resp.Days))
	}
	found := false
	for _, d := range resp.Days {
		if d.DateString == "2024-03-10" {
			found = true
			if d.Percent != 100 {
				t.Errorf("2024-03-10 percent = %d, want 100", d.Percent)
			}
		}
	}
	if !found {
		t.Error("2024-03-10 missing from grid")
	}
}

func TestCalendarBadMonth(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/calendar/March-2024", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", w.Code)
	}
}

func TestStreakAndRateEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	for _, date := range []string{"2024-01-13", "2024-01-14", "2024-01-15"} {
		req := httptest.NewRequest(http.MethodPut, "/progress/"+date+"/1", bytes.NewReader([]byte(`{"value": true}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/habits/1/streak?end=2024-01-15", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("streak = %d, body = %s", w.Code, w.Body.String())
	}
	var streak StreakResponse
	_ = json.Unmarshal(w.Body.Bytes(), &streak)
	if streak.Streak != 3 {
		t.Errorf("streak = %d, want 3", streak.Streak)
	}

	req = httptest.NewRequest(http.MethodGet, "/habits/1/rate?window=0", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero window = %d, want 400", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createHabit(t, router, "Read")

	req := httptest.NewRequest(http.MethodPut, "/progress/2024-01-15/1", bytes.NewReader([]byte(`{"value": true}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	req = httptest.NewRequest(http.MethodGet, "/stats?start=2024-01-14&end=2024-01-15", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d, body = %s", w.Code, w.Body.String())
	}
	var stats StatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Days != 2 {
		t.Errorf("days = %d, want 2", stats.Days)
	}
	if stats.AveragePercent != 50 {
		t.Errorf("average = %d, want 50", stats.AveragePercent)
	}
}

func TestStatsMissingRange(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/stats?start=2024-01-14", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing end = %d, want 400", w.Code)
	}
}

func TestStatsInvertedRange(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/stats?start=2024-01-15&end=2024-01-14", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range = %d, want 400", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Pending != 0 {
		t.Errorf("pending = %d, want 0", st.Pending)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"name": "Read"})
	req := httptest.NewRequest(http.MethodPost, "/habits", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/habits", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/habits", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/habits", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	broker := events.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	svc := tracker.New("u1", stubProvider{}, db, offline.NewQueue(db, logger), broker, logger, time.Sunday)
	return NewRouter(svc, authEnabled, token, broker)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/sprout/internal/backup"
	"github.com/dukerupert/sprout/internal/database"
	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/push"
	"github.com/dukerupert/sprout/internal/reminder"
	"github.com/dukerupert/sprout/internal/store"
)

// wednesday7am is 2026-02-04 07:00 UTC.
var wednesday7am = time.Date(2026, 2, 4, 7, 0, 0, 0, time.UTC)

type testEnv struct {
	mux       *http.ServeMux
	reminders *reminder.Store
	pushStore *store.PushStore
	sender    *fakeSender
}

type fakeSender struct {
	sent []push.Payload
}

func (f *fakeSender) Send(_ context.Context, _ *model.PushSubscription, p push.Payload) error {
	f.sent = append(f.sent, p)
	return nil
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rs := reminder.NewStore(store.NewKVStore(db), nil, nil, time.UTC, logger)
	rs.SetClock(func() time.Time { return wednesday7am })
	if err := rs.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	ps := store.NewPushStore(db)
	bs := store.NewBackupStore(db)
	sender := &fakeSender{}
	svc := push.NewService("public-key", "private-key", "mailto:test@example.com")
	sched := push.NewScheduler(sender, ps, rs, time.Minute, logger)

	rh := NewReminderHandler(rs, logger)
	ph := NewPushHandler(ps, svc, sched, logger)
	bh := NewBackupHandler(backup.NewManager(backup.Config{}, bs, rs, logger, nil), bs, logger)
	th := NewTemplateHandler(rs, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reminders", rh.List)
	mux.HandleFunc("POST /api/reminders", rh.Create)
	mux.HandleFunc("GET /api/reminders/stats", rh.Stats)
	mux.HandleFunc("GET /api/reminders/cards", rh.Cards)
	mux.HandleFunc("GET /api/reminders/completed", rh.Completed)
	mux.HandleFunc("GET /api/reminders/export", rh.Export)
	mux.HandleFunc("POST /api/reminders/import", rh.Import)
	mux.HandleFunc("GET /api/reminders/{id}", rh.Get)
	mux.HandleFunc("PUT /api/reminders/{id}", rh.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", rh.Delete)
	mux.HandleFunc("POST /api/reminders/{id}/water", rh.Water)
	mux.HandleFunc("POST /api/push/subscribe", ph.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", ph.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", ph.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", ph.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", ph.TestNotification)
	mux.HandleFunc("GET /api/backups/status", bh.Status)
	mux.HandleFunc("GET /api/backups", bh.List)
	mux.HandleFunc("POST /api/backups", bh.Run)
	mux.HandleFunc("POST /api/backups/{id}/restore", bh.Restore)
	mux.HandleFunc("GET /{$}", th.Dashboard)
	mux.HandleFunc("GET /partials/reminders", th.CardList)
	mux.HandleFunc("GET /partials/stats", th.StatsPartial)

	return &testEnv{mux: mux, reminders: rs, pushStore: ps, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

const basilJSON = `{"name":"Basil","type":"herbs","days":["Wednesday","Sat"],"times":["18:00","07:30"],"timesPerDay":2,"waterAmount":250}`

func TestReminderCRUD(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "POST", "/api/reminders", basilJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[model.Reminder](t, rec)
	if created.ID == 0 || created.Name != "Basil" {
		t.Fatalf("created = %+v", created)
	}
	if created.Times[0] != model.NewTimeOfDay(7, 30) {
		t.Errorf("times not sorted: %v", created.Times)
	}

	path := "/api/reminders/" + itoa(created.ID)
	rec = env.do(t, "GET", path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = env.do(t, "PUT", path, `{"name":"Thai Basil","type":"herbs","days":["Monday"],"times":["09:00"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[model.Reminder](t, rec)
	if updated.Name != "Thai Basil" || updated.ID != created.ID || updated.WaterAmount != 500 {
		t.Errorf("updated = %+v", updated)
	}

	rec = env.do(t, "GET", "/api/reminders?q=thai", "")
	if list := decodeBody[[]model.Reminder](t, rec); len(list) != 1 {
		t.Errorf("search results = %d, want 1", len(list))
	}

	rec = env.do(t, "DELETE", path, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("unconfirmed delete: status = %d, want 409", rec.Code)
	}
	if len(env.reminders.List()) != 1 {
		t.Fatal("unconfirmed delete removed the reminder")
	}

	rec = env.do(t, "DELETE", path+"?confirm=true", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rec.Code)
	}
	rec = env.do(t, "GET", path, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted: status = %d, want 404", rec.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", `{"name":" ","days":["Monday"],"times":["08:00"]}`, "Please enter a plant name"},
		{"no days", `{"name":"Fern","days":[],"times":["08:00"]}`, "Please select at least one day"},
		{"no times", `{"name":"Fern","days":["Monday"]}`, "Please add at least one time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, "POST", "/api/reminders", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			got := decodeBody[map[string]string](t, rec)
			if got["error"] != tt.want {
				t.Errorf("error = %q, want %q", got["error"], tt.want)
			}
		})
	}

	rec := env.do(t, "POST", "/api/reminders", `{"name":"Fern","days":["Funday"],"times":["08:00"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad weekday: status = %d, want 400", rec.Code)
	}
	if len(env.reminders.List()) != 0 {
		t.Error("rejected drafts were saved")
	}
}

func TestReminderNotFound(t *testing.T) {
	env := setupTestEnv(t)

	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/api/reminders/42", ""},
		{"PUT", "/api/reminders/42", `{"name":"X","days":["Monday"],"times":["08:00"]}`},
		{"DELETE", "/api/reminders/42?confirm=true", ""},
		{"POST", "/api/reminders/42/water", ""},
	} {
		rec := env.do(t, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}

	rec := env.do(t, "GET", "/api/reminders/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestWaterStatsAndCards(t *testing.T) {
	env := setupTestEnv(t)
	created := decodeBody[model.Reminder](t, env.do(t, "POST", "/api/reminders", basilJSON))

	rec := env.do(t, "GET", "/api/reminders/cards", "")
	cards := decodeBody[[]reminder.Card](t, rec)
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	if cards[0].NextWatering != "in 30 minute(s)" || !cards[0].NeedsWater {
		t.Errorf("card = %+v", cards[0])
	}

	path := "/api/reminders/" + itoa(created.ID) + "/water"
	for i := 0; i < 2; i++ {
		if rec := env.do(t, "POST", path, ""); rec.Code != http.StatusOK {
			t.Fatalf("water %d: status = %d", i, rec.Code)
		}
	}

	stats := decodeBody[reminder.Stats](t, env.do(t, "GET", "/api/reminders/stats", ""))
	if stats.Total != 1 || stats.Today != 1 || stats.Completed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	completed := decodeBody[[]int64](t, env.do(t, "GET", "/api/reminders/completed", ""))
	if len(completed) != 1 || completed[0] != created.ID {
		t.Errorf("completed = %v", completed)
	}

	cards = decodeBody[[]reminder.Card](t, env.do(t, "GET", "/api/reminders/cards?filter=today", ""))
	if len(cards) != 1 || cards[0].Button != "✓ Done" || cards[0].NeedsWater {
		t.Errorf("watered card = %+v", cards)
	}
	cards = decodeBody[[]reminder.Card](t, env.do(t, "GET", "/api/reminders/cards?filter=succulents", ""))
	if len(cards) != 0 {
		t.Errorf("succulents filter = %d cards, want 0", len(cards))
	}
}

func TestExportImport(t *testing.T) {
	env := setupTestEnv(t)
	env.do(t, "POST", "/api/reminders", basilJSON)

	rec := env.do(t, "GET", "/api/reminders/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status = %d", rec.Code)
	}
	exported := rec.Body.String()

	env.do(t, "POST", "/api/reminders", `{"name":"Mint","days":["Monday"],"times":["08:00"]}`)

	rec = env.do(t, "POST", "/api/reminders/import", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if list := env.reminders.List(); len(list) != 1 || list[0].Name != "Basil" {
		t.Errorf("after import = %+v", list)
	}

	rec = env.do(t, "POST", "/api/reminders/import", `{"version":1,"reminders":[{"id":1,"name":"A"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("broken snapshot: status = %d, want 400", rec.Code)
	}
}

func TestPushRoutes(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "GET", "/api/push/vapid-key", "")
	if got := decodeBody[map[string]string](t, rec); got["public_key"] != "public-key" {
		t.Errorf("vapid key = %v", got)
	}

	rec = env.do(t, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example.com/1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete subscription: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example.com/1","p256dh":"key","auth":"secret","device_name":"Phone"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe: status = %d, body %s", rec.Code, rec.Body.String())
	}
	sub := decodeBody[model.PushSubscription](t, rec)

	subs := decodeBody[[]model.PushSubscription](t, env.do(t, "GET", "/api/push/subscriptions", ""))
	if len(subs) != 1 || subs[0].DeviceName != "Phone" {
		t.Errorf("subscriptions = %+v", subs)
	}

	rec = env.do(t, "POST", "/api/push/test", "")
	if got := decodeBody[map[string]int](t, rec); got["sent"] != 1 {
		t.Errorf("sent = %v, want 1", got)
	}
	if len(env.sender.sent) != 1 || env.sender.sent[0].Tag != model.NotifTypeTest {
		t.Errorf("payloads = %+v", env.sender.sent)
	}

	path := "/api/push/subscriptions/" + itoa(sub.ID)
	if rec := env.do(t, "DELETE", path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("unsubscribe: status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, "DELETE", path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second unsubscribe: status = %d, want 404", rec.Code)
	}
}

func TestBackupRoutesNotConfigured(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "POST", "/api/backups", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("run: status = %d, want 503", rec.Code)
	}
	rec = env.do(t, "POST", "/api/backups/1/restore", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("restore: status = %d, want 503", rec.Code)
	}

	rec = env.do(t, "GET", "/api/backups", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("list: status = %d, body %q", rec.Code, rec.Body.String())
	}
	rec = env.do(t, "GET", "/api/backups?limit=-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "GET", "/api/backups/status", "")
	got := decodeBody[map[string]any](t, rec)
	status, _ := got["status"].(map[string]any)
	if status["state"] != string(backup.StateDisabled) {
		t.Errorf("status = %v", got)
	}
}

func TestDashboardRendersCards(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.do(t, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No reminders yet") {
		t.Error("empty dashboard should show the empty state")
	}

	env.do(t, "POST", "/api/reminders", basilJSON)

	body := env.do(t, "GET", "/partials/reminders?filter=today", "").Body.String()
	for _, want := range []string{"Basil", "🌿", "Herbs", "Next: in 30 minute(s)", "7:30 AM", "6:00 PM", "💧 Water now", "needs-water"} {
		if !strings.Contains(body, want) {
			t.Errorf("card list missing %q", want)
		}
	}

	body = env.do(t, "GET", "/partials/stats", "").Body.String()
	if !strings.Contains(body, `data-stat="today">1<`) {
		t.Errorf("stats partial = %q", body)
	}

	if rec := env.do(t, "GET", "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown page: status = %d, want 404", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

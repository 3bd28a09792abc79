package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"val8-concierge/internal/clock/clocktest"
	"val8-concierge/internal/desk"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/models"
	"val8-concierge/internal/script"
	"val8-concierge/internal/storage"
	"val8-concierge/internal/theme"
)

const (
	turnTime     = 300 * time.Millisecond
	checkoutTime = 400 * time.Millisecond
)

type testServer struct {
	server   *Server
	clock    *clocktest.Manual
	registry *engine.Registry
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	catalog, err := script.LoadDefault()
	require.NoError(t, err)

	clk := clocktest.NewManual(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	bus := events.NewBus(zerolog.Nop())
	registry := engine.NewRegistry(catalog, engine.Options{
		Clock: clk,
		Delays: engine.Delays{
			Typing:      100 * time.Millisecond,
			Processing:  200 * time.Millisecond,
			SpeechPause: 50 * time.Millisecond,
			Checkout:    300 * time.Millisecond,
		},
		Publisher: bus,
		Logger:    zerolog.Nop(),
	})
	d := desk.New(clk, zerolog.Nop())

	cfg := &Config{RateLimit: 1000, RateBurst: 1000, Demo: true}
	for _, m := range mutate {
		m(cfg)
	}

	t.Cleanup(func() {
		registry.Close()
		d.Close()
		bus.Close()
	})

	return &testServer{
		server: NewServer(Deps{
			Registry:   registry,
			Catalog:    catalog,
			Subscriber: bus,
			Themes:     theme.NewService(storage.NewMemory()),
			Desk:       d,
		}, cfg, zerolog.Nop()),
		clock:    clk,
		registry: registry,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) createSession(t *testing.T, body interface{}) engine.Snapshot {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[engine.Snapshot](t, w)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestListScripts(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/scripts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[struct {
		Default string `json:"default"`
		Scripts []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Steps int    `json:"steps"`
		} `json:"scripts"`
	}](t, w)
	assert.Equal(t, "atlanta", body.Default)
	require.Len(t, body.Scripts, 3)
	assert.Equal(t, "atlanta", body.Scripts[0].ID)
	assert.Equal(t, 10, body.Scripts[0].Steps)
}

func TestCreateSessionDefaults(t *testing.T) {
	ts := newTestServer(t)
	snap := ts.createSession(t, nil)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "atlanta", snap.Script)
	assert.True(t, snap.Demo)
	assert.Equal(t, models.ViewWelcome, snap.View)
	assert.Equal(t, models.PhaseIdle, snap.Phase)

	w := ts.do(t, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/sessions", map[string]interface{}{"script": "nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitMessage(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, map[string]interface{}{"script": "financial"}).ID
	path := "/api/sessions/" + id + "/messages"

	w := ts.do(t, http.MethodPost, path, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, path, map[string]string{"text": "Plan a trip to Rome"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.PhaseTyping, decode[engine.Snapshot](t, w).Phase)

	w = ts.do(t, http.MethodPost, path, map[string]string{"text": "hello?"})
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.clock.Advance(turnTime)
	snap := decode[engine.Snapshot](t, ts.do(t, http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, models.PhaseIdle, snap.Phase)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, 1, snap.Step)
	assert.Equal(t, models.ViewChat, snap.View)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/missing"},
		{http.MethodDelete, "/api/sessions/missing"},
		{http.MethodPost, "/api/sessions/missing/reset"},
		{http.MethodGet, "/api/sessions/missing/stream"},
	} {
		w := ts.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/sessions/"+id, nil).Code)
	assert.Zero(t, ts.registry.Len())
}

func TestStandardFlowCheckout(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, map[string]interface{}{"demo": false}).ID
	base := "/api/sessions/" + id

	w := ts.do(t, http.MethodPost, base+"/checkout", models.UserInfo{Name: "Ana", Email: "ana@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, base+"/recommendations/st-regis-atlanta", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	ts.clock.Advance(turnTime)

	snap := decode[engine.Snapshot](t, ts.do(t, http.MethodGet, base, nil))
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "The St. Regis Atlanta", snap.Selected.Name)
	assert.Equal(t, models.ViewSummary, snap.View)

	w = ts.do(t, http.MethodPost, base+"/checkout", models.UserInfo{Email: "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	invalid := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Equal(t, "Name is required", invalid.Fields["name"])
	assert.Equal(t, "Please enter a valid email", invalid.Fields["email"])

	w = ts.do(t, http.MethodPost, base+"/checkout", models.UserInfo{Name: "Ana", Email: "ana@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)
	ts.clock.Advance(checkoutTime)

	snap = decode[engine.Snapshot](t, ts.do(t, http.MethodGet, base, nil))
	assert.True(t, snap.Confirmed)
	assert.Equal(t, "Ana", snap.User.Name)
	assert.Equal(t, models.ViewConfirmation, snap.View)

	w = ts.do(t, http.MethodPost, base+"/navigate", map[string]string{"view": "itinerary"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"view":"itinerary"`)
}

func TestRecommendationsOnlyInStandardMode(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID

	w := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/recommendations/st-regis-atlanta", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPut, "/api/sessions/"+id+"/mode", map[string]bool{"demo": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[engine.Snapshot](t, w).Demo)

	w = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/recommendations/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditBooking(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID
	base := "/api/sessions/" + id

	w := ts.do(t, http.MethodPatch, base+"/ledger/calendar", map[string]interface{}{
		"fields": map[string]string{"Travelers": "3"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/categories/calendar/confirm", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/categories/weather/confirm", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, base+"/categories/spaceship/confirm", nil).Code)

	w = ts.do(t, http.MethodPatch, base+"/ledger/calendar", map[string]interface{}{
		"fields": map[string]string{"Travelers": "3"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	item := decode[models.BookedItem](t, w)
	for _, f := range item.EditableFields {
		if f.Label == "Travelers" {
			assert.Equal(t, "3", f.Value)
		}
	}

	w = ts.do(t, http.MethodPatch, base+"/ledger/calendar", map[string]interface{}{
		"fields": map[string]string{"Travelers": "4", "Pets": "1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodPatch, base+"/ledger/weather", map[string]interface{}{
		"fields": map[string]string{"Sky": "Clear"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDemoCheckout(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID
	base := "/api/sessions/" + id

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, base+"/demo-checkout", nil).Code)

	for _, c := range []string{"calendar", "weather", "flight", "hotel", "ride"} {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"/categories/"+c+"/confirm", nil).Code)
	}
	w := ts.do(t, http.MethodPost, base+"/demo-checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		Lines []struct {
			Category string `json:"category"`
		} `json:"lines"`
		Total float64 `json:"total"`
	}](t, w)
	assert.Len(t, summary.Lines, 5)
	assert.Positive(t, summary.Total)

	snap := decode[engine.Snapshot](t, ts.do(t, http.MethodGet, base, nil))
	assert.True(t, snap.CheckoutCompleted)
}

func TestNavigateUnreachable(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID

	w := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/navigate", map[string]string{"view": "itinerary"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/sessions/"+id+"/navigate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectScriptResets(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID
	base := "/api/sessions/" + id

	require.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, base+"/messages", map[string]string{"text": "Atlanta"}).Code)
	ts.clock.Advance(turnTime)

	w := ts.do(t, http.MethodPut, base+"/script", map[string]string{"script": "dmc"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[engine.Snapshot](t, w)
	assert.Equal(t, "dmc", snap.Script)
	assert.Empty(t, snap.Messages)
	assert.Zero(t, snap.Step)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, base+"/script", map[string]string{"script": "mars"}).Code)
}

func TestTheme(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/preferences/theme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current":{"id":"ocean-blue"`)

	w = ts.do(t, http.MethodPut, "/api/preferences/theme", map[string]string{"id": "dubai-gold"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/preferences/theme", nil)
	assert.Contains(t, w.Body.String(), `"current":{"id":"dubai-gold"`)

	w = ts.do(t, http.MethodPut, "/api/preferences/theme", map[string]string{"id": "neon"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeskRoutes(t *testing.T) {
	ts := newTestServer(t)

	snap := decode[desk.Snapshot](t, ts.do(t, http.MethodGet, "/api/desk", nil))
	assert.Len(t, snap.Queue, 3)

	w := ts.do(t, http.MethodPost, "/api/desk/calls/call-1/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "call-1", decode[desk.Snapshot](t, w).Active.ID)

	raw := decode[map[string]interface{}](t, w)
	for _, key := range []string{"queue", "active", "call_duration", "profile_open", "calls_handled", "demo_step", "demo_success"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, raw["active"], "started_at")
	assert.NotContains(t, raw, "callQueue")

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/desk/calls/call-2/accept", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/desk/recommendations/r99/toggle", nil).Code)

	w = ts.do(t, http.MethodPost, "/api/desk/recommendations/r3/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[desk.Snapshot](t, w).Recommendations[2].Selected)

	w = ts.do(t, http.MethodPost, "/api/desk/end", map[string]bool{"send_quote": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 13, decode[desk.Snapshot](t, w).CallsHandled)
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/desk/hold", nil).Code)

	w = ts.do(t, http.MethodPost, "/api/desk/demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[desk.Snapshot](t, w).Demo)

	ts.clock.Advance(desk.DemoLength())
	assert.True(t, decode[desk.Snapshot](t, ts.do(t, http.MethodGet, "/api/desk", nil)).DemoSuccess)

	w = ts.do(t, http.MethodDelete, "/api/desk/demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[desk.Snapshot](t, w).Demo)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodGet, "/health", nil).Code)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStream(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t, nil).ID

	srv := httptest.NewServer(ts.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first streamFrame
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, id, first.Snapshot.ID)

	require.NoError(t, conn.WriteJSON(messageRequest{Text: "I'm planning a trip to Atlanta"}))

	for {
		var frame streamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type != "event" || frame.Event.Type != events.TypeMessage {
			continue
		}
		assert.Equal(t, models.SenderUser, frame.Event.Message.Sender)
		assert.Equal(t, "I'm planning a trip to Atlanta", frame.Event.Message.Text)
		break
	}

	require.NoError(t, conn.WriteJSON(messageRequest{Text: "again"}))
	for {
		var frame streamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "error" {
			assert.Contains(t, frame.Error, "busy")
			break
		}
	}

	require.NoError(t, conn.WriteJSON(messageRequest{Text: "  "}))
	for {
		var frame streamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "error" {
			assert.Equal(t, engine.ErrEmptyInput.Error(), frame.Error)
			break
		}
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reeflink/reeflink/internal/calibration"
	"github.com/reeflink/reeflink/internal/coordinator"
	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/push"
	"github.com/reeflink/reeflink/internal/reefpi"
	"github.com/reeflink/reeflink/internal/state"
)

// testServer builds a Server backed by a coordinator mirroring a fake
// controller. The fake exposes one equipment outlet and one pH probe.
func testServer(t *testing.T) *Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["password"] != "reef_password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "token"})
	})
	mux.HandleFunc("/api/capabilities", func(w http.ResponseWriter, _ *http.Request) {
		encodeJSON(t, w, map[string]bool{"equipment": true, "ph": true})
	})
	mux.HandleFunc("/api/equipment", func(w http.ResponseWriter, _ *http.Request) {
		encodeJSON(t, w, []map[string]any{
			{"id": "e1", "name": "Heater", "on": true},
		})
	})
	mux.HandleFunc("/api/equipment/e1/control", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/phprobes", func(w http.ResponseWriter, _ *http.Request) {
		encodeJSON(t, w, []map[string]any{
			{"id": "p1", "name": "Tank pH", "enable": true},
		})
	})
	mux.HandleFunc("/api/phprobes/p1/readings", func(w http.ResponseWriter, _ *http.Request) {
		encodeJSON(t, w, map[string]any{
			"current": []map[string]any{{"value": 8.01}},
		})
	})
	mux.HandleFunc("/api/phprobes/p1/calibratepoint", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	controller := httptest.NewServer(mux)
	t.Cleanup(controller.Close)

	cfg := &config.Config{
		Controller: config.ControllerConfig{
			Host:     controller.URL,
			Username: "reef_pi",
			Password: "reef_password",
			Timeout:  5,
		},
		Poll: config.PollConfig{
			Interval:      60,
			CycleTimeout:  5,
			SkipThreshold: 120,
		},
		MQTT: config.MQTTConfig{TopicPrefix: "reef-pi"},
		API: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
			WebSocket: config.WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Calibration: config.CalibrationConfig{
			WaitSeconds:  1,
			ProgressStep: 1,
		},
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	client := reefpi.New(cfg.Controller)
	mapper := push.NewMapper()
	tracker := state.NewTracker(cfg.GetSkipThreshold())

	coord := coordinator.New(cfg, client, mapper, tracker, log, coordinator.Options{})
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	hub := NewHub(cfg.API.WebSocket, log)
	notifier := NewNotifier(hub, nil, log)
	manager := calibration.NewManager(cfg, client, notifier, nil, log)

	srv, err := New(Deps{
		Config:      cfg.API,
		Logger:      log,
		Coordinator: coord,
		Calibration: manager,
		Mapper:      mapper,
		Tracker:     tracker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		ExternalHub: hub,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Wire the contexts Start() would normally provide.
	ctx, cancel := context.WithCancel(context.Background())
	srv.baseCtx = ctx
	srv.started = time.Now()
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		manager.Wait()
	})

	return srv
}

func encodeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

// ─── Health and Middleware Tests ───────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

// The logging middleware wraps every ResponseWriter in statusWriter;
// the WebSocket upgrade needs hijacking to survive that wrapping.
var _ http.Hijacker = (*statusWriter)(nil)

func TestStatusWriter_HijackNotSupported(t *testing.T) {
	// httptest.ResponseRecorder cannot hijack; the wrapper must return
	// an error rather than panic.
	w := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := w.Hijack(); err == nil {
		t.Fatal("expected error hijacking a non-hijackable writer")
	}
}

// ─── Snapshot Read Tests ───────────────────────────────────────────

func TestSnapshot(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/snapshot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d, want %d", w.Code, http.StatusOK)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(snap.Equipment) != 1 {
		t.Errorf("equipment count = %d, want 1", len(snap.Equipment))
	}
	if len(snap.PH) != 1 {
		t.Errorf("ph count = %d, want 1", len(snap.PH))
	}
}

func TestEquipmentListing(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/equipment", "")
	if w.Code != http.StatusOK {
		t.Fatalf("equipment status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestCapabilities(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/capabilities", "")
	if w.Code != http.StatusOK {
		t.Fatalf("capabilities status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	resolved, ok := resp["resolved"].(map[string]any)
	if !ok {
		t.Fatalf("resolved gates missing from response: %v", resp)
	}
	if resolved["has_equipment"] != true {
		t.Errorf("has_equipment = %v, want true", resolved["has_equipment"])
	}
}

func TestDisplay_NotAvailable(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/display", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("display status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["devices"] == float64(0) {
		t.Error("expected devices > 0 after refresh")
	}
}

func TestDeviceLookup(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/equipment/e1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("device status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["kind"] != "equipment" {
		t.Errorf("kind = %v, want equipment", resp["kind"])
	}
	device, ok := resp["device"].(map[string]any)
	if !ok {
		t.Fatalf("device missing from response: %v", resp)
	}
	if device["name"] != "Heater" {
		t.Errorf("name = %v, want Heater", device["name"])
	}
}

func TestDeviceLookup_UnknownDevice(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/equipment/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("device status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeviceLookup_UnknownKind(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/devices/sprocket/e1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("device status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMetrics(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}
	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.Runtime.Goroutines == 0 {
		t.Error("expected nonzero goroutine count")
	}
	if metrics.Snapshot.Devices == 0 {
		t.Error("expected nonzero device count")
	}
	if metrics.MQTT.Connected {
		t.Error("mqtt should report disconnected when not configured")
	}
}

// ─── Control Action Tests ──────────────────────────────────────────

func TestEquipmentControl(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/equipment/e1/control", `{"on":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("control status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// Optimistic fold-back is visible immediately.
	out := doRequest(t, srv, http.MethodGet, "/api/v1/equipment", "")
	resp := decodeBody(t, out)
	equipment, ok := resp["equipment"].(map[string]any)
	if !ok {
		t.Fatalf("equipment missing from response: %v", resp)
	}
	entry, ok := equipment["e1"].(map[string]any)
	if !ok {
		t.Fatalf("equipment e1 missing: %v", equipment)
	}
	if entry["on"] != false {
		t.Errorf("on = %v, want false", entry["on"])
	}
}

func TestEquipmentControl_UnknownDevice(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/equipment/nope/control", `{"on":true}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("control status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEquipmentControl_InvalidJSON(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/equipment/e1/control", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("control status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLightControl_ValueValidation(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/lights/l1/control", `{"value":150}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("light control status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Collision Tests ───────────────────────────────────────────────

func TestCollisions_Empty(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/collisions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("collisions status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestCollisionsReset(t *testing.T) {
	srv := testServer(t)

	// Force a collision: two devices normalize to the same topic.
	srv.mapper.Register("reef-pi", push.Target{Kind: state.KindTemperature, ID: "t1", Name: "Tank"})
	srv.mapper.Register("reef-pi", push.Target{Kind: state.KindTemperature, ID: "t2", Name: "tank"})

	w := doRequest(t, srv, http.MethodGet, "/api/v1/collisions", "")
	resp := decodeBody(t, w)
	if resp["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", resp["count"])
	}

	reset := doRequest(t, srv, http.MethodPost, "/api/v1/collisions/reset", "")
	if reset.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want %d", reset.Code, http.StatusOK)
	}

	after := doRequest(t, srv, http.MethodGet, "/api/v1/collisions", "")
	if decodeBody(t, after)["count"] != float64(0) {
		t.Error("expected no collisions after reset")
	}
}

// ─── Calibration Tests ─────────────────────────────────────────────

func TestCalibrationStart(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/calibration/p1", `{"mode":"freshwater"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["probe_id"] != "p1" {
		t.Errorf("probe_id = %v, want p1", resp["probe_id"])
	}
	if resp["probe_name"] != "Tank pH" {
		t.Errorf("probe_name = %v, want Tank pH", resp["probe_name"])
	}

	status := doRequest(t, srv, http.MethodGet, "/api/v1/calibration/p1", "")
	if status.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", status.Code, http.StatusOK)
	}
	if decodeBody(t, status)["id"] != resp["id"] {
		t.Error("status returned a different session")
	}
}

func TestCalibrationStart_UnknownProbe(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/calibration/nope", `{"mode":"freshwater"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("start status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCalibrationStart_UnknownMode(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/calibration/p1", `{"mode":"brackish"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("start status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCalibrationStart_Conflict(t *testing.T) {
	srv := testServer(t)

	first := doRequest(t, srv, http.MethodPost, "/api/v1/calibration/p1", `{"mode":"saltwater"}`)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first start status = %d, want %d", first.Code, http.StatusAccepted)
	}

	second := doRequest(t, srv, http.MethodPost, "/api/v1/calibration/p1", `{"mode":"saltwater"}`)
	if second.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestCalibrationStatus_NoSession(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/calibration/p1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── History and Freshness Tests ───────────────────────────────────

func TestHistory_NotEnabled(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/history/temperature/t1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("history status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestFreshness(t *testing.T) {
	srv := testServer(t)

	srv.tracker.Record(state.KindTemperature, "t1", state.SourcePush, time.Now())

	w := doRequest(t, srv, http.MethodGet, "/api/v1/freshness/temperature/t1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("freshness status = %d, want %d", w.Code, http.StatusOK)
	}
	if decodeBody(t, w)["source"] != string(state.SourcePush) {
		t.Error("expected push source in freshness record")
	}
}

func TestFreshness_NoRecord(t *testing.T) {
	srv := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/freshness/temperature/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("freshness status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func TestWebSocket_SubscribeAndEvent(t *testing.T) {
	srv := testServer(t)

	httpSrv := httptest.NewServer(srv.buildRouter())
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{coordinator.EventDevice}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}

	srv.hub.Send(coordinator.Event{
		Type: coordinator.EventDevice,
		Kind: state.KindEquipment,
		ID:   "e1",
		At:   time.Now(),
	})

	//nolint:errcheck // Deadline best-effort; read error fails the test below
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != coordinator.EventDevice {
		t.Errorf("event = %q/%q, want event/device", event.Type, event.EventType)
	}
}

func TestWebSocket_UnsubscribedGetsNothing(t *testing.T) {
	srv := testServer(t)

	httpSrv := httptest.NewServer(srv.buildRouter())
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub time to register the client before broadcasting.
	deadline := time.Now().Add(time.Second)
	for srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	srv.hub.Send(coordinator.Event{Type: coordinator.EventSnapshot, At: time.Now()})

	//nolint:errcheck // Deadline best-effort; the read is expected to time out
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("expected no message for unsubscribed client, got %v", msg)
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestServer_HealthCheckBeforeStart(t *testing.T) {
	srv := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check to fail before Start")
	}
}

package reefpi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
)

// newTestClient builds a client pointed at a httptest server that
// performs cookie auth the way the controller does.
func newTestClient(t *testing.T, handler http.Handler) *Client {
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
	if handler != nil {
		mux.Handle("/api/", handler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(config.ControllerConfig{
		Host:    srv.URL,
		Timeout: 5,
	})
}

// requireAuth wraps a handler with the controller's cookie check.
func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth")
		if err != nil || cookie.Value != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func authenticate(t *testing.T, c *Client) {
	t.Helper()
	if err := c.Authenticate(context.Background(), "reef_pi", "reef_password"); err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, nil)

	if c.IsAuthenticated() {
		t.Error("client should not be authenticated by construction")
	}

	authenticate(t, c)

	if !c.IsAuthenticated() {
		t.Error("client should be authenticated after signin")
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	c := newTestClient(t, nil)

	err := c.Authenticate(context.Background(), "reef_pi", "wrong")
	if !errors.Is(err, ErrInvalidAuth) {
		t.Errorf("Authenticate() with bad credentials = %v, want ErrInvalidAuth", err)
	}
	if c.IsAuthenticated() {
		t.Error("failed signin must not establish a session")
	}
}

func TestAuthenticate_ConnectionFailure(t *testing.T) {
	c := New(config.ControllerConfig{
		Host:    "http://127.0.0.1:1",
		Timeout: 1,
	})

	err := c.Authenticate(context.Background(), "reef_pi", "reef_password")
	if !errors.Is(err, ErrCannotConnect) {
		t.Errorf("Authenticate() against dead host = %v, want ErrCannotConnect", err)
	}
}

func TestGet_RequiresSession(t *testing.T) {
	c := newTestClient(t, nil)

	// Every call must fail fast before any round-trip when no session is held.
	if _, err := c.Capabilities(context.Background()); !errors.Is(err, ErrInvalidAuth) {
		t.Errorf("Capabilities() without session = %v, want ErrInvalidAuth", err)
	}
	if err := c.EquipmentControl(context.Background(), "1", true); !errors.Is(err, ErrInvalidAuth) {
		t.Errorf("EquipmentControl() without session = %v, want ErrInvalidAuth", err)
	}
}

func TestCapabilities(t *testing.T) {
	c := newTestClient(t, requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/capabilities" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{
			"temperature": true,
			"equipment":   true,
			"ph":          true,
			"doser":       false,
		})
	}))
	authenticate(t, c)

	caps, err := c.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities() failed: %v", err)
	}
	if !caps.Has("temperature") {
		t.Error("temperature capability should be true")
	}
	if caps.Has("doser") {
		t.Error("doser capability should be false")
	}
	if caps.Has("macro") {
		t.Error("absent capability should default to false")
	}
}

func TestGet_EmptyOnNon2xx(t *testing.T) {
	c := newTestClient(t, requireAuth(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	authenticate(t, c)

	inlets, err := c.Inlets(context.Background())
	if err != nil {
		t.Fatalf("Inlets() with 404 = %v, want nil error", err)
	}
	if len(inlets) != 0 {
		t.Errorf("Inlets() with 404 returned %d entries, want empty", len(inlets))
	}
}

func TestTemperature_StringAndNumericValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"quoted string value", `{"temperature": "25.0"}`, 25.0},
		{"numeric value", `{"temperature": 26.5}`, 26.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, requireAuth(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			authenticate(t, c)

			reading, err := c.Temperature(context.Background(), "1")
			if err != nil {
				t.Fatalf("Temperature() failed: %v", err)
			}
			if !reading.Temperature.Valid || reading.Temperature.Value != tt.want {
				t.Errorf("Temperature() = %+v, want %v", reading.Temperature, tt.want)
			}
		})
	}
}

func TestPHReading(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantValue float64
		wantOK    bool
	}{
		{
			name: "current bucket wins",
			body: `{"current": [{"value": 8.19, "time": "Aug-22-19:30, 2021"}, {"value": 8.24, "time": "Aug-23-19:30, 2021"}],
			        "historical": [{"value": 7.9, "time": "Aug-24-19:30, 2021"}]}`,
			wantValue: 8.24,
			wantOK:    true,
		},
		{
			name: "current empty falls back to historical",
			body: `{"current": [],
			        "historical": [{"value": 7.9, "time": "Aug-20-10:00, 2021"}, {"value": 8.01, "time": "Aug-21-10:00, 2021"}]}`,
			wantValue: 8.01,
			wantOK:    true,
		},
		{
			name:   "both buckets empty yields no value",
			body:   `{}`,
			wantOK: false,
		},
		{
			name:   "nan value yields no value",
			body:   `{"current": [{"value": "NaN", "time": "Aug-23-19:30, 2021"}]}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, requireAuth(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			authenticate(t, c)

			value, ok, err := c.PHReading(context.Background(), "6")
			if err != nil {
				t.Fatalf("PHReading() failed: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && value != tt.wantValue {
				t.Errorf("value = %v, want %v", value, tt.wantValue)
			}
		})
	}
}

func TestCalibratePHProbe(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		var received CalibrationPoint
		c := newTestClient(t, requireAuth(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/phprobes/6/calibratepoint" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewDecoder(r.Body).Decode(&received)
			w.Write([]byte("{}"))
		}))
		authenticate(t, c)

		ok, _, err := c.CalibratePHProbe(context.Background(), "6", CalibrationPoint{
			Expected: 7.0, Observed: 6.9, Type: "low",
		})
		if err != nil {
			t.Fatalf("CalibratePHProbe() failed: %v", err)
		}
		if !ok {
			t.Fatal("submission should be accepted")
		}
		if received.Expected != 7.0 || received.Observed != 6.9 || received.Type != "low" {
			t.Errorf("controller received %+v", received)
		}
	})

	t.Run("rejected with message", func(t *testing.T) {
		c := newTestClient(t, requireAuth(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "observed value out of range", http.StatusBadRequest)
		}))
		authenticate(t, c)

		ok, rejection, err := c.CalibratePHProbe(context.Background(), "6", CalibrationPoint{
			Expected: 4.0, Observed: 9.0, Type: "low",
		})
		if err != nil {
			t.Fatalf("CalibratePHProbe() failed: %v", err)
		}
		if ok {
			t.Fatal("submission should be rejected")
		}
		if rejection != "observed value out of range" {
			t.Errorf("rejection = %q", rejection)
		}
	})
}

func TestEquipmentControl(t *testing.T) {
	var gotPayload map[string]bool
	c := newTestClient(t, requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/equipment/17/control" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
	}))
	authenticate(t, c)

	if err := c.EquipmentControl(context.Background(), "17", true); err != nil {
		t.Fatalf("EquipmentControl() failed: %v", err)
	}
	if !gotPayload["on"] {
		t.Errorf("payload = %v, want on=true", gotPayload)
	}
}

func TestATOUpdate_RoundTripsFullObject(t *testing.T) {
	var posted map[string]any
	c := newTestClient(t, requireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id": "1", "name": "Test ATO", "enable": false, "period": 120}`))
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&posted)
		}
	}))
	authenticate(t, c)

	if err := c.ATOUpdate(context.Background(), "1", true); err != nil {
		t.Fatalf("ATOUpdate() failed: %v", err)
	}
	if posted["enable"] != true {
		t.Errorf("posted enable = %v, want true", posted["enable"])
	}
	if posted["period"] != float64(120) {
		t.Errorf("posted object lost fields: %v", posted)
	}
}

func TestDisplaySwitch(t *testing.T) {
	var path string
	c := newTestClient(t, requireAuth(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	authenticate(t, c)

	if err := c.DisplaySwitch(context.Background(), true); err != nil {
		t.Fatalf("DisplaySwitch(true) failed: %v", err)
	}
	if path != "/api/display/on" {
		t.Errorf("path = %q, want /api/display/on", path)
	}

	if err := c.DisplaySwitch(context.Background(), false); err != nil {
		t.Fatalf("DisplaySwitch(false) failed: %v", err)
	}
	if path != "/api/display/off" {
		t.Errorf("path = %q, want /api/display/off", path)
	}
}

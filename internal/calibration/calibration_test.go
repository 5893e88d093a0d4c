package calibration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/reefpi"
)

// scriptedClient returns pre-programmed responses per PHReading call
// and records each calibration submission.
type scriptedClient struct {
	mu       sync.Mutex
	readings []scriptedReading
	calls    int

	acceptPoints bool
	rejection    string
	submitErr    error
	submissions  []reefpi.CalibrationPoint
}

type scriptedReading struct {
	value float64
	ok    bool
	err   error
}

func (c *scriptedClient) PHReading(_ context.Context, _ string) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readings) == 0 {
		return 0, false, nil
	}
	r := c.readings[0]
	if len(c.readings) > 1 {
		c.readings = c.readings[1:]
	}
	c.calls++
	return r.value, r.ok, r.err
}

func (c *scriptedClient) CalibratePHProbe(_ context.Context, _ string, point reefpi.CalibrationPoint) (bool, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submissions = append(c.submissions, point)
	return c.acceptPoints, c.rejection, c.submitErr
}

func (c *scriptedClient) submitted() []reefpi.CalibrationPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]reefpi.CalibrationPoint(nil), c.submissions...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	byID     map[string]string
	rendered int
}

func (n *fakeNotifier) Notify(id, _, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.byID == nil {
		n.byID = make(map[string]string)
	}
	n.byID[id] = body
	n.rendered++
}

func (n *fakeNotifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.byID, id)
}

func (n *fakeNotifier) last(id string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.byID[id]
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *fakeRefresher) refreshed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestManager(client *scriptedClient) (*Manager, *fakeNotifier, *fakeRefresher) {
	cfg := &config.Config{
		Poll: config.PollConfig{CycleTimeout: 1},
		Calibration: config.CalibrationConfig{
			WaitSeconds:  1,
			ProgressStep: 1,
		},
	}
	notifier := &fakeNotifier{}
	refresher := &fakeRefresher{}
	return NewManager(cfg, client, notifier, refresher, logging.Default()), notifier, refresher
}

func TestModePoints(t *testing.T) {
	tests := []struct {
		mode      Mode
		low, high float64
		ok        bool
	}{
		{ModeFreshwater, 4.0, 7.0, true},
		{ModeSaltwater, 7.0, 10.0, true},
		{Mode("brackish"), 0, 0, false},
	}

	for _, tt := range tests {
		low, high, ok := tt.mode.Points()
		if low != tt.low || high != tt.high || ok != tt.ok {
			t.Errorf("Points(%q) = %v, %v, %v", tt.mode, low, high, ok)
		}
	}
}

func TestCalibration_FreshwaterComplete(t *testing.T) {
	client := &scriptedClient{
		readings:     []scriptedReading{{value: 6.95, ok: true}},
		acceptPoints: true,
	}
	manager, _, refresher := newTestManager(client)

	session, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	manager.Wait()

	if session.Step() != StepComplete {
		t.Fatalf("session step = %q, want complete; message: %s", session.Step(), session.Message())
	}

	points := client.submitted()
	if len(points) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(points))
	}
	if points[0].Expected != 4.0 || points[0].Type != "low" {
		t.Errorf("low submission = %+v, want expected 4.0 type low", points[0])
	}
	if points[1].Expected != 7.0 || points[1].Type != "high" {
		t.Errorf("high submission = %+v, want expected 7.0 type high", points[1])
	}
	if points[0].Observed != 6.95 {
		t.Errorf("observed = %v, want the fresh capture value", points[0].Observed)
	}
	if refresher.refreshed() != 1 {
		t.Errorf("expected one post-calibration refresh, got %d", refresher.refreshed())
	}
}

func TestCalibration_RejectionFailsWithoutRetry(t *testing.T) {
	client := &scriptedClient{
		readings:  []scriptedReading{{value: 7.02, ok: true}},
		rejection: "slope out of range",
	}
	manager, notifier, refresher := newTestManager(client)

	session, err := manager.Start(context.Background(), "9", "Main Probe", ModeSaltwater)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	manager.Wait()

	if session.Step() != StepFailed {
		t.Fatalf("session step = %q, want failed", session.Step())
	}
	if got := client.submitted(); len(got) != 1 {
		t.Errorf("expected exactly one submission attempt, got %d", len(got))
	}
	if body := notifier.last("calibration_9_low"); !strings.Contains(body, "slope out of range") {
		t.Errorf("notification %q should carry the controller's rejection text", body)
	}
	if refresher.refreshed() != 0 {
		t.Error("failed session must not trigger a refresh")
	}
}

func TestCalibration_NeverGotReading(t *testing.T) {
	client := &scriptedClient{
		readings:     []scriptedReading{{ok: false}},
		acceptPoints: true,
	}
	manager, notifier, _ := newTestManager(client)

	session, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	manager.Wait()

	if session.Step() != StepFailed {
		t.Fatalf("session step = %q, want failed", session.Step())
	}
	body := notifier.last("calibration_9_low")
	if !strings.Contains(body, "did not report a reading") {
		t.Errorf("notification %q should say the probe never reported", body)
	}
	if strings.Contains(body, "Last recorded reading") {
		t.Errorf("notification %q must not mention an earlier reading that never existed", body)
	}
	if len(client.submitted()) != 0 {
		t.Error("no point may be submitted without a captured reading")
	}
}

func TestCalibration_ReadingLostAtCapture(t *testing.T) {
	client := &scriptedClient{
		readings: []scriptedReading{
			{value: 7.11, ok: true}, // wait-loop sample
			{ok: false},             // authoritative capture
		},
		acceptPoints: true,
	}
	manager, notifier, _ := newTestManager(client)

	session, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	manager.Wait()

	if session.Step() != StepFailed {
		t.Fatalf("session step = %q, want failed", session.Step())
	}
	body := notifier.last("calibration_9_low")
	if !strings.Contains(body, "Last recorded reading before capture was 7.11") {
		t.Errorf("notification %q should name the reading that was lost at capture", body)
	}
}

func TestCalibration_ConnectionFailureAtSubmit(t *testing.T) {
	client := &scriptedClient{
		readings:  []scriptedReading{{value: 6.98, ok: true}},
		submitErr: reefpi.ErrCannotConnect,
	}
	manager, notifier, _ := newTestManager(client)

	session, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	manager.Wait()

	if session.Step() != StepFailed {
		t.Fatalf("session step = %q, want failed", session.Step())
	}
	if body := notifier.last("calibration_9_low"); !strings.Contains(body, "could not be reached") {
		t.Errorf("notification %q should name the connection failure", body)
	}
}

func TestStart_RejectsConcurrentSessionForSameProbe(t *testing.T) {
	client := &scriptedClient{
		readings:     []scriptedReading{{value: 6.95, ok: true}},
		acceptPoints: true,
	}
	manager, _, _ := newTestManager(client)

	if _, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err := manager.Start(context.Background(), "9", "Main Probe", ModeFreshwater); !errors.Is(err, ErrSessionInFlight) {
		t.Errorf("second Start() = %v, want ErrSessionInFlight", err)
	}

	// A different probe is independent.
	if _, err := manager.Start(context.Background(), "10", "Frag Tank", ModeFreshwater); err != nil {
		t.Errorf("Start() for another probe = %v, want success", err)
	}
	manager.Wait()
}

func TestStart_UnknownMode(t *testing.T) {
	manager, _, _ := newTestManager(&scriptedClient{})

	if _, err := manager.Start(context.Background(), "9", "Main Probe", Mode("brackish")); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Start() = %v, want ErrUnknownMode", err)
	}
}

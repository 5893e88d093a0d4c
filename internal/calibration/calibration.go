package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/reefpi"
)

// Mode selects the buffer solutions for a two-point calibration.
type Mode string

const (
	ModeFreshwater Mode = "freshwater"
	ModeSaltwater  Mode = "saltwater"
)

// Points returns the low and high buffer targets for the mode.
func (m Mode) Points() (low, high float64, ok bool) {
	switch m {
	case ModeFreshwater:
		return 4.0, 7.0, true
	case ModeSaltwater:
		return 7.0, 10.0, true
	default:
		return 0, 0, false
	}
}

// Step is the session's position in the calibration state machine.
type Step string

const (
	StepAwaitingLow  Step = "awaiting_low"
	StepAwaitingHigh Step = "awaiting_high"
	StepComplete     Step = "complete"
	StepFailed       Step = "failed"
)

var (
	// ErrUnknownMode is returned for calibration modes other than
	// freshwater and saltwater.
	ErrUnknownMode = errors.New("unknown calibration mode")

	// ErrSessionInFlight is returned when a calibration session for
	// the same probe has not yet reached a terminal step.
	ErrSessionInFlight = errors.New("calibration already in progress for probe")
)

// ProbeClient is the slice of the controller client the workflow needs.
type ProbeClient interface {
	PHReading(ctx context.Context, id string) (float64, bool, error)
	CalibratePHProbe(ctx context.Context, id string, point reefpi.CalibrationPoint) (ok bool, rejection string, err error)
}

// Notifier renders operator-facing progress. The id is stable for a
// given probe and step, so repeated renders replace the previous
// notification instead of stacking.
type Notifier interface {
	Notify(id, title, body string)
	Dismiss(id string)
}

// Refresher requests a full state refresh after a completed
// calibration, so entities pick up the recalibrated readings.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Session is one two-point calibration run. Fields behind the mutex
// change as the background worker progresses.
type Session struct {
	ID        string    `json:"id"`
	ProbeID   string    `json:"probe_id"`
	ProbeName string    `json:"probe_name"`
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"started_at"`

	mu       sync.Mutex
	step     Step
	message  string
	observed float64
	hasValue bool
}

// Step returns the session's current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Message returns the most recent operator-facing status line.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// LastObserved returns the most recent live reading, if any.
func (s *Session) LastObserved() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observed, s.hasValue
}

// Terminal reports whether the session has finished.
func (s *Session) Terminal() bool {
	step := s.Step()
	return step == StepComplete || step == StepFailed
}

func (s *Session) setStep(step Step, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	s.message = message
}

func (s *Session) setObserved(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observed = value
	s.hasValue = true
}

// Manager runs calibration sessions, at most one per probe at a time.
// Sessions for different probes are independent.
type Manager struct {
	cfg       *config.Config
	client    ProbeClient
	notifier  Notifier
	refresher Refresher
	logger    *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager builds a calibration manager. The refresher may be nil.
func NewManager(cfg *config.Config, client ProbeClient, notifier Notifier, refresher Refresher, logger *logging.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		client:    client,
		notifier:  notifier,
		refresher: refresher,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the latest session for a probe, terminal or not.
func (m *Manager) Session(probeID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[probeID]
	return s, ok
}

// Start begins a two-point calibration for the probe and returns the
// running session. The workflow continues in the background; progress
// is visible through the Notifier and the returned session.
func (m *Manager) Start(ctx context.Context, probeID, probeName string, mode Mode) (*Session, error) {
	low, high, ok := mode.Points()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	m.mu.Lock()
	if existing, found := m.sessions[probeID]; found && !existing.Terminal() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w %s", ErrSessionInFlight, probeID)
	}
	session := &Session{
		ID:        uuid.NewString(),
		ProbeID:   probeID,
		ProbeName: probeName,
		Mode:      mode,
		StartedAt: time.Now(),
		step:      StepAwaitingLow,
	}
	m.sessions[probeID] = session
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, session, low, high)
	}()

	return session, nil
}

// Wait blocks until all running sessions have finished. Intended for
// shutdown and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, session *Session, low, high float64) {
	if !m.runPoint(ctx, session, "low", low) {
		return
	}

	session.setStep(StepAwaitingHigh, "")
	if !m.runPoint(ctx, session, "high", high) {
		return
	}

	session.setStep(StepComplete, "Calibration complete.")
	m.notifier.Notify(m.notificationID(session, "high"),
		m.pointTitle(session, "high"),
		"Calibration complete. Both points were accepted by the controller.")
	m.logger.Info("calibration complete",
		"probe", session.ProbeID, "mode", string(session.Mode))

	if m.refresher != nil {
		refreshCtx, cancel := context.WithTimeout(context.Background(), m.cfg.GetCycleTimeout())
		defer cancel()
		if err := m.refresher.Refresh(refreshCtx); err != nil {
			m.logger.Warn("post-calibration refresh failed", "error", err)
		}
	}
}

// notificationID is stable per probe and step so progress re-renders
// replace each other.
func (m *Manager) notificationID(session *Session, label string) string {
	return fmt.Sprintf("calibration_%s_%s", session.ProbeID, label)
}

func (m *Manager) pointTitle(session *Session, label string) string {
	return fmt.Sprintf("%s: %s %s point", session.ProbeName, session.Mode, label)
}

// runPoint walks one calibration point: announce, sample across the
// settle window, capture a fresh authoritative reading at expiry, then
// submit. Returns false when the session ended in failure.
func (m *Manager) runPoint(ctx context.Context, session *Session, label string, expected float64) bool {
	notificationID := m.notificationID(session, label)
	title := m.pointTitle(session, label)
	instruction := fmt.Sprintf(
		"Place the probe in the %s calibration solution (pH %.2f).", label, expected)

	remaining := m.cfg.GetCalibrationWait()
	step := m.cfg.GetCalibrationStep()

	var (
		latestObserved float64
		haveObserved   bool
		lastError      string
	)

	for remaining > 0 {
		value, ok, err := m.client.PHReading(ctx, session.ProbeID)
		switch {
		case err != nil:
			lastError = readErrorText(err)
		case ok:
			latestObserved = value
			haveObserved = true
			lastError = ""
			session.setObserved(value)
		}

		m.notifier.Notify(notificationID, title,
			progressBody(instruction, latestObserved, haveObserved, lastError, remaining))

		interval := min(step, remaining)
		select {
		case <-ctx.Done():
			m.fail(session, notificationID, title, "Calibration was cancelled before the point was captured.")
			return false
		case <-time.After(interval):
		}
		remaining -= interval
	}

	m.notifier.Notify(notificationID, title, "Capturing the probe reading...")

	// The capture is always a fresh read at window expiry; the value
	// shown during the wait loop is never submitted.
	observed, ok, err := m.client.PHReading(ctx, session.ProbeID)
	if err != nil || !ok {
		extra := ""
		switch {
		case err != nil:
			extra = " " + readErrorText(err)
		case haveObserved:
			extra = fmt.Sprintf(" Last recorded reading before capture was %.2f pH.", latestObserved)
		}
		m.fail(session, notificationID, title,
			"The probe did not report a reading when the calibration point was captured."+extra)
		return false
	}
	session.setObserved(observed)

	accepted, rejection, err := m.client.CalibratePHProbe(ctx, session.ProbeID, reefpi.CalibrationPoint{
		Expected: expected,
		Observed: observed,
		Type:     label,
	})
	switch {
	case errors.Is(err, reefpi.ErrCannotConnect):
		m.fail(session, notificationID, title,
			"The controller could not be reached while saving the calibration point. "+
				"Check the controller connection and try again.")
		return false
	case errors.Is(err, reefpi.ErrInvalidAuth):
		m.fail(session, notificationID, title,
			"The controller rejected the stored credentials while saving the calibration point. "+
				"Update the credentials and try again.")
		return false
	case err != nil:
		m.fail(session, notificationID, title,
			fmt.Sprintf("Saving the calibration point failed: %s.", err))
		return false
	case !accepted:
		body := "The controller rejected the calibration point."
		if rejection != "" {
			body = fmt.Sprintf("The controller rejected the calibration point: %s", rejection)
		}
		m.fail(session, notificationID, title, body)
		return false
	}

	m.notifier.Notify(notificationID, title,
		fmt.Sprintf("Saved the %s point (expected %.2f, observed %.2f).", label, expected, observed))
	return true
}

func (m *Manager) fail(session *Session, notificationID, title, body string) {
	session.setStep(StepFailed, body)
	m.notifier.Notify(notificationID, title, body)
	m.logger.Warn("calibration failed",
		"probe", session.ProbeID, "reason", body)
}

func readErrorText(err error) string {
	switch {
	case errors.Is(err, reefpi.ErrCannotConnect):
		return "The controller could not be reached."
	case errors.Is(err, reefpi.ErrInvalidAuth):
		return "The controller rejected the stored credentials."
	default:
		return "Reading the probe failed."
	}
}

func progressBody(instruction string, observed float64, haveObserved bool, lastError string, remaining time.Duration) string {
	body := instruction + "\n\n"
	switch {
	case haveObserved:
		body += fmt.Sprintf("Current probe reading: %.2f pH.", observed)
	case lastError != "":
		body += lastError
	default:
		body += "Current probe reading is unavailable."
	}
	body += fmt.Sprintf("\n\nTime remaining before the reading is saved: %s.", formatRemaining(remaining))
	return body
}

// formatRemaining renders a wait duration the way an operator reads it.
func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	switch {
	case minutes > 0 && seconds > 0:
		return fmt.Sprintf("%d min %d s", minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%d min", minutes)
	default:
		return fmt.Sprintf("%d s", seconds)
	}
}

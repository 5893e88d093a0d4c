package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
	"github.com/reeflink/reeflink/internal/infrastructure/influxdb"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/push"
	"github.com/reeflink/reeflink/internal/reefpi"
	"github.com/reeflink/reeflink/internal/state"
)

// Coordinator owns the refresh cycle and the published snapshot. All
// mutation (cycles, push applies, control actions) happens under one
// mutex; readers get the last published snapshot through an atomic
// pointer and never block.
type Coordinator struct {
	cfg     *config.Config
	client  *reefpi.Client
	logger  *logging.Logger
	mapper  *push.Mapper
	tracker *state.Tracker

	// Optional collaborators; nil disables the feature.
	history  *state.HistoryRepository
	influx   *influxdb.Client
	events   EventSink
	notifier Notifier

	mu        sync.Mutex
	published atomic.Pointer[state.Snapshot]
	gates     Gates

	collisionNotified bool
	lastPrune         time.Time
}

// Options carries the optional collaborators for New.
type Options struct {
	History  *state.HistoryRepository
	Influx   *influxdb.Client
	Events   EventSink
	Notifier Notifier
}

// New builds a coordinator around the given controller client. The
// initial published snapshot is empty; call Refresh or Run to populate
// it.
func New(cfg *config.Config, client *reefpi.Client, mapper *push.Mapper, tracker *state.Tracker, logger *logging.Logger, opts Options) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		mapper:   mapper,
		tracker:  tracker,
		history:  opts.History,
		influx:   opts.Influx,
		events:   opts.Events,
		notifier: opts.Notifier,
	}
	c.published.Store(state.NewSnapshot())
	return c
}

// Snapshot returns the last published snapshot. The returned value is
// shared and must be treated as read-only.
func (c *Coordinator) Snapshot() *state.Snapshot {
	return c.published.Load()
}

// Gates returns the subsystem gates derived by the last cycle.
func (c *Coordinator) Gates() Gates {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gates
}

// Run refreshes immediately and then on every poll interval until the
// context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	c.refreshAndLog(ctx)

	ticker := time.NewTicker(c.cfg.GetPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshAndLog(ctx)
		}
	}
}

func (c *Coordinator) refreshAndLog(ctx context.Context) {
	start := time.Now()
	err := c.Refresh(ctx)
	switch {
	case err == nil:
		snap := c.Snapshot()
		c.logger.Debug("refresh cycle complete",
			"duration", time.Since(start).String(),
			"devices", snap.DeviceCount())
	case errors.Is(err, ErrAuthRequired):
		c.logger.Error("refresh aborted, authentication required", "error", err)
	case errors.Is(err, ErrControllerUnreachable):
		c.logger.Warn("refresh aborted, controller unreachable", "error", err)
	case errors.Is(err, context.Canceled):
		// Shutdown in progress.
	default:
		c.logger.Error("refresh failed", "error", err)
	}
}

// Refresh runs one full cycle: lazy authentication, capabilities, then
// each subsystem fetcher in a fixed order. On success the new snapshot
// replaces the published one in a single swap; on an aborting failure
// the previously published snapshot stays visible unchanged.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.GetCycleTimeout())
	defer cancel()

	start := time.Now()

	if !c.client.IsAuthenticated() {
		err := c.client.Authenticate(ctx, c.cfg.Controller.Username, c.cfg.Controller.Password)
		if err != nil {
			return c.classify(err)
		}
	}

	caps, err := c.client.Capabilities(ctx)
	if err != nil {
		return c.classify(err)
	}
	if len(caps) > 0 {
		c.gates = resolveGates(caps, c.cfg.Poll.DisablePH)
	}
	gates := c.gates

	// Work on a clone of the published snapshot so partially-updated
	// state never becomes visible and prior slices survive fetcher
	// failures.
	working := c.published.Load().Clone()
	working.Capabilities = caps

	skipped := 0

	phases := []struct {
		name string
		run  func(context.Context, *state.Snapshot, Gates, *int) error

		// absorbAll marks fetchers that swallow every error kind,
		// not only parse failures.
		absorbAll bool
	}{
		{name: "info", run: c.fetchInfo},
		{name: "temperature", run: c.fetchTemperature},
		{name: "equipment", run: c.fetchEquipment, absorbAll: true},
		{name: "ph", run: c.fetchPH},
		{name: "pumps", run: c.fetchPumps, absorbAll: true},
		{name: "ato", run: c.fetchATOs},
		{name: "inlets", run: c.fetchInlets},
		{name: "lights", run: c.fetchLights},
		{name: "display", run: c.fetchDisplay},
		{name: "macros", run: c.fetchMacros},
		{name: "timers", run: c.fetchTimers},
	}

	for _, phase := range phases {
		err := phase.run(ctx, working, gates, &skipped)
		if err == nil {
			continue
		}
		if phase.absorbAll {
			c.logger.Warn("fetcher failed, keeping previous state",
				"phase", phase.name, "error", err)
			continue
		}
		if errors.Is(err, reefpi.ErrCannotConnect) || errors.Is(err, reefpi.ErrInvalidAuth) {
			return c.classify(err)
		}
		c.logger.Warn("fetcher failed, keeping previous state",
			"phase", phase.name, "error", err)
	}

	working.RefreshedAt = time.Now()
	c.registerTopics(working)
	c.published.Store(working)

	c.persistTelemetry(ctx, working, time.Since(start), skipped)
	c.sendEvent(Event{Type: EventSnapshot})
	return nil
}

// classify maps client sentinels onto cycle-level outcomes. An auth
// failure invalidates the session so the next cycle re-authenticates
// lazily with fresh credentials.
func (c *Coordinator) classify(err error) error {
	switch {
	case errors.Is(err, reefpi.ErrInvalidAuth):
		c.client.InvalidateSession()
		return fmt.Errorf("%w: %s", ErrAuthRequired, err)
	case errors.Is(err, reefpi.ErrCannotConnect):
		return fmt.Errorf("%w: %s", ErrControllerUnreachable, err)
	default:
		return err
	}
}

// registerTopics rebuilds the push-topic registrations from the device
// catalog. Registration is idempotent, so repeating it every cycle is
// safe; collisions accumulate until an explicit mapper reset.
func (c *Coordinator) registerTopics(snap *state.Snapshot) {
	prefix := c.cfg.MQTT.TopicPrefix

	for id, t := range snap.Temperatures {
		c.mapper.Register(prefix, push.Target{Kind: state.KindTemperature, ID: id, Name: t.Name})
	}
	for id, p := range snap.PHCatalog {
		c.mapper.Register(prefix, push.Target{Kind: state.KindPH, ID: id, Name: p.Name})
	}
	for id, e := range snap.Equipment {
		c.mapper.Register(prefix, push.Target{Kind: state.KindEquipment, ID: id, Name: e.Name})
	}
	for id, a := range snap.ATOs {
		c.mapper.Register(prefix, push.Target{Kind: state.KindATO, ID: id, Name: a.Name})
	}
	for id, i := range snap.Inlets {
		c.mapper.Register(prefix, push.Target{Kind: state.KindInlet, ID: id, Name: i.Name})
	}

	if !c.mapper.HasCollisions() {
		if c.collisionNotified {
			c.collisionNotified = false
			c.logger.Info("push topic collisions cleared")
			c.sendEvent(Event{Type: EventCollision})
			if c.notifier != nil {
				c.notifier.Dismiss(collisionNotificationID)
			}
		}
		return
	}
	if c.collisionNotified {
		return
	}
	c.collisionNotified = true
	topics := c.mapper.CollidedTopics()
	c.logger.Warn("push topics collide, push updates disabled for affected devices; polling continues",
		"topics", topics)
	c.sendEvent(Event{Type: EventCollision, Topics: topics})
	if c.notifier != nil {
		c.notifier.Notify(collisionNotificationID, "MQTT topic collision",
			collisionAdvisory(c.mapper.Collisions(), topics))
	}
}

// collisionNotificationID keys the collision advisory so a later
// dismissal replaces the same notification.
const collisionNotificationID = "push-topic-collisions"

// collisionAdvisory lists each quarantined topic with the devices that
// claimed it and states that polling continues.
func collisionAdvisory(collisions map[string][]push.Target, order []string) string {
	var b strings.Builder
	for _, topic := range order {
		b.WriteString(topic)
		b.WriteString(": ")
		for i, target := range collisions[topic] {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %q", target.Kind, target.Name)
		}
		b.WriteString(". ")
	}
	b.WriteString("Push updates are disabled for these devices; polling continues.")
	return b.String()
}

// persistTelemetry records the cycle's readings into the optional
// history and time-series sinks. Failures are logged, never fatal.
func (c *Coordinator) persistTelemetry(ctx context.Context, snap *state.Snapshot, cycle time.Duration, skipped int) {
	now := time.Now()

	for id, t := range snap.Temperatures {
		if !t.HasReading {
			continue
		}
		c.recordReading(ctx, state.KindTemperature, id, t.Name, t.Temperature, now)
	}
	for id, p := range snap.PH {
		if !p.HasValue {
			continue
		}
		c.recordReading(ctx, state.KindPH, id, p.Name, p.Value, now)
	}
	if c.influx != nil {
		for id, e := range snap.Equipment {
			c.influx.WriteEquipmentState(id, e.Name, e.On)
		}
		if snap.Info != nil {
			c.influx.WriteReading("controller", "cpu", snap.Info.Name, snap.Info.CPUTemperature)
		}
		c.influx.WriteCycleStats(cycle, snap.DeviceCount(), skipped)
	}

	c.pruneHistory(ctx, now)
}

func (c *Coordinator) recordReading(ctx context.Context, kind state.Kind, id, name string, value float64, at time.Time) {
	if c.history != nil {
		err := c.history.Record(ctx, state.HistoryEntry{
			Kind:       kind,
			DeviceID:   id,
			DeviceName: name,
			Value:      value,
			Source:     state.SourcePoll,
			ObservedAt: at,
		})
		if err != nil {
			c.logger.Warn("failed to record reading history", "error", err)
		}
	}
	if c.influx != nil {
		c.influx.WriteReading(string(kind), id, name, value)
	}
}

// pruneHistory trims the reading history at most once an hour.
func (c *Coordinator) pruneHistory(ctx context.Context, now time.Time) {
	if c.history == nil || now.Sub(c.lastPrune) < time.Hour {
		return
	}
	c.lastPrune = now

	deleted, err := c.history.Prune(ctx, c.cfg.GetHistoryRetention())
	if err != nil {
		c.logger.Warn("failed to prune reading history", "error", err)
		return
	}
	if deleted > 0 {
		c.logger.Debug("pruned reading history", "rows", deleted)
	}
}

// ApplyPush folds a push value into the published snapshot with
// type-specific semantics. It reports whether the value was applied;
// kinds without push semantics and devices absent from the snapshot
// are ignored.
func (c *Coordinator) ApplyPush(target push.Target, value float64, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := c.published.Load().Clone()

	switch target.Kind {
	case state.KindTemperature:
		entry, ok := clone.Temperatures[target.ID]
		if !ok {
			return false
		}
		entry.Temperature = value
		entry.HasReading = true
		clone.Temperatures[target.ID] = entry

	case state.KindPH:
		entry, ok := clone.PH[target.ID]
		if !ok {
			return false
		}
		entry.Value = round4(value)
		entry.HasValue = true
		clone.PH[target.ID] = entry

	case state.KindEquipment:
		entry, ok := clone.Equipment[target.ID]
		if !ok {
			return false
		}
		entry.On = int(value) != 0
		clone.Equipment[target.ID] = entry

	default:
		return false
	}

	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: target.Kind, ID: target.ID})

	if target.Kind != state.KindEquipment {
		name := target.Name
		c.recordPushReading(target.Kind, target.ID, name, value, at)
	}
	return true
}

func (c *Coordinator) recordPushReading(kind state.Kind, id, name string, value float64, at time.Time) {
	if c.history != nil {
		err := c.history.Record(context.Background(), state.HistoryEntry{
			Kind:       kind,
			DeviceID:   id,
			DeviceName: name,
			Value:      value,
			Source:     state.SourcePush,
			ObservedAt: at,
		})
		if err != nil {
			c.logger.Warn("failed to record push reading", "error", err)
		}
	}
	if c.influx != nil {
		c.influx.WriteReading(string(kind), id, name, value)
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

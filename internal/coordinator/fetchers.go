package coordinator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/reeflink/reeflink/internal/reefpi"
	"github.com/reeflink/reeflink/internal/state"
)

// Fetchers transform one controller payload into its snapshot slice.
// Shared rules: a false gate is a no-op that preserves the prior slice,
// and an empty catalog response likewise preserves it (transient read
// glitches must not flicker devices to unavailable). Only the pH
// fetcher clears state on an empty catalog, mirroring the controller's
// own behaviour when probes are deleted.

func (c *Coordinator) fetchInfo(ctx context.Context, snap *state.Snapshot, _ Gates, _ *int) error {
	info, err := c.client.Info(ctx)
	if err != nil {
		return err
	}
	if info.Name == "" && info.Model == "" && info.Version == "" {
		return nil
	}

	snap.Info = &state.ControllerInfo{
		Name:           info.Name,
		IP:             info.IP,
		Version:        info.Version,
		Model:          trimModel(info.Model),
		CPUTemperature: parseCPUTemperature(info.CPUTemperature),
		Uptime:         info.Uptime,
		CurrentTime:    info.CurrentTime,
	}
	return nil
}

// parseCPUTemperature extracts the numeric part of the controller's
// CPU temperature string, which arrives as "39.0'C\n".
func parseCPUTemperature(raw string) float64 {
	value, _, _ := strings.Cut(raw, "'")
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// trimModel strips the NUL padding the controller appends to the model
// string read from the device tree.
func trimModel(model string) string {
	return strings.TrimRight(model, "\x00")
}

func (c *Coordinator) fetchTemperature(ctx context.Context, snap *state.Snapshot, gates Gates, skipped *int) error {
	if !gates.HasTemperature {
		return nil
	}

	sensors, err := c.client.TemperatureSensors(ctx)
	if err != nil {
		return err
	}
	if len(sensors) == 0 {
		return nil
	}

	prior := snap.Temperatures
	next := make(map[string]state.TemperatureState, len(sensors))
	for _, sensor := range sensors {
		entry := state.TemperatureState{
			Name:       sensor.Name,
			Fahrenheit: sensor.Fahrenheit,
			Attributes: sensor.Extra,
		}

		if c.tracker.ShouldSkipPolling(state.KindTemperature, sensor.ID) {
			if previous, ok := prior[sensor.ID]; ok {
				entry.Temperature = previous.Temperature
				entry.HasReading = previous.HasReading
			}
			*skipped++
			next[sensor.ID] = entry
			continue
		}

		reading, err := c.client.Temperature(ctx, sensor.ID)
		if err != nil {
			return err
		}
		if reading.Temperature.Valid {
			entry.Temperature = reading.Temperature.Value
			entry.HasReading = true
			c.tracker.Record(state.KindTemperature, sensor.ID, state.SourcePoll, time.Now())
		}
		next[sensor.ID] = entry
	}

	snap.Temperatures = next
	return nil
}

func (c *Coordinator) fetchEquipment(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasEquipment {
		return nil
	}

	devices, err := c.client.Equipment(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	next := make(map[string]state.EquipmentState, len(devices))
	for _, device := range devices {
		next[device.ID] = state.EquipmentState{
			Name:       device.Name,
			On:         device.On,
			Attributes: device.Extra,
		}
		c.tracker.Record(state.KindEquipment, device.ID, state.SourcePoll, time.Now())
	}

	snap.Equipment = next
	return nil
}

func (c *Coordinator) fetchPH(ctx context.Context, snap *state.Snapshot, gates Gates, skipped *int) error {
	if !gates.HasPHCapability {
		return nil
	}

	probes, err := c.client.PHProbes(ctx)
	if err != nil {
		return err
	}
	if len(probes) == 0 {
		snap.PH = make(map[string]state.PHState)
		snap.PHCatalog = make(map[string]state.PHState)
		return nil
	}

	catalog := make(map[string]state.PHState, len(probes))
	for _, probe := range probes {
		catalog[probe.ID] = state.PHState{
			Name:       probe.Name,
			Attributes: probe.Extra,
		}
	}
	snap.PHCatalog = catalog

	// Readings are administratively disabled; the catalog stays
	// available so calibration can still locate probes.
	if !gates.HasPH {
		snap.PH = make(map[string]state.PHState)
		return nil
	}

	prior := snap.PH
	next := make(map[string]state.PHState, len(probes))
	for _, probe := range probes {
		entry := state.PHState{
			Name:       probe.Name,
			Attributes: probe.Extra,
		}

		if c.tracker.ShouldSkipPolling(state.KindPH, probe.ID) {
			if previous, ok := prior[probe.ID]; ok {
				entry.Value = previous.Value
				entry.HasValue = previous.HasValue
			}
			*skipped++
			next[probe.ID] = entry
			continue
		}

		value, ok, err := c.client.PHReading(ctx, probe.ID)
		if err != nil {
			return err
		}
		if ok {
			entry.Value = round4(value)
			entry.HasValue = true
			c.tracker.Record(state.KindPH, probe.ID, state.SourcePoll, time.Now())
		}
		next[probe.ID] = entry
	}

	snap.PH = next
	return nil
}

func (c *Coordinator) fetchPumps(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasPumps {
		return nil
	}

	pumps, err := c.client.Pumps(ctx)
	if err != nil {
		return err
	}
	if len(pumps) == 0 {
		return nil
	}

	// Multiple schedules share one physical pump; group them by
	// (jack, pin) and reduce usage to the newest timestamp seen across
	// the whole group, regardless of record order.
	next := make(map[string]state.PumpState)
	for _, pump := range pumps {
		key := state.GroupKey(pump.Jack, pump.Pin)
		group, ok := next[key]
		if !ok {
			group = state.PumpState{
				Name:    pump.Name,
				Jack:    pump.Jack,
				Pin:     pump.Pin,
				LastRun: state.SentinelEpoch,
			}
		}
		group.Schedules = append(group.Schedules, pump.ID)
		group.Pumps = append(group.Pumps, pump)

		usage, err := c.client.PumpUsage(ctx, pump.ID)
		if err != nil {
			return err
		}
		if record, ok := reefpi.LatestReading(usage); ok {
			if at, err := reefpi.ParseTimestamp(record.Time); err == nil && at.After(group.LastRun) {
				group.LastRun = at
				if record.Pump.Valid {
					group.Duration = record.Pump.Value
				}
			}
		}

		next[key] = group
	}

	snap.Pumps = next
	return nil
}

func (c *Coordinator) fetchATOs(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasATO {
		return nil
	}

	atos, err := c.client.ATOs(ctx)
	if err != nil {
		return err
	}
	if len(atos) == 0 {
		return nil
	}

	next := make(map[string]state.ATOState, len(atos))
	for _, ato := range atos {
		entry := state.ATOState{
			Name:           ato.Name,
			Enable:         ato.Enable,
			LastActivation: state.SentinelEpoch,
			Attributes:     ato.Extra,
		}

		usage, err := c.client.ATOUsage(ctx, ato.ID)
		if err != nil {
			return err
		}

		// Prefer the newest record that actually ran the pump; fall
		// back to the newest record of any kind. No records at all
		// leaves the sentinel epoch, rendering the unit unavailable.
		record, ok := reefpi.LatestReadingWhere(usage, func(r reefpi.Reading) bool {
			return r.Pump.Valid && r.Pump.Value != 0
		})
		if !ok {
			record, ok = reefpi.LatestReading(usage)
		}
		if ok {
			if at, err := reefpi.ParseTimestamp(record.Time); err == nil {
				entry.LastActivation = at
				if record.Pump.Valid {
					entry.PumpSeconds = record.Pump.Value
				}
			}
		}

		next[ato.ID] = entry
	}

	snap.ATOs = next
	return nil
}

func (c *Coordinator) fetchInlets(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasATO {
		return nil
	}

	inlets, err := c.client.Inlets(ctx)
	if err != nil {
		return err
	}
	if len(inlets) == 0 {
		return nil
	}

	next := make(map[string]state.InletState, len(inlets))
	for _, inlet := range inlets {
		value, err := c.client.InletReading(ctx, inlet.ID)
		if err != nil {
			return err
		}
		next[inlet.ID] = state.InletState{
			Name:       inlet.Name,
			Triggered:  value == 1,
			Attributes: inlet.Extra,
		}
	}

	snap.Inlets = next
	return nil
}

func (c *Coordinator) fetchLights(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasLights {
		return nil
	}

	lights, err := c.client.Lights(ctx)
	if err != nil {
		return err
	}
	if len(lights) == 0 {
		return nil
	}

	// Only channels flagged manual are operator-controllable; auto
	// profile channels are left to the controller.
	next := make(map[string]state.LightState)
	for _, light := range lights {
		for channelID, channel := range light.Channels {
			if !channel.Manual {
				continue
			}
			value := channel.Value.Value
			next[light.ID+"-"+channelID] = state.LightState{
				Name:      light.Name + "-" + channel.Name,
				LightID:   light.ID,
				ChannelID: channelID,
				Value:     value,
				On:        value > 0,
			}
		}
	}

	snap.Lights = next
	return nil
}

func (c *Coordinator) fetchDisplay(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasDisplay {
		return nil
	}

	display, err := c.client.Display(ctx)
	if err != nil {
		return err
	}

	snap.Display = &state.DisplayState{
		On:         display.On,
		Brightness: display.Brightness,
	}
	return nil
}

func (c *Coordinator) fetchMacros(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasMacro {
		return nil
	}

	macros, err := c.client.Macros(ctx)
	if err != nil {
		return err
	}
	if len(macros) == 0 {
		return nil
	}

	next := make(map[string]state.MacroState, len(macros))
	for _, macro := range macros {
		next[macro.ID] = state.MacroState{
			Name:       macro.Name,
			Attributes: macro.Extra,
		}
	}

	snap.Macros = next
	return nil
}

func (c *Coordinator) fetchTimers(ctx context.Context, snap *state.Snapshot, gates Gates, _ *int) error {
	if !gates.HasTimers {
		return nil
	}

	timers, err := c.client.Timers(ctx)
	if err != nil {
		return err
	}
	if len(timers) == 0 {
		return nil
	}

	next := make(map[string]state.TimerState, len(timers))
	for _, timer := range timers {
		next[timer.ID] = state.TimerState{
			Name:       timer.Name,
			Enable:     timer.Enable,
			Attributes: timer.Extra,
		}
	}

	snap.Timers = next
	return nil
}

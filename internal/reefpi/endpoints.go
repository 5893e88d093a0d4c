package reefpi

import (
	"context"
	"fmt"
)

// Capabilities fetches the controller's feature-flag map.
func (c *Client) Capabilities(ctx context.Context) (Capabilities, error) {
	caps := Capabilities{}
	if err := c.get(ctx, "capabilities", &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// Info fetches the controller identity payload.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	err := c.get(ctx, "info", &info)
	return info, err
}

// TemperatureSensors lists the configured temperature sensors.
func (c *Client) TemperatureSensors(ctx context.Context) ([]TemperatureSensor, error) {
	var sensors []TemperatureSensor
	err := c.get(ctx, "tcs", &sensors)
	return sensors, err
}

// Temperature fetches the current reading for one temperature sensor.
func (c *Client) Temperature(ctx context.Context, id string) (TemperatureReading, error) {
	var reading TemperatureReading
	err := c.get(ctx, fmt.Sprintf("tcs/%s/current_reading", id), &reading)
	return reading, err
}

// Equipment lists the configured power outlets.
func (c *Client) Equipment(ctx context.Context) ([]Equipment, error) {
	var equipment []Equipment
	err := c.get(ctx, "equipment", &equipment)
	return equipment, err
}

// EquipmentControl switches a single outlet on or off.
func (c *Client) EquipmentControl(ctx context.Context, id string, on bool) error {
	ok, body, err := c.post(ctx, fmt.Sprintf("equipment/%s/control", id), map[string]bool{"on": on})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected equipment control for %s: %s", id, body)
	}
	return nil
}

// PHProbes lists the configured pH probes.
func (c *Client) PHProbes(ctx context.Context) ([]PHProbe, error) {
	var probes []PHProbe
	err := c.get(ctx, "phprobes", &probes)
	return probes, err
}

// PHReadings fetches the two-bucket reading list for one probe.
func (c *Client) PHReadings(ctx context.Context, id string) (Readings, error) {
	var readings Readings
	err := c.get(ctx, fmt.Sprintf("phprobes/%s/readings", id), &readings)
	return readings, err
}

// PHReading returns the most recent reading for one probe, or ok=false
// when the probe has no samples in either bucket.
func (c *Client) PHReading(ctx context.Context, id string) (float64, bool, error) {
	readings, err := c.PHReadings(ctx, id)
	if err != nil {
		return 0, false, err
	}
	latest, found := LatestReading(readings)
	if !found || !latest.Value.Valid {
		return 0, false, nil
	}
	return latest.Value.Value, true, nil
}

// CalibratePHProbe submits one calibration point for a probe.
//
// Returns ok=false with the controller's rejection message when the
// submission is refused; err covers connection and auth failures only.
func (c *Client) CalibratePHProbe(ctx context.Context, id string, point CalibrationPoint) (ok bool, rejection string, err error) {
	return c.post(ctx, fmt.Sprintf("phprobes/%s/calibratepoint", id), point)
}

// Pumps lists the configured dosing pump schedules.
func (c *Client) Pumps(ctx context.Context) ([]Pump, error) {
	var pumps []Pump
	err := c.get(ctx, "doser/pumps", &pumps)
	return pumps, err
}

// PumpUsage fetches the usage record list for one pump schedule.
func (c *Client) PumpUsage(ctx context.Context, id string) (Readings, error) {
	var usage Readings
	err := c.get(ctx, fmt.Sprintf("doser/pumps/%s/usage", id), &usage)
	return usage, err
}

// ATOs lists the configured auto-top-off units.
func (c *Client) ATOs(ctx context.Context) ([]ATO, error) {
	var atos []ATO
	err := c.get(ctx, "atos", &atos)
	return atos, err
}

// ATOUsage fetches the usage record list for one ATO unit.
func (c *Client) ATOUsage(ctx context.Context, id string) (Readings, error) {
	var usage Readings
	err := c.get(ctx, fmt.Sprintf("atos/%s/usage", id), &usage)
	return usage, err
}

// ATOUpdate enables or disables an ATO unit. The controller expects the
// full object back, so the current state is fetched and re-posted with
// the enable flag changed.
func (c *Client) ATOUpdate(ctx context.Context, id string, enable bool) error {
	var payload map[string]any
	if err := c.get(ctx, fmt.Sprintf("atos/%s", id), &payload); err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("ato %s not found on controller", id)
	}
	payload["id"] = id
	payload["enable"] = enable

	ok, body, err := c.post(ctx, fmt.Sprintf("atos/%s", id), payload)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected ato update for %s: %s", id, body)
	}
	return nil
}

// Inlets lists the configured water-level inlets.
func (c *Client) Inlets(ctx context.Context) ([]Inlet, error) {
	var inlets []Inlet
	err := c.get(ctx, "inlets", &inlets)
	return inlets, err
}

// InletReading reads the current value of one inlet (1 = triggered).
func (c *Client) InletReading(ctx context.Context, id string) (int, error) {
	var value FlexFloat
	if err := c.get(ctx, fmt.Sprintf("inlets/%s/read", id), &value); err != nil {
		return 0, err
	}
	return int(value.Value), nil
}

// Lights lists the configured light fixtures with their channels.
func (c *Client) Lights(ctx context.Context) ([]Light, error) {
	var lights []Light
	err := c.get(ctx, "lights", &lights)
	return lights, err
}

// LightUpdate sets one channel of a fixture to a 0-100 value. The
// controller expects the full fixture object back.
func (c *Client) LightUpdate(ctx context.Context, lightID, channelID string, value float64) error {
	var payload map[string]any
	if err := c.get(ctx, fmt.Sprintf("lights/%s", lightID), &payload); err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("light %s not found on controller", lightID)
	}

	channels, _ := payload["channels"].(map[string]any)
	channel, _ := channels[channelID].(map[string]any)
	if channel == nil {
		return fmt.Errorf("light %s has no channel %s", lightID, channelID)
	}
	channel["value"] = value

	ok, body, err := c.post(ctx, fmt.Sprintf("lights/%s", lightID), payload)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected light update for %s/%s: %s", lightID, channelID, body)
	}
	return nil
}

// Timers lists the configured timers.
func (c *Client) Timers(ctx context.Context) ([]Timer, error) {
	var timers []Timer
	err := c.get(ctx, "timers", &timers)
	return timers, err
}

// TimerControl enables or disables a timer. The controller expects the
// full object back with the enable flag changed.
func (c *Client) TimerControl(ctx context.Context, id string, enable bool) error {
	var payload map[string]any
	if err := c.get(ctx, fmt.Sprintf("timers/%s", id), &payload); err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("timer %s not found on controller", id)
	}
	payload["enable"] = enable

	ok, body, err := c.post(ctx, fmt.Sprintf("timers/%s", id), payload)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected timer control for %s: %s", id, body)
	}
	return nil
}

// Macros lists the configured macros.
func (c *Client) Macros(ctx context.Context) ([]Macro, error) {
	var macros []Macro
	err := c.get(ctx, "macro", &macros)
	return macros, err
}

// RunMacro triggers a macro run.
func (c *Client) RunMacro(ctx context.Context, id string) error {
	ok, body, err := c.post(ctx, fmt.Sprintf("macro/m/%s/run", id), nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected macro run for %s: %s", id, body)
	}
	return nil
}

// Display fetches the display state.
func (c *Client) Display(ctx context.Context) (DisplayState, error) {
	var state DisplayState
	err := c.get(ctx, "display", &state)
	return state, err
}

// DisplaySwitch turns the display on or off.
func (c *Client) DisplaySwitch(ctx context.Context, on bool) error {
	path := "display/off"
	if on {
		path = "display/on"
	}
	ok, body, err := c.post(ctx, path, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected display switch: %s", body)
	}
	return nil
}

// DisplayBrightness sets the display brightness.
func (c *Client) DisplayBrightness(ctx context.Context, value int) error {
	ok, body, err := c.post(ctx, "display", map[string]int{"brightness": value})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected display brightness: %s", body)
	}
	return nil
}

// Reboot restarts the controller host.
func (c *Client) Reboot(ctx context.Context) error {
	ok, body, err := c.post(ctx, "admin/reboot", nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected reboot: %s", body)
	}
	return nil
}

// PowerOff shuts down the controller host.
func (c *Client) PowerOff(ctx context.Context) error {
	ok, body, err := c.post(ctx, "admin/poweroff", nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("controller rejected power off: %s", body)
	}
	return nil
}

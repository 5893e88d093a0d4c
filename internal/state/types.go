package state

import (
	"strconv"
	"time"

	"github.com/reeflink/reeflink/internal/reefpi"
)

// Kind identifies a subsystem / device class.
type Kind string

// Device kinds known to the snapshot and push layer.
const (
	KindTemperature Kind = "temperature"
	KindPH          Kind = "ph"
	KindEquipment   Kind = "equipment"
	KindPump        Kind = "pump"
	KindATO         Kind = "ato"
	KindInlet       Kind = "inlet"
	KindLight       Kind = "light"
	KindTimer       Kind = "timer"
	KindMacro       Kind = "macro"
	KindDisplay     Kind = "display"
)

// Source identifies where a device's most recent value came from.
type Source string

const (
	// SourcePoll marks a value obtained from a refresh cycle.
	SourcePoll Source = "poll"

	// SourcePush marks a value obtained from an MQTT push update.
	SourcePush Source = "push"
)

// TemperatureState is the snapshot entry for one temperature sensor.
type TemperatureState struct {
	Name        string           `json:"name"`
	Fahrenheit  bool             `json:"fahrenheit"`
	Temperature float64          `json:"temperature"`
	HasReading  bool             `json:"has_reading"`
	Attributes  reefpi.RawObject `json:"attributes,omitempty"`
}

// PHState is the snapshot entry for one pH probe. Value is rounded to
// 4 decimal places; HasValue is false when the probe reported no sample.
type PHState struct {
	Name       string           `json:"name"`
	Value      float64          `json:"value"`
	HasValue   bool             `json:"has_value"`
	Attributes reefpi.RawObject `json:"attributes,omitempty"`
}

// EquipmentState is the snapshot entry for one power outlet.
type EquipmentState struct {
	Name       string           `json:"name"`
	On         bool             `json:"on"`
	Attributes reefpi.RawObject `json:"attributes,omitempty"`
}

// PumpState is the snapshot entry for one physical pump, keyed by the
// composite (jack, pin) group. LastRun is the maximum usage timestamp
// across every schedule in the group; Duration tracks the runtime from
// the record that set LastRun.
type PumpState struct {
	Name      string        `json:"name"`
	Jack      string        `json:"jack"`
	Pin       int           `json:"pin"`
	LastRun   time.Time     `json:"last_run"`
	Duration  float64       `json:"duration"`
	Schedules []string      `json:"schedules"`
	Pumps     []reefpi.Pump `json:"pumps,omitempty"`
}

// GroupKey returns the composite key for a pump's (jack, pin) pair.
func GroupKey(jack string, pin int) string {
	return jack + "_" + strconv.Itoa(pin)
}

// ATOState is the snapshot entry for one auto-top-off unit.
// LastActivation holds the sentinel epoch when no usage records exist.
type ATOState struct {
	Name           string           `json:"name"`
	Enable         bool             `json:"enable"`
	LastActivation time.Time        `json:"last_activation"`
	PumpSeconds    float64          `json:"pump_seconds"`
	Attributes     reefpi.RawObject `json:"attributes,omitempty"`
}

// Unavailable reports whether the ATO has never recorded a usage entry.
func (a ATOState) Unavailable() bool {
	return a.LastActivation.Equal(SentinelEpoch)
}

// InletState is the snapshot entry for one water-level inlet.
type InletState struct {
	Name       string           `json:"name"`
	Triggered  bool             `json:"triggered"`
	Attributes reefpi.RawObject `json:"attributes,omitempty"`
}

// LightState is the snapshot entry for one manual light channel, keyed
// by "{lightID}-{channelID}". Value is the controller's 0-100 scale.
type LightState struct {
	Name      string  `json:"name"`
	LightID   string  `json:"light_id"`
	ChannelID string  `json:"channel_id"`
	Value     float64 `json:"value"`
	On        bool    `json:"on"`
}

// Brightness255 converts the stored 0-100 value to the presentation
// 0-255 scale using rounding, not truncation.
func (l LightState) Brightness255() int {
	return int(l.Value*255.0/100.0 + 0.5)
}

// TimerState is the snapshot entry for one timer.
type TimerState struct {
	Name       string           `json:"name"`
	Enable     bool             `json:"enable"`
	Attributes reefpi.RawObject `json:"attributes,omitempty"`
}

// MacroState is the snapshot entry for one macro.
type MacroState struct {
	Name       string           `json:"name"`
	Attributes reefpi.RawObject `json:"attributes,omitempty"`
}

// ControllerInfo is the normalized controller identity: CPU temperature
// parsed from the "39.0'C\n" form and model stripped of NUL padding.
type ControllerInfo struct {
	Name           string  `json:"name"`
	IP             string  `json:"ip"`
	Version        string  `json:"version"`
	Model          string  `json:"model"`
	CPUTemperature float64 `json:"cpu_temperature"`
	Uptime         string  `json:"uptime"`
	CurrentTime    string  `json:"current_time"`
}

// SentinelEpoch marks "no activation observed" for ATO units.
var SentinelEpoch = time.Unix(0, 0).UTC()

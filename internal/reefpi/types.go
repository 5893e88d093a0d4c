package reefpi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Capabilities is the feature-flag map advertised by the controller.
// Missing keys are treated as false.
type Capabilities map[string]bool

// Has returns the capability flag, defaulting to false for absent keys.
func (c Capabilities) Has(name string) bool {
	return c[name]
}

// Info is the controller identity payload from GET /api/info.
type Info struct {
	Name           string    `json:"name"`
	IP             string    `json:"ip"`
	CurrentTime    string    `json:"current_time"`
	Uptime         string    `json:"uptime"`
	CPUTemperature string    `json:"cpu_temperature"`
	Version        string    `json:"version"`
	Model          string    `json:"model"`
	Extra          RawObject `json:"-"`
}

// TemperatureSensor is one entry from GET /api/tcs.
type TemperatureSensor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Fahrenheit bool      `json:"fahrenheit"`
	Enable     bool      `json:"enable"`
	Extra      RawObject `json:"-"`
}

// TemperatureReading is the payload of GET /api/tcs/{id}/current_reading.
// The controller has returned the value both as a JSON number and as a
// quoted string across firmware versions.
type TemperatureReading struct {
	Temperature FlexFloat `json:"temperature"`
}

// Equipment is one entry from GET /api/equipment.
type Equipment struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Outlet string    `json:"outlet"`
	On     bool      `json:"on"`
	Extra  RawObject `json:"-"`
}

// PHProbe is one entry from GET /api/phprobes.
type PHProbe struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Enable bool      `json:"enable"`
	Period int       `json:"period"`
	Extra  RawObject `json:"-"`
}

// Readings is the two-bucket reading list returned by the usage and
// readings endpoints. Both buckets are ordered oldest to most recent by
// construction, but consumers resort defensively by parsed timestamp.
type Readings struct {
	Current    []Reading `json:"current"`
	Historical []Reading `json:"historical"`
}

// Reading is a single timestamped sample. The value field differs per
// endpoint: pH readings carry "value", usage records carry "pump"
// (seconds of pump runtime).
type Reading struct {
	Value FlexFloat `json:"value"`
	Pump  FlexFloat `json:"pump"`
	Time  string    `json:"time"`
}

// Pump is one entry from GET /api/doser/pumps. Multiple logical pump
// schedules can share one physical pump, identified by (jack, pin).
type Pump struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Jack  string    `json:"jack"`
	Pin   int       `json:"pin"`
	Extra RawObject `json:"-"`
}

// ATO is one entry from GET /api/atos.
type ATO struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Inlet  string    `json:"inlet"`
	Pump   string    `json:"pump"`
	Period int       `json:"period"`
	Enable bool      `json:"enable"`
	Extra  RawObject `json:"-"`
}

// Inlet is one entry from GET /api/inlets.
type Inlet struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Pin   int       `json:"pin"`
	Extra RawObject `json:"-"`
}

// Light is one entry from GET /api/lights.
type Light struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Channels map[string]LightChannel `json:"channels"`
}

// LightChannel is a single controllable channel of a light fixture.
// Value is a 0-100 percentage. Only channels flagged manual are
// operator-controllable.
type LightChannel struct {
	Name   string    `json:"name"`
	Manual bool      `json:"manual"`
	Value  FlexFloat `json:"value"`
}

// Timer is one entry from GET /api/timers.
type Timer struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Enable bool      `json:"enable"`
	Extra  RawObject `json:"-"`
}

// Macro is one entry from GET /api/macro.
type Macro struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Extra RawObject `json:"-"`
}

// DisplayState is the payload of GET /api/display.
type DisplayState struct {
	On         bool `json:"on"`
	Brightness int  `json:"brightness"`
}

// CalibrationPoint is the payload for POST /api/phprobes/{id}/calibratepoint.
type CalibrationPoint struct {
	Expected float64 `json:"expected"`
	Observed float64 `json:"observed"`
	Type     string  `json:"type"`
}

// RawObject preserves fields not modeled by the typed structs.
type RawObject map[string]json.RawMessage

// FlexFloat decodes a JSON number that the controller may serialize as
// a bare number, a quoted string, or null. NaN strings decode to the
// zero value with Valid=false.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.Value = 0
	f.Valid = false

	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Disabled probes report "NaN"; treat as absent rather than failing.
		return nil
	}
	if v != v { // NaN
		return nil
	}

	f.Value = v
	f.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

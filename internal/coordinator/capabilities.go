package coordinator

import "github.com/reeflink/reeflink/internal/reefpi"

// Gates holds the per-subsystem booleans derived from the capability
// map. They are re-derived at the start of every cycle; a controller
// upgrade can change the advertised set at any time.
type Gates struct {
	HasTemperature bool `json:"has_temperature"`
	HasEquipment   bool `json:"has_equipment"`

	// HasPHCapability is the raw controller flag; HasPH additionally
	// honours the disable_ph option. The probe catalog follows the raw
	// flag so calibration stays possible while readings are disabled.
	HasPHCapability bool `json:"has_ph_capability"`
	HasPH           bool `json:"has_ph"`

	HasPumps   bool `json:"has_pumps"`
	HasATO     bool `json:"has_ato"`
	HasTimers  bool `json:"has_timers"`
	HasLights  bool `json:"has_lights"`
	HasMacro   bool `json:"has_macro"`
	HasDisplay bool `json:"has_display"`
}

// resolveGates derives the subsystem gates from a capability map.
// Absent keys gate to false, same as explicit false.
func resolveGates(caps reefpi.Capabilities, disablePH bool) Gates {
	phCapable := caps.Has("ph")
	return Gates{
		HasTemperature:  caps.Has("temperature"),
		HasEquipment:    caps.Has("equipment"),
		HasPHCapability: phCapable,
		HasPH:           phCapable && !disablePH,
		HasPumps:        caps.Has("doser"),
		HasATO:          caps.Has("ato"),
		HasTimers:       caps.Has("timers"),
		HasLights:       caps.Has("lighting"),
		HasMacro:        caps.Has("macro"),
		HasDisplay:      caps.Has("display"),
	}
}

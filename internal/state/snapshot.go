package state

import (
	"maps"
	"time"

	"github.com/reeflink/reeflink/internal/reefpi"
)

// Snapshot is the merged view of all subsystem state, produced by a
// refresh cycle and amended by push updates.
//
// Snapshots are published through an atomic pointer swap and treated as
// immutable by readers. Mutation happens only on a private working copy
// (see Clone) under the coordinator's lock; a push update clones the
// published snapshot, applies its single-field change, and republishes.
type Snapshot struct {
	Capabilities reefpi.Capabilities `json:"capabilities"`
	Info         *ControllerInfo     `json:"info,omitempty"`

	Temperatures map[string]TemperatureState `json:"temperatures"`
	PH           map[string]PHState          `json:"ph"`
	PHCatalog    map[string]PHState          `json:"ph_catalog"`
	Equipment    map[string]EquipmentState   `json:"equipment"`
	Pumps        map[string]PumpState        `json:"pumps"`
	ATOs         map[string]ATOState         `json:"atos"`
	Inlets       map[string]InletState       `json:"inlets"`
	Lights       map[string]LightState       `json:"lights"`
	Timers       map[string]TimerState       `json:"timers"`
	Macros       map[string]MacroState       `json:"macros"`
	Display      *DisplayState               `json:"display,omitempty"`

	// RefreshedAt is when the owning refresh cycle completed. Push
	// applies preserve it; only full cycles advance it.
	RefreshedAt time.Time `json:"refreshed_at"`
}

// DisplayState is the snapshot entry for the controller display.
type DisplayState struct {
	On         bool `json:"on"`
	Brightness int  `json:"brightness"`
}

// NewSnapshot returns an empty snapshot with all tables allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Capabilities: reefpi.Capabilities{},
		Temperatures: make(map[string]TemperatureState),
		PH:           make(map[string]PHState),
		PHCatalog:    make(map[string]PHState),
		Equipment:    make(map[string]EquipmentState),
		Pumps:        make(map[string]PumpState),
		ATOs:         make(map[string]ATOState),
		Inlets:       make(map[string]InletState),
		Lights:       make(map[string]LightState),
		Timers:       make(map[string]TimerState),
		Macros:       make(map[string]MacroState),
	}
}

// Clone returns a copy safe to mutate without affecting the original.
// Map values are value types, so copying the maps is sufficient; the
// shared RawObject attribute bags are never mutated after capture.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return NewSnapshot()
	}

	clone := &Snapshot{
		Capabilities: maps.Clone(s.Capabilities),
		Temperatures: maps.Clone(s.Temperatures),
		PH:           maps.Clone(s.PH),
		PHCatalog:    maps.Clone(s.PHCatalog),
		Equipment:    maps.Clone(s.Equipment),
		Pumps:        maps.Clone(s.Pumps),
		ATOs:         maps.Clone(s.ATOs),
		Inlets:       maps.Clone(s.Inlets),
		Lights:       maps.Clone(s.Lights),
		Timers:       maps.Clone(s.Timers),
		Macros:       maps.Clone(s.Macros),
		RefreshedAt:  s.RefreshedAt,
	}

	if s.Info != nil {
		info := *s.Info
		clone.Info = &info
	}
	if s.Display != nil {
		display := *s.Display
		clone.Display = &display
	}

	return clone
}

// DeviceCount returns the total number of devices across all tables.
func (s *Snapshot) DeviceCount() int {
	n := len(s.Temperatures) + len(s.PH) + len(s.Equipment) +
		len(s.Pumps) + len(s.ATOs) + len(s.Inlets) +
		len(s.Lights) + len(s.Timers) + len(s.Macros)
	if s.Display != nil {
		n++
	}
	return n
}

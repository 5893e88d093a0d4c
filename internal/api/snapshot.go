package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reeflink/reeflink/internal/state"
)

// handleSnapshot returns the full published snapshot.
//
// Reads serve the coordinator's immutable published copy, so a slow
// client never delays a refresh cycle.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

// handleController returns the normalized controller identity.
func (s *Server) handleController(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	if snap.Info == nil {
		writeNotFound(w, "controller info not yet available")
		return
	}
	writeJSON(w, http.StatusOK, snap.Info)
}

// handleCapabilities returns the resolved capability gates alongside the
// raw capability flags reported by the controller.
func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"reported": snap.Capabilities,
		"resolved": s.coord.Gates(),
	})
}

// handleRefresh runs a refresh cycle immediately instead of waiting for
// the next poll tick.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Refresh(r.Context()); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed_at": snap.RefreshedAt,
		"devices":      snap.DeviceCount(),
	})
}

func (s *Server) handleTemperatures(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"temperatures": snap.Temperatures, "count": len(snap.Temperatures)})
}

// handlePH returns active probes plus the full catalog; catalog entries
// remain visible for calibration even when pH mirroring is disabled.
func (s *Server) handlePH(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"probes":  snap.PH,
		"catalog": snap.PHCatalog,
		"count":   len(snap.PH),
	})
}

func (s *Server) handleEquipment(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"equipment": snap.Equipment, "count": len(snap.Equipment)})
}

func (s *Server) handlePumps(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"pumps": snap.Pumps, "count": len(snap.Pumps)})
}

func (s *Server) handleATOs(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"atos": snap.ATOs, "count": len(snap.ATOs)})
}

func (s *Server) handleInlets(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"inlets": snap.Inlets, "count": len(snap.Inlets)})
}

func (s *Server) handleLights(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"lights": snap.Lights, "count": len(snap.Lights)})
}

func (s *Server) handleTimers(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"timers": snap.Timers, "count": len(snap.Timers)})
}

func (s *Server) handleMacros(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"macros": snap.Macros, "count": len(snap.Macros)})
}

func (s *Server) handleDisplay(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	if snap.Display == nil {
		writeNotFound(w, "display state not available")
		return
	}
	writeJSON(w, http.StatusOK, snap.Display)
}

// handleDevice resolves a single device from the published snapshot by
// kind and ID.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	kind := state.Kind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	snap := s.coord.Snapshot()
	var (
		device any
		ok     bool
	)
	switch kind {
	case state.KindTemperature:
		device, ok = snap.Temperatures[id]
	case state.KindPH:
		device, ok = snap.PH[id]
		if !ok {
			device, ok = snap.PHCatalog[id]
		}
	case state.KindEquipment:
		device, ok = snap.Equipment[id]
	case state.KindPump:
		device, ok = snap.Pumps[id]
	case state.KindATO:
		device, ok = snap.ATOs[id]
	case state.KindInlet:
		device, ok = snap.Inlets[id]
	case state.KindLight:
		device, ok = snap.Lights[id]
	case state.KindTimer:
		device, ok = snap.Timers[id]
	case state.KindMacro:
		device, ok = snap.Macros[id]
	default:
		writeBadRequest(w, "unknown device kind")
		return
	}
	if !ok {
		writeNotFound(w, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   kind,
		"id":     id,
		"device": device,
	})
}

// handleFreshness reports where a device's most recent value came from.
func (s *Server) handleFreshness(w http.ResponseWriter, r *http.Request) {
	kind := state.Kind(chi.URLParam(r, "kind"))
	deviceID := chi.URLParam(r, "deviceID")

	if s.tracker == nil {
		writeNotFound(w, "freshness tracking not enabled")
		return
	}
	source, at, ok := s.tracker.LastUpdate(kind, deviceID)
	if !ok {
		writeNotFound(w, "no freshness record for device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   kind,
		"id":     deviceID,
		"source": source,
		"at":     at,
	})
}

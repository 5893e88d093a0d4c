package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// onRequest is the body for binary on/off style actions.
type onRequest struct {
	On bool `json:"on"`
}

// enableRequest is the body for enable/disable style actions.
type enableRequest struct {
	Enable bool `json:"enable"`
}

// valueRequest is the body for dimming and brightness actions.
type valueRequest struct {
	Value float64 `json:"value"`
}

// handleEquipmentControl switches a power outlet on or off.
func (s *Server) handleEquipmentControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req onRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.coord.SetEquipment(r.Context(), id, req.On); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "on": req.On})
}

// handleTimerControl enables or disables a timer.
func (s *Server) handleTimerControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req enableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.coord.SetTimer(r.Context(), id, req.Enable); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enable": req.Enable})
}

// handleLightControl sets a manual light channel's value (0-100).
func (s *Server) handleLightControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value < 0 || req.Value > 100 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "value must be between 0 and 100")
		return
	}

	if err := s.coord.SetLight(r.Context(), id, req.Value); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "value": req.Value})
}

// handleATOControl enables or disables an auto-top-off unit.
func (s *Server) handleATOControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req enableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.coord.SetATO(r.Context(), id, req.Enable); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enable": req.Enable})
}

// handleMacroRun triggers a macro. The controller runs it asynchronously;
// a 202 only means the trigger was accepted.
func (s *Server) handleMacroRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.coord.RunMacro(r.Context(), id); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "triggered": true})
}

// handleDisplayControl switches the controller display on or off.
func (s *Server) handleDisplayControl(w http.ResponseWriter, r *http.Request) {
	var req onRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.coord.SetDisplay(r.Context(), req.On); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"on": req.On})
}

// handleDisplayBrightness sets the display brightness (0-100).
func (s *Server) handleDisplayBrightness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.coord.SetDisplayBrightness(r.Context(), req.Value); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": req.Value})
}

// handleReboot asks the controller to reboot.
func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Reboot(r.Context()); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"rebooting": true})
}

// handlePowerOff asks the controller to power off.
func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.PowerOff(r.Context()); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"powering_off": true})
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reeflink/reeflink/internal/calibration"
)

// calibrationStartRequest is the body for starting a calibration session.
type calibrationStartRequest struct {
	Mode string `json:"mode"`
}

// calibrationSessionResponse is the JSON shape for a calibration session.
type calibrationSessionResponse struct {
	ID           string           `json:"id"`
	ProbeID      string           `json:"probe_id"`
	ProbeName    string           `json:"probe_name"`
	Mode         calibration.Mode `json:"mode"`
	Step         calibration.Step `json:"step"`
	Message      string           `json:"message"`
	StartedAt    time.Time        `json:"started_at"`
	LastObserved *float64         `json:"last_observed,omitempty"`
}

func sessionResponse(session *calibration.Session) calibrationSessionResponse {
	resp := calibrationSessionResponse{
		ID:        session.ID,
		ProbeID:   session.ProbeID,
		ProbeName: session.ProbeName,
		Mode:      session.Mode,
		Step:      session.Step(),
		Message:   session.Message(),
		StartedAt: session.StartedAt,
	}
	if observed, ok := session.LastObserved(); ok {
		resp.LastObserved = &observed
	}
	return resp
}

// handleCalibrationStart begins a two-point calibration for a probe.
//
// The probe must exist in the catalog, which stays populated even when
// pH mirroring is disabled. The session runs in the background against
// the server's base context so it survives this request; progress is
// available via GET on the same path and via notification broadcasts.
func (s *Server) handleCalibrationStart(w http.ResponseWriter, r *http.Request) {
	probeID := chi.URLParam(r, "probeID")

	if s.calibration == nil {
		writeNotFound(w, "calibration not enabled")
		return
	}

	var req calibrationStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	probe, ok := s.coord.Snapshot().PHCatalog[probeID]
	if !ok {
		writeNotFound(w, "unknown pH probe")
		return
	}

	session, err := s.calibration.Start(s.baseCtx, probeID, probe.Name, calibration.Mode(req.Mode))
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, sessionResponse(session))
}

// handleCalibrationStatus returns the latest session for a probe,
// running or terminal.
func (s *Server) handleCalibrationStatus(w http.ResponseWriter, r *http.Request) {
	probeID := chi.URLParam(r, "probeID")

	if s.calibration == nil {
		writeNotFound(w, "calibration not enabled")
		return
	}

	session, ok := s.calibration.Session(probeID)
	if !ok {
		writeNotFound(w, "no calibration session for probe")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reeflink/reeflink/internal/calibration"
	"github.com/reeflink/reeflink/internal/coordinator"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnreachable = "controller_unreachable"
	ErrCodeAuth        = "controller_auth"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCoordinatorError maps coordinator and calibration sentinel errors
// to response codes. Controller connectivity and credential failures are
// upstream problems, so they map to 502 rather than 500.
func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coordinator.ErrUnknownDevice):
		writeNotFound(w, err.Error())
	case errors.Is(err, coordinator.ErrControllerUnreachable):
		writeError(w, http.StatusBadGateway, ErrCodeUnreachable, err.Error())
	case errors.Is(err, coordinator.ErrAuthRequired):
		writeError(w, http.StatusBadGateway, ErrCodeAuth, err.Error())
	case errors.Is(err, calibration.ErrSessionInFlight):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, calibration.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

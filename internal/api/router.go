package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check and metrics
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Mirrored controller state
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/controller", s.handleController)
		r.Get("/capabilities", s.handleCapabilities)
		r.Post("/refresh", s.handleRefresh)

		// Per-subsystem listings
		r.Get("/temperatures", s.handleTemperatures)
		r.Get("/ph", s.handlePH)
		r.Get("/equipment", s.handleEquipment)
		r.Get("/pumps", s.handlePumps)
		r.Get("/atos", s.handleATOs)
		r.Get("/inlets", s.handleInlets)
		r.Get("/lights", s.handleLights)
		r.Get("/timers", s.handleTimers)
		r.Get("/macros", s.handleMacros)
		r.Get("/display", s.handleDisplay)

		// Single-device lookup across subsystems
		r.Get("/devices/{kind}/{id}", s.handleDevice)

		// Control actions
		r.Post("/equipment/{id}/control", s.handleEquipmentControl)
		r.Post("/timers/{id}/control", s.handleTimerControl)
		r.Post("/lights/{id}/control", s.handleLightControl)
		r.Post("/atos/{id}/control", s.handleATOControl)
		r.Post("/macros/{id}/run", s.handleMacroRun)
		r.Post("/display/control", s.handleDisplayControl)
		r.Post("/display/brightness", s.handleDisplayBrightness)
		r.Post("/admin/reboot", s.handleReboot)
		r.Post("/admin/poweroff", s.handlePowerOff)

		// Push topic collisions
		r.Get("/collisions", s.handleCollisions)
		r.Post("/collisions/reset", s.handleCollisionsReset)

		// pH probe calibration
		r.Route("/calibration/{probeID}", func(r chi.Router) {
			r.Post("/", s.handleCalibrationStart)
			r.Get("/", s.handleCalibrationStatus)
		})

		// Reading history and freshness
		r.Get("/history/{kind}/{deviceID}", s.handleHistory)
		r.Get("/freshness/{kind}/{deviceID}", s.handleFreshness)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

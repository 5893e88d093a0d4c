package api

import "net/http"

// handleCollisions returns the quarantined push topics and every party
// that claimed each of them.
func (s *Server) handleCollisions(w http.ResponseWriter, _ *http.Request) {
	if s.mapper == nil {
		writeJSON(w, http.StatusOK, map[string]any{"collisions": map[string]any{}, "count": 0})
		return
	}
	collisions := s.mapper.Collisions()
	writeJSON(w, http.StatusOK, map[string]any{
		"collisions": collisions,
		"topics":     s.mapper.CollidedTopics(),
		"count":      len(collisions),
	})
}

// handleCollisionsReset clears the collision set. Quarantine never lifts
// on its own; this is the operator acknowledging the naming conflict has
// been fixed on the controller. The next refresh cycle re-registers all
// topics and re-detects anything still conflicting.
func (s *Server) handleCollisionsReset(w http.ResponseWriter, r *http.Request) {
	if s.mapper == nil {
		writeJSON(w, http.StatusOK, map[string]any{"reset": false})
		return
	}
	s.mapper.Reset()
	s.logger.Info("push topic collisions reset by operator",
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

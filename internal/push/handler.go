package push

import (
	"strconv"
	"strings"
	"time"

	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/state"
)

// Applier receives resolved push updates. The coordinator implements
// this to amend the published snapshot. It reports whether the value
// was actually applied; kinds without push semantics, or devices not
// present in the snapshot, return false.
type Applier interface {
	ApplyPush(target Target, value float64, at time.Time) bool
}

// Handler turns raw MQTT messages from the controller into snapshot
// amendments. Topics that don't resolve (unknown or collided) and
// payloads that don't parse as a number are dropped; a push update must
// never corrupt state built by polling.
type Handler struct {
	mapper  *Mapper
	applier Applier
	tracker *state.Tracker
	logger  *logging.Logger

	now func() time.Time
}

// NewHandler wires the mapper, applier and freshness tracker together.
func NewHandler(mapper *Mapper, applier Applier, tracker *state.Tracker, logger *logging.Logger) *Handler {
	return &Handler{
		mapper:  mapper,
		applier: applier,
		tracker: tracker,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleMessage processes one controller message. It is safe to call
// from the MQTT client's handler goroutine.
func (h *Handler) HandleMessage(topic string, payload []byte) {
	target, ok := h.mapper.Lookup(topic)
	if !ok {
		h.logger.Debug("ignoring message on unmapped topic", "topic", topic)
		return
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		h.logger.Warn("ignoring non-numeric push payload",
			"topic", topic,
			"device", target.Name,
			"payload", truncatePayload(payload))
		return
	}

	at := h.now()
	if h.applier.ApplyPush(target, value, at) {
		h.tracker.Record(target.Kind, target.ID, state.SourcePush, at)
	}
}

// truncatePayload keeps log lines bounded when a rogue publisher sends
// something large on a telemetry topic.
func truncatePayload(payload []byte) string {
	const max = 64
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}

package coordinator

import (
	"time"

	"github.com/reeflink/reeflink/internal/state"
)

// Event types delivered to API consumers.
const (
	EventSnapshot  = "snapshot"
	EventDevice    = "device"
	EventCollision = "collision"
)

// Event is a state-change notification. Snapshot events follow every
// successful refresh cycle, device events follow individual push
// applies and control actions, collision events carry the current
// advisory.
type Event struct {
	Type   string     `json:"type"`
	Kind   state.Kind `json:"kind,omitempty"`
	ID     string     `json:"id,omitempty"`
	Topics []string   `json:"topics,omitempty"`
	At     time.Time  `json:"at"`
}

// EventSink receives coordinator events. Implementations must not
// block; the coordinator calls Send while holding its cycle lock.
type EventSink interface {
	Send(Event)
}

// Notifier carries the collision advisory to user-facing notification
// channels, with the same id used for creation and dismissal.
type Notifier interface {
	Notify(id, title, body string)
	Dismiss(id string)
}

func (c *Coordinator) sendEvent(event Event) {
	if c.events == nil {
		return
	}
	event.At = time.Now()
	c.events.Send(event)
}

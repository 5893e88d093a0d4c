package push

import (
	"strings"
	"sync"

	"github.com/reeflink/reeflink/internal/infrastructure/mqtt"
	"github.com/reeflink/reeflink/internal/state"
)

// Target identifies the device behind a derived topic.
type Target struct {
	Kind state.Kind
	ID   string
	Name string
}

// Mapper derives MQTT topics from device names and resolves incoming
// topics back to devices. Because derivation lowercases and squashes
// punctuation, two distinct devices can produce the same topic; such
// topics are quarantined and ignored until the catalog changes and the
// mapper is rebuilt.
type Mapper struct {
	mu        sync.RWMutex
	topics    map[string]Target
	collided  map[string][]Target
	collision []string
}

// NewMapper returns an empty mapper.
func NewMapper() *Mapper {
	return &Mapper{
		topics:   make(map[string]Target),
		collided: make(map[string][]Target),
	}
}

// NormalizeName lowercases a device name and replaces every character
// outside [a-z0-9_] with an underscore, making it safe for use in an
// MQTT topic segment.
func NormalizeName(name string) string {
	lowered := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// TopicFor derives the controller-side topic for a device, mirroring
// reef-pi's per-type topic patterns. Kinds without telemetry topics
// (timers, macros, display) return the empty string.
func TopicFor(prefix string, kind state.Kind, name string) string {
	normalized := NormalizeName(name)
	var suffix string
	switch kind {
	case state.KindTemperature:
		suffix = normalized + "_reading"
	case state.KindPH:
		suffix = "ph_" + normalized
	case state.KindEquipment:
		suffix = "equipment_" + normalized + "_state"
	case state.KindATO:
		suffix = "ato_" + normalized + "_state"
	case state.KindInlet, state.KindLight:
		suffix = normalized
	default:
		return ""
	}
	return mqtt.Topics{}.ControllerSensor(prefix, suffix)
}

// Register derives the topic for a device and records the mapping.
// Re-registering the same device on the same topic is a no-op. A second
// distinct device on an existing topic moves both into the collision
// set and unmaps the topic; further devices landing on a collided topic
// join the set. Register reports whether the topic is live afterwards.
func (m *Mapper) Register(prefix string, target Target) (string, bool) {
	topic := TopicFor(prefix, target.Kind, target.Name)
	if topic == "" {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if parties, ok := m.collided[topic]; ok {
		if !containsTarget(parties, target) {
			m.collided[topic] = append(parties, target)
		}
		return topic, false
	}

	existing, ok := m.topics[topic]
	if !ok {
		m.topics[topic] = target
		return topic, true
	}
	if existing == target {
		return topic, true
	}

	// First collision: neither party keeps the topic.
	delete(m.topics, topic)
	m.collided[topic] = []Target{existing, target}
	m.collision = append(m.collision, topic)
	return topic, false
}

// Lookup resolves a topic to its device. Collided and unknown topics
// resolve to nothing.
func (m *Mapper) Lookup(topic string) (Target, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.topics[topic]
	return target, ok
}

// Collisions returns the collided topics with the devices that claimed
// each one, in the order the collisions were first detected.
func (m *Mapper) Collisions() map[string][]Target {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]Target, len(m.collided))
	for topic, parties := range m.collided {
		out[topic] = append([]Target(nil), parties...)
	}
	return out
}

// CollidedTopics returns the quarantined topics in the order their
// collisions were first detected.
func (m *Mapper) CollidedTopics() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.collision...)
}

// HasCollisions reports whether any topic is currently quarantined.
func (m *Mapper) HasCollisions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collided) > 0
}

// Reset drops every mapping and collision. Collided topics never
// recover on their own, not even when the devices behind them are
// renamed; an operator resets the mapper and lets the next refresh
// cycle rebuild it from the current catalog.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = make(map[string]Target)
	m.collided = make(map[string][]Target)
	m.collision = nil
}

func containsTarget(targets []Target, t Target) bool {
	for _, candidate := range targets {
		if candidate == t {
			return true
		}
	}
	return false
}

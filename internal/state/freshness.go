package state

import (
	"sync"
	"time"
)

// DefaultSkipThreshold is how recent a push update must be before the
// next poll of that device is advisably skipped.
const DefaultSkipThreshold = 2 * time.Minute

// Tracker records when each device last received a value and from
// which source, and advises whether a poll can be skipped because a
// push update already delivered a fresher value.
//
// The advice is exactly that: the coordinator may poll anyway (for
// example when the device carries attributes a push cannot refresh).
type Tracker struct {
	mu        sync.Mutex
	threshold time.Duration
	entries   map[trackerKey]trackerEntry

	// now is swappable for tests.
	now func() time.Time
}

type trackerKey struct {
	kind Kind
	id   string
}

type trackerEntry struct {
	source Source
	at     time.Time
}

// NewTracker returns a tracker with the given skip threshold. A zero
// or negative threshold falls back to DefaultSkipThreshold.
func NewTracker(threshold time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultSkipThreshold
	}
	return &Tracker{
		threshold: threshold,
		entries:   make(map[trackerKey]trackerEntry),
		now:       time.Now,
	}
}

// Record notes that the device received a value from the given source.
func (t *Tracker) Record(kind Kind, id string, source Source, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[trackerKey{kind: kind, id: id}] = trackerEntry{source: source, at: at}
}

// ShouldSkipPolling reports whether the device's last update was a push
// strictly newer than the skip threshold. Devices with no recorded
// update, or whose last update came from polling, are never skipped.
func (t *Tracker) ShouldSkipPolling(kind Kind, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[trackerKey{kind: kind, id: id}]
	if !ok || entry.source != SourcePush {
		return false
	}
	return entry.at.After(t.now().Add(-t.threshold))
}

// LastUpdate returns the source and time of the device's most recent
// recorded update, if any.
func (t *Tracker) LastUpdate(kind Kind, id string) (Source, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[trackerKey{kind: kind, id: id}]
	if !ok {
		return "", time.Time{}, false
	}
	return entry.source, entry.at, true
}

// Reset drops all recorded updates.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[trackerKey]trackerEntry)
}

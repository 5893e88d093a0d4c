package reefpi

import (
	"fmt"
	"time"
)

// TimestampLayout is the literal timestamp format used by the controller
// in usage and reading records, e.g. "Aug-23-19:30, 2021".
const TimestampLayout = "Jan-02-15:04, 2006"

// ParseTimestamp parses a controller timestamp string.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing controller timestamp %q: %w", s, err)
	}
	return t, nil
}

// LatestReading selects the most recent entry from a two-bucket reading
// list: the current bucket is inspected first; if empty, the historical
// bucket; if both are empty, ok is false. Within a bucket the entry with
// the greatest parsed timestamp wins regardless of list order. Entries
// with unparseable timestamps sort before any parseable one.
func LatestReading(r Readings) (Reading, bool) {
	if latest, ok := latestOf(r.Current); ok {
		return latest, true
	}
	return latestOf(r.Historical)
}

// LatestReadingWhere behaves like LatestReading but only considers
// entries matching keep. The bucket choice happens first: if the
// current bucket is non-empty it is used even when no entry matches.
func LatestReadingWhere(r Readings, keep func(Reading) bool) (Reading, bool) {
	bucket := r.Current
	if len(bucket) == 0 {
		bucket = r.Historical
	}

	var kept []Reading
	for _, e := range bucket {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	return latestOf(kept)
}

func latestOf(entries []Reading) (Reading, bool) {
	if len(entries) == 0 {
		return Reading{}, false
	}

	best := entries[0]
	bestTime, _ := ParseTimestamp(best.Time)
	for _, e := range entries[1:] {
		t, err := ParseTimestamp(e.Time)
		if err != nil {
			continue
		}
		if !t.Before(bestTime) {
			best = e
			bestTime = t
		}
	}
	return best, true
}

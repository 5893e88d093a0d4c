package state

import (
	"context"
	"fmt"
	"time"

	"github.com/reeflink/reeflink/internal/infrastructure/database"
)

// HistoryEntry is one persisted reading.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Kind       Kind      `json:"kind"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Value      float64   `json:"value"`
	Source     Source    `json:"source"`
	ObservedAt time.Time `json:"observed_at"`
}

// HistoryRepository persists sensor readings so the API can serve
// short-term history without round-tripping to the controller.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository wraps the given database handle.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record inserts a single reading.
func (r *HistoryRepository) Record(ctx context.Context, entry HistoryEntry) error {
	const query = `
		INSERT INTO reading_history (kind, device_id, device_name, value, source, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		string(entry.Kind), entry.DeviceID, entry.DeviceName,
		entry.Value, string(entry.Source), entry.ObservedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record reading: %w", err)
	}
	return nil
}

// History returns up to limit readings for a device, newest first.
func (r *HistoryRepository) History(ctx context.Context, kind Kind, deviceID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT id, kind, device_id, device_name, value, source, observed_at
		FROM reading_history
		WHERE kind = ? AND device_id = ?
		ORDER BY observed_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(kind), deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reading history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry    HistoryEntry
			kindStr  string
			srcStr   string
			observed string
		)
		if err := rows.Scan(&entry.ID, &kindStr, &entry.DeviceID, &entry.DeviceName,
			&entry.Value, &srcStr, &observed); err != nil {
			return nil, fmt.Errorf("failed to scan reading history row: %w", err)
		}
		entry.Kind = Kind(kindStr)
		entry.Source = Source(srcStr)
		if t, err := time.Parse(time.RFC3339, observed); err == nil {
			entry.ObservedAt = t
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reading history: %w", err)
	}
	return entries, nil
}

// Prune deletes readings older than the retention window and returns
// how many rows were removed.
func (r *HistoryRepository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reading_history WHERE observed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reading history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned readings: %w", err)
	}
	return deleted, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SnapshotRepo handles database operations for program snapshots
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// GetSnapshot retrieves a snapshot by its window key, or nil when absent
func (r *SnapshotRepo) GetSnapshot(key string) (*Snapshot, error) {
	var (
		snapshot    Snapshot
		windowFrom  string
		windowTo    string
		generatedAt string
		createdAt   string
		updatedAt   string
	)

	err := r.db.QueryRow(`
		SELECT key, window_from, window_to, payload, generated_at, created_at, updated_at
		FROM snapshots
		WHERE key = ?
	`, key).Scan(
		&snapshot.Key, &windowFrom, &windowTo, &snapshot.Payload,
		&generatedAt, &createdAt, &updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if snapshot.WindowFrom, err = parseStoredTime(windowFrom); err != nil {
		return nil, fmt.Errorf("failed to parse window_from: %w", err)
	}
	if snapshot.WindowTo, err = parseStoredTime(windowTo); err != nil {
		return nil, fmt.Errorf("failed to parse window_to: %w", err)
	}
	if snapshot.GeneratedAt, err = parseStoredTime(generatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse generated_at: %w", err)
	}
	if snapshot.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if snapshot.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &snapshot, nil
}

// UpsertSnapshot inserts or replaces the snapshot stored for its window key
func (r *SnapshotRepo) UpsertSnapshot(snapshot Snapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO snapshots (key, window_from, window_to, payload, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			window_from = excluded.window_from,
			window_to = excluded.window_to,
			payload = excluded.payload,
			generated_at = excluded.generated_at,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, snapshot.Key, formatStoredTime(snapshot.WindowFrom), formatStoredTime(snapshot.WindowTo),
		snapshot.Payload, formatStoredTime(snapshot.GeneratedAt))

	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// PurgeSnapshots deletes snapshots generated before the cutoff and returns
// how many rows went away
func (r *SnapshotRepo) PurgeSnapshots(olderThan time.Time) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM snapshots
		WHERE generated_at < ?
	`, formatStoredTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge snapshots: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged snapshots: %w", err)
	}

	return int(affected), nil
}

// GetSnapshotCount returns the total number of stored snapshots
func (r *SnapshotRepo) GetSnapshotCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot count: %w", err)
	}
	return count, nil
}

// Timestamps are stored as RFC 3339 text so they sort lexicographically and
// stay comparable inside SQL. A zero time maps to the empty string.
func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

package database

import (
	"time"
)

type SnapshotRepository interface {
	GetSnapshot(key string) (*Snapshot, error)
	GetSnapshotCount() (int, error)

	UpsertSnapshot(snapshot Snapshot) error
	PurgeSnapshots(olderThan time.Time) (int, error)
}

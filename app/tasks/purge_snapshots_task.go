package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaae/kinogram/app/database"
)

// PurgeSnapshotsTask drops snapshots whose generation time fell behind the
// retention horizon.
type PurgeSnapshotsTask struct {
	Task
	retention    time.Duration
	snapshotRepo database.SnapshotRepository
}

func NewPurgeSnapshotsTask(retention time.Duration, snapshotRepo database.SnapshotRepository) *PurgeSnapshotsTask {
	return &PurgeSnapshotsTask{
		Task:         NewTask(TaskTypePurgeSnapshots, ""),
		retention:    retention,
		snapshotRepo: snapshotRepo,
	}
}

func (t *PurgeSnapshotsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cutoff := time.Now().UTC().Add(-t.retention)
	purged, err := t.snapshotRepo.PurgeSnapshots(cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge snapshots: %w", err)
	}

	if purged > 0 {
		slog.Info("Task completed",
			"type", "PurgeSnapshots",
			"duration", t.GetDuration(),
			"purged", purged)
	}

	return nil
}

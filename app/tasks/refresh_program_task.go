package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaae/kinogram/app/database"
	"github.com/jkaae/kinogram/app/program"
)

// RefreshProgramTask runs a full extraction for one window and stores the
// result as the window's snapshot.
type RefreshProgramTask struct {
	Task
	Window       program.Window
	runner       ProgramRunner
	snapshotRepo database.SnapshotRepository
}

func NewRefreshProgramTask(w program.Window, runner ProgramRunner, snapshotRepo database.SnapshotRepository) *RefreshProgramTask {
	return &RefreshProgramTask{
		Task:         NewTask(TaskTypeRefreshProgram, w.Key()),
		Window:       w,
		runner:       runner,
		snapshotRepo: snapshotRepo,
	}
}

func (t *RefreshProgramTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	prog, err := t.runner.Run(ctx, t.Window)
	if err != nil {
		return fmt.Errorf("failed to run program extraction: %w", err)
	}

	payload, err := json.Marshal(prog.Payload())
	if err != nil {
		return fmt.Errorf("failed to serialize program payload: %w", err)
	}

	err = t.snapshotRepo.UpsertSnapshot(database.Snapshot{
		Key:         t.Window.Key(),
		WindowFrom:  t.Window.From,
		WindowTo:    t.Window.To,
		Payload:     payload,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshProgram",
		"window", t.WindowKey,
		"duration", t.GetDuration(),
		"series", len(prog.Series),
		"standalone", len(prog.Standalone))

	return nil
}

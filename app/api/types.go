package api

import (
	"time"

	"github.com/jkaae/kinogram/app/database"
	"github.com/jkaae/kinogram/app/tasks"
)

// Handler serves the extracted program over HTTP. The snapshot repository
// and scheduler are optional: without them every request runs a fresh
// extraction and the admin refresh endpoint reports unavailable.
type Handler struct {
	runner       tasks.ProgramRunner
	snapshotRepo database.SnapshotRepository
	scheduler    tasks.TaskSchedulerInterface
	snapshotTTL  time.Duration
}

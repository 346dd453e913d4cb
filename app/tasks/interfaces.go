package tasks

import (
	"context"

	"github.com/jkaae/kinogram/app/program"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// ProgramRunner produces a reconciled program for a window. Satisfied by
// program.Engine.
type ProgramRunner interface {
	Run(ctx context.Context, w program.Window) (*program.Program, error)
}

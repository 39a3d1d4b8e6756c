// Package event schedules scripted events: a Runner drives one compiled
// script to completion and the Manager makes sure at most one runs at a time.
package event

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/signal"
)

// State is the lifecycle state of a Runner.
type State int

const (
	StateRunning State = iota
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Completion describes a script that ran to the end.
type Completion struct {
	RunnerID uuid.UUID
	Script   script.Script
	Value    any
	// Ticks is the number of steps the script took, including the last one.
	Ticks uint64
}

// Runner owns the compiled command of one script and steps it once per tick.
// A Runner is driven from a single goroutine.
type Runner struct {
	id     uuid.UUID
	script script.Script
	cmd    command.Command[any]
	logger *zap.Logger

	state     State
	ticks     uint64
	taken     bool
	completed *signal.Signal[Completion]
}

// NewRunner creates a running runner for cmd, the compiled form of s.
func NewRunner(s script.Script, cmd command.Command[any], logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	return &Runner{
		id:        id,
		script:    s,
		cmd:       cmd,
		logger:    logger.With(zap.String("runner_id", id.String())),
		completed: signal.New[Completion](),
	}
}

// ID identifies the runner in logs and notifications.
func (r *Runner) ID() uuid.UUID { return r.id }

// Script returns the script the runner was created for.
func (r *Runner) Script() script.Script { return r.script }

// State returns the runner's lifecycle state.
func (r *Runner) State() State { return r.state }

// Ticks returns how many times the runner has been stepped.
func (r *Runner) Ticks() uint64 { return r.ticks }

// Completed is raised exactly once, synchronously within the step that
// observes the command completing.
func (r *Runner) Completed() *signal.Signal[Completion] { return r.completed }

// Step advances the command by one tick and reports whether the runner is
// still running afterwards. Stepping a runner that is no longer running
// panics.
func (r *Runner) Step(t command.Tick) bool {
	if r.state != StateRunning {
		command.Violation("Runner.Step", "runner is "+r.state.String())
	}
	r.ticks++
	res := r.cmd.Step(t)
	if !res.Done() {
		return true
	}

	r.state = StateCompleted
	r.cmd = nil
	r.logger.Debug("runner completed",
		zap.Uint64("tick", t.Number),
		zap.Uint64("steps", r.ticks),
	)
	r.completed.Publish(Completion{
		RunnerID: r.id,
		Script:   r.script,
		Value:    res.Value(),
		Ticks:    r.ticks,
	})
	return false
}

// Coroutine hands out the function that resumes the runner for one tick.
// Only one driver may own a runner, so it can be taken once.
func (r *Runner) Coroutine() func(command.Tick) bool {
	if r.taken {
		command.Violation("Runner.Coroutine", "coroutine already taken")
	}
	r.taken = true
	return r.Step
}

// Abort discards the command tree, releasing whatever it still holds. It
// returns false if the runner had already finished.
func (r *Runner) Abort() bool {
	if r.state != StateRunning {
		return false
	}
	command.Abort(r.cmd)
	r.cmd = nil
	r.state = StateAborted
	return true
}

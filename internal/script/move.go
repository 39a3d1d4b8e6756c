package script

import (
	"time"

	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/script/command"
)

// MoveEntity walks an entity to a destination cell, one cell every
// StepSeconds. It completes with true on arrival and with false if the
// destination cannot be reached or the walk is interrupted.
type MoveEntity struct {
	Entity      string
	Destination hexmap.Coordinates
	StepSeconds float64
}

func (m MoveEntity) Kind() Kind { return KindMoveEntity }

func (m MoveEntity) Equal(other Script) bool {
	o, ok := other.(MoveEntity)
	return ok && o == m
}

func (m MoveEntity) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if m.Entity == "" {
		return nil, invalid(KindMoveEntity, "entity name is empty")
	}
	stepTime, ok := seconds(m.StepSeconds)
	if !ok {
		return nil, invalid(KindMoveEntity, "step seconds %v", m.StepSeconds)
	}
	if ctx.Navigator == nil {
		return nil, missing(KindMoveEntity, "navigator")
	}
	if ctx.Placement == nil {
		return nil, missing(KindMoveEntity, "placement")
	}
	return &walk{
		entity:      m.Entity,
		destination: m.Destination,
		stepTime:    stepTime,
		nav:         ctx.Navigator,
		place:       ctx.Placement,
		logger:      ctx.logger(),
	}, nil
}

// walk plans its path on the first step, then alternates between waiting
// out the step time and moving to the next cell.
type walk struct {
	command.Guard
	entity      string
	destination hexmap.Coordinates
	stepTime    time.Duration
	nav         Navigator
	place       Placement
	logger      *zap.Logger

	planned bool
	path    []hexmap.Coordinates
	next    int
	wait    command.Command[command.Unit]
}

func (w *walk) Step(t command.Tick) command.Result[any] {
	w.Check("MoveEntity")
	if !w.planned {
		w.planned = true
		if !w.plan() {
			return w.finish(false)
		}
	}
	for w.next < len(w.path) {
		if w.wait == nil {
			w.wait = command.Wait(w.stepTime)
		}
		if !w.wait.Step(t).Done() {
			return command.Suspend[any]()
		}
		w.wait = nil
		if err := w.place.Step(w.entity, w.path[w.next]); err != nil {
			w.logger.Warn("walk interrupted",
				zap.String("entity", w.entity),
				zap.Stringer("cell", w.path[w.next]),
				zap.Error(err),
			)
			return w.finish(false)
		}
		w.next++
	}
	return w.finish(true)
}

func (w *walk) plan() bool {
	from, ok := w.place.Locate(w.entity)
	if !ok {
		w.logger.Warn("walk of unknown entity", zap.String("entity", w.entity))
		return false
	}
	cells, ok := w.nav.FindPath(from, w.destination)
	if !ok {
		w.logger.Info("destination unreachable",
			zap.String("entity", w.entity),
			zap.Stringer("from", from),
			zap.Stringer("to", w.destination),
		)
		return false
	}
	w.path = make([]hexmap.Coordinates, len(cells))
	for i, c := range cells {
		w.path[i] = c.Coordinates
	}
	return true
}

func (w *walk) finish(arrived bool) command.Result[any] {
	w.Close()
	return command.Complete[any](arrived)
}

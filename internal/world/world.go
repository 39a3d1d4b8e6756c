// Package world routes player input between the map and running scripts and
// starts the scripted events attached to map cells.
package world

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/event"
	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/script"
)

// ErrNoEvent is returned when an interactable has no event to run.
var ErrNoEvent = errors.New("interactable has no event")

// Interactable attaches a scripted event to a map cell. Touching the cell
// while no script is running begins the event.
type Interactable struct {
	Cell  hexmap.Coordinates
	Event *script.Event
}

// World ties the map to the event manager.
type World struct {
	mu            sync.RWMutex
	grid          *hexmap.Grid
	manager       *event.Manager
	ctx           *script.Context
	metrics       hexmap.Metrics
	logger        *zap.Logger
	interactables map[hexmap.Coordinates]*script.Event

	cellDown int
}

// New creates a world over grid. Scripts are compiled against ctx; the grid
// fills in for a missing navigator or placement.
func New(grid *hexmap.Grid, manager *event.Manager, ctx *script.Context, metrics hexmap.Metrics, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = &script.Context{}
	}
	cp := *ctx
	if cp.Navigator == nil {
		cp.Navigator = grid
	}
	if cp.Placement == nil {
		cp.Placement = grid
	}
	if cp.Logger == nil {
		cp.Logger = logger
	}
	w := &World{
		grid:          grid,
		manager:       manager,
		ctx:           &cp,
		metrics:       metrics,
		logger:        logger,
		interactables: make(map[hexmap.Coordinates]*script.Event),
	}
	w.cellDown = grid.CellDown.Subscribe(w.onCellDown)
	return w
}

// Close detaches the world from the grid.
func (w *World) Close() {
	w.grid.CellDown.Unsubscribe(w.cellDown)
}

func (w *World) Grid() *hexmap.Grid { return w.grid }

func (w *World) Manager() *event.Manager { return w.manager }

// AddInteractable attaches i.Event to i.Cell, replacing any previous event.
func (w *World) AddInteractable(i Interactable) error {
	if i.Event == nil || i.Event.Script == nil {
		return ErrNoEvent
	}
	if _, err := w.grid.At(i.Cell); err != nil {
		return fmt.Errorf("interactable %s: %w", i.Event.Name, err)
	}
	w.mu.Lock()
	w.interactables[i.Cell] = i.Event
	w.mu.Unlock()
	return nil
}

func (w *World) RemoveInteractable(c hexmap.Coordinates) {
	w.mu.Lock()
	delete(w.interactables, c)
	w.mu.Unlock()
}

func (w *World) Interactable(c hexmap.Coordinates) (*script.Event, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.interactables[c]
	return e, ok
}

// Begin starts ev as the running script.
func (w *World) Begin(ev *script.Event) error {
	if ev == nil || ev.Script == nil {
		return ErrNoEvent
	}
	if err := w.manager.BeginScript(w.ctx, ev.Script); err != nil {
		return fmt.Errorf("begin %s: %w", ev.Name, err)
	}
	w.logger.Info("event began", zap.String("event", ev.Name))
	return nil
}

// Click routes a pointer click. While the UI owns input the click goes to the
// main panel; otherwise a primary tap touches the cell under the pointer.
func (w *World) Click(e input.PointerEvent) {
	if w.manager.IsUI() {
		w.manager.RaiseMainPanelClicked(e)
		return
	}
	if !e.IsPrimaryTap() {
		return
	}
	c := w.metrics.FromPosition(e.X, e.Y)
	if err := w.grid.Touch(c); err != nil {
		w.logger.Debug("click outside the map",
			zap.Float64("x", e.X),
			zap.Float64("y", e.Y),
			zap.Error(err),
		)
	}
}

func (w *World) onCellDown(cell *hexmap.Cell) {
	ev, ok := w.Interactable(cell.Coordinates)
	if !ok {
		return
	}
	if w.manager.IsEventRunning() {
		w.logger.Debug("cell touched while an event is running",
			zap.Stringer("cell", cell.Coordinates),
		)
		return
	}
	if err := w.Begin(ev); err != nil {
		w.logger.Warn("failed to begin event",
			zap.Stringer("cell", cell.Coordinates),
			zap.Error(err),
		)
	}
}

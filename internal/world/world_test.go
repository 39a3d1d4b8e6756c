package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/event"
	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/script/expr"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

type fixture struct {
	world   *World
	grid    *hexmap.Grid
	manager *event.Manager
	stage   *stage.Recorder
	metrics hexmap.Metrics
	ticks   uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		grid:    hexmap.NewGrid(4, 4),
		manager: event.NewManager(zap.NewNop()),
		stage:   stage.NewRecorder(zap.NewNop()),
		metrics: hexmap.Metrics{OuterRadius: 1},
	}
	ctx := &script.Context{Stage: f.stage, Variables: expr.NewStore()}
	f.world = New(f.grid, f.manager, ctx, f.metrics, zap.NewNop())
	t.Cleanup(f.world.Close)
	return f
}

func (f *fixture) clickCell(c hexmap.Coordinates) {
	x, y := f.metrics.Center(c)
	f.world.Click(input.PointerEvent{X: x, Y: y})
}

func (f *fixture) tick() {
	f.ticks++
	f.manager.Tick(command.Tick{Number: f.ticks, Delta: 100 * time.Millisecond})
}

func TestTouchingInteractableBeginsEvent(t *testing.T) {
	f := newFixture(t)
	sign := hexmap.FromOffset(1, 2)
	require.NoError(t, f.world.AddInteractable(Interactable{
		Cell:  sign,
		Event: script.NewEvent("sign", script.Dialogue{Lines: []string{"Keep out."}}),
	}))

	var touched []hexmap.Coordinates
	f.grid.CellDown.Subscribe(func(c *hexmap.Cell) { touched = append(touched, c.Coordinates) })

	f.clickCell(hexmap.FromOffset(0, 0))
	assert.False(t, f.manager.IsEventRunning())

	f.clickCell(sign)
	assert.Equal(t, []hexmap.Coordinates{hexmap.FromOffset(0, 0), sign}, touched)
	require.True(t, f.manager.IsEventRunning())

	f.tick()
	text, visible := f.stage.Dialogue()
	assert.Equal(t, "Keep out.", text)
	assert.True(t, visible)

	// while the event runs, clicks advance the dialogue instead of touching cells
	f.clickCell(sign)
	assert.Len(t, touched, 2)
	f.tick()
	assert.False(t, f.manager.IsEventRunning())
	_, visible = f.stage.Dialogue()
	assert.False(t, visible)
}

func TestClickFiltering(t *testing.T) {
	f := newFixture(t)
	count := 0
	f.grid.CellDown.Subscribe(func(*hexmap.Cell) { count++ })

	x, y := f.metrics.Center(hexmap.FromOffset(1, 1))
	f.world.Click(input.PointerEvent{X: x, Y: y, Button: 1})
	f.world.Click(input.PointerEvent{X: x, Y: y, Dragging: true})
	f.world.Click(input.PointerEvent{X: -100, Y: -100})
	assert.Equal(t, 0, count)

	f.world.Click(input.PointerEvent{X: x, Y: y})
	assert.Equal(t, 1, count)
}

type menu struct{ open bool }

func (m *menu) Active() bool { return m.open }

func TestOverlayCapturesClicks(t *testing.T) {
	f := newFixture(t)
	m := &menu{open: true}
	f.manager.SetOverlay(m)

	var panel, cells int
	f.manager.OnMainPanelClicked(func(input.PointerEvent) { panel++ })
	f.grid.CellDown.Subscribe(func(*hexmap.Cell) { cells++ })

	f.clickCell(hexmap.FromOffset(0, 0))
	m.open = false
	f.clickCell(hexmap.FromOffset(0, 0))

	assert.Equal(t, 1, panel)
	assert.Equal(t, 1, cells)
}

func TestWalkingScriptMovesEntity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.grid.AddEntity("hero", hexmap.FromOffset(0, 0), hexmap.DirectionS))
	dest := hexmap.FromOffset(0, 2)
	require.NoError(t, f.world.Begin(script.NewEvent("walk", script.MoveEntity{
		Entity: "hero", Destination: dest, StepSeconds: 0.1,
	})))

	var moves []hexmap.EntityMove
	f.grid.EntityMoved.Subscribe(func(m hexmap.EntityMove) { moves = append(moves, m) })
	for i := 0; i < 10 && f.manager.IsEventRunning(); i++ {
		f.tick()
	}
	assert.False(t, f.manager.IsEventRunning())
	pos, _ := f.grid.Locate("hero")
	assert.Equal(t, dest, pos)
	require.Len(t, moves, 2)
	assert.Equal(t, hexmap.DirectionS, moves[1].Entity.Facing)
}

func TestInteractableValidation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.world.AddInteractable(Interactable{Cell: hexmap.FromOffset(0, 0)}), ErrNoEvent)
	err := f.world.AddInteractable(Interactable{
		Cell:  hexmap.FromOffset(9, 9),
		Event: script.NewEvent("far", script.Delay{}),
	})
	assert.ErrorIs(t, err, hexmap.ErrOutOfBounds)

	c := hexmap.FromOffset(1, 1)
	require.NoError(t, f.world.AddInteractable(Interactable{Cell: c, Event: script.NewEvent("x", script.Delay{})}))
	_, ok := f.world.Interactable(c)
	assert.True(t, ok)
	f.world.RemoveInteractable(c)
	_, ok = f.world.Interactable(c)
	assert.False(t, ok)

	assert.ErrorIs(t, f.world.Begin(nil), ErrNoEvent)
}

package hexmap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tsani/sixteen-fifty/internal/signal"
)

var (
	// ErrOutOfBounds is returned for coordinates that name no cell of the grid.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrUnknownEntity is returned when an entity is not on the grid.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrDuplicateEntity is returned when an entity name is already placed.
	ErrDuplicateEntity = errors.New("entity already placed")
	// ErrNotAdjacent is returned when a single step targets a non-neighbour cell.
	ErrNotAdjacent = errors.New("cells are not adjacent")
	// ErrBlocked is returned when a step targets an impassable cell.
	ErrBlocked = errors.New("cell is blocked")
	// ErrOccupied is returned when a step targets a cell another entity stands on.
	ErrOccupied = errors.New("cell is occupied")
)

// Cell is one tile of the grid.
type Cell struct {
	Coordinates Coordinates
	Blocked     bool

	grid     *Grid
	entities map[string]*Entity
}

// Entity is something standing on the map, such as the player or an NPC.
type Entity struct {
	Name     string
	Position Coordinates
	Facing   Direction
}

// EntityEvent is published when an entity enters or leaves a cell.
type EntityEvent struct {
	Cell   Coordinates
	Entity Entity
}

// EntityMove is published when an entity steps to an adjacent cell.
type EntityMove struct {
	Entity Entity
	From   Coordinates
	To     Coordinates
}

// Grid is a rectangular hex map stored in column/row offset order.
type Grid struct {
	mu       sync.RWMutex
	width    int
	height   int
	cells    []*Cell
	entities map[string]*Entity

	// CellDown is raised when a cell is touched by the player.
	CellDown *signal.Signal[*Cell]
	// EntityAdded is raised when an entity enters a cell.
	EntityAdded *signal.Signal[EntityEvent]
	// EntityRemoved is raised when an entity leaves a cell.
	EntityRemoved *signal.Signal[EntityEvent]
	// EntityMoved is raised after Step moves an entity and turns it to face
	// the direction of travel.
	EntityMoved *signal.Signal[EntityMove]
}

// NewGrid creates a width by height grid of open cells.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{
		width:         width,
		height:        height,
		cells:         make([]*Cell, 0, width*height),
		entities:      make(map[string]*Entity),
		CellDown:      signal.New[*Cell](),
		EntityAdded:   signal.New[EntityEvent](),
		EntityRemoved: signal.New[EntityEvent](),
		EntityMoved:   signal.New[EntityMove](),
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			g.cells = append(g.cells, &Cell{
				Coordinates: FromOffset(col, row),
				grid:        g,
				entities:    make(map[string]*Entity),
			})
		}
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Cell returns the cell at c, or false if c is outside the grid.
func (g *Grid) Cell(c Coordinates) (*Cell, bool) {
	col, row := c.ToOffset()
	if col < 0 || col >= g.width || row < 0 || row >= g.height {
		return nil, false
	}
	return g.cells[col+row*g.width], true
}

// At is like Cell but returns an error naming the coordinates.
func (g *Grid) At(c Coordinates) (*Cell, error) {
	cell, ok := g.Cell(c)
	if !ok {
		return nil, fmt.Errorf("no cell at %s: %w", c, ErrOutOfBounds)
	}
	return cell, nil
}

// SetBlocked marks a cell as impassable (or passable again).
func (g *Grid) SetBlocked(c Coordinates, blocked bool) error {
	cell, err := g.At(c)
	if err != nil {
		return err
	}
	g.mu.Lock()
	cell.Blocked = blocked
	g.mu.Unlock()
	return nil
}

// Neighbours returns the in-bounds cells adjacent to cell.
func (g *Grid) Neighbours(cell *Cell) []*Cell {
	out := make([]*Cell, 0, 6)
	for _, c := range cell.Coordinates.Neighbours() {
		if n, ok := g.Cell(c); ok {
			out = append(out, n)
		}
	}
	return out
}

// Touch raises CellDown for the cell at c.
func (g *Grid) Touch(c Coordinates) error {
	cell, err := g.At(c)
	if err != nil {
		return err
	}
	g.CellDown.Publish(cell)
	return nil
}

// SortingOrder returns the draw order of the cell: rows further down draw
// later, and odd columns draw between the rows around them. Entities on the
// cell use SortingOrder()+1 so they can appear behind the rows below.
func (c *Cell) SortingOrder() int {
	col, row := c.Coordinates.ToOffset()
	return (c.grid.height-row-1)*4 + (col%2)*2
}

// Entities returns the names of the entities on the cell, sorted.
func (c *Cell) Entities() []string {
	c.grid.mu.RLock()
	defer c.grid.mu.RUnlock()
	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty returns true if no entity stands on the cell.
func (c *Cell) IsEmpty() bool {
	c.grid.mu.RLock()
	defer c.grid.mu.RUnlock()
	return len(c.entities) == 0
}

func (c *Cell) String() string {
	return "(Cell " + c.Coordinates.String() + ")"
}

// AddEntity places a new entity on the grid.
func (g *Grid) AddEntity(name string, at Coordinates, facing Direction) error {
	cell, err := g.At(at)
	if err != nil {
		return err
	}
	g.mu.Lock()
	if _, exists := g.entities[name]; exists {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrDuplicateEntity)
	}
	e := &Entity{Name: name, Position: at, Facing: facing}
	g.entities[name] = e
	cell.entities[name] = e
	snapshot := *e
	g.mu.Unlock()

	g.EntityAdded.Publish(EntityEvent{Cell: at, Entity: snapshot})
	return nil
}

// RemoveEntity takes an entity off the grid.
func (g *Grid) RemoveEntity(name string) error {
	g.mu.Lock()
	e, ok := g.entities[name]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrUnknownEntity)
	}
	delete(g.entities, name)
	cell, _ := g.Cell(e.Position)
	delete(cell.entities, name)
	snapshot := *e
	g.mu.Unlock()

	g.EntityRemoved.Publish(EntityEvent{Cell: snapshot.Position, Entity: snapshot})
	return nil
}

// Entity returns a copy of the named entity.
func (g *Grid) Entity(name string) (Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entities[name]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Locate returns the position of the named entity.
func (g *Grid) Locate(name string) (Coordinates, bool) {
	e, ok := g.Entity(name)
	return e.Position, ok
}

// Step moves an entity one cell to an adjacent, passable and unoccupied
// destination and turns it to face the direction of travel.
func (g *Grid) Step(name string, to Coordinates) error {
	dest, err := g.At(to)
	if err != nil {
		return err
	}

	g.mu.Lock()
	e, ok := g.entities[name]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrUnknownEntity)
	}
	if dest.Blocked {
		g.mu.Unlock()
		return fmt.Errorf("step %s to %s: %w", name, to, ErrBlocked)
	}
	if len(dest.entities) > 0 {
		g.mu.Unlock()
		return fmt.Errorf("step %s to %s: %w", name, to, ErrOccupied)
	}
	dir, adjacent := e.Position.DirectionTo(to)
	if !adjacent {
		g.mu.Unlock()
		return fmt.Errorf("step %s from %s to %s: %w", name, e.Position, to, ErrNotAdjacent)
	}
	from := e.Position
	src, _ := g.Cell(from)
	delete(src.entities, name)
	dest.entities[name] = e
	e.Position = to
	e.Facing = dir
	snapshot := *e
	g.mu.Unlock()

	g.EntityRemoved.Publish(EntityEvent{Cell: from, Entity: snapshot})
	g.EntityAdded.Publish(EntityEvent{Cell: to, Entity: snapshot})
	g.EntityMoved.Publish(EntityMove{Entity: snapshot, From: from, To: to})
	return nil
}

package asset

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/script"
)

var ErrDuplicateEvent = errors.New("duplicate event")

type document struct {
	Events        []eventDocument        `yaml:"events"`
	Entities      []entityDocument       `yaml:"entities"`
	Interactables []interactableDocument `yaml:"interactables"`
}

type offset struct {
	Col int `yaml:"col"`
	Row int `yaml:"row"`
}

func (o offset) coordinates() hexmap.Coordinates {
	return hexmap.FromOffset(o.Col, o.Row)
}

type entityDocument struct {
	Name   string `yaml:"name"`
	At     offset `yaml:"at"`
	Facing string `yaml:"facing"`
}

type interactableDocument struct {
	Event string `yaml:"event"`
	At    offset `yaml:"at"`
}

// EntityPlacement is an entity standing on the map when the scene starts.
type EntityPlacement struct {
	Name   string
	At     hexmap.Coordinates
	Facing hexmap.Direction
}

// InteractablePlacement attaches an event to a map cell.
type InteractablePlacement struct {
	At    hexmap.Coordinates
	Event *script.Event
}

type eventDocument struct {
	Name   string    `yaml:"name"`
	ID     string    `yaml:"id"`
	Script yaml.Node `yaml:"script"`
}

// Library is a loaded set of scripted events addressable by name or ID.
type Library struct {
	events        []*script.Event
	byName        map[string]*script.Event
	byID          map[uuid.UUID]*script.Event
	entities      []EntityPlacement
	interactables []InteractablePlacement
}

// Load reads a library from a YAML file.
func Load(path string, registry *Registry) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	lib, err := Parse(data, registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes a library. Events may call each other as subroutines in any
// order; references are resolved by name. Events without an explicit id get
// one derived from their name.
func Parse(data []byte, registry *Registry) (*Library, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}

	lib := &Library{
		byName: make(map[string]*script.Event, len(doc.Events)),
		byID:   make(map[uuid.UUID]*script.Event, len(doc.Events)),
	}
	for i, ed := range doc.Events {
		if ed.Name == "" {
			return nil, fmt.Errorf("event %d has no name: %w", i, ErrMalformed)
		}
		if _, exists := lib.byName[ed.Name]; exists {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateEvent, ed.Name)
		}
		e := script.NewEvent(ed.Name, nil)
		if ed.ID != "" {
			id, err := uuid.Parse(ed.ID)
			if err != nil {
				return nil, fmt.Errorf("event %q: id: %v: %w", ed.Name, err, ErrMalformed)
			}
			e.ID = id
		}
		if other, exists := lib.byID[e.ID]; exists {
			return nil, fmt.Errorf("%w: %q and %q share id %s", ErrDuplicateEvent, other.Name, ed.Name, e.ID)
		}
		lib.events = append(lib.events, e)
		lib.byName[e.Name] = e
		lib.byID[e.ID] = e
	}

	dec := &Decoder{registry: registry, events: lib.byName}
	for i, ed := range doc.Events {
		ed := ed
		if ed.Script.Kind == 0 {
			return nil, fmt.Errorf("event %q has no script: %w", ed.Name, ErrMalformed)
		}
		s, err := dec.Script(&ed.Script)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", ed.Name, err)
		}
		lib.events[i].Script = s
	}

	for _, en := range doc.Entities {
		if en.Name == "" {
			return nil, fmt.Errorf("entity without a name: %w", ErrMalformed)
		}
		facing := hexmap.DirectionS
		if en.Facing != "" {
			d, err := hexmap.ParseDirection(en.Facing)
			if err != nil {
				return nil, fmt.Errorf("entity %q: %v: %w", en.Name, err, ErrMalformed)
			}
			facing = d
		}
		lib.entities = append(lib.entities, EntityPlacement{Name: en.Name, At: en.At.coordinates(), Facing: facing})
	}
	for _, in := range doc.Interactables {
		e, ok := lib.byName[in.Event]
		if !ok {
			return nil, fmt.Errorf("interactable at %d,%d: %q: %w", in.At.Col, in.At.Row, in.Event, ErrUnknownEvent)
		}
		lib.interactables = append(lib.interactables, InteractablePlacement{At: in.At.coordinates(), Event: e})
	}
	return lib, nil
}

// Event returns the event called name.
func (l *Library) Event(name string) (*script.Event, bool) {
	e, ok := l.byName[name]
	return e, ok
}

func (l *Library) EventByID(id uuid.UUID) (*script.Event, bool) {
	e, ok := l.byID[id]
	return e, ok
}

// Entities returns the entities to place on the map, in file order.
func (l *Library) Entities() []EntityPlacement {
	return append([]EntityPlacement(nil), l.entities...)
}

// Interactables returns the event-bearing cells of the map.
func (l *Library) Interactables() []InteractablePlacement {
	return append([]InteractablePlacement(nil), l.interactables...)
}

// Events returns the events in file order.
func (l *Library) Events() []*script.Event {
	return append([]*script.Event(nil), l.events...)
}

// Package script defines the scripted-event descriptions and how each one
// compiles into a steppable command.
//
// Scripts are immutable values compared by Equal; compiling a script never
// runs any of its effects. Every effect happens while the compiled command
// is being stepped by an event runner.
package script

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/script/expr"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

// Kind names a script variant.
type Kind string

const (
	KindSubroutine  Kind = "subroutine"
	KindDelay       Kind = "delay"
	KindBlock       Kind = "block"
	KindDialogue    Kind = "dialogue"
	KindShowSpeaker Kind = "show_speaker"
	KindHideSpeaker Kind = "hide_speaker"
	KindBranch      Kind = "branch"
	KindSetVariable Kind = "set_variable"
	KindMoveEntity  Kind = "move_entity"
)

// Script is a description of scripted-event code.
type Script interface {
	// Compile turns the script into a command. Any error is reported here,
	// before the command is ever stepped.
	Compile(ctx *Context) (command.Command[any], error)
	// Equal reports whether other denotes the same program.
	Equal(other Script) bool
	Kind() Kind
}

// Host is the part of the event manager that scripts may use.
type Host interface {
	// OnMainPanelClicked subscribes to clicks on the input-intercept panel.
	OnMainPanelClicked(fn func(input.PointerEvent)) (cancel func())
	// SetBlocksRaycasts claims (true) or releases (false) exclusive pointer input.
	SetBlocksRaycasts(blocks bool)
	IsEventRunning() bool
}

// Navigator answers path queries over the map.
type Navigator interface {
	FindPath(source, destination hexmap.Coordinates) ([]*hexmap.Cell, bool)
}

// Placement locates and moves map entities.
type Placement interface {
	Locate(entity string) (hexmap.Coordinates, bool)
	Step(entity string, to hexmap.Coordinates) error
}

// Context bundles the collaborators a script is compiled against. Scripts
// borrow it for compilation and execution; they never own it.
type Context struct {
	Stage     stage.Stage
	Navigator Navigator
	Placement Placement
	Host      Host
	Variables expr.Variables
	Logger    *zap.Logger

	// events currently being compiled, innermost last
	compiling []*Event
}

// WithHost returns a copy of c that uses h as its host.
func (c *Context) WithHost(h Host) *Context {
	cp := *c
	cp.Host = h
	cp.compiling = nil
	return &cp
}

func (c *Context) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func orEmpty(ctx *Context) *Context {
	if ctx == nil {
		return &Context{}
	}
	return ctx
}

// Event is a script-bearing asset, referenced by identity.
type Event struct {
	ID     uuid.UUID
	Name   string
	Script Script
}

// NewEvent creates an event whose ID is derived from its name.
func NewEvent(name string, s Script) *Event {
	return &Event{
		ID:     EventID(name),
		Name:   name,
		Script: s,
	}
}

// EventID is the stable identifier of the event called name.
func EventID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("sixteen-fifty|event|"+name))
}

func (e *Event) String() string {
	if e == nil {
		return "<nil event>"
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.ID)
}

var (
	// ErrUnresolvedSubroutine is returned when a subroutine has no target script.
	ErrUnresolvedSubroutine = errors.New("subroutine target is not set")
	// ErrRecursiveSubroutine is returned when a subroutine reaches an event
	// that is already being compiled.
	ErrRecursiveSubroutine = errors.New("subroutine calls itself")
	// ErrMissingCollaborator is returned when the context lacks something the
	// script needs.
	ErrMissingCollaborator = errors.New("missing collaborator")
	// ErrInvalidArgument is returned for malformed script fields.
	ErrInvalidArgument = errors.New("invalid argument")
)

// CompilationError reports a script that cannot be compiled.
type CompilationError struct {
	Kind Kind
	Err  error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile %s script: %v", e.Kind, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

func compileError(kind Kind, err error) error {
	return &CompilationError{Kind: kind, Err: err}
}

func missing(kind Kind, what string) error {
	return compileError(kind, fmt.Errorf("%s: %w", what, ErrMissingCollaborator))
}

func invalid(kind Kind, format string, args ...any) error {
	return compileError(kind, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument))
}

// maxSeconds is the first second count a time.Duration cannot hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// seconds converts a script's second count to a duration. It fails for
// negative, NaN and unrepresentable values.
func seconds(s float64) (time.Duration, bool) {
	if math.IsNaN(s) || s < 0 || s >= maxSeconds {
		return 0, false
	}
	return time.Duration(s * float64(time.Second)), true
}

// Equal compares two possibly nil scripts.
func Equal(a, b Script) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// compileOptional compiles s, treating nil as a script that does nothing.
func compileOptional(ctx *Context, s Script) (command.Command[any], error) {
	if s == nil {
		return command.Pure[any](nil), nil
	}
	return s.Compile(ctx)
}

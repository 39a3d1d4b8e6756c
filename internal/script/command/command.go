// Package command implements the suspendable actions that compiled scripts
// are made of.
//
// A Command is stepped once per scheduling tick. Each step either suspends,
// deferring further progress to a later tick, or completes with exactly one
// value. Multi-step programs are assembled from combinators such as Then and
// Map; every suspension point is state held in the command's own fields.
package command

import (
	"fmt"
	"time"
)

// Tick is one invocation of the scheduling driver.
type Tick struct {
	Number uint64
	Delta  time.Duration
}

// Unit is the value of commands that complete without a meaningful result.
type Unit = struct{}

// Result is the outcome of a single Step: suspended, or completed with a value.
type Result[T any] struct {
	done  bool
	value T
}

// Suspend reports that the command has not finished and must be stepped again.
func Suspend[T any]() Result[T] {
	return Result[T]{}
}

// Complete reports that the command finished with value.
func Complete[T any](value T) Result[T] {
	return Result[T]{done: true, value: value}
}

// Done returns true if the command completed.
func (r Result[T]) Done() bool {
	return r.done
}

// Value returns the completion value. It is the zero value while suspended.
func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) String() string {
	if !r.done {
		return "Suspended"
	}
	return fmt.Sprintf("Completed(%v)", r.value)
}

// Command is a steppable computation yielding exactly one terminal value.
// Step must not be called again once it has returned a completed Result.
type Command[T any] interface {
	Step(t Tick) Result[T]
}

// Aborter is implemented by commands holding resources outside themselves,
// such as signal subscriptions, that must be released if the command is
// discarded before completing.
type Aborter interface {
	Abort()
}

// Abort releases c's external resources if it has any.
func Abort(c any) {
	if a, ok := c.(Aborter); ok {
		a.Abort()
	}
}

// Guard tracks whether a command has reached its terminal state and rejects
// further steps.
type Guard struct {
	done bool
}

// Check panics with a ViolationError if the command already completed.
func (g *Guard) Check(op string) {
	if g.done {
		panic(&ViolationError{Op: op, Reason: "step after completion"})
	}
}

// Close marks the command as completed.
func (g *Guard) Close() {
	g.done = true
}

// Closed returns true once Close has been called.
func (g *Guard) Closed() bool {
	return g.done
}

func finish[T any](g *Guard, value T) Result[T] {
	g.Close()
	return Complete(value)
}

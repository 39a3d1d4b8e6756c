package command

import "time"

type pure[T any] struct {
	Guard
	value T
}

// Pure returns a command that completes with value on its first step.
func Pure[T any](value T) Command[T] {
	return &pure[T]{value: value}
}

func (c *pure[T]) Step(Tick) Result[T] {
	c.Check("Pure")
	return finish(&c.Guard, c.value)
}

type effect[T any] struct {
	Guard
	fn func() T
}

// Effect returns a command that runs fn on its first step and completes with
// its result.
func Effect[T any](fn func() T) Command[T] {
	return &effect[T]{fn: fn}
}

func (c *effect[T]) Step(Tick) Result[T] {
	c.Check("Effect")
	return finish(&c.Guard, c.fn())
}

type wait struct {
	Guard
	duration time.Duration
	elapsed  time.Duration
	armed    bool
}

// Wait returns a command that suspends until the accumulated tick time
// reaches d. The tick on which it is first stepped only arms the timer; its
// delta was spent before the wait began. A non-positive d completes on the
// first step.
func Wait(d time.Duration) Command[Unit] {
	return &wait{duration: d}
}

func (c *wait) Step(t Tick) Result[Unit] {
	c.Check("Wait")
	if c.armed {
		c.elapsed += t.Delta
	}
	c.armed = true
	if c.elapsed >= c.duration {
		return finish(&c.Guard, Unit{})
	}
	return Suspend[Unit]()
}

type then[T, U any] struct {
	Guard
	first  Command[T]
	next   func(T) Command[U]
	second Command[U]
}

// Then runs c to completion, passes its value to next and runs the command
// next returns. The successor is built and stepped within the tick on which
// c completes, so sequencing adds no suspension of its own.
func Then[T, U any](c Command[T], next func(T) Command[U]) Command[U] {
	return &then[T, U]{first: c, next: next}
}

func (c *then[T, U]) Step(t Tick) Result[U] {
	c.Check("Then")
	if c.second == nil {
		r := c.first.Step(t)
		if !r.Done() {
			return Suspend[U]()
		}
		c.first = nil
		c.second = c.next(r.Value())
		if c.second == nil {
			Violation("Then", "continuation returned a nil command")
		}
	}
	r := c.second.Step(t)
	if r.Done() {
		c.Close()
	}
	return r
}

func (c *then[T, U]) Abort() {
	if c.second != nil {
		Abort(c.second)
		return
	}
	if c.first != nil {
		Abort(c.first)
	}
}

type mapped[T, U any] struct {
	Guard
	inner Command[T]
	fn    func(T) U
}

// Map transforms the completion value of c without adding suspension.
func Map[T, U any](c Command[T], fn func(T) U) Command[U] {
	return &mapped[T, U]{inner: c, fn: fn}
}

func (c *mapped[T, U]) Step(t Tick) Result[U] {
	c.Check("Map")
	r := c.inner.Step(t)
	if !r.Done() {
		return Suspend[U]()
	}
	return finish(&c.Guard, c.fn(r.Value()))
}

func (c *mapped[T, U]) Abort() {
	Abort(c.inner)
}

// Erase widens the completion value of c to any.
func Erase[T any](c Command[T]) Command[any] {
	if same, ok := any(c).(Command[any]); ok {
		return same
	}
	return Map(c, func(v T) any { return v })
}

type call[T any] struct {
	Guard
	nested Command[T]
	depth  int
}

// Call drives an already compiled nested command to completion and then
// completes with its value. The nested command is stepped as part of the
// caller's step; it is never scheduled on its own.
func Call[T any](nested Command[T]) Command[T] {
	depth := 1
	if inner, ok := nested.(*call[T]); ok {
		depth = inner.depth + 1
	}
	return &call[T]{nested: nested, depth: depth}
}

// Depth reports how many Call frames wrap c.
func Depth[T any](c Command[T]) int {
	if cl, ok := c.(*call[T]); ok {
		return cl.depth
	}
	return 0
}

func (c *call[T]) Step(t Tick) Result[T] {
	c.Check("Call")
	r := c.nested.Step(t)
	if r.Done() {
		c.Close()
	}
	return r
}

func (c *call[T]) Abort() {
	Abort(c.nested)
}

type sequence struct {
	Guard
	steps []Command[any]
	index int
	last  any
}

// Sequence runs cs in order and completes with the value of the last one.
// Each command starts within the tick on which its predecessor completes.
// An empty sequence completes with nil on its first step.
func Sequence(cs ...Command[any]) Command[any] {
	return &sequence{steps: append([]Command[any](nil), cs...)}
}

func (c *sequence) Step(t Tick) Result[any] {
	c.Check("Sequence")
	for c.index < len(c.steps) {
		r := c.steps[c.index].Step(t)
		if !r.Done() {
			return Suspend[any]()
		}
		c.last = r.Value()
		c.steps[c.index] = nil
		c.index++
	}
	return finish(&c.Guard, c.last)
}

func (c *sequence) Abort() {
	if c.index < len(c.steps) {
		Abort(c.steps[c.index])
	}
}

type signalWait[T any] struct {
	Guard
	subscribe func(deliver func(T)) (cancel func())
	cancel    func()
	fired     bool
	value     T
}

// WaitSignal returns a command that subscribes on its first step and
// suspends until the subscription delivers a value. Values delivered between
// ticks are observed on the next step. Only the first delivery counts; the
// subscription is cancelled on completion or abort.
func WaitSignal[T any](subscribe func(deliver func(T)) (cancel func())) Command[T] {
	return &signalWait[T]{subscribe: subscribe}
}

func (c *signalWait[T]) Step(Tick) Result[T] {
	c.Check("WaitSignal")
	if c.cancel == nil && !c.fired {
		c.cancel = c.subscribe(func(v T) {
			if c.fired || c.Closed() {
				return
			}
			c.fired = true
			c.value = v
		})
	}
	if !c.fired {
		return Suspend[T]()
	}
	c.release()
	return finish(&c.Guard, c.value)
}

func (c *signalWait[T]) Abort() {
	c.release()
	c.Close()
}

func (c *signalWait[T]) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

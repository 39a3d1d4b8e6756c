package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drive steps c with a fixed delta until it completes and returns the value
// and the number of steps taken.
func drive[T any](t *testing.T, c Command[T], delta time.Duration, limit int) (T, int) {
	t.Helper()
	for i := 1; i <= limit; i++ {
		r := c.Step(Tick{Number: uint64(i), Delta: delta})
		if r.Done() {
			return r.Value(), i
		}
	}
	t.Fatalf("command did not complete within %d steps", limit)
	var zero T
	return zero, limit
}

func TestResult(t *testing.T) {
	s := Suspend[int]()
	assert.False(t, s.Done())
	assert.Equal(t, 0, s.Value())
	assert.Equal(t, "Suspended", s.String())

	c := Complete(7)
	assert.True(t, c.Done())
	assert.Equal(t, 7, c.Value())
	assert.Equal(t, "Completed(7)", c.String())
}

func TestPureAndEffect(t *testing.T) {
	v, steps := drive(t, Pure("done"), time.Millisecond, 1)
	assert.Equal(t, "done", v)
	assert.Equal(t, 1, steps)

	ran := 0
	eff := Effect(func() int {
		ran++
		return 3
	})
	v2, _ := drive(t, eff, time.Millisecond, 1)
	assert.Equal(t, 3, v2)
	assert.Equal(t, 1, ran)
}

func TestStepAfterCompletionPanics(t *testing.T) {
	tests := []struct {
		name string
		op   string
		cmd  Command[any]
	}{
		{name: "pure", op: "Pure", cmd: Pure[any](1)},
		{name: "effect", op: "Effect", cmd: Effect(func() any { return nil })},
		{name: "erased wait", op: "Map", cmd: Erase(Wait(0))},
		{name: "then", op: "Then", cmd: Then(Pure[any](1), func(v any) Command[any] { return Pure(v) })},
		{name: "map", op: "Map", cmd: Map(Pure(1), func(v int) any { return v })},
		{name: "call", op: "Call", cmd: Call(Pure[any](1))},
		{name: "sequence", op: "Sequence", cmd: Sequence()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, tt.cmd.Step(Tick{Number: 1}).Done())
			assert.PanicsWithError(t, "scheduling violation in "+tt.op+": step after completion", func() {
				tt.cmd.Step(Tick{Number: 2})
			})
		})
	}
}

func TestWaitSuspendsForMinimumTicks(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		delta     time.Duration
		suspended int
	}{
		{name: "exact multiple", duration: 300 * time.Millisecond, delta: 100 * time.Millisecond, suspended: 3},
		{name: "rounds up", duration: 250 * time.Millisecond, delta: 100 * time.Millisecond, suspended: 3},
		{name: "shorter than tick", duration: 10 * time.Millisecond, delta: 100 * time.Millisecond, suspended: 1},
		{name: "zero", duration: 0, delta: 100 * time.Millisecond, suspended: 0},
		{name: "negative", duration: -time.Second, delta: 100 * time.Millisecond, suspended: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, steps := drive(t, Wait(tt.duration), tt.delta, 100)
			assert.Equal(t, tt.suspended, steps-1)
		})
	}
}

func TestThenRunsSuccessorOnlyAfterDelay(t *testing.T) {
	const delta = 100 * time.Millisecond
	var accumulated time.Duration
	var successorFirstStep time.Duration = -1

	c := Then(Wait(250*time.Millisecond), func(Unit) Command[string] {
		return Effect(func() string {
			successorFirstStep = accumulated
			return "after"
		})
	})

	for i := 1; ; i++ {
		if i > 1 {
			accumulated += delta
		}
		r := c.Step(Tick{Number: uint64(i), Delta: delta})
		if r.Done() {
			assert.Equal(t, "after", r.Value())
			assert.Equal(t, 4, i)
			break
		}
		require.Less(t, i, 10)
	}
	assert.GreaterOrEqual(t, successorFirstStep, 250*time.Millisecond)
}

func TestThenFeedsValue(t *testing.T) {
	c := Then(Pure(2), func(v int) Command[int] {
		return Map(Pure(v), func(x int) int { return x * 10 })
	})
	v, steps := drive(t, c, time.Millisecond, 5)
	assert.Equal(t, 20, v)
	assert.Equal(t, 1, steps)
}

func TestThenNilContinuationPanics(t *testing.T) {
	c := Then(Pure(1), func(int) Command[int] { return nil })
	assert.Panics(t, func() { c.Step(Tick{}) })
}

func TestMapAddsNoSuspension(t *testing.T) {
	c := Map(Wait(100*time.Millisecond), func(Unit) string { return "mapped" })
	v, steps := drive(t, c, 100*time.Millisecond, 5)
	assert.Equal(t, "mapped", v)
	assert.Equal(t, 2, steps)
}

func TestCallDrivesNestedCommand(t *testing.T) {
	nested := Then(Wait(200*time.Millisecond), func(Unit) Command[int] { return Pure(42) })
	c := Call(Call(nested))
	assert.Equal(t, 2, Depth(c))
	assert.Equal(t, 0, Depth(nested))

	v, steps := drive(t, c, 100*time.Millisecond, 10)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, steps)
}

func TestSequence(t *testing.T) {
	var order []int
	record := func(n int) Command[any] {
		return Effect(func() any {
			order = append(order, n)
			return n
		})
	}
	c := Sequence(record(1), Erase(Wait(100*time.Millisecond)), record(2), record(3))

	r := c.Step(Tick{Number: 1, Delta: 100 * time.Millisecond})
	assert.False(t, r.Done())
	assert.Equal(t, []int{1}, order)

	r = c.Step(Tick{Number: 2, Delta: 100 * time.Millisecond})
	require.True(t, r.Done())
	assert.Equal(t, 3, r.Value())
	assert.Equal(t, []int{1, 2, 3}, order)

	empty := Sequence()
	r = empty.Step(Tick{})
	require.True(t, r.Done())
	assert.Nil(t, r.Value())
}

type testSource struct {
	listeners map[int]func(string)
	next      int
}

func (s *testSource) subscribe(deliver func(string)) func() {
	if s.listeners == nil {
		s.listeners = make(map[int]func(string))
	}
	h := s.next
	s.next++
	s.listeners[h] = deliver
	return func() { delete(s.listeners, h) }
}

func (s *testSource) fire(v string) {
	for _, l := range s.listeners {
		l(v)
	}
}

func TestWaitSignal(t *testing.T) {
	src := &testSource{}
	c := WaitSignal(src.subscribe)

	// a value before the first step is not observed
	src.fire("early")
	assert.False(t, c.Step(Tick{Number: 1}).Done())
	assert.Len(t, src.listeners, 1)

	assert.False(t, c.Step(Tick{Number: 2}).Done())

	src.fire("click")
	src.fire("second")
	r := c.Step(Tick{Number: 3})
	require.True(t, r.Done())
	assert.Equal(t, "click", r.Value())
	assert.Empty(t, src.listeners)
}

func TestAbortReleasesSubscription(t *testing.T) {
	src := &testSource{}
	c := Then(Pure(1), func(int) Command[string] { return WaitSignal(src.subscribe) })
	assert.False(t, c.Step(Tick{Number: 1}).Done())
	require.Len(t, src.listeners, 1)

	Abort(c)
	assert.Empty(t, src.listeners)

	// commands without resources ignore Abort
	Abort(Pure(1))
}

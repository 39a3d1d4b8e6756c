// Package expr holds the small expression language used by branching and
// variable-setting scripts.
package expr

import (
	"fmt"
	"sort"
	"sync"
)

// Variables is the store expressions read from and scripts write to.
// Unset variables read as zero.
type Variables interface {
	Int(name string) int
	SetInt(name string, value int)
}

// Store is a Variables implementation backed by a map.
type Store struct {
	mu   sync.RWMutex
	ints map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{ints: make(map[string]int)}
}

// Int returns the value of name, or zero.
func (s *Store) Int(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ints[name]
}

// SetInt assigns name.
func (s *Store) SetInt(name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[name] = value
}

// Names returns the assigned variable names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.ints))
	for name := range s.ints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expression evaluates to a T against a variable store. Two expressions are
// Equal when they denote the same computation.
type Expression[T any] interface {
	Evaluate(vars Variables) T
	Equal(other Expression[T]) bool
	String() string
}

// Constant is a literal value.
type Constant[T comparable] struct {
	Value T
}

func (c Constant[T]) Evaluate(Variables) T { return c.Value }

func (c Constant[T]) Equal(other Expression[T]) bool {
	o, ok := other.(Constant[T])
	return ok && o.Value == c.Value
}

func (c Constant[T]) String() string { return fmt.Sprint(c.Value) }

// IntVar reads an integer variable.
type IntVar struct {
	Name string
}

func (v IntVar) Evaluate(vars Variables) int { return vars.Int(v.Name) }

func (v IntVar) Equal(other Expression[int]) bool {
	o, ok := other.(IntVar)
	return ok && o.Name == v.Name
}

func (v IntVar) String() string { return "$" + v.Name }

// Flag is true when the named variable is non-zero.
type Flag struct {
	Name string
}

func (f Flag) Evaluate(vars Variables) bool { return vars.Int(f.Name) != 0 }

func (f Flag) Equal(other Expression[bool]) bool {
	o, ok := other.(Flag)
	return ok && o.Name == f.Name
}

func (f Flag) String() string { return "?" + f.Name }

// Not negates a boolean expression.
type Not struct {
	Inner Expression[bool]
}

func (n Not) Evaluate(vars Variables) bool { return !n.Inner.Evaluate(vars) }

func (n Not) Equal(other Expression[bool]) bool {
	o, ok := other.(Not)
	return ok && n.Inner.Equal(o.Inner)
}

func (n Not) String() string { return "!" + n.Inner.String() }

// Add sums two integer expressions.
type Add struct {
	Left, Right Expression[int]
}

func (a Add) Evaluate(vars Variables) int { return a.Left.Evaluate(vars) + a.Right.Evaluate(vars) }

func (a Add) Equal(other Expression[int]) bool {
	o, ok := other.(Add)
	return ok && a.Left.Equal(o.Left) && a.Right.Equal(o.Right)
}

func (a Add) String() string { return "(" + a.Left.String() + " + " + a.Right.String() + ")" }

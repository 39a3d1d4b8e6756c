package script

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/script/expr"
)

// Subroutine runs the script of another event and completes with its result.
type Subroutine struct {
	Target *Event
}

func (s Subroutine) Kind() Kind { return KindSubroutine }

func (s Subroutine) Equal(other Script) bool {
	o, ok := other.(Subroutine)
	if !ok {
		return false
	}
	if s.Target == nil || o.Target == nil {
		return s.Target == nil && o.Target == nil
	}
	return s.Target.ID == o.Target.ID
}

func (s Subroutine) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if s.Target == nil || s.Target.Script == nil {
		return nil, compileError(KindSubroutine, ErrUnresolvedSubroutine)
	}
	for _, e := range ctx.compiling {
		if e.ID == s.Target.ID {
			return nil, compileError(KindSubroutine, fmt.Errorf("%q: %w", s.Target.Name, ErrRecursiveSubroutine))
		}
	}

	ctx.compiling = append(ctx.compiling, s.Target)
	defer func() { ctx.compiling = ctx.compiling[:len(ctx.compiling)-1] }()

	nested, err := s.Target.Script.Compile(ctx)
	if err != nil {
		return nil, compileError(KindSubroutine, fmt.Errorf("target %q: %w", s.Target.Name, err))
	}
	ctx.logger().Debug("compiled subroutine",
		zap.String("target", s.Target.Name),
		zap.Int("depth", len(ctx.compiling)),
	)
	return command.Call(nested), nil
}

// Delay waits for a number of seconds of tick time.
type Delay struct {
	Seconds float64
}

func (d Delay) Kind() Kind { return KindDelay }

func (d Delay) Equal(other Script) bool {
	o, ok := other.(Delay)
	return ok && o.Seconds == d.Seconds
}

func (d Delay) Compile(*Context) (command.Command[any], error) {
	dur, ok := seconds(d.Seconds)
	if !ok {
		return nil, invalid(KindDelay, "seconds %v", d.Seconds)
	}
	return command.Erase(command.Wait(dur)), nil
}

// Duration returns the delay as a time.Duration, saturating at the longest
// representable duration.
func (d Delay) Duration() time.Duration {
	if d.Seconds >= maxSeconds {
		return math.MaxInt64
	}
	return time.Duration(d.Seconds * float64(time.Second))
}

// Block runs its steps one after another and completes with the value of the
// last one.
type Block struct {
	Steps []Script
}

func (b Block) Kind() Kind { return KindBlock }

func (b Block) Equal(other Script) bool {
	o, ok := other.(Block)
	if !ok || len(o.Steps) != len(b.Steps) {
		return false
	}
	for i := range b.Steps {
		if !Equal(b.Steps[i], o.Steps[i]) {
			return false
		}
	}
	return true
}

func (b Block) Compile(ctx *Context) (command.Command[any], error) {
	cmds := make([]command.Command[any], 0, len(b.Steps))
	for i, step := range b.Steps {
		if step == nil {
			return nil, invalid(KindBlock, "step %d is empty", i)
		}
		cmd, err := step.Compile(ctx)
		if err != nil {
			return nil, compileError(KindBlock, fmt.Errorf("step %d: %w", i, err))
		}
		cmds = append(cmds, cmd)
	}
	return command.Sequence(cmds...), nil
}

// Branch runs Then when Condition holds at the moment it is reached, and Else
// otherwise. Either branch may be nil.
type Branch struct {
	Condition expr.Expression[bool]
	Then      Script
	Else      Script
}

func (b Branch) Kind() Kind { return KindBranch }

func (b Branch) Equal(other Script) bool {
	o, ok := other.(Branch)
	if !ok {
		return false
	}
	if b.Condition == nil || o.Condition == nil {
		if b.Condition != nil || o.Condition != nil {
			return false
		}
	} else if !b.Condition.Equal(o.Condition) {
		return false
	}
	return Equal(b.Then, o.Then) && Equal(b.Else, o.Else)
}

func (b Branch) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if b.Condition == nil {
		return nil, invalid(KindBranch, "condition is not set")
	}
	if ctx.Variables == nil {
		return nil, missing(KindBranch, "variables")
	}
	thenCmd, err := compileOptional(ctx, b.Then)
	if err != nil {
		return nil, compileError(KindBranch, fmt.Errorf("then: %w", err))
	}
	elseCmd, err := compileOptional(ctx, b.Else)
	if err != nil {
		return nil, compileError(KindBranch, fmt.Errorf("else: %w", err))
	}

	vars, cond, logger := ctx.Variables, b.Condition, ctx.logger()
	test := command.Effect(func() bool {
		result := cond.Evaluate(vars)
		logger.Debug("branch", zap.Stringer("condition", cond), zap.Bool("result", result))
		return result
	})
	return command.Then(test, func(taken bool) command.Command[any] {
		if taken {
			return thenCmd
		}
		return elseCmd
	}), nil
}

// SetVariable assigns the value of an expression to a variable and completes
// with that value.
type SetVariable struct {
	Name  string
	Value expr.Expression[int]
}

func (s SetVariable) Kind() Kind { return KindSetVariable }

func (s SetVariable) Equal(other Script) bool {
	o, ok := other.(SetVariable)
	if !ok || o.Name != s.Name {
		return false
	}
	if s.Value == nil || o.Value == nil {
		return s.Value == nil && o.Value == nil
	}
	return s.Value.Equal(o.Value)
}

func (s SetVariable) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if s.Name == "" {
		return nil, invalid(KindSetVariable, "variable name is empty")
	}
	if s.Value == nil {
		return nil, invalid(KindSetVariable, "value of %q is not set", s.Name)
	}
	if ctx.Variables == nil {
		return nil, missing(KindSetVariable, "variables")
	}
	vars, name, value := ctx.Variables, s.Name, s.Value
	return command.Effect(func() any {
		v := value.Evaluate(vars)
		vars.SetInt(name, v)
		return v
	}), nil
}

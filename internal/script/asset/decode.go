package asset

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/expr"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

var (
	ErrUnknownVariant = errors.New("unknown script variant")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMalformed      = errors.New("malformed asset")
)

// Decoder turns YAML nodes into scripts. Subroutine targets are resolved
// against the events of the library being loaded.
type Decoder struct {
	registry *Registry
	events   map[string]*script.Event
}

func malformed(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", n.Line, fmt.Sprintf(format, args...), ErrMalformed)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// single splits a one-key mapping into its key and value.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		line := 0
		if n != nil {
			line = n.Line
		}
		return "", nil, fmt.Errorf("line %d: expected a mapping with exactly one key: %w", line, ErrMalformed)
	}
	return n.Content[0].Value, resolve(n.Content[1]), nil
}

// Script decodes a script node of the form {tag: body}.
func (d *Decoder) Script(n *yaml.Node) (script.Script, error) {
	tag, body, err := single(n)
	if err != nil {
		return nil, err
	}
	v, ok := d.registry.Lookup(script.Kind(tag))
	if !ok {
		return nil, fmt.Errorf("line %d: %q: %w", n.Line, tag, ErrUnknownVariant)
	}
	return v.Decode(d, body)
}

// Event returns the event of the library called name.
func (d *Decoder) Event(name string) (*script.Event, bool) {
	e, ok := d.events[name]
	return e, ok
}

// Int decodes an integer expression: a literal, a $variable or {add: [a, b]}.
func (d *Decoder) Int(n *yaml.Node) (expr.Expression[int], error) {
	n = resolve(n)
	if n == nil {
		return nil, fmt.Errorf("missing integer expression: %w", ErrMalformed)
	}
	if n.Kind == yaml.ScalarNode {
		if name, ok := strings.CutPrefix(n.Value, "$"); ok && name != "" {
			return expr.IntVar{Name: name}, nil
		}
		var v int
		if err := n.Decode(&v); err != nil {
			return nil, malformed(n, "integer %q", n.Value)
		}
		return expr.Constant[int]{Value: v}, nil
	}

	op, body, err := single(n)
	if err != nil {
		return nil, err
	}
	switch op {
	case "add":
		if body.Kind != yaml.SequenceNode || len(body.Content) != 2 {
			return nil, malformed(body, "add takes two operands")
		}
		left, err := d.Int(body.Content[0])
		if err != nil {
			return nil, err
		}
		right, err := d.Int(body.Content[1])
		if err != nil {
			return nil, err
		}
		return expr.Add{Left: left, Right: right}, nil
	default:
		return nil, malformed(n, "unknown integer operator %q", op)
	}
}

// Bool decodes a condition: a literal, {flag: name}, {not: cond} or
// {compare: [left, op, right]}.
func (d *Decoder) Bool(n *yaml.Node) (expr.Expression[bool], error) {
	n = resolve(n)
	if n == nil {
		return nil, fmt.Errorf("missing condition: %w", ErrMalformed)
	}
	if n.Kind == yaml.ScalarNode {
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, malformed(n, "boolean %q", n.Value)
		}
		return expr.Constant[bool]{Value: v}, nil
	}

	op, body, err := single(n)
	if err != nil {
		return nil, err
	}
	switch op {
	case "flag":
		if body.Kind != yaml.ScalarNode || body.Value == "" {
			return nil, malformed(body, "flag name")
		}
		return expr.Flag{Name: body.Value}, nil
	case "not":
		inner, err := d.Bool(body)
		if err != nil {
			return nil, err
		}
		return expr.Not{Inner: inner}, nil
	case "compare":
		if body.Kind != yaml.SequenceNode || len(body.Content) != 3 {
			return nil, malformed(body, "compare takes [left, operator, right]")
		}
		left, err := d.Int(body.Content[0])
		if err != nil {
			return nil, err
		}
		operator, err := expr.ParseOperator(resolve(body.Content[1]).Value)
		if err != nil {
			return nil, malformed(body.Content[1], "%v", err)
		}
		right, err := d.Int(body.Content[2])
		if err != nil {
			return nil, err
		}
		return expr.Compare{Left: left, Op: operator, Right: right}, nil
	default:
		return nil, malformed(n, "unknown condition %q", op)
	}
}

func decodeSubroutine(d *Decoder, body *yaml.Node) (script.Script, error) {
	if body.Kind != yaml.ScalarNode || body.Value == "" {
		return nil, malformed(body, "subroutine takes an event name")
	}
	target, ok := d.Event(body.Value)
	if !ok {
		return nil, fmt.Errorf("line %d: %q: %w", body.Line, body.Value, ErrUnknownEvent)
	}
	return script.Subroutine{Target: target}, nil
}

func decodeDelay(_ *Decoder, body *yaml.Node) (script.Script, error) {
	var seconds float64
	if err := body.Decode(&seconds); err != nil {
		return nil, malformed(body, "delay takes a number of seconds")
	}
	return script.Delay{Seconds: seconds}, nil
}

func decodeBlock(d *Decoder, body *yaml.Node) (script.Script, error) {
	if body.Kind != yaml.SequenceNode {
		return nil, malformed(body, "block takes a list of scripts")
	}
	steps := make([]script.Script, 0, len(body.Content))
	for _, n := range body.Content {
		s, err := d.Script(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return script.Block{Steps: steps}, nil
}

func decodeDialogue(_ *Decoder, body *yaml.Node) (script.Script, error) {
	var lines []string
	switch body.Kind {
	case yaml.ScalarNode:
		lines = []string{body.Value}
	case yaml.SequenceNode:
		if err := body.Decode(&lines); err != nil {
			return nil, malformed(body, "dialogue lines: %v", err)
		}
	default:
		return nil, malformed(body, "dialogue takes a line or a list of lines")
	}
	return script.Dialogue{Lines: lines}, nil
}

func decodeShowSpeaker(_ *Decoder, body *yaml.Node) (script.Script, error) {
	var doc struct {
		Name        string  `yaml:"name"`
		Position    float64 `yaml:"position"`
		Orientation string  `yaml:"orientation"`
	}
	if err := body.Decode(&doc); err != nil {
		return nil, malformed(body, "show_speaker: %v", err)
	}
	orientation, err := stage.ParseOrientation(doc.Orientation)
	if err != nil {
		return nil, malformed(body, "%v", err)
	}
	return script.ShowSpeaker{Name: doc.Name, Position: doc.Position, Orientation: orientation}, nil
}

func decodeHideSpeaker(_ *Decoder, body *yaml.Node) (script.Script, error) {
	if body.Kind != yaml.ScalarNode {
		return nil, malformed(body, "hide_speaker takes a speaker name")
	}
	return script.HideSpeaker{Name: body.Value}, nil
}

func decodeBranch(d *Decoder, body *yaml.Node) (script.Script, error) {
	var doc struct {
		If   yaml.Node `yaml:"if"`
		Then yaml.Node `yaml:"then"`
		Else yaml.Node `yaml:"else"`
	}
	if err := body.Decode(&doc); err != nil {
		return nil, malformed(body, "branch: %v", err)
	}
	if doc.If.Kind == 0 {
		return nil, malformed(body, "branch without a condition")
	}
	cond, err := d.Bool(&doc.If)
	if err != nil {
		return nil, err
	}
	b := script.Branch{Condition: cond}
	if doc.Then.Kind != 0 {
		if b.Then, err = d.Script(&doc.Then); err != nil {
			return nil, err
		}
	}
	if doc.Else.Kind != 0 {
		if b.Else, err = d.Script(&doc.Else); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func decodeSetVariable(d *Decoder, body *yaml.Node) (script.Script, error) {
	var doc struct {
		Name  string    `yaml:"name"`
		Value yaml.Node `yaml:"value"`
	}
	if err := body.Decode(&doc); err != nil {
		return nil, malformed(body, "set_variable: %v", err)
	}
	if doc.Value.Kind == 0 {
		return nil, malformed(body, "set_variable %q without a value", doc.Name)
	}
	value, err := d.Int(&doc.Value)
	if err != nil {
		return nil, err
	}
	return script.SetVariable{Name: doc.Name, Value: value}, nil
}

func decodeMoveEntity(_ *Decoder, body *yaml.Node) (script.Script, error) {
	var doc struct {
		Entity string `yaml:"entity"`
		To     struct {
			Col int `yaml:"col"`
			Row int `yaml:"row"`
		} `yaml:"to"`
		StepSeconds float64 `yaml:"step_seconds"`
	}
	if err := body.Decode(&doc); err != nil {
		return nil, malformed(body, "move_entity: %v", err)
	}
	return script.MoveEntity{
		Entity:      doc.Entity,
		Destination: hexmap.FromOffset(doc.To.Col, doc.To.Row),
		StepSeconds: doc.StepSeconds,
	}, nil
}

package expr

import "fmt"

// Operator is an integer comparison.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// ParseOperator validates an operator spelling.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return op, nil
	default:
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
}

// Apply compares l and r.
func (op Operator) Apply(l, r int) bool {
	switch op {
	case OpEqual:
		return l == r
	case OpNotEqual:
		return l != r
	case OpLess:
		return l < r
	case OpLessEqual:
		return l <= r
	case OpGreater:
		return l > r
	case OpGreaterEqual:
		return l >= r
	default:
		return false
	}
}

// Compare tests two integer expressions.
type Compare struct {
	Left  Expression[int]
	Op    Operator
	Right Expression[int]
}

func (c Compare) Evaluate(vars Variables) bool {
	return c.Op.Apply(c.Left.Evaluate(vars), c.Right.Evaluate(vars))
}

func (c Compare) Equal(other Expression[bool]) bool {
	o, ok := other.(Compare)
	return ok && c.Op == o.Op && c.Left.Equal(o.Left) && c.Right.Equal(o.Right)
}

func (c Compare) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

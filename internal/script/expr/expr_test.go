package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Int("missing"))
	s.SetInt("gold", 5)
	s.SetInt("met_elder", 1)
	assert.Equal(t, 5, s.Int("gold"))
	assert.Equal(t, []string{"gold", "met_elder"}, s.Names())
}

func TestEvaluate(t *testing.T) {
	s := NewStore()
	s.SetInt("gold", 12)
	s.SetInt("met_elder", 1)

	tests := []struct {
		name string
		expr Expression[bool]
		want bool
	}{
		{"constant", Constant[bool]{Value: true}, true},
		{"flag set", Flag{Name: "met_elder"}, true},
		{"flag unset", Flag{Name: "met_king"}, false},
		{"not", Not{Inner: Flag{Name: "met_king"}}, true},
		{"greater", Compare{Left: IntVar{Name: "gold"}, Op: OpGreater, Right: Constant[int]{Value: 10}}, true},
		{"less equal", Compare{Left: IntVar{Name: "gold"}, Op: OpLessEqual, Right: Constant[int]{Value: 10}}, false},
		{"sum", Compare{
			Left:  Add{Left: IntVar{Name: "gold"}, Right: Constant[int]{Value: 3}},
			Op:    OpEqual,
			Right: Constant[int]{Value: 15},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.Evaluate(s))
		})
	}
}

func TestEqual(t *testing.T) {
	a := Compare{Left: IntVar{Name: "gold"}, Op: OpGreater, Right: Constant[int]{Value: 10}}
	b := Compare{Left: IntVar{Name: "gold"}, Op: OpGreater, Right: Constant[int]{Value: 10}}
	c := Compare{Left: IntVar{Name: "gold"}, Op: OpLess, Right: Constant[int]{Value: 10}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Flag{Name: "gold"}))
	assert.True(t, Not{Inner: Flag{Name: "x"}}.Equal(Not{Inner: Flag{Name: "x"}}))
	assert.False(t, Constant[int]{Value: 1}.Equal(IntVar{Name: "1"}))
}

func TestParseOperator(t *testing.T) {
	for _, s := range []string{"==", "!=", "<", "<=", ">", ">="} {
		op, err := ParseOperator(s)
		require.NoError(t, err)
		assert.Equal(t, Operator(s), op)
	}
	_, err := ParseOperator("=~")
	assert.Error(t, err)
	assert.False(t, Operator("?").Apply(1, 1))
}

func TestString(t *testing.T) {
	e := Compare{Left: Add{Left: IntVar{Name: "a"}, Right: Constant[int]{Value: 2}}, Op: OpGreaterEqual, Right: Constant[int]{Value: 4}}
	assert.Equal(t, "($a + 2) >= 4", e.String())
	assert.Equal(t, "!?seen", Not{Inner: Flag{Name: "seen"}}.String())
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"cursor":   Overwrite,
		"root":     FirstWins,
		"findings": Append,
	}
}

func TestState_SetIsImmutable(t *testing.T) {
	s1 := NewState(testSchema())
	s2 := s1.Set("cursor", 1)

	_, ok := s1.Get("cursor")
	assert.False(t, ok, "original state must be unchanged")

	v, ok := s2.Get("cursor")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestState_FirstWins(t *testing.T) {
	s := NewState(testSchema())
	s = s.Set("root", "/data")
	s = s.Set("root", "/other")

	v, _ := s.Get("root")
	assert.Equal(t, "/data", v, "later writes to a first-wins field are discarded")
}

func TestState_AppendTo(t *testing.T) {
	s := NewState(testSchema())
	s = s.AppendTo("findings", "a")
	s = s.AppendTo("findings", "b", "c")

	assert.Equal(t, []any{"a", "b", "c"}, s.Seq("findings"))
}

func TestState_SetUndeclaredFieldPanics(t *testing.T) {
	s := NewState(testSchema())
	assert.Panics(t, func() { s.Set("nope", 1) })
	assert.Panics(t, func() { s.Set("findings", 1) })
	assert.Panics(t, func() { s.AppendTo("cursor", 1) })
}

func TestMerge_AppendConcatenatesAllBranches(t *testing.T) {
	base := NewState(testSchema()).AppendTo("findings", "base")

	br1 := base.AppendTo("findings", "x1", "x2")
	br2 := base.AppendTo("findings", "y1", "y2", "y3")

	// Completion order br2 then br1: 1 base + 3 + 2 = 6 items either way.
	out := merge(base, []State{br2, br1})
	seq := out.Seq("findings")
	require.Len(t, seq, 6)
	assert.Equal(t, "base", seq[0])
	assert.ElementsMatch(t, []any{"x1", "x2", "y1", "y2", "y3"}, seq[1:])

	// Opposite completion order yields the same item count.
	out2 := merge(base, []State{br1, br2})
	assert.Len(t, out2.Seq("findings"), 6)
}

func TestMerge_FirstWinsKeepsEarliest(t *testing.T) {
	base := NewState(testSchema())
	br1 := base.Set("root", "/first")
	br2 := base.Set("root", "/second")

	out := merge(base, []State{br1, br2})
	v, _ := out.Get("root")
	assert.Equal(t, "/first", v)
}

func TestMerge_FirstWinsPreForkValueSticks(t *testing.T) {
	base := NewState(testSchema()).Set("root", "/original")
	br := base.Set("root", "/clobber") // no-op per policy

	out := merge(base, []State{br})
	v, _ := out.Get("root")
	assert.Equal(t, "/original", v)
}

func TestMerge_OverwriteTakesBranchValue(t *testing.T) {
	base := NewState(testSchema()).Set("cursor", 0)
	br := base.Set("cursor", 42)

	out := merge(base, []State{br})
	v, _ := out.Get("cursor")
	assert.Equal(t, 42, v)
}

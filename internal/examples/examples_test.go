package examples_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/examples"
	"xic/internal/ir"
)

func TestNamesMatchLookup(t *testing.T) {
	for _, name := range examples.Names() {
		unit, ok := examples.Lookup(name)
		assert.True(t, ok, "Names lists %q but Lookup rejects it", name)
		assert.NotEmpty(t, unit.Funcs)
	}
}

func TestLookupUnknownNameFails(t *testing.T) {
	_, ok := examples.Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestFactorialHasOneRecursiveCall(t *testing.T) {
	unit, ok := examples.Lookup("factorial")
	assert.True(t, ok)
	assert.Len(t, unit.Funcs, 1)

	fn := unit.Funcs[0]
	var calls int
	for _, s := range fn.Stmts {
		if call, ok := s.(ir.StmtCall); ok {
			calls++
			assert.Equal(t, ir.ExprImm{Imm: ir.ImmLabel(fn.Name)}, call.Func, "factorial should recurse into itself")
		}
	}
	assert.Equal(t, 1, calls)
}

func TestSumloopHasABackEdge(t *testing.T) {
	unit, ok := examples.Lookup("sumloop")
	assert.True(t, ok)
	fn := unit.Funcs[0]

	var jumps, labels int
	for _, s := range fn.Stmts {
		switch s.(type) {
		case ir.StmtJump:
			jumps++
		case ir.StmtLabel:
			labels++
		}
	}
	assert.Greater(t, jumps, 0)
	assert.Greater(t, labels, 0)
}

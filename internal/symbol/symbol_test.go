package symbol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/symbol"
)

func TestInternRoundTrip(t *testing.T) {
	a := symbol.Intern("foo")
	b := symbol.Intern("foo")
	c := symbol.Intern("bar")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "foo", symbol.Resolve(a))
}

func TestFixedLabelStable(t *testing.T) {
	l1 := symbol.FixedLabel("_Imain_paai")
	l2 := symbol.FixedLabel("_Imain_paai")
	assert.True(t, l1.Equal(l2))
	assert.Equal(t, "_Imain_paai", l1.String())
}

func TestFreshLabelUnique(t *testing.T) {
	l1 := symbol.FreshLabel("tmp")
	l2 := symbol.FreshLabel("tmp")
	assert.False(t, l1.Equal(l2))
	assert.NotEqual(t, l1.String(), l2.String())
}

func TestFreshTempUnique(t *testing.T) {
	t1 := symbol.FreshTemp("t")
	t2 := symbol.FreshTemp("t")
	assert.False(t, t1.Equal(t2))
}

func TestPhysicalTempIsPhysical(t *testing.T) {
	p := symbol.PhysicalTemp(symbol.RAX)
	assert.True(t, p.IsPhysical())
	assert.Equal(t, symbol.RAX, p.Reg)
	assert.Equal(t, "rax", symbol.RAX.String())
}

func TestNumPhysRegs(t *testing.T) {
	assert.EqualValues(t, 16, symbol.NumPhysRegs)
}

package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/util"
)

func TestAssertPanicsOnFalse(t *testing.T) {
	assert.Panics(t, func() { util.Assert(false, "boom %d", 1) })
	assert.NotPanics(t, func() { util.Assert(true, "fine") })
}

func TestRoundUp(t *testing.T) {
	assert.EqualValues(t, 16, util.RoundUp(int64(1), int64(16)))
	assert.EqualValues(t, 16, util.RoundUp(int64(16), int64(16)))
	assert.EqualValues(t, 32, util.RoundUp(int64(17), int64(16)))
	assert.Equal(t, 0, util.RoundUp(0, 8))
}

func TestInsertAndRemoveAt(t *testing.T) {
	s := []int{1, 2, 4}
	s = util.InsertAt(s, 2, 3)
	assert.Equal(t, []int{1, 2, 3, 4}, s)
	s = util.RemoveAt(s, 0)
	assert.Equal(t, []int{2, 3, 4}, s)
}

func TestReverse(t *testing.T) {
	s := []int{1, 2, 3, 4}
	util.Reverse(s)
	assert.Equal(t, []int{4, 3, 2, 1}, s)
}

func TestSet(t *testing.T) {
	s := util.NewSet[string]("a", "b")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("c"))
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Contains("a"))
	assert.ElementsMatch(t, []string{"b", "c"}, s.Slice())
}

func TestBitMap(t *testing.T) {
	bm := util.NewBitMap(70)
	bm.Set(3)
	bm.Set(65)
	assert.True(t, bm.IsSet(3))
	assert.True(t, bm.IsSet(65))
	assert.False(t, bm.IsSet(4))
	assert.Equal(t, []int{3, 65}, bm.Elements())

	other := util.NewBitMap(70)
	other.Set(65)
	other.Set(10)
	changed := bm.Unite(other)
	assert.True(t, changed)
	assert.True(t, bm.IsSet(10))

	bm.Reset(10)
	assert.False(t, bm.IsSet(10))

	clone := bm.Copy()
	assert.True(t, clone.Equal(bm))
	clone.Clear()
	assert.True(t, clone.IsEmpty())
	assert.False(t, bm.IsEmpty())
}

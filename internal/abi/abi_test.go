package abi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/abi"
)

func TestStackSizeAlignsTo16(t *testing.T) {
	for _, tc := range []struct{ args, returns, spilled int }{
		{0, 0, 0}, {1, 1, 1}, {8, 3, 5}, {6, 2, 0},
	} {
		sz := abi.StackSize(tc.args, tc.returns, tc.spilled)
		assert.Zero(t, sz%16, "unaligned stack size for %+v", tc)
		assert.Greater(t, sz, int64(0))
	}
}

func TestStackArgOffsetStartsAfterRegisterArgs(t *testing.T) {
	assert.Equal(t, int64(0), abi.StackArgOffset(6))
	assert.Equal(t, int64(8), abi.StackArgOffset(7))
}

func TestReturnAreaOffset(t *testing.T) {
	assert.Equal(t, int64(0), abi.ReturnAreaOffset(2))
	assert.Equal(t, int64(8), abi.ReturnAreaOffset(3))
}

func TestMangleFunctionNoArgs(t *testing.T) {
	got := abi.Function("main", nil, nil)
	assert.Equal(t, "_Imain_p", got)
}

func TestMangleFunctionWithArgsAndReturn(t *testing.T) {
	got := abi.Function("add", []abi.Type{{Kind: abi.TypeInt}, {Kind: abi.TypeInt}}, []abi.Type{{Kind: abi.TypeInt}})
	assert.Equal(t, "_Iadd_iii", got)
}

func TestMangleFunctionMultipleReturns(t *testing.T) {
	got := abi.Function("divmod", []abi.Type{{Kind: abi.TypeInt}}, []abi.Type{{Kind: abi.TypeInt}, {Kind: abi.TypeInt}})
	assert.Equal(t, "_Idivmod_t2iii", got)
}

func TestMangleArrayType(t *testing.T) {
	arr := abi.Type{Kind: abi.TypeArray, Element: &abi.Type{Kind: abi.TypeInt}}
	got := abi.Function("sum", []abi.Type{arr}, []abi.Type{{Kind: abi.TypeInt}})
	assert.Equal(t, "_Isum_iai", got)
}

func TestClassLayoutSingleInheritance(t *testing.T) {
	classes := abi.Classes{
		"Animal": {Members: []abi.ClassMember{
			{Name: "name", IsMethod: false},
			{Name: "speak", IsMethod: true, HasBody: true},
		}},
		"Dog": {Superclass: "Animal", Members: []abi.ClassMember{
			{Name: "breed", IsMethod: false},
			{Name: "speak", IsMethod: true, HasBody: true}, // override, reuses slot
		}},
	}
	dog := abi.NewLayout(classes, "Dog")

	animalSlot, ok := dog.MethodIndex("speak")
	assert.True(t, ok)

	nameIdx, ok := dog.FieldIndex("Animal", "name")
	assert.True(t, ok)
	breedIdx, ok := dog.FieldIndex("Dog", "breed")
	assert.True(t, ok)
	assert.Less(t, nameIdx, breedIdx)
	assert.Equal(t, dog.FieldLen()-1, breedIdx)

	animal := abi.NewLayout(classes, "Animal")
	animalMethodSlot, _ := animal.MethodIndex("speak")
	assert.Equal(t, animalMethodSlot, animalSlot, "override must reuse the superclass's vtable slot")
}

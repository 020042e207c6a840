package regalloc

import (
	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// trivial assigns every distinct non-physical temporary its own stack
// slot, in first-seen order, with no liveness analysis at all — the
// fast/low-optimization allocator of §4.8, ported from
// original_source/src/assemble/allocate.rs's Trivial. Useful as a
// debugging baseline against the linear-scan allocator and for -O0 builds.
type trivial struct {
	order []symbol.Temporary
	slots map[symbol.Temporary]int
}

func newTrivial() *trivial {
	return &trivial{slots: map[symbol.Temporary]int{}}
}

func (t *trivial) slot(temp symbol.Temporary) int {
	if idx, ok := t.slots[temp]; ok {
		return idx
	}
	idx := len(t.order)
	t.slots[temp] = idx
	t.order = append(t.order, temp)
	return idx
}

// Trivial allocates fn's temporaries by direct stack-slot assignment,
// skipping live-range computation entirely.
func Trivial(fn *ir.AsmFunc[symbol.Temporary]) *ir.AsmFunc[symbol.PhysReg] {
	t := newTrivial()
	resolve := func(temp symbol.Temporary) ir.Operand[symbol.PhysReg] {
		if temp.IsPhysical() {
			return ir.Reg[symbol.PhysReg](temp.Reg)
		}
		return ir.MemOperand[symbol.PhysReg](ir.Mem[symbol.PhysReg]{
			Mode:   ir.ModeBO,
			Base:   symbol.RSP,
			Offset: abi.StackOffset(fn.CalleeArgs, fn.CalleeReturns, t.slot(temp)),
		})
	}

	// Walking every operand once up front (rather than resolving lazily
	// during rewriteInsns) fixes slot assignment order to first-use order
	// regardless of how rewriteInsns later visits operands.
	for _, insn := range fn.Insns {
		uses, defs := asmUsesDefs(insn)
		for _, u := range uses {
			if !u.IsPhysical() {
				t.slot(u)
			}
		}
		for _, d := range defs {
			if !d.IsPhysical() {
				t.slot(d)
			}
		}
	}

	ret := ir.Insn[symbol.Temporary](ir.InsnNullary[symbol.Temporary]{Op: ir.AsmRET, Returns: fn.Returns})
	body := rewriteInsns(append(append([]ir.Insn[symbol.Temporary]{}, fn.Insns...), ret), resolve)

	stackSize := abi.StackSize(fn.CalleeArgs, fn.CalleeReturns, len(t.order))
	insns := prologueEpilogue(body, stackSize)

	return &ir.AsmFunc[symbol.PhysReg]{
		Name:          fn.Name,
		Arity:         fn.Arity,
		Returns:       fn.Returns,
		CalleeArgs:    fn.CalleeArgs,
		CalleeReturns: fn.CalleeReturns,
		Linkage:       fn.Linkage,
		Insns:         insns,
		StackSize:     int(stackSize),
	}
}

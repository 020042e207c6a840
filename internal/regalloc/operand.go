// Package regalloc implements the two register allocators of §4.8: a
// trivial allocator that spills every temporary to the stack, and a
// linear-scan allocator (Poletto & Sarkar) that keeps short, uncontended
// live ranges in physical registers. Both convert an
// ir.AsmFunc[symbol.Temporary] (the tiler's output) into an
// ir.AsmFunc[symbol.PhysReg], computing the function's final StackSize.
//
// Grounded on original_source/src/assemble/allocate.rs (Trivial) and
// original_source/src/allocate/linear.rs (Linear), adapted from their
// BTreeMap<Temporary, _> bookkeeping to Go maps over symbol.Temporary.
package regalloc

import (
	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// resolver maps a temporary to the operand it was allocated: a physical
// register, or a stack-slot memory operand for a spilled/trivial temporary.
type resolver func(symbol.Temporary) ir.Operand[symbol.PhysReg]

// rewriteInsns converts a flat Temporary-operand instruction stream into a
// PhysReg-operand stream via resolve, repairing any memory/memory operand
// pairing or 64-bit-immediate-into-memory shape that spilling can
// introduce — the exact concern allocate.rs's allocate_instruction/
// allocate_memory exist to handle, including its explicitly acknowledged
// simplification (linear.rs's doc comment): addressing-mode temporaries
// that spill are preloaded through one of two reserved scratch registers
// (abi.ShuttleRegs) rather than solved with full interference-aware reuse.
func rewriteInsns(insns []ir.Insn[symbol.Temporary], resolve resolver) []ir.Insn[symbol.PhysReg] {
	var out []ir.Insn[symbol.PhysReg]
	for _, insn := range insns {
		switch in := insn.(type) {
		case ir.InsnBinary[symbol.Temporary]:
			rewriteBinary(&out, in, resolve)
		case ir.InsnUnary[symbol.Temporary]:
			rewriteUnary(&out, in, resolve)
		case ir.InsnNullary[symbol.Temporary]:
			out = append(out, ir.InsnNullary[symbol.PhysReg]{Op: in.Op, Returns: in.Returns})
		case ir.InsnLabel[symbol.Temporary]:
			out = append(out, ir.InsnLabel[symbol.PhysReg]{Label: in.Label})
		case ir.InsnJump[symbol.Temporary]:
			out = append(out, ir.InsnJump[symbol.PhysReg]{Target: in.Target})
		case ir.InsnJcc[symbol.Temporary]:
			out = append(out, ir.InsnJcc[symbol.PhysReg]{Cond: in.Cond, Target: in.Target})
		}
	}
	return out
}

func rewriteBinary(out *[]ir.Insn[symbol.PhysReg], in ir.InsnBinary[symbol.Temporary], resolve resolver) {
	dst := resolveOperand(out, in.Dst, resolve)
	src := resolveOperand(out, in.Src, resolve)

	// mov r/m64, imm64 is only encodable when the destination is a
	// register; a spilled destination needs the immediate preloaded.
	if in.Op == ir.AsmMOV && src.Kind == ir.OpImm && !src.Imm.IsLabel && outOfInt32(src.Imm.Int) && dst.Kind == ir.OpMem {
		scratch := ir.Reg[symbol.PhysReg](abi.ShuttleRegs[0])
		*out = append(*out, ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmMOV, Dst: scratch, Src: src})
		*out = append(*out, ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmMOV, Dst: dst, Src: scratch})
		return
	}

	if dst.Kind == ir.OpMem && src.Kind == ir.OpMem {
		scratch := ir.Reg[symbol.PhysReg](abi.ShuttleRegs[0])
		*out = append(*out, ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmMOV, Dst: scratch, Src: src})
		src = scratch
	}
	*out = append(*out, ir.InsnBinary[symbol.PhysReg]{Op: in.Op, Dst: dst, Src: src})
}

func rewriteUnary(out *[]ir.Insn[symbol.PhysReg], in ir.InsnUnary[symbol.Temporary], resolve resolver) {
	operand := resolveOperand(out, in.Operand, resolve)
	*out = append(*out, ir.InsnUnary[symbol.PhysReg]{Op: in.Op, Operand: operand, CallArgs: in.CallArgs, CallReturns: in.CallReturns})
}

func resolveOperand(out *[]ir.Insn[symbol.PhysReg], o ir.Operand[symbol.Temporary], resolve resolver) ir.Operand[symbol.PhysReg] {
	switch o.Kind {
	case ir.OpImm:
		return ir.Imm[symbol.PhysReg](o.Imm)
	case ir.OpReg:
		return resolve(o.Reg)
	case ir.OpMem:
		return ir.MemOperand[symbol.PhysReg](resolveMem(out, o.Mem, resolve))
	}
	return ir.Operand[symbol.PhysReg]{}
}

func resolveMem(out *[]ir.Insn[symbol.PhysReg], m ir.Mem[symbol.Temporary], resolve resolver) ir.Mem[symbol.PhysReg] {
	result := ir.Mem[symbol.PhysReg]{Mode: m.Mode, Scale: m.Scale, Offset: m.Offset}
	shuttleIdx := 0
	load := func(t symbol.Temporary) symbol.PhysReg {
		o := resolve(t)
		if o.Kind == ir.OpReg {
			return o.Reg
		}
		scratch := abi.ShuttleRegs[shuttleIdx%len(abi.ShuttleRegs)]
		shuttleIdx++
		*out = append(*out, ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmMOV, Dst: ir.Reg[symbol.PhysReg](scratch), Src: o})
		return scratch
	}
	switch m.Mode {
	case ir.ModeB, ir.ModeBO:
		result.Base = load(m.Base)
	case ir.ModeBI, ir.ModeBIS, ir.ModeBIO, ir.ModeBISO:
		result.Base = load(m.Base)
		result.Index = load(m.Index)
	case ir.ModeISO:
		result.Index = load(m.Index)
	}
	return result
}

func outOfInt32(v int64) bool { return v < -(1<<31) || v >= (1<<31) }

// operandUses returns the temporaries a (pre-allocation) operand reads:
// itself if a register, its base/index if a memory address, nothing for
// an immediate.
func operandUses(o ir.Operand[symbol.Temporary]) []symbol.Temporary {
	switch o.Kind {
	case ir.OpReg:
		return []symbol.Temporary{o.Reg}
	case ir.OpMem:
		return memTemps(o.Mem)
	}
	return nil
}

func memTemps(m ir.Mem[symbol.Temporary]) []symbol.Temporary {
	switch m.Mode {
	case ir.ModeB, ir.ModeBO:
		return []symbol.Temporary{m.Base}
	case ir.ModeBI, ir.ModeBIS, ir.ModeBIO, ir.ModeBISO:
		return []symbol.Temporary{m.Base, m.Index}
	case ir.ModeISO:
		return []symbol.Temporary{m.Index}
	}
	return nil
}

// asmUsesDefs returns the temporaries an ASM instruction reads and writes,
// per the x86-64 semantics tile.go's output encodes: a two-operand
// arithmetic instruction reads and writes its destination (`add dst, src`
// is `dst := dst + src`), mov/lea only write it, cmp only reads both.
func asmUsesDefs(insn ir.Insn[symbol.Temporary]) (uses, defs []symbol.Temporary) {
	switch in := insn.(type) {
	case ir.InsnBinary[symbol.Temporary]:
		return binaryUsesDefs(in)
	case ir.InsnUnary[symbol.Temporary]:
		return unaryUsesDefs(in)
	case ir.InsnNullary[symbol.Temporary]:
		return nullaryUsesDefs(in)
	}
	return nil, nil
}

func binaryUsesDefs(in ir.InsnBinary[symbol.Temporary]) (uses, defs []symbol.Temporary) {
	uses = append(uses, operandUses(in.Src)...)
	switch in.Op {
	case ir.AsmMOV, ir.AsmLEA:
		if in.Dst.Kind == ir.OpMem {
			uses = append(uses, operandUses(in.Dst)...)
		} else {
			defs = append(defs, in.Dst.Reg)
		}
	case ir.AsmCMP:
		uses = append(uses, operandUses(in.Dst)...)
	default: // ADD, SUB, MUL, AND, OR, XOR, SHL: read-modify-write
		uses = append(uses, operandUses(in.Dst)...)
		if in.Dst.Kind == ir.OpReg {
			defs = append(defs, in.Dst.Reg)
		}
	}
	return
}

func unaryUsesDefs(in ir.InsnUnary[symbol.Temporary]) (uses, defs []symbol.Temporary) {
	switch in.Op {
	case ir.AsmCALL:
		return callUsesDefs(in)
	case ir.AsmNEG:
		uses = operandUses(in.Operand)
		if in.Operand.Kind == ir.OpReg {
			defs = append(defs, in.Operand.Reg)
		}
	case ir.AsmPOP:
		if in.Operand.Kind == ir.OpReg {
			defs = append(defs, in.Operand.Reg)
		} else {
			uses = operandUses(in.Operand)
		}
	default: // MUL, HUL, DIV, MOD, PUSH: operand read only; RAX/RDX
		// def/use is already modeled by the surrounding movs/cqo tile.go
		// emits around these.
		uses = operandUses(in.Operand)
	}
	return
}

func callUsesDefs(in ir.InsnUnary[symbol.Temporary]) (uses, defs []symbol.Temporary) {
	uses = append(uses, operandUses(in.Operand)...)
	for i := 0; i < in.CallArgs && i < len(abi.ArgRegs); i++ {
		uses = append(uses, symbol.PhysicalTemp(abi.ArgRegs[i]))
	}
	for i := 0; i < in.CallReturns && i < len(abi.ReturnRegs); i++ {
		defs = append(defs, symbol.PhysicalTemp(abi.ReturnRegs[i]))
	}
	for _, r := range abi.CallerSaved {
		defs = append(defs, symbol.PhysicalTemp(r))
	}
	return
}

func nullaryUsesDefs(in ir.InsnNullary[symbol.Temporary]) (uses, defs []symbol.Temporary) {
	switch in.Op {
	case ir.AsmCQO:
		return []symbol.Temporary{symbol.PhysicalTemp(symbol.RAX)}, []symbol.Temporary{symbol.PhysicalTemp(symbol.RDX)}
	case ir.AsmRET:
		for i := 0; i < in.Returns && i < len(abi.ReturnRegs); i++ {
			uses = append(uses, symbol.PhysicalTemp(abi.ReturnRegs[i]))
		}
	}
	return
}

func asmIsCall(insn ir.Insn[symbol.Temporary]) bool {
	in, ok := insn.(ir.InsnUnary[symbol.Temporary])
	return ok && in.Op == ir.AsmCALL
}

// isOutOfBoundsCall mirrors analysis.IsOutOfBoundsCall at the ASM level: a
// direct call whose label names the diverging bounds-check helper never
// returns, so nothing is live across it.
func isOutOfBoundsCall(in ir.InsnUnary[symbol.Temporary]) bool {
	if in.Op != ir.AsmCALL {
		return false
	}
	if in.Operand.Kind != ir.OpImm || !in.Operand.Imm.IsLabel || in.Operand.Imm.Label.Fresh {
		return false
	}
	return in.Operand.Imm.Label.String() == abi.XiOutOfBounds
}

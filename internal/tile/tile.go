// Package tile implements instruction selection (§4.6): maximal-munch
// tiling of LIR statements/expressions into abstract x86-64 ASM over
// virtual Temporary operands, grounded directly on
// original_source/src/assemble/tile.rs's Tiler.
package tile

import (
	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// Tiler accumulates ASM instructions for one function being tiled.
type Tiler struct {
	insns          []ir.Insn[symbol.Temporary]
	callerReturns  *symbol.Temporary // non-nil iff the function returns > 2 values
	calleeArgs     int               // max args of any call this function makes
	calleeReturns  int               // max returns of any call this function makes
}

// Function tiles one LIR function into an ASM function over Temporary
// operands. The prologue stashes every callee-saved register into a
// fresh temporary (so the later register allocator is free to clobber
// the physical register across the body) and the epilogue restores them,
// per tile.rs's tile_function.
func Function(fn *ir.Func) *ir.AsmFunc[symbol.Temporary] {
	t := &Tiler{}
	if fn.Returns > 2 {
		fresh := symbol.FreshTemp("overflow")
		t.callerReturns = &fresh
	}
	t.calleeArgs, t.calleeReturns = calleeShape(fn.Stmts)

	type savedPair struct {
		temp symbol.Temporary
		reg  symbol.PhysReg
	}
	var saved []savedPair
	for _, r := range abi.CalleeSaved {
		fresh := symbol.FreshTemp("save")
		t.push(movRR(fresh, symbol.PhysicalTemp(r)))
		saved = append(saved, savedPair{fresh, r})
	}

	if t.callerReturns != nil {
		t.tileBinary(ir.AsmMOV, tempOperand(*t.callerReturns), abi.ArgOperand(0))
	}

	for _, s := range fn.Stmts {
		t.stmt(s)
	}

	for _, p := range saved {
		t.push(movRR(symbol.PhysicalTemp(p.reg), p.temp))
	}

	return &ir.AsmFunc[symbol.Temporary]{
		Name:          fn.Name,
		Arity:         fn.Arity,
		Returns:       fn.Returns,
		CalleeArgs:    t.calleeArgs,
		CalleeReturns: t.calleeReturns,
		Linkage:       fn.Linkage,
		Insns:         t.insns,
	}
}

func calleeShape(stmts []ir.Stmt) (args, returns int) {
	for _, s := range stmts {
		if call, ok := s.(ir.StmtCall); ok {
			if len(call.Args) > args {
				args = len(call.Args)
			}
			if len(call.Returns) > returns {
				returns = len(call.Returns)
			}
		}
	}
	return
}

func (t *Tiler) push(i ir.Insn[symbol.Temporary]) { t.insns = append(t.insns, i) }

func tempOperand(temp symbol.Temporary) ir.Operand[symbol.Temporary] {
	return ir.Reg[symbol.Temporary](temp)
}

func movRR(dst, src symbol.Temporary) ir.Insn[symbol.Temporary] {
	return ir.InsnBinary[symbol.Temporary]{Op: ir.AsmMOV, Dst: tempOperand(dst), Src: tempOperand(src)}
}

// --- statements -------------------------------------------------------------

func (t *Tiler) stmt(s ir.Stmt) {
	switch s := s.(type) {
	case ir.StmtLabel:
		t.push(ir.InsnLabel[symbol.Temporary]{Label: s.Label})
	case ir.StmtJump:
		t.push(ir.InsnJump[symbol.Temporary]{Target: s.Target})
	case ir.StmtCJump:
		t.tileBinaryExpr(ir.AsmCMP, s.Left, s.Right)
		t.push(ir.InsnJcc[symbol.Temporary]{Cond: s.Cond, Target: s.True})
		// Fallthrough to the false branch is guaranteed by CFG destruction,
		// which emits the false block next or an explicit jump to it; no
		// jump for the false edge is emitted here.
	case ir.StmtReturn:
		for i, v := range s.Values {
			t.tileBinary(ir.AsmMOV, t.writeReturn(i), t.expr(v))
		}
		// The single trailing `ret` is appended once by the register
		// allocator (see internal/regalloc), matching tile.rs's note that CFG construction
		// guarantees the exit block sits at the very end of the function.
	case ir.StmtMove:
		t.move(s.Dst, s.Src)
	case ir.StmtCall:
		t.call(s)
	}
}

// writeReturn is the location a callee writes its i'th return value to:
// RAX/RDX for the first two, else an offset off the return-area pointer
// handed in via the 0th argument register.
func (t *Tiler) writeReturn(i int) ir.Operand[symbol.Temporary] {
	switch i {
	case 0:
		return ir.Reg[symbol.Temporary](symbol.PhysicalTemp(symbol.RAX))
	case 1:
		return ir.Reg[symbol.Temporary](symbol.PhysicalTemp(symbol.RDX))
	default:
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{
			Mode:   ir.ModeBO,
			Base:   symbol.PhysicalTemp(symbol.RDI),
			Offset: abi.ReturnAreaOffset(i),
		})
	}
}

func (t *Tiler) call(s ir.StmtCall) {
	offset := 0
	if len(s.Returns) > 2 {
		t.tileBinary(ir.AsmLEA, abi.ArgOperand(0), t.calleeReturnAddr())
		offset = 1
	}
	for i, a := range s.Args {
		t.tileBinary(ir.AsmMOV, abi.ArgOperand(i+offset), t.expr(a))
	}
	fn := t.expr(s.Func)
	t.push(ir.InsnUnary[symbol.Temporary]{Op: ir.AsmCALL, Operand: fn, CallArgs: len(s.Args), CallReturns: len(s.Returns)})
	for i, r := range s.Returns {
		t.tileBinary(ir.AsmMOV, tempOperand(r), t.readReturn(i))
	}
}

// calleeReturnAddr computes the address of the caller's overflow-returns
// scratch area (the (calleeReturns-2)'th stack slot reserved for a
// callee's 3rd+ return values), to hand to a callee via RDI.
func (t *Tiler) calleeReturnAddr() ir.Operand[symbol.Temporary] {
	return t.readReturn(2)
}

func (t *Tiler) readReturn(i int) ir.Operand[symbol.Temporary] {
	switch i {
	case 0:
		return ir.Reg[symbol.Temporary](symbol.PhysicalTemp(symbol.RAX))
	case 1:
		return ir.Reg[symbol.Temporary](symbol.PhysicalTemp(symbol.RDX))
	default:
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{
			Mode:   ir.ModeBO,
			Base:   symbol.PhysicalTemp(symbol.RSP),
			Offset: abi.StackArgOffset(t.calleeArgs) + abi.ReturnAreaOffset(i),
		})
	}
}

// move handles StmtMove, special-casing `mov reg, imm64` (the only
// instruction that can carry a 64-bit immediate) and the commutative/
// subtractive in-place arithmetic patterns tile.rs recognizes so that
// `t := t + x` tiles to a single `add` rather than `mov` + `add`.
func (t *Tiler) move(dst, src ir.Expr) {
	if dstTemp, ok := dst.(ir.ExprTemp); ok {
		if imm, ok := src.(ir.ExprImm); ok && !imm.Imm.IsLabel {
			t.push(ir.InsnBinary[symbol.Temporary]{Op: ir.AsmMOV, Dst: tempOperand(dstTemp.Temp), Src: ir.Imm[symbol.Temporary](imm.Imm)})
			return
		}
	}

	if bin, ok := src.(ir.ExprBinary); ok {
		switch bin.Op {
		case ir.ADD, ir.AND, ir.OR, ir.XOR:
			if ir.Equal(bin.Left, dst) {
				t.tileBinaryExpr(asmBinOp(bin.Op), dst, bin.Right)
				return
			}
			if ir.Equal(bin.Right, dst) {
				t.tileBinaryExpr(asmBinOp(bin.Op), dst, bin.Left)
				return
			}
		case ir.SUB:
			if ir.Equal(bin.Left, dst) {
				t.tileBinaryExpr(ir.AsmSUB, dst, bin.Right)
				return
			}
			if isZero(bin.Left) && ir.Equal(bin.Right, dst) {
				operand := t.expr(dst)
				t.push(ir.InsnUnary[symbol.Temporary]{Op: ir.AsmNEG, Operand: operand})
				return
			}
		}
	}

	t.tileBinaryExpr(ir.AsmMOV, dst, src)
}

func isZero(e ir.Expr) bool {
	imm, ok := e.(ir.ExprImm)
	return ok && !imm.Imm.IsLabel && imm.Imm.Int == 0
}

func asmBinOp(op ir.BinOp) ir.AsmBinOp {
	switch op {
	case ir.ADD:
		return ir.AsmADD
	case ir.AND:
		return ir.AsmAND
	case ir.OR:
		return ir.AsmOR
	case ir.XOR:
		return ir.AsmXOR
	case ir.SUB:
		return ir.AsmSUB
	}
	return ir.AsmMOV
}

// --- expressions --------------------------------------------------------

// expr tiles an LIR expression into a single operand, introducing fresh
// temporaries and instructions as needed (maximal munch).
func (t *Tiler) expr(e ir.Expr) ir.Operand[symbol.Temporary] {
	switch e := e.(type) {
	case ir.ExprArg:
		idx := e.Index
		if t.callerReturns != nil {
			idx++
		}
		return abi.ArgOperand(idx)
	case ir.ExprReturnSlot:
		return t.readReturn(e.Index)
	case ir.ExprImm:
		if e.Imm.IsLabel {
			return ir.Imm[symbol.Temporary](e.Imm)
		}
		if e.Imm.Int < -(1<<31) || e.Imm.Int >= (1<<31) {
			return tempOperand(t.shuttleOperand(ir.Imm[symbol.Temporary](e.Imm)))
		}
		return ir.Imm[symbol.Temporary](e.Imm)
	case ir.ExprTemp:
		return tempOperand(e.Temp)
	case ir.ExprMem:
		return t.memory(e.Addr)
	case ir.ExprBinary:
		return t.binaryExpr(e)
	}
	return ir.Operand[symbol.Temporary]{}
}

func (t *Tiler) binaryExpr(e ir.ExprBinary) ir.Operand[symbol.Temporary] {
	if e.Op == ir.SUB && isZero(e.Left) {
		operand := t.expr(e.Right)
		fresh := symbol.FreshTemp("tile")
		t.push(movFrom(fresh, operand))
		t.push(ir.InsnUnary[symbol.Temporary]{Op: ir.AsmNEG, Operand: tempOperand(fresh)})
		return tempOperand(fresh)
	}

	switch e.Op {
	case ir.ADD, ir.SUB, ir.AND, ir.OR, ir.XOR:
		fresh := symbol.FreshTemp("tile")
		t.tileBinary(ir.AsmMOV, tempOperand(fresh), t.expr(e.Left))
		t.tileBinary(asmBinOp(e.Op), tempOperand(fresh), t.expr(e.Right))
		return tempOperand(fresh)
	case ir.MUL, ir.HUL, ir.DIV, ir.MOD:
		return t.muldiv(e)
	}
	return ir.Operand[symbol.Temporary]{}
}

// muldiv tiles MUL/HUL/DIV/MOD, which all clobber RAX/RDX per the x86-64
// `imul`/`idiv` calling convention (left operand in RAX, `cqo`-sign-extend
// for division, result collected from RAX or RDX).
func (t *Tiler) muldiv(e ir.ExprBinary) ir.Operand[symbol.Temporary] {
	var unaryOp ir.AsmUnaryOp
	var resultReg symbol.PhysReg
	needsCQO := false
	switch e.Op {
	case ir.MUL:
		unaryOp, resultReg = ir.AsmMUL, symbol.RAX
	case ir.HUL:
		unaryOp, resultReg = ir.AsmHUL, symbol.RDX
	case ir.DIV:
		unaryOp, resultReg, needsCQO = ir.AsmDIV, symbol.RAX, true
	case ir.MOD:
		unaryOp, resultReg, needsCQO = ir.AsmMOD, symbol.RDX, true
	}

	t.tileBinary(ir.AsmMOV, ir.Reg[symbol.Temporary](symbol.PhysicalTemp(symbol.RAX)), t.expr(e.Left))
	if needsCQO {
		t.push(ir.InsnNullary[symbol.Temporary]{Op: ir.AsmCQO})
	}
	src := t.unaryOperand(t.expr(e.Right))
	t.push(ir.InsnUnary[symbol.Temporary]{Op: unaryOp, Operand: src})

	fresh := symbol.FreshTemp("tile")
	t.push(movRR(fresh, symbol.PhysicalTemp(resultReg)))
	return tempOperand(fresh)
}

// unaryOperand ensures an operand destined for a unary instruction (mul/
// hul/div/mod/neg) is never an immediate — those instructions only accept
// register or memory operands, so an immediate is shuttled first.
func (t *Tiler) unaryOperand(o ir.Operand[symbol.Temporary]) ir.Operand[symbol.Temporary] {
	if o.Kind == ir.OpImm {
		return tempOperand(t.shuttleOperand(o))
	}
	return o
}

func movFrom(dst symbol.Temporary, src ir.Operand[symbol.Temporary]) ir.Insn[symbol.Temporary] {
	return ir.InsnBinary[symbol.Temporary]{Op: ir.AsmMOV, Dst: tempOperand(dst), Src: src}
}

// shuttleOperand materializes any operand into a fresh temporary via mov,
// for positions that cannot accept the operand's own category directly.
func (t *Tiler) shuttleOperand(o ir.Operand[symbol.Temporary]) symbol.Temporary {
	if o.Kind == ir.OpReg {
		return o.Reg
	}
	fresh := symbol.FreshTemp("shuttle")
	t.push(movFrom(fresh, o))
	return fresh
}

// tileBinary applies the shuttle-rule table of §4.6: a binary instruction
// may read memory or an immediate on (at most) one side, so an
// immediate-destination or a memory/memory pairing is repaired by
// shuttling one side through a fresh temporary first.
//
//	              source
//	              I R M
//	            I d d d
//	destination R _ _ _
//	            M _ _ s
//
// d: shuttle destination   s: shuttle source   _: no shuttle necessary
func (t *Tiler) tileBinary(op ir.AsmBinOp, dst, src ir.Operand[symbol.Temporary]) {
	if dst.Category() == ir.CatI {
		dst = tempOperand(t.shuttleOperand(dst))
	}
	if dst.Category() == ir.CatM && src.Category() == ir.CatM {
		src = tempOperand(t.shuttleOperand(src))
	}
	t.push(ir.InsnBinary[symbol.Temporary]{Op: op, Dst: dst, Src: src})
}

func (t *Tiler) tileBinaryExpr(op ir.AsmBinOp, dst, src ir.Expr) {
	t.tileBinary(op, t.expr(dst), t.expr(src))
}

// memory tiles an address expression into the narrowest of the seven
// x86-64 addressing modes it matches, per tile.rs's tile_memory: literal
// offset, base-only, base+index, base+offset, base+index*8, index*8+
// offset, base+index+offset, base+index*8+offset. Anything that doesn't
// match one of these shapes is shuttled into a base-only [reg] operand.
func (t *Tiler) memory(addr ir.Expr) ir.Operand[symbol.Temporary] {
	switch a := addr.(type) {
	case ir.ExprImm:
		if !a.Imm.IsLabel {
			return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeO, Offset: a.Imm.Int})
		}
	case ir.ExprTemp:
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeB, Base: a.Temp})
	case ir.ExprArg:
		base := t.shuttleOperand(t.expr(a))
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeB, Base: base})
	case ir.ExprReturnSlot:
		base := t.shuttleOperand(t.readReturn(a.Index))
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeB, Base: base})
	case ir.ExprMem:
		base := t.shuttleOperand(t.memory(a.Addr))
		return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeB, Base: base})
	case ir.ExprBinary:
		if m, ok := t.matchMemory(a); ok {
			return ir.MemOperand[symbol.Temporary](m)
		}
	}
	base := t.shuttleOperand(t.expr(addr))
	return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{Mode: ir.ModeB, Base: base})
}

// matchMemory recognizes the base/index/scale/offset shapes built by
// repeated ADD/MUL nesting over a base temporary, an index temporary
// scaled by the machine word size (8), and a constant offset, in either
// operand order at each level: `base + offset`, `base + index`,
// `base + index*8`, `base + index + offset`, `base + index*8 + offset`.
func (t *Tiler) matchMemory(e ir.ExprBinary) (ir.Mem[symbol.Temporary], bool) {
	if e.Op != ir.ADD {
		return ir.Mem[symbol.Temporary]{}, false
	}
	base, rest, ok := splitTemp(e.Left, e.Right)
	if !ok {
		return ir.Mem[symbol.Temporary]{}, false
	}

	// base + offset
	if imm, isImm := rest.(ir.ExprImm); isImm && !imm.Imm.IsLabel {
		return ir.Mem[symbol.Temporary]{Mode: ir.ModeBO, Base: base, Offset: imm.Imm.Int}, true
	}

	// base + (index-ish + offset)
	if bin, isBin := rest.(ir.ExprBinary); isBin && bin.Op == ir.ADD {
		if inner, off, matched := splitImm(bin.Left, bin.Right); matched {
			index, scale := t.matchScaled(inner)
			if scale {
				return ir.Mem[symbol.Temporary]{Mode: ir.ModeBISO, Base: base, Index: index, Scale: 8, Offset: off}, true
			}
			return ir.Mem[symbol.Temporary]{Mode: ir.ModeBIO, Base: base, Index: index, Offset: off}, true
		}
	}

	// base + index-ish
	index, scale := t.matchScaled(rest)
	if scale {
		return ir.Mem[symbol.Temporary]{Mode: ir.ModeBIS, Base: base, Index: index, Scale: 8}, true
	}
	return ir.Mem[symbol.Temporary]{Mode: ir.ModeBI, Base: base, Index: index}, true
}

func (t *Tiler) matchScaled(e ir.Expr) (symbol.Temporary, bool) {
	if bin, ok := e.(ir.ExprBinary); ok && bin.Op == ir.MUL {
		if temp, ok := splitEight(bin.Left, bin.Right); ok {
			if tt, isTemp := temp.(ir.ExprTemp); isTemp {
				return tt.Temp, true
			}
			return t.shuttleOperand(t.expr(temp)), true
		}
	}
	if tt, isTemp := e.(ir.ExprTemp); isTemp {
		return tt.Temp, false
	}
	return t.shuttleOperand(t.expr(e)), false
}

func splitTemp(a, b ir.Expr) (symbol.Temporary, ir.Expr, bool) {
	if t, ok := a.(ir.ExprTemp); ok {
		return t.Temp, b, true
	}
	if t, ok := b.(ir.ExprTemp); ok {
		return t.Temp, a, true
	}
	return symbol.Temporary{}, nil, false
}

func splitImm(a, b ir.Expr) (ir.Expr, int64, bool) {
	if imm, ok := a.(ir.ExprImm); ok && !imm.Imm.IsLabel {
		return b, imm.Imm.Int, true
	}
	if imm, ok := b.(ir.ExprImm); ok && !imm.Imm.IsLabel {
		return a, imm.Imm.Int, true
	}
	return nil, 0, false
}

func splitEight(a, b ir.Expr) (ir.Expr, bool) {
	if imm, ok := a.(ir.ExprImm); ok && !imm.Imm.IsLabel && imm.Imm.Int == 8 {
		return b, true
	}
	if imm, ok := b.(ir.ExprImm); ok && !imm.Imm.IsLabel && imm.Imm.Int == 8 {
		return a, true
	}
	return nil, false
}

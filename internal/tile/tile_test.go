package tile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
	"xic/internal/tile"
)

func TestFunctionSavesAndRestoresCalleeSavedRegisters(t *testing.T) {
	fn := &ir.Func{
		Name: symbol.FixedLabel("_Itrivial_pi"), Arity: 0, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
		},
	}
	asmFn := tile.Function(fn)

	n := len(abi.CalleeSaved)
	assert.GreaterOrEqual(t, len(asmFn.Insns), 2*n)

	for i := 0; i < n; i++ {
		mov, ok := asmFn.Insns[i].(ir.InsnBinary[symbol.Temporary])
		assert.True(t, ok, "prologue instruction %d should be a mov", i)
		assert.Equal(t, ir.AsmMOV, mov.Op)
		assert.Equal(t, ir.OpReg, mov.Src.Kind)
		assert.True(t, mov.Src.Reg.Kind == symbol.TempPhysical, "prologue source %d should stash a physical register", i)
	}

	tail := asmFn.Insns[len(asmFn.Insns)-n:]
	for i, insn := range tail {
		mov, ok := insn.(ir.InsnBinary[symbol.Temporary])
		assert.True(t, ok, "epilogue instruction %d should be a mov", i)
		assert.Equal(t, ir.AsmMOV, mov.Op)
		assert.Equal(t, ir.OpReg, mov.Dst.Kind)
		assert.True(t, mov.Dst.Reg.Kind == symbol.TempPhysical, "epilogue destination %d should restore a physical register", i)
	}
}

// destAliasMoveFn builds `x := x + y; return x`, wrapped in a function so
// Function's prologue/epilogue can be skipped over when inspecting the
// body it tiles.
func destAliasMoveFn(x, y symbol.Temporary) *ir.Func {
	return &ir.Func{
		Name: symbol.FixedLabel("_Ialias_pii"), Arity: 2, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: x}, Right: ir.ExprTemp{Temp: y}}},
			ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: x}}},
		},
	}
}

func TestDestAliasedAddTilesToSingleInstruction(t *testing.T) {
	x, y := symbol.FreshTemp("x"), symbol.FreshTemp("y")
	asmFn := tile.Function(destAliasMoveFn(x, y))

	n := len(abi.CalleeSaved)
	body := asmFn.Insns[n : len(asmFn.Insns)-n]

	var adds int
	for _, insn := range body {
		if bin, ok := insn.(ir.InsnBinary[symbol.Temporary]); ok && bin.Op == ir.AsmADD {
			adds++
			assert.Equal(t, ir.OpReg, bin.Dst.Kind)
			assert.True(t, bin.Dst.Reg.Equal(x))
		}
	}
	assert.Equal(t, 1, adds, "x := x + y should tile to exactly one add, with no preceding mov into a fresh temp")
}

func TestScaledMemoryOperandMatchesBaseIndexScale(t *testing.T) {
	base, idx, x := symbol.FreshTemp("base"), symbol.FreshTemp("idx"), symbol.FreshTemp("x")
	fn := &ir.Func{
		Name: symbol.FixedLabel("_Iload_pii"), Arity: 2, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprMem{Addr: ir.ExprBinary{
				Op:   ir.ADD,
				Left: ir.ExprTemp{Temp: base},
				Right: ir.ExprBinary{Op: ir.MUL, Left: ir.ExprTemp{Temp: idx}, Right: ir.ExprImm{Imm: ir.ImmInt(8)}},
			}}},
			ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: x}}},
		},
	}
	asmFn := tile.Function(fn)

	var found bool
	for _, insn := range asmFn.Insns {
		bin, ok := insn.(ir.InsnBinary[symbol.Temporary])
		if !ok || bin.Src.Kind != ir.OpMem {
			continue
		}
		assert.Equal(t, ir.ModeBIS, bin.Src.Mem.Mode)
		assert.True(t, bin.Src.Mem.Base.Equal(base))
		assert.True(t, bin.Src.Mem.Index.Equal(idx))
		assert.EqualValues(t, 8, bin.Src.Mem.Scale)
		found = true
	}
	assert.True(t, found, "expected one memory-operand mov for the base+index*8 load")
}

func TestMulClobbersRAXAndCollectsFromRAX(t *testing.T) {
	a, b, x := symbol.FreshTemp("a"), symbol.FreshTemp("b"), symbol.FreshTemp("x")
	fn := &ir.Func{
		Name: symbol.FixedLabel("_Imul_piii"), Arity: 2, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprBinary{Op: ir.MUL, Left: ir.ExprTemp{Temp: a}, Right: ir.ExprTemp{Temp: b}}},
			ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: x}}},
		},
	}
	asmFn := tile.Function(fn)

	var sawLoadIntoRAX, sawMulUnary, sawCollectFromRAX bool
	for i, insn := range asmFn.Insns {
		if bin, ok := insn.(ir.InsnBinary[symbol.Temporary]); ok && bin.Op == ir.AsmMOV &&
			bin.Dst.Kind == ir.OpReg && bin.Dst.Reg.Kind == symbol.TempPhysical && bin.Dst.Reg.Reg == symbol.RAX {
			sawLoadIntoRAX = true
			_ = i
		}
		if un, ok := insn.(ir.InsnUnary[symbol.Temporary]); ok && un.Op == ir.AsmMUL {
			sawMulUnary = true
		}
		if bin, ok := insn.(ir.InsnBinary[symbol.Temporary]); ok && bin.Op == ir.AsmMOV &&
			bin.Src.Kind == ir.OpReg && bin.Src.Reg.Kind == symbol.TempPhysical && bin.Src.Reg.Reg == symbol.RAX {
			sawCollectFromRAX = true
		}
	}
	assert.True(t, sawLoadIntoRAX, "multiplicand should be loaded into RAX")
	assert.True(t, sawMulUnary, "expected a one-operand imul instruction")
	assert.True(t, sawCollectFromRAX, "result should be collected from RAX")
}

func TestDivEmitsSignExtension(t *testing.T) {
	a, b, x := symbol.FreshTemp("a"), symbol.FreshTemp("b"), symbol.FreshTemp("x")
	fn := &ir.Func{
		Name: symbol.FixedLabel("_Idiv_piii"), Arity: 2, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprBinary{Op: ir.DIV, Left: ir.ExprTemp{Temp: a}, Right: ir.ExprTemp{Temp: b}}},
			ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: x}}},
		},
	}
	asmFn := tile.Function(fn)

	var sawCQO, sawDiv bool
	for _, insn := range asmFn.Insns {
		if _, ok := insn.(ir.InsnNullary[symbol.Temporary]); ok {
			n := insn.(ir.InsnNullary[symbol.Temporary])
			if n.Op == ir.AsmCQO {
				sawCQO = true
			}
		}
		if un, ok := insn.(ir.InsnUnary[symbol.Temporary]); ok && un.Op == ir.AsmDIV {
			sawDiv = true
		}
	}
	assert.True(t, sawCQO, "idiv must be preceded by cqo sign extension")
	assert.True(t, sawDiv)
}

func TestCallTilesArgsIntoABIRegistersAndCollectsReturn(t *testing.T) {
	arg, ret := symbol.FreshTemp("arg"), symbol.FreshTemp("ret")
	callee := symbol.FixedLabel("_Icallee_pii")
	fn := &ir.Func{
		Name: symbol.FixedLabel("_Icaller_pii"), Arity: 1, Returns: 1, Linkage: ir.Definition,
		Stmts: []ir.Stmt{
			ir.StmtCall{Func: ir.ExprImm{Imm: ir.ImmLabel(callee)}, Args: []ir.Expr{ir.ExprTemp{Temp: arg}}, Returns: []symbol.Temporary{ret}},
			ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: ret}}},
		},
	}
	asmFn := tile.Function(fn)

	var sawArgLoad, sawCall, sawReturnCollect bool
	for _, insn := range asmFn.Insns {
		if bin, ok := insn.(ir.InsnBinary[symbol.Temporary]); ok && bin.Op == ir.AsmMOV &&
			bin.Dst.Kind == ir.OpReg && bin.Dst.Reg.Kind == symbol.TempPhysical && bin.Dst.Reg.Reg == abi.ArgRegs[0] {
			sawArgLoad = true
		}
		if un, ok := insn.(ir.InsnUnary[symbol.Temporary]); ok && un.Op == ir.AsmCALL {
			sawCall = true
			assert.Equal(t, 1, un.CallArgs)
			assert.Equal(t, 1, un.CallReturns)
		}
		if bin, ok := insn.(ir.InsnBinary[symbol.Temporary]); ok && bin.Op == ir.AsmMOV &&
			bin.Src.Kind == ir.OpReg && bin.Src.Reg.Kind == symbol.TempPhysical && bin.Src.Reg.Reg == abi.ReturnRegs[0] {
			sawReturnCollect = true
		}
	}
	assert.True(t, sawArgLoad)
	assert.True(t, sawCall)
	assert.True(t, sawReturnCollect)
}

package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/optimize"
	"xic/internal/symbol"
)

func TestFoldConstantsNumeric(t *testing.T) {
	x := symbol.FreshTemp("x")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprBinary{
			Op:   ir.ADD,
			Left: ir.ExprImm{Imm: ir.ImmInt(2)}, Right: ir.ExprImm{Imm: ir.ImmInt(3)},
		}},
	}
	out := optimize.FoldConstants(stmts)
	mv := out[0].(ir.StmtMove)
	assert.Equal(t, ir.ExprImm{Imm: ir.ImmInt(5)}, mv.Src)
}

func TestFoldConstantsIdentity(t *testing.T) {
	x := symbol.FreshTemp("x")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprBinary{
			Op:   ir.MUL,
			Left: ir.ExprTemp{Temp: x}, Right: ir.ExprImm{Imm: ir.ImmInt(1)},
		}},
	}
	out := optimize.FoldConstants(stmts)
	mv := out[0].(ir.StmtMove)
	assert.Equal(t, ir.Expr(ir.ExprTemp{Temp: x}), mv.Src)
}

func TestDeadCodeEliminateDropsUnusedMove(t *testing.T) {
	x, y := symbol.FreshTemp("x"), symbol.FreshTemp("y")
	exit := symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprImm{Imm: ir.ImmInt(1)}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: y}, Src: ir.ExprImm{Imm: ir.ImmInt(2)}},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: y}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	la := analysis.LiveVariables{Returns: 1}
	changed := optimize.DeadCodeEliminate(g, la)
	assert.True(t, changed)

	enter := g.Blocks[g.Enter]
	assert.Len(t, enter.Stmts, 2)
	mv := enter.Stmts[0].(ir.StmtMove)
	assert.Equal(t, y, mv.Dst.(ir.ExprTemp).Temp)
}

func TestPropagateConstantsAndDCE(t *testing.T) {
	a, b := symbol.FreshTemp("a"), symbol.FreshTemp("b")
	exit := symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: a}, Src: ir.ExprImm{Imm: ir.ImmInt(4)}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: b}, Src: ir.ExprTemp{Temp: a}},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: b}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	optimize.PropagateConstants(g, analysis.ConstantPropagation{})

	enter := g.Blocks[g.Enter]
	mv := enter.Stmts[1].(ir.StmtMove)
	assert.Equal(t, ir.Expr(ir.ExprImm{Imm: ir.ImmInt(4)}), mv.Src)
}

func TestPropagateCopiesRewritesChain(t *testing.T) {
	a, b, c := symbol.FreshTemp("a"), symbol.FreshTemp("b"), symbol.FreshTemp("c")
	exit := symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: b}, Src: ir.ExprTemp{Temp: a}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: c}, Src: ir.ExprTemp{Temp: b}},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: c}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	optimize.PropagateCopies(g, analysis.CopyPropagation{})

	ret := g.Blocks[g.Enter].Term
	// the return itself isn't a Term (StmtReturn routes via a normal
	// exit edge); inspect the statement list instead.
	enter := g.Blocks[g.Enter]
	last := enter.Stmts[len(enter.Stmts)-1].(ir.StmtReturn)
	assert.Equal(t, ir.Expr(ir.ExprTemp{Temp: a}), last.Values[0])
	_ = ret
}

func TestConditionalConstantPropagateCollapsesBranch(t *testing.T) {
	x := symbol.FreshTemp("x")
	trueL, falseL, exit := symbol.FreshLabel("t"), symbol.FreshLabel("f"), symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: x}, Src: ir.ExprImm{Imm: ir.ImmInt(5)}},
		ir.StmtCJump{Cond: ir.LT, Left: ir.ExprTemp{Temp: x}, Right: ir.ExprImm{Imm: ir.ImmInt(10)}, True: trueL, False: falseL, HasFalse: true},
		ir.StmtLabel{Label: trueL},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(1)}}},
		ir.StmtLabel{Label: falseL},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	optimize.ConditionalConstantPropagate(g, analysis.ConditionalConstantPropagation{})

	assert.NotContains(t, g.Order, falseL)
}

func TestPartialRedundancyEliminateMaterializesCommonExpr(t *testing.T) {
	a, b := symbol.FreshTemp("a"), symbol.FreshTemp("b")
	cond := symbol.FreshTemp("c")
	join, exit := symbol.FreshLabel("join"), symbol.FreshLabel("exit")
	trueL, falseL := symbol.FreshLabel("t"), symbol.FreshLabel("f")
	stmts := []ir.Stmt{
		ir.StmtCJump{Cond: ir.EQ, Left: ir.ExprTemp{Temp: cond}, Right: ir.ExprImm{Imm: ir.ImmInt(0)}, True: trueL, False: falseL, HasFalse: true},
		ir.StmtLabel{Label: trueL},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: a}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: a}, Right: ir.ExprTemp{Temp: b}}},
		ir.StmtJump{Target: join},
		ir.StmtLabel{Label: falseL},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: a}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: a}, Right: ir.ExprTemp{Temp: b}}},
		ir.StmtJump{Target: join},
		ir.StmtLabel{Label: join},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: a}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	assert.NotPanics(t, func() { optimize.PartialRedundancyEliminate(g) })
}

func TestBuildCallGraph(t *testing.T) {
	callerName := symbol.FixedLabel("_Icaller_pi")
	calleeName := symbol.FixedLabel("_Icallee_pi")
	caller := &ir.Func{Name: callerName, Arity: 0, Returns: 1, Linkage: ir.Definition, Stmts: []ir.Stmt{
		ir.StmtCall{Func: ir.ExprImm{Imm: ir.ImmLabel(calleeName)}, Returns: nil},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
	}}
	callee := &ir.Func{Name: calleeName, Arity: 0, Returns: 1, Linkage: ir.Definition, Stmts: []ir.Stmt{
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(1)}}},
	}}
	cg := optimize.BuildCallGraph([]*ir.Func{caller, callee})
	assert.True(t, cg[callerName.String()].Contains(calleeName.String()))
	assert.Equal(t, 0, cg[calleeName.String()].Len())
}

func TestInlineLeafCall(t *testing.T) {
	callerName := symbol.FixedLabel("_Icaller_pi")
	calleeName := symbol.FixedLabel("_Iinc_pii")
	arg := symbol.FreshTemp("arg")

	caller := &ir.Func{Name: callerName, Arity: 0, Returns: 1, Linkage: ir.Definition, Stmts: []ir.Stmt{
		ir.StmtCall{Func: ir.ExprImm{Imm: ir.ImmLabel(calleeName)}, Args: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(41)}}, Returns: []symbol.Temporary{arg}},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: arg}}},
	}}
	callee := &ir.Func{Name: calleeName, Arity: 1, Returns: 1, Linkage: ir.Definition, Stmts: []ir.Stmt{
		ir.StmtReturn{Values: []ir.Expr{ir.ExprBinary{Op: ir.ADD, Left: ir.ExprArg{Index: 0}, Right: ir.ExprImm{Imm: ir.ImmInt(1)}}}},
	}}
	unit := &ir.Unit{Name: "u", Funcs: []*ir.Func{caller, callee}}
	optimize.Inline(unit)

	for _, s := range caller.Stmts {
		_, isCall := s.(ir.StmtCall)
		assert.False(t, isCall, "leaf call should have been inlined away")
	}
}

func TestHoistLoopInvariants(t *testing.T) {
	i, n, inv := symbol.FreshTemp("i"), symbol.FreshTemp("n"), symbol.FreshTemp("inv")
	head, body, exit := symbol.FreshLabel("head"), symbol.FreshLabel("body"), symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtLabel{Label: head},
		ir.StmtCJump{Cond: ir.GE, Left: ir.ExprTemp{Temp: i}, Right: ir.ExprTemp{Temp: n}, True: exit, False: body, HasFalse: true},
		ir.StmtLabel{Label: body},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: inv}, Src: ir.ExprBinary{Op: ir.MUL, Left: ir.ExprTemp{Temp: n}, Right: ir.ExprImm{Imm: ir.ImmInt(2)}}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: i}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: i}, Right: ir.ExprImm{Imm: ir.ImmInt(1)}}},
		ir.StmtJump{Target: head},
		ir.StmtLabel{Label: exit},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: inv}}},
	}
	g := cfg.ConstructLIR(stmts, symbol.FreshLabel("funcexit"))
	assert.NotPanics(t, func() { optimize.HoistLoopInvariants(g) })
}

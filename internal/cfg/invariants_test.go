package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/symbol"
)

func isEmptyStmts(s []ir.Stmt) bool { return len(s) == 0 }

func TestInvariantsHoldAfterConstruction(t *testing.T) {
	exit := symbol.FreshLabel("exit")
	g := cfg.ConstructLIR(straightLine(exit), exit)
	assert.Empty(t, cfg.Invariants[ir.Stmt](g, isEmptyStmts))
}

func TestInvariantsHoldAfterBranchingConstruction(t *testing.T) {
	cond := symbol.FreshTemp("c")
	trueL, falseL, exit := symbol.FreshLabel("t"), symbol.FreshLabel("f"), symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtCJump{Cond: ir.EQ, Left: ir.ExprTemp{Temp: cond}, Right: ir.ExprImm{Imm: ir.ImmInt(0)}, True: trueL, False: falseL, HasFalse: true},
		ir.StmtLabel{Label: trueL},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(1)}}},
		ir.StmtLabel{Label: falseL},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	assert.Empty(t, cfg.Invariants[ir.Stmt](g, isEmptyStmts))
}

func TestInvariantsCatchDanglingEdge(t *testing.T) {
	exit := symbol.FreshLabel("exit")
	g := cfg.ConstructLIR(straightLine(exit), exit)
	ghost := symbol.FreshLabel("ghost")
	enter := g.Blocks[g.Enter]
	enter.Succs = append(enter.Succs, cfg.Edge{Kind: cfg.EdgeUnconditional, To: ghost})

	problems := cfg.Invariants[ir.Stmt](g, isEmptyStmts)
	assert.NotEmpty(t, problems)
}

func TestNoJumpOnlyBlocksAfterCleaning(t *testing.T) {
	a, b := symbol.FreshLabel("a"), symbol.FreshLabel("b")
	exit := symbol.FreshLabel("exit")
	stmts := []ir.Stmt{
		ir.StmtJump{Target: a},
		ir.StmtLabel{Label: a},
		ir.StmtJump{Target: b},
		ir.StmtLabel{Label: b},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	cfg.CleanGeneric[ir.Stmt](g, isEmptyStmts)

	assert.Empty(t, cfg.NoJumpOnlyBlocks[ir.Stmt](g, isEmptyStmts))
	assert.Empty(t, cfg.NoUnmergedSingletons[ir.Stmt](g))
}

func TestNoCriticalEdgesAfterSplit(t *testing.T) {
	cond := symbol.FreshTemp("c")
	join, exit := symbol.FreshLabel("join"), symbol.FreshLabel("exit")
	trueL, falseL := symbol.FreshLabel("t"), symbol.FreshLabel("f")
	stmts := []ir.Stmt{
		ir.StmtCJump{Cond: ir.EQ, Left: ir.ExprTemp{Temp: cond}, Right: ir.ExprImm{Imm: ir.ImmInt(0)}, True: trueL, False: falseL, HasFalse: true},
		ir.StmtLabel{Label: trueL},
		ir.StmtJump{Target: join},
		ir.StmtLabel{Label: falseL},
		ir.StmtJump{Target: join},
		ir.StmtLabel{Label: join},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(0)}}},
	}
	g := cfg.ConstructLIR(stmts, exit)
	cfg.CleanGeneric[ir.Stmt](g, isEmptyStmts)
	cfg.SplitCriticalEdges[ir.Stmt](g, func(target symbol.Label) ir.Stmt { return ir.StmtJump{Target: target} })

	assert.Empty(t, cfg.NoCriticalEdges[ir.Stmt](g))
	assert.Empty(t, cfg.Invariants[ir.Stmt](g, isEmptyStmts))
}

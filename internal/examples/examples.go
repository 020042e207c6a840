// Package examples supplies a handful of hand-built HIR units for the
// CLI and the compiler package's own tests to compile, since the
// pipeline starts from HIR rather than source text (see SPEC_FULL.md's
// Non-goals — parsing is explicitly out of scope). Each fixture is built
// directly with the internal/ir constructors rather than a parser,
// matching how falcon's own SSA-level tests construct graphs by hand in
// `y1yang0-falcon/src/compile/ssa/*_test.go`.
package examples

import (
	"xic/internal/ir"
	"xic/internal/symbol"
)

// Names lists every fixture the CLI can look up by name.
func Names() []string {
	return []string{"factorial", "sumloop"}
}

// Lookup builds the named fixture's unit, or reports it unknown.
func Lookup(name string) (*ir.Unit, bool) {
	switch name {
	case "factorial":
		return factorial(), true
	case "sumloop":
		return sumloop(), true
	}
	return nil, false
}

// factorial builds a recursive `factorial(n) = n <= 1 ? 1 : n * factorial(n-1)`,
// exercising calls, conditional branching, and multiplication folding.
func factorial() *ir.Unit {
	n := symbol.FreshTemp("n")
	rec := symbol.FreshTemp("rec")
	name := symbol.FixedLabel("_Ifactorial_pii")
	base, recurse, done := symbol.FreshLabel("base"), symbol.FreshLabel("recurse"), symbol.FreshLabel("done")

	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: n}, Src: ir.ExprArg{Index: 0}},
		ir.StmtCJump{
			Cond:  ir.LE,
			Left:  ir.ExprTemp{Temp: n},
			Right: ir.ExprImm{Imm: ir.ImmInt(1)},
			True:  base,
			False: recurse, HasFalse: true,
		},
		ir.StmtLabel{Label: base},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprImm{Imm: ir.ImmInt(1)}}},
		ir.StmtLabel{Label: recurse},
		ir.StmtCall{
			Func: ir.ExprImm{Imm: ir.ImmLabel(name)},
			Args: []ir.Expr{ir.ExprBinary{Op: ir.SUB, Left: ir.ExprTemp{Temp: n}, Right: ir.ExprImm{Imm: ir.ImmInt(1)}}},
			Returns: []symbol.Temporary{rec},
		},
		ir.StmtJump{Target: done},
		ir.StmtLabel{Label: done},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprBinary{Op: ir.MUL, Left: ir.ExprTemp{Temp: n}, Right: ir.ExprTemp{Temp: rec}}}},
	}

	fn := &ir.Func{Name: name, Arity: 1, Returns: 1, Linkage: ir.Definition, Stmts: stmts}
	return &ir.Unit{Name: "factorial", Funcs: []*ir.Func{fn}}
}

// sumloop builds an iterative `sum(n) = 0 + 1 + ... + n`, a straight-line
// loop whose invariant-free body exercises live-range splitting across a
// back edge and partial redundancy elimination on the loop condition.
func sumloop() *ir.Unit {
	n, i, acc := symbol.FreshTemp("n"), symbol.FreshTemp("i"), symbol.FreshTemp("acc")
	name := symbol.FixedLabel("_Isumloop_pii")
	top, body, exit := symbol.FreshLabel("top"), symbol.FreshLabel("body"), symbol.FreshLabel("exit")

	stmts := []ir.Stmt{
		ir.StmtMove{Dst: ir.ExprTemp{Temp: n}, Src: ir.ExprArg{Index: 0}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: i}, Src: ir.ExprImm{Imm: ir.ImmInt(0)}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: acc}, Src: ir.ExprImm{Imm: ir.ImmInt(0)}},
		ir.StmtLabel{Label: top},
		ir.StmtCJump{
			Cond: ir.GT, Left: ir.ExprTemp{Temp: i}, Right: ir.ExprTemp{Temp: n},
			True: exit, False: body, HasFalse: true,
		},
		ir.StmtLabel{Label: body},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: acc}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: acc}, Right: ir.ExprTemp{Temp: i}}},
		ir.StmtMove{Dst: ir.ExprTemp{Temp: i}, Src: ir.ExprBinary{Op: ir.ADD, Left: ir.ExprTemp{Temp: i}, Right: ir.ExprImm{Imm: ir.ImmInt(1)}}},
		ir.StmtJump{Target: top},
		ir.StmtLabel{Label: exit},
		ir.StmtReturn{Values: []ir.Expr{ir.ExprTemp{Temp: acc}}},
	}

	fn := &ir.Func{Name: name, Arity: 1, Returns: 1, Linkage: ir.Definition, Stmts: stmts}
	return &ir.Unit{Name: "sumloop", Funcs: []*ir.Func{fn}}
}

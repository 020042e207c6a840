// Package optimize implements the six optimization passes of §4.5:
// constant folding, copy/constant propagation (with DCE), dead-code
// elimination, partial-redundancy elimination (lazy code motion),
// conditional constant propagation, and function inlining, plus a
// supplemental loop-invariant pass drawn from the original implementation
// (see SPEC_FULL.md's "Supplemented Features").
package optimize

import "xic/internal/ir"

// FoldConstants rewrites every Binary subexpression of every statement in
// stmts via structural term rewriting: numeric folding of two immediates,
// plus the algebraic identities of §4.5. Division and modulo by a literal
// zero are never folded away, preserving the runtime fault.
func FoldConstants(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = foldStmt(s)
	}
	return out
}

func foldStmt(s ir.Stmt) ir.Stmt {
	switch s := s.(type) {
	case ir.StmtCJump:
		return ir.StmtCJump{Cond: s.Cond, Left: foldExpr(s.Left), Right: foldExpr(s.Right), True: s.True, False: s.False, HasFalse: s.HasFalse}
	case ir.StmtExpr:
		return ir.StmtExpr{Expr: foldExpr(s.Expr)}
	case ir.StmtMove:
		dst := s.Dst
		if mem, ok := dst.(ir.ExprMem); ok {
			dst = ir.ExprMem{Addr: foldExpr(mem.Addr)}
		} else {
			dst = foldExpr(dst)
		}
		return ir.StmtMove{Dst: dst, Src: foldExpr(s.Src)}
	case ir.StmtReturn:
		vals := make([]ir.Expr, len(s.Values))
		for i, v := range s.Values {
			vals[i] = foldExpr(v)
		}
		return ir.StmtReturn{Values: vals}
	case ir.StmtCall:
		args := make([]ir.Expr, len(s.Args))
		for i, a := range s.Args {
			args[i] = foldExpr(a)
		}
		return ir.StmtCall{Func: s.Func, Args: args, Returns: s.Returns}
	}
	return s
}

func foldExpr(e ir.Expr) ir.Expr {
	switch e := e.(type) {
	case ir.ExprMem:
		return ir.ExprMem{Addr: foldExpr(e.Addr)}
	case ir.ExprBinary:
		l, r := foldExpr(e.Left), foldExpr(e.Right)
		if folded, ok := ir.FoldIdentity(e.Op, l, r); ok {
			return folded
		}
		return ir.ExprBinary{Op: e.Op, Left: l, Right: r}
	}
	return e
}

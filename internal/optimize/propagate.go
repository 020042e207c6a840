package optimize

import (
	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/ir"
)

// PropagateConstants rewrites temporary reads with their known constant
// value wherever constant propagation proved one, then recomputes liveness
// so a subsequent DCE pass can drop the now-dead source moves (§4.5).
func PropagateConstants(g *cfg.Graph[ir.Stmt], cp analysis.ConstantPropagation) {
	result := analysis.Run2(g, cp)
	for _, l := range g.Order {
		b := g.Blocks[l]
		in := result.In[l]
		for i, s := range b.Stmts {
			var cur analysis.ConstMap
			if i == 0 {
				cur = in
			} else {
				cur = result.Trace[l][i-1]
			}
			b.Stmts[i] = rewriteConstants(s, cur)
		}
		if b.Term != nil {
			var cur analysis.ConstMap = in
			if len(b.Stmts) > 0 {
				cur = result.Trace[l][len(b.Stmts)-1]
			}
			b.Term = rewriteConstants(b.Term, cur)
		}
	}
}

func rewriteConstants(s ir.Stmt, m analysis.ConstMap) ir.Stmt {
	sub := func(e ir.Expr) ir.Expr { return substConst(e, m) }
	switch s := s.(type) {
	case ir.StmtCJump:
		return ir.StmtCJump{Cond: s.Cond, Left: sub(s.Left), Right: sub(s.Right), True: s.True, False: s.False, HasFalse: s.HasFalse}
	case ir.StmtExpr:
		return ir.StmtExpr{Expr: sub(s.Expr)}
	case ir.StmtMove:
		dst := s.Dst
		if mem, ok := dst.(ir.ExprMem); ok {
			dst = ir.ExprMem{Addr: sub(mem.Addr)}
		}
		return ir.StmtMove{Dst: dst, Src: sub(s.Src)}
	case ir.StmtReturn:
		vals := make([]ir.Expr, len(s.Values))
		for i, v := range s.Values {
			vals[i] = sub(v)
		}
		return ir.StmtReturn{Values: vals}
	case ir.StmtCall:
		args := make([]ir.Expr, len(s.Args))
		for i, a := range s.Args {
			args[i] = sub(a)
		}
		return ir.StmtCall{Func: s.Func, Args: args, Returns: s.Returns}
	}
	return s
}

func substConst(e ir.Expr, m analysis.ConstMap) ir.Expr {
	switch e := e.(type) {
	case ir.ExprTemp:
		if v, ok := m[e.Temp]; ok && v.Kind == analysis.Defined {
			return ir.ExprImm{Imm: ir.ImmInt(v.Value)}
		}
		return e
	case ir.ExprMem:
		return ir.ExprMem{Addr: substConst(e.Addr, m)}
	case ir.ExprBinary:
		return ir.ExprBinary{Op: e.Op, Left: substConst(e.Left, m), Right: substConst(e.Right, m)}
	}
	return e
}

// PropagateCopies rewrites operand reads of a copy's destination with its
// canonical source temporary, per §4.4/§4.5.
func PropagateCopies(g *cfg.Graph[ir.Stmt], cp analysis.CopyPropagation) {
	result := analysis.Run3(g, cp)
	for _, l := range g.Order {
		b := g.Blocks[l]
		in := result.In[l]
		for i, s := range b.Stmts {
			var cur analysis.CopyMap
			if i == 0 {
				cur = in
			} else {
				cur = result.Trace[l][i-1]
			}
			b.Stmts[i] = rewriteCopies(s, cur)
		}
	}
}

func rewriteCopies(s ir.Stmt, m analysis.CopyMap) ir.Stmt {
	sub := func(e ir.Expr) ir.Expr { return substCopy(e, m) }
	switch s := s.(type) {
	case ir.StmtCJump:
		return ir.StmtCJump{Cond: s.Cond, Left: sub(s.Left), Right: sub(s.Right), True: s.True, False: s.False, HasFalse: s.HasFalse}
	case ir.StmtExpr:
		return ir.StmtExpr{Expr: sub(s.Expr)}
	case ir.StmtMove:
		dst := s.Dst
		if mem, ok := dst.(ir.ExprMem); ok {
			dst = ir.ExprMem{Addr: sub(mem.Addr)}
		}
		return ir.StmtMove{Dst: dst, Src: sub(s.Src)}
	case ir.StmtReturn:
		vals := make([]ir.Expr, len(s.Values))
		for i, v := range s.Values {
			vals[i] = sub(v)
		}
		return ir.StmtReturn{Values: vals}
	case ir.StmtCall:
		args := make([]ir.Expr, len(s.Args))
		for i, a := range s.Args {
			args[i] = sub(a)
		}
		return ir.StmtCall{Func: s.Func, Args: args, Returns: s.Returns}
	}
	return s
}

func substCopy(e ir.Expr, m analysis.CopyMap) ir.Expr {
	switch e := e.(type) {
	case ir.ExprTemp:
		if src, ok := m[e.Temp]; ok {
			return ir.ExprTemp{Temp: src}
		}
		return e
	case ir.ExprMem:
		return ir.ExprMem{Addr: substCopy(e.Addr, m)}
	case ir.ExprBinary:
		return ir.ExprBinary{Op: e.Op, Left: substCopy(e.Left, m), Right: substCopy(e.Right, m)}
	}
	return e
}


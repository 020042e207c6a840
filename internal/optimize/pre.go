package optimize

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// PartialRedundancyEliminate implements §4.5's lazy code motion: split
// critical edges, compute the four lattices plus earliest/latest, then
// materialize each expression in latest∩used at a fresh per-expression
// temporary and rewrite occurrences to reference it.
func PartialRedundancyEliminate(g *cfg.Graph[ir.Stmt]) {
	cfg.SplitCriticalEdges[ir.Stmt](g, func(target symbol.Label) ir.Stmt {
		return ir.StmtJump{Target: target}
	})

	anticipated := dataflow.Solve[ir.Stmt, analysis.ExprSet](g, analysis.AnticipatedExpressions{})
	available := dataflow.Solve[ir.Stmt, analysis.ExprSet](g, analysis.AvailableExpressions{Anticipated: anticipated})
	earliest := analysis.Earliest(g, anticipated, available)
	used := dataflow.Solve[ir.Stmt, analysis.ExprSet](g, analysis.UsedExpressions{})
	postponable := dataflow.Solve[ir.Stmt, analysis.ExprSet](g, analysis.PostponableExpressions{Earliest: earliest})
	usedAtEntry := make(map[symbol.Label]analysis.ExprSet, len(g.Order))
	for _, l := range g.Order {
		usedAtEntry[l] = used.In[l]
	}
	latest := analysis.Latest(g, earliest, postponable, usedAtEntry)

	temps := map[string]symbol.Temporary{}
	temp := func(key string) symbol.Temporary {
		if t, ok := temps[key]; ok {
			return t
		}
		t := symbol.FreshTemp("pre")
		temps[key] = t
		return t
	}

	for _, l := range g.Order {
		mat := latest[l]
		if len(mat) == 0 {
			continue
		}
		// Go map iteration is randomized; §5 requires deterministic
		// output, so materialized expressions are emitted in sorted key
		// order rather than however the map happens to iterate.
		keys := maps.Keys(mat)
		slices.Sort(keys)
		var prefix []ir.Stmt
		for _, k := range keys {
			prefix = append(prefix, ir.StmtMove{Dst: ir.ExprTemp{Temp: temp(k)}, Src: mat[k]})
		}
		b := g.Blocks[l]
		b.Stmts = append(prefix, b.Stmts...)
	}

	for _, l := range g.Order {
		b := g.Blocks[l]
		for i, s := range b.Stmts {
			b.Stmts[i] = rewriteUses(s, temps)
		}
		if b.Term != nil {
			b.Term = rewriteUses(b.Term, temps)
		}
	}
}

// rewriteUses rewrites any occurrence of a materialized expression with a
// reference to its cached temporary, recursively, per §4.5 step 4.
func rewriteUses(s ir.Stmt, temps map[string]symbol.Temporary) ir.Stmt {
	sub := func(e ir.Expr) ir.Expr { return rewriteExprUses(e, temps) }
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

func rewriteExprUses(e ir.Expr, temps map[string]symbol.Temporary) ir.Expr {
	if t, ok := temps[e.String()]; ok {
		if _, isBinary := e.(ir.ExprBinary); isBinary {
			return ir.ExprTemp{Temp: t}
		}
		if _, isMem := e.(ir.ExprMem); isMem {
			return ir.ExprTemp{Temp: t}
		}
	}
	switch e := e.(type) {
	case ir.ExprMem:
		return ir.ExprMem{Addr: rewriteExprUses(e.Addr, temps)}
	case ir.ExprBinary:
		return ir.ExprBinary{Op: e.Op, Left: rewriteExprUses(e.Left, temps), Right: rewriteExprUses(e.Right, temps)}
	}
	return e
}

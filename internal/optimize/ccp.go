package optimize

import (
	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// ConditionalConstantPropagate runs §4.4's conditional constant
// propagation and then rewrites CJumps whose condition folds into an
// unconditional jump, removing the untaken edge, and deletes now-
// unreachable blocks (§4.5).
func ConditionalConstantPropagate(g *cfg.Graph[ir.Stmt], c analysis.ConditionalConstantPropagation) {
	result := analysis.RunCCP(g, c)
	for _, l := range g.Order {
		b, ok := g.Blocks[l]
		if !ok {
			continue
		}
		cj, ok := asCJump(b.Term)
		if !ok {
			continue
		}
		consts := result.In[l].Consts
		if n := len(b.Stmts); n > 0 {
			consts = result.Trace[l][n-1].Consts
		}
		trueReach, falseReach := c.BranchReachability(consts, cj)
		switch {
		case trueReach && !falseReach:
			collapse(g, b, cj.True)
		case falseReach && !trueReach:
			collapse(g, b, cj.False)
		}
	}
	cfg.CleanGeneric[ir.Stmt](g, func(s []ir.Stmt) bool { return len(s) == 0 })
}

func asCJump(s ir.Stmt) (ir.StmtCJump, bool) {
	cj, ok := s.(ir.StmtCJump)
	return cj, ok
}

func collapse(g *cfg.Graph[ir.Stmt], b *cfg.Block[ir.Stmt], target symbol.Label) {
	b.Term = ir.StmtJump{Target: target}
	var kept []cfg.Edge
	for _, e := range b.Succs {
		if e.To.Equal(target) {
			kept = append(kept, cfg.Edge{Kind: cfg.EdgeUnconditional, To: target})
		}
	}
	b.Succs = kept
}

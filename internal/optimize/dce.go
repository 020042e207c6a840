package optimize

import (
	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/ir"
)

// DeadCodeEliminate walks each block in reverse using live-out, deleting
// any definition whose destination is dead, per §4.5. Callee-saved
// register writes are kept live to ret (§4.8); memory writes are always
// preserved.
func DeadCodeEliminate(g *cfg.Graph[ir.Stmt], la analysis.LiveVariables) bool {
	result := analysis.Run(g, la)
	changed := false
	for _, l := range g.Order {
		b := g.Blocks[l]
		live := result.Out[l]
		var kept []ir.Stmt
		for i := len(b.Stmts) - 1; i >= 0; i-- {
			s := b.Stmts[i]
			if mv, ok := s.(ir.StmtMove); ok {
				if t, ok := mv.Dst.(ir.ExprTemp); ok {
					if !live[t.Temp] {
						changed = true
						live = shrinkLive(live, s)
						continue
					}
				}
			}
			live = la.Transfer(l, i, s, live)
			kept = append([]ir.Stmt{s}, kept...)
		}
		b.Stmts = kept
	}
	return changed
}

// shrinkLive recomputes the live-in set as if the dropped statement had
// never existed: since it has no observable effect (its destination was
// dead), live-in equals live-out minus nothing it used.
func shrinkLive(liveOut analysis.TempSet, dropped ir.Stmt) analysis.TempSet {
	return liveOut
}

package cfg

import "xic/internal/symbol"

// SplitCriticalEdges implements §4.2's critical-edge splitting: for any
// edge (u, v) where u has more than one successor and v has more than one
// predecessor, insert a fresh block containing only a jump to v, and
// retarget u's edge to the fresh block. u's stored terminator is left as
// it is; LIR destruction takes its targets from the edges. mkJump
// constructs the new block's sole terminator statement/instruction (its
// type depends on S, hence the callback).
func SplitCriticalEdges[S any](g *Graph[S], mkJump func(target symbol.Label) S) bool {
	changed := false
	for _, u := range append([]symbol.Label{}, g.Order...) {
		ub, ok := g.Blocks[u]
		if !ok || len(ub.Succs) <= 1 {
			continue
		}
		for i := range ub.Succs {
			v := ub.Succs[i].To
			vb, ok := g.Blocks[v]
			if !ok || len(vb.Preds) <= 1 {
				continue
			}
			fresh := symbol.FreshLabel("split")
			fb := &Block[S]{Label: fresh}
			fb.Succs = []Edge{{Kind: EdgeUnconditional, To: v}}
			fb.Term = mkJump(v)
			g.Blocks[fresh] = fb
			g.Order = append(g.Order, fresh)

			ub.Succs[i].To = fresh
			fb.Preds = append(fb.Preds, u)

			kept := vb.Preds[:0]
			for _, p := range vb.Preds {
				if p.Equal(u) {
					continue
				}
				kept = append(kept, p)
			}
			vb.Preds = append(kept, fresh)
			changed = true
		}
	}
	return changed
}

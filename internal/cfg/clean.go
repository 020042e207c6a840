package cfg

import "xic/internal/symbol"

// CleanGeneric runs the §4.2 cleaning fixed point over any Graph[S]:
//
//  1. recompute postorder-reachable blocks from Enter; delete the rest.
//  2. for each reachable block (postorder): if it contains only a jump,
//     rewrite every predecessor to target its successor directly and
//     remove it; if its sole unconditional successor has exactly one
//     predecessor and is not Exit, merge the two blocks.
//
// isEmpty reports whether a block's statement list (excluding its
// terminator, which lives in Block.Term) is empty.
func CleanGeneric[S any](g *Graph[S], isEmpty func([]S) bool) {
	for {
		changed := pruneUnreachable(g)
		if threadJumpOnlyBlocks(g, isEmpty) {
			changed = true
		}
		if mergeSingletonSuccessors(g, isEmpty) {
			changed = true
		}
		if !changed {
			return
		}
	}
}

func postorder[S any](g *Graph[S]) []symbol.Label {
	visited := make(map[symbol.Label]bool)
	var order []symbol.Label
	var visit func(l symbol.Label)
	visit = func(l symbol.Label) {
		if visited[l] {
			return
		}
		visited[l] = true
		if b, ok := g.Blocks[l]; ok {
			for _, e := range b.Succs {
				visit(e.To)
			}
		}
		order = append(order, l)
	}
	visit(g.Enter)
	return order
}

func pruneUnreachable[S any](g *Graph[S]) bool {
	reachable := make(map[symbol.Label]bool)
	for _, l := range postorder(g) {
		reachable[l] = true
	}
	changed := false
	for _, l := range append([]symbol.Label{}, g.Order...) {
		if !reachable[l] {
			g.RemoveBlock(l)
			changed = true
		}
	}
	// Drop predecessor bookkeeping pointing at removed blocks.
	for _, l := range g.Order {
		b := g.Blocks[l]
		kept := b.Preds[:0]
		for _, p := range b.Preds {
			if reachable[p] {
				kept = append(kept, p)
			}
		}
		b.Preds = kept
	}
	return changed
}

// rewriteSuccessor changes every edge in from's Succs targeting old to
// target new instead, updating new's Preds bookkeeping.
func rewriteSuccessor[S any](g *Graph[S], from, old, to symbol.Label) {
	fb := g.Blocks[from]
	for i := range fb.Succs {
		if fb.Succs[i].To.Equal(old) {
			fb.Succs[i].To = to
		}
	}
	if nb, ok := g.Blocks[to]; ok {
		nb.Preds = append(nb.Preds, from)
	}
}

func threadJumpOnlyBlocks[S any](g *Graph[S], isEmpty func([]S) bool) bool {
	changed := false
	for _, l := range postorder(g) {
		if l.Equal(g.Enter) || l.Equal(g.Exit) {
			continue
		}
		b, ok := g.Blocks[l]
		if !ok || !isEmpty(b.Stmts) || len(b.Succs) != 1 || b.Succs[0].Kind != EdgeUnconditional {
			continue
		}
		target := b.Succs[0].To
		preds := append([]symbol.Label{}, b.Preds...)
		for _, p := range preds {
			if p.Equal(l) {
				continue
			}
			rewriteSuccessor(g, p, l, target)
		}
		if tb, ok := g.Blocks[target]; ok {
			kept := tb.Preds[:0]
			for _, p := range tb.Preds {
				if !p.Equal(l) {
					kept = append(kept, p)
				}
			}
			tb.Preds = kept
		}
		g.RemoveBlock(l)
		changed = true
	}
	return changed
}

func mergeSingletonSuccessors[S any](g *Graph[S], isEmpty func([]S) bool) bool {
	changed := false
	for _, l := range postorder(g) {
		b, ok := g.Blocks[l]
		if !ok || len(b.Succs) != 1 || b.Succs[0].Kind != EdgeUnconditional {
			continue
		}
		succLabel := b.Succs[0].To
		if succLabel.Equal(g.Exit) || succLabel.Equal(l) {
			continue
		}
		sb, ok := g.Blocks[succLabel]
		if !ok || len(sb.Preds) != 1 {
			continue
		}
		b.Stmts = append(b.Stmts, sb.Stmts...)
		b.Term = sb.Term
		b.Succs = sb.Succs
		for _, e := range sb.Succs {
			if tb, ok := g.Blocks[e.To]; ok {
				for i, p := range tb.Preds {
					if p.Equal(succLabel) {
						tb.Preds[i] = l
					}
				}
			}
		}
		g.RemoveBlock(succLabel)
		changed = true
	}
	return changed
}

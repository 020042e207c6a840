package optimize

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// HoistLoopInvariants is a supplemental pass (see SPEC_FULL.md's
// "Supplemented Features", grounded on the original's loop_invert.rs/
// loop.rs) not named among §4.5's six passes: for a natural loop (a back
// edge target dominating its source, detected here via the simpler
// sufficient condition of a self-referential predecessor reachable only
// through the header), hoist every move whose source (an immediate, a
// temporary, or a binary expression over those) reads only temporaries not
// defined in the loop body into a fresh preheader block. Gated off by
// default; enabled only under "-O" by the caller.
func HoistLoopInvariants(g *cfg.Graph[ir.Stmt]) {
	headers := backEdgeTargets(g)
	// Go map iteration is randomized; §5 requires the whole pipeline to be
	// deterministic, so header blocks are visited in a fixed, sorted order.
	headerLabels := maps.Keys(headers)
	slices.SortFunc(headerLabels, func(a, b symbol.Label) bool { return a.String() < b.String() })
	for _, header := range headerLabels {
		latches := headers[header]
		body := loopBody(g, header, latches)
		definedInBody := definedTemps(g, body)
		preheader := newPreheader(g, header, latches)
		for _, l := range body {
			b := g.Blocks[l]
			var kept []ir.Stmt
			for _, s := range b.Stmts {
				if mv, ok := s.(ir.StmtMove); ok {
					if isInvariant(mv.Src, definedInBody) {
						g.Blocks[preheader].Stmts = append(g.Blocks[preheader].Stmts, mv)
						continue
					}
				}
				kept = append(kept, s)
			}
			b.Stmts = kept
		}
	}
}

func isInvariant(e ir.Expr, definedInBody map[symbol.Temporary]bool) bool {
	switch e := e.(type) {
	case ir.ExprImm:
		return true
	case ir.ExprTemp:
		return !definedInBody[e.Temp]
	case ir.ExprBinary:
		return isInvariant(e.Left, definedInBody) && isInvariant(e.Right, definedInBody)
	}
	return false
}

func backEdgeTargets(g *cfg.Graph[ir.Stmt]) map[symbol.Label][]symbol.Label {
	out := map[symbol.Label][]symbol.Label{}
	order := make(map[symbol.Label]int, len(g.Order))
	for i, l := range g.Order {
		order[l] = i
	}
	for _, l := range g.Order {
		for _, s := range g.Successors(l) {
			if order[s] <= order[l] {
				out[s] = append(out[s], l)
			}
		}
	}
	return out
}

func loopBody(g *cfg.Graph[ir.Stmt], header symbol.Label, latches []symbol.Label) []symbol.Label {
	body := map[symbol.Label]bool{header: true}
	var stack []symbol.Label
	stack = append(stack, latches...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if body[n] {
			continue
		}
		body[n] = true
		for _, p := range g.Predecessors(n) {
			if !body[p] {
				stack = append(stack, p)
			}
		}
	}
	out := maps.Keys(body)
	slices.SortFunc(out, func(a, b symbol.Label) bool { return a.String() < b.String() })
	return out
}

func definedTemps(g *cfg.Graph[ir.Stmt], body []symbol.Label) map[symbol.Temporary]bool {
	out := map[symbol.Temporary]bool{}
	for _, l := range body {
		for _, s := range g.Blocks[l].Stmts {
			if mv, ok := s.(ir.StmtMove); ok {
				if t, ok := mv.Dst.(ir.ExprTemp); ok {
					out[t.Temp] = true
				}
			}
		}
	}
	return out
}

func newPreheader(g *cfg.Graph[ir.Stmt], header symbol.Label, latches []symbol.Label) symbol.Label {
	fresh := symbol.FreshLabel("preheader")
	fb := &cfg.Block[ir.Stmt]{Label: fresh}
	fb.Term = ir.StmtJump{Target: header}
	fb.Succs = []cfg.Edge{{Kind: cfg.EdgeUnconditional, To: header}}
	g.Blocks[fresh] = fb
	g.Order = append(g.Order, fresh)

	// Entry edges from outside the loop (predecessors that are not latches)
	// now lead to the preheader; the latches keep their back edges.
	hb := g.Blocks[header]
	preds := []symbol.Label{fresh}
	for _, p := range hb.Preds {
		if slices.IndexFunc(latches, p.Equal) >= 0 {
			preds = append(preds, p)
			continue
		}
		for i, e := range g.Blocks[p].Succs {
			if e.To.Equal(header) {
				g.Blocks[p].Succs[i].To = fresh
			}
		}
		fb.Preds = append(fb.Preds, p)
	}
	hb.Preds = preds
	return fresh
}

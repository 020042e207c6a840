package cfg

import "xic/internal/symbol"

// Invariants checks the structural properties §3 and §8 (testable
// properties 2-4) require of any Graph[S], independent of whether S is
// LIR or ASM. It never mutates the graph; a caller that wants to assert
// these hold (typically a test, per DESIGN.md's note that
// `internal/cfg/invariants.go` is exercised primarily from the test
// suite) wraps this in a `require.Empty(t, cfg.Invariants(g, isEmpty))`.
//
// Per §7, the compiler core has no user-visible error space once a
// program type-checks; a CFG invariant violation discovered mid-pipeline
// (as opposed to a test asserting on a constructed graph) is a
// programming error and panics via internal/util.Assert, not this
// function — Invariants returns a list of human-readable violations so
// tests can report every broken invariant in one run rather than
// stopping at the first panic.
func Invariants[S any](g *Graph[S], isEmpty func([]S) bool) []string {
	var problems []string

	if _, ok := g.Blocks[g.Enter]; !ok {
		problems = append(problems, "enter block "+g.Enter.String()+" is missing")
	}
	exitBlock, exitOK := g.Blocks[g.Exit]
	if !exitOK {
		problems = append(problems, "exit block "+g.Exit.String()+" is missing")
	} else if len(exitBlock.Succs) != 0 {
		problems = append(problems, "exit block "+g.Exit.String()+" has outgoing edges")
	}

	for _, l := range g.Order {
		b := g.Blocks[l]
		problems = append(problems, edgeCountProblems(b)...)
		problems = append(problems, danglingTargetProblems(g, b)...)
	}

	problems = append(problems, unreachableProblems(g)...)
	problems = append(problems, predConsistencyProblems(g)...)

	return problems
}

// edgeCountProblems enforces "every block ends with exactly one
// terminator; every outgoing edge type matches the terminator type"
// (§3): an unconditional terminator has exactly one successor, a
// conditional one has exactly two (one EdgeTrue, one EdgeFalse), and the
// exit block (checked separately by Invariants) has none.
func edgeCountProblems[S any](b *Block[S]) []string {
	var problems []string
	switch len(b.Succs) {
	case 0:
		// Only the exit block may terminate with no outgoing edge; that
		// case is validated by the caller against g.Exit directly.
	case 1:
		if b.Succs[0].Kind != EdgeUnconditional {
			problems = append(problems, "block "+b.Label.String()+" has one successor but it is not unconditional")
		}
	case 2:
		kinds := map[EdgeKind]bool{b.Succs[0].Kind: true, b.Succs[1].Kind: true}
		if !kinds[EdgeTrue] || !kinds[EdgeFalse] {
			problems = append(problems, "block "+b.Label.String()+" has two successors that are not a true/false pair")
		}
	default:
		problems = append(problems, "block "+b.Label.String()+" has more than two successors")
	}
	return problems
}

func danglingTargetProblems[S any](g *Graph[S], b *Block[S]) []string {
	var problems []string
	for _, e := range b.Succs {
		if _, ok := g.Blocks[e.To]; !ok {
			problems = append(problems, "block "+b.Label.String()+" targets missing block "+e.To.String())
		}
	}
	return problems
}

// unreachableProblems enforces "enter dominates all reachable nodes" in
// its weakest observable form for a label-keyed graph without a
// materialized dominator tree: every block present in g.Blocks must
// actually be discoverable by walking successors from Enter, i.e. there
// is no block whose only path to Enter's reachable set is backwards.
func unreachableProblems[S any](g *Graph[S]) []string {
	reachable := reachableFrom(g, g.Enter)
	var problems []string
	for _, l := range g.Order {
		if !reachable[l] {
			problems = append(problems, "block "+l.String()+" is not reachable from enter")
		}
	}
	if !reachable[g.Exit] {
		problems = append(problems, "exit block "+g.Exit.String()+" is not reachable from enter")
	}
	return problems
}

func reachableFrom[S any](g *Graph[S], start symbol.Label) map[symbol.Label]bool {
	seen := map[symbol.Label]bool{}
	var stack []symbol.Label
	stack = append(stack, start)
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[l] {
			continue
		}
		seen[l] = true
		if b, ok := g.Blocks[l]; ok {
			for _, e := range b.Succs {
				if !seen[e.To] {
					stack = append(stack, e.To)
				}
			}
		}
	}
	return seen
}

// predConsistencyProblems enforces that Preds bookkeeping exactly
// mirrors the graph's Succs edges in both directions, a property every
// pass that rewrites edges (clean.go, split.go, loop.go) must preserve
// for the dataflow framework's Predecessors/Successors readers to stay
// correct.
func predConsistencyProblems[S any](g *Graph[S]) []string {
	var problems []string
	fromSuccs := map[symbol.Label]map[symbol.Label]int{}
	for _, l := range g.Order {
		for _, e := range g.Blocks[l].Succs {
			if fromSuccs[e.To] == nil {
				fromSuccs[e.To] = map[symbol.Label]int{}
			}
			fromSuccs[e.To][l]++
		}
	}
	for _, l := range g.Order {
		b := g.Blocks[l]
		fromPreds := map[symbol.Label]int{}
		for _, p := range b.Preds {
			fromPreds[p]++
		}
		want := fromSuccs[l]
		for p, n := range want {
			if fromPreds[p] != n {
				problems = append(problems, "block "+l.String()+" preds missing edge from "+p.String())
			}
		}
		for p, n := range fromPreds {
			if want[p] != n {
				problems = append(problems, "block "+l.String()+" preds lists spurious edge from "+p.String())
			}
		}
	}
	return problems
}

// NoJumpOnlyBlocks reports §8 property 3's "no block contains only a
// jump" for every reachable, non-exit block after cleaning.
func NoJumpOnlyBlocks[S any](g *Graph[S], isEmpty func([]S) bool) []string {
	var problems []string
	for _, l := range g.Order {
		if l.Equal(g.Exit) {
			continue
		}
		b := g.Blocks[l]
		if isEmpty(b.Stmts) && len(b.Succs) == 1 && b.Succs[0].Kind == EdgeUnconditional {
			problems = append(problems, "block "+l.String()+" contains only a jump after cleaning")
		}
	}
	return problems
}

// NoUnmergedSingletons reports §8 property 3's second half: no block's
// sole unconditional successor, other than Exit, still has exactly one
// predecessor after cleaning (such a pair should have been merged).
func NoUnmergedSingletons[S any](g *Graph[S]) []string {
	var problems []string
	for _, l := range g.Order {
		b := g.Blocks[l]
		if len(b.Succs) != 1 || b.Succs[0].Kind != EdgeUnconditional {
			continue
		}
		succ := b.Succs[0].To
		if succ.Equal(g.Exit) || succ.Equal(l) {
			continue
		}
		sb, ok := g.Blocks[succ]
		if ok && len(sb.Preds) == 1 {
			problems = append(problems, "block "+l.String()+" and its sole successor "+succ.String()+" should have been merged")
		}
	}
	return problems
}

// NoCriticalEdges reports §8 property 4: after splitting, every edge
// (u, v) has u with at most one successor or v with at most one
// predecessor.
func NoCriticalEdges[S any](g *Graph[S]) []string {
	var problems []string
	for _, u := range g.Order {
		ub := g.Blocks[u]
		if len(ub.Succs) <= 1 {
			continue
		}
		for _, e := range ub.Succs {
			vb, ok := g.Blocks[e.To]
			if ok && len(vb.Preds) > 1 {
				problems = append(problems, "critical edge "+u.String()+" -> "+e.To.String()+" was not split")
			}
		}
	}
	return problems
}

// Package dataflow implements the monotone dataflow framework of §4.3: a
// solver parameterized by an Analysis that computes SCCs of the (possibly
// reversed) CFG and processes them in topological order, running a FIFO
// worklist within each SCC seeded in reverse postorder, until the analysis
// reaches a fixed point.
package dataflow

import (
	"xic/internal/cfg"
	"xic/internal/symbol"
)

type Direction int

const (
	Forward Direction = iota
	Backward
)

// Analysis specifies a monotone dataflow problem over blocks of statement
// type S and lattice value type V: a bottom element, a direction, a
// per-statement transfer, and a merge of predecessor/successor outputs.
// The with-metadata variants receive the block label and the index of the
// statement within the block, for analyses like partial-redundancy whose
// transfer depends on intra-block position (§4.3 "Variants").
type Analysis[S any, V any] interface {
	Direction() Direction
	Bottom() V
	Equal(a, b V) bool
	// Transfer applies one statement's effect to in, returning the
	// resulting value. idx is the statement's index within its block
	// (meaningful for with-metadata analyses; ignored otherwise).
	Transfer(label symbol.Label, idx int, stmt S, in V) V
	// Merge combines the outputs of predecessors (forward) or successors
	// (backward) feeding into label's input. values carries the edge kind
	// (EdgeValue.Kind) for each contributing neighbor, for merges that
	// want to look at it.
	Merge(label symbol.Label, values []EdgeValue[V]) V
}

type EdgeValue[V any] struct {
	From symbol.Label
	Kind cfg.EdgeKind
	Value V
}

// Result holds, per block, the input and output lattice value, plus the
// full per-statement trace (value after each statement) for passes that
// need intra-block values (e.g. PRE's latest/used computation).
type Result[V any] struct {
	In, Out map[symbol.Label]V
	// Trace[label][i] is the value produced by transferring statement i of
	// the block: for a forward analysis the value just after it, for a
	// backward analysis the value just before it. The merged value feeding
	// the block is not part of the trace.
	Trace map[symbol.Label][]V
}

// Solve runs analysis a to a fixed point over g and returns the result.
func Solve[S any, V any](g *cfg.Graph[S], a Analysis[S, V]) *Result[V] {
	order := g.Order
	sccs := tarjanSCCs(g, order, a.Direction())

	in := make(map[symbol.Label]V, len(order))
	out := make(map[symbol.Label]V, len(order))
	trace := make(map[symbol.Label][]V, len(order))
	for _, l := range order {
		in[l] = a.Bottom()
		out[l] = a.Bottom()
	}

	for _, scc := range sccs {
		solveSCC(g, a, scc, in, out, trace)
	}
	return &Result[V]{In: in, Out: out, Trace: trace}
}

func solveSCC[S any, V any](g *cfg.Graph[S], a Analysis[S, V], scc []symbol.Label, in, out map[symbol.Label]V, trace map[symbol.Label][]V) {
	rpo := reversePostorderWithin(g, scc)
	queue := append([]symbol.Label{}, rpo...)
	enqueued := make(map[symbol.Label]bool, len(rpo))
	for _, l := range rpo {
		enqueued[l] = true
	}
	inSCC := make(map[symbol.Label]bool, len(scc))
	for _, l := range scc {
		inSCC[l] = true
	}

	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		enqueued[l] = false

		var neighborLabels []symbol.Label
		var neighborKinds []cfg.EdgeKind
		if a.Direction() == Forward {
			for _, p := range g.Predecessors(l) {
				neighborLabels = append(neighborLabels, p)
				neighborKinds = append(neighborKinds, edgeKindInto(g, p, l))
			}
		} else {
			b := g.Blocks[l]
			for _, e := range b.Succs {
				neighborLabels = append(neighborLabels, e.To)
				neighborKinds = append(neighborKinds, e.Kind)
			}
		}

		values := make([]EdgeValue[V], len(neighborLabels))
		for i, n := range neighborLabels {
			var v V
			if a.Direction() == Forward {
				v = out[n]
			} else {
				v = in[n]
			}
			values[i] = EdgeValue[V]{From: n, Kind: neighborKinds[i], Value: v}
		}
		merged := a.Merge(l, values)

		b := g.Blocks[l]
		cur := merged
		blockTrace := make([]V, len(b.Stmts))
		stmts := b.Stmts
		if a.Direction() == Backward {
			for i := len(stmts) - 1; i >= 0; i-- {
				cur = a.Transfer(l, i, stmts[i], cur)
				blockTrace[i] = cur
			}
		} else {
			for i := 0; i < len(stmts); i++ {
				cur = a.Transfer(l, i, stmts[i], cur)
				blockTrace[i] = cur
			}
		}

		var newIn, newOut V
		if a.Direction() == Forward {
			newIn, newOut = merged, cur
		} else {
			newIn, newOut = cur, merged
		}

		changed := !a.Equal(in[l], newIn) || !a.Equal(out[l], newOut)
		in[l] = newIn
		out[l] = newOut
		trace[l] = blockTrace

		if changed {
			for _, succ := range successorsForRequeue(g, l, a.Direction()) {
				if inSCC[succ] && !enqueued[succ] {
					queue = append(queue, succ)
					enqueued[succ] = true
				}
			}
		}
	}
}

func successorsForRequeue[S any](g *cfg.Graph[S], l symbol.Label, dir Direction) []symbol.Label {
	if dir == Forward {
		return g.Successors(l)
	}
	return g.Predecessors(l)
}

func edgeKindInto[S any](g *cfg.Graph[S], from, to symbol.Label) cfg.EdgeKind {
	for _, e := range g.Blocks[from].Succs {
		if e.To.Equal(to) {
			return e.Kind
		}
	}
	return cfg.EdgeUnconditional
}

package dataflow

import (
	"xic/internal/cfg"
	"xic/internal/symbol"
)

// tarjanSCCs computes the strongly connected components of g (or its
// reverse, for backward analyses) in topological order: component i's
// nodes have no edge to any node in component j < i.
func tarjanSCCs[S any](g *cfg.Graph[S], order []symbol.Label, dir Direction) [][]symbol.Label {
	index := 0
	indices := make(map[symbol.Label]int)
	lowlink := make(map[symbol.Label]int)
	onStack := make(map[symbol.Label]bool)
	var stack []symbol.Label
	var sccs [][]symbol.Label

	neighbors := func(l symbol.Label) []symbol.Label {
		if dir == Forward {
			return g.Successors(l)
		}
		return g.Predecessors(l)
	}

	var strongconnect func(v symbol.Label)
	strongconnect = func(v symbol.Label) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range neighbors(v) {
			if _, ok := g.Blocks[w]; !ok {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []symbol.Label
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w.Equal(v) {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, l := range order {
		if _, seen := indices[l]; !seen {
			strongconnect(l)
		}
	}
	// Tarjan emits SCCs in reverse topological order; reverse to match
	// §4.3's "process them in topological order".
	for i, j := 0, len(sccs)-1; i < j; i, j = i+1, j-1 {
		sccs[i], sccs[j] = sccs[j], sccs[i]
	}
	return sccs
}

// reversePostorderWithin computes reverse postorder restricted to the
// nodes in scc, used to seed each SCC's worklist per §4.3.
func reversePostorderWithin[S any](g *cfg.Graph[S], scc []symbol.Label) []symbol.Label {
	member := make(map[symbol.Label]bool, len(scc))
	for _, l := range scc {
		member[l] = true
	}
	visited := make(map[symbol.Label]bool)
	var post []symbol.Label
	var visit func(l symbol.Label)
	visit = func(l symbol.Label) {
		if visited[l] {
			return
		}
		visited[l] = true
		b := g.Blocks[l]
		for _, e := range b.Succs {
			if member[e.To] {
				visit(e.To)
			}
		}
		post = append(post, l)
	}
	for _, l := range scc {
		if !visited[l] {
			visit(l)
		}
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

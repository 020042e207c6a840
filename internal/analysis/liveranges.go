package analysis

import (
	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// Range is a temporary's live interval over a linearized instruction
// sequence: [Start, End], both inclusive, plus whether a call lies strictly
// inside it (Clobbered).
type Range struct {
	Temp       symbol.Temporary
	Start, End int
	Clobbered  bool
}

// LiveRanges post-processes live-variable outputs plus a left-to-right
// walk over a linearized instruction list to produce one Range per
// temporary, per §4.4. linear is the function's statements in the order
// CFG destruction would emit them (see package cfg's DestructLIR/ASM).
func LiveRanges[S any](g *cfg.Graph[S], linear []S, blockOf func(idx int) symbol.Label, usesDefs func(S) (uses, defs []symbol.Temporary), isCall func(S) bool, liveOutAt func(label symbol.Label) TempSet) []Range {
	starts := map[symbol.Temporary]int{}
	ends := map[symbol.Temporary]int{}
	clobbered := map[symbol.Temporary]bool{}
	seen := map[symbol.Temporary]bool{}
	var order []symbol.Temporary
	var calls []int

	touch := func(t symbol.Temporary, idx int) {
		if !seen[t] {
			seen[t] = true
			starts[t] = idx
			order = append(order, t)
		}
		if idx > ends[t] {
			ends[t] = idx
		}
	}

	for i, s := range linear {
		uses, defs := usesDefs(s)
		for _, t := range uses {
			touch(t, i)
		}
		for _, t := range defs {
			touch(t, i)
		}
		if isCall(s) {
			calls = append(calls, i)
		}
	}

	// A temporary still live-out at the end of its defining block extends
	// its range to the last instruction index of that block.
	for i := range linear {
		label := blockOf(i)
		live := liveOutAt(label)
		for t := range live {
			if seen[t] && i > ends[t] {
				ends[t] = i
			}
		}
	}

	// A range is clobbered when a call lies strictly inside it: the value is
	// held before the call and still needed after it.
	for _, t := range order {
		for _, c := range calls {
			if starts[t] < c && c < ends[t] {
				clobbered[t] = true
				break
			}
		}
	}

	out := make([]Range, len(order))
	for i, t := range order {
		out[i] = Range{Temp: t, Start: starts[t], End: ends[t], Clobbered: clobbered[t]}
	}
	return out
}

// LIRUsesDefs and LIRIsCall adapt StmtUsesDefs/StmtCall for LiveRanges'
// generic callbacks when operating over LIR.
func LIRUsesDefs(s ir.Stmt) (uses, defs []symbol.Temporary) { return StmtUsesDefs(s) }
func LIRIsCall(s ir.Stmt) bool                               { _, ok := s.(ir.StmtCall); return ok }

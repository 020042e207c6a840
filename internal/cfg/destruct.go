package cfg

import (
	"xic/internal/ir"
	"xic/internal/symbol"
)

// DestructLIR linearizes a Graph[ir.Stmt] back into a flat statement list
// via depth-first traversal from Enter, per §4.2: at each block, emit its
// label then its statements; for a conditional pair, visit the false branch
// first and the true branch second, so the false branch (when not already
// emitted) comes immediately after — preserving the fallthrough contract.
// The exit block is always emitted last.
func DestructLIR(g *Graph[ir.Stmt]) []ir.Stmt {
	var out []ir.Stmt
	visited := make(map[symbol.Label]bool)
	var visit func(l symbol.Label)
	visit = func(l symbol.Label) {
		if visited[l] || l.Equal(g.Exit) {
			return
		}
		visited[l] = true
		b := g.Blocks[l]
		out = append(out, ir.StmtLabel{Label: l})
		out = append(out, b.Stmts...)
		terminator(&out, b)
		// Visit false branch first, true branch second, so false (the
		// fallthrough branch) is emitted immediately following.
		var trueTo, falseTo symbol.Label
		hasTrue, hasFalse := false, false
		for _, e := range b.Succs {
			switch e.Kind {
			case EdgeTrue:
				trueTo, hasTrue = e.To, true
			case EdgeFalse:
				falseTo, hasFalse = e.To, true
			}
		}
		if hasTrue || hasFalse {
			// A false branch already emitted (or the exit, always last)
			// cannot follow directly, so it gets an explicit jump.
			if hasFalse && (visited[falseTo] || falseTo.Equal(g.Exit)) {
				out = append(out, ir.StmtJump{Target: falseTo})
			}
			if hasFalse {
				visit(falseTo)
			}
			if hasTrue {
				visit(trueTo)
			}
			return
		}
		for _, e := range b.Succs {
			visit(e.To)
		}
	}
	visit(g.Enter)
	out = append(out, ir.StmtLabel{Label: g.Exit})
	out = append(out, g.Blocks[g.Exit].Stmts...)
	return out
}

// DestructASM is the ASM-level counterpart of DestructLIR. Per §4.7, ASM
// functions inside the CFG never carry an explicit RET; destruction
// appends exactly one RET(returns) in the exit block, supplied by the
// caller since the CFG itself has no notion of function arity.
func DestructASM[T comparable](g *Graph[ir.Insn[T]], exitRet ir.Insn[T]) []ir.Insn[T] {
	var out []ir.Insn[T]
	visited := make(map[symbol.Label]bool)
	var visit func(l symbol.Label)
	visit = func(l symbol.Label) {
		if visited[l] || l.Equal(g.Exit) {
			return
		}
		visited[l] = true
		b := g.Blocks[l]
		out = append(out, ir.InsnLabel[T]{Label: l})
		out = append(out, b.Stmts...)
		asmTerminator(&out, b)
		var trueTo, falseTo symbol.Label
		hasTrue, hasFalse := false, false
		for _, e := range b.Succs {
			switch e.Kind {
			case EdgeTrue:
				trueTo, hasTrue = e.To, true
			case EdgeFalse:
				falseTo, hasFalse = e.To, true
			}
		}
		if hasTrue || hasFalse {
			if hasFalse {
				visit(falseTo)
			}
			if hasTrue {
				visit(trueTo)
			}
			return
		}
		for _, e := range b.Succs {
			visit(e.To)
		}
	}
	visit(g.Enter)
	out = append(out, ir.InsnLabel[T]{Label: g.Exit})
	out = append(out, g.Blocks[g.Exit].Stmts...)
	out = append(out, exitRet)
	return out
}

func asmTerminator[T comparable](out *[]ir.Insn[T], b *Block[ir.Insn[T]]) {
	if b.Term != nil {
		*out = append(*out, b.Term)
		return
	}
	if len(b.Succs) == 1 && b.Succs[0].Kind == EdgeUnconditional {
		*out = append(*out, ir.Insn[T](ir.InsnJump[T]{Target: b.Succs[0].To}))
	}
}

// terminator re-emits the block's own terminating statement (jump or
// cjump) with its targets taken from the block's recorded successor edges,
// so edges retargeted by cleaning or critical-edge splitting are honoured.
// A block without a stored terminator and with a single unconditional edge
// always gets an explicit jump, even when its successor follows directly.
func terminator(out *[]ir.Stmt, b *Block[ir.Stmt]) {
	switch t := b.Term.(type) {
	case ir.StmtCJump:
		for _, e := range b.Succs {
			if e.Kind == EdgeTrue {
				t.True = e.To
			} else if e.Kind == EdgeFalse {
				t.False = e.To
			}
		}
		*out = append(*out, t)
		return
	case ir.StmtJump:
		if len(b.Succs) > 0 {
			t.Target = b.Succs[0].To
		}
		*out = append(*out, t)
		return
	}
	if len(b.Succs) == 1 && b.Succs[0].Kind == EdgeUnconditional {
		*out = append(*out, ir.StmtJump{Target: b.Succs[0].To})
	}
}

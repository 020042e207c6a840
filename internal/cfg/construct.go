package cfg

import (
	"xic/internal/ir"
	"xic/internal/symbol"
)

// ConstructLIR builds a Graph[ir.Stmt] from a flat LIR statement list,
// following the block-state-machine algorithm of §4.2: a current block is
// either Unreachable or Reachable(label, stmts); Label starts a new block
// (closing the old one with an implicit jump), Jump/CJump/Return close the
// current block and transition to Unreachable. A Return stays as the last
// statement of its block, which gets an edge to the exit block.
func ConstructLIR(stmts []ir.Stmt, exit symbol.Label) *Graph[ir.Stmt] {
	enter := symbol.FreshLabel("enter")
	g := NewGraph[ir.Stmt](enter, exit)

	var curLabel symbol.Label
	var curStmts []ir.Stmt
	reachable := true
	curLabel = enter

	closeImplicit := func(next symbol.Label) {
		if reachable {
			g.block(curLabel).Stmts = curStmts
			g.addEdge(curLabel, EdgeUnconditional, next)
		}
		curLabel = next
		curStmts = nil
		reachable = true
	}

	for i := 0; i < len(stmts); i++ {
		s := stmts[i]
		// Only a label leaves the Unreachable state; any other statement
		// there is dead and is dropped.
		if _, isLabel := s.(ir.StmtLabel); !isLabel && !reachable {
			continue
		}
		switch st := s.(type) {
		case ir.StmtLabel:
			if reachable {
				closeImplicit(st.Label)
			} else {
				curLabel = st.Label
				curStmts = nil
				reachable = true
			}
		case ir.StmtJump:
			b := g.block(curLabel)
			b.Stmts = curStmts
			b.Term = st
			g.addEdge(curLabel, EdgeUnconditional, st.Target)
			reachable = false
		case ir.StmtCJump:
			trueL := st.True
			falseL := st.False
			if !st.HasFalse {
				if i+1 < len(stmts) {
					if lbl, ok := stmts[i+1].(ir.StmtLabel); ok {
						falseL = lbl.Label
					} else {
						falseL = symbol.FreshLabel("fallthrough")
					}
				} else {
					falseL = symbol.FreshLabel("fallthrough")
				}
			}
			b := g.block(curLabel)
			b.Stmts = curStmts
			b.Term = ir.StmtCJump{Cond: st.Cond, Left: st.Left, Right: st.Right, True: trueL, False: falseL, HasFalse: true}
			g.addEdge(curLabel, EdgeTrue, trueL)
			g.addEdge(curLabel, EdgeFalse, falseL)
			reachable = false
			if !st.HasFalse {
				// Only start the synthesized fallthrough block ourselves
				// when we minted a fresh label for it; otherwise the next
				// iteration's StmtLabel case will do it.
				if _, ok := peekLabel(stmts, i+1); !ok {
					curLabel = falseL
					curStmts = nil
					reachable = true
				}
			}
		case ir.StmtReturn:
			g.block(curLabel).Stmts = append(curStmts, st)
			g.addEdge(curLabel, EdgeUnconditional, exit)
			reachable = false
		default:
			if reachable {
				curStmts = append(curStmts, s)
			}
		}
	}
	if reachable {
		g.block(curLabel).Stmts = curStmts
		g.addEdge(curLabel, EdgeUnconditional, exit)
	}
	g.block(exit)
	return g
}

func peekLabel(stmts []ir.Stmt, i int) (symbol.Label, bool) {
	if i >= len(stmts) {
		return symbol.Label{}, false
	}
	if lbl, ok := stmts[i].(ir.StmtLabel); ok {
		return lbl.Label, true
	}
	return symbol.Label{}, false
}

// ConstructASM builds a Graph[ir.Insn[T]] out of a tiled ASM instruction
// stream, identical in shape to ConstructLIR but driven off ASM
// instruction kinds (InsnLabel/InsnJump/InsnJcc/InsnNullary{RET}). ASM
// functions never contain a RET until CFG destruction re-synthesizes it
// (§4.7), so a RET encountered here is itself rewritten to a jump to exit.
func ConstructASM[T comparable](insns []ir.Insn[T], exit symbol.Label) *Graph[ir.Insn[T]] {
	enter := symbol.FreshLabel("enter")
	g := NewGraph[ir.Insn[T]](enter, exit)

	curLabel := enter
	var curInsns []ir.Insn[T]
	reachable := true

	for i := 0; i < len(insns); i++ {
		switch in := insns[i].(type) {
		case ir.InsnLabel[T]:
			if reachable {
				g.block(curLabel).Stmts = curInsns
				g.addEdge(curLabel, EdgeUnconditional, in.Label)
			}
			curLabel = in.Label
			curInsns = nil
			reachable = true
		case ir.InsnJump[T]:
			b := g.block(curLabel)
			b.Stmts = curInsns
			b.Term = insns[i]
			g.addEdge(curLabel, EdgeUnconditional, in.Target)
			reachable = false
		case ir.InsnJcc[T]:
			b := g.block(curLabel)
			b.Stmts = curInsns
			b.Term = insns[i]
			g.addEdge(curLabel, EdgeTrue, in.Target)
			var falseL symbol.Label
			if i+1 < len(insns) {
				if lbl, ok := insns[i+1].(ir.InsnLabel[T]); ok {
					falseL = lbl.Label
				} else {
					falseL = symbol.FreshLabel("fallthrough")
				}
			} else {
				falseL = symbol.FreshLabel("fallthrough")
			}
			g.addEdge(curLabel, EdgeFalse, falseL)
			reachable = false
			if _, ok := insns[min(i+1, len(insns)-1)].(ir.InsnLabel[T]); !ok || i+1 >= len(insns) {
				curLabel = falseL
				curInsns = nil
				reachable = true
			}
		case ir.InsnNullary[T]:
			if in.Op == ir.AsmRET {
				g.block(curLabel).Stmts = curInsns
				g.addEdge(curLabel, EdgeUnconditional, exit)
				reachable = false
				continue
			}
			if reachable {
				curInsns = append(curInsns, insns[i])
			}
		default:
			if reachable {
				curInsns = append(curInsns, insns[i])
			}
		}
	}
	if reachable {
		g.block(curLabel).Stmts = curInsns
		g.addEdge(curLabel, EdgeUnconditional, exit)
	}
	g.block(exit)
	return g
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

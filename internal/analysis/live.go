package analysis

import (
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// TempSet is the live-variables lattice element: the set of temporaries
// live at a program point, represented as an immutable-per-version map so
// transfer/merge never mutate a shared value.
type TempSet map[symbol.Temporary]bool

func (s TempSet) Contains(t symbol.Temporary) bool { return s[t] }

func copySet(s TempSet) TempSet {
	out := make(TempSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func unionSet(sets ...TempSet) TempSet {
	out := TempSet{}
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

func equalSet(a, b TempSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveVariables implements the backward dataflow analysis of §4.4. Returns
// is the enclosing function's return count, needed to seed the exit
// block's live-out with the correct ABI return registers.
type LiveVariables struct {
	Returns         int
	CalleeSavedRegs []symbol.Temporary
	CallerSavedRegs []symbol.Temporary
	ArgRegs         []symbol.Temporary
	ReturnRegs      []symbol.Temporary
	Exit            symbol.Label
}

func (LiveVariables) Direction() dataflow.Direction { return dataflow.Backward }
func (LiveVariables) Bottom() TempSet                { return TempSet{} }
func (LiveVariables) Equal(a, b TempSet) bool        { return equalSet(a, b) }

func (a LiveVariables) Merge(label symbol.Label, values []dataflow.EdgeValue[TempSet]) TempSet {
	sets := make([]TempSet, len(values))
	for i, v := range values {
		sets[i] = v.Value
	}
	out := unionSet(sets...)
	if label.Equal(a.Exit) {
		for i := 0; i < a.Returns && i < len(a.ReturnRegs); i++ {
			out[a.ReturnRegs[i]] = true
		}
		if len(a.ArgRegs) > 0 {
			out[symbol.PhysicalTemp(symbol.RSP)] = true
		}
	}
	return out
}

func (a LiveVariables) Transfer(label symbol.Label, idx int, s ir.Stmt, liveOut TempSet) TempSet {
	if IsOutOfBoundsCall(s) {
		return TempSet{}
	}
	in := copySet(liveOut)

	if call, ok := s.(ir.StmtCall); ok {
		for i := 0; i < len(call.Returns) && i < len(a.ReturnRegs); i++ {
			delete(in, a.ReturnRegs[i])
		}
		for _, r := range a.CallerSavedRegs {
			delete(in, r)
		}
		for i := range call.Args {
			if i < len(a.ArgRegs) {
				in[a.ArgRegs[i]] = true
			}
		}
		in[mustTemp(call.Func)] = true
		return in
	}

	uses, defs := StmtUsesDefs(s)
	for _, d := range defs {
		// Callee-saved register writes are conservatively kept live to
		// ret (§4.8); memory writes have no destination temporary.
		if !isCalleeSaved(a.CalleeSavedRegs, d) {
			delete(in, d)
		}
	}
	for _, u := range uses {
		in[u] = true
	}
	return in
}

func isCalleeSaved(calleeSaved []symbol.Temporary, t symbol.Temporary) bool {
	for _, c := range calleeSaved {
		if c.Equal(t) {
			return true
		}
	}
	return false
}

func mustTemp(e ir.Expr) symbol.Temporary {
	if t, ok := e.(ir.ExprTemp); ok {
		return t.Temp
	}
	return symbol.Temporary{}
}

// IsDead reports whether dst is dead at a move whose live-out is liveOut —
// used by dead-code elimination to drop assignments to values never used.
func IsDead(dst symbol.Temporary, liveOut TempSet) bool { return !liveOut[dst] }

// Run is a convenience wrapper around dataflow.Solve for live variables.
func Run(g *cfg.Graph[ir.Stmt], a LiveVariables) *dataflow.Result[TempSet] {
	a.Exit = g.Exit
	return dataflow.Solve[ir.Stmt, TempSet](g, a)
}

package analysis

import (
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// CCPValue pairs reachability with the constants map, per §4.4.
type CCPValue struct {
	Reachable bool
	Consts    ConstMap
}

func equalCCP(a, b CCPValue) bool {
	return a.Reachable == b.Reachable && equalConstMap(a.Consts, b.Consts)
}

// ConditionalConstantPropagation implements §4.4's forward analysis with
// reachability tracked per block: Merge admits the values of every
// predecessor block marked reachable, and a block is reachable when any
// predecessor is. It does not track per-edge reachability, so both
// successors of a reachable CJump are reachable in the solution even when
// its condition is constant; BranchReachability evaluates the condition
// afterwards for the rewrite pass in package optimize. Calls invalidate all caller-saved and return
// temporaries, per §9's open-question resolution (the original leaves
// this `todo!()`; this implementation follows the non-conditional pass).
type ConditionalConstantPropagation struct {
	CallerSavedRegs, ReturnRegs []symbol.Temporary
	Enter                       symbol.Label
}

func (ConditionalConstantPropagation) Direction() dataflow.Direction { return dataflow.Forward }
func (c ConditionalConstantPropagation) Bottom() CCPValue {
	return CCPValue{Reachable: false, Consts: ConstMap{}}
}
func (ConditionalConstantPropagation) Equal(a, b CCPValue) bool { return equalCCP(a, b) }

func (c ConditionalConstantPropagation) Merge(label symbol.Label, values []dataflow.EdgeValue[CCPValue]) CCPValue {
	if label.Equal(c.Enter) {
		return CCPValue{Reachable: true, Consts: ConstMap{}}
	}
	out := CCPValue{Consts: ConstMap{}}
	seen := map[symbol.Temporary]bool{}
	for _, v := range values {
		if !v.Value.Reachable {
			continue
		}
		out.Reachable = true
		for k, val := range v.Value.Consts {
			if seen[k] {
				out.Consts[k] = join(out.Consts[k], val)
			} else {
				out.Consts[k] = val
				seen[k] = true
			}
		}
	}
	return out
}

func (c ConditionalConstantPropagation) evalCond(consts ConstMap, s ir.StmtCJump) (bool, bool) {
	cp := ConstantPropagation{}
	l := cp.eval(consts, s.Left)
	r := cp.eval(consts, s.Right)
	if l.Kind != Defined || r.Kind != Defined {
		return false, false
	}
	var taken bool
	switch s.Cond {
	case ir.LT:
		taken = l.Value < r.Value
	case ir.LE:
		taken = l.Value <= r.Value
	case ir.GE:
		taken = l.Value >= r.Value
	case ir.GT:
		taken = l.Value > r.Value
	case ir.NE:
		taken = l.Value != r.Value
	case ir.EQ:
		taken = l.Value == r.Value
	case ir.AE:
		taken = uint64(l.Value) >= uint64(r.Value)
	}
	return taken, true
}

func (c ConditionalConstantPropagation) Transfer(_ symbol.Label, _ int, s ir.Stmt, in CCPValue) CCPValue {
	if !in.Reachable {
		return in
	}
	out := CCPValue{Reachable: true, Consts: copyConstMap(in.Consts)}
	cp := ConstantPropagation{CallerSavedRegs: c.CallerSavedRegs, ReturnRegs: c.ReturnRegs}
	switch s := s.(type) {
	case ir.StmtMove:
		if t, ok := s.Dst.(ir.ExprTemp); ok {
			out.Consts[t.Temp] = cp.eval(in.Consts, s.Src)
		}
	case ir.StmtCall:
		for _, r := range c.CallerSavedRegs {
			delete(out.Consts, r)
		}
		for _, r := range c.ReturnRegs {
			delete(out.Consts, r)
		}
		for _, r := range s.Returns {
			delete(out.Consts, r)
		}
	}
	return out
}

// BranchReachability reports, for a CJump block, which of the true/false
// successors conditional constant propagation proved reachable — used by
// the rewrite pass in package optimize to drop the untaken edge.
func (c ConditionalConstantPropagation) BranchReachability(consts ConstMap, s ir.StmtCJump) (trueReachable, falseReachable bool) {
	taken, known := c.evalCond(consts, s)
	if !known {
		return true, true
	}
	return taken, !taken
}

func RunCCP(g *cfg.Graph[ir.Stmt], c ConditionalConstantPropagation) *dataflow.Result[CCPValue] {
	c.Enter = g.Enter
	return dataflow.Solve[ir.Stmt, CCPValue](g, c)
}

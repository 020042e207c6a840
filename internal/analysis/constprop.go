package analysis

import (
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// ConstValue is Undefined (zero value), a known constant, or Overdefined.
type ConstValue struct {
	Kind  ConstKind
	Value int64
}

type ConstKind int

const (
	Undefined ConstKind = iota
	Defined
	Overdefined
)

func join(a, b ConstValue) ConstValue {
	if a.Kind == Undefined {
		return b
	}
	if b.Kind == Undefined {
		return a
	}
	if a.Kind == Defined && b.Kind == Defined && a.Value == b.Value {
		return a
	}
	return ConstValue{Kind: Overdefined}
}

// ConstMap is the constant-propagation lattice: partial map from temporary
// to its statically known value.
type ConstMap map[symbol.Temporary]ConstValue

func copyConstMap(m ConstMap) ConstMap {
	out := make(ConstMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func equalConstMap(a, b ConstMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// ConstantPropagation implements §4.4's forward analysis: small-step
// constant folding across MOV/ADD/SUB/MUL/HUL/DIV/MOD/SHL/AND/OR/XOR/NEG,
// invalidating caller-saved and return temporaries at calls.
type ConstantPropagation struct {
	CallerSavedRegs, ReturnRegs []symbol.Temporary
}

func (ConstantPropagation) Direction() dataflow.Direction { return dataflow.Forward }
func (ConstantPropagation) Bottom() ConstMap               { return ConstMap{} }
func (ConstantPropagation) Equal(a, b ConstMap) bool        { return equalConstMap(a, b) }

func (ConstantPropagation) Merge(_ symbol.Label, values []dataflow.EdgeValue[ConstMap]) ConstMap {
	out := ConstMap{}
	seen := map[symbol.Temporary]bool{}
	for _, v := range values {
		for k, val := range v.Value {
			if seen[k] {
				out[k] = join(out[k], val)
			} else {
				out[k] = val
				seen[k] = true
			}
		}
	}
	return out
}

func (cp ConstantPropagation) eval(m ConstMap, e ir.Expr) ConstValue {
	switch e := e.(type) {
	case ir.ExprImm:
		if e.Imm.IsLabel {
			return ConstValue{Kind: Overdefined}
		}
		return ConstValue{Kind: Defined, Value: e.Imm.Int}
	case ir.ExprTemp:
		if v, ok := m[e.Temp]; ok {
			return v
		}
		return ConstValue{Kind: Undefined}
	case ir.ExprBinary:
		l, r := cp.eval(m, e.Left), cp.eval(m, e.Right)
		if l.Kind == Defined && r.Kind == Defined {
			if v, ok := ir.FoldBinary(e.Op, l.Value, r.Value); ok {
				return ConstValue{Kind: Defined, Value: v}
			}
		}
		if l.Kind == Overdefined || r.Kind == Overdefined {
			return ConstValue{Kind: Overdefined}
		}
		return ConstValue{Kind: Undefined}
	default:
		return ConstValue{Kind: Overdefined}
	}
}

func (cp ConstantPropagation) Transfer(_ symbol.Label, _ int, s ir.Stmt, in ConstMap) ConstMap {
	out := copyConstMap(in)
	switch s := s.(type) {
	case ir.StmtMove:
		if t, ok := s.Dst.(ir.ExprTemp); ok {
			out[t.Temp] = cp.eval(in, s.Src)
		}
	case ir.StmtCall:
		for _, r := range cp.CallerSavedRegs {
			delete(out, r)
		}
		for _, r := range cp.ReturnRegs {
			delete(out, r)
		}
		for _, r := range s.Returns {
			delete(out, r)
		}
	}
	return out
}

func Run2(g *cfg.Graph[ir.Stmt], cp ConstantPropagation) *dataflow.Result[ConstMap] {
	return dataflow.Solve[ir.Stmt, ConstMap](g, cp)
}

package analysis

import (
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// CopyMap is the copy-propagation lattice: map from temporary to its
// canonical source temporary, per §4.4.
type CopyMap map[symbol.Temporary]symbol.Temporary

func copyCopyMap(m CopyMap) CopyMap {
	out := make(CopyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func equalCopyMap(a, b CopyMap) bool {
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

// CopyPropagation implements §4.4's forward analysis. CalleeSaved names
// the registers whose chains are never recorded, since they must survive
// to register allocation unrenamed.
type CopyPropagation struct {
	CalleeSaved []symbol.Temporary
}

func (CopyPropagation) Direction() dataflow.Direction { return dataflow.Forward }
func (CopyPropagation) Bottom() CopyMap                { return CopyMap{} }
func (CopyPropagation) Equal(a, b CopyMap) bool        { return equalCopyMap(a, b) }

func (CopyPropagation) Merge(_ symbol.Label, values []dataflow.EdgeValue[CopyMap]) CopyMap {
	if len(values) == 0 {
		return CopyMap{}
	}
	out := copyCopyMap(values[0].Value)
	for _, v := range values[1:] {
		for k, src := range out {
			if other, ok := v.Value[k]; !ok || other != src {
				delete(out, k)
			}
		}
	}
	return out
}

func (cp CopyPropagation) isCalleeSaved(t symbol.Temporary) bool {
	return isCalleeSaved(cp.CalleeSaved, t)
}

func (cp CopyPropagation) Transfer(_ symbol.Label, _ int, s ir.Stmt, in CopyMap) CopyMap {
	out := copyCopyMap(in)
	invalidate := func(t symbol.Temporary) {
		delete(out, t)
		for k, v := range out {
			if v.Equal(t) {
				delete(out, k)
			}
		}
	}
	switch s := s.(type) {
	case ir.StmtMove:
		dstTemp, isDstTemp := s.Dst.(ir.ExprTemp)
		srcTemp, isSrcTemp := s.Src.(ir.ExprTemp)
		if isDstTemp {
			invalidate(dstTemp.Temp)
			if isSrcTemp && !cp.isCalleeSaved(srcTemp.Temp) {
				canon := srcTemp.Temp
				if c, ok := out[canon]; ok {
					canon = c
				}
				out[dstTemp.Temp] = canon
			}
		}
	case ir.StmtCall:
		for _, r := range s.Returns {
			invalidate(r)
		}
	}
	return out
}

func Run3(g *cfg.Graph[ir.Stmt], cp CopyPropagation) *dataflow.Result[CopyMap] {
	return dataflow.Solve[ir.Stmt, CopyMap](g, cp)
}

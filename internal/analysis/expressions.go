package analysis

import (
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// ExprSet is the lattice element shared by the four lazy-code-motion
// analyses of §4.4/§9: a set of LIR subexpressions, keyed by their
// structural string form (§9 suggests interning to integer ids for a
// bitmap; this implementation keeps the simpler map-of-strings shape
// since expression counts per function are small — see DESIGN.md).
type ExprSet map[string]ir.Expr

func copyExprSet(s ExprSet) ExprSet {
	out := make(ExprSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func unionExprSet(sets ...ExprSet) ExprSet {
	out := ExprSet{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

func intersectExprSet(sets ...ExprSet) ExprSet {
	if len(sets) == 0 {
		return ExprSet{}
	}
	out := copyExprSet(sets[0])
	for _, s := range sets[1:] {
		for k := range out {
			if _, ok := s[k]; !ok {
				delete(out, k)
			}
		}
	}
	return out
}

func equalExprSet(a, b ExprSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// subexpressions returns every Binary/Mem subexpression of e, including e
// itself if applicable (immediates and bare temporaries are never
// materialized candidates).
func subexpressions(e ir.Expr) []ir.Expr {
	switch e := e.(type) {
	case ir.ExprBinary:
		out := []ir.Expr{e}
		out = append(out, subexpressions(e.Left)...)
		out = append(out, subexpressions(e.Right)...)
		return out
	case ir.ExprMem:
		out := []ir.Expr{e}
		out = append(out, subexpressions(e.Addr)...)
		return out
	}
	return nil
}

func stmtSubexpressions(s ir.Stmt) []ir.Expr {
	switch s := s.(type) {
	case ir.StmtCJump:
		return append(subexpressions(s.Left), subexpressions(s.Right)...)
	case ir.StmtExpr:
		return subexpressions(s.Expr)
	case ir.StmtMove:
		out := subexpressions(s.Src)
		if mem, ok := s.Dst.(ir.ExprMem); ok {
			out = append(out, subexpressions(mem.Addr)...)
		}
		return out
	case ir.StmtReturn:
		var out []ir.Expr
		for _, v := range s.Values {
			out = append(out, subexpressions(v)...)
		}
		return out
	case ir.StmtCall:
		var out []ir.Expr
		for _, a := range s.Args {
			out = append(out, subexpressions(a)...)
		}
		return out
	}
	return nil
}

// containsTemp reports whether e reads t, used for the kill relation:
// an expression is killed by a definition of any temporary it contains.
func containsTemp(e ir.Expr, t symbol.Temporary) bool {
	switch e := e.(type) {
	case ir.ExprTemp:
		return e.Temp.Equal(t)
	case ir.ExprMem:
		return containsTemp(e.Addr, t)
	case ir.ExprBinary:
		return containsTemp(e.Left, t) || containsTemp(e.Right, t)
	}
	return false
}

func containsMemory(e ir.Expr) bool {
	switch e := e.(type) {
	case ir.ExprMem:
		return true
	case ir.ExprBinary:
		return containsMemory(e.Left) || containsMemory(e.Right)
	}
	return false
}

// killed returns the subset of s that a statement's definitions (or a
// call/memory write) invalidate.
func killed(s ir.Stmt, set ExprSet) ExprSet {
	_, defs := StmtUsesDefs(s)
	_, isCall := s.(ir.StmtCall)
	isMemWrite := false
	if mv, ok := s.(ir.StmtMove); ok {
		if _, ok := mv.Dst.(ir.ExprMem); ok {
			isMemWrite = true
		}
	}
	out := ExprSet{}
	for k, e := range set {
		kill := false
		for _, d := range defs {
			if containsTemp(e, d) {
				kill = true
				break
			}
		}
		if !kill && (isCall || isMemWrite) && containsMemory(e) {
			kill = true
		}
		if kill {
			out[k] = e
		}
	}
	return out
}

func key(e ir.Expr) string { return e.String() }

// AnticipatedExpressions (backward): an expression is anticipated at a
// point if it will definitely be computed (with the same operand values)
// before its operands are redefined, on every path forward.
type AnticipatedExpressions struct{}

func (AnticipatedExpressions) Direction() dataflow.Direction { return dataflow.Backward }
func (AnticipatedExpressions) Bottom() ExprSet                { return nil } // see Merge: backward, bottom is "all" (identity for intersection)
func (AnticipatedExpressions) Equal(a, b ExprSet) bool        { return equalExprSet(a, b) }
func (AnticipatedExpressions) Merge(_ symbol.Label, values []dataflow.EdgeValue[ExprSet]) ExprSet {
	sets := make([]ExprSet, 0, len(values))
	for _, v := range values {
		if v.Value != nil {
			sets = append(sets, v.Value)
		}
	}
	if len(sets) == 0 {
		return ExprSet{}
	}
	return intersectExprSet(sets...)
}
func (AnticipatedExpressions) Transfer(_ symbol.Label, _ int, s ir.Stmt, out ExprSet) ExprSet {
	gen := ExprSet{}
	for _, e := range stmtSubexpressions(s) {
		gen[key(e)] = e
	}
	surviving := ExprSet{}
	for k, e := range out {
		if _, dead := killed(s, ExprSet{k: e})[k]; !dead {
			surviving[k] = e
		}
	}
	return unionExprSet(gen, surviving)
}

// AvailableExpressions (forward): an expression is available at a point
// if it has been computed on every path reaching that point and none of
// its operands have since been redefined.
type AvailableExpressions struct{ Anticipated *dataflow.Result[ExprSet] }

func (AvailableExpressions) Direction() dataflow.Direction { return dataflow.Forward }
func (AvailableExpressions) Bottom() ExprSet                { return nil }
func (AvailableExpressions) Equal(a, b ExprSet) bool        { return equalExprSet(a, b) }
func (a AvailableExpressions) Merge(label symbol.Label, values []dataflow.EdgeValue[ExprSet]) ExprSet {
	sets := make([]ExprSet, 0, len(values))
	for _, v := range values {
		if v.Value != nil {
			sets = append(sets, v.Value)
		}
	}
	if len(sets) == 0 {
		return ExprSet{}
	}
	return intersectExprSet(sets...)
}
func (a AvailableExpressions) Transfer(label symbol.Label, idx int, s ir.Stmt, in ExprSet) ExprSet {
	surviving := ExprSet{}
	for k, e := range in {
		if _, dead := killed(s, ExprSet{k: e})[k]; !dead {
			surviving[k] = e
		}
	}
	gen := ExprSet{}
	for _, e := range stmtSubexpressions(s) {
		gen[key(e)] = e
	}
	return unionExprSet(surviving, gen)
}

// PostponableExpressions (forward): tracks expressions that are
// anticipated+available-at-entry but not yet used, so their materialization
// can be delayed as late as possible without duplicating work.
type PostponableExpressions struct {
	Earliest map[symbol.Label]ExprSet // earliest[label] = earliest-at-entry set, precomputed
}

func (PostponableExpressions) Direction() dataflow.Direction { return dataflow.Forward }
func (PostponableExpressions) Bottom() ExprSet                { return nil }
func (PostponableExpressions) Equal(a, b ExprSet) bool        { return equalExprSet(a, b) }
func (p PostponableExpressions) Merge(label symbol.Label, values []dataflow.EdgeValue[ExprSet]) ExprSet {
	sets := make([]ExprSet, 0, len(values))
	for _, v := range values {
		if v.Value != nil {
			sets = append(sets, v.Value)
		}
	}
	merged := ExprSet{}
	if len(sets) > 0 {
		merged = intersectExprSet(sets...)
	}
	return unionExprSet(merged, p.Earliest[label])
}
func (p PostponableExpressions) Transfer(_ symbol.Label, _ int, s ir.Stmt, in ExprSet) ExprSet {
	used := ExprSet{}
	for _, e := range stmtSubexpressions(s) {
		used[key(e)] = e
	}
	out := ExprSet{}
	for k, e := range in {
		if _, isUsed := used[k]; !isUsed {
			out[k] = e
		}
	}
	return out
}

// UsedExpressions (backward): the set of expressions that will be used
// again before being killed, from this point forward.
type UsedExpressions struct{}

func (UsedExpressions) Direction() dataflow.Direction { return dataflow.Backward }
func (UsedExpressions) Bottom() ExprSet                { return ExprSet{} }
func (UsedExpressions) Equal(a, b ExprSet) bool        { return equalExprSet(a, b) }
func (UsedExpressions) Merge(_ symbol.Label, values []dataflow.EdgeValue[ExprSet]) ExprSet {
	sets := make([]ExprSet, len(values))
	for i, v := range values {
		sets[i] = v.Value
	}
	return unionExprSet(sets...)
}
func (UsedExpressions) Transfer(_ symbol.Label, _ int, s ir.Stmt, out ExprSet) ExprSet {
	surviving := ExprSet{}
	for k, e := range out {
		if _, dead := killed(s, ExprSet{k: e})[k]; !dead {
			surviving[k] = e
		}
	}
	gen := ExprSet{}
	for _, e := range stmtSubexpressions(s) {
		gen[key(e)] = e
	}
	return unionExprSet(surviving, gen)
}

// Earliest computes, per block, the set of expressions that may first be
// placed at that block's entry: anticipated-in minus available-in.
func Earliest(g *cfg.Graph[ir.Stmt], anticipated, available *dataflow.Result[ExprSet]) map[symbol.Label]ExprSet {
	out := make(map[symbol.Label]ExprSet, len(g.Order))
	for _, l := range g.Order {
		diff := ExprSet{}
		for k, e := range anticipated.In[l] {
			if _, avail := available.In[l][k]; !avail {
				diff[k] = e
			}
		}
		out[l] = diff
	}
	return out
}

// Latest computes, per block, the set of expressions that should be
// materialized at that block's entry: earliest unioned with postponable,
// restricted to expressions actually used at or after this point.
func Latest(g *cfg.Graph[ir.Stmt], earliest map[symbol.Label]ExprSet, postponable *dataflow.Result[ExprSet], usedAtEntry map[symbol.Label]ExprSet) map[symbol.Label]ExprSet {
	out := make(map[symbol.Label]ExprSet, len(g.Order))
	for _, l := range g.Order {
		candidate := unionExprSet(earliest[l], postponable.In[l])
		restricted := ExprSet{}
		for k, e := range candidate {
			if _, used := usedAtEntry[l][k]; used {
				restricted[k] = e
			} else if len(g.Successors(l)) != 1 {
				// A branch point: keep it if it is anticipated down any
				// successor, conservatively approximated here by keeping
				// it (never duplicates work since it is still earliest).
				restricted[k] = e
			}
		}
		out[l] = restricted
	}
	return out
}

package optimize

import (
	"golang.org/x/exp/slices"

	"xic/internal/ir"
	"xic/internal/symbol"
	"xic/internal/util"
)

// CallGraph maps a function name to the set of functions it calls
// directly, used to drive inlining in callee-postorder (§4.5).
type CallGraph map[string]*util.Set[string]

func BuildCallGraph(funcs []*ir.Func) CallGraph {
	cg := make(CallGraph, len(funcs))
	for _, f := range funcs {
		callees := util.NewSet[string]()
		walkCalls(f.Stmts, func(name string) { callees.Add(name) })
		cg[f.Name.String()] = callees
	}
	return cg
}

func walkCalls(stmts []ir.Stmt, visit func(string)) {
	for _, s := range stmts {
		if call, ok := s.(ir.StmtCall); ok {
			if imm, ok := call.Func.(ir.ExprImm); ok && imm.Imm.IsLabel && !imm.Imm.Label.Fresh {
				visit(imm.Imm.Label.String())
			}
		}
	}
}

// recursive reports whether name is reachable from itself in cg.
func recursive(cg CallGraph, name string) bool {
	visited := util.NewSet[string]()
	var visit func(n string) bool
	visit = func(n string) bool {
		callees, ok := cg[n]
		if !ok {
			return false
		}
		found := false
		callees.ForEach(func(c string) {
			if c == name {
				found = true
				return
			}
			if !visited.Contains(c) {
				visited.Add(c)
				if visit(c) {
					found = true
				}
			}
		})
		return found
	}
	return visit(name)
}

const inlineLeafStatementBudget = 30

// Inline walks the call graph in callee-postorder and inlines eligible
// calls per §4.5's three alternative conditions: the callee is a leaf
// (calls nothing), its body is small, or every argument at the call site
// is an immediate.
func Inline(unit *ir.Unit) {
	cg := BuildCallGraph(unit.Funcs)
	byName := make(map[string]*ir.Func, len(unit.Funcs))
	for _, f := range unit.Funcs {
		byName[f.Name.String()] = f
	}
	order := postorderCallees(cg, unit.Funcs)
	for _, name := range order {
		f, ok := byName[name]
		if !ok {
			continue
		}
		f.Stmts = inlineInto(f.Stmts, byName, cg)
	}
}

func postorderCallees(cg CallGraph, funcs []*ir.Func) []string {
	visited := util.NewSet[string]()
	var order []string
	var visit func(n string)
	visit = func(n string) {
		if visited.Contains(n) {
			return
		}
		visited.Add(n)
		// Set iteration order is randomized; §5 requires deterministic
		// pass ordering, so callees are visited in sorted-name order.
		if callees, ok := cg[n]; ok {
			names := callees.Slice()
			slices.Sort(names)
			for _, c := range names {
				visit(c)
			}
		}
		order = append(order, n)
	}
	for _, f := range funcs {
		visit(f.Name.String())
	}
	return order
}

func isEligible(f *ir.Func, cg CallGraph, args []ir.Expr) bool {
	name := f.Name.String()
	if recursive(cg, name) {
		return false
	}
	isLeaf := cg[name] == nil || cg[name].Len() == 0
	if isLeaf {
		return true
	}
	if len(f.Stmts) <= inlineLeafStatementBudget {
		return true
	}
	allImmediate := true
	for _, a := range args {
		if _, ok := a.(ir.ExprImm); !ok {
			allImmediate = false
			break
		}
	}
	return allImmediate
}

func inlineInto(stmts []ir.Stmt, byName map[string]*ir.Func, cg CallGraph) []ir.Stmt {
	var out []ir.Stmt
	for _, s := range stmts {
		call, ok := s.(ir.StmtCall)
		if !ok {
			out = append(out, s)
			continue
		}
		imm, ok := call.Func.(ir.ExprImm)
		if !ok || !imm.Imm.IsLabel || imm.Imm.Label.Fresh {
			out = append(out, s)
			continue
		}
		callee, ok := byName[imm.Imm.Label.String()]
		if !ok || callee.Linkage != ir.Definition && callee.Linkage != ir.LinkOnceODR {
			out = append(out, s)
			continue
		}
		if !isEligible(callee, cg, call.Args) {
			out = append(out, s)
			continue
		}
		out = append(out, inlineCall(callee, call)...)
	}
	return out
}

// inlineCall substitutes fresh temporaries for the callee's arguments,
// clones the callee body with every fresh label/temporary renamed (fixed
// names preserved), and rewrites each `return` into moves straight into
// the call's own return temporaries (call.Returns). It makes no fresh
// return temporaries and emits no trailing moves after the body.
func inlineCall(callee *ir.Func, call ir.StmtCall) []ir.Stmt {
	renameTemp := map[symbol.Temporary]symbol.Temporary{}
	renameLabel := map[symbol.Label]symbol.Label{}

	freshTemp := func(t symbol.Temporary) symbol.Temporary {
		if t.Kind != symbol.TempFresh {
			return t
		}
		if r, ok := renameTemp[t]; ok {
			return r
		}
		r := symbol.FreshTemp("inl")
		renameTemp[t] = r
		return r
	}
	freshLabel := func(l symbol.Label) symbol.Label {
		if !l.Fresh {
			return l
		}
		if r, ok := renameLabel[l]; ok {
			return r
		}
		r := symbol.FreshLabel("inl")
		renameLabel[l] = r
		return r
	}

	var out []ir.Stmt
	argTemps := make([]symbol.Temporary, len(call.Args))
	for i, a := range call.Args {
		argTemps[i] = symbol.FreshTemp("arg")
		out = append(out, ir.StmtMove{Dst: ir.ExprTemp{Temp: argTemps[i]}, Src: a})
	}

	argOf := func(idx int) ir.Expr {
		if idx < len(argTemps) {
			return ir.ExprTemp{Temp: argTemps[idx]}
		}
		return ir.ExprImm{Imm: ir.ImmInt(0)}
	}

	for _, s := range callee.Stmts {
		renamed := renameStmt(s, freshTemp, freshLabel, argOf, call.Returns)
		if seq, ok := renamed.(ir.StmtSequence); ok {
			out = append(out, seq.Stmts...)
		} else {
			out = append(out, renamed)
		}
	}
	return out
}

func renameStmt(s ir.Stmt, ft func(symbol.Temporary) symbol.Temporary, fl func(symbol.Label) symbol.Label, argOf func(int) ir.Expr, returns []symbol.Temporary) ir.Stmt {
	re := func(e ir.Expr) ir.Expr { return renameExpr(e, ft, argOf) }
	switch s := s.(type) {
	case ir.StmtJump:
		return ir.StmtJump{Target: fl(s.Target)}
	case ir.StmtCJump:
		return ir.StmtCJump{Cond: s.Cond, Left: re(s.Left), Right: re(s.Right), True: fl(s.True), False: fl(s.False), HasFalse: s.HasFalse}
	case ir.StmtLabel:
		return ir.StmtLabel{Label: fl(s.Label)}
	case ir.StmtExpr:
		return ir.StmtExpr{Expr: re(s.Expr)}
	case ir.StmtMove:
		dst := s.Dst
		if mem, ok := dst.(ir.ExprMem); ok {
			dst = ir.ExprMem{Addr: re(mem.Addr)}
		} else if t, ok := dst.(ir.ExprTemp); ok {
			dst = ir.ExprTemp{Temp: ft(t.Temp)}
		}
		return ir.StmtMove{Dst: dst, Src: re(s.Src)}
	case ir.StmtReturn:
		var moves []ir.Stmt
		for i, v := range s.Values {
			if i < len(returns) {
				moves = append(moves, ir.StmtMove{Dst: ir.ExprTemp{Temp: returns[i]}, Src: re(v)})
			}
		}
		return ir.StmtSequence{Stmts: moves}
	case ir.StmtCall:
		args := make([]ir.Expr, len(s.Args))
		for i, a := range s.Args {
			args[i] = re(a)
		}
		rets := make([]symbol.Temporary, len(s.Returns))
		for i, r := range s.Returns {
			rets[i] = ft(r)
		}
		return ir.StmtCall{Func: re(s.Func), Args: args, Returns: rets}
	}
	return s
}

func renameExpr(e ir.Expr, ft func(symbol.Temporary) symbol.Temporary, argOf func(int) ir.Expr) ir.Expr {
	switch e := e.(type) {
	case ir.ExprTemp:
		return ir.ExprTemp{Temp: ft(e.Temp)}
	case ir.ExprArg:
		return argOf(e.Index)
	case ir.ExprMem:
		return ir.ExprMem{Addr: renameExpr(e.Addr, ft, argOf)}
	case ir.ExprBinary:
		return ir.ExprBinary{Op: e.Op, Left: renameExpr(e.Left, ft, argOf), Right: renameExpr(e.Right, ft, argOf)}
	}
	return e
}

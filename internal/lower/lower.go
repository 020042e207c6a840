// Package lower implements the HIR→LIR lowering pass: §4.1 of the
// specification. It linearizes the tree-shaped HIR (which allows calls and
// statement-sequences nested inside expressions) into three-address LIR,
// preserving the evaluation order of effectful subexpressions.
package lower

import (
	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
	"xic/internal/util"
)

// pureStdlib is the fixed set of stateless standard-library helpers the
// pure-expression predicate treats as side-effect free, per §4.1 and §6 —
// the exact allowlist the reference lowering pass uses.
var pureStdlib = util.NewSet(
	abi.XiAlloc,
	abi.XiPrint,
	abi.XiPrintln,
	abi.XiReadln,
	abi.XiGetchar,
	abi.XiEof,
	abi.XiUnparseInt,
	abi.XiParseInt,
)

// Lowerer accumulates LIR statements for one function being lowered.
type Lowerer struct {
	out []ir.Stmt
}

// Lower converts an HIR function into an equivalent LIR function.
func Lower(fn *ir.Func) *ir.Func {
	l := &Lowerer{}
	for _, s := range fn.Stmts {
		l.stmt(s)
	}
	if len(l.out) == 0 || !isTerminator(l.out[len(l.out)-1]) {
		l.emit(ir.StmtReturn{})
	}
	return &ir.Func{
		Name:    fn.Name,
		Arity:   fn.Arity,
		Returns: fn.Returns,
		Linkage: fn.Linkage,
		Stmts:   l.out,
	}
}

func isTerminator(s ir.Stmt) bool {
	switch s.(type) {
	case ir.StmtJump, ir.StmtCJump, ir.StmtReturn:
		return true
	}
	return false
}

func (l *Lowerer) emit(s ir.Stmt) { l.out = append(l.out, s) }

// pureExpression: true for immediates/temporaries, recursive on memory and
// binary, true for calls to the fixed stdlib allowlist, false otherwise.
func pureExpression(e ir.Expr) bool {
	switch e := e.(type) {
	case ir.ExprImm, ir.ExprTemp, ir.ExprArg, ir.ExprReturnSlot:
		return true
	case ir.ExprMem:
		return pureExpression(e.Addr)
	case ir.ExprBinary:
		return pureExpression(e.Left) && pureExpression(e.Right)
	case ir.ExprCall:
		if fixed, ok := funcName(e.Func); ok {
			return pureStdlib.Contains(fixed)
		}
		return false
	case ir.ExprSequence:
		return false
	}
	return false
}

func funcName(e ir.Expr) (string, bool) {
	imm, ok := e.(ir.ExprImm)
	if !ok || !imm.Imm.IsLabel || imm.Imm.Label.Fresh {
		return "", false
	}
	return imm.Imm.Label.String(), true
}

// commute(before, after) holds if moving the side effects of before to
// occur after the evaluation of after is still safe.
func commute(before, after ir.Expr) bool {
	if isImmediate(before) {
		return true
	}
	if b, ok := before.(ir.ExprBinary); ok {
		return commute(b.Left, after) && commute(b.Right, after)
	}
	return pureExpression(after)
}

func isImmediate(e ir.Expr) bool {
	_, ok := e.(ir.ExprImm)
	return ok
}

// expr lowers an HIR expression into a LIR-legal expression, emitting any
// necessary statements into the accumulator.
func (l *Lowerer) expr(e ir.Expr) ir.Expr {
	switch e := e.(type) {
	case ir.ExprImm:
		return e
	case ir.ExprTemp:
		return e
	case ir.ExprArg:
		return e
	case ir.ExprMem:
		return ir.ExprMem{Addr: l.expr(e.Addr)}
	case ir.ExprBinary:
		left := l.expr(e.Left)
		right := l.expr(e.Right)
		if !commute(left, right) {
			spill := symbol.FreshTemp("t")
			l.emit(ir.StmtMove{Dst: ir.ExprTemp{Temp: spill}, Src: left})
			left = ir.ExprTemp{Temp: spill}
		}
		return ir.ExprBinary{Op: e.Op, Left: left, Right: right}
	case ir.ExprCall:
		return l.call(e)
	case ir.ExprSequence:
		l.stmt(e.Stmt)
		return l.expr(e.Expr)
	}
	util.Unreachable("unhandled HIR expression %T", e)
	return nil
}

func (l *Lowerer) call(e ir.ExprCall) ir.Expr {
	// Determine commutability against the UNLOWERED args first (pureness
	// is syntactic, not dependent on having emitted spills yet).
	allCommute := true
	for _, a := range e.Args {
		if !commute(e.Func, a) {
			allCommute = false
			break
		}
	}
	var fn ir.Expr
	if allCommute {
		fn = l.expr(e.Func)
	} else {
		spill := symbol.FreshTemp("t")
		l.emit(ir.StmtMove{Dst: ir.ExprTemp{Temp: spill}, Src: l.expr(e.Func)})
		fn = ir.ExprTemp{Temp: spill}
	}
	loweredArgs := make([]ir.Expr, len(e.Args))
	for i, a := range e.Args {
		loweredArgs[i] = l.expr(a)
	}
	returns := make([]symbol.Temporary, e.Returns)
	for i := range returns {
		returns[i] = symbol.FreshTemp("ret")
	}
	l.emit(ir.StmtCall{Func: fn, Args: loweredArgs, Returns: returns})
	if e.Returns == 0 {
		return ir.ExprImm{Imm: ir.ImmInt(0)}
	}
	return ir.ExprTemp{Temp: returns[0]}
}

// exprList lowers a list of expressions (e.g. return-statement operands):
// if any is impure, every element is spilled to a fresh temporary in
// left-to-right evaluation order before use.
func (l *Lowerer) exprList(es []ir.Expr) []ir.Expr {
	anyImpure := false
	for _, e := range es {
		if !pureExpression(e) {
			anyImpure = true
			break
		}
	}
	if !anyImpure {
		out := make([]ir.Expr, len(es))
		for i, e := range es {
			out[i] = l.expr(e)
		}
		return out
	}
	out := make([]ir.Expr, len(es))
	for i, e := range es {
		v := l.expr(e)
		spill := symbol.FreshTemp("t")
		l.emit(ir.StmtMove{Dst: ir.ExprTemp{Temp: spill}, Src: v})
		out[i] = ir.ExprTemp{Temp: spill}
	}
	return out
}

func (l *Lowerer) stmt(s ir.Stmt) {
	switch s := s.(type) {
	case ir.StmtJump:
		l.emit(s)
	case ir.StmtCJump:
		left := l.expr(s.Left)
		right := l.expr(s.Right)
		l.emit(ir.StmtCJump{Cond: s.Cond, Left: left, Right: right, True: s.True, False: s.False, HasFalse: s.HasFalse})
	case ir.StmtLabel:
		l.emit(s)
	case ir.StmtExpr:
		switch e := s.Expr.(type) {
		case ir.ExprCall:
			l.call(e)
		default:
			l.expr(e)
		}
	case ir.StmtMove:
		l.move(s.Dst, s.Src)
	case ir.StmtReturn:
		l.emit(ir.StmtReturn{Values: l.exprList(s.Values)})
	case ir.StmtSequence:
		for _, sub := range s.Stmts {
			l.stmt(sub)
		}
	default:
		util.Unreachable("unhandled HIR statement %T", s)
	}
}

// move handles `Move{memory, e}`: if e is pure, emit directly; otherwise
// evaluate the address into a fresh temporary first, per §4.1.
func (l *Lowerer) move(dst, src ir.Expr) {
	if mem, ok := dst.(ir.ExprMem); ok {
		addr := l.expr(mem.Addr)
		if !pureExpression(src) {
			spill := symbol.FreshTemp("t")
			l.emit(ir.StmtMove{Dst: ir.ExprTemp{Temp: spill}, Src: addr})
			addr = ir.ExprTemp{Temp: spill}
		}
		value := l.expr(src)
		l.emit(ir.StmtMove{Dst: ir.ExprMem{Addr: addr}, Src: value})
		return
	}
	value := l.expr(src)
	l.emit(ir.StmtMove{Dst: l.expr(dst), Src: value})
}

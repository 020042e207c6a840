// Package analysis implements the seven dataflow analyses of §4.4 over the
// framework in package dataflow: live variables, constant propagation,
// copy propagation, the four lazy-code-motion lattices (anticipated,
// available, postponable, used expressions), conditional constant
// propagation, and the live-ranges post-process.
package analysis

import (
	"xic/internal/abi"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// Uses returns the temporaries an expression reads.
func Uses(e ir.Expr) []symbol.Temporary {
	switch e := e.(type) {
	case ir.ExprTemp:
		return []symbol.Temporary{e.Temp}
	case ir.ExprMem:
		return Uses(e.Addr)
	case ir.ExprBinary:
		return append(Uses(e.Left), Uses(e.Right)...)
	}
	return nil
}

// StmtUsesDefs returns the temporaries a LIR statement reads (uses) and
// writes (defs): a call uses its Func and Args and defines its Returns. No
// ABI register effects are added here; the argument/return/caller-saved
// registers of a call and the return registers live at ret are handled
// by the live-variables analysis itself (it needs the function's return
// arity, not available from the statement alone).
func StmtUsesDefs(s ir.Stmt) (uses, defs []symbol.Temporary) {
	switch s := s.(type) {
	case ir.StmtJump, ir.StmtLabel:
		return nil, nil
	case ir.StmtCJump:
		return append(Uses(s.Left), Uses(s.Right)...), nil
	case ir.StmtExpr:
		return Uses(s.Expr), nil
	case ir.StmtMove:
		if mem, ok := s.Dst.(ir.ExprMem); ok {
			return append(Uses(mem.Addr), Uses(s.Src)...), nil
		}
		if t, ok := s.Dst.(ir.ExprTemp); ok {
			return Uses(s.Src), []symbol.Temporary{t.Temp}
		}
		return Uses(s.Src), nil
	case ir.StmtReturn:
		var u []symbol.Temporary
		for _, v := range s.Values {
			u = append(u, Uses(v)...)
		}
		return u, nil
	case ir.StmtCall:
		var u []symbol.Temporary
		u = append(u, Uses(s.Func)...)
		for _, a := range s.Args {
			u = append(u, Uses(a)...)
		}
		return u, s.Returns
	}
	return nil, nil
}

// IsOutOfBoundsCall reports whether s is a call to the diverging
// out-of-bounds helper, whose live-variable transfer clears the live-out
// set entirely (§4.4).
func IsOutOfBoundsCall(s ir.Stmt) bool {
	call, ok := s.(ir.StmtCall)
	if !ok {
		return false
	}
	imm, ok := call.Func.(ir.ExprImm)
	if !ok || !imm.Imm.IsLabel || imm.Imm.Label.Fresh {
		return false
	}
	return imm.Imm.Label.String() == abi.XiOutOfBounds
}

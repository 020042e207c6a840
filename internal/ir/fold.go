package ir

import "math/bits"

// FoldBinary evaluates a binary op over two known integer constants,
// matching §8 testable property 6: wrapping add/sub/mul, arithmetic
// div/mod, and 128-bit-widen-then-truncate for HUL (high multiply),
// grounded on the original's wrapping-arithmetic fold pass. Division and
// modulo by zero are reported as !ok so the caller preserves the
// operation in the output rather than folding it away (§4.5, §7: the
// compiler never introduces or removes a division-by-zero fault).
func FoldBinary(op BinOp, l, r int64) (int64, bool) {
	switch op {
	case ADD:
		return l + r, true
	case SUB:
		return l - r, true
	case MUL:
		return l * r, true
	case HUL:
		hi, _ := bits.Mul64(uint64(l), uint64(r))
		// Signed high-multiply correction: unsigned widen then adjust for
		// negative operands, matching x86's imul semantics.
		if l < 0 {
			hi -= uint64(r)
		}
		if r < 0 {
			hi -= uint64(l)
		}
		return int64(hi), true
	case DIV:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case MOD:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case XOR:
		return l ^ r, true
	case AND:
		return l & r, true
	case OR:
		return l | r, true
	}
	return 0, false
}

// FoldIdentity applies the algebraic identities of §4.5 to a binary
// expression whose operands are structurally equal or one side is a known
// constant; returns the simplified expression and true if an identity
// applied.
func FoldIdentity(op BinOp, l, r Expr) (Expr, bool) {
	if li, lok := l.(ExprImm); lok && !li.Imm.IsLabel {
		if ri, rok := r.(ExprImm); rok && !ri.Imm.IsLabel {
			if v, ok := FoldBinary(op, li.Imm.Int, ri.Imm.Int); ok {
				return ExprImm{Imm: ImmInt(v)}, true
			}
		}
	}
	if imm, ok := r.(ExprImm); ok && !imm.Imm.IsLabel {
		switch {
		case op == ADD && imm.Imm.Int == 0:
			return l, true
		case op == SUB && imm.Imm.Int == 0:
			return l, true
		case op == MUL && imm.Imm.Int == 1:
			return l, true
		case op == MUL && imm.Imm.Int == 0:
			return ExprImm{Imm: ImmInt(0)}, true
		case op == MOD && imm.Imm.Int == 1:
			return ExprImm{Imm: ImmInt(0)}, true
		}
	}
	if Equal(l, r) {
		switch op {
		case SUB:
			return ExprImm{Imm: ImmInt(0)}, true
		case XOR:
			return ExprImm{Imm: ImmInt(0)}, true
		case DIV:
			return ExprImm{Imm: ImmInt(1)}, true
		}
	}
	return nil, false
}

// Equal reports structural equality of two expressions, used by constant
// folding's self-identities (x-x, x/x, x xor x) and by the lazy-code-motion
// subexpression-equivalence relation.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case ExprImm:
		b, ok := b.(ExprImm)
		return ok && a.Imm.IsLabel == b.Imm.IsLabel && a.Imm.Int == b.Imm.Int && a.Imm.Label.Equal(b.Imm.Label)
	case ExprTemp:
		b, ok := b.(ExprTemp)
		return ok && a.Temp.Equal(b.Temp)
	case ExprMem:
		b, ok := b.(ExprMem)
		return ok && Equal(a.Addr, b.Addr)
	case ExprBinary:
		b, ok := b.(ExprBinary)
		return ok && a.Op == b.Op && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case ExprArg:
		b, ok := b.(ExprArg)
		return ok && a.Index == b.Index
	}
	return false
}

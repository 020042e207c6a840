// Package asmtext renders a register-allocated function (ir.AsmFunc over
// symbol.PhysReg) as GNU-assembler Intel-syntax text, matching the
// directive and mnemonic grammar of §6. There is no parser: this package
// is output-only, mirroring falcon's own `src/compile/codegen` writer
// (`y1yang0-falcon/src/compile/codegen/arch_x86.go`), which builds up a
// string buffer of `.intel_syntax`-style lines rather than invoking an
// assembler library.
package asmtext

import (
	"fmt"
	"strings"

	"xic/internal/ir"
	"xic/internal/symbol"
)

// Unit renders every function of a compiled unit as one assembly file,
// preceded by the `.intel_syntax noprefix` / `.text` preamble every
// function body shares.
func Unit(funcs []*ir.AsmFunc[symbol.PhysReg]) string {
	var b strings.Builder
	b.WriteString(".intel_syntax noprefix\n")
	b.WriteString(".text\n")
	for _, fn := range funcs {
		Function(&b, fn)
	}
	return b.String()
}

// Function appends one function's `.global`/`.align` header followed by
// its instructions, one per line, to b.
func Function(b *strings.Builder, fn *ir.AsmFunc[symbol.PhysReg]) {
	name := fn.Name.String()
	if fn.Linkage == ir.Definition {
		fmt.Fprintf(b, ".global %s\n", name)
	} else {
		fmt.Fprintf(b, ".local %s\n", name)
	}
	b.WriteString(".align 8\n")
	fmt.Fprintf(b, "%s:\n", name)
	for _, insn := range fn.Insns {
		line := Insn(insn)
		if line == "" {
			continue
		}
		if _, ok := insn.(ir.InsnLabel[symbol.PhysReg]); ok {
			b.WriteString(line + "\n")
		} else {
			b.WriteString("\t" + line + "\n")
		}
	}
}

// Insn renders one instruction, operating over either operand
// instantiation so it can also print abstract (pre-allocation) ASM for
// -dump-asm diagnostics.
func Insn[T comparable](insn ir.Insn[T]) string {
	switch in := insn.(type) {
	case ir.InsnBinary[T]:
		return fmt.Sprintf("%s %s, %s", in.Op, Operand(in.Dst), Operand(in.Src))
	case ir.InsnUnary[T]:
		if in.Op == ir.AsmCALL {
			return fmt.Sprintf("call %s", Operand(in.Operand))
		}
		return fmt.Sprintf("%s %s", in.Op, Operand(in.Operand))
	case ir.InsnNullary[T]:
		switch in.Op {
		case ir.AsmCQO:
			return "cqo"
		case ir.AsmRET:
			return "ret"
		default:
			return "nop"
		}
	case ir.InsnLabel[T]:
		return in.Label.String() + ":"
	case ir.InsnJump[T]:
		return "jmp " + in.Target.String()
	case ir.InsnJcc[T]:
		return jccMnemonic(in.Cond) + " " + in.Target.String()
	}
	return ""
}

// jccMnemonic maps a Cond to the Intel conditional-jump suffix of §6.
func jccMnemonic(c ir.Cond) string {
	switch c {
	case ir.LT:
		return "jl"
	case ir.LE:
		return "jle"
	case ir.GE:
		return "jge"
	case ir.GT:
		return "jg"
	case ir.NE:
		return "jne"
	case ir.EQ:
		return "je"
	case ir.AE:
		return "jae"
	}
	return "jmp"
}

// Operand renders one operand in Intel syntax: `imm`, `reg`, or one of the
// seven `[...]` memory-addressing shapes of §6.
func Operand[T comparable](o ir.Operand[T]) string {
	switch o.Kind {
	case ir.OpImm:
		return o.Imm.String()
	case ir.OpReg:
		return regName(o.Reg)
	default:
		return "[" + memBody(o.Mem) + "]"
	}
}

func memBody[T comparable](m ir.Mem[T]) string {
	base := regName(m.Base)
	index := regName(m.Index)
	switch m.Mode {
	case ir.ModeO:
		return offsetStr(m.Offset)
	case ir.ModeB:
		return base
	case ir.ModeBI:
		return base + " + " + index
	case ir.ModeBO:
		return base + offsetSuffix(m.Offset)
	case ir.ModeBIS:
		return fmt.Sprintf("%s + %s*%d", base, index, m.Scale)
	case ir.ModeISO:
		return fmt.Sprintf("%s*%d%s", index, m.Scale, offsetSuffix(m.Offset))
	case ir.ModeBIO:
		return fmt.Sprintf("%s + %s%s", base, index, offsetSuffix(m.Offset))
	case ir.ModeBISO:
		return fmt.Sprintf("%s + %s*%d%s", base, index, m.Scale, offsetSuffix(m.Offset))
	}
	return base
}

func offsetStr(off int64) string {
	return fmt.Sprintf("%d", off)
}

func offsetSuffix(off int64) string {
	if off == 0 {
		return ""
	}
	if off < 0 {
		return fmt.Sprintf(" - %d", -off)
	}
	return fmt.Sprintf(" + %d", off)
}

// regName renders either a symbol.PhysReg (its register name) or a
// symbol.Temporary (its abstract name, for pre-allocation dumps) via the
// Stringer every operand's T parameter is expected to implement.
func regName[T comparable](r T) string {
	if s, ok := any(r).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", r)
}

package regalloc

import (
	"xic/internal/abi"
	"xic/internal/analysis"
	"xic/internal/cfg"
	"xic/internal/dataflow"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// liveVariables is the ASM-level counterpart of analysis.LiveVariables
// (§4.4), adapted from LIR statements to tiled ASM instructions: the
// transfer/merge structure — call sites killing the return and
// caller-saved registers and exposing the argument registers, the exit
// block seeded with the ABI return registers — is unchanged, only the
// instruction shapes being inspected differ.
type liveVariables struct {
	Returns int
	Exit    symbol.Label
}

func (liveVariables) Direction() dataflow.Direction { return dataflow.Backward }
func (liveVariables) Bottom() analysis.TempSet       { return analysis.TempSet{} }

func (liveVariables) Equal(a, b analysis.TempSet) bool {
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

func (lv liveVariables) Merge(label symbol.Label, values []dataflow.EdgeValue[analysis.TempSet]) analysis.TempSet {
	out := analysis.TempSet{}
	for _, v := range values {
		for t := range v.Value {
			out[t] = true
		}
	}
	if label.Equal(lv.Exit) {
		for i := 0; i < lv.Returns && i < len(abi.ReturnRegs); i++ {
			out[symbol.PhysicalTemp(abi.ReturnRegs[i])] = true
		}
	}
	return out
}

func (lv liveVariables) Transfer(label symbol.Label, idx int, insn ir.Insn[symbol.Temporary], liveOut analysis.TempSet) analysis.TempSet {
	in := make(analysis.TempSet, len(liveOut))
	for t := range liveOut {
		in[t] = true
	}

	if call, ok := insn.(ir.InsnUnary[symbol.Temporary]); ok && call.Op == ir.AsmCALL {
		if isOutOfBoundsCall(call) {
			return analysis.TempSet{}
		}
		for i := 0; i < call.CallReturns && i < len(abi.ReturnRegs); i++ {
			delete(in, symbol.PhysicalTemp(abi.ReturnRegs[i]))
		}
		for _, r := range abi.CallerSaved {
			delete(in, symbol.PhysicalTemp(r))
		}
		for i := 0; i < call.CallArgs && i < len(abi.ArgRegs); i++ {
			in[symbol.PhysicalTemp(abi.ArgRegs[i])] = true
		}
		for _, u := range operandUses(call.Operand) {
			in[u] = true
		}
		return in
	}

	uses, defs := asmUsesDefs(insn)
	for _, d := range defs {
		delete(in, d)
	}
	for _, u := range uses {
		in[u] = true
	}
	return in
}

// liveRangesFor computes §4.4's live ranges over an ASM function, plus the
// canonical linear instruction stream (with the function's RET
// synthesized) that those ranges are indexed against.
func liveRangesFor(fn *ir.AsmFunc[symbol.Temporary]) (ranges []analysis.Range, linear []ir.Insn[symbol.Temporary]) {
	exit := symbol.FreshLabel("exit")
	g := cfg.ConstructASM[symbol.Temporary](fn.Insns, exit)

	lv := liveVariables{Returns: fn.Returns, Exit: exit}
	result := dataflow.Solve[ir.Insn[symbol.Temporary], analysis.TempSet](g, lv)

	ret := ir.Insn[symbol.Temporary](ir.InsnNullary[symbol.Temporary]{Op: ir.AsmRET, Returns: fn.Returns})
	linear = cfg.DestructASM[symbol.Temporary](g, ret)

	blockOf := blockLabels(g, linear)
	liveOutAt := func(l symbol.Label) analysis.TempSet { return result.Out[l] }

	ranges = analysis.LiveRanges[ir.Insn[symbol.Temporary]](g, linear, blockOf, asmUsesDefs, asmIsCall, liveOutAt)
	return ranges, linear
}

// blockLabels returns, for each index of linear, the label of the block
// that instruction belongs to (the most recent InsnLabel at or before it).
func blockLabels(g *cfg.Graph[ir.Insn[symbol.Temporary]], linear []ir.Insn[symbol.Temporary]) func(int) symbol.Label {
	labels := make([]symbol.Label, len(linear))
	cur := g.Enter
	for i, insn := range linear {
		if l, ok := insn.(ir.InsnLabel[symbol.Temporary]); ok {
			cur = l.Label
		}
		labels[i] = cur
	}
	return func(idx int) symbol.Label { return labels[idx] }
}

package regalloc

import (
	"golang.org/x/exp/slices"

	"xic/internal/abi"
	"xic/internal/analysis"
	"xic/internal/ir"
	"xic/internal/symbol"
)

// linear implements Poletto & Sarkar's linear-scan algorithm (§4.8),
// ported directly from original_source/src/allocate/linear.rs's Linear:
// an active list of currently-assigned ranges, a free-register pool, and
// the allocated/spilled maps the rewrite pass consumes afterward.
//
// Three x86-64-specific wrinkles, carried over verbatim from the original:
//
//   - a temporary fixed to a physical register (an ABI argument/return
//     slot, an imul/idiv operand) "allocates to itself", evicting whatever
//     currently holds that register;
//   - a live range that crosses a call cannot be assigned a caller-saved
//     register, since the call clobbers it;
//   - addressing-mode temporaries that still end up spilled are resolved
//     through two reserved scratch registers rather than full interference
//     reasoning (see operand.go's rewriteInsns) — the original's own
//     comment admits to "punting" on this rather than solving it exactly.
type linear struct {
	active    []activeEntry
	allocated map[symbol.Temporary]symbol.PhysReg
	spilled   map[symbol.Temporary]int
	registers []symbol.PhysReg
}

type activeEntry struct {
	end  int
	temp symbol.Temporary
}

func newLinear() *linear {
	var pool []symbol.PhysReg
	pool = append(pool, abi.CalleeSaved...)
	pool = append(pool, abi.CallerSaved...)
	pool = excludeShuttle(pool)
	return &linear{
		allocated: map[symbol.Temporary]symbol.PhysReg{},
		spilled:   map[symbol.Temporary]int{},
		registers: pool,
	}
}

func excludeShuttle(regs []symbol.PhysReg) []symbol.PhysReg {
	var out []symbol.PhysReg
	for _, r := range regs {
		shuttle := false
		for _, s := range abi.ShuttleRegs {
			if r == s {
				shuttle = true
			}
		}
		if !shuttle {
			out = append(out, r)
		}
	}
	return out
}

// LinearScan allocates fn's temporaries to physical registers, spilling to
// the stack only when pressure or a fixed-register conflict demands it.
func LinearScan(fn *ir.AsmFunc[symbol.Temporary]) *ir.AsmFunc[symbol.PhysReg] {
	ranges, linearInsns := liveRangesFor(fn)

	l := newLinear()
	l.allocate(ranges)

	stackSize := abi.StackSize(fn.CalleeArgs, fn.CalleeReturns, len(l.spilled))
	resolve := func(t symbol.Temporary) ir.Operand[symbol.PhysReg] {
		if reg, ok := l.allocated[t]; ok {
			return ir.Reg[symbol.PhysReg](reg)
		}
		if idx, ok := l.spilled[t]; ok {
			return ir.MemOperand[symbol.PhysReg](ir.Mem[symbol.PhysReg]{
				Mode:   ir.ModeBO,
				Base:   symbol.RSP,
				Offset: abi.StackOffset(fn.CalleeArgs, fn.CalleeReturns, idx),
			})
		}
		// A temporary that appears in the stream but was never touched by
		// a Range (unreachable code, or a pure label/jump) allocates
		// nowhere; fall back to its own physical register, if it is one.
		return ir.Reg[symbol.PhysReg](t.Reg)
	}

	body := rewriteInsns(linearInsns, resolve)
	insns := prologueEpilogue(body, stackSize)

	return &ir.AsmFunc[symbol.PhysReg]{
		Name:          fn.Name,
		Arity:         fn.Arity,
		Returns:       fn.Returns,
		CalleeArgs:    fn.CalleeArgs,
		CalleeReturns: fn.CalleeReturns,
		Linkage:       fn.Linkage,
		Insns:         insns,
		StackSize:     int(stackSize),
	}
}

// prologueEpilogue wraps body with the stack-pointer adjustment every
// function needs once its frame size is known; the RET itself is already
// in body (for linear scan, appended by liveRangesFor's call to
// cfg.DestructASM; for Trivial, appended by Trivial itself).
func prologueEpilogue(body []ir.Insn[symbol.PhysReg], stackSize int64) []ir.Insn[symbol.PhysReg] {
	if stackSize == 0 {
		return body
	}
	sub := ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmSUB, Dst: ir.Reg[symbol.PhysReg](symbol.RSP), Src: ir.Imm[symbol.PhysReg](ir.ImmInt(stackSize))}
	out := make([]ir.Insn[symbol.PhysReg], 0, len(body)+2)
	out = append(out, sub)
	for i, insn := range body {
		if nullary, ok := insn.(ir.InsnNullary[symbol.PhysReg]); ok && nullary.Op == ir.AsmRET {
			out = append(out, ir.InsnBinary[symbol.PhysReg]{Op: ir.AsmADD, Dst: ir.Reg[symbol.PhysReg](symbol.RSP), Src: ir.Imm[symbol.PhysReg](ir.ImmInt(stackSize))})
			out = append(out, insn)
			out = append(out, body[i+1:]...)
			return out
		}
		out = append(out, insn)
	}
	return out
}

func (l *linear) allocate(ranges []analysis.Range) {
	sorted := append([]analysis.Range{}, ranges...)
	slices.SortFunc(sorted, func(a, b analysis.Range) bool {
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Clobbered != b.Clobbered {
			return !a.Clobbered
		}
		return a.Temp.String() < b.Temp.String()
	})

	for _, r := range sorted {
		l.expire(r.Start)
		l.allocateTemporary(r.Temp, r)
	}
}

func (l *linear) allocateTemporary(temp symbol.Temporary, r analysis.Range) {
	if temp.IsPhysical() {
		l.allocateRegister(temp.Reg, r)
		return
	}

	if idx, ok := l.lastAvailable(r.Clobbered); ok {
		reg := l.registers[idx]
		l.registers = append(l.registers[:idx], l.registers[idx+1:]...)
		l.allocated[temp] = reg
		l.pushActive(activeEntry{r.End, temp})
		return
	}

	if idx, existing, end, ok := l.findEvictable(r); ok && end > r.End {
		reg := l.allocated[existing]
		l.spill(existing)
		l.allocated[temp] = reg
		l.active[idx] = activeEntry{r.End, temp}
		l.sortActive()
		return
	}
	l.spill(temp)
}

func (l *linear) allocateRegister(reg symbol.PhysReg, r analysis.Range) {
	if !l.containsRegister(reg) {
		idx := -1
		for i, e := range l.active {
			if l.allocated[e.temp] == reg {
				idx = i
				break
			}
		}
		if idx >= 0 {
			l.spill(l.active[idx].temp)
			l.active = append(l.active[:idx], l.active[idx+1:]...)
		}
	}
	l.registers = removeRegister(l.registers, reg)
	physTemp := symbol.PhysicalTemp(reg)
	l.allocated[physTemp] = reg
	l.pushActive(activeEntry{r.End, physTemp})
}

// lastAvailable finds the rightmost free register not barred by clobbered
// (mirroring Rust's Vec::rposition, which prefers recently-freed registers).
func (l *linear) lastAvailable(clobbered bool) (int, bool) {
	for i := len(l.registers) - 1; i >= 0; i-- {
		if !registerClobbered(l.registers[i], clobbered) {
			return i, true
		}
	}
	return 0, false
}

// findEvictable returns the first active, non-fixed temporary whose
// register survives r's clobber constraint — the candidate to steal from
// if it ends later than r.
func (l *linear) findEvictable(r analysis.Range) (idx int, existing symbol.Temporary, end int, found bool) {
	for i, e := range l.active {
		if e.temp.IsPhysical() {
			continue
		}
		reg := l.allocated[e.temp]
		if registerClobbered(reg, r.Clobbered) {
			continue
		}
		return i, e.temp, e.end, true
	}
	return 0, symbol.Temporary{}, 0, false
}

// expire evicts active ranges that ended before start back to the free
// pool. The active list is kept sorted descending by end, so the
// smallest-ending entry sits last; using >= (not >) as the cutoff matters
// when two ranges share a boundary instruction, per linear.rs's comment.
func (l *linear) expire(start int) {
	for len(l.active) > 0 {
		last := l.active[len(l.active)-1]
		if last.end >= start {
			return
		}
		reg := l.allocated[last.temp]
		l.registers = append(l.registers, reg)
		l.active = l.active[:len(l.active)-1]
	}
}

func (l *linear) spill(temp symbol.Temporary) {
	idx := len(l.spilled)
	delete(l.allocated, temp)
	l.spilled[temp] = idx
}

func (l *linear) pushActive(e activeEntry) {
	l.active = append(l.active, e)
	l.sortActive()
}

func (l *linear) sortActive() {
	slices.SortFunc(l.active, func(a, b activeEntry) bool {
		if a.end != b.end {
			return a.end > b.end
		}
		return a.temp.String() > b.temp.String()
	})
}

func (l *linear) containsRegister(reg symbol.PhysReg) bool {
	for _, r := range l.registers {
		if r == reg {
			return true
		}
	}
	return false
}

func removeRegister(regs []symbol.PhysReg, reg symbol.PhysReg) []symbol.PhysReg {
	for i, r := range regs {
		if r == reg {
			return append(regs[:i], regs[i+1:]...)
		}
	}
	return regs
}

// registerClobbered reports whether reg is unusable for a range that
// crosses a call: every caller-saved register is clobbered by the call
// itself, so only callee-saved registers remain safe.
func registerClobbered(reg symbol.PhysReg, clobbered bool) bool {
	if !clobbered {
		return false
	}
	for _, c := range abi.CalleeSaved {
		if c == reg {
			return false
		}
	}
	return true
}

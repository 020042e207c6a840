// Package abi encodes the System V AMD64 ABI details of §6: argument and
// return register assignment, the callee-/caller-saved register split,
// and the stdlib function names the generated code links against.
// Grounded on `y1yang0-falcon/src/compile/codegen/arch_x86.go`'s register
// table and ABI helper functions, generalized from falcon's own calling
// convention to the spec's.
package abi

import (
	"xic/internal/ir"
	"xic/internal/symbol"
	"xic/internal/util"
)

// ArgRegs and ReturnRegs are the first six/two ABI-designated registers,
// in order, per §6.
var ArgRegs = []symbol.PhysReg{symbol.RDI, symbol.RSI, symbol.RDX, symbol.RCX, symbol.R8, symbol.R9}
var ReturnRegs = []symbol.PhysReg{symbol.RAX, symbol.RDX}

var CalleeSaved = []symbol.PhysReg{symbol.RBX, symbol.RBP, symbol.R12, symbol.R13, symbol.R14, symbol.R15}
var CallerSaved = []symbol.PhysReg{symbol.RAX, symbol.RCX, symbol.RDX, symbol.RSI, symbol.RDI, symbol.R8, symbol.R9, symbol.R10, symbol.R11}

// ShuttleRegs are reserved by the linear-scan allocator and never handed
// out to a live range (§4.8 step 3).
var ShuttleRegs = []symbol.PhysReg{symbol.R10, symbol.R11}

func ArgTemps() []symbol.Temporary  { return physTemps(ArgRegs) }
func ReturnTemps() []symbol.Temporary { return physTemps(ReturnRegs) }
func CalleeSavedTemps() []symbol.Temporary { return physTemps(CalleeSaved) }
func CallerSavedTemps() []symbol.Temporary { return physTemps(CallerSaved) }

func physTemps(regs []symbol.PhysReg) []symbol.Temporary {
	out := make([]symbol.Temporary, len(regs))
	for i, r := range regs {
		out[i] = symbol.PhysicalTemp(r)
	}
	return out
}

// StackArgOffset returns the [rsp + k] offset of the (i-6)th stack-passed
// argument, i zero-indexed and i >= 6.
func StackArgOffset(i int) int64 { return int64(i-len(ArgRegs)) * 8 }

// ReturnAreaOffset returns the [rdi + k] offset at which the callee writes
// return value i (i >= 2), per §6.
func ReturnAreaOffset(i int) int64 { return int64(i-2) * 8 }

// ArgOperand is the operand an argument at position i is read from or
// written to: one of the first six ABI argument registers, or a stack
// slot at StackArgOffset(i) for i >= 6.
func ArgOperand(i int) ir.Operand[symbol.Temporary] {
	if i < len(ArgRegs) {
		return ir.Reg[symbol.Temporary](symbol.PhysicalTemp(ArgRegs[i]))
	}
	return ir.MemOperand[symbol.Temporary](ir.Mem[symbol.Temporary]{
		Mode:   ir.ModeBO,
		Base:   symbol.PhysicalTemp(symbol.RSP),
		Offset: StackArgOffset(i),
	})
}

// StackSize is the total byte size of a function's stack frame: room for
// the stack-passed arguments and the overflow-returns area of any call it
// makes, plus one 8-byte slot per spilled/trivially-allocated temporary,
// plus one implicit word for the return address pushed by `call`, rounded
// up to 16 bytes. Grounded directly on original_source/src/abi.rs's
// stack_size: the call/return-area reservation sits below (lower offsets
// than) the temporaries, matching StackOffset below and readReturn's
// StackArgOffset(calleeArgs)+ReturnAreaOffset(i) addressing.
func StackSize(calleeArgs, calleeReturns, spilled int) int64 {
	argArea := int64(0)
	if calleeArgs > len(ArgRegs) {
		argArea = int64(calleeArgs-len(ArgRegs)) * 8
	}
	retArea := int64(0)
	if calleeReturns > 2 {
		retArea = int64(calleeReturns-2) * 8
	}
	unaligned := argArea + retArea + int64(spilled)*8 + 8 // +8: pushed return address
	return util.RoundUp(unaligned, 16)
}

// StackOffset is the [rsp + k] offset of the index'th spilled/trivially
// allocated temporary, sitting above the call/return-area reservation.
func StackOffset(calleeArgs, calleeReturns, index int) int64 {
	argArea := int64(0)
	if calleeArgs > len(ArgRegs) {
		argArea = int64(calleeArgs-len(ArgRegs)) * 8
	}
	retArea := int64(0)
	if calleeReturns > 2 {
		retArea = int64(calleeReturns-2) * 8
	}
	return argArea + retArea + int64(index)*8
}

// StdlibNames are the entry points of §6's external runtime. XiAlloc and
// XiOutOfBounds are plain `_xi_` runtime symbols; the others are mangled.
const (
	XiAlloc         = "_xi_alloc"
	XiCalloc        = "_Icalloc_pi"
	XiOutOfBounds   = "_xi_out_of_bounds"
	XiPrint         = "_Iprint_pai"
	XiPrintln       = "_Iprintln_pai"
	XiReadln        = "_Ireadln_ai"
	XiGetchar       = "_Igetchar_i"
	XiEof           = "_Ieof_b"
	XiUnparseInt    = "_IunparseInt_aii"
	XiParseInt      = "_IparseInt_t2ibai"
	XiAssert        = "_Iassert_pb"
	XiMain          = "_Imain_paai"
)

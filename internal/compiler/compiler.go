// Package compiler wires the pipeline stages of §2 into one driver: HIR
// unit in, per-function assembly out, with pass-level tracing matching
// falcon's own `src/compile/compiler.go` (a flat Options struct plus
// log.Printf gated by a verbosity flag, rather than a structured-logging
// library — see DESIGN.md's justification entry). The CLI (cmd/xic) is
// the only caller; the core packages themselves expose one pure function
// per pass and never import this package.
package compiler

import (
	"log"
	"time"

	"strings"

	"xic/internal/abi"
	"xic/internal/analysis"
	"xic/internal/asmtext"
	"xic/internal/cfg"
	"xic/internal/ir"
	"xic/internal/lower"
	"xic/internal/optimize"
	"xic/internal/regalloc"
	"xic/internal/symbol"
	"xic/internal/tile"
)

// Allocator selects which of §4.8's two register allocators a function is
// run through.
type Allocator int

const (
	AllocatorTrivial Allocator = iota
	AllocatorLinear
)

// OptLevel selects how much of §4.5's optimization pipeline runs.
type OptLevel int

const (
	OptNone OptLevel = iota
	OptAll
)

// Options is the flat, CLI-populated configuration struct every pass
// reads from, matching falcon's own `Option` struct in its compiler.go:
// no config-file layer, just fields set directly from flags.
type Options struct {
	Opt       OptLevel
	Alloc     Allocator
	Verbose   bool
	DumpHIR   bool
	DumpLIR   bool
	DumpCFG   bool
	DumpASM   bool
}

// Logger wraps the standard log package, gated by Options.Verbose, for
// the pass-level tracing (which pass ran, how many statements before/
// after, elapsed time) the pipeline emits. The compiler is single-
// threaded and synchronous (§5), so there is no concurrent output to
// interleave and no structured-logging library is warranted.
type Logger struct {
	verbose bool
}

func NewLogger(verbose bool) *Logger { return &Logger{verbose: verbose} }

func (lg *Logger) Pass(name string, before, after int, start time.Time) {
	if lg == nil || !lg.verbose {
		return
	}
	log.Printf("[%-28s] %4d -> %4d stmts (%s)", name, before, after, time.Since(start))
}

func (lg *Logger) Printf(format string, args ...interface{}) {
	if lg == nil || !lg.verbose {
		return
	}
	log.Printf(format, args...)
}

// CompiledFunc bundles a function's final register-allocated ASM with the
// intermediate dumps Options requested.
type CompiledFunc struct {
	Name symbol.Label
	ASM  *ir.AsmFunc[symbol.PhysReg]
	Dump Dumps
}

// Dumps holds whichever intermediate textual forms Options.Dump* asked
// for, left empty otherwise; the CLI decides what to do with them (§6:
// the core exposes pure functions, the CLI chooses what to print).
type Dumps struct {
	HIR, LIR, CFG, ASM string
}

// CompileUnit compiles every function of a unit, applying §4.5's
// whole-program inlining pass before any per-function lowering begins
// (inlining operates on HIR call sites across function boundaries, so it
// must run before CompileFunction's per-function CFG is built).
func CompileUnit(unit *ir.Unit, opts Options, lg *Logger) ([]CompiledFunc, string) {
	if opts.Opt == OptAll {
		optimize.Inline(unit)
	}

	out := make([]CompiledFunc, 0, len(unit.Funcs))
	asmFuncs := make([]*ir.AsmFunc[symbol.PhysReg], 0, len(unit.Funcs))
	for _, fn := range unit.Funcs {
		lg.Printf("compiling %s", fn.Name.String())
		cf := CompileFunction(fn, opts, lg)
		out = append(out, cf)
		asmFuncs = append(asmFuncs, cf.ASM)
	}
	return out, asmtext.Unit(asmFuncs)
}

// CompileFunction runs one HIR function through the full pipeline of §2:
// lowering, inlining is unit-level so it is applied by CompileUnit before
// this is called; this function handles LIR CFG construction, the LIR
// optimizer loop, tiling, and register allocation. There is no
// optimizer pass over the tiled ASM.
func CompileFunction(hirFn *ir.Func, opts Options, lg *Logger) CompiledFunc {
	var dumps Dumps
	if opts.DumpHIR {
		dumps.HIR = dumpStmts(hirFn.Stmts)
	}

	start := time.Now()
	lirFn := lower.Lower(hirFn)
	lg.Pass("lower", len(hirFn.Stmts), len(lirFn.Stmts), start)
	if opts.DumpLIR {
		dumps.LIR = dumpStmts(lirFn.Stmts)
	}

	exit := symbol.FreshLabel("exit")
	g := cfg.ConstructLIR(lirFn.Stmts, exit)
	cfg.CleanGeneric[ir.Stmt](g, func(s []ir.Stmt) bool { return len(s) == 0 })

	if opts.Opt == OptAll {
		runLIROptimizer(g, hirFn, lg)
	}

	linearized := cfg.DestructLIR(g)
	if opts.DumpCFG {
		dumps.CFG = dumpStmts(linearized)
	}

	tiledFn := tile.Function(&ir.Func{
		Name:    hirFn.Name,
		Arity:   hirFn.Arity,
		Returns: hirFn.Returns,
		Linkage: hirFn.Linkage,
		Stmts:   linearized,
	})

	var allocated *ir.AsmFunc[symbol.PhysReg]
	switch opts.Alloc {
	case AllocatorLinear:
		allocated = regalloc.LinearScan(tiledFn)
	default:
		allocated = regalloc.Trivial(tiledFn)
	}

	if opts.DumpASM {
		var b strings.Builder
		asmtext.Function(&b, allocated)
		dumps.ASM = b.String()
	}

	return CompiledFunc{Name: hirFn.Name, ASM: allocated, Dump: dumps}
}

// runLIROptimizer runs one iteration of §4.5's LIR-level passes: constant
// folding, propagation+DCE, conditional constant propagation, and partial
// redundancy elimination. Each pass recomputes the analyses it needs —
// there is no cache invalidation across passes (§5).
func runLIROptimizer(g *cfg.Graph[ir.Stmt], fn *ir.Func, lg *Logger) {
	la := analysis.LiveVariables{
		Returns:         fn.Returns,
		CalleeSavedRegs: abi.CalleeSavedTemps(),
		CallerSavedRegs: abi.CallerSavedTemps(),
		ArgRegs:         abi.ArgTemps(),
		ReturnRegs:      abi.ReturnTemps(),
		Exit:            g.Exit,
	}

	for _, l := range g.Order {
		b := g.Blocks[l]
		b.Stmts = optimize.FoldConstants(b.Stmts)
	}

	optimize.PropagateConstants(g, analysis.ConstantPropagation{
		CallerSavedRegs: abi.CallerSavedTemps(),
		ReturnRegs:      abi.ReturnTemps(),
	})
	optimize.PropagateCopies(g, analysis.CopyPropagation{CalleeSaved: abi.CalleeSavedTemps()})
	before := countStmts(g)
	dceStart := time.Now()
	optimize.DeadCodeEliminate(g, la)
	after := countStmts(g)
	lg.Pass("propagate+dce", before, after, dceStart)

	optimize.ConditionalConstantPropagate(g, analysis.ConditionalConstantPropagation{
		CallerSavedRegs: abi.CallerSavedTemps(),
		ReturnRegs:      abi.ReturnTemps(),
		Enter:           g.Enter,
	})

	optimize.PartialRedundancyEliminate(g)
	optimize.DeadCodeEliminate(g, la)
	cfg.CleanGeneric[ir.Stmt](g, func(s []ir.Stmt) bool { return len(s) == 0 })

	optimize.HoistLoopInvariants(g)
	cfg.CleanGeneric[ir.Stmt](g, func(s []ir.Stmt) bool { return len(s) == 0 })
}

func countStmts(g *cfg.Graph[ir.Stmt]) int {
	n := 0
	for _, l := range g.Order {
		n += len(g.Blocks[l].Stmts)
	}
	return n
}

func dumpStmts(stmts []ir.Stmt) string {
	out := ""
	for _, s := range stmts {
		out += s.String() + "\n"
	}
	return out
}


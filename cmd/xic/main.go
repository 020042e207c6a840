// Command xic drives the compiler package end to end, matching falcon's
// own minimal `src/main.go`: parse a handful of flags, build one
// compiler.Options, and hand off to the compiler package. There is no
// front end here (the pipeline starts from HIR — see SPEC_FULL.md's
// Non-goals), so this binary is a harness for exercising the backend
// rather than a drop-in replacement for falcon's own CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"xic/internal/compiler"
	"xic/internal/examples"
)

func main() {
	opt := flag.Bool("O", false, "enable the optimizer pipeline")
	alloc := flag.String("alloc", "linear", "register allocator: trivial or linear")
	verbose := flag.Bool("v", false, "print pass-level tracing to stderr")
	dumpAsm := flag.Bool("dump-asm", false, "print generated assembly to stdout")
	out := flag.String("o", "", "output file (default: stdout)")
	flag.Parse()

	opts := compiler.Options{Alloc: compiler.AllocatorLinear, Verbose: *verbose, DumpASM: *dumpAsm}
	if *opt {
		opts.Opt = compiler.OptAll
	}
	if *alloc == "trivial" {
		opts.Alloc = compiler.AllocatorTrivial
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: xic [-O] [-alloc=trivial|linear] <example>")
		fmt.Fprintln(os.Stderr, "  <example> names a fixture from internal/examples (run with no args to list them)")
		if flag.NArg() == 0 {
			for _, name := range examples.Names() {
				fmt.Fprintln(os.Stderr, "   ", name)
			}
		}
		os.Exit(1)
	}

	unit, ok := examples.Lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "xic: unknown example %q\n", flag.Arg(0))
		os.Exit(1)
	}

	lg := compiler.NewLogger(opts.Verbose)
	_, text := compiler.CompileUnit(unit, opts, lg)

	if *out == "" || *dumpAsm {
		fmt.Print(text)
	}
	if *out == "" {
		return
	}
	if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "xic:", err)
		os.Exit(1)
	}
}

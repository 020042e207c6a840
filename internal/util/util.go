// Package util collects the small assertion, bitmap, and set helpers shared
// by every compiler pass. None of it is domain-specific; it exists so the
// rest of the tree can fail loudly instead of silently miscompiling.
package util

import "fmt"

// Assert panics with a formatted message when cond is false. The compiler
// core has no user-visible error space: by the time these passes run, the
// program has already type-checked, so a failed assertion is a bug in the
// compiler, not in the source program.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("[INTERNAL ERROR]: "+format, args...))
	}
}

// Fatal unconditionally panics with a formatted "[INTERNAL ERROR]" message.
func Fatal(format string, args ...interface{}) {
	panic(fmt.Sprintf("[INTERNAL ERROR]: "+format, args...))
}

// Unimplemented marks a code path that is not yet (or deliberately never)
// implemented.
func Unimplemented(what string) {
	panic(fmt.Sprintf("[INTERNAL ERROR]: unimplemented: %s", what))
}

// Unreachable marks a code path that invariants guarantee cannot execute.
func Unreachable(format string, args ...interface{}) {
	panic(fmt.Sprintf("[INTERNAL ERROR]: should not reach here: "+fmt.Sprintf(format, args...)))
}

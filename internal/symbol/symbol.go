// Package symbol implements the process-wide interner and the fresh
// label/temporary counters described in the specification's concurrency
// model: a monotone, append-only table that backs every symbolic identity
// created during a compilation. The compiler is single-threaded, so the
// interner is a plain package-level value rather than anything
// lock-protected; nothing here is safe to share across concurrent
// compilations, by design (see the "fresh-name interning" design note:
// reproducibility requires a fresh interner per run).
package symbol

// Symbol is an interned string: comparable in O(1), copyable, usable as a
// map key.
type Symbol int

type Interner struct {
	table []string
	index map[string]Symbol
}

func NewInterner() *Interner {
	return &Interner{index: make(map[string]Symbol)}
}

func (in *Interner) Intern(s string) Symbol {
	if id, ok := in.index[s]; ok {
		return id
	}
	id := Symbol(len(in.table))
	in.table = append(in.table, s)
	in.index[s] = id
	return id
}

func (in *Interner) Resolve(s Symbol) string {
	return in.table[int(s)]
}

// global is the process-wide interner backing every Label and Temporary
// minted during this process's lifetime. It is never reclaimed.
var global = NewInterner()

func Intern(s string) Symbol  { return global.Intern(s) }
func Resolve(s Symbol) string { return global.Resolve(s) }

// Reset discards the process-wide interner and counters. It exists only for
// test isolation (so two independent compilations in the same test binary
// don't see each other's fresh names); production use compiles one unit per
// process and never calls it.
func Reset() {
	global = NewInterner()
	labelCounter = 0
	tempCounter = 0
}

// -----------------------------------------------------------------------------
// Labels
//
// A label is either fixed (naming an externally known entity -- a function
// entry, a data segment symbol) or fresh (minted during compilation and
// guaranteed process-wide unique).

type Label struct {
	Name  Symbol
	Fresh bool
	id    int // disambiguates fresh labels sharing a textual prefix
}

var labelCounter int

// FixedLabel names an externally known address, e.g. a mangled function name.
func FixedLabel(name string) Label {
	return Label{Name: Intern(name)}
}

// FreshLabel mints a globally unique label, prefixed for readability in
// dumps; two calls with the same prefix never collide.
func FreshLabel(prefix string) Label {
	id := labelCounter
	labelCounter++
	return Label{Name: Intern(prefix), Fresh: true, id: id}
}

func (l Label) String() string {
	if l.Fresh {
		return Resolve(l.Name) + "_" + itoa(l.id)
	}
	return Resolve(l.Name)
}

func (l Label) Equal(o Label) bool {
	return l.Fresh == o.Fresh && l.Name == o.Name && (!l.Fresh || l.id == o.id)
}

// -----------------------------------------------------------------------------
// Temporaries
//
// A temporary is a virtual register: a physical register, a fixed symbolic
// name (e.g. a reserved ABI slot), or a fresh name. All three are
// interchangeable HIR/LIR/ASM operands until register allocation replaces
// every temporary with a physical register or a stack slot.

type TempKind int

const (
	TempFresh TempKind = iota
	TempFixed
	TempPhysical
)

type Temporary struct {
	Kind TempKind
	Name Symbol
	id   int    // disambiguates fresh temporaries sharing a prefix
	Reg  PhysReg // valid iff Kind == TempPhysical
}

var tempCounter int

func FreshTemp(prefix string) Temporary {
	id := tempCounter
	tempCounter++
	return Temporary{Kind: TempFresh, Name: Intern(prefix), id: id}
}

func FixedTemp(name string) Temporary {
	return Temporary{Kind: TempFixed, Name: Intern(name)}
}

func PhysicalTemp(r PhysReg) Temporary {
	return Temporary{Kind: TempPhysical, Reg: r}
}

func (t Temporary) IsPhysical() bool { return t.Kind == TempPhysical }

func (t Temporary) Equal(o Temporary) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TempPhysical:
		return t.Reg == o.Reg
	case TempFixed:
		return t.Name == o.Name
	default:
		return t.Name == o.Name && t.id == o.id
	}
}

func (t Temporary) String() string {
	switch t.Kind {
	case TempPhysical:
		return t.Reg.String()
	case TempFixed:
		return Resolve(t.Name)
	default:
		return Resolve(t.Name) + "_" + itoa(t.id)
	}
}

// PhysReg names one of the sixteen general-purpose x86-64 registers. It is
// defined here (rather than in package abi) because Temporary embeds it
// directly, and abi depends on symbol rather than the reverse.
type PhysReg int

const (
	RAX PhysReg = iota
	RBX
	RCX
	RDX
	RBP
	RSP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	NumPhysRegs
)

var physRegNames = [NumPhysRegs]string{
	RAX: "rax", RBX: "rbx", RCX: "rcx", RDX: "rdx",
	RBP: "rbp", RSP: "rsp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

func (r PhysReg) String() string { return physRegNames[r] }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	n := i
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

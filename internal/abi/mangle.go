package abi

import (
	"strconv"
	"strings"
)

// Type is the minimal surface-type vocabulary the mangler needs to encode,
// independent of any particular type-checker's representation: integers,
// booleans, class references, and arrays of a recursive Type. Function,
// Any, and Null never reach IR and are not representable here, matching
// the original's "[INTERNAL ERROR]" panic on those variants — callers
// simply never construct one.
type Type struct {
	Kind    TypeKind
	Class   string // Kind == TypeClass
	Element *Type  // Kind == TypeArray
}

type TypeKind int

const (
	TypeInt TypeKind = iota
	TypeBool
	TypeClass
	TypeArray
)

// Function mangles a free function per §6: "_I" + escape(name) + "_" +
// mangled-returns + mangled-parameters.
func Function(name string, params, returns []Type) string {
	var b strings.Builder
	b.WriteString("_I")
	mangleFunction(&b, name, params, returns)
	return b.String()
}

// Method mangles a class method, prefixing the enclosing class name.
func Method(class, name string, params, returns []Type) string {
	var b strings.Builder
	b.WriteString("_I_")
	b.WriteString(escape(class))
	b.WriteByte('_')
	mangleFunction(&b, name, params, returns)
	return b.String()
}

func mangleFunction(b *strings.Builder, name string, params, returns []Type) {
	b.WriteString(escape(name))
	b.WriteByte('_')
	switch len(returns) {
	case 0:
		b.WriteByte('p')
	case 1:
		mangleType(b, returns[0])
	default:
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(returns)))
		for _, r := range returns {
			mangleType(b, r)
		}
	}
	for _, p := range params {
		mangleType(b, p)
	}
}

func mangleType(b *strings.Builder, t Type) {
	switch t.Kind {
	case TypeInt:
		b.WriteByte('i')
	case TypeBool:
		b.WriteByte('b')
	case TypeClass:
		name := escape(t.Class)
		b.WriteByte('o')
		b.WriteString(strconv.Itoa(len(name)))
		b.WriteString(name)
	case TypeArray:
		b.WriteByte('a')
		mangleType(b, *t.Element)
	}
}

// ClassSize, ClassVirtualTable and ClassInitialization are the fixed
// ancillary label forms §6/class.rs emits alongside a class's instance
// methods.
func ClassSize(class string) string            { return "_I_size_" + escape(class) }
func ClassVirtualTable(class string) string     { return "_I_vt_" + escape(class) }
func ClassInitialization(class string) string   { return "_I_init_" + escape(class) }

// Global mangles a top-level global variable's storage label.
func Global(name string, t Type) string {
	var b strings.Builder
	b.WriteString("_I_global_")
	b.WriteString(escape(name))
	b.WriteByte('_')
	mangleType(&b, t)
	return b.String()
}

// GlobalInitialization mangles the synthesized label for the function that
// initializes every top-level global, given in declaration order.
type GlobalInit struct {
	Name string
	Type Type
}

func GlobalInitialization(inits []GlobalInit) string {
	var b strings.Builder
	b.WriteString("_I_init_global")
	for _, g := range inits {
		b.WriteByte('_')
		b.WriteString(escape(g.Name))
		mangleType(&b, g.Type)
	}
	return b.String()
}

// TemplateArg mirrors ast::Type in the original: a template instantiation
// argument is either int, bool, an (possibly-generic) class reference, or
// an array of a recursive TemplateArg.
type TemplateArg struct {
	Kind     TemplateArgKind
	Class    string
	Generics []TemplateArg // non-nil only when Kind == TemplateArgClass and the class itself is generic
	Element  *TemplateArg  // Kind == TemplateArgArray
}

type TemplateArgKind int

const (
	TemplateArgInt TemplateArgKind = iota
	TemplateArgBool
	TemplateArgClass
	TemplateArgArray
)

// Template mangles a generic class instantiation's name, e.g. A<B<C>, D>,
// preserving the original's invariant that mangling a recursive template
// type step-by-step in postorder and all at once produce identical output
// (hence the extra "o<len>" wrapper on a generic class nested inside
// another template's argument list).
func Template(name string, generics []TemplateArg) string {
	var b strings.Builder
	mangleTemplate(&b, name, generics)
	return b.String()
}

func mangleTemplate(b *strings.Builder, name string, generics []TemplateArg) {
	escaped := escape(name)
	b.WriteByte('t')
	b.WriteString(strconv.Itoa(len(escaped)))
	b.WriteString(escaped)
	b.WriteString(strconv.Itoa(len(generics)))
	for _, g := range generics {
		if g.Kind == TemplateArgClass && g.Generics != nil {
			var inner strings.Builder
			mangleTemplateArg(&inner, g)
			wrapped := inner.String()
			b.WriteByte('o')
			b.WriteString(strconv.Itoa(len(wrapped)))
			b.WriteString(wrapped)
			continue
		}
		mangleTemplateArg(b, g)
	}
}

func mangleTemplateArg(b *strings.Builder, t TemplateArg) {
	switch t.Kind {
	case TemplateArgInt:
		b.WriteByte('i')
	case TemplateArgBool:
		b.WriteByte('b')
	case TemplateArgClass:
		if t.Generics == nil {
			name := escape(t.Class)
			b.WriteByte('o')
			b.WriteString(strconv.Itoa(len(name)))
			b.WriteString(name)
			return
		}
		mangleTemplate(b, t.Class, t.Generics)
	case TemplateArgArray:
		b.WriteByte('a')
		mangleTemplateArg(b, *t.Element)
	}
}

// escape doubles every underscore and replaces a quote (used by the
// source language's primed identifiers) with a single underscore, so the
// mangled name stays a valid, unambiguously-delimited assembler label.
func escape(name string) string {
	name = strings.ReplaceAll(name, "_", "__")
	name = strings.ReplaceAll(name, "'", "_")
	return name
}

package abi

// ClassMember names a single field or method declared directly on a class,
// independent of any particular type-checker's symbol table.
type ClassMember struct {
	Name     string
	IsMethod bool
	// HasBody is false for a method declared only in an interface
	// (a signature with no implementation).
	HasBody bool
}

// ClassInfo is the per-class input ClassLayout walks: a class's own
// members plus its immediate superclass name (empty for a class with no
// declared superclass).
type ClassInfo struct {
	Superclass string
	Members    []ClassMember
}

// Classes resolves a class name to its ClassInfo, standing in for the
// original's type-checking Context.
type Classes map[string]ClassInfo

// Layout is a class's field/method/vtable geometry, computed once per
// class per §3's "heap-allocated classes with single inheritance and
// virtual dispatch" data model. Grounded on original_source/src/abi/
// class.rs's Layout, which walks the ancestor chain root-to-leaf so that
// a superclass's fields and methods occupy the lower offsets and a
// subclass's the higher ones (enabling safe upcasting: a subclass
// instance can be used wherever its superclass is expected, since the
// superclass's own fields/methods sit at identical offsets).
type Layout struct {
	// Interface is the first ancestor (root-to-leaf) that is signature-only
	// (declared but never given a body) — per §9's open question, an
	// in-unit compiler run always resolves instance layout including
	// interfaces, so Interface stays empty ("") for every class actually
	// reachable during one compilation; it is preserved here purely as a
	// documented hook matching the original's representation, since a
	// future separate-compilation mode would need it to compute field/size
	// offsets relative to an unknown-size interface ancestor instead.
	Interface string

	// fields, in ancestor-to-descendant declaration order; (class, name)
	// pairs so field_index can look up the most specific override.
	fields []fieldKey

	// methods maps a method name to its 0-indexed virtual-table slot.
	methods map[string]int

	// slots is the virtual table's total word count, including one
	// reserved "private" slot per ancestor in the chain.
	slots int
}

type fieldKey struct {
	class, name string
}

// NewLayout computes class's Layout by walking its ancestor chain from
// the root superclass down to class itself, exactly mirroring class.rs's
// Layout::new: each ancestor contributes one reserved private slot, its
// declared fields (keyed by the declaring class so overrides remain
// distinguishable), and its declared methods (each a new vtable slot only
// the first time that method name is seen, so an override reuses its
// superclass's slot).
func NewLayout(classes Classes, class string) *Layout {
	chain := ancestorsInclusive(classes, class)

	l := &Layout{methods: map[string]int{}}
	for _, superclass := range chain {
		info := classes[superclass]

		l.slots++
		for _, m := range info.Members {
			if m.IsMethod {
				if _, ok := l.methods[m.Name]; !ok {
					l.methods[m.Name] = l.slots
					l.slots++
				}
				continue
			}
			l.fields = append(l.fields, fieldKey{superclass, m.Name})
		}
	}
	return l
}

// ancestorsInclusive returns [root, ..., class] by following Superclass
// links upward then reversing.
func ancestorsInclusive(classes Classes, class string) []string {
	var chain []string
	for c := class; c != ""; c = classes[c].Superclass {
		chain = append(chain, c)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// FieldIndex returns the word offset of field within an instance of
// class, relative to the instance pointer: an exact (class, field) match
// wins, otherwise the most-derived override by that name. Offset 0 holds
// the virtual-table pointer unless Interface is set (an interface
// ancestor already carries its own vtable pointer at offset 0 of its own,
// narrower layout).
func (l *Layout) FieldIndex(class, field string) (int, bool) {
	for i, fk := range l.fields {
		if fk.class == class && fk.name == field {
			return l.adjustFieldIndex(i), true
		}
	}
	for i := len(l.fields) - 1; i >= 0; i-- {
		if l.fields[i].name == field {
			return l.adjustFieldIndex(i), true
		}
	}
	return 0, false
}

func (l *Layout) adjustFieldIndex(i int) int {
	if l.Interface != "" {
		return i
	}
	return i + 1
}

// FieldLen is the instance's total field-word count, including the
// leading vtable pointer slot when there is no interface ancestor.
func (l *Layout) FieldLen() int {
	if l.Interface != "" {
		return len(l.fields)
	}
	return len(l.fields) + 1
}

// MethodIndex returns method's virtual-table slot.
func (l *Layout) MethodIndex(method string) (int, bool) {
	i, ok := l.methods[method]
	return i, ok
}

// VirtualTableLen is the virtual table's total word count.
func (l *Layout) VirtualTableLen() int { return l.slots }

package expr

// Named constructors for building trees without parsing. They do not check
// kinds; Eval reports a *KindError for ill-typed trees.

// Sym references a pointer by name. Resolution is deferred to evaluation.
func Sym(name string) Node { return &Symbol{Name: name, Explicit: true} }

// Ref references a name that may be a state.
func Ref(name string) Node { return &Symbol{Name: name} }

// Num is a numeric literal.
func Num(v float64) Node { return &Literal{Value: v} }

// Superpose adds its operands.
func Superpose(first Node, rest ...Node) Node {
	terms := []Term{{Node: first}}
	for _, n := range rest {
		terms = append(terms, Term{Node: n})
	}
	return &Sum{Terms: terms}
}

// Subtract returns a - b.
func Subtract(a, b Node) Node {
	return &Sum{Terms: []Term{{Node: a}, {Neg: true, Node: b}}}
}

// Negate returns -n.
func Negate(n Node) Node {
	return &Sum{Terms: []Term{{Neg: true, Node: n}}}
}

// BindOf binds a and b, or scales when either is scalar-kinded.
func BindOf(a, b Node) Node { return product(a, b) }

// InvertOf returns ~n.
func InvertOf(n Node) Node { return &Invert{Child: n} }

// ScaleOf multiplies n by a constant.
func ScaleOf(s float64, n Node) Node { return &Scale{Factor: Num(s), Child: n} }

// Similarity is the dot product of a and b.
func Similarity(a, b Node) Node { return &Dot{Left: a, Right: b} }

// NormalizeOf returns n.normalized().
func NormalizeOf(n Node) Node { return &Normalize{Child: n} }

// UnitaryOf returns n.unitary().
func UnitaryOf(n Node) Node { return &Unitary{Child: n} }

// ReinterpretAs casts n into target with the same vector data. An empty
// target is inferred from context.
func ReinterpretAs(n Node, target string) Node {
	return &Cast{Mode: Reinterpret, Child: n, Target: target}
}

// TranslateTo casts n into target through a linear transform. An empty
// target is inferred from context.
func TranslateTo(n Node, target string) Node {
	return &Cast{Mode: Translate, Child: n, Target: target}
}

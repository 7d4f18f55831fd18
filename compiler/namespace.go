package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

// Symbol is anything that can be stored in a Namespace: a *Function or a
// *Variable.
type Symbol interface {
	SymbolName() string
}

// Variable binds a name to a value.
type Variable struct {
	Name  string
	Value Value
}

// NewVariable creates a variable.
func NewVariable(name string, value Value) *Variable {
	return &Variable{Name: name, Value: value}
}

func (v *Variable) SymbolName() string { return v.Name }

// Kind returns the kind of the bound value.
func (v *Variable) Kind() Kind { return v.Value.Kind() }

// Rename returns an alias of v under a new name. The underlying value is
// shared, not copied.
func (v *Variable) Rename(name string) *Variable {
	return &Variable{Name: name, Value: v.Value}
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s => %s(%s)", v.Name, v.Value.Kind(), v.Value)
}

// ---------------------------------------------------------------------------
// Namespace
// ---------------------------------------------------------------------------

// Namespace is one scope in a parent-linked chain. Lookups walk outward and
// the innermost definition wins. Every namespace keeps an explicit handle to
// the global (root) namespace so Global installs never need to search for it.
type Namespace struct {
	parent  *Namespace
	global  *Namespace
	symbols map[string]Symbol
	order   []Symbol // insertion order, for deterministic iteration

	// inceptions maps a macroblock name to the block supplied at its
	// invocation site.
	inceptions map[string]Inception
}

// NewNamespace creates a root namespace.
func NewNamespace() *Namespace {
	ns := &Namespace{symbols: make(map[string]Symbol)}
	ns.global = ns
	return ns
}

// NewChild creates a namespace whose parent is ns.
func (ns *Namespace) NewChild() *Namespace {
	return &Namespace{
		parent:  ns,
		global:  ns.global,
		symbols: make(map[string]Symbol),
	}
}

// Parent returns the enclosing namespace, or nil at the root.
func (ns *Namespace) Parent() *Namespace { return ns.parent }

// Global returns the root namespace of the chain.
func (ns *Namespace) Global() *Namespace { return ns.global }

// Depth returns the number of ancestors.
func (ns *Namespace) Depth() int {
	d := 0
	for cur := ns.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

// Target returns the namespace a symbol with the given lifetime installs into.
func (ns *Namespace) Target(lifetime Lifetime) *Namespace {
	switch lifetime {
	case Global:
		return ns.global
	case Parent:
		if ns.parent != nil {
			return ns.parent
		}
	}
	return ns
}

// Push installs sym according to lifetime. Installing a name that already
// exists in the target namespace is an ErrDuplicateSymbol error; shadowing an
// outer definition is allowed.
func (ns *Namespace) Push(sym Symbol, lifetime Lifetime) error {
	target := ns.Target(lifetime)
	name := sym.SymbolName()
	if _, exists := target.symbols[name]; exists {
		return &Error{Kind: ErrDuplicateSymbol, Msg: fmt.Sprintf("`%s` is already defined in this scope", name)}
	}
	target.symbols[name] = sym
	target.order = append(target.order, sym)
	return nil
}

// PushAll installs every symbol locally.
func (ns *Namespace) PushAll(syms ...Symbol) error {
	for _, sym := range syms {
		if err := ns.Push(sym, Local); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds the innermost symbol named name.
func (ns *Namespace) Lookup(name string) (Symbol, bool) {
	for cur := ns; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupFunction resolves tok to a function. A variable shadowing the name
// does not hide an outer function of the same name.
func (ns *Namespace) LookupFunction(tok *Token) (*Function, error) {
	for cur := ns; cur != nil; cur = cur.parent {
		if fn, ok := cur.symbols[tok.Text].(*Function); ok {
			return fn, nil
		}
	}
	return nil, newError(ErrFunctionNotFound, tok, "cannot find function `%s`", tok.Text)
}

// LookupVariable resolves tok to a variable.
func (ns *Namespace) LookupVariable(tok *Token) (*Variable, error) {
	for cur := ns; cur != nil; cur = cur.parent {
		if v, ok := cur.symbols[tok.Text].(*Variable); ok {
			return v, nil
		}
	}
	return nil, newError(ErrVariableNotFound, tok, "cannot find variable `%s`", tok.Text)
}

// Variables returns every variable visible from ns outward: local ones first,
// then each ancestor's, in insertion order. Shadowed variables are included.
func (ns *Namespace) Variables() []*Variable {
	var vars []*Variable
	for cur := ns; cur != nil; cur = cur.parent {
		for _, sym := range cur.order {
			if v, ok := sym.(*Variable); ok {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// Functions returns the functions defined directly in ns.
func (ns *Namespace) Functions() []*Function {
	var fns []*Function
	for _, sym := range ns.order {
		if fn, ok := sym.(*Function); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Inception is the block supplied at a macroblock call site and the source
// unit it was written in.
type Inception struct {
	Body []Expr
	File string
}

// AddInception registers the block supplied at a macroblock call site.
func (ns *Namespace) AddInception(macro string, inc Inception) {
	if ns.inceptions == nil {
		ns.inceptions = make(map[string]Inception)
	}
	ns.inceptions[macro] = inc
}

// Inception finds the innermost block registered for macro.
func (ns *Namespace) Inception(macro string) (Inception, bool) {
	for cur := ns; cur != nil; cur = cur.parent {
		if inc, ok := cur.inceptions[macro]; ok {
			return inc, true
		}
	}
	return Inception{}, false
}

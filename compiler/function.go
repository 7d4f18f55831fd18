package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/brain/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Function model
// ---------------------------------------------------------------------------

// Argument is a formal parameter: a name and the kind of value it accepts.
type Argument struct {
	Name string
	Kind Kind
}

func (a Argument) String() string { return a.Name + " " + a.Kind.String() }

// NativeFunc generates bytecode for a builtin called as a statement.
type NativeFunc func(c *Context, args Bindings) ([]bytecode.Instruction, error)

// NativeBlockFunc generates bytecode for a builtin called with a block. body
// is the caller's nested block and ns the namespace the call runs in.
type NativeBlockFunc func(c *Context, args Bindings, body []Expr, ns *Namespace) ([]bytecode.Instruction, error)

// Binder replaces the standard argument check for builtins with their own
// argument grammar.
type Binder func(fn *Function, toks []*Token, ns *Namespace) (Bindings, error)

// Impl is the closed set of function implementations. The compiler switches
// over exactly these four variants.
type Impl interface {
	impl()
	// TakesBlock reports whether the function must be called with a block.
	TakesBlock() bool
}

// BuiltinNoBlock is native code called as a plain statement.
type BuiltinNoBlock struct{ Gen NativeFunc }

// BuiltinBlock is native code called with a block.
type BuiltinBlock struct{ Gen NativeBlockFunc }

// UserNoBlock is a macro: its body is compiled at every call site.
type UserNoBlock struct{ Body []Expr }

// UserBlock is a macroblock: its body may contain CodeInjection nodes that
// receive the caller's block.
type UserBlock struct{ Body []Expr }

func (BuiltinNoBlock) impl() {}
func (BuiltinBlock) impl()   {}
func (UserNoBlock) impl()    {}
func (UserBlock) impl()      {}

func (BuiltinNoBlock) TakesBlock() bool { return false }
func (BuiltinBlock) TakesBlock() bool   { return true }
func (UserNoBlock) TakesBlock() bool    { return false }
func (UserBlock) TakesBlock() bool      { return true }

// Function is a callable symbol: either a builtin or a user-defined macro.
// Functions are immutable once installed.
type Function struct {
	Name     string
	Args     []Argument
	Lifetime Lifetime
	Impl     Impl
	Binder   Binder // optional; overrides CheckArgs
	Source   *Token // defining token for user functions, nil for builtins
	File     string // source unit of a user function's body
}

func (f *Function) SymbolName() string { return f.Name }

// Builtin reports whether the function is implemented natively.
func (f *Function) Builtin() bool {
	switch f.Impl.(type) {
	case BuiltinNoBlock, BuiltinBlock:
		return true
	}
	return false
}

// TakesBlock reports whether the function must be called with a block.
func (f *Function) TakesBlock() bool { return f.Impl.TakesBlock() }

// Body returns the stored body of a user-defined function.
func (f *Function) Body() []Expr {
	switch impl := f.Impl.(type) {
	case UserNoBlock:
		return impl.Body
	case UserBlock:
		return impl.Body
	}
	return nil
}

// Signature renders the function header, e.g. `macroblock twice(n int)`.
func (f *Function) Signature() string {
	var kind string
	switch f.Impl.(type) {
	case BuiltinNoBlock:
		kind = "builtin"
	case BuiltinBlock:
		kind = "builtin block"
	case UserNoBlock:
		kind = "macro"
	case UserBlock:
		kind = "macroblock"
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s %s(%s)", kind, f.Name, strings.Join(args, ", "))
}

func (f *Function) String() string { return f.Signature() }

// ---------------------------------------------------------------------------
// Bindings
// ---------------------------------------------------------------------------

// Bindings are the variables bound for one call, in argument order.
type Bindings []*Variable

// Get returns the first binding named name, or nil.
func (b Bindings) Get(name string) *Variable {
	for _, v := range b {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Int returns the integer bound to name; it panics if the binding is missing
// or of another kind, which only a broken builtin declaration can cause.
func (b Bindings) Int(name string) int {
	return b.Get(name).Value.(*IntValue).V
}

// Addr returns the cell index bound to name.
func (b Bindings) Addr(name string) int {
	return b.Get(name).Value.(*AddressValue).Addr
}

// Ident returns the identifier bound to name.
func (b Bindings) Ident(name string) *IdentifierValue {
	return b.Get(name).Value.(*IdentifierValue)
}

// Str returns the string bound to name.
func (b Bindings) Str(name string) *StrValue {
	return b.Get(name).Value.(*StrValue)
}

// Symbols converts the bindings for Namespace.PushAll.
func (b Bindings) Symbols() []Symbol {
	syms := make([]Symbol, len(b))
	for i, v := range b {
		syms[i] = v
	}
	return syms
}

// ---------------------------------------------------------------------------
// Argument binding
// ---------------------------------------------------------------------------

// Bind binds call-site tokens to the function's arguments, using the
// function's own Binder when it has one.
func (f *Function) Bind(toks []*Token, ns *Namespace) (Bindings, error) {
	if f.Binder != nil {
		return f.Binder(f, toks, ns)
	}
	return f.CheckArgs(toks, ns)
}

// CheckArgs binds toks to f.Args. Each token is first parsed directly as the
// argument's kind; failing that, it is read as an identifier naming a visible
// variable, which is aliased under the argument's name. Exactly one error is
// returned when binding fails.
func (f *Function) CheckArgs(toks []*Token, ns *Namespace) (Bindings, error) {
	if len(toks) != len(f.Args) {
		tok := (*Token)(nil)
		if len(toks) > len(f.Args) {
			tok = toks[len(f.Args)]
		}
		return nil, newError(ErrArgumentLen, tok, "`%s` takes %d arguments, got %d",
			f.Name, len(f.Args), len(toks))
	}

	bound := make(Bindings, 0, len(f.Args))
	for i, arg := range f.Args {
		v, err := bindArgument(arg, toks[i], ns)
		if err != nil {
			return nil, err
		}
		bound = append(bound, v)
	}
	return bound, nil
}

func bindArgument(arg Argument, tok *Token, ns *Namespace) (*Variable, error) {
	direct, parseErr := ParseValue(arg.Kind, tok)
	if parseErr == nil {
		addr, isAddr := direct.(*AddressValue)
		if !isAddr || addr.Resolved() {
			return NewVariable(arg.Name, direct), nil
		}
	}

	if _, err := ParseIdentifier(tok); err != nil {
		return nil, &Error{
			Kind:  ErrArgumentParse,
			Token: tok,
			Msg:   fmt.Sprintf("cannot bind `%s` to `%s`", tok.Text, arg),
			Cause: errors.Join(parseErr, err),
		}
	}

	found, lookupErr := ns.LookupVariable(tok)
	if lookupErr != nil {
		if parseErr == nil {
			// parsed as an address reference; the referenced variable is missing
			return nil, lookupErr
		}
		return nil, &Error{
			Kind:  ErrArgumentParse,
			Token: tok,
			Msg:   fmt.Sprintf("cannot bind `%s` to `%s`", tok.Text, arg),
			Cause: errors.Join(parseErr, lookupErr),
		}
	}
	if found.Kind() != arg.Kind {
		return nil, newError(ErrArgumentType, tok, "`%s` is %s, argument `%s` expects %s",
			found.Name, found.Kind(), arg.Name, arg.Kind)
	}
	return found.Rename(arg.Name), nil
}

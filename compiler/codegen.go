package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/brain/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Context: one node of the compile tree
// ---------------------------------------------------------------------------

// Context is the compile-time record of one visited expression: the function
// it resolved to, the variables bound for the call, the instructions it
// emitted itself and the contexts compiled beneath it.
//
// Each context owns a child namespace (its scope) for the declarations made
// while compiling its body. The statement itself runs in the namespace above
// that, returned by Namespace.
type Context struct {
	Parent   *Context
	Children []*Context
	Expr     Expr
	Func     *Function // nil for the root and for injection wrappers
	Vars     Bindings
	Code     []bytecode.Instruction
	File     string // source unit the expression came from

	scope *Namespace
	depth int
	comp  *Compiler
}

// Namespace returns the namespace the context's statement runs in.
func (c *Context) Namespace() *Namespace {
	if p := c.scope.Parent(); p != nil {
		return p
	}
	return c.scope
}

// Scope returns the context's own child namespace.
func (c *Context) Scope() *Namespace { return c.scope }

// Depth returns the distance from the root context.
func (c *Context) Depth() int { return c.depth }

// newChild creates a child context whose scope hangs below parentNS.
func (c *Context) newChild(e Expr, parentNS *Namespace, file string) (*Context, error) {
	child := &Context{
		Parent: c,
		Expr:   e,
		File:   file,
		scope:  parentNS.NewChild(),
		depth:  c.depth + 1,
		comp:   c.comp,
	}
	c.Children = append(c.Children, child)
	if limit := c.comp.maxDepth; limit > 0 && child.depth > limit {
		return nil, (&Error{
			Kind:  ErrRecursionLimit,
			Token: e.FuncToken(),
			Msg:   fmt.Sprintf("expansion nested deeper than %d", limit),
		}).at(child)
	}
	return child, nil
}

// compileChildren compiles each expression of a body read from file as a
// new child of c.
func (c *Context) compileChildren(body []Expr, file string) error {
	for _, e := range body {
		child, err := c.newChild(e, c.scope, file)
		if err != nil {
			return err
		}
		if err := child.compile(); err != nil {
			return err
		}
	}
	return nil
}

// fail annotates err with this context and makes sure it is a *Error.
func (c *Context) fail(err error) error {
	if ce, ok := AsError(err); ok {
		ce.at(c)
		return err
	}
	return (&Error{Kind: err, Token: c.Expr.FuncToken()}).at(c)
}

// compile resolves the context's function and dispatches on the shape of the
// expression and the kind of implementation.
func (c *Context) compile() error {
	if inj, ok := c.Expr.(*CodeInjection); ok {
		return c.compileInjection(inj)
	}

	fn, err := c.Namespace().LookupFunction(c.Expr.FuncToken())
	if err != nil {
		return c.fail(err)
	}
	c.Func = fn
	block, isBlock := c.Expr.(*Block)

	switch impl := fn.Impl.(type) {
	case BuiltinNoBlock:
		if isBlock {
			return c.fail(c.shapeError(ErrNoBlockFunction))
		}
		if err := c.bind(); err != nil {
			return err
		}
		code, err := impl.Gen(c, c.Vars)
		if err != nil {
			return c.fail(err)
		}
		c.Code = append(c.Code, code...)

	case UserNoBlock:
		if isBlock {
			return c.fail(c.shapeError(ErrNoBlockFunction))
		}
		if err := c.bind(); err != nil {
			return err
		}
		if err := c.scope.PushAll(c.Vars.Symbols()...); err != nil {
			return c.fail(err)
		}
		return c.compileChildren(impl.Body, fn.File)

	case BuiltinBlock:
		if !isBlock {
			return c.fail(c.shapeError(ErrBlockFunction))
		}
		if err := c.bind(); err != nil {
			return err
		}
		code, err := impl.Gen(c, c.Vars, block.Children, c.Namespace())
		if err != nil {
			return c.fail(err)
		}
		c.Code = append(c.Code, code...)

	case UserBlock:
		if !isBlock {
			return c.fail(c.shapeError(ErrBlockFunction))
		}
		if err := c.bind(); err != nil {
			return err
		}
		c.scope.AddInception(fn.Name, Inception{Body: block.Children, File: c.File})
		if err := c.scope.PushAll(c.Vars.Symbols()...); err != nil {
			return c.fail(err)
		}
		return c.compileChildren(impl.Body, fn.File)
	}
	return nil
}

func (c *Context) bind() error {
	vars, err := c.Func.Bind(c.Expr.ArgTokens(), c.Namespace())
	if err != nil {
		return c.fail(err)
	}
	c.Vars = vars
	return nil
}

func (c *Context) shapeError(kind error) *Error {
	verb := "without"
	if kind == ErrNoBlockFunction {
		verb = "with"
	}
	return newError(kind, c.Expr.FuncToken(), "`%s` called %s a block", c.Func.Name, verb)
}

// compileInjection splices the block registered for the injection's macro
// under a wrapper context placed where the `code` sentinel stood.
func (c *Context) compileInjection(inj *CodeInjection) error {
	inc, ok := c.Namespace().Inception(inj.Macro)
	if !ok {
		return c.fail(newError(ErrCodeInceptionNotFound, inj.FuncToken(),
			"no block was passed to `%s`", inj.Macro))
	}
	return c.compileChildren(inc.Body, inc.File)
}

// include compiles another source unit as if its top-level expressions stood
// at this point. Its children run in the namespace this context runs in, so
// the unit's local definitions land in the importer's scope. A unit is
// compiled at most once per compilation; later imports of it emit only a Nop.
func (c *Context) include(path *StrValue) ([]bytecode.Instruction, error) {
	comp := c.comp
	name, root, err := comp.loader.Load(path.S, c.File)
	if err != nil {
		return nil, &Error{
			Kind:  ErrImport,
			Token: path.Tok,
			Msg:   fmt.Sprintf("cannot import %q", path.S),
			Cause: err,
		}
	}
	if comp.importing(name) {
		return nil, newError(ErrImportCycle, path.Tok, "%s imports itself via %s",
			name, strings.Join(comp.imports, " -> "))
	}
	if comp.included(name) {
		log.Debugf("import %s: already included", name)
		return []bytecode.Instruction{bytecode.Nop("import " + name + " (included)")}, nil
	}
	comp.imports = append(comp.imports, name)
	defer func() { comp.imports = comp.imports[:len(comp.imports)-1] }()
	comp.addFile(name)
	log.Debugf("import %s", name)

	for _, e := range root.Children {
		child, err := c.newChild(e, c.Namespace(), name)
		if err != nil {
			return nil, err
		}
		if err := child.compile(); err != nil {
			return nil, err
		}
	}
	return []bytecode.Instruction{bytecode.Nop("import " + name)}, nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// Bytecode returns the pre-order concatenation of the tree's instructions:
// the context's own code, then each child's in order.
func (c *Context) Bytecode() []bytecode.Instruction {
	var out []bytecode.Instruction
	c.Walk(func(n *Context) {
		out = append(out, n.Code...)
	})
	return out
}

// SourceMap returns the location of every instruction of Bytecode.
func (c *Context) SourceMap() bytecode.SourceMap {
	var sm bytecode.SourceMap
	c.Walk(func(n *Context) {
		loc := n.Location()
		for range n.Code {
			sm = append(sm, loc)
		}
	})
	return sm
}

// Walk visits c and every context below it in pre-order.
func (c *Context) Walk(fn func(*Context)) {
	fn(c)
	for _, child := range c.Children {
		child.Walk(fn)
	}
}

// Location returns the source position of the context's expression.
func (c *Context) Location() bytecode.Location {
	tok := c.Expr.FuncToken()
	if tok == nil || tok.Line <= 0 {
		return bytecode.Location{File: c.File}
	}
	pos := tok.Position()
	return bytecode.Location{File: c.File, Line: pos.Line, Column: pos.Column}
}

// Label is a one-line description of the context for traces and dumps.
func (c *Context) Label() string {
	switch {
	case c.Parent == nil:
		return MainFunction
	case c.Func != nil:
		return c.Func.Signature()
	}
	if inj, ok := c.Expr.(*CodeInjection); ok {
		return "code <" + inj.Macro + ">"
	}
	return headStatement(c.Expr).String()
}

// Trace lists the chain of contexts from c up to (not including) the root,
// innermost first, each followed by its bound variables.
func (c *Context) Trace() []string {
	var lines []string
	for cur := c; cur != nil && cur.Parent != nil; cur = cur.Parent {
		loc := cur.Location()
		lines = append(lines, fmt.Sprintf("%s  %s", loc, cur.Label()))
		for _, v := range cur.Vars {
			lines = append(lines, "    "+v.String())
		}
	}
	return lines
}

// Dump renders the context tree, one block per context indented by depth,
// with the bindings and emitted instructions of each.
func (c *Context) Dump() string {
	var sb strings.Builder
	c.Walk(func(n *Context) {
		indent := strings.Repeat("    ", n.depth)
		sb.WriteString(indent + n.Label() + "\n")
		for _, v := range n.Vars {
			sb.WriteString(indent + "  " + v.String() + "\n")
		}
		if len(n.Code) == 0 {
			return
		}
		words := make([]string, len(n.Code))
		for i, in := range n.Code {
			words[i] = in.String()
		}
		sb.WriteString(indent + "  " + strings.Join(words, " ") + "\n")
	})
	return strings.TrimRight(sb.String(), "\n")
}

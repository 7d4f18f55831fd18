package compiler

import (
	"fmt"

	"github.com/chazu/brain/pkg/bytecode"
)

// CodeSentinel is the statement a macroblock body uses to mark where the
// caller's block is spliced in.
const CodeSentinel = "code"

// Names of the bindings produced by bindSignature ahead of the parameters.
const (
	sigLifetime = "lifetime"
	sigName     = "name"
)

// bindSignature parses a macro header: `lifetime name (type argname)*`.
// The parameters are returned after the lifetime and name bindings, each as a
// variable named after the parameter holding its TypeValue.
func bindSignature(fn *Function, toks []*Token, ns *Namespace) (Bindings, error) {
	if len(toks) < 2 || len(toks)%2 != 0 {
		var tok *Token
		if len(toks) > 0 {
			tok = toks[len(toks)-1]
		}
		return nil, newError(ErrArgumentLen, tok,
			"`%s` takes `lifetime name` followed by `type argname` pairs, got %d tokens",
			fn.Name, len(toks))
	}

	lifetime, err := ParseLifetime(toks[0])
	if err != nil {
		return nil, err
	}
	name, err := ParseIdentifier(toks[1])
	if err != nil {
		return nil, err
	}
	bound := Bindings{
		NewVariable(sigLifetime, lifetime),
		NewVariable(sigName, name),
	}

	seen := make(map[string]bool)
	for i := 2; i < len(toks); i += 2 {
		typ, err := ParseType(toks[i])
		if err != nil {
			return nil, err
		}
		arg, err := ParseIdentifier(toks[i+1])
		if err != nil {
			return nil, err
		}
		if seen[arg.Name] {
			return nil, newError(ErrDuplicateSymbol, arg.Tok,
				"parameter `%s` is declared twice", arg.Name)
		}
		seen[arg.Name] = true
		bound = append(bound, NewVariable(arg.Name, typ))
	}
	return bound, nil
}

// signatureArgs converts the parameter bindings of bindSignature into the
// function's argument list.
func signatureArgs(b Bindings) []Argument {
	params := b[2:]
	args := make([]Argument, len(params))
	for i, v := range params {
		args[i] = Argument{Name: v.Name, Kind: v.Value.(*TypeValue).T}
	}
	return args
}

// genMacro installs a user function whose body is the block the definition
// owns. With block set the function is a macroblock and its body has every
// `code` sentinel replaced by an injection point.
func genMacro(block bool) NativeBlockFunc {
	return func(c *Context, a Bindings, body []Expr, ns *Namespace) ([]bytecode.Instruction, error) {
		lifetime := a.Get(sigLifetime).Value.(*LifetimeValue).L
		name := a.Ident(sigName)

		fn := &Function{
			Name:     name.Name,
			Args:     signatureArgs(a),
			Lifetime: lifetime,
			Source:   name.Tok,
			File:     c.File,
		}
		if block {
			rewritten, err := injectCode(body, name.Name)
			if err != nil {
				return nil, err
			}
			fn.Impl = UserBlock{Body: rewritten}
		} else {
			fn.Impl = UserNoBlock{Body: body}
		}

		if err := ns.Push(fn, lifetime); err != nil {
			if ce, ok := AsError(err); ok {
				ce.Token = name.Tok
			}
			return nil, err
		}
		log.Debugf("installed %s (%s)", fn.Signature(), lifetime)
		return []bytecode.Instruction{bytecode.Nop(fn.Signature())}, nil
	}
}

// injectCode returns a copy of body in which every `code` statement is an
// injection point for macro. The original expressions are left untouched, so
// a body can be shared by every expansion. Nested macroblock definitions are
// copied as they are: their sentinels belong to them.
func injectCode(body []Expr, macro string) ([]Expr, error) {
	out := make([]Expr, len(body))
	for i, e := range body {
		switch n := e.(type) {
		case *Statement:
			if n.FuncToken().Text != CodeSentinel {
				out[i] = n
				continue
			}
			if args := n.ArgTokens(); len(args) > 0 {
				return nil, newError(ErrCodeInceptionArguments, args[0],
					"`%s` in `%s` cannot take arguments", CodeSentinel, macro)
			}
			out[i] = &CodeInjection{Stmt: n, Macro: macro}
		case *Block:
			switch n.FuncToken().Text {
			case CodeSentinel:
				return nil, &Error{
					Kind:  ErrCodeInceptionBlock,
					Token: n.FuncToken(),
					Line:  n.Head,
					Msg:   fmt.Sprintf("`%s` in `%s` cannot own a block", CodeSentinel, macro),
				}
			case "macroblock":
				out[i] = n
			default:
				children, err := injectCode(n.Children, macro)
				if err != nil {
					return nil, err
				}
				out[i] = &Block{Head: n.Head, Children: children}
			}
		default:
			out[i] = e
		}
	}
	return out, nil
}

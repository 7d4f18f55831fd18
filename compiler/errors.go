package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error kinds
// ---------------------------------------------------------------------------

// Families. Every concrete kind below wraps one of these, so callers can match
// either the family or the exact kind with errors.Is.
var (
	ErrStructuralNesting = errors.New("structural nesting error")
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrArgument          = errors.New("argument error")
	ErrTypeParse         = errors.New("type parse error")
	ErrCodeInception     = errors.New("code inception error")
)

// Structural errors reported by the lexer and block builder.
var (
	ErrLevel      = fmt.Errorf("%w: indentation must be a multiple of 4 spaces", ErrStructuralNesting)
	ErrBlockLevel = fmt.Errorf("%w: nesting level increased by more than one", ErrStructuralNesting)
)

// Symbol resolution.
var (
	ErrFunctionNotFound = fmt.Errorf("%w: function", ErrSymbolNotFound)
	ErrVariableNotFound = fmt.Errorf("%w: variable", ErrSymbolNotFound)
	ErrDuplicateSymbol  = errors.New("duplicate symbol")
)

// Argument binding.
var (
	ErrArgumentLen   = fmt.Errorf("%w: wrong number of arguments", ErrArgument)
	ErrArgumentType  = fmt.Errorf("%w: type mismatch", ErrArgument)
	ErrArgumentParse = fmt.Errorf("%w: cannot bind argument", ErrArgument)
)

// Type parsing.
var (
	ErrIntParse         = fmt.Errorf("%w: int", ErrTypeParse)
	ErrIdentifierName   = fmt.Errorf("%w: identifier", ErrTypeParse)
	ErrAddress          = fmt.Errorf("%w: address", ErrTypeParse)
	ErrStrParse         = fmt.Errorf("%w: str", ErrTypeParse)
	ErrTypeName         = fmt.Errorf("%w: type name", ErrTypeParse)
	ErrFunctionLifeTime = fmt.Errorf("%w: lifetime", ErrTypeParse)
)

// Code inception and block shape.
var (
	ErrCodeInceptionArguments = fmt.Errorf("%w: `code` takes no arguments", ErrCodeInception)
	ErrCodeInceptionBlock     = fmt.Errorf("%w: `code` cannot own a block", ErrCodeInception)
	ErrCodeInceptionNotFound  = fmt.Errorf("%w: no caller block registered", ErrCodeInception)
	ErrBlockFunction          = errors.New("block function called without a block")
	ErrNoBlockFunction        = errors.New("block passed to a function that takes none")
)

// Compilation limits and imports.
var (
	ErrRecursionLimit = errors.New("maximum expansion depth exceeded")
	ErrImportCycle    = errors.New("import cycle")
	ErrImport         = errors.New("import failed")
)

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

// Error is the single error type produced by the compiler. Kind is one of the
// sentinel errors above; Token and Context locate the failure.
type Error struct {
	Kind    error
	Msg     string
	Token   *Token
	Line    *Statement // source line used for underlining when Context is nil
	Context *Context
	Cause   error
}

func newError(kind error, tok *Token, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Token: tok, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Token != nil && e.Token.Line > 0 {
		pos := e.Token.Position()
		fmt.Fprintf(&sb, "%d:%d: ", pos.Line, pos.Column)
	}
	sb.WriteString(e.Kind.Error())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Cause != nil {
		sb.WriteString(" (")
		sb.WriteString(strings.ReplaceAll(e.Cause.Error(), "\n", "; "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// at records the context the error was raised in. The innermost context wins.
func (e *Error) at(c *Context) *Error {
	if e.Context == nil {
		e.Context = c
	}
	return e
}

// Report renders the error with the compiler scope trace (innermost first),
// the offending source line and a caret underline below the token.
func (e *Error) Report() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteByte('\n')

	if e.Context != nil {
		sb.WriteString(" === COMPILER STACK TRACE ===\n")
		for _, line := range e.Context.Trace() {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	line := e.Line
	if line == nil && e.Context != nil {
		line = headStatement(e.Context.Expr)
	}
	if line == nil || line.Line <= 0 {
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteString(" === LINE ===\n")
	prefix := fmt.Sprintf("%d: ", line.Line)
	sb.WriteString(prefix)
	sb.WriteString(line.Source)
	if e.Token == nil || e.Token.Line != line.Line {
		return sb.String()
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", len(prefix)+e.Token.Column))
	sb.WriteString(strings.Repeat("^", max(e.Token.Len(), 1)))
	return sb.String()
}

// AsError unwraps err into a compiler *Error.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

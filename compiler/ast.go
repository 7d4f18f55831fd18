package compiler

import "strings"

// ---------------------------------------------------------------------------
// Expression tree
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Expr is implemented by every node of the expression tree.
type Expr interface {
	// Level is the nesting depth (number of 4-space indents).
	Level() int
	// LineNumber is the 1-based source line of the head statement.
	LineNumber() int
	// FuncToken is the token naming the function to call.
	FuncToken() *Token
	// ArgTokens are the call-site argument tokens.
	ArgTokens() []*Token

	expr() // marker method
}

// Statement is a single call: a function name followed by arguments.
type Statement struct {
	Line   int      // 1-based line number
	Depth  int      // indentation level
	Tokens []*Token // function token followed by argument tokens
	Source string   // raw line text (without trailing whitespace)
}

func (s *Statement) Level() int          { return s.Depth }
func (s *Statement) LineNumber() int     { return s.Line }
func (s *Statement) FuncToken() *Token   { return s.Tokens[0] }
func (s *Statement) ArgTokens() []*Token { return s.Tokens[1:] }
func (s *Statement) expr()               {}

func (s *Statement) String() string {
	words := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		words[i] = t.Text
	}
	return strings.Join(words, " ")
}

// Block is a statement that owns a nested list of child expressions.
type Block struct {
	Head     *Statement
	Children []Expr
}

func (b *Block) Level() int          { return b.Head.Depth }
func (b *Block) LineNumber() int     { return b.Head.Line }
func (b *Block) FuncToken() *Token   { return b.Head.FuncToken() }
func (b *Block) ArgTokens() []*Token { return b.Head.ArgTokens() }
func (b *Block) expr()               {}

// CodeInjection marks the point in a macroblock body where the block supplied
// at the macro's call site is spliced in. It is produced only when a
// macroblock is installed; Macro names the macroblock that owns it.
type CodeInjection struct {
	Stmt  *Statement
	Macro string
}

func (c *CodeInjection) Level() int          { return c.Stmt.Depth }
func (c *CodeInjection) LineNumber() int     { return c.Stmt.Line }
func (c *CodeInjection) FuncToken() *Token   { return c.Stmt.FuncToken() }
func (c *CodeInjection) ArgTokens() []*Token { return c.Stmt.ArgTokens() }
func (c *CodeInjection) expr()               {}

// headStatement returns the statement that carries the expression's tokens.
func headStatement(e Expr) *Statement {
	switch n := e.(type) {
	case *Statement:
		return n
	case *Block:
		return n.Head
	case *CodeInjection:
		return n.Stmt
	}
	return nil
}

// DebugString renders the expression tree one line per node, indented by
// level, for diagnostics.
func DebugString(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return strings.TrimRight(sb.String(), "\n")
}

func writeExpr(sb *strings.Builder, e Expr) {
	head := headStatement(e)
	if head == nil {
		return
	}
	if e.Level() > 0 {
		sb.WriteString(strings.Repeat("    ", e.Level()))
	}
	if inj, ok := e.(*CodeInjection); ok {
		sb.WriteString("<code:" + inj.Macro + ">\n")
		return
	}
	sb.WriteString(head.String())
	sb.WriteByte('\n')
	if b, ok := e.(*Block); ok {
		for _, child := range b.Children {
			writeExpr(sb, child)
		}
	}
}

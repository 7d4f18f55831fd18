package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// Token is one whitespace-separated word of a source line.
//
// Tokens are handled by pointer and compared by identity, so an error can
// point at the exact occurrence that caused it even when the same text
// appears twice on a line.
type Token struct {
	Line   int    // 1-based source line, 0 for synthetic tokens
	Column int    // 0-based byte column within the line
	Text   string // the raw word
}

// NewToken returns a token for the given position and text.
func NewToken(line, column int, text string) *Token {
	return &Token{Line: line, Column: column, Text: text}
}

func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d:%d<%s>", t.Line, t.Column, t.Text)
}

// Len returns the width of the token in source columns.
func (t *Token) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Text)
}

// Position returns the 1-based line and column of the token.
func (t *Token) Position() Position {
	if t == nil {
		return Position{}
	}
	return Position{Line: t.Line, Column: t.Column + 1}
}

package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: source lines to statements
// ---------------------------------------------------------------------------

// IndentWidth is the number of spaces per nesting level.
const IndentWidth = 4

// Lexer splits source text into statements, one per non-empty line.
// Blank lines and lines holding only a comment produce no statement.
type Lexer struct {
	scanner *bufio.Scanner
	line    int // current line (1-based)
}

// NewLexer creates a new lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{scanner: bufio.NewScanner(r)}
}

// Next returns the next statement, or io.EOF once the input is exhausted.
func (l *Lexer) Next() (*Statement, error) {
	for l.scanner.Scan() {
		l.line++
		stmt, err := LexLine(l.line, l.scanner.Text())
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			return stmt, nil
		}
	}
	if err := l.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// All drains the lexer.
func (l *Lexer) All() ([]*Statement, error) {
	var stmts []*Statement
	for {
		stmt, err := l.Next()
		if err == io.EOF {
			return stmts, nil
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

// LexLine tokenizes a single source line. It returns nil for lines with no
// tokens. A word starting with '#' begins a comment that runs to the end of
// the line.
func LexLine(number int, text string) (*Statement, error) {
	text = strings.TrimRight(text, " \t\r")

	indent := 0
	for indent < len(text) && text[indent] == ' ' {
		indent++
	}

	var tokens []*Token
	pos := indent
	for pos < len(text) {
		if text[pos] == ' ' || text[pos] == '\t' {
			pos++
			continue
		}
		start := pos
		for pos < len(text) && text[pos] != ' ' && text[pos] != '\t' {
			pos++
		}
		word := text[start:pos]
		if word[0] == '#' {
			break
		}
		tokens = append(tokens, NewToken(number, start, word))
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	stmt := &Statement{
		Line:   number,
		Depth:  indent / IndentWidth,
		Tokens: tokens,
		Source: text,
	}
	if indent%IndentWidth != 0 || (indent < len(text) && text[indent] == '\t') {
		return nil, &Error{
			Kind:  ErrLevel,
			Msg:   fmt.Sprintf("found %d leading spaces", indent),
			Token: tokens[0],
			Line:  stmt,
		}
	}
	return stmt, nil
}

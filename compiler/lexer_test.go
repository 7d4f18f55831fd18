package compiler

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLexLineTokens(t *testing.T) {
	stmt, err := LexLine(3, "    _add  x   5")
	if err != nil {
		t.Fatalf("LexLine: %v", err)
	}
	if stmt.Depth != 1 {
		t.Errorf("Depth = %d, want 1", stmt.Depth)
	}
	want := []struct {
		col  int
		text string
	}{
		{4, "_add"},
		{10, "x"},
		{14, "5"},
	}
	if len(stmt.Tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(stmt.Tokens), len(want))
	}
	for i, w := range want {
		tok := stmt.Tokens[i]
		if tok.Text != w.text || tok.Column != w.col || tok.Line != 3 {
			t.Errorf("token[%d] = %v, want 3:%d<%s>", i, tok, w.col, w.text)
		}
	}
	if stmt.FuncToken().Text != "_add" || len(stmt.ArgTokens()) != 2 {
		t.Errorf("FuncToken/ArgTokens split wrong: %v", stmt)
	}
}

func TestLexLineComments(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"__plus 1 # add one", "__plus 1"},
		{"# whole line", ""},
		{"    # indented comment", ""},
		{"__print #", "__print"},
		{"", ""},
		{"        ", ""},
	}
	for _, tt := range tests {
		stmt, err := LexLine(1, tt.input)
		if err != nil {
			t.Errorf("LexLine(%q): %v", tt.input, err)
			continue
		}
		got := ""
		if stmt != nil {
			got = stmt.String()
		}
		if got != tt.want {
			t.Errorf("LexLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLexLineIndentation(t *testing.T) {
	tests := []struct {
		input   string
		depth   int
		wantErr bool
	}{
		{"a", 0, false},
		{"    a", 1, false},
		{"        a", 2, false},
		{"  a", 0, true},
		{"     a", 0, true},
		{"\ta", 0, true},
		{"    \ta", 0, true},
	}
	for _, tt := range tests {
		stmt, err := LexLine(1, tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrLevel) {
				t.Errorf("LexLine(%q) error = %v, want ErrLevel", tt.input, err)
			}
			if !errors.Is(err, ErrStructuralNesting) {
				t.Errorf("LexLine(%q) error not in the structural family", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("LexLine(%q): %v", tt.input, err)
			continue
		}
		if stmt.Depth != tt.depth {
			t.Errorf("LexLine(%q).Depth = %d, want %d", tt.input, stmt.Depth, tt.depth)
		}
	}
}

func TestLexerSkipsBlankLines(t *testing.T) {
	l := NewLexer(strings.NewReader("a\n\n# note\n    b\n"))
	var lines []int
	for {
		stmt, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		lines = append(lines, stmt.Line)
	}
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 4 {
		t.Errorf("statement lines = %v, want [1 4]", lines)
	}
}

func TestLexerErrorCarriesLine(t *testing.T) {
	_, err := NewLexer(strings.NewReader("a\n  b\n")).All()
	ce, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ce.Token.Line != 2 || ce.Line == nil || ce.Line.Source != "  b" {
		t.Errorf("error located at %v / %+v", ce.Token, ce.Line)
	}
	if !strings.Contains(ce.Report(), "2:   b") {
		t.Errorf("report missing source line:\n%s", ce.Report())
	}
}

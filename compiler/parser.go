package compiler

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// Block builder: flat statements to an expression tree
// ---------------------------------------------------------------------------

// MainFunction is the name carried by the synthetic root block.
const MainFunction = "__main"

// NewRootBlock returns an empty root block at level -1 so that top-level
// statements (level 0) are its direct children.
func NewRootBlock() *Block {
	return &Block{Head: &Statement{
		Depth:  -1,
		Tokens: []*Token{NewToken(0, 0, MainFunction)},
	}}
}

// BuildTree nests statements into blocks by indentation level. A statement
// directly followed by one exactly one level deeper becomes the head of a
// block; a jump of more than one level is an ErrBlockLevel error.
func BuildTree(stmts []*Statement) (*Block, error) {
	root := NewRootBlock()
	stack := []*Block{root}
	var prev *Statement

	for i, stmt := range stmts {
		top := stack[len(stack)-1]
		if stmt.Depth > top.Level()+1 {
			prevLevel := -1
			if prev != nil {
				prevLevel = prev.Depth
			}
			return nil, &Error{
				Kind:  ErrBlockLevel,
				Msg:   fmt.Sprintf("level %d follows level %d", stmt.Depth, prevLevel),
				Token: stmt.FuncToken(),
				Line:  stmt,
			}
		}
		for stmt.Depth <= top.Level() {
			stack = stack[:len(stack)-1]
			top = stack[len(stack)-1]
		}

		next := -1
		if i+1 < len(stmts) {
			next = stmts[i+1].Depth
		}
		if next == stmt.Depth+1 {
			block := &Block{Head: stmt}
			top.Children = append(top.Children, block)
			stack = append(stack, block)
		} else {
			top.Children = append(top.Children, stmt)
		}
		prev = stmt
	}
	return root, nil
}

// Parse lexes and nests a whole source unit.
func Parse(r io.Reader) (*Block, error) {
	stmts, err := NewLexer(r).All()
	if err != nil {
		return nil, err
	}
	return BuildTree(stmts)
}

// ParseString is Parse over an in-memory source.
func ParseString(source string) (*Block, error) {
	return Parse(strings.NewReader(source))
}

// ParseFile reads and parses the named file.
func ParseFile(path string) (*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

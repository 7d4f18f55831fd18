package compiler

import (
	"errors"
	"testing"
)

// checkLevels asserts that no child is more than one level below its parent.
func checkLevels(t *testing.T, b *Block) {
	t.Helper()
	for _, child := range b.Children {
		if child.Level() != b.Level()+1 {
			t.Fatalf("child %q at level %d under level %d", DebugString(child), child.Level(), b.Level())
		}
		if cb, ok := child.(*Block); ok {
			checkLevels(t, cb)
		}
	}
}

func TestBuildTreeNesting(t *testing.T) {
	src := `a
    b
    c
        d
    e
f`
	root, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if root.Level() != -1 || root.FuncToken().Text != MainFunction {
		t.Errorf("root = level %d %q", root.Level(), root.FuncToken().Text)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	a, ok := root.Children[0].(*Block)
	if !ok {
		t.Fatalf("a should be a block, got %T", root.Children[0])
	}
	if len(a.Children) != 3 {
		t.Fatalf("a has %d children, want 3", len(a.Children))
	}
	if _, ok := a.Children[0].(*Statement); !ok {
		t.Errorf("b should be a statement")
	}
	c, ok := a.Children[1].(*Block)
	if !ok || len(c.Children) != 1 || c.Children[0].FuncToken().Text != "d" {
		t.Errorf("c should be a block holding d, got %s", DebugString(a.Children[1]))
	}
	if _, ok := root.Children[1].(*Statement); !ok {
		t.Errorf("f should be a statement")
	}
	checkLevels(t, root)
}

func TestBuildTreeDropsSeveralLevels(t *testing.T) {
	src := `a
    b
        c
            d
e`
	root, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if len(root.Children) != 2 || root.Children[1].FuncToken().Text != "e" {
		t.Errorf("tree:\n%s", DebugString(root))
	}
	checkLevels(t, root)
}

func TestBuildTreeRejectsLevelJump(t *testing.T) {
	tests := []string{
		"a\n        b",
		"    a",
		"a\n    b\n            c",
	}
	for _, src := range tests {
		_, err := ParseString(src)
		if !errors.Is(err, ErrBlockLevel) {
			t.Errorf("ParseString(%q) error = %v, want ErrBlockLevel", src, err)
		}
		if !errors.Is(err, ErrStructuralNesting) {
			t.Errorf("ParseString(%q) error not in the structural family", src)
		}
	}
}

func TestDebugString(t *testing.T) {
	root, err := ParseString("a 1\n    b\nc")
	if err != nil {
		t.Fatal(err)
	}
	want := "__main\na 1\n    b\nc"
	if got := DebugString(root); got != want {
		t.Errorf("DebugString =\n%s\nwant\n%s", got, want)
	}
}

package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/vm"
)

func TestParseDirectives(t *testing.T) {
	src := `#~ desc echoes its input
#~ desc twice
#~ input "ab\n"
#~ output "ab\n"
#~ memory 0 10
#~ memory -1 3
#~ eof zero
__read
`
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Desc != "echoes its input\ntwice" {
		t.Errorf("Desc = %q", f.Desc)
	}
	if f.Input != "ab\n" {
		t.Errorf("Input = %q", f.Input)
	}
	if f.Output == nil || *f.Output != "ab\n" {
		t.Errorf("Output = %v", f.Output)
	}
	if len(f.Memory) != 2 || f.Memory[0] != 10 || f.Memory[-1] != 3 {
		t.Errorf("Memory = %v", f.Memory)
	}
	if f.EOF != vm.EOFZero {
		t.Errorf("EOF = %v, want zero", f.EOF)
	}
	if f.Error != "" {
		t.Errorf("Error = %q, want none", f.Error)
	}
}

func TestParseRejectsBadDirectives(t *testing.T) {
	tests := []string{
		"#~ frobnicate",
		"#~ input abc",
		"#~ output",
		"#~ memory 1",
		"#~ memory one 2",
		"#~ eof sometimes",
		"#~ error Whoops",
	}
	for _, src := range tests {
		if _, err := Parse([]byte(src)); !errors.Is(err, ErrDirective) {
			t.Errorf("Parse(%q) error = %v, want ErrDirective", src, err)
		}
	}
}

func TestErrorKindsSorted(t *testing.T) {
	kinds := ErrorKinds()
	if len(kinds) == 0 {
		t.Fatal("no error kinds")
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Errorf("kinds not sorted at %d: %s >= %s", i, kinds[i-1], kinds[i])
		}
	}
}

func TestRunPasses(t *testing.T) {
	src := `#~ input "A"
#~ output "B"
#~ memory 1 66
_read :1
_add :1 1
_print :1
`
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Run(); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRunReportsMismatch(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"#~ output \"x\"\n__plus 65\n__print", `output "A", want "x"`},
		{"#~ memory 3 1\n__plus 1", "cell 3 = 0, want 1"},
		{"#~ error FunctionNotFound\n__plus 1", "program ran"},
		{"#~ error ArgumentLen\nnope", "expected ArgumentLen error, got"},
		{"nope", "symbol not found"},
	}
	for _, tt := range tests {
		f, err := Parse([]byte(tt.src))
		if err != nil {
			t.Fatal(err)
		}
		err = f.Run()
		if !errors.Is(err, ErrFailed) {
			t.Errorf("%q: error = %v, want ErrFailed", tt.src, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %q does not mention %q", tt.src, err, tt.want)
		}
	}
}

func TestRunExpectedErrors(t *testing.T) {
	tests := []string{
		"#~ error FunctionNotFound\nnope",
		"#~ error SymbolNotFound\nnope",
		"#~ error Unbalanced\n__loop_enter",
		"#~ error StepLimit\n__plus 1\n__loop_enter\n__loop_exit",
		"#~ error Level\n__plus 1\n  __plus 2",
	}
	for _, src := range tests {
		f, err := Parse([]byte(src))
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Run(); err != nil {
			t.Errorf("%q: %v", src, err)
		}
	}
}

func TestLoadUsesFileForImports(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	if err := os.Mkdir(lib, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "two.br"), []byte("macro global two\n    __plus 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "main.br")
	if err := os.WriteFile(path, []byte("#~ memory 0 2\nimport \"two.br\"\ntwo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != path {
		t.Errorf("Name() = %q", f.Name())
	}
	if err := f.Run(); !errors.Is(err, compiler.ErrImport) {
		t.Errorf("without search path: error = %v, want ErrImport", err)
	}
	if err := f.Run(compiler.WithSearchPaths(lib)); err != nil {
		t.Errorf("with search path: %v", err)
	}
}

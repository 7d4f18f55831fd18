// Package fixture runs brain programs that carry their own expectations.
//
// Expectations are written as comment lines starting with `#~`:
//
//	#~ desc adds two numbers
//	#~ input "abc"
//	#~ output "abc\n"
//	#~ memory 2 42
//	#~ eof zero
//	#~ error FunctionNotFound
//
// Quoted values use Go string syntax. `memory` may appear any number of
// times; `error` names the compile or run error the program must fail with.
package fixture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/vm"
)

// Prefix starts a directive line.
const Prefix = "#~"

// DefaultStepLimit bounds the execution of a fixture.
const DefaultStepLimit = 1_000_000

var (
	// ErrDirective reports a malformed directive line.
	ErrDirective = errors.New("fixture: bad directive")
	// ErrFailed reports a program that did not meet its expectations.
	ErrFailed = errors.New("fixture: failed")
)

// errorKinds maps the names accepted by `#~ error` to sentinel errors.
var errorKinds = map[string]error{
	"StructuralNesting":      compiler.ErrStructuralNesting,
	"Level":                  compiler.ErrLevel,
	"BlockLevel":             compiler.ErrBlockLevel,
	"SymbolNotFound":         compiler.ErrSymbolNotFound,
	"FunctionNotFound":       compiler.ErrFunctionNotFound,
	"VariableNotFound":       compiler.ErrVariableNotFound,
	"DuplicateSymbol":        compiler.ErrDuplicateSymbol,
	"Argument":               compiler.ErrArgument,
	"ArgumentLen":            compiler.ErrArgumentLen,
	"ArgumentType":           compiler.ErrArgumentType,
	"ArgumentParse":          compiler.ErrArgumentParse,
	"TypeParse":              compiler.ErrTypeParse,
	"IntParse":               compiler.ErrIntParse,
	"IdentifierName":         compiler.ErrIdentifierName,
	"Address":                compiler.ErrAddress,
	"StrParse":               compiler.ErrStrParse,
	"TypeName":               compiler.ErrTypeName,
	"FunctionLifeTime":       compiler.ErrFunctionLifeTime,
	"CodeInception":          compiler.ErrCodeInception,
	"CodeInceptionArguments": compiler.ErrCodeInceptionArguments,
	"CodeInceptionBlock":     compiler.ErrCodeInceptionBlock,
	"CodeInceptionNotFound":  compiler.ErrCodeInceptionNotFound,
	"BlockFunction":          compiler.ErrBlockFunction,
	"NoBlockFunction":        compiler.ErrNoBlockFunction,
	"RecursionLimit":         compiler.ErrRecursionLimit,
	"ImportCycle":            compiler.ErrImportCycle,
	"Import":                 compiler.ErrImport,
	"Unbalanced":             vm.ErrUnbalanced,
	"StepLimit":              vm.ErrStepLimit,
}

// ErrorKinds returns the names accepted by `#~ error`, sorted.
func ErrorKinds() []string {
	names := make([]string, 0, len(errorKinds))
	for name := range errorKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fixture is a program and what running it must produce.
type Fixture struct {
	Path   string // file the fixture was loaded from, empty for in-memory sources
	Source []byte

	Desc   string
	Input  string
	Output *string     // nil when output is not checked
	Memory map[int]int // expected cell values
	EOF    vm.EOFPolicy
	Error  string // expected error kind, empty when the program must succeed
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse reads the directives of a source text.
func Parse(src []byte) (*Fixture, error) {
	f := &Fixture{Source: src, Memory: make(map[int]int)}
	var desc []string

	sc := bufio.NewScanner(bytes.NewReader(src))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, Prefix) {
			continue
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(line[len(Prefix):]), " ")
		rest = strings.TrimSpace(rest)
		bad := func(format string, args ...any) error {
			return fmt.Errorf("%w: line %d: %s", ErrDirective, n, fmt.Sprintf(format, args...))
		}

		switch cmd {
		case "desc":
			desc = append(desc, rest)
		case "input":
			s, err := strconv.Unquote(rest)
			if err != nil {
				return nil, bad("input wants a quoted string, got %s", rest)
			}
			f.Input = s
		case "output":
			s, err := strconv.Unquote(rest)
			if err != nil {
				return nil, bad("output wants a quoted string, got %s", rest)
			}
			f.Output = &s
		case "memory":
			fields := strings.Fields(rest)
			if len(fields) != 2 {
				return nil, bad("memory wants an index and a value")
			}
			idx, err1 := strconv.Atoi(fields[0])
			val, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil {
				return nil, bad("memory wants integers, got %s", rest)
			}
			f.Memory[idx] = val
		case "eof":
			p, err := vm.ParseEOFPolicy(rest)
			if err != nil {
				return nil, bad("%v", err)
			}
			f.EOF = p
		case "error":
			if _, ok := errorKinds[rest]; !ok {
				return nil, bad("unknown error kind %q", rest)
			}
			f.Error = rest
		default:
			return nil, bad("unknown directive %q", cmd)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	f.Desc = strings.Join(desc, "\n")
	return f, nil
}

// Name identifies the fixture in reports.
func (f *Fixture) Name() string {
	if f.Path != "" {
		return f.Path
	}
	return "<fixture>"
}

// Run compiles and executes the fixture and checks every expectation. It
// returns nil when the fixture passes and an ErrFailed error describing the
// first mismatch otherwise.
func (f *Fixture) Run(opts ...compiler.Option) error {
	var out bytes.Buffer
	mem, err := f.execute(&out, opts)

	if f.Error != "" {
		want := errorKinds[f.Error]
		if err == nil {
			return fmt.Errorf("%w: %s: expected %s error, program ran", ErrFailed, f.Name(), f.Error)
		}
		if !errors.Is(err, want) {
			return fmt.Errorf("%w: %s: expected %s error, got %v", ErrFailed, f.Name(), f.Error, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFailed, f.Name(), err)
	}

	if f.Output != nil && out.String() != *f.Output {
		return fmt.Errorf("%w: %s: output %q, want %q", ErrFailed, f.Name(), out.String(), *f.Output)
	}
	idx := make([]int, 0, len(f.Memory))
	for i := range f.Memory {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		if got := int(mem.Get(i)); got != f.Memory[i] {
			return fmt.Errorf("%w: %s: cell %d = %d, want %d", ErrFailed, f.Name(), i, got, f.Memory[i])
		}
	}
	return nil
}

func (f *Fixture) execute(out io.Writer, opts []compiler.Option) (*vm.Memory, error) {
	cm := compiler.New(opts...)
	var (
		res *compiler.Result
		err error
	)
	if f.Path != "" {
		res, err = cm.CompileFile(f.Path)
	} else {
		res, err = cm.CompileSource("<fixture>", bytes.NewReader(f.Source))
	}
	if err != nil {
		return nil, err
	}
	return vm.Exec(res.Code, strings.NewReader(f.Input), out,
		vm.WithEOFPolicy(f.EOF),
		vm.WithStepLimit(DefaultStepLimit),
	)
}

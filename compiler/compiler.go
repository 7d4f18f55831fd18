package compiler

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/brain/pkg/bytecode"
)

var log = commonlog.GetLogger("brain.compiler")

// DefaultMaxDepth bounds how deeply macro expansions may nest.
const DefaultMaxDepth = 512

// ---------------------------------------------------------------------------
// Compiler
// ---------------------------------------------------------------------------

// Option configures a Compiler.
type Option func(*Compiler)

// WithLoader sets the loader used by `import`.
func WithLoader(l Loader) Option {
	return func(cm *Compiler) { cm.loader = l }
}

// WithSearchPaths makes `import` look in dirs after the importing file's own
// directory.
func WithSearchPaths(dirs ...string) Option {
	return func(cm *Compiler) { cm.loader = &FileLoader{SearchPaths: dirs} }
}

// WithMaxDepth sets the expansion depth limit. Zero disables it.
func WithMaxDepth(n int) Option {
	return func(cm *Compiler) { cm.maxDepth = n }
}

// Compiler turns expression trees into bytecode. A Compiler may be reused for
// several compilations but is not safe for concurrent use.
type Compiler struct {
	loader   Loader
	maxDepth int

	// per compilation
	imports []string // units currently being imported, outermost first
	files   []string // every unit read, in first-read order
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	cm := &Compiler{
		loader:   &FileLoader{},
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Result is a successful compilation.
type Result struct {
	Root      *Context
	Code      []bytecode.Instruction
	SourceMap bytecode.SourceMap
	Files     []string
}

// Text returns the eight-symbol form of the program.
func (r *Result) Text() string { return bytecode.Text(r.Code) }

// Image wraps the program for storage.
func (r *Result) Image() *bytecode.Image {
	source := ""
	if len(r.Files) > 0 {
		source = r.Files[0]
	}
	return bytecode.NewImage(source, r.Code, r.SourceMap)
}

// CompileTree compiles an already built tree. name identifies the source
// unit for imports and the source map.
func (cm *Compiler) CompileTree(name string, root *Block) (*Result, error) {
	cm.imports = []string{name}
	cm.files = []string{name}

	ns := NewNamespace()
	for _, fn := range Builtins() {
		if err := ns.Push(fn, Global); err != nil {
			return nil, err
		}
	}
	ctx := &Context{Expr: root, File: name, scope: ns, comp: cm}

	for _, e := range root.Children {
		child, err := ctx.newChild(e, ns, name)
		if err != nil {
			return nil, err
		}
		if err := child.compile(); err != nil {
			return nil, err
		}
	}

	code := ctx.Bytecode()
	log.Debugf("compiled %s: %d instructions from %d units", name, len(code), len(cm.files))
	return &Result{
		Root:      ctx,
		Code:      code,
		SourceMap: ctx.SourceMap(),
		Files:     slices.Clone(cm.files),
	}, nil
}

// CompileSource parses and compiles a source unit read from r.
func (cm *Compiler) CompileSource(name string, r io.Reader) (*Result, error) {
	root, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return cm.CompileTree(name, root)
}

// CompileString compiles source held in memory.
func (cm *Compiler) CompileString(name, source string) (*Result, error) {
	return cm.CompileSource(name, strings.NewReader(source))
}

// CompileFile compiles the named file. The unit is named by its absolute
// path so that imports of it are recognized as cycles.
func (cm *Compiler) CompileFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name, err := filepath.Abs(path)
	if err != nil {
		name = path
	}
	return cm.CompileSource(name, f)
}

func (cm *Compiler) importing(name string) bool {
	return slices.Contains(cm.imports, name)
}

func (cm *Compiler) included(name string) bool {
	return slices.Contains(cm.files, name)
}

func (cm *Compiler) addFile(name string) {
	if !slices.Contains(cm.files, name) {
		cm.files = append(cm.files, name)
	}
}

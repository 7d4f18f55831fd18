// brc - compiler and runner for brain macro programs
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/manifest"
	"github.com/chazu/brain/pkg/bytecode"
	"github.com/chazu/brain/pkg/store"
	"github.com/chazu/brain/vm"
)

var log = commonlog.GetLogger("brain.brc")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options collects the command-line flags.
type options struct {
	verbose  bool
	emit     bool
	output   string
	image    string
	disasm   bool
	tree     bool
	exec     bool
	input    string
	mem      bool
	eof      string
	maxSteps int
	maxDepth int
	cache    string
	noCache  bool
	libs     string
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "cache":
			return handleCacheCommand(args[1:], stdout, stderr)
		case "test":
			return handleTestCommand(args[1:], stdout, stderr)
		case "lsp":
			return handleLSPCommand(args[1:], stderr)
		}
	}

	var o options
	fs := flag.NewFlagSet("brc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&o.verbose, "v", false, "Verbose output")
	fs.BoolVar(&o.emit, "emit", false, "Write the eight-symbol program text")
	fs.StringVar(&o.output, "o", "", "Write -emit output to a file instead of stdout")
	fs.StringVar(&o.image, "image", "", "Write a compiled image (.brimg) to this path")
	fs.BoolVar(&o.disasm, "disasm", false, "Print a disassembly listing")
	fs.BoolVar(&o.tree, "tree", false, "Print the compile tree")
	fs.BoolVar(&o.exec, "run", false, "Run the program")
	fs.StringVar(&o.input, "input", "", "Read program input from this file (default stdin)")
	fs.BoolVar(&o.mem, "mem", false, "Print the non-zero cells after -run")
	fs.StringVar(&o.eof, "eof", "", "Read behavior at end of input: halt, zero or keep")
	fs.IntVar(&o.maxSteps, "max-steps", 0, "Stop -run after this many instructions (0 = no limit)")
	fs.IntVar(&o.maxDepth, "max-depth", 0, "Maximum macro expansion depth")
	fs.StringVar(&o.cache, "cache", "", "Build cache database")
	fs.BoolVar(&o.noCache, "no-cache", false, "Ignore the build cache")
	fs.StringVar(&o.libs, "I", "", "Colon-separated import search path")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: brc [options] [file.br | file.brimg]\n")
		fmt.Fprintf(stderr, "       brc test [-v] [file.br | dir]...\n")
		fmt.Fprintf(stderr, "       brc cache ls|rm <name>|clear\n")
		fmt.Fprintf(stderr, "       brc lsp\n\n")
		fmt.Fprintf(stderr, "Compiles a brain program. Without a file, the entry of the\n")
		fmt.Fprintf(stderr, "nearest brain.toml is built.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  brc hello.br                  # Print program text\n")
		fmt.Fprintf(stderr, "  brc -run hello.br             # Compile and run\n")
		fmt.Fprintf(stderr, "  brc -image hello.brimg hello.br\n")
		fmt.Fprintf(stderr, "  brc -run -mem hello.brimg     # Run a saved image\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	verbosity := 0
	if o.verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	b, err := newBuild(o, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := b.load(); err != nil {
		if ce, ok := compiler.AsError(err); ok {
			fmt.Fprintln(stderr, ce.Report())
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	if err := b.write(stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if o.exec {
		if err := b.execute(stdin, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// build is one invocation: where the program comes from, how it is
// compiled and what is produced.
type build struct {
	opts     options
	source   string
	manifest *manifest.Manifest

	result *compiler.Result // nil when the program came from an image
	image  *bytecode.Image
}

func newBuild(o options, source string) (*build, error) {
	b := &build{opts: o, source: source}

	start := "."
	if source != "" {
		start = filepath.Dir(source)
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	b.manifest = m

	if b.source == "" {
		if m == nil {
			return nil, fmt.Errorf("no source file given and no %s found", manifest.FileName)
		}
		b.source = m.EntryPath()
	}
	if m != nil {
		if b.opts.image == "" {
			b.opts.image = m.ImagePath()
		}
		if b.opts.output == "" && b.opts.emit {
			b.opts.output = m.OutputPath()
		}
		if b.opts.cache == "" {
			b.opts.cache = m.CachePath()
		}
	}
	if b.opts.noCache {
		b.opts.cache = ""
	}
	return b, nil
}

func (b *build) compilerOptions() []compiler.Option {
	var opts []compiler.Option
	if b.manifest != nil {
		opts = append(opts, b.manifest.CompilerOptions()...)
	}
	if b.opts.libs != "" {
		var dirs []string
		if b.manifest != nil {
			dirs = b.manifest.SourceDirPaths()
		}
		dirs = append(dirs, filepath.SplitList(b.opts.libs)...)
		opts = append(opts, compiler.WithSearchPaths(dirs...))
	}
	if b.opts.maxDepth > 0 {
		opts = append(opts, compiler.WithMaxDepth(b.opts.maxDepth))
	}
	return opts
}

func (b *build) vmOptions() ([]vm.Option, error) {
	var opts []vm.Option
	if b.manifest != nil {
		mo, err := b.manifest.VMOptions()
		if err != nil {
			return nil, err
		}
		opts = append(opts, mo...)
	}
	if b.opts.eof != "" {
		policy, err := vm.ParseEOFPolicy(b.opts.eof)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vm.WithEOFPolicy(policy))
	}
	if b.opts.maxSteps > 0 {
		opts = append(opts, vm.WithStepLimit(b.opts.maxSteps))
	}
	return opts, nil
}

// load produces the program, from an image file, the cache or the compiler.
func (b *build) load() error {
	if strings.HasSuffix(b.source, ".brimg") {
		data, err := os.ReadFile(b.source)
		if err != nil {
			return err
		}
		img, err := bytecode.UnmarshalImage(data)
		if err != nil {
			return fmt.Errorf("%s: %w", b.source, err)
		}
		b.image = img
		return nil
	}

	name, err := filepath.Abs(b.source)
	if err != nil {
		name = b.source
	}

	var cache *store.Store
	if b.opts.cache != "" && !b.opts.tree {
		cache, err = store.Open(b.opts.cache)
		if err != nil {
			return err
		}
		defer cache.Close()

		img, err := cache.Get(name)
		switch {
		case err == nil:
			log.Infof("using cached build %s", img.BuildID)
			b.image = img
			return nil
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStale):
			log.Debugf("cache miss: %v", err)
		default:
			return err
		}
	}

	res, err := compiler.New(b.compilerOptions()...).CompileFile(b.source)
	if err != nil {
		return err
	}
	b.result = res
	b.image = res.Image()
	log.Infof("compiled %s: %d instructions", name, len(res.Code))

	if cache != nil {
		if err := cache.Put(name, b.image, res.Files); err != nil {
			log.Warningf("cannot cache %s: %v", name, err)
		}
	}
	return nil
}

// write produces the requested outputs. Without any output or -run flag the
// program text is printed.
func (b *build) write(stdout io.Writer) error {
	o := b.opts
	if o.tree {
		if b.result == nil {
			return errors.New("-tree needs a source file, not an image")
		}
		fmt.Fprintln(stdout, b.result.Root.Dump())
	}
	if o.disasm {
		fmt.Fprint(stdout, bytecode.DisassembleWithName(b.image.Source, b.image.Code, b.image.SourceMap))
	}
	if o.image != "" {
		data, err := bytecode.MarshalImage(b.image)
		if err != nil {
			return err
		}
		if err := writeFile(o.image, data); err != nil {
			return err
		}
		log.Infof("wrote %s (%d bytes)", o.image, len(data))
	}
	if o.emit || !(o.tree || o.disasm || o.image != "" || o.exec) {
		text := b.image.Text()
		if o.output != "" {
			return writeFile(o.output, []byte(text+"\n"))
		}
		fmt.Fprintln(stdout, text)
	}
	return nil
}

func (b *build) execute(stdin io.Reader, stdout io.Writer) error {
	opts, err := b.vmOptions()
	if err != nil {
		return err
	}

	in := stdin
	if b.opts.input != "" {
		f, err := os.Open(b.opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	out := bufio.NewWriter(stdout)
	mem, runErr := vm.Exec(b.image.Code, in, out, opts...)
	if err := out.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	if b.opts.mem {
		fmt.Fprintln(stdout)
		printMemory(stdout, mem)
	}
	return nil
}

func printMemory(w io.Writer, mem *vm.Memory) {
	for _, i := range mem.Indexes() {
		fmt.Fprintf(w, ":%d = %d\n", i, mem.Get(i))
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

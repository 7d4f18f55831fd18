// Package manifest handles brain.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/vm"
)

// FileName is the name of the project file.
const FileName = "brain.toml"

// Manifest represents a brain.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project"`
	Source   Source         `toml:"source"`
	Compiler CompilerConfig `toml:"compiler"`
	VM       VMConfig       `toml:"vm"`
	Build    BuildConfig    `toml:"build"`

	// Dir is the directory containing the brain.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations. Dirs are searched by `import`
// after the importing file's own directory.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// CompilerConfig tunes the compiler.
type CompilerConfig struct {
	MaxDepth int `toml:"max-depth"`
}

// VMConfig tunes program execution.
type VMConfig struct {
	EOF      string `toml:"eof"`
	MaxSteps int    `toml:"max-steps"`
}

// BuildConfig configures build outputs.
type BuildConfig struct {
	Output string `toml:"output"` // eight-symbol text output
	Image  string `toml:"image"`  // CBOR image output
	Cache  string `toml:"cache"`  // build cache database
}

// Load parses a brain.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest content and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Entry == "" {
		m.Source.Entry = "main.br"
	}
	if m.Compiler.MaxDepth == 0 {
		m.Compiler.MaxDepth = compiler.DefaultMaxDepth
	}
	if m.VM.EOF == "" {
		m.VM.EOF = vm.EOFHalt.String()
	}

	if m.Compiler.MaxDepth < 0 {
		return nil, fmt.Errorf("compiler.max-depth must be positive, got %d", m.Compiler.MaxDepth)
	}
	if m.VM.MaxSteps < 0 {
		return nil, fmt.Errorf("vm.max-steps must not be negative, got %d", m.VM.MaxSteps)
	}
	if _, err := vm.ParseEOFPolicy(m.VM.EOF); err != nil {
		return nil, fmt.Errorf("vm.eof: %w", err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a brain.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.path(d))
	}
	return paths
}

// EntryPath returns the path of the entry unit. The entry is looked up in
// the project directory first and then in each source directory.
func (m *Manifest) EntryPath() string {
	direct := m.path(m.Source.Entry)
	if _, err := os.Stat(direct); err == nil {
		return direct
	}
	for _, d := range m.SourceDirPaths() {
		candidate := filepath.Join(d, m.Source.Entry)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return direct
}

// OutputPath, ImagePath and CachePath resolve the build outputs; each is
// empty when not configured.
func (m *Manifest) OutputPath() string { return m.optPath(m.Build.Output) }
func (m *Manifest) ImagePath() string  { return m.optPath(m.Build.Image) }
func (m *Manifest) CachePath() string  { return m.optPath(m.Build.Cache) }

// CompilerOptions returns the compiler options the manifest describes.
func (m *Manifest) CompilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithSearchPaths(m.SourceDirPaths()...),
		compiler.WithMaxDepth(m.Compiler.MaxDepth),
	}
}

// VMOptions returns the VM options the manifest describes.
func (m *Manifest) VMOptions() ([]vm.Option, error) {
	policy, err := vm.ParseEOFPolicy(m.VM.EOF)
	if err != nil {
		return nil, err
	}
	opts := []vm.Option{vm.WithEOFPolicy(policy)}
	if m.VM.MaxSteps > 0 {
		opts = append(opts, vm.WithStepLimit(m.VM.MaxSteps))
	}
	return opts, nil
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

func (m *Manifest) optPath(p string) string {
	if p == "" {
		return ""
	}
	return m.path(p)
}

package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrUnitNotFound is returned by loaders that cannot locate a source unit.
var ErrUnitNotFound = errors.New("source unit not found")

// Loader resolves the argument of `import` to a parsed source unit. from is
// the name of the importing unit. The returned name identifies the unit for
// cycle detection and must be the same for every spelling of the same unit.
type Loader interface {
	Load(target, from string) (name string, root *Block, err error)
}

// FileLoader reads units from disk. Relative paths are tried against the
// importing file's directory first and then against each search path.
type FileLoader struct {
	SearchPaths []string
}

func (l *FileLoader) Load(target, from string) (string, *Block, error) {
	for _, candidate := range l.candidates(target, from) {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		name, err := filepath.Abs(candidate)
		if err != nil {
			name = filepath.Clean(candidate)
		}
		root, err := ParseFile(candidate)
		if err != nil {
			return name, nil, err
		}
		return name, root, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnitNotFound, target)
}

func (l *FileLoader) candidates(target, from string) []string {
	if filepath.IsAbs(target) {
		return []string{target}
	}
	var out []string
	if from != "" {
		out = append(out, filepath.Join(filepath.Dir(from), target))
	} else {
		out = append(out, target)
	}
	for _, dir := range l.SearchPaths {
		out = append(out, filepath.Join(dir, target))
	}
	return out
}

// FSLoader reads units from an fs.FS, such as an embedded library of
// macros. Paths are slash-separated and tried against the importing unit's
// directory first, then the root of the file system.
type FSLoader struct {
	FS fs.FS
}

func (l *FSLoader) Load(target, from string) (string, *Block, error) {
	candidates := []string{strings.TrimPrefix(target, "/")}
	if from != "" && !strings.HasPrefix(target, "/") {
		candidates = append([]string{path.Join(path.Dir(from), target)}, candidates...)
	}
	for _, name := range candidates {
		f, err := l.FS.Open(name)
		if err != nil {
			continue
		}
		root, err := Parse(f)
		f.Close()
		if err != nil {
			return name, nil, err
		}
		return name, root, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnitNotFound, target)
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/brain/compiler"
	"github.com/chazu/brain/manifest"
	"github.com/chazu/brain/pkg/fixture"
)

// handleTestCommand processes the `brc test` subcommand. Each argument is a
// fixture file or a directory whose .br files are fixtures; without
// arguments the source directory of the nearest brain.toml is used.
// Usage:
//
//	brc test                  # fixtures under the project
//	brc test examples/        # every .br file below examples/
//	brc test -v hello.br      # also print descriptions
func handleTestCommand(args []string, stdout, stderr io.Writer) int {
	var verbose bool
	var paths []string
	for _, a := range args {
		switch a {
		case "-v", "--verbose":
			verbose = true
		default:
			paths = append(paths, a)
		}
	}

	start := "."
	if len(paths) > 0 {
		start = paths[0]
		if info, err := os.Stat(start); err == nil && !info.IsDir() {
			start = filepath.Dir(start)
		}
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	var opts []compiler.Option
	if m != nil {
		opts = m.CompilerOptions()
		if len(paths) == 0 {
			paths = []string{m.Dir}
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "Usage: brc test [-v] [file.br | dir]...")
		return 2
	}

	files, err := fixtureFiles(paths)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	failed := 0
	for _, path := range files {
		f, err := fixture.Load(path)
		if err == nil {
			err = f.Run(opts...)
		}
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL  %s\n      %v\n", path, err)
			continue
		}
		fmt.Fprintf(stdout, "ok    %s\n", path)
		if verbose && f.Desc != "" {
			fmt.Fprintf(stdout, "      %s\n", strings.ReplaceAll(f.Desc, "\n", "\n      "))
		}
	}

	fmt.Fprintf(stdout, "%d passed, %d failed\n", len(files)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// fixtureFiles expands directories into the .br files below them. Files
// inside directories named lib are libraries, not fixtures.
func fixtureFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == "lib" {
				return filepath.SkipDir
			}
			if !d.IsDir() && filepath.Ext(path) == ".br" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

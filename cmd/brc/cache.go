package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/chazu/brain/manifest"
	"github.com/chazu/brain/pkg/store"
)

// handleCacheCommand processes the `brc cache` subcommand.
// Usage:
//
//	brc cache ls              # list cached images
//	brc cache rm main.br      # drop one entry
//	brc cache clear           # drop every entry
//
// The database is taken from `-db <path>` or the nearest brain.toml.
func handleCacheCommand(args []string, stdout, stderr io.Writer) int {
	var dbPath string
	var rest []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-db" || args[i] == "--db" {
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "Error: -db requires a path")
				return 2
			}
			dbPath = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}

	if dbPath == "" {
		m, err := manifest.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
			return 1
		}
		if m == nil || m.CachePath() == "" {
			fmt.Fprintf(stderr, "Error: no cache configured (use -db or [build] cache in %s)\n", manifest.FileName)
			return 1
		}
		dbPath = m.CachePath()
	}

	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Usage: brc cache [-db path] ls|rm <name>|clear")
		return 2
	}

	s, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.Close()

	switch rest[0] {
	case "ls":
		entries, err := s.Entries()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, e := range entries {
			fmt.Fprintf(stdout, "%s  %s  %6d bytes  %s\n",
				e.BuildID, e.Created.Format(time.RFC3339), e.Size, e.Name)
			for _, d := range e.Deps {
				fmt.Fprintf(stdout, "    %s  %s\n", d.Hash[:12], d.File)
			}
		}
	case "rm":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Error: rm takes one entry name")
			return 2
		}
		name, err := filepath.Abs(rest[1])
		if err != nil {
			name = rest[1]
		}
		if err := s.Delete(name); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	case "clear":
		entries, err := s.Entries()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, e := range entries {
			if err := s.Delete(e.Name); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
		fmt.Fprintf(stdout, "removed %d entries\n", len(entries))
	default:
		fmt.Fprintf(stderr, "Error: unknown cache command %q\n", rest[0])
		return 2
	}
	return 0
}

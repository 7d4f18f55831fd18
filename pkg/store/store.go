// Package store is a build cache of compiled images backed by SQLite.
//
// Entries are keyed by the name of the entry unit. Each entry records the
// content hash of every source unit the compilation read, and a lookup only
// succeeds while all of them still hash the same.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/brain/pkg/bytecode"
)

var log = commonlog.GetLogger("brain.store")

var (
	// ErrNotFound indicates no image is cached for the entry.
	ErrNotFound = errors.New("store: no cached image")
	// ErrStale indicates a cached image whose sources have changed.
	ErrStale = errors.New("store: cached image is stale")
)

// Dep is one source unit an image was built from.
type Dep struct {
	File string
	Hash string
}

// Entry describes a cached image without loading it.
type Entry struct {
	Name    string
	BuildID string
	Created time.Time
	Size    int
	Deps    []Dep
}

// Store handles SQLite storage for compiled images.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS images (
		name     TEXT PRIMARY KEY,
		build_id TEXT NOT NULL,
		created  INTEGER NOT NULL,
		data     BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating images table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS deps (
		name TEXT NOT NULL,
		file TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (name, file)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating deps table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put caches img under name together with the current hashes of files.
// An existing entry for name is replaced.
func (s *Store) Put(name string, img *bytecode.Image, files []string) error {
	deps := make([]Dep, 0, len(files))
	for _, f := range files {
		h, err := HashFile(f)
		if err != nil {
			return err
		}
		deps = append(deps, Dep{File: f, Hash: h})
	}
	data, err := bytecode.MarshalImage(img)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO images (name, build_id, created, data) VALUES (?, ?, ?, ?)",
		name, img.BuildID, img.Created, data,
	); err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM deps WHERE name = ?", name); err != nil {
		return fmt.Errorf("clearing deps: %w", err)
	}
	for _, d := range deps {
		if _, err := tx.Exec("INSERT INTO deps (name, file, hash) VALUES (?, ?, ?)", name, d.File, d.Hash); err != nil {
			return fmt.Errorf("saving dep %s: %w", d.File, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	log.Debugf("cached %s (%d bytes, %d deps)", name, len(data), len(deps))
	return nil
}

// Get returns the image cached for name. It fails with ErrNotFound when
// there is none and ErrStale when any recorded source unit is missing or has
// changed since the image was built.
func (s *Store) Get(name string) (*bytecode.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}

	deps, err := s.deps(name)
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		h, err := HashFile(d.File)
		if err != nil || h != d.Hash {
			log.Debugf("%s: %s changed", name, d.File)
			return nil, fmt.Errorf("%w: %s changed", ErrStale, d.File)
		}
	}

	img, err := bytecode.UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	log.Debugf("cache hit for %s", name)
	return img, nil
}

// Delete removes the entry for name. Deleting a missing entry is not an
// error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM images WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM deps WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting deps: %w", err)
	}
	return nil
}

// Entries lists the cached images ordered by name.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name, build_id, created, length(data) FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.Name, &e.BuildID, &created, &e.Size); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		e.Created = time.Unix(created, 0)
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	for i := range entries {
		deps, err := s.deps(entries[i].Name)
		if err != nil {
			return nil, err
		}
		entries[i].Deps = deps
	}
	return entries, nil
}

func (s *Store) deps(name string) ([]Dep, error) {
	rows, err := s.db.Query("SELECT file, hash FROM deps WHERE name = ? ORDER BY file", name)
	if err != nil {
		return nil, fmt.Errorf("querying deps: %w", err)
	}
	defer rows.Close()

	var deps []Dep
	for rows.Next() {
		var d Dep
		if err := rows.Scan(&d.File, &d.Hash); err != nil {
			return nil, fmt.Errorf("scanning dep: %w", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// HashFile returns the hex SHA-256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

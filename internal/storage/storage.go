package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrIndexNotFound is returned when the named index has no database file.
	ErrIndexNotFound = errors.New("index not found")
	// ErrInvalidIndexName is returned for names that cannot map to a file.
	ErrInvalidIndexName = errors.New("invalid index name")
)

// Filter narrows retrieval queries. Fields are canonical values: language
// names resolved through the languages registry, symbol types as stored, and
// a SQLite GLOB pattern for symbol names. A nil *Filter means no narrowing.
type Filter struct {
	Languages      []string
	SymbolTypes    []string
	SymbolNameGlob string
}

func (f *Filter) empty() bool {
	return f == nil || (len(f.Languages) == 0 && len(f.SymbolTypes) == 0 && f.SymbolNameGlob == "")
}

// ChunkRecord is the write-path representation of one indexed chunk. The
// query pipeline never writes; this exists for the indexing collaborator and
// for test fixtures.
type ChunkRecord struct {
	Filename        string
	StartOffset     int
	EndOffset       int
	Content         string
	BlockType       string
	Hierarchy       string
	LanguageID      string
	SymbolType      string
	SymbolName      string
	SymbolSignature string
	Embedding       []float32
}

// IndexInfo is index-level metadata for reporting tools.
type IndexInfo struct {
	Name           string
	ChunkCount     int
	EmbeddingCount int
	SchemaVersion  string
	SizeBytes      int64
	LastIndexedAt  string
	Capabilities   Capabilities
}

// Store manages per-index SQLite databases under a root directory. Index
// handles are cached so capability probing happens once per index per
// process.
type Store struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[string]*Index
}

// Open prepares a store rooted at dir, creating the directory if needed.
// A nil logger falls back to slog.Default.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &Store{
		root:    dir,
		logger:  logger,
		indexes: make(map[string]*Index),
	}, nil
}

// Index returns the handle for an existing index, opening its database on
// first use. Opening never migrates: an index built by an older indexer is
// served as-is, with missing optional columns reported as absent
// capabilities rather than errors.
func (s *Store) Index(ctx context.Context, name string) (*Index, error) {
	path, err := s.indexPath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ix, ok := s.indexes[name]; ok {
		return ix, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}

	ix := &Index{
		name:   name,
		path:   path,
		db:     db,
		logger: s.logger.With("index", name),
	}
	s.indexes[name] = ix
	return ix, nil
}

// CreateIndex creates (or opens) an index database and brings its schema to
// the current version. Only the indexing collaborator calls this.
func (s *Store) CreateIndex(ctx context.Context, name string) (*Index, error) {
	path, err := s.indexPath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ix, ok := s.indexes[name]; ok {
		return ix, nil
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate index %s: %w", name, err)
	}

	ix := &Index{
		name:   name,
		path:   path,
		db:     db,
		logger: s.logger.With("index", name),
	}
	s.indexes[name] = ix
	return ix, nil
}

// Names lists the indexes present under the store root.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read store root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".db"))
	}
	return names, nil
}

// Close closes every open index handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, ix := range s.indexes {
		if err := ix.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.indexes, name)
	}
	return firstErr
}

func (s *Store) indexPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	}
	return filepath.Join(s.root, name+".db"), nil
}

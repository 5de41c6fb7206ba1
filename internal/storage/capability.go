package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Capabilities reports which optional schema features an index supports. A
// missing column is a capability bit, not an error: older indexes keep
// working with the affected feature silently disabled.
type Capabilities struct {
	// Metadata: the chunk table carries block_type/hierarchy/language_id.
	Metadata bool
	// Hybrid: raw chunk text plus a lexical (FTS5) index are present.
	Hybrid bool
	// Symbols: the chunk table carries symbol_type/name/signature.
	Symbols bool
}

// capabilityState caches the probe result on the index handle. Once a
// capability is observed false it stays false for the life of the handle; a
// live schema upgrade needs the process restarted to take effect. That keeps
// the probe to one catalog round-trip per index per process.
type capabilityState struct {
	mu     sync.Mutex
	probed bool
	caps   Capabilities
}

// Capabilities probes the index schema on first call and returns the cached
// record afterwards. Each absent capability is logged once, with re-indexing
// named as the remedy.
func (ix *Index) Capabilities(ctx context.Context) (Capabilities, error) {
	ix.caps.mu.Lock()
	defer ix.caps.mu.Unlock()

	if ix.caps.probed {
		return ix.caps.caps, nil
	}

	columns, err := ix.chunkColumns(ctx)
	if err != nil {
		return Capabilities{}, err
	}

	caps := Capabilities{
		Metadata: columns["block_type"] && columns["hierarchy"] && columns["language_id"],
		Symbols:  columns["symbol_type"] && columns["symbol_name"] && columns["symbol_signature"],
	}

	hasFTS, err := ix.tableExists(ctx, "chunks_fts")
	if err != nil {
		return Capabilities{}, err
	}
	caps.Hybrid = hasFTS && columns["content"]

	if !caps.Metadata {
		ix.logger.Warn("index schema lacks metadata columns; results will have empty metadata until the index is re-indexed")
	}
	if !caps.Hybrid {
		ix.logger.Warn("index schema lacks lexical search columns; hybrid search disabled until the index is re-indexed")
	}
	if !caps.Symbols {
		ix.logger.Warn("index schema lacks symbol columns; symbol filters unavailable until the index is re-indexed")
	}

	ix.caps.probed = true
	ix.caps.caps = caps
	return caps, nil
}

// DowngradeMetadata marks the metadata capability false after a retrieval
// query failed on a missing optional column. Downgrades are one-way for the
// life of the handle.
func (ix *Index) DowngradeMetadata() {
	ix.caps.mu.Lock()
	defer ix.caps.mu.Unlock()

	if ix.caps.probed && !ix.caps.caps.Metadata {
		return
	}
	ix.caps.probed = true
	ix.caps.caps.Metadata = false
	ix.caps.caps.Symbols = false
	ix.logger.Warn("metadata columns missing at query time; downgrading and retrying without them, re-index to restore")
}

// chunkColumns lists the columns of the chunks table via the SQLite catalog.
func (ix *Index) chunkColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := ix.db.QueryContext(ctx, "PRAGMA table_info(chunks)")
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  interface{}
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func (ix *Index) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := ix.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return true, nil
}

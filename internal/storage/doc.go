// Package storage is the SQLite adapter for named chunk indexes. A Store
// maps index names to per-index database files; an Index handle exposes the
// retrieval queries the search pipeline needs (nearest-neighbor and lexical
// relevance), the schema capability probe, index-level metadata, and a
// minimal write path for the indexing collaborator.
//
// Two builds are supported: a pure Go build using modernc.org/sqlite with
// similarity computed in Go, and a CGO build using mattn/go-sqlite3 with the
// sqlite-vec extension computing distance in SQL.
//
// Indexes written by older indexer versions may lack optional columns. That
// is surfaced through Capabilities, never as an error; the schema is not
// migrated on the query path.
package storage

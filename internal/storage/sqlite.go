package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/quarrylabs/quarry/pkg/types"
)

// Index is the handle for one named index: a SQLite database plus the
// capability flags probed from its schema. Handles are shared and safe for
// concurrent use; the underlying pool is the synchronization point.
type Index struct {
	name   string
	path   string
	db     *sql.DB
	logger *slog.Logger

	caps capabilityState
}

// openDatabase opens a SQLite database with the settings the query path needs.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL keeps concurrent readers cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Name returns the index name.
func (ix *Index) Name() string {
	return ix.name
}

func (ix *Index) close() error {
	return ix.db.Close()
}

// baseColumns are always present; metaColumns and symbolColumns exist only on
// current-schema indexes and are selected per the probed capabilities.
const (
	baseColumns   = "c.filename, c.start_offset, c.end_offset, c.content"
	metaColumns   = "c.block_type, c.hierarchy, c.language_id"
	symbolColumns = "c.symbol_type, c.symbol_name, c.symbol_signature"
)

// NearestNeighbors returns up to limit chunks ordered by cosine similarity to
// the query vector, best first. With withMetadata false the optional columns
// are not selected and hits carry empty metadata, which is the degraded mode
// for older index schemas.
func (ix *Index) NearestNeighbors(ctx context.Context, vector []float32, limit int, filter *Filter, withMetadata bool) ([]types.VectorHit, error) {
	if limit <= 0 {
		return []types.VectorHit{}, nil
	}
	if VectorExtensionAvailable {
		return ix.nearestNeighborsSQL(ctx, vector, limit, filter, withMetadata)
	}
	return ix.nearestNeighborsScan(ctx, vector, limit, filter, withMetadata)
}

// nearestNeighborsSQL computes distance at the database layer via the
// sqlite-vec extension and lets SQL order and cap the result.
func (ix *Index) nearestNeighborsSQL(ctx context.Context, vector []float32, limit int, filter *Filter, withMetadata bool) ([]types.VectorHit, error) {
	columns := baseColumns
	if withMetadata {
		columns += ", " + metaColumns + ", " + symbolColumns
	}

	query := fmt.Sprintf(`
		SELECT %s, 1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE 1=1
	`, columns)
	args := []interface{}{serializeVector(vector)}
	query, args = applyFilter(query, args, filter)
	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.VectorHit, 0, limit)
	for rows.Next() {
		hit, err := scanVectorHit(rows, withMetadata)
		if err != nil {
			return nil, err
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// nearestNeighborsScan loads candidate vectors and ranks them in Go. Used on
// purego builds where no vector extension is available.
func (ix *Index) nearestNeighborsScan(ctx context.Context, vector []float32, limit int, filter *Filter, withMetadata bool) ([]types.VectorHit, error) {
	columns := baseColumns
	if withMetadata {
		columns += ", " + metaColumns + ", " + symbolColumns
	}

	query := fmt.Sprintf(`
		SELECT %s, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE 1=1
	`, columns)
	args := []interface{}{}
	query, args = applyFilter(query, args, filter)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []types.VectorHit
	for rows.Next() {
		hit, blob, err := scanVectorCandidate(rows, withMetadata)
		if err != nil {
			return nil, err
		}
		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue // dimension mismatch, likely a different embedding model
		}
		hit.Similarity = cosineSimilarity(vector, stored)
		candidates = append(candidates, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit:limit], nil
}

// LexicalSearch runs an FTS5 relevance query with a prebuilt MATCH
// expression, returning up to limit hits by relevance descending. The
// relevance value is the magnitude of the BM25 rank: unbounded, positive,
// larger is better.
func (ix *Index) LexicalSearch(ctx context.Context, match string, limit int, filter *Filter) ([]types.KeywordHit, error) {
	if match == "" || limit <= 0 {
		return []types.KeywordHit{}, nil
	}

	query := `
		SELECT c.filename, c.start_offset, c.end_offset, bm25(chunks_fts) AS rank
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
		WHERE chunks_fts MATCH ?
	`
	args := []interface{}{match}
	query, args = applyFilter(query, args, filter)
	query += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute lexical search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.KeywordHit, 0, limit)
	for rows.Next() {
		var hit types.KeywordHit
		var rank float64
		if err := rows.Scan(&hit.Location.Filename, &hit.Location.StartOffset, &hit.Location.EndOffset, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan lexical result: %w", err)
		}
		// BM25 ranks are negative with lower meaning better; the magnitude
		// preserves that ordering as a positive descending score.
		hit.Relevance = math.Abs(rank)
		results = append(results, hit)
	}
	return results, rows.Err()
}

// applyFilter appends WHERE conditions for the shared filter predicate.
func applyFilter(query string, args []interface{}, filter *Filter) (string, []interface{}) {
	if filter.empty() {
		return query, args
	}

	if len(filter.Languages) > 0 {
		query += " AND c.language_id IN (" + placeholders(len(filter.Languages)) + ")"
		for _, lang := range filter.Languages {
			args = append(args, lang)
		}
	}
	if len(filter.SymbolTypes) > 0 {
		query += " AND c.symbol_type IN (" + placeholders(len(filter.SymbolTypes)) + ")"
		for _, st := range filter.SymbolTypes {
			args = append(args, st)
		}
	}
	if filter.SymbolNameGlob != "" {
		query += " AND c.symbol_name GLOB ?"
		args = append(args, filter.SymbolNameGlob)
	}
	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// scanVectorHit scans a row produced by the SQL-side similarity query.
func scanVectorHit(rows *sql.Rows, withMetadata bool) (types.VectorHit, error) {
	var hit types.VectorHit
	var err error
	if withMetadata {
		var blockType, hierarchy, languageID, symType, symName, symSig sql.NullString
		err = rows.Scan(
			&hit.Location.Filename, &hit.Location.StartOffset, &hit.Location.EndOffset, &hit.Content,
			&blockType, &hierarchy, &languageID, &symType, &symName, &symSig,
			&hit.Similarity,
		)
		hit.Metadata = types.ChunkMetadata{BlockType: blockType.String, Hierarchy: hierarchy.String, LanguageID: languageID.String}
		hit.Symbol = types.SymbolInfo{Type: symType.String, Name: symName.String, Signature: symSig.String}
	} else {
		err = rows.Scan(&hit.Location.Filename, &hit.Location.StartOffset, &hit.Location.EndOffset, &hit.Content, &hit.Similarity)
	}
	if err != nil {
		return hit, fmt.Errorf("failed to scan vector result: %w", err)
	}
	return hit, nil
}

// scanVectorCandidate scans a row produced by the Go-side similarity query.
func scanVectorCandidate(rows *sql.Rows, withMetadata bool) (types.VectorHit, []byte, error) {
	var hit types.VectorHit
	var blob []byte
	var err error
	if withMetadata {
		var blockType, hierarchy, languageID, symType, symName, symSig sql.NullString
		err = rows.Scan(
			&hit.Location.Filename, &hit.Location.StartOffset, &hit.Location.EndOffset, &hit.Content,
			&blockType, &hierarchy, &languageID, &symType, &symName, &symSig,
			&blob,
		)
		hit.Metadata = types.ChunkMetadata{BlockType: blockType.String, Hierarchy: hierarchy.String, LanguageID: languageID.String}
		hit.Symbol = types.SymbolInfo{Type: symType.String, Name: symName.String, Signature: symSig.String}
	} else {
		err = rows.Scan(&hit.Location.Filename, &hit.Location.StartOffset, &hit.Location.EndOffset, &hit.Content, &blob)
	}
	if err != nil {
		return hit, nil, fmt.Errorf("failed to scan vector candidate: %w", err)
	}
	return hit, blob, nil
}

// IsMissingColumn reports whether an error came from selecting a column the
// index schema does not have. The vector retriever uses this to trigger its
// one-shot no-metadata retry.
func IsMissingColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such column")
}

// UpsertChunk inserts or replaces one chunk and its embedding. Write path
// only; requires a current-schema index.
func (ix *Index) UpsertChunk(ctx context.Context, rec *ChunkRecord) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO chunks (filename, start_offset, end_offset, content,
			block_type, hierarchy, language_id, symbol_type, symbol_name, symbol_signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename, start_offset, end_offset) DO UPDATE SET
			content = excluded.content,
			block_type = excluded.block_type,
			hierarchy = excluded.hierarchy,
			language_id = excluded.language_id,
			symbol_type = excluded.symbol_type,
			symbol_name = excluded.symbol_name,
			symbol_signature = excluded.symbol_signature
	`,
		rec.Filename, rec.StartOffset, rec.EndOffset, rec.Content,
		nullable(rec.BlockType), nullable(rec.Hierarchy), nullable(rec.LanguageID),
		nullable(rec.SymbolType), nullable(rec.SymbolName), nullable(rec.SymbolSignature),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}

	// last_insert_rowid is not updated when the conflict branch fires, so the
	// id is always resolved by key.
	var chunkID int64
	err = ix.db.QueryRowContext(ctx,
		"SELECT id FROM chunks WHERE filename = ? AND start_offset = ? AND end_offset = ?",
		rec.Filename, rec.StartOffset, rec.EndOffset,
	).Scan(&chunkID)
	if err != nil {
		return fmt.Errorf("failed to resolve chunk id: %w", err)
	}

	if len(rec.Embedding) > 0 {
		_, err = ix.db.ExecContext(ctx, `
			INSERT INTO embeddings (chunk_id, vector, dimension)
			VALUES (?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				vector = excluded.vector,
				dimension = excluded.dimension
		`, chunkID, serializeVector(rec.Embedding), len(rec.Embedding))
		if err != nil {
			return fmt.Errorf("failed to upsert embedding: %w", err)
		}
	}

	return nil
}

// SetMeta writes one index-level metadata key.
func (ix *Index) SetMeta(ctx context.Context, key, value string) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set index meta %s: %w", key, err)
	}
	return nil
}

// Info reports index-level metadata for the reporting surface.
func (ix *Index) Info(ctx context.Context) (*IndexInfo, error) {
	info := &IndexInfo{Name: ix.name}

	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&info.ChunkCount); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&info.EmbeddingCount); err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}

	version, err := SchemaVersion(ctx, ix.db)
	if err != nil {
		return nil, err
	}
	info.SchemaVersion = version

	var lastIndexed sql.NullString
	_ = ix.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'last_indexed_at'").Scan(&lastIndexed)
	info.LastIndexedAt = lastIndexed.String

	if stat, err := os.Stat(ix.path); err == nil {
		info.SizeBytes = stat.Size()
	}

	caps, err := ix.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	info.Capabilities = caps

	return info, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// serializeVector converts a float32 slice to a little-endian byte blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

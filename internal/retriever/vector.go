package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quarrylabs/quarry/internal/embedder"
	"github.com/quarrylabs/quarry/internal/storage"
	"github.com/quarrylabs/quarry/pkg/types"
)

// VectorRetriever answers queries by embedding similarity. Embedding failure
// is fatal: without a query vector no result is possible.
type VectorRetriever struct {
	embedder embedder.Embedder
	logger   *slog.Logger
}

// NewVector creates a vector retriever. A nil logger falls back to
// slog.Default.
func NewVector(emb embedder.Embedder, logger *slog.Logger) *VectorRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRetriever{embedder: emb, logger: logger}
}

// Embed generates the query embedding.
func (r *VectorRetriever) Embed(ctx context.Context, query string) ([]float32, error) {
	emb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return emb.Vector, nil
}

// Retrieve returns up to limit nearest-neighbor hits for a precomputed query
// vector, best first.
//
// A language filter against an index without metadata columns matches no
// chunks: the language of a chunk is unknowable there, so the filter cannot
// be satisfied.
//
// Against an older schema missing the optional metadata columns the first
// query fails; the capability record is downgraded and the query retried
// exactly once without those columns, yielding hits with empty metadata.
// This is a one-shot fallback, not a loop.
func (r *VectorRetriever) Retrieve(ctx context.Context, ix *storage.Index, queryVector []float32, limit int, filter *storage.Filter) ([]types.VectorHit, error) {
	caps, err := ix.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to probe index capabilities: %w", err)
	}

	if filter != nil && len(filter.Languages) > 0 && !caps.Metadata {
		r.logger.Warn("index lacks metadata columns, language filter matches no chunks; re-index to enable language filtering",
			"index", ix.Name())
		return nil, nil
	}

	hits, err := ix.NearestNeighbors(ctx, queryVector, limit, filter, caps.Metadata)
	if err != nil && caps.Metadata && storage.IsMissingColumn(err) {
		ix.DowngradeMetadata()
		hits, err = ix.NearestNeighbors(ctx, queryVector, limit, filter, false)
	}
	if err != nil {
		return nil, fmt.Errorf("vector retrieval failed: %w", err)
	}
	return hits, nil
}

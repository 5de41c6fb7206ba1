package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quarrylabs/quarry/internal/embedder"
	"github.com/quarrylabs/quarry/internal/fusion"
	"github.com/quarrylabs/quarry/internal/languages"
	"github.com/quarrylabs/quarry/internal/querycache"
	"github.com/quarrylabs/quarry/internal/retriever"
	"github.com/quarrylabs/quarry/internal/storage"
	"github.com/quarrylabs/quarry/internal/tokenize"
	"github.com/quarrylabs/quarry/pkg/types"
)

const (
	// DefaultLimit applies when a request leaves Limit unset.
	DefaultLimit = 10
	// MaxLimit caps the result count of any single request.
	MaxLimit = 100
	// PrefetchCeiling bounds how many candidates each retriever fetches.
	// Retrievers fetch twice the requested limit so fusion has enough
	// overlap to work with, up to this ceiling.
	PrefetchCeiling = 200
)

// Retrieval modes as reported in responses.
const (
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// Cache hit kinds as reported in responses.
const (
	CacheExact    = "exact"
	CacheSemantic = "semantic"
)

// SearchResponse is the result of one search call.
type SearchResponse struct {
	Results  []types.SearchResult
	Mode     string
	CacheHit bool
	// CacheKind is "exact" or "semantic" when CacheHit is true.
	CacheKind string
	Duration  time.Duration
}

// Engine coordinates the full query pipeline: validation, mode selection,
// the two-level query cache, dual retrieval, rank fusion, and result shaping.
type Engine struct {
	store   *storage.Store
	vector  *retriever.VectorRetriever
	keyword *retriever.KeywordRetriever
	cache   *querycache.Cache
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache replaces the default query cache.
func WithCache(c *querycache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New creates an Engine over the given store and embedder.
func New(store *storage.Store, emb embedder.Embedder, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:   store,
		vector:  retriever.NewVector(emb, logger),
		keyword: retriever.NewKeyword(logger),
		cache:   querycache.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the query pipeline and returns ranked results.
func (e *Engine) Search(ctx context.Context, req types.SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if err := normalizeRequest(&req); err != nil {
		return nil, err
	}

	ix, caps, err := e.openIndex(ctx, &req)
	if err != nil {
		return nil, err
	}

	mode := decideMode(req.Query, req.Hybrid, caps)
	params := cacheParams(&req, mode)

	if !req.BypassCache {
		if results, ok := e.cache.Get(params); ok {
			return &SearchResponse{
				Results:   results,
				Mode:      mode,
				CacheHit:  true,
				CacheKind: CacheExact,
				Duration:  time.Since(start),
			}, nil
		}
	}

	queryVector, err := e.vector.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	// The semantic level needs the query embedding, so it is consulted
	// after the embedding call rather than alongside the exact level.
	if !req.BypassCache {
		if results, ok := e.cache.GetSemantic(req.IndexName, queryVector); ok {
			return &SearchResponse{
				Results:   results,
				Mode:      mode,
				CacheHit:  true,
				CacheKind: CacheSemantic,
				Duration:  time.Since(start),
			}, nil
		}
	}

	filter := buildFilter(&req)
	prefetch := prefetchSize(req.Limit)

	var vectorHits []types.VectorHit
	var keywordHits []types.KeywordHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vector.Retrieve(gctx, ix, queryVector, prefetch, filter)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	if mode == ModeHybrid {
		// Keyword retrieval degrades internally and never returns an
		// error, so it cannot cancel the vector side.
		g.Go(func() error {
			keywordHits = e.keyword.Retrieve(gctx, ix, req.Query, prefetch, filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := assemble(mode, vectorHits, keywordHits, req.Limit, req.MinScore)

	if !req.BypassCache {
		e.cache.Put(params, queryVector, results)
	}

	return &SearchResponse{
		Results:  results,
		Mode:     mode,
		Duration: time.Since(start),
	}, nil
}

// InvalidateIndex drops every cached query for the named index and reports
// how many entries were removed.
func (e *Engine) InvalidateIndex(indexName string) int {
	n := e.cache.InvalidateIndex(indexName)
	if n > 0 {
		e.logger.Info("invalidated cached queries", "index", indexName, "entries", n)
	}
	return n
}

// normalizeRequest validates the request and fills in defaults in place.
func normalizeRequest(req *types.SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}

	if req.Limit < 0 {
		return fmt.Errorf("%w: %d", types.ErrInvalidLimit, req.Limit)
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	switch req.Hybrid {
	case "":
		req.Hybrid = types.HybridAuto
	case types.HybridAuto, types.HybridOn, types.HybridOff:
	default:
		return fmt.Errorf("%w: %q", types.ErrInvalidHybrid, req.Hybrid)
	}

	resolved, err := languages.ResolveAll(req.Languages)
	if err != nil {
		return err
	}
	req.Languages = resolved

	return nil
}

// openIndex opens the named index, probes its capabilities, and rejects
// symbol filters the index cannot serve before any retrieval work happens.
func (e *Engine) openIndex(ctx context.Context, req *types.SearchRequest) (*storage.Index, storage.Capabilities, error) {
	ix, err := e.store.Index(ctx, req.IndexName)
	if err != nil {
		if errors.Is(err, storage.ErrIndexNotFound) || errors.Is(err, storage.ErrInvalidIndexName) {
			return nil, storage.Capabilities{}, fmt.Errorf("%w: %q", types.ErrUnknownIndex, req.IndexName)
		}
		return nil, storage.Capabilities{}, fmt.Errorf("failed to open index %q: %w", req.IndexName, err)
	}

	caps, err := ix.Capabilities(ctx)
	if err != nil {
		return nil, storage.Capabilities{}, fmt.Errorf("failed to probe index %q: %w", req.IndexName, err)
	}

	if (len(req.SymbolTypes) > 0 || req.SymbolNameGlob != "") && !caps.Symbols {
		return nil, storage.Capabilities{}, &types.SymbolFilterError{IndexName: req.IndexName}
	}

	return ix, caps, nil
}

// decideMode picks the retrieval mode for a request. Auto turns hybrid on
// only when the index supports it and the query is shaped like a code
// identifier; prose queries gain little from lexical matching.
func decideMode(query string, hybrid types.HybridMode, caps storage.Capabilities) string {
	switch hybrid {
	case types.HybridOff:
		return ModeSemantic
	case types.HybridOn:
		if caps.Hybrid {
			return ModeHybrid
		}
		return ModeSemantic
	default:
		if caps.Hybrid && tokenize.IdentifierShaped(query) {
			return ModeHybrid
		}
		return ModeSemantic
	}
}

func cacheParams(req *types.SearchRequest, mode string) querycache.Params {
	return querycache.Params{
		Query:          req.Query,
		IndexName:      req.IndexName,
		Limit:          req.Limit,
		MinScore:       req.MinScore,
		Languages:      req.Languages,
		Mode:           mode,
		SymbolTypes:    req.SymbolTypes,
		SymbolNameGlob: req.SymbolNameGlob,
	}
}

func buildFilter(req *types.SearchRequest) *storage.Filter {
	if len(req.Languages) == 0 && len(req.SymbolTypes) == 0 && req.SymbolNameGlob == "" {
		return nil
	}
	return &storage.Filter{
		Languages:      req.Languages,
		SymbolTypes:    req.SymbolTypes,
		SymbolNameGlob: req.SymbolNameGlob,
	}
}

func prefetchSize(limit int) int {
	n := limit * 2
	if n > PrefetchCeiling {
		n = PrefetchCeiling
	}
	return n
}

// assemble turns raw retrieval output into the final result list: fuse and
// boost in hybrid mode, then truncate and gate.
func assemble(mode string, vectorHits []types.VectorHit, keywordHits []types.KeywordHit, limit int, minScore float64) []types.SearchResult {
	if mode == ModeHybrid {
		fused := fusion.Fuse(vectorHits, keywordHits, fusion.DefaultK)
		fused = fusion.BoostDefinitions(fused)
		return assembleFused(fused, limit, minScore)
	}

	results := make([]types.SearchResult, 0, len(vectorHits))
	for _, hit := range vectorHits {
		results = append(results, types.SearchResult{
			Location: hit.Location,
			Score:    hit.Similarity,
			Content:  hit.Content,
			Metadata: hit.Metadata,
			Symbol:   hit.Symbol,
		})
	}
	return truncateAndGate(results, limit, minScore)
}

// truncateAndGate cuts the list to the requested limit first, then applies
// the min-score gate. The gate can only shrink the page, never pull in
// lower-ranked hits.
func truncateAndGate(results []types.SearchResult, limit int, minScore float64) []types.SearchResult {
	if len(results) > limit {
		results = results[:limit:limit]
	}
	if minScore > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= minScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	return results
}

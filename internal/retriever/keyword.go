package retriever

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quarrylabs/quarry/internal/storage"
	"github.com/quarrylabs/quarry/internal/tokenize"
	"github.com/quarrylabs/quarry/pkg/types"
)

// KeywordRetriever answers queries by lexical relevance. It is always
// optional: an index without lexical columns yields an empty list, and any
// retrieval error degrades to an empty list with a logged warning rather
// than failing the search.
type KeywordRetriever struct {
	logger *slog.Logger
}

// NewKeyword creates a keyword retriever. A nil logger falls back to
// slog.Default.
func NewKeyword(logger *slog.Logger) *KeywordRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordRetriever{logger: logger}
}

// Retrieve returns up to limit keyword hits by relevance descending. Never
// returns an error.
func (r *KeywordRetriever) Retrieve(ctx context.Context, ix *storage.Index, query string, limit int, filter *storage.Filter) []types.KeywordHit {
	caps, err := ix.Capabilities(ctx)
	if err != nil {
		r.logger.Warn("capability probe failed, skipping keyword retrieval", "error", err)
		return nil
	}
	if !caps.Hybrid {
		return nil
	}
	// Same rule as the vector side: no metadata columns means a language
	// filter cannot match anything.
	if filter != nil && len(filter.Languages) > 0 && !caps.Metadata {
		return nil
	}

	match := BuildMatch(query)
	if match == "" {
		return nil
	}

	hits, err := ix.LexicalSearch(ctx, match, limit, filter)
	if err != nil {
		r.logger.Warn("keyword retrieval failed, continuing with vector results only", "error", err)
		return nil
	}
	return hits
}

// BuildMatch converts query text into an FTS5 MATCH expression. Identifiers
// are expanded into their sub-words alongside the literal form, every term is
// quoted so FTS operators in user text stay inert, and terms are OR-ed so any
// of them can contribute.
func BuildMatch(query string) string {
	terms := tokenize.ExpandQuery(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

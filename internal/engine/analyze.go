package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/fusion"
	"github.com/quarrylabs/quarry/internal/storage"
	"github.com/quarrylabs/quarry/internal/tokenize"
	"github.com/quarrylabs/quarry/pkg/types"
)

// Stage names reported by Analyze, in pipeline order.
const (
	StageValidate  = "validate"
	StageCacheRead = "cache_read"
	StageEmbed     = "embed"
	StageVector    = "vector_retrieval"
	StageKeyword   = "keyword_retrieval"
	StageFusion    = "fusion"
	StageBoost     = "definition_boost"
	StageShape     = "shape_results"
)

// Stage records what one pipeline step did during an analyzed search.
type Stage struct {
	Name     string        `json:"name"`
	Ran      bool          `json:"ran"`
	Duration time.Duration `json:"duration"`
	Count    int           `json:"count,omitempty"`
	Note     string        `json:"note,omitempty"`
}

// Analysis is the full trace of one search. It carries every intermediate
// list so a caller can see exactly how the final ranking came to be.
type Analysis struct {
	ID               string               `json:"id"`
	Query            string               `json:"query"`
	IndexName        string               `json:"index"`
	Mode             string               `json:"mode"`
	IdentifierShaped bool                 `json:"identifier_shaped"`
	Capabilities     storage.Capabilities `json:"capabilities"`
	Prefetch         int                  `json:"prefetch"`
	Stages           []Stage              `json:"stages"`
	VectorHits       []types.VectorHit    `json:"vector_hits"`
	KeywordHits      []types.KeywordHit   `json:"keyword_hits"`
	Fused            []types.FusedHit     `json:"fused,omitempty"`
	Results          []types.SearchResult `json:"results"`
	Duration         time.Duration        `json:"duration"`
}

// Analyze runs the search pipeline sequentially and records what each stage
// did. The cache is consulted so the trace shows whether a normal search
// would have hit it, but retrieval always runs and nothing is stored, so
// analyzing a query never perturbs cache state.
func (e *Engine) Analyze(ctx context.Context, req types.SearchRequest) (*Analysis, error) {
	start := time.Now()
	a := &Analysis{
		ID:    uuid.NewString(),
		Query: req.Query,
	}

	stageStart := time.Now()
	if err := normalizeRequest(&req); err != nil {
		return nil, err
	}
	a.Stages = append(a.Stages, Stage{
		Name: StageValidate, Ran: true, Duration: time.Since(stageStart),
	})

	a.Query = req.Query
	a.IndexName = req.IndexName
	a.IdentifierShaped = tokenize.IdentifierShaped(req.Query)

	ix, caps, err := e.openIndex(ctx, &req)
	if err != nil {
		return nil, err
	}
	a.Capabilities = caps

	mode := decideMode(req.Query, req.Hybrid, caps)
	a.Mode = mode
	a.Prefetch = prefetchSize(req.Limit)

	stageStart = time.Now()
	cacheNote := "miss"
	if _, ok := e.cache.Get(cacheParams(&req, mode)); ok {
		cacheNote = "exact hit"
	}
	a.Stages = append(a.Stages, Stage{
		Name: StageCacheRead, Ran: true, Duration: time.Since(stageStart), Note: cacheNote,
	})

	stageStart = time.Now()
	queryVector, err := e.vector.Embed(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	a.Stages = append(a.Stages, Stage{
		Name: StageEmbed, Ran: true, Duration: time.Since(stageStart), Count: len(queryVector),
	})

	if cacheNote == "miss" {
		if _, ok := e.cache.GetSemantic(req.IndexName, queryVector); ok {
			a.Stages[len(a.Stages)-2].Note = "semantic hit"
		}
	}

	filter := buildFilter(&req)

	stageStart = time.Now()
	a.VectorHits, err = e.vector.Retrieve(ctx, ix, queryVector, a.Prefetch, filter)
	if err != nil {
		return nil, err
	}
	a.Stages = append(a.Stages, Stage{
		Name: StageVector, Ran: true, Duration: time.Since(stageStart), Count: len(a.VectorHits),
	})

	stageStart = time.Now()
	if mode == ModeHybrid {
		a.KeywordHits = e.keyword.Retrieve(ctx, ix, req.Query, a.Prefetch, filter)
		a.Stages = append(a.Stages, Stage{
			Name: StageKeyword, Ran: true, Duration: time.Since(stageStart), Count: len(a.KeywordHits),
		})
	} else {
		a.Stages = append(a.Stages, Stage{Name: StageKeyword})
	}

	if mode == ModeHybrid {
		stageStart = time.Now()
		a.Fused = fusion.Fuse(a.VectorHits, a.KeywordHits, fusion.DefaultK)
		a.Stages = append(a.Stages, Stage{
			Name: StageFusion, Ran: true, Duration: time.Since(stageStart), Count: len(a.Fused),
		})

		stageStart = time.Now()
		boosted := fusion.BoostDefinitions(a.Fused)
		changed := 0
		for i := range boosted {
			if boosted[i].Location != a.Fused[i].Location || boosted[i].CombinedScore != a.Fused[i].CombinedScore {
				changed++
			}
		}
		a.Fused = boosted
		a.Stages = append(a.Stages, Stage{
			Name: StageBoost, Ran: true, Duration: time.Since(stageStart), Count: changed,
		})
	} else {
		a.Stages = append(a.Stages, Stage{Name: StageFusion}, Stage{Name: StageBoost})
	}

	stageStart = time.Now()
	if mode == ModeHybrid {
		a.Results = assembleFused(a.Fused, req.Limit, req.MinScore)
	} else {
		a.Results = assemble(mode, a.VectorHits, nil, req.Limit, req.MinScore)
	}
	a.Stages = append(a.Stages, Stage{
		Name: StageShape, Ran: true, Duration: time.Since(stageStart), Count: len(a.Results),
	})

	a.Duration = time.Since(start)
	return a, nil
}

// assembleFused shapes already-fused hits, keeping the intermediate list
// that Analyze records intact.
func assembleFused(fused []types.FusedHit, limit int, minScore float64) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(fused))
	for _, hit := range fused {
		results = append(results, types.SearchResult{
			Location:     hit.Location,
			Score:        hit.CombinedScore,
			Content:      hit.Content,
			Metadata:     hit.Metadata,
			Symbol:       hit.Symbol,
			Origin:       hit.Origin,
			VectorScore:  hit.VectorScore,
			KeywordScore: hit.KeywordScore,
		})
	}
	return truncateAndGate(results, limit, minScore)
}

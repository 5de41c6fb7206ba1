package fusion

import (
	"sort"

	"github.com/quarrylabs/quarry/pkg/types"
)

// DefaultK is the standard Reciprocal Rank Fusion constant. Smaller values
// weight top ranks more aggressively.
const DefaultK = 60.0

// Fuse merges a vector result list and a keyword result list with Reciprocal
// Rank Fusion: each list contributes 1/(k+rank) per location, and a location
// present in both lists sums both contributions. Rank positions are 1-based
// and taken from the input order, which must be best-first.
//
// RRF is used instead of weighted score summing because cosine similarity
// (bounded, concentrated near the top) and lexical relevance (unbounded) are
// not numerically comparable, while rank position is.
//
// When the keyword list is empty fusion is skipped entirely: vector hits pass
// through unchanged, scored by their similarity, with a semantic origin.
func Fuse(vector []types.VectorHit, keyword []types.KeywordHit, k float64) []types.FusedHit {
	if k <= 0 {
		k = DefaultK
	}

	if len(keyword) == 0 {
		return passthrough(vector)
	}

	merged := make(map[types.ChunkLocation]*types.FusedHit, len(vector)+len(keyword))

	for i := range vector {
		vh := &vector[i]
		rank := float64(i + 1)
		sim := vh.Similarity
		merged[vh.Location] = &types.FusedHit{
			Location:      vh.Location,
			CombinedScore: 1.0 / (k + rank),
			Origin:        types.OriginSemantic,
			VectorScore:   &sim,
			Content:       vh.Content,
			Metadata:      vh.Metadata,
			Symbol:        vh.Symbol,
		}
	}

	for i := range keyword {
		kh := &keyword[i]
		rank := float64(i + 1)
		rel := kh.Relevance
		if hit, ok := merged[kh.Location]; ok {
			// Double-matched chunk: sum contributions, keep the vector hit's
			// metadata (keyword retrieval carries none).
			hit.CombinedScore += 1.0 / (k + rank)
			hit.Origin = types.OriginBoth
			hit.KeywordScore = &rel
		} else {
			merged[kh.Location] = &types.FusedHit{
				Location:      kh.Location,
				CombinedScore: 1.0 / (k + rank),
				Origin:        types.OriginKeyword,
				KeywordScore:  &rel,
			}
		}
	}

	fused := make([]types.FusedHit, 0, len(merged))
	for _, hit := range merged {
		fused = append(fused, *hit)
	}
	SortHits(fused)

	return fused
}

// passthrough converts vector hits directly to fused hits without rank math.
func passthrough(vector []types.VectorHit) []types.FusedHit {
	fused := make([]types.FusedHit, 0, len(vector))
	for i := range vector {
		vh := &vector[i]
		sim := vh.Similarity
		fused = append(fused, types.FusedHit{
			Location:      vh.Location,
			CombinedScore: vh.Similarity,
			Origin:        types.OriginSemantic,
			VectorScore:   &sim,
			Content:       vh.Content,
			Metadata:      vh.Metadata,
			Symbol:        vh.Symbol,
		})
	}
	return fused
}

// SortHits orders fused hits by combined score descending. On an exact score
// tie a hit carrying a keyword score sorts first; remaining ties fall back to
// location so output order is deterministic for identical inputs.
func SortHits(hits []types.FusedHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := &hits[i], &hits[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		aKeyword := a.KeywordScore != nil
		bKeyword := b.KeywordScore != nil
		if aKeyword != bKeyword {
			return aKeyword
		}
		if a.Location.Filename != b.Location.Filename {
			return a.Location.Filename < b.Location.Filename
		}
		return a.Location.StartOffset < b.Location.StartOffset
	})
}

package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/quarry/pkg/types"
)

func loc(file string, start int) types.ChunkLocation {
	return types.ChunkLocation{Filename: file, StartOffset: start, EndOffset: start + 100}
}

func vectorHits(hits ...types.VectorHit) []types.VectorHit { return hits }

func TestFuseDoubleMatchWinsOverSingleSource(t *testing.T) {
	// fileB is ranked lower than fileA by the vector list but appears in both
	// lists, so its summed RRF contributions must put it first.
	vector := vectorHits(
		types.VectorHit{Location: loc("fileA.go", 0), Similarity: 0.9},
		types.VectorHit{Location: loc("fileB.go", 0), Similarity: 0.8},
	)
	keyword := []types.KeywordHit{
		{Location: loc("fileB.go", 0), Relevance: 0.7},
	}

	fused := Fuse(vector, keyword, DefaultK)
	require.Len(t, fused, 2)

	assert.Equal(t, "fileB.go", fused[0].Location.Filename)
	assert.Equal(t, types.OriginBoth, fused[0].Origin)
	assert.Equal(t, "fileA.go", fused[1].Location.Filename)
	assert.Equal(t, types.OriginSemantic, fused[1].Origin)

	// Summed score exceeds either single-source contribution.
	singleBest := 1.0 / (DefaultK + 1)
	assert.Greater(t, fused[0].CombinedScore, singleBest)
}

func TestFuseOrigins(t *testing.T) {
	vector := vectorHits(
		types.VectorHit{Location: loc("a.go", 0), Similarity: 0.9},
		types.VectorHit{Location: loc("shared.go", 0), Similarity: 0.8},
	)
	keyword := []types.KeywordHit{
		{Location: loc("shared.go", 0), Relevance: 3.1},
		{Location: loc("b.go", 0), Relevance: 1.2},
	}

	fused := Fuse(vector, keyword, DefaultK)
	require.Len(t, fused, 3)

	byFile := make(map[string]types.FusedHit)
	for _, h := range fused {
		byFile[h.Location.Filename] = h
	}

	assert.Equal(t, types.OriginSemantic, byFile["a.go"].Origin)
	assert.Equal(t, types.OriginKeyword, byFile["b.go"].Origin)
	assert.Equal(t, types.OriginBoth, byFile["shared.go"].Origin)

	// Both-origin hits carry both per-source scores.
	shared := byFile["shared.go"]
	require.NotNil(t, shared.VectorScore)
	require.NotNil(t, shared.KeywordScore)
	assert.Equal(t, 0.8, *shared.VectorScore)
	assert.Equal(t, 3.1, *shared.KeywordScore)

	// Single-source hits carry only their own score.
	assert.Nil(t, byFile["a.go"].KeywordScore)
	assert.Nil(t, byFile["b.go"].VectorScore)
}

func TestFuseMetadataFromVectorHit(t *testing.T) {
	vector := vectorHits(types.VectorHit{
		Location:   loc("svc.go", 10),
		Similarity: 0.7,
		Content:    "func NewService() {}",
		Metadata:   types.ChunkMetadata{BlockType: "function", LanguageID: "go"},
		Symbol:     types.SymbolInfo{Type: "function", Name: "NewService"},
	})
	keyword := []types.KeywordHit{{Location: loc("svc.go", 10), Relevance: 2.0}}

	fused := Fuse(vector, keyword, DefaultK)
	require.Len(t, fused, 1)
	assert.Equal(t, "function", fused[0].Metadata.BlockType)
	assert.Equal(t, "NewService", fused[0].Symbol.Name)
	assert.Equal(t, "func NewService() {}", fused[0].Content)
}

func TestFuseScoreFormula(t *testing.T) {
	// A location present in exactly one list at rank r scores 1/(K+r).
	vector := vectorHits(
		types.VectorHit{Location: loc("a.go", 0), Similarity: 0.9},
		types.VectorHit{Location: loc("b.go", 0), Similarity: 0.5},
	)
	keyword := []types.KeywordHit{{Location: loc("c.go", 0), Relevance: 1.0}}

	fused := Fuse(vector, keyword, 60)
	byFile := make(map[string]float64)
	for _, h := range fused {
		byFile[h.Location.Filename] = h.CombinedScore
	}

	assert.InDelta(t, 1.0/61.0, byFile["a.go"], 1e-12)
	assert.InDelta(t, 1.0/62.0, byFile["b.go"], 1e-12)
	assert.InDelta(t, 1.0/61.0, byFile["c.go"], 1e-12)
}

func TestFuseSmallerKScoresHigher(t *testing.T) {
	vector := vectorHits(types.VectorHit{Location: loc("a.go", 0), Similarity: 0.9})
	keyword := []types.KeywordHit{{Location: loc("b.go", 0), Relevance: 1.0}}

	atK1 := Fuse(vector, keyword, 1)
	atK60 := Fuse(vector, keyword, 60)

	for i := range atK1 {
		assert.Greater(t, atK1[i].CombinedScore, atK60[i].CombinedScore)
	}
}

func TestFuseDeterministic(t *testing.T) {
	vector := vectorHits(
		types.VectorHit{Location: loc("a.go", 0), Similarity: 0.9},
		types.VectorHit{Location: loc("b.go", 0), Similarity: 0.8},
		types.VectorHit{Location: loc("c.go", 0), Similarity: 0.7},
	)
	keyword := []types.KeywordHit{
		{Location: loc("c.go", 0), Relevance: 5.0},
		{Location: loc("d.go", 0), Relevance: 2.0},
	}

	first := Fuse(vector, keyword, DefaultK)
	second := Fuse(vector, keyword, DefaultK)
	assert.Equal(t, first, second)
}

func TestFuseTieBreakPrefersKeywordBearing(t *testing.T) {
	// Vector rank 1 and keyword rank 1 both score exactly 1/(K+1); the
	// keyword-bearing hit must sort first.
	vector := vectorHits(types.VectorHit{Location: loc("vec.go", 0), Similarity: 0.9})
	keyword := []types.KeywordHit{{Location: loc("kw.go", 0), Relevance: 4.0}}

	fused := Fuse(vector, keyword, DefaultK)
	require.Len(t, fused, 2)
	assert.Equal(t, "kw.go", fused[0].Location.Filename)
	assert.Equal(t, "vec.go", fused[1].Location.Filename)
}

func TestFuseEmptyKeywordListPassesThrough(t *testing.T) {
	vector := vectorHits(
		types.VectorHit{Location: loc("a.go", 0), Similarity: 0.9},
		types.VectorHit{Location: loc("b.go", 0), Similarity: 0.8},
	)

	fused := Fuse(vector, nil, DefaultK)
	require.Len(t, fused, 2)

	// Scores are the raw similarities, not RRF values.
	assert.Equal(t, 0.9, fused[0].CombinedScore)
	assert.Equal(t, 0.8, fused[1].CombinedScore)
	for _, h := range fused {
		assert.Equal(t, types.OriginSemantic, h.Origin)
		assert.Nil(t, h.KeywordScore)
		require.NotNil(t, h.VectorScore)
	}
}

func TestBoostDefinitions(t *testing.T) {
	hits := []types.FusedHit{
		{
			Location:      loc("ref.go", 0),
			CombinedScore: 0.020,
			Content:       "result := NewParser(opts)",
			Metadata:      types.ChunkMetadata{LanguageID: "go"},
			Symbol:        types.SymbolInfo{Type: "function", Name: "run"},
		},
		{
			Location:      loc("def.go", 0),
			CombinedScore: 0.015,
			Content:       "func NewParser(opts Options) *Parser {",
			Metadata:      types.ChunkMetadata{LanguageID: "go"},
			Symbol:        types.SymbolInfo{Type: "function", Name: "NewParser"},
		},
	}

	boosted := BoostDefinitions(hits)
	require.Len(t, boosted, 2)

	// The definition chunk doubles to 0.030 and overtakes the reference.
	assert.Equal(t, "def.go", boosted[0].Location.Filename)
	assert.InDelta(t, 0.030, boosted[0].CombinedScore, 1e-12)
	assert.Equal(t, "ref.go", boosted[1].Location.Filename)
	assert.Equal(t, 0.020, boosted[1].CombinedScore)

	// Input is untouched.
	assert.Equal(t, 0.015, hits[1].CombinedScore)
}

func TestBoostRequiresSymbolType(t *testing.T) {
	hits := []types.FusedHit{
		{
			Location:      loc("a.py", 0),
			CombinedScore: 0.01,
			Content:       "def handler(event):",
			Metadata:      types.ChunkMetadata{LanguageID: "python"},
			// No symbol type: never boosted even with a definition token.
		},
	}

	boosted := BoostDefinitions(hits)
	assert.Equal(t, 0.01, boosted[0].CombinedScore)
}

func TestBoostPerLanguageFamilies(t *testing.T) {
	tests := []struct {
		name    string
		lang    string
		content string
		boosted bool
	}{
		{"GoFunc", "go", "func Run() {}", true},
		{"PythonDef", "python", "def run():", true},
		{"TypeScriptExport", "typescript", "export class Runner {}", true},
		{"RustFn", "rust", "fn run() {}", true},
		{"GoReference", "go", "r := Run()", false},
		{"PythonCall", "python", "run()", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := []types.FusedHit{{
				Location:      loc("x", 0),
				CombinedScore: 0.01,
				Content:       tt.content,
				Metadata:      types.ChunkMetadata{LanguageID: tt.lang},
				Symbol:        types.SymbolInfo{Type: "function", Name: "run"},
			}}
			got := BoostDefinitions(hits)[0].CombinedScore
			if tt.boosted {
				assert.InDelta(t, 0.02, got, 1e-12)
			} else {
				assert.Equal(t, 0.01, got)
			}
		})
	}
}

func TestBoostIdempotentOrdering(t *testing.T) {
	hits := []types.FusedHit{
		{Location: loc("a.go", 0), CombinedScore: 0.03, Content: "x := 1"},
		{Location: loc("b.go", 0), CombinedScore: 0.02, Content: "y := 2"},
		{Location: loc("c.go", 0), CombinedScore: 0.01, Content: "z := 3"},
	}

	first := BoostDefinitions(hits)
	second := BoostDefinitions(hits)
	assert.Equal(t, first, second)

	// No hit qualified, so order is untouched.
	assert.Equal(t, hits, first)
}

package types

// ChunkLocation uniquely identifies an indexed chunk within a single index.
// It is the join key used when merging ranked lists from different retrievers.
type ChunkLocation struct {
	Filename    string `json:"filename"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// MatchOrigin records which retrieval path produced a result.
type MatchOrigin string

const (
	OriginSemantic MatchOrigin = "semantic" // vector list only
	OriginKeyword  MatchOrigin = "keyword"  // keyword list only
	OriginBoth     MatchOrigin = "both"     // present in both lists
)

// ChunkMetadata carries the optional descriptive columns stored alongside a
// chunk. Against an older index schema every field may be empty.
type ChunkMetadata struct {
	BlockType  string `json:"block_type,omitempty"`
	Hierarchy  string `json:"hierarchy,omitempty"`
	LanguageID string `json:"language_id,omitempty"`
}

// SymbolInfo carries the optional symbol columns for a chunk. Empty when the
// index predates symbol extraction.
type SymbolInfo struct {
	Type      string `json:"type,omitempty"`
	Name      string `json:"name,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// VectorHit is a single nearest-neighbor result. Similarity is cosine
// similarity in [0, 1], best-first.
type VectorHit struct {
	Location   ChunkLocation `json:"location"`
	Similarity float64       `json:"similarity"`
	Content    string        `json:"content,omitempty"`
	Metadata   ChunkMetadata `json:"metadata"`
	Symbol     SymbolInfo    `json:"symbol"`
}

// KeywordHit is a single lexical relevance result. Relevance is an unbounded
// positive score; larger is better.
type KeywordHit struct {
	Location  ChunkLocation `json:"location"`
	Relevance float64       `json:"relevance"`
}

// FusedHit is the result of merging vector and keyword lists with Reciprocal
// Rank Fusion. VectorScore and KeywordScore are nil when the location was
// absent from the corresponding source list.
type FusedHit struct {
	Location      ChunkLocation `json:"location"`
	CombinedScore float64       `json:"combined_score"`
	Origin        MatchOrigin   `json:"origin"`
	VectorScore   *float64      `json:"vector_score,omitempty"`
	KeywordScore  *float64      `json:"keyword_score,omitempty"`
	Content       string        `json:"content,omitempty"`
	Metadata      ChunkMetadata `json:"metadata"`
	Symbol        SymbolInfo    `json:"symbol"`
}

// SearchResult is the public result shape returned by Search and Analyze.
// Origin, VectorScore and KeywordScore are populated only when hybrid
// retrieval ran for the request.
type SearchResult struct {
	Location     ChunkLocation `json:"location"`
	Score        float64       `json:"score"`
	Content      string        `json:"content,omitempty"`
	Metadata     ChunkMetadata `json:"metadata"`
	Symbol       SymbolInfo    `json:"symbol"`
	Origin       MatchOrigin   `json:"match_origin,omitempty"`
	VectorScore  *float64      `json:"vector_score,omitempty"`
	KeywordScore *float64      `json:"keyword_score,omitempty"`
}

// HybridMode controls whether keyword retrieval participates in a search.
type HybridMode string

const (
	// HybridAuto enables keyword retrieval when the index supports it and the
	// query looks like a code identifier.
	HybridAuto HybridMode = "auto"
	// HybridOn requests keyword retrieval; silently degrades to vector-only
	// when the index lacks lexical columns.
	HybridOn HybridMode = "force_on"
	// HybridOff disables keyword retrieval unconditionally.
	HybridOff HybridMode = "force_off"
)

// SearchRequest contains the parameters for one search call. Requests are
// created per call and never retained.
type SearchRequest struct {
	Query          string
	IndexName      string
	Limit          int
	MinScore       float64
	Languages      []string // language names or aliases; resolved before use
	Hybrid         HybridMode
	SymbolTypes    []string // filter to chunks whose symbol type matches
	SymbolNameGlob string   // GLOB pattern over symbol names
	BypassCache    bool
}

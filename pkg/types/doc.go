// Package types defines the public data model for the quarry query engine:
// chunk locations, per-stage retrieval hits, public search results, and the
// error types surfaced to callers.
//
// Each pipeline stage has its own precise type rather than one flat record
// with many optional fields: VectorHit and KeywordHit are retriever outputs,
// FusedHit is the rank-fusion output, and SearchResult is the shape returned
// to callers.
package types

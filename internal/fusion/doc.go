// Package fusion merges ranked retrieval lists and reranks them. Fuse applies
// Reciprocal Rank Fusion across the vector and keyword lists; BoostDefinitions
// then favors chunks that define, rather than reference, a named symbol.
package fusion

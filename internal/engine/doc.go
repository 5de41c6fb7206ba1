// Package engine orchestrates the query pipeline.
//
// A search moves through fixed stages: request validation, index open and
// capability probe, retrieval mode selection, the two-level query cache,
// concurrent vector and keyword retrieval, rank fusion with definition
// boosting, and final truncate-and-gate shaping. Analyze runs the same
// stages sequentially and returns the full trace, including every
// intermediate ranked list.
//
// Mode selection is downgrade-only: hybrid retrieval runs when the index
// has the lexical columns for it, and the auto setting further requires the
// query to look like a code identifier. A request can force hybrid off but
// forcing it on still degrades silently on an index that cannot serve it.
package engine

// Package querycache implements the in-memory result cache in front of the
// query pipeline. Lookups try an exact match on the full parameter tuple
// first, then an embedding-similarity match over the most recently cached
// queries for the same index.
//
// The cache is best-effort and non-durable: correctness never depends on it,
// and a process restart clears it entirely.
package querycache

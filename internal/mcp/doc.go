// Package mcp exposes the query pipeline over the Model Context Protocol.
//
// The server speaks MCP over stdio and registers four tools:
//
//   - search_code: run a search against a named index
//   - analyze_search: run a search and return the full pipeline trace
//   - invalidate_index: drop cached queries for an index
//   - index_status: report counts, schema version, and capabilities
//
// Handlers stay thin: they translate tool arguments into a
// types.SearchRequest, delegate to the engine, and map pipeline errors to
// MCP error codes. Validation semantics live in the engine so every
// transport gets identical behavior.
//
// stdout carries the protocol; all logging goes to stderr.
package mcp

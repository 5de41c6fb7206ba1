package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/quarrylabs/quarry/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeIndexNotFound     = -32001 // Named index does not exist
	ErrorCodeFilterUnsupported = -32002 // Index cannot serve the requested filter
	ErrorCodeEmptyQuery        = -32004 // Query parameter is empty
)

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, mcpErr := parseSearchRequest(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	resp, err := s.engine.Search(ctx, *req)
	if err != nil {
		return nil, mapEngineError(err)
	}

	response := map[string]interface{}{
		"results":     resp.Results,
		"total":       len(resp.Results),
		"mode":        resp.Mode,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if resp.CacheHit {
		response["cache_kind"] = resp.CacheKind
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAnalyzeSearch handles the analyze_search tool invocation
func (s *Server) handleAnalyzeSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, mcpErr := parseSearchRequest(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	analysis, err := s.engine.Analyze(ctx, *req)
	if err != nil {
		return nil, mapEngineError(err)
	}

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode analysis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(string(data)), nil
}

// handleInvalidateIndex handles the invalidate_index tool invocation
func (s *Server) handleInvalidateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	index, ok := args["index"].(string)
	if !ok || index == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "index parameter is required", map[string]interface{}{
			"param":  "index",
			"reason": "missing or empty",
		})
	}

	removed := s.engine.InvalidateIndex(index)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"index":           index,
		"entries_removed": removed,
	})), nil
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	index, _ := args["index"].(string)

	if index == "" {
		names, err := s.store.Names()
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list indexes", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexes": names,
		})), nil
	}

	ix, err := s.store.Index(ctx, index)
	if err != nil {
		return nil, mapEngineError(fmt.Errorf("%w: %q", types.ErrUnknownIndex, index))
	}

	info, err := ix.Info(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index info", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"name":            info.Name,
		"chunk_count":     info.ChunkCount,
		"embedding_count": info.EmbeddingCount,
		"schema_version":  info.SchemaVersion,
		"size_bytes":      info.SizeBytes,
		"last_indexed_at": info.LastIndexedAt,
		"capabilities": map[string]interface{}{
			"metadata": info.Capabilities.Metadata,
			"hybrid":   info.Capabilities.Hybrid,
			"symbols":  info.Capabilities.Symbols,
		},
	})), nil
}

// parseSearchRequest extracts the shared search_code/analyze_search request
// shape from tool arguments. Validation beyond type shape is the engine's
// job; the handler only rejects arguments it cannot even read.
func parseSearchRequest(request mcp.CallToolRequest) (*types.SearchRequest, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	index, ok := args["index"].(string)
	if !ok || index == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "index parameter is required", map[string]interface{}{
			"param":  "index",
			"reason": "missing or empty",
		})
	}

	req := &types.SearchRequest{
		Query:          query,
		IndexName:      index,
		Limit:          getIntDefault(args, "limit", 0),
		MinScore:       getFloatDefault(args, "min_score", 0),
		Languages:      getStringSlice(args, "languages"),
		Hybrid:         types.HybridMode(getStringDefault(args, "hybrid", "")),
		SymbolTypes:    getStringSlice(args, "symbol_types"),
		SymbolNameGlob: getStringDefault(args, "symbol_name", ""),
		BypassCache:    getBoolDefault(args, "bypass_cache", false),
	}

	return req, nil
}

// mapEngineError translates pipeline errors into MCP protocol errors with
// machine-readable data where the error carries any.
func mapEngineError(err error) error {
	var unknownLang *types.UnknownLanguageError
	var symbolFilter *types.SymbolFilterError

	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return newMCPError(ErrorCodeEmptyQuery, err.Error(), nil)
	case errors.Is(err, types.ErrInvalidLimit), errors.Is(err, types.ErrInvalidHybrid):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case errors.As(err, &unknownLang):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"param":       "languages",
			"language":    unknownLang.Name,
			"suggestions": unknownLang.Suggestions,
		})
	case errors.Is(err, types.ErrUnknownIndex):
		return newMCPError(ErrorCodeIndexNotFound, err.Error(), nil)
	case errors.As(err, &symbolFilter):
		return newMCPError(ErrorCodeFilterUnsupported, err.Error(), map[string]interface{}{
			"index": symbolFilter.IndexName,
		})
	default:
		return newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

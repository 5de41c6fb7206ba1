package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchProperties is the shared parameter schema for search_code and
// analyze_search, which accept the same request shape.
func searchProperties() map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"type":        "string",
			"description": "Search query (natural language or a code identifier)",
		},
		"index": map[string]interface{}{
			"type":        "string",
			"description": "Name of the index to search",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of results to return (1-100)",
			"default":     10,
			"minimum":     1,
			"maximum":     100,
		},
		"min_score": map[string]interface{}{
			"type":        "number",
			"description": "Drop results scoring below this threshold (applied after ranking)",
			"minimum":     0.0,
		},
		"languages": map[string]interface{}{
			"type":        "array",
			"description": "Restrict to chunks in these languages (names or aliases, e.g. golang, py)",
			"items": map[string]interface{}{
				"type": "string",
			},
		},
		"hybrid": map[string]interface{}{
			"type":        "string",
			"description": "Keyword retrieval: auto enables it for identifier-shaped queries, force_on/force_off override",
			"enum":        []string{"auto", "force_on", "force_off"},
			"default":     "auto",
		},
		"symbol_types": map[string]interface{}{
			"type":        "array",
			"description": "Restrict to chunks whose symbol type matches (function, method, class, type)",
			"items": map[string]interface{}{
				"type": "string",
			},
		},
		"symbol_name": map[string]interface{}{
			"type":        "string",
			"description": "GLOB pattern over symbol names (e.g. 'Parse*')",
		},
		"bypass_cache": map[string]interface{}{
			"type":        "boolean",
			"description": "Skip the query cache for this request",
			"default":     false,
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search an indexed codebase with natural language or identifier queries",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProperties(),
			Required:   []string{"query", "index"},
		},
	}
}

// analyzeSearchTool returns the tool definition for analyze_search
func analyzeSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_search",
		Description: "Run a search and return the full pipeline trace: mode decision, per-stage timings, and every intermediate ranked list",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProperties(),
			Required:   []string{"query", "index"},
		},
	}
}

// invalidateIndexTool returns the tool definition for invalidate_index
func invalidateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "invalidate_index",
		Description: "Drop all cached queries for an index, typically after re-indexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"index": map[string]interface{}{
					"type":        "string",
					"description": "Name of the index whose cached queries should be dropped",
				},
			},
			Required: []string{"index"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report chunk counts, schema version, size, and capabilities for an index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"index": map[string]interface{}{
					"type":        "string",
					"description": "Name of the index to inspect; omit to list all indexes",
				},
			},
		},
	}
}

package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/quarrylabs/quarry/internal/config"
	"github.com/quarrylabs/quarry/internal/embedder"
	"github.com/quarrylabs/quarry/internal/engine"
	"github.com/quarrylabs/quarry/internal/querycache"
	"github.com/quarrylabs/quarry/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "quarry"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	store  *storage.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer creates a new MCP server instance from configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.Open(cfg.IndexDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}

	var emb embedder.Embedder
	if cfg.Embedding.Provider != "" {
		emb, err = embedder.New(embedder.Config{
			Provider:  cfg.Embedding.Provider,
			BaseURL:   cfg.Embedding.BaseURL,
			CacheSize: cfg.Embedding.CacheSize,
		})
	} else {
		emb, err = embedder.NewFromEnv()
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("embedding provider selected", "provider", emb.Provider(), "model", emb.Model())

	cache := querycache.New(
		querycache.WithTTL(cfg.Cache.TTL.Std()),
		querycache.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	eng := engine.New(store, emb, logger, engine.WithCache(cache))

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		store:  store,
		engine: eng,
		logger: logger,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(analyzeSearchTool(), s.handleAnalyzeSearch)
	s.mcp.AddTool(invalidateIndexTool(), s.handleInvalidateIndex)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}

// ABOUTME: MCP server initialization and configuration for beatalign.
// ABOUTME: Exposes narrative alignment tools over stdio for AI agent access.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/beatalign/internal/align"
	"github.com/2389-research/beatalign/internal/storage"
)

// Server wraps the MCP server with an alignment engine and narrative store.
type Server struct {
	mcp        *gomcp.Server
	engine     *align.Engine
	narratives storage.NarrativeStore
	defaults   align.Params
	logger     *slog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithDefaults sets the parameters used when a tool call leaves a field unset.
func WithDefaults(p align.Params) ServerOption {
	return func(s *Server) {
		s.defaults = p
	}
}

// WithLogger sets the logger used for tool call diagnostics.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an MCP server with alignment capabilities.
func NewServer(engine *align.Engine, narratives storage.NarrativeStore, version string, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("alignment engine is required")
	}
	if narratives == nil {
		return nil, fmt.Errorf("narrative store is required")
	}
	if version == "" {
		version = "dev"
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "beatalign",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcp:        mcpServer,
		engine:     engine,
		narratives: narratives,
		defaults:   align.DefaultParams(),
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerAlignTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

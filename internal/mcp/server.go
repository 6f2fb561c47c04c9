package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
)

// Server registers the conversation tools on an MCP server.
type Server struct {
	mcp          *mcp.Server
	store        conversation.ConversationStore
	defaultLimit int
	metrics      *Metrics
	logger       *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "claude-memory")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// DefaultSearchLimit applies when search_conversations omits limit (default: 10)
	DefaultSearchLimit int

	// Logger for structured logging
	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:               "claude-memory",
		Version:            "dev",
		DefaultSearchLimit: 10,
		Logger:             logging.NewNop(),
	}
}

// NewServer creates an MCP server backed by store.
func NewServer(cfg *Config, store conversation.ConversationStore) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	defaultLimit := cfg.DefaultSearchLimit
	if defaultLimit < 1 {
		defaultLimit = DefaultConfig().DefaultSearchLimit
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:          mcpServer,
		store:        store,
		defaultLimit: defaultLimit,
		metrics:      NewMetrics(logger.Underlying()),
		logger:       logger.Named("mcp"),
	}

	s.registerConversationTools()

	return s, nil
}

// MCPServer returns the underlying SDK server, for mounting on other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP on the stdio transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

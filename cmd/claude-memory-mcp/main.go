// Claude-memory-mcp stores conversations as dated markdown records with a
// per-week JSON index and serves them to MCP clients.
//
// Usage:
//
//	# Serve MCP on stdio
//	claude-memory-mcp serve
//
//	# Store a conversation from a file
//	claude-memory-mcp add --title "Design review" --date 2025-06-02 --file notes.md
//
//	# Configure via environment
//	CLAUDE_MEMORY_STORAGE_PATH=~/memory claude-memory-mcp serve
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/config"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/pathguard"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "claude-memory-mcp",
		Short: "Conversation memory server for MCP clients",
		Long: `claude-memory-mcp stores conversations as markdown records grouped by
ISO week and exposes add, week listing, search and index repair over MCP,
an optional HTTP API and this CLI.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/claude-memory/config.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newWeekCmd(opts),
		newSearchCmd(opts),
		newRebuildCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// runtime bundles what every subcommand needs after startup.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *conversation.Store
}

func (r *runtime) Close() {
	_ = r.logger.Sync()
	_ = r.logger.Close()
}

// setup loads configuration, builds the logger and opens the store. A storage
// root outside the home directory aborts startup.
func setup(ctx context.Context, opts *rootOptions) (*runtime, error) {
	load := config.Load
	if opts.configPath != "" {
		load = func() (*config.Config, error) { return config.LoadWithFile(opts.configPath) }
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg, err := cfg.Logging()
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := conversation.NewStore(conversation.StoreConfig{
		Root:             cfg.Storage.Path,
		MinContentLength: cfg.Validation.MinContentLength,
		MaxSearchLimit:   cfg.Search.MaxLimit,
		SlugMaxLength:    cfg.Validation.SlugMaxLength,
	}, logger.Underlying().Named("store"))
	if err != nil {
		if errors.Is(err, pathguard.ErrSecurity) {
			logger.Error(ctx, "refusing unsafe storage root", zap.String("path", cfg.Storage.Path), zap.Error(err))
		}
		_ = logger.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	logger.Debug(ctx, "storage ready", zap.String("root", store.Root()))

	return &runtime{cfg: cfg, logger: logger, store: store}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("claude-memory-mcp\n")
			cmd.Printf("Version:    %s\n", version)
			cmd.Printf("Commit:     %s\n", gitCommit)
			cmd.Printf("Build Date: %s\n", buildDate)
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/http"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/mcp"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools on stdio",
		Long: `Serve the conversation tools over MCP on stdin/stdout.

When http.enabled is set, an HTTP server also exposes /health, /metrics,
/mcp (streamable HTTP) and the /api/v1 conversation endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

// runServe blocks until ctx is cancelled or the stdio session ends.
func runServe(ctx context.Context, opts *rootOptions) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	mcpServer, err := mcp.NewServer(&mcp.Config{
		Name:               "claude-memory",
		Version:            version,
		DefaultSearchLimit: rt.cfg.Search.DefaultLimit,
		Logger:             rt.logger,
	}, rt.store)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	rt.logger.Info(ctx, "starting claude-memory-mcp",
		zap.String("version", version),
		zap.String("storage", rt.store.Root()),
		zap.Bool("http_enabled", rt.cfg.HTTP.Enabled))

	g, gctx := errgroup.WithContext(ctx)

	if rt.cfg.HTTP.Enabled {
		httpServer, err := http.NewServer(rt.store, mcpServer.MCPServer(), rt.logger, &http.Config{
			Host:               rt.cfg.HTTP.Host,
			Port:               rt.cfg.HTTP.Port,
			DefaultSearchLimit: rt.cfg.Search.DefaultLimit,
			RateLimit:          rt.cfg.HTTP.RateLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}

		g.Go(func() error {
			if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.HTTP.ShutdownTimeout.Duration())
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		err := mcpServer.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		// The client closed stdin; stop the HTTP server too.
		return errStdioClosed
	})

	err = g.Wait()
	if errors.Is(err, errStdioClosed) {
		err = nil
	}
	rt.logger.Info(ctx, "shutdown complete")
	return err
}

var errStdioClosed = errors.New("stdio session closed")

// Package http provides the optional HTTP transport: health, Prometheus
// metrics, MCP over streamable HTTP and a small REST API mirroring the tools.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

// Server provides HTTP endpoints for the memory server.
type Server struct {
	echo   *echo.Echo
	store  conversation.ConversationStore
	logger *logging.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	DefaultSearchLimit int
	RateLimit          float64 // API requests per second per client IP, 0 disables
}

// NewServer creates an HTTP server. mcpServer is optional; without it /mcp is
// not mounted.
func NewServer(store conversation.ConversationStore, mcpServer *sdkmcp.Server, logger *logging.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}
	if cfg.DefaultSearchLimit < 1 {
		cfg.DefaultSearchLimit = 10
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(logger.Underlying())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := req.Context()
			ctx = logging.WithRequestIDIfValid(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		store:  store,
		logger: logger.Named("http"),
		config: cfg,
	}

	s.registerRoutes(mcpServer)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(mcpServer *sdkmcp.Server) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if mcpServer != nil {
		h := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
			return mcpServer
		}, nil)
		s.echo.Any("/mcp", echo.WrapHandler(h))
	}

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.config.RateLimit))))
	}
	v1.POST("/conversations", s.handleAddConversation)
	v1.GET("/conversations/week", s.handleWeek)
	v1.GET("/conversations/search", s.handleSearch)
	v1.POST("/conversations/rebuild", s.handleRebuild)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAddConversation(c echo.Context) error {
	var req AddConversationRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid add request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Reason: "bad_request"})
	}

	ctx := c.Request().Context()
	id, err := s.store.Add(ctx, req.Title, req.Content, req.Date)
	if err != nil {
		s.logger.Warn(ctx, "add conversation failed", zap.Error(err))
		return writeError(c, err)
	}

	ts, _ := sanitize.ValidateDate(req.Date)
	return c.JSON(http.StatusCreated, AddConversationResponse{
		ConversationID: id,
		Week:           conversation.WeekOf(ts).String(),
	})
}

// handleWeek never fails; unusable bounds yield an empty list.
func (s *Server) handleWeek(c echo.Context) error {
	ctx := c.Request().Context()
	resp := WeekResponse{Conversations: []conversation.IndexEntry{}}

	start, errStart := sanitize.ValidateDate(c.QueryParam("start"))
	end, errEnd := sanitize.ValidateDateRangeEnd(c.QueryParam("end"))
	if err := errors.Join(errStart, errEnd); err != nil {
		s.logger.Warn(ctx, "unusable range, returning no conversations", zap.Error(err))
		return c.JSON(http.StatusOK, resp)
	}

	resp.Conversations = s.store.GetRange(ctx, start, end)
	resp.Count = len(resp.Conversations)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()

	limit := s.config.DefaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, fmt.Errorf("%w: %q is not an integer", sanitize.ErrInvalidLimit, raw))
		}
		limit = n
	}

	matches, err := s.store.Search(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Results: matches, Count: len(matches)})
}

func (s *Server) handleRebuild(c echo.Context) error {
	ctx := c.Request().Context()

	ts, err := sanitize.ValidateDate(c.QueryParam("date"))
	if err != nil {
		return writeError(c, err)
	}

	week := conversation.WeekOf(ts)
	n, err := s.store.RebuildWeek(ctx, week)
	if err != nil {
		s.logger.Error(ctx, "rebuild failed", zap.String("week", week.String()), zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, RebuildResponse{Week: week.String(), Entries: n})
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

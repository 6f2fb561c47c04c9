package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/logging"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

const (
	toolAddConversation      = "add_conversation"
	toolGetWeekConversations = "get_week_conversations"
	toolSearchConversations  = "search_conversations"
	toolRebuildWeekIndex     = "rebuild_week_index"
)

type addConversationInput struct {
	Content string `json:"content" jsonschema:"Full conversation transcript"`
	Title   string `json:"title" jsonschema:"Conversation title, used to derive the file name"`
	Date    string `json:"date" jsonschema:"ISO-8601 date or timestamp, e.g. 2025-06-03T10:00:00"`
}

type addConversationOutput struct {
	ConversationID string `json:"conversation_id" jsonschema:"Identifier of the stored conversation"`
	Week           string `json:"week" jsonschema:"ISO week the conversation was indexed under"`
}

type getWeekConversationsInput struct {
	StartDate string `json:"start_date" jsonschema:"Range start, ISO-8601 date or timestamp"`
	EndDate   string `json:"end_date" jsonschema:"Range end, ISO-8601; a bare date covers the whole day"`
}

type getWeekConversationsOutput struct {
	Conversations []conversation.IndexEntry `json:"conversations" jsonschema:"Index entries ordered oldest first"`
	Count         int                       `json:"count" jsonschema:"Number of entries returned"`
}

type searchConversationsInput struct {
	Query string `json:"query" jsonschema:"Text to find in titles and transcripts, case-insensitive"`
	Limit *int   `json:"limit,omitempty" jsonschema:"Maximum results (default from server config)"`
}

type searchConversationsOutput struct {
	Results []conversation.Match `json:"results" jsonschema:"Matches ordered newest first"`
	Count   int                  `json:"count" jsonschema:"Number of matches returned"`
}

type rebuildWeekIndexInput struct {
	Date string `json:"date" jsonschema:"Any ISO-8601 date inside the week to rebuild"`
}

type rebuildWeekIndexOutput struct {
	Week    string `json:"week" jsonschema:"ISO week that was rebuilt"`
	Entries int    `json:"entries" jsonschema:"Number of entries written to the week index"`
}

func (s *Server) registerConversationTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAddConversation,
		Description: "Store a conversation transcript and index it under its ISO week.",
	}, instrument(s, toolAddConversation, s.handleAddConversation, func(out addConversationOutput) string {
		return fmt.Sprintf("Conversation saved: %s (week %s)", out.ConversationID, out.Week)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolGetWeekConversations,
		Description: "List stored conversations dated within a range, oldest first. Returns an empty list when nothing is indexed.",
	}, instrument(s, toolGetWeekConversations, s.handleGetWeekConversations, func(out getWeekConversationsOutput) string {
		return fmt.Sprintf("Found %d conversations", out.Count)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSearchConversations,
		Description: "Search stored conversations by title and content, newest first.",
	}, instrument(s, toolSearchConversations, s.handleSearchConversations, func(out searchConversationsOutput) string {
		return fmt.Sprintf("Found %d matching conversations", out.Count)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolRebuildWeekIndex,
		Description: "Regenerate the index of the ISO week containing date from the stored conversation files.",
	}, instrument(s, toolRebuildWeekIndex, s.handleRebuildWeekIndex, func(out rebuildWeekIndexOutput) string {
		return fmt.Sprintf("Rebuilt week %s with %d entries", out.Week, out.Entries)
	}))
}

// instrument adapts a handler to the SDK signature, adding request correlation,
// logging and metrics.
func instrument[In, Out any](
	s *Server,
	tool string,
	handle func(context.Context, In) (Out, error),
	summarize func(Out) string,
) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		ctx = logging.WithRequestID(ctx, uuid.NewString())
		ctx = logging.WithTool(ctx, tool)
		if req != nil && req.Session != nil {
			ctx = logging.WithSessionID(ctx, req.Session.ID())
		}

		s.logger.Trace(ctx, "tool call started")
		s.metrics.IncrementActive(ctx, tool)
		out, err := handle(ctx, in)
		s.metrics.DecrementActive(ctx, tool)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), err)

		if err != nil {
			s.logger.Warn(ctx, "tool call failed",
				zap.Duration("duration", time.Since(start)),
				zap.String("reason", categorizeError(err)),
				zap.Error(err),
			)
			var zero Out
			return nil, zero, err
		}

		s.logger.Debug(ctx, "tool call completed", zap.Duration("duration", time.Since(start)))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: summarize(out)},
			},
		}, out, nil
	}
}

func (s *Server) handleAddConversation(ctx context.Context, in addConversationInput) (addConversationOutput, error) {
	id, err := s.store.Add(ctx, in.Title, in.Content, in.Date)
	if err != nil {
		return addConversationOutput{}, err
	}

	// Add already validated the date.
	ts, _ := sanitize.ValidateDate(in.Date)
	return addConversationOutput{
		ConversationID: id,
		Week:           conversation.WeekOf(ts).String(),
	}, nil
}

// handleGetWeekConversations never fails; unusable bounds yield an empty list.
func (s *Server) handleGetWeekConversations(ctx context.Context, in getWeekConversationsInput) (getWeekConversationsOutput, error) {
	out := getWeekConversationsOutput{Conversations: []conversation.IndexEntry{}}

	start, err := sanitize.ValidateDate(in.StartDate)
	if err != nil {
		s.logger.Warn(ctx, "unusable start date, returning no conversations", zap.Error(err))
		return out, nil
	}
	end, err := sanitize.ValidateDateRangeEnd(in.EndDate)
	if err != nil {
		s.logger.Warn(ctx, "unusable end date, returning no conversations", zap.Error(err))
		return out, nil
	}

	out.Conversations = s.store.GetRange(ctx, start, end)
	out.Count = len(out.Conversations)
	s.metrics.RecordResults(ctx, toolGetWeekConversations, out.Count)
	return out, nil
}

func (s *Server) handleSearchConversations(ctx context.Context, in searchConversationsInput) (searchConversationsOutput, error) {
	limit := s.defaultLimit
	if in.Limit != nil {
		limit = *in.Limit
	}

	matches, err := s.store.Search(ctx, in.Query, limit)
	if err != nil {
		return searchConversationsOutput{}, err
	}

	s.metrics.RecordResults(ctx, toolSearchConversations, len(matches))
	return searchConversationsOutput{Results: matches, Count: len(matches)}, nil
}

func (s *Server) handleRebuildWeekIndex(ctx context.Context, in rebuildWeekIndexInput) (rebuildWeekIndexOutput, error) {
	ts, err := sanitize.ValidateDate(in.Date)
	if err != nil {
		return rebuildWeekIndexOutput{}, err
	}

	week := conversation.WeekOf(ts)
	n, err := s.store.RebuildWeek(ctx, week)
	if err != nil {
		return rebuildWeekIndexOutput{}, err
	}

	s.logger.Info(ctx, "week index rebuilt on request", zap.String("week", week.String()), zap.Int("entries", n))
	return rebuildWeekIndexOutput{Week: week.String(), Entries: n}, nil
}

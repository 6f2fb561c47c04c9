package http

import "github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AddConversationRequest is the request body for POST /api/v1/conversations.
type AddConversationRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// AddConversationResponse is the response body for POST /api/v1/conversations.
type AddConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Week           string `json:"week"`
}

// WeekResponse is the response body for GET /api/v1/conversations/week.
type WeekResponse struct {
	Conversations []conversation.IndexEntry `json:"conversations"`
	Count         int                       `json:"count"`
}

// SearchResponse is the response body for GET /api/v1/conversations/search.
type SearchResponse struct {
	Results []conversation.Match `json:"results"`
	Count   int                  `json:"count"`
}

// RebuildResponse is the response body for POST /api/v1/conversations/rebuild.
type RebuildResponse struct {
	Week    string `json:"week"`
	Entries int    `json:"entries"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

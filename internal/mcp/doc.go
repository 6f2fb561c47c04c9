// Package mcp exposes the conversation store as MCP tools.
//
// Tools are registered on a github.com/modelcontextprotocol/go-sdk server and
// served over stdio (Run) or mounted on the HTTP transport (MCPServer). Each
// invocation gets a fresh request ID, structured logs and OpenTelemetry
// metrics. Validation failures are returned to the client verbatim as tool
// errors; get_week_conversations never fails.
package mcp

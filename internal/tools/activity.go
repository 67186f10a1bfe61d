package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/events"
)

// RecentActivityTool handles the get_recent_activity MCP tool. It reads
// the in-memory event queue, so history resets with the server process.
type RecentActivityTool struct {
	queue *events.Queue
}

// NewRecentActivityTool creates the tool with the given event queue.
func NewRecentActivityTool(queue *events.Queue) *RecentActivityTool {
	return &RecentActivityTool{queue: queue}
}

// Definition returns the MCP tool definition for registration.
func (t *RecentActivityTool) Definition() mcp.Tool {
	return mcp.NewTool("get_recent_activity",
		mcp.WithDescription(
			"Get recent activity events (creates, updates, status changes), newest first. "+
				"Optionally filter by agent or entity. Cascaded status changes are attributed "+
				"to agent 'system'.",
		),
		mcp.WithString("agent_id",
			mcp.Description("Only events attributed to this agent (optional)"),
		),
		mcp.WithString("entity_id",
			mcp.Description("Only events for this entity (optional)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 50)"),
		),
	)
}

// Handle processes the get_recent_activity tool call.
func (t *RecentActivityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 50)

	var evts []events.Event
	switch {
	case req.GetString("agent_id", "") != "":
		evts = t.queue.ByAgent(req.GetString("agent_id", ""), limit)
	case req.GetString("entity_id", "") != "":
		evts = t.queue.ByEntity(req.GetString("entity_id", ""), limit)
	default:
		evts = t.queue.Recent(limit)
	}

	return jsonResult(map[string]any{
		"events": evts,
		"count":  len(evts),
	})
}

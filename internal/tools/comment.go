package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// AddCommentTool handles the add_comment MCP tool.
type AddCommentTool struct {
	engine *tracker.Engine
}

// NewAddCommentTool creates the tool with the given engine.
func NewAddCommentTool(engine *tracker.Engine) *AddCommentTool {
	return &AddCommentTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *AddCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("add_comment",
		mcp.WithDescription(
			"Attach a comment to a PRD, story, or task.",
		),
		mcp.WithString("entity_type",
			mcp.Required(),
			mcp.Description("Entity kind the comment attaches to (required)"),
			mcp.Enum("prd", "story", "task"),
		),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Entity ID (required)"),
		),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Comment author agent ID (required)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Comment text (required)"),
		),
		mcp.WithString("comment_type",
			mcp.Description("Comment category (default: comment)"),
			mcp.Enum("comment", "question", "decision", "blocker"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata (optional)"),
		),
	)
}

// Handle processes the add_comment tool call.
func (t *AddCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comment, err := t.engine.AddComment(tracker.AddCommentParams{
		EntityKind:  tracker.EntityKind(req.GetString("entity_type", "")),
		EntityID:    req.GetString("entity_id", ""),
		AgentID:     req.GetString("agent_id", ""),
		Content:     req.GetString("content", ""),
		CommentType: tracker.CommentType(req.GetString("comment_type", "comment")),
		Metadata:    mapArg(req, "metadata"),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(comment)
}

// GetCommentsTool handles the get_comments MCP tool.
type GetCommentsTool struct {
	engine *tracker.Engine
}

// NewGetCommentsTool creates the tool with the given engine.
func NewGetCommentsTool(engine *tracker.Engine) *GetCommentsTool {
	return &GetCommentsTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *GetCommentsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_comments",
		mcp.WithDescription("Get an entity's comments, newest first."),
		mcp.WithString("entity_type",
			mcp.Required(),
			mcp.Description("Entity kind (required)"),
			mcp.Enum("prd", "story", "task"),
		),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Entity ID (required)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Pagination offset (default: 0)"),
		),
	)
}

// Handle processes the get_comments tool call.
func (t *GetCommentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comments, err := t.engine.Comments(
		tracker.EntityKind(req.GetString("entity_type", "")),
		req.GetString("entity_id", ""),
		intArg(req, "limit", 50),
		intArg(req, "offset", 0),
	)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(map[string]any{
		"comments": comments,
		"count":    len(comments),
	})
}

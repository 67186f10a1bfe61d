package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// ProjectProgressTool handles the get_project_progress MCP tool.
type ProjectProgressTool struct {
	engine *tracker.Engine
}

// NewProjectProgressTool creates the tool with the given engine.
func NewProjectProgressTool(engine *tracker.Engine) *ProjectProgressTool {
	return &ProjectProgressTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ProjectProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("get_project_progress",
		mcp.WithDescription(
			"Get aggregate progress for a project: entity counts, status and "+
				"assignee breakdowns, and overall completion percentage.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID (required)"),
		),
	)
}

// Handle processes the get_project_progress tool call.
func (t *ProjectProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := t.engine.ProjectProgressFor(req.GetString("project_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(progress)
}

// StoryProgressTool handles the get_story_progress MCP tool.
type StoryProgressTool struct {
	engine *tracker.Engine
}

// NewStoryProgressTool creates the tool with the given engine.
func NewStoryProgressTool(engine *tracker.Engine) *StoryProgressTool {
	return &StoryProgressTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *StoryProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("get_story_progress",
		mcp.WithDescription(
			"Get task completion statistics for a single story.",
		),
		mcp.WithString("story_id",
			mcp.Required(),
			mcp.Description("Story ID (required)"),
		),
	)
}

// Handle processes the get_story_progress tool call.
func (t *StoryProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := t.engine.StoryProgressFor(req.GetString("story_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(progress)
}

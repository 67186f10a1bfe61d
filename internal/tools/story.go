package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// CreateStoryTool handles the create_story MCP tool.
type CreateStoryTool struct {
	engine *tracker.Engine
}

// NewCreateStoryTool creates the tool with the given engine.
func NewCreateStoryTool(engine *tracker.Engine) *CreateStoryTool {
	return &CreateStoryTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateStoryTool) Definition() mcp.Tool {
	return mcp.NewTool("create_story",
		mcp.WithDescription(
			"Create a user story under a PRD. New stories start in todo status.",
		),
		mcp.WithString("prd_id",
			mcp.Required(),
			mcp.Description("Parent PRD ID (required)"),
		),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Creator agent ID (required)"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Story title (required)"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Story description (required)"),
		),
		mcp.WithString("acceptance_criteria",
			mcp.Description("Acceptance criteria (optional)"),
		),
		mcp.WithNumber("story_points",
			mcp.Description("Story point estimate, must not be negative (optional)"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Assigned agent ID (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata (optional)"),
		),
	)
}

// Handle processes the create_story tool call.
func (t *CreateStoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := tracker.CreateStoryParams{
		PRDID:              req.GetString("prd_id", ""),
		AgentID:            req.GetString("agent_id", ""),
		Title:              req.GetString("title", ""),
		Description:        req.GetString("description", ""),
		AcceptanceCriteria: req.GetString("acceptance_criteria", ""),
		AssignedTo:         req.GetString("assigned_to", ""),
		Metadata:           mapArg(req, "metadata"),
	}
	if _, ok := req.GetArguments()["story_points"]; ok {
		points := intArg(req, "story_points", 0)
		params.StoryPoints = &points
	}

	story, err := t.engine.CreateStory(params)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(story)
}

// GetStoryTool handles the get_story MCP tool.
type GetStoryTool struct {
	engine *tracker.Engine
}

// NewGetStoryTool creates the tool with the given engine.
func NewGetStoryTool(engine *tracker.Engine) *GetStoryTool {
	return &GetStoryTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *GetStoryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_story",
		mcp.WithDescription("Get a story by ID, including task counts."),
		mcp.WithString("story_id",
			mcp.Required(),
			mcp.Description("Story ID (required)"),
		),
	)
}

// Handle processes the get_story tool call.
func (t *GetStoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	story, err := t.engine.GetStory(req.GetString("story_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(story)
}

// UpdateStoryTool handles the update_story MCP tool.
type UpdateStoryTool struct {
	engine *tracker.Engine
}

// NewUpdateStoryTool creates the tool with the given engine.
func NewUpdateStoryTool(engine *tracker.Engine) *UpdateStoryTool {
	return &UpdateStoryTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateStoryTool) Definition() mcp.Tool {
	return mcp.NewTool("update_story",
		mcp.WithDescription(
			"Update story fields or status. Status changes must follow "+
				"todo → in_progress → review → done; in_progress may return to todo; "+
				"any state may be archived. Completing a story may auto-complete its PRD.",
		),
		mcp.WithString("story_id",
			mcp.Required(),
			mcp.Description("Story ID (required)"),
		),
		mcp.WithString("title",
			mcp.Description("New title (optional)"),
		),
		mcp.WithString("description",
			mcp.Description("New description (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("New status (optional)"),
			mcp.Enum("todo", "in_progress", "review", "done", "archived"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Reassign to agent (optional)"),
		),
		mcp.WithNumber("story_points",
			mcp.Description("New story point estimate (optional)"),
		),
		mcp.WithString("acceptance_criteria",
			mcp.Description("New acceptance criteria (optional)"),
		),
		mcp.WithString("agent_id",
			mcp.Description("Agent making the change, for activity attribution (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Metadata to replace (optional)"),
		),
	)
}

// Handle processes the update_story tool call.
func (t *UpdateStoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := tracker.UpdateStoryParams{
		Title:              optionalString(req, "title"),
		Description:        optionalString(req, "description"),
		AssignedTo:         optionalString(req, "assigned_to"),
		AcceptanceCriteria: optionalString(req, "acceptance_criteria"),
		Metadata:           mapArg(req, "metadata"),
	}
	if s := optionalString(req, "status"); s != nil {
		status := tracker.StoryStatus(*s)
		params.Status = &status
	}
	if _, ok := req.GetArguments()["story_points"]; ok {
		points := intArg(req, "story_points", 0)
		params.StoryPoints = &points
	}

	story, err := t.engine.UpdateStory(req.GetString("story_id", ""), params, req.GetString("agent_id", ""))
	if err != nil {
		// A cascade IntegrityError does not undo the committed story
		// write; it is still reported to the caller as the outcome.
		return engineError(err)
	}
	return jsonResult(story)
}

// ListStoriesTool handles the list_stories MCP tool.
type ListStoriesTool struct {
	engine *tracker.Engine
}

// NewListStoriesTool creates the tool with the given engine.
func NewListStoriesTool(engine *tracker.Engine) *ListStoriesTool {
	return &ListStoriesTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListStoriesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_stories",
		mcp.WithDescription("List stories, optionally filtered by PRD, status, or assignee."),
		mcp.WithString("prd_id",
			mcp.Description("Filter by PRD (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status (optional)"),
			mcp.Enum("todo", "in_progress", "review", "done", "archived"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Filter by assigned agent (optional)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Pagination offset (default: 0)"),
		),
	)
}

// Handle processes the list_stories tool call.
func (t *ListStoriesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stories, err := t.engine.ListStories(tracker.StoryFilter{
		PRDID:      req.GetString("prd_id", ""),
		Status:     req.GetString("status", ""),
		AssignedTo: req.GetString("assigned_to", ""),
		Limit:      intArg(req, "limit", 50),
		Offset:     intArg(req, "offset", 0),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(map[string]any{
		"stories": stories,
		"count":   len(stories),
	})
}

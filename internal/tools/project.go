package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// CreateProjectTool handles the create_project MCP tool.
type CreateProjectTool struct {
	engine *tracker.Engine
}

// NewCreateProjectTool creates the tool with the given engine.
func NewCreateProjectTool(engine *tracker.Engine) *CreateProjectTool {
	return &CreateProjectTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("create_project",
		mcp.WithDescription(
			"Create a new project, the root container for PRDs, stories, and tasks.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name (required)"),
		),
		mcp.WithString("description",
			mcp.Description("Project description (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata (optional)"),
		),
	)
}

// Handle processes the create_project tool call.
func (t *CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.engine.CreateProject(tracker.CreateProjectParams{
		Name:        req.GetString("name", ""),
		Description: req.GetString("description", ""),
		Metadata:    mapArg(req, "metadata"),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(project)
}

// GetProjectTool handles the get_project MCP tool.
type GetProjectTool struct {
	engine *tracker.Engine
}

// NewGetProjectTool creates the tool with the given engine.
func NewGetProjectTool(engine *tracker.Engine) *GetProjectTool {
	return &GetProjectTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *GetProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("get_project",
		mcp.WithDescription(
			"Get a project by ID, including PRD, story, and task counts.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID (required)"),
		),
	)
}

// Handle processes the get_project tool call.
func (t *GetProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.engine.GetProject(req.GetString("project_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(project)
}

// UpdateProjectTool handles the update_project MCP tool.
type UpdateProjectTool struct {
	engine *tracker.Engine
}

// NewUpdateProjectTool creates the tool with the given engine.
func NewUpdateProjectTool(engine *tracker.Engine) *UpdateProjectTool {
	return &UpdateProjectTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("update_project",
		mcp.WithDescription(
			"Update project name, description, or metadata. Projects carry no status.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID (required)"),
		),
		mcp.WithString("name",
			mcp.Description("New name (optional)"),
		),
		mcp.WithString("description",
			mcp.Description("New description (optional)"),
		),
		mcp.WithString("agent_id",
			mcp.Description("Agent making the change, for activity attribution (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Metadata to replace (optional)"),
		),
	)
}

// Handle processes the update_project tool call.
func (t *UpdateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := t.engine.UpdateProject(req.GetString("project_id", ""), tracker.UpdateProjectParams{
		Name:        optionalString(req, "name"),
		Description: optionalString(req, "description"),
		Metadata:    mapArg(req, "metadata"),
	}, req.GetString("agent_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(project)
}

// ListProjectsTool handles the list_projects MCP tool.
type ListProjectsTool struct {
	engine *tracker.Engine
}

// NewListProjectsTool creates the tool with the given engine.
func NewListProjectsTool(engine *tracker.Engine) *ListProjectsTool {
	return &ListProjectsTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Pagination offset (default: 0)"),
		),
	)
}

// Handle processes the list_projects tool call.
func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.engine.ListProjects(intArg(req, "limit", 50), intArg(req, "offset", 0))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

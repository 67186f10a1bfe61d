package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// CreatePRDTool handles the create_prd MCP tool.
type CreatePRDTool struct {
	engine *tracker.Engine
}

// NewCreatePRDTool creates the tool with the given engine.
func NewCreatePRDTool(engine *tracker.Engine) *CreatePRDTool {
	return &CreatePRDTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *CreatePRDTool) Definition() mcp.Tool {
	return mcp.NewTool("create_prd",
		mcp.WithDescription(
			"Create a Product Requirement Document under a project. New PRDs start in draft status.",
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Parent project ID (required)"),
		),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Creator agent ID (required)"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("PRD title (required)"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("PRD description (required)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata (optional)"),
		),
	)
}

// Handle processes the create_prd tool call.
func (t *CreatePRDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prd, err := t.engine.CreatePRD(tracker.CreatePRDParams{
		ProjectID:   req.GetString("project_id", ""),
		AgentID:     req.GetString("agent_id", ""),
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Metadata:    mapArg(req, "metadata"),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(prd)
}

// GetPRDTool handles the get_prd MCP tool.
type GetPRDTool struct {
	engine *tracker.Engine
}

// NewGetPRDTool creates the tool with the given engine.
func NewGetPRDTool(engine *tracker.Engine) *GetPRDTool {
	return &GetPRDTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *GetPRDTool) Definition() mcp.Tool {
	return mcp.NewTool("get_prd",
		mcp.WithDescription("Get a PRD by ID, including story and task counts."),
		mcp.WithString("prd_id",
			mcp.Required(),
			mcp.Description("PRD ID (required)"),
		),
	)
}

// Handle processes the get_prd tool call.
func (t *GetPRDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prd, err := t.engine.GetPRD(req.GetString("prd_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(prd)
}

// UpdatePRDTool handles the update_prd MCP tool.
type UpdatePRDTool struct {
	engine *tracker.Engine
}

// NewUpdatePRDTool creates the tool with the given engine.
func NewUpdatePRDTool(engine *tracker.Engine) *UpdatePRDTool {
	return &UpdatePRDTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdatePRDTool) Definition() mcp.Tool {
	return mcp.NewTool("update_prd",
		mcp.WithDescription(
			"Update PRD title, description, status or metadata. "+
				"Status changes must follow draft → active → completed; any state may be archived.",
		),
		mcp.WithString("prd_id",
			mcp.Required(),
			mcp.Description("PRD ID (required)"),
		),
		mcp.WithString("title",
			mcp.Description("New title (optional)"),
		),
		mcp.WithString("description",
			mcp.Description("New description (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("New status (optional)"),
			mcp.Enum("draft", "active", "completed", "archived"),
		),
		mcp.WithString("agent_id",
			mcp.Description("Agent making the change, for activity attribution (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Metadata to replace (optional)"),
		),
	)
}

// Handle processes the update_prd tool call.
func (t *UpdatePRDTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := tracker.UpdatePRDParams{
		Title:       optionalString(req, "title"),
		Description: optionalString(req, "description"),
		Metadata:    mapArg(req, "metadata"),
	}
	if s := optionalString(req, "status"); s != nil {
		status := tracker.PRDStatus(*s)
		params.Status = &status
	}

	prd, err := t.engine.UpdatePRD(req.GetString("prd_id", ""), params, req.GetString("agent_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(prd)
}

// ListPRDsTool handles the list_prds MCP tool.
type ListPRDsTool struct {
	engine *tracker.Engine
}

// NewListPRDsTool creates the tool with the given engine.
func NewListPRDsTool(engine *tracker.Engine) *ListPRDsTool {
	return &ListPRDsTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListPRDsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_prds",
		mcp.WithDescription("List PRDs, optionally filtered by project, status, or creator."),
		mcp.WithString("project_id",
			mcp.Description("Filter by project (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status (optional)"),
			mcp.Enum("draft", "active", "completed", "archived"),
		),
		mcp.WithString("created_by",
			mcp.Description("Filter by creator agent (optional)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Pagination offset (default: 0)"),
		),
	)
}

// Handle processes the list_prds tool call.
func (t *ListPRDsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prds, err := t.engine.ListPRDs(tracker.PRDFilter{
		ProjectID: req.GetString("project_id", ""),
		Status:    req.GetString("status", ""),
		CreatedBy: req.GetString("created_by", ""),
		Limit:     intArg(req, "limit", 50),
		Offset:    intArg(req, "offset", 0),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(map[string]any{
		"prds":  prds,
		"count": len(prds),
	})
}

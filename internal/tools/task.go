package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// CreateTaskTool handles the create_task MCP tool.
type CreateTaskTool struct {
	engine *tracker.Engine
}

// NewCreateTaskTool creates the tool with the given engine.
func NewCreateTaskTool(engine *tracker.Engine) *CreateTaskTool {
	return &CreateTaskTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription(
			"Create a task under a story. Tasks must be assigned to an agent and may "+
				"depend on other tasks; dependency cycles are rejected.",
		),
		mcp.WithString("story_id",
			mcp.Required(),
			mcp.Description("Parent story ID (required)"),
		),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Creator agent ID (required)"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title (required)"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Task description (required)"),
		),
		mcp.WithString("assigned_to",
			mcp.Required(),
			mcp.Description("Assigned agent ID (required)"),
		),
		mcp.WithArray("depends_on",
			mcp.Description("IDs of tasks this task depends on (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary metadata (optional)"),
		),
	)
}

// Handle processes the create_task tool call.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dependsOn, _ := stringSliceArg(req, "depends_on")

	task, err := t.engine.CreateTask(tracker.CreateTaskParams{
		StoryID:     req.GetString("story_id", ""),
		AgentID:     req.GetString("agent_id", ""),
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		AssignedTo:  req.GetString("assigned_to", ""),
		DependsOn:   dependsOn,
		Metadata:    mapArg(req, "metadata"),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(task)
}

// GetTaskTool handles the get_task MCP tool.
type GetTaskTool struct {
	engine *tracker.Engine
}

// NewGetTaskTool creates the tool with the given engine.
func NewGetTaskTool(engine *tracker.Engine) *GetTaskTool {
	return &GetTaskTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task",
		mcp.WithDescription("Get a task by ID."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (required)"),
		),
	)
}

// Handle processes the get_task tool call.
func (t *GetTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := t.engine.GetTask(req.GetString("task_id", ""))
	if err != nil {
		return engineError(err)
	}
	return jsonResult(task)
}

// UpdateTaskTool handles the update_task MCP tool.
type UpdateTaskTool struct {
	engine *tracker.Engine
}

// NewUpdateTaskTool creates the tool with the given engine.
func NewUpdateTaskTool(engine *tracker.Engine) *UpdateTaskTool {
	return &UpdateTaskTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task",
		mcp.WithDescription(
			"Update task fields or status. Status changes must follow "+
				"todo → in_progress → review → done; in_progress may move to blocked and back; "+
				"any state may be archived. Completing the last task of a story moves the "+
				"story to review automatically. Completing a task that other open tasks "+
				"depend on succeeds with an advisory naming them.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID (required)"),
		),
		mcp.WithString("title",
			mcp.Description("New title (optional)"),
		),
		mcp.WithString("description",
			mcp.Description("New description (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("New status (optional)"),
			mcp.Enum("todo", "in_progress", "blocked", "review", "done", "archived"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Reassign to agent (optional)"),
		),
		mcp.WithArray("depends_on",
			mcp.Description("Replacement dependency ID list; an empty array clears dependencies (optional)"),
		),
		mcp.WithString("agent_id",
			mcp.Description("Agent making the change, for activity attribution (optional)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Metadata to replace (optional)"),
		),
	)
}

// Handle processes the update_task tool call.
func (t *UpdateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := tracker.UpdateTaskParams{
		Title:       optionalString(req, "title"),
		Description: optionalString(req, "description"),
		AssignedTo:  optionalString(req, "assigned_to"),
		Metadata:    mapArg(req, "metadata"),
	}
	if s := optionalString(req, "status"); s != nil {
		status := tracker.TaskStatus(*s)
		params.Status = &status
	}
	if deps, ok := stringSliceArg(req, "depends_on"); ok {
		if deps == nil {
			deps = []string{}
		}
		params.DependsOn = deps
	}

	task, advisory, err := t.engine.UpdateTask(req.GetString("task_id", ""), params, req.GetString("agent_id", ""))
	if err != nil {
		return engineError(err)
	}

	payload := map[string]any{"task": task}
	if advisory != nil {
		payload["advisory"] = advisory
	}
	return jsonResult(payload)
}

// ListTasksTool handles the list_tasks MCP tool.
type ListTasksTool struct {
	engine *tracker.Engine
}

// NewListTasksTool creates the tool with the given engine.
func NewListTasksTool(engine *tracker.Engine) *ListTasksTool {
	return &ListTasksTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally filtered by story, status, or assignee."),
		mcp.WithString("story_id",
			mcp.Description("Filter by story (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status (optional)"),
			mcp.Enum("todo", "in_progress", "blocked", "review", "done", "archived"),
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

// Handle processes the list_tasks tool call.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := t.engine.ListTasks(tracker.TaskFilter{
		StoryID:    req.GetString("story_id", ""),
		Status:     req.GetString("status", ""),
		AssignedTo: req.GetString("assigned_to", ""),
		Limit:      intArg(req, "limit", 50),
		Offset:     intArg(req, "offset", 0),
	})
	if err != nil {
		return engineError(err)
	}
	return jsonResult(map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// WorkloadTool handles the get_agent_workload MCP tool.
type WorkloadTool struct {
	engine *tracker.Engine
}

// NewWorkloadTool creates the tool with the given engine.
func NewWorkloadTool(engine *tracker.Engine) *WorkloadTool {
	return &WorkloadTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkloadTool) Definition() mcp.Tool {
	return mcp.NewTool("get_agent_workload",
		mcp.WithDescription(
			"Get an agent's open tasks (with story and PRD context) and assigned stories.",
		),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Agent ID (required)"),
		),
		mcp.WithString("project_id",
			mcp.Description("Only work under this project (optional)"),
		),
		mcp.WithString("status",
			mcp.Description("Filter tasks by status (optional)"),
			mcp.Enum("todo", "in_progress", "blocked", "review"),
		),
	)
}

// Handle processes the get_agent_workload tool call.
func (t *WorkloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workload, err := t.engine.Workload(
		req.GetString("agent_id", ""),
		req.GetString("project_id", ""),
		tracker.TaskStatus(req.GetString("status", "")),
	)
	if err != nil {
		return engineError(err)
	}
	return jsonResult(workload)
}

// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the tracker store, builds the
// engine and event queue, and registers every tool. No business logic
// lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/agentflow/internal/events"
	"github.com/HendryAvila/agentflow/internal/tools"
	"github.com/HendryAvila/agentflow/internal/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

// eventQueueSize bounds the in-memory activity history.
const eventQueueSize = 1000

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the tracker's database
// connection and must be called on shutdown (typically via defer).
func New() (*server.MCPServer, func(), error) {
	store, err := tracker.NewStore(tracker.DefaultConfig())
	if err != nil {
		return nil, noop, fmt.Errorf("opening tracker store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: tracker store close: %v", err)
		}
	}

	queue := events.NewQueue(eventQueueSize)
	engine := tracker.NewEngine(store, queue)

	s := server.NewMCPServer(
		"agentflow",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Project tools ---

	createProject := tools.NewCreateProjectTool(engine)
	s.AddTool(createProject.Definition(), createProject.Handle)

	getProject := tools.NewGetProjectTool(engine)
	s.AddTool(getProject.Definition(), getProject.Handle)

	updateProject := tools.NewUpdateProjectTool(engine)
	s.AddTool(updateProject.Definition(), updateProject.Handle)

	listProjects := tools.NewListProjectsTool(engine)
	s.AddTool(listProjects.Definition(), listProjects.Handle)

	// --- PRD tools ---

	createPRD := tools.NewCreatePRDTool(engine)
	s.AddTool(createPRD.Definition(), createPRD.Handle)

	getPRD := tools.NewGetPRDTool(engine)
	s.AddTool(getPRD.Definition(), getPRD.Handle)

	updatePRD := tools.NewUpdatePRDTool(engine)
	s.AddTool(updatePRD.Definition(), updatePRD.Handle)

	listPRDs := tools.NewListPRDsTool(engine)
	s.AddTool(listPRDs.Definition(), listPRDs.Handle)

	// --- Story tools ---

	createStory := tools.NewCreateStoryTool(engine)
	s.AddTool(createStory.Definition(), createStory.Handle)

	getStory := tools.NewGetStoryTool(engine)
	s.AddTool(getStory.Definition(), getStory.Handle)

	updateStory := tools.NewUpdateStoryTool(engine)
	s.AddTool(updateStory.Definition(), updateStory.Handle)

	listStories := tools.NewListStoriesTool(engine)
	s.AddTool(listStories.Definition(), listStories.Handle)

	// --- Task tools ---

	createTask := tools.NewCreateTaskTool(engine)
	s.AddTool(createTask.Definition(), createTask.Handle)

	getTask := tools.NewGetTaskTool(engine)
	s.AddTool(getTask.Definition(), getTask.Handle)

	updateTask := tools.NewUpdateTaskTool(engine)
	s.AddTool(updateTask.Definition(), updateTask.Handle)

	listTasks := tools.NewListTasksTool(engine)
	s.AddTool(listTasks.Definition(), listTasks.Handle)

	workload := tools.NewWorkloadTool(engine)
	s.AddTool(workload.Definition(), workload.Handle)

	// --- Comment tools ---

	addComment := tools.NewAddCommentTool(engine)
	s.AddTool(addComment.Definition(), addComment.Handle)

	getComments := tools.NewGetCommentsTool(engine)
	s.AddTool(getComments.Definition(), getComments.Handle)

	// --- Progress and activity tools ---

	projectProgress := tools.NewProjectProgressTool(engine)
	s.AddTool(projectProgress.Definition(), projectProgress.Handle)

	storyProgress := tools.NewStoryProgressTool(engine)
	s.AddTool(storyProgress.Definition(), storyProgress.Handle)

	recentActivity := tools.NewRecentActivityTool(queue)
	s.AddTool(recentActivity.Definition(), recentActivity.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when store initialization failed.
func noop() {}

func serverInstructions() string {
	return `Agentflow is a shared work tracker for multi-agent development teams.

Work is organized in a four-level hierarchy:
  Project → PRD → Story → Task

Typical flow:
1. create_project, then create_prd under it (PRDs start as draft).
2. Break PRDs into stories (create_story) and stories into tasks
   (create_task — every task must be assigned to an agent).
3. Move work through status transitions with update_task/update_story/
   update_prd. Transitions are validated; skipping states is rejected.
4. Tasks may declare depends_on other tasks. Cycles and unknown ids are
   rejected. Completing a task that open tasks depend on succeeds but
   returns an advisory.
5. When all tasks of a story are done the story moves to review
   automatically; when all stories of a PRD are done the PRD completes.
6. Use get_agent_workload, get_project_progress, get_story_progress,
   and get_recent_activity to coordinate.`
}

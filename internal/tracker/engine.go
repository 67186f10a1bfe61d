package tracker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/HendryAvila/agentflow/internal/events"
)

// systemAgent attributes cascaded status changes that no caller asked
// for directly.
const systemAgent = "system"

// Engine enforces the workflow rules on top of the Store: validation,
// status state machines, dependency checks, upward cascades, and event
// emission. All validation runs before any write; a request that fails
// validation leaves the store untouched.
type Engine struct {
	store *Store
	queue *events.Queue
}

// NewEngine wires an Engine over a store and an event queue. The queue
// may be nil; events are then discarded.
func NewEngine(store *Store, queue *events.Queue) *Engine {
	return &Engine{store: store, queue: queue}
}

// Store exposes the underlying store, mainly for composition-root cleanup.
func (e *Engine) Store() *Store { return e.store }

func (e *Engine) publish(typ string, kind EntityKind, entityID, agentID string, data map[string]any) {
	if e.queue == nil {
		return
	}
	e.queue.Push(events.Event{
		Type:       typ,
		EntityKind: string(kind),
		EntityID:   entityID,
		AgentID:    agentID,
		Data:       data,
	})
}

// ─── Projects ────────────────────────────────────────────────────────────────

// CreateProject creates a project with a fresh id.
func (e *Engine) CreateProject(p CreateProjectParams) (*Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, validationError("project name is required")
	}

	now := nowRFC3339()
	project := &Project{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Description: p.Description,
		Metadata:    p.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateProject(project); err != nil {
		return nil, storageError("create project", err)
	}
	e.publish(events.ProjectCreated, KindProject, project.ID, "", map[string]any{"name": project.Name})
	return project, nil
}

// UpdateProject applies a partial update to a project's name,
// description, or metadata.
func (e *Engine) UpdateProject(id string, p UpdateProjectParams, agentID string) (*Project, error) {
	project, err := e.store.GetProject(id)
	if err != nil {
		return nil, storageError("get project", err)
	}
	if project == nil {
		return nil, notFoundError(KindProject, id)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, validationError("project name must not be empty")
	}

	updated, err := e.store.UpdateProject(id, p, nowRFC3339())
	if err != nil {
		return nil, storageError("update project", err)
	}
	e.publish(events.ProjectUpdated, KindProject, id, agentID, nil)
	return updated, nil
}

// GetProject returns a project with descendant counts.
func (e *Engine) GetProject(id string) (*ProjectWithStats, error) {
	project, err := e.store.GetProject(id)
	if err != nil {
		return nil, storageError("get project", err)
	}
	if project == nil {
		return nil, notFoundError(KindProject, id)
	}
	prds, stories, tasks, err := e.store.ProjectCounts(id)
	if err != nil {
		return nil, storageError("count project descendants", err)
	}
	return &ProjectWithStats{
		Project:    *project,
		PRDCount:   prds,
		StoryCount: stories,
		TaskCount:  tasks,
	}, nil
}

// ListProjects returns projects, newest first.
func (e *Engine) ListProjects(limit, offset int) ([]Project, error) {
	projects, err := e.store.ListProjects(limit, offset)
	if err != nil {
		return nil, storageError("list projects", err)
	}
	return projects, nil
}

// ─── PRDs ────────────────────────────────────────────────────────────────────

// CreatePRD creates a PRD in draft status under an existing project.
func (e *Engine) CreatePRD(p CreatePRDParams) (*PRD, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, validationError("PRD title is required")
	}
	parent, err := e.store.GetProject(p.ProjectID)
	if err != nil {
		return nil, storageError("check project", err)
	}
	if parent == nil {
		return nil, integrityError(fmt.Sprintf("project %s does not exist", p.ProjectID))
	}

	now := nowRFC3339()
	prd := &PRD{
		ID:          uuid.NewString(),
		ProjectID:   p.ProjectID,
		Title:       p.Title,
		Description: p.Description,
		Status:      PRDDraft,
		CreatedBy:   p.AgentID,
		Metadata:    p.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreatePRD(prd); err != nil {
		return nil, storageError("create PRD", err)
	}
	e.publish(events.PRDCreated, KindPRD, prd.ID, p.AgentID, map[string]any{"title": prd.Title})
	return prd, nil
}

// GetPRD returns a PRD with descendant counts.
func (e *Engine) GetPRD(id string) (*PRDWithStats, error) {
	prd, err := e.store.GetPRD(id)
	if err != nil {
		return nil, storageError("get PRD", err)
	}
	if prd == nil {
		return nil, notFoundError(KindPRD, id)
	}
	stories, tasks, err := e.store.PRDCounts(id)
	if err != nil {
		return nil, storageError("count PRD descendants", err)
	}
	return &PRDWithStats{PRD: *prd, StoryCount: stories, TaskCount: tasks}, nil
}

// ListPRDs returns PRDs matching the filter.
func (e *Engine) ListPRDs(f PRDFilter) ([]PRD, error) {
	if f.Status != "" {
		if err := ValidatePRDStatus(PRDStatus(f.Status)); err != nil {
			return nil, validationError(err.Error())
		}
	}
	prds, err := e.store.ListPRDs(f)
	if err != nil {
		return nil, storageError("list PRDs", err)
	}
	return prds, nil
}

// UpdatePRD applies a partial update. A status change must be a legal
// transition from the current state.
func (e *Engine) UpdatePRD(id string, p UpdatePRDParams, agentID string) (*PRD, error) {
	prd, err := e.store.GetPRD(id)
	if err != nil {
		return nil, storageError("get PRD", err)
	}
	if prd == nil {
		return nil, notFoundError(KindPRD, id)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, validationError("PRD title must not be empty")
	}

	statusChanged := false
	if p.Status != nil {
		if err := ValidatePRDStatus(*p.Status); err != nil {
			return nil, validationError(err.Error())
		}
		if !CanTransitionPRD(prd.Status, *p.Status) {
			return nil, invalidTransitionError(KindPRD, string(prd.Status), string(*p.Status))
		}
		statusChanged = true
	}

	updated, err := e.store.UpdatePRD(id, p, nowRFC3339())
	if err != nil {
		return nil, storageError("update PRD", err)
	}

	e.publish(events.PRDUpdated, KindPRD, id, agentID, nil)
	if statusChanged {
		e.publish(events.PRDStatusChanged, KindPRD, id, agentID, map[string]any{
			"from": string(prd.Status),
			"to":   string(*p.Status),
		})
	}
	return updated, nil
}

// ─── Stories ─────────────────────────────────────────────────────────────────

// CreateStory creates a story in todo status under an existing PRD.
func (e *Engine) CreateStory(p CreateStoryParams) (*Story, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, validationError("story title is required")
	}
	if p.StoryPoints != nil && *p.StoryPoints < 0 {
		return nil, validationError("story_points must not be negative")
	}
	parent, err := e.store.GetPRD(p.PRDID)
	if err != nil {
		return nil, storageError("check PRD", err)
	}
	if parent == nil {
		return nil, integrityError(fmt.Sprintf("prd %s does not exist", p.PRDID))
	}

	now := nowRFC3339()
	story := &Story{
		ID:                 uuid.NewString(),
		PRDID:              p.PRDID,
		AgentID:            p.AgentID,
		Title:              p.Title,
		Description:        p.Description,
		Status:             StoryTodo,
		AssignedTo:         p.AssignedTo,
		StoryPoints:        p.StoryPoints,
		AcceptanceCriteria: p.AcceptanceCriteria,
		Metadata:           p.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.CreateStory(story); err != nil {
		return nil, storageError("create story", err)
	}
	e.publish(events.StoryCreated, KindStory, story.ID, p.AgentID, map[string]any{"title": story.Title})
	return story, nil
}

// GetStory returns a story with task counts.
func (e *Engine) GetStory(id string) (*StoryWithStats, error) {
	story, err := e.store.GetStory(id)
	if err != nil {
		return nil, storageError("get story", err)
	}
	if story == nil {
		return nil, notFoundError(KindStory, id)
	}
	total, done, err := e.store.StoryTaskCounts(id)
	if err != nil {
		return nil, storageError("count story tasks", err)
	}
	return &StoryWithStats{Story: *story, TaskCount: total, CompletedTasks: done}, nil
}

// ListStories returns stories matching the filter.
func (e *Engine) ListStories(f StoryFilter) ([]Story, error) {
	if f.Status != "" {
		if err := ValidateStoryStatus(StoryStatus(f.Status)); err != nil {
			return nil, validationError(err.Error())
		}
	}
	stories, err := e.store.ListStories(f)
	if err != nil {
		return nil, storageError("list stories", err)
	}
	return stories, nil
}

// UpdateStory applies a partial update. When the story reaches done,
// the owning PRD is reconciled: if every non-archived sibling story is
// done, the PRD completes automatically. A cascade failure after the
// story write committed is reported as IntegrityError alongside the
// updated story; the story write stands.
func (e *Engine) UpdateStory(id string, p UpdateStoryParams, agentID string) (*Story, error) {
	story, err := e.store.GetStory(id)
	if err != nil {
		return nil, storageError("get story", err)
	}
	if story == nil {
		return nil, notFoundError(KindStory, id)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, validationError("story title must not be empty")
	}
	if p.StoryPoints != nil && *p.StoryPoints < 0 {
		return nil, validationError("story_points must not be negative")
	}

	statusChanged := false
	if p.Status != nil {
		if err := ValidateStoryStatus(*p.Status); err != nil {
			return nil, validationError(err.Error())
		}
		if !CanTransitionStory(story.Status, *p.Status) {
			return nil, invalidTransitionError(KindStory, string(story.Status), string(*p.Status))
		}
		statusChanged = true
	}

	updated, err := e.store.UpdateStory(id, p, nowRFC3339())
	if err != nil {
		return nil, storageError("update story", err)
	}

	e.publish(events.StoryUpdated, KindStory, id, agentID, nil)
	if statusChanged {
		e.publish(events.StoryStatusChanged, KindStory, id, agentID, map[string]any{
			"from": string(story.Status),
			"to":   string(*p.Status),
		})
	}

	if statusChanged && *p.Status == StoryDone {
		if err := e.reconcilePRD(story.PRDID); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

// CreateTask creates a task in todo status under an existing story.
// assigned_to is mandatory, and the dependency set is validated against
// the global task graph before anything is written.
func (e *Engine) CreateTask(p CreateTaskParams) (*Task, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, validationError("task title is required")
	}
	if strings.TrimSpace(p.AssignedTo) == "" {
		return nil, validationError("task assigned_to is required")
	}
	parent, err := e.store.GetStory(p.StoryID)
	if err != nil {
		return nil, storageError("check story", err)
	}
	if parent == nil {
		return nil, integrityError(fmt.Sprintf("story %s does not exist", p.StoryID))
	}

	id := uuid.NewString()
	if len(p.DependsOn) > 0 {
		if err := e.checkDependencies(id, p.DependsOn); err != nil {
			return nil, err
		}
	}

	now := nowRFC3339()
	task := &Task{
		ID:          id,
		StoryID:     p.StoryID,
		AgentID:     p.AgentID,
		Title:       p.Title,
		Description: p.Description,
		Status:      TaskTodo,
		AssignedTo:  p.AssignedTo,
		DependsOn:   p.DependsOn,
		Metadata:    p.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateTask(task); err != nil {
		return nil, storageError("create task", err)
	}
	e.publish(events.TaskCreated, KindTask, task.ID, p.AgentID, map[string]any{"title": task.Title})
	return task, nil
}

// GetTask returns a task by id.
func (e *Engine) GetTask(id string) (*Task, error) {
	task, err := e.store.GetTask(id)
	if err != nil {
		return nil, storageError("get task", err)
	}
	if task == nil {
		return nil, notFoundError(KindTask, id)
	}
	return task, nil
}

// ListTasks returns tasks matching the filter.
func (e *Engine) ListTasks(f TaskFilter) ([]Task, error) {
	if f.Status != "" {
		if err := ValidateTaskStatus(TaskStatus(f.Status)); err != nil {
			return nil, validationError(err.Error())
		}
	}
	tasks, err := e.store.ListTasks(f)
	if err != nil {
		return nil, storageError("list tasks", err)
	}
	return tasks, nil
}

// UpdateTask applies a partial update. A nil DependsOn leaves the
// stored dependency set alone; a non-nil one replaces it after global
// graph validation. Completing a task whose dependents are still open
// succeeds but attaches an Advisory naming them. When the task reaches
// done or archived, the owning story is reconciled; a cascade failure
// after the task write committed is reported as IntegrityError
// alongside the updated task.
func (e *Engine) UpdateTask(id string, p UpdateTaskParams, agentID string) (*Task, *Advisory, error) {
	task, err := e.store.GetTask(id)
	if err != nil {
		return nil, nil, storageError("get task", err)
	}
	if task == nil {
		return nil, nil, notFoundError(KindTask, id)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, nil, validationError("task title must not be empty")
	}
	if p.AssignedTo != nil && strings.TrimSpace(*p.AssignedTo) == "" {
		return nil, nil, validationError("task assigned_to must not be empty")
	}
	if p.DependsOn != nil {
		if err := e.checkDependencies(id, p.DependsOn); err != nil {
			return nil, nil, err
		}
	}

	statusChanged := false
	if p.Status != nil {
		if err := ValidateTaskStatus(*p.Status); err != nil {
			return nil, nil, validationError(err.Error())
		}
		if !CanTransitionTask(task.Status, *p.Status) {
			return nil, nil, invalidTransitionError(KindTask, string(task.Status), string(*p.Status))
		}
		statusChanged = true
	}

	updated, err := e.store.UpdateTask(id, p, nowRFC3339())
	if err != nil {
		return nil, nil, storageError("update task", err)
	}

	e.publish(events.TaskUpdated, KindTask, id, agentID, nil)
	if statusChanged {
		e.publish(events.TaskStatusChanged, KindTask, id, agentID, map[string]any{
			"from": string(task.Status),
			"to":   string(*p.Status),
		})
	}

	var advisory *Advisory
	if statusChanged && *p.Status == TaskDone {
		advisory, err = e.dependentAdvisory(id)
		if err != nil {
			return updated, nil, err
		}
	}

	if statusChanged && (*p.Status == TaskDone || *p.Status == TaskArchived) {
		if err := e.reconcileStory(task.StoryID); err != nil {
			return updated, advisory, err
		}
	}
	return updated, advisory, nil
}

// checkDependencies validates a candidate depends_on set against the
// global dependency graph.
func (e *Engine) checkDependencies(taskID string, candidate []string) error {
	edges, err := e.store.DependencyEdges()
	if err != nil {
		return storageError("load dependency edges", err)
	}
	return validateDependencies(taskID, candidate, e.store.TaskExists, edges)
}

// dependentAdvisory collects tasks that depend on taskID and are not
// yet done or archived. Completing a blocker is allowed; the advisory
// just surfaces the dependents left open.
func (e *Engine) dependentAdvisory(taskID string) (*Advisory, error) {
	edges, err := e.store.DependencyEdges()
	if err != nil {
		return nil, storageError("load dependency edges", err)
	}

	var open []string
	for depID, deps := range edges {
		found := false
		for _, d := range deps {
			if d == taskID {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		dep, err := e.store.GetTask(depID)
		if err != nil {
			return nil, storageError("get dependent task", err)
		}
		if dep == nil {
			continue
		}
		if dep.Status != TaskDone && dep.Status != TaskArchived {
			open = append(open, depID)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	sort.Strings(open)
	return &Advisory{
		Message:              fmt.Sprintf("%d dependent task(s) are not yet complete", len(open)),
		IncompleteDependents: open,
	}, nil
}

// ─── Cascades ────────────────────────────────────────────────────────────────

// reconcileStory recomputes a story's status from its tasks and, when
// the story moves to review, does NOT continue upward: review → done is
// a manual decision, so the PRD cascade fires only on that later call.
func (e *Engine) reconcileStory(storyID string) error {
	story, err := e.store.GetStory(storyID)
	if err != nil {
		return storageError("get story for cascade", err)
	}
	if story == nil {
		return integrityError(fmt.Sprintf("story %s vanished during cascade", storyID))
	}

	tasks, err := e.store.TasksByStory(storyID)
	if err != nil {
		return storageError("list tasks for cascade", err)
	}

	next, ok := NextStoryStatus(story.Status, tasks)
	if !ok {
		return nil
	}
	if _, err := e.store.UpdateStory(storyID, UpdateStoryParams{Status: &next}, nowRFC3339()); err != nil {
		return integrityError(fmt.Sprintf("cascade story %s to %s: %v", storyID, next, err))
	}
	e.publish(events.StoryStatusChanged, KindStory, storyID, systemAgent, map[string]any{
		"from": string(story.Status),
		"to":   string(next),
	})
	return nil
}

// reconcilePRD recomputes a PRD's status from its stories.
func (e *Engine) reconcilePRD(prdID string) error {
	prd, err := e.store.GetPRD(prdID)
	if err != nil {
		return storageError("get PRD for cascade", err)
	}
	if prd == nil {
		return integrityError(fmt.Sprintf("prd %s vanished during cascade", prdID))
	}

	stories, err := e.store.StoriesByPRD(prdID)
	if err != nil {
		return storageError("list stories for cascade", err)
	}

	next, ok := NextPRDStatus(prd.Status, stories)
	if !ok {
		return nil
	}
	if _, err := e.store.UpdatePRD(prdID, UpdatePRDParams{Status: &next}, nowRFC3339()); err != nil {
		return integrityError(fmt.Sprintf("cascade prd %s to %s: %v", prdID, next, err))
	}
	e.publish(events.PRDStatusChanged, KindPRD, prdID, systemAgent, map[string]any{
		"from": string(prd.Status),
		"to":   string(next),
	})
	return nil
}

// ─── Comments ────────────────────────────────────────────────────────────────

// AddComment attaches a comment to an existing PRD, story, or task.
func (e *Engine) AddComment(p AddCommentParams) (*Comment, error) {
	if err := ValidateEntityKind(p.EntityKind); err != nil {
		return nil, validationError(err.Error())
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, validationError("comment content is required")
	}
	ctype := p.CommentType
	if ctype == "" {
		ctype = CommentPlain
	}
	if err := ValidateCommentType(ctype); err != nil {
		return nil, validationError(err.Error())
	}

	exists, err := e.entityExists(p.EntityKind, p.EntityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFoundError(p.EntityKind, p.EntityID)
	}

	comment := &Comment{
		ID:          uuid.NewString(),
		EntityKind:  p.EntityKind,
		EntityID:    p.EntityID,
		Author:      p.AgentID,
		Content:     p.Content,
		CommentType: ctype,
		Metadata:    p.Metadata,
		CreatedAt:   nowRFC3339(),
	}
	if err := e.store.CreateComment(comment); err != nil {
		return nil, storageError("create comment", err)
	}
	e.publish(events.CommentCreated, p.EntityKind, p.EntityID, p.AgentID, map[string]any{
		"comment_id":   comment.ID,
		"comment_type": string(ctype),
	})
	return comment, nil
}

// Comments returns an entity's comments, newest first.
func (e *Engine) Comments(kind EntityKind, entityID string, limit, offset int) ([]Comment, error) {
	if err := ValidateEntityKind(kind); err != nil {
		return nil, validationError(err.Error())
	}
	exists, err := e.entityExists(kind, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFoundError(kind, entityID)
	}
	comments, err := e.store.ListComments(kind, entityID, limit, offset)
	if err != nil {
		return nil, storageError("list comments", err)
	}
	return comments, nil
}

func (e *Engine) entityExists(kind EntityKind, id string) (bool, error) {
	switch kind {
	case KindPRD:
		prd, err := e.store.GetPRD(id)
		if err != nil {
			return false, storageError("get PRD", err)
		}
		return prd != nil, nil
	case KindStory:
		story, err := e.store.GetStory(id)
		if err != nil {
			return false, storageError("get story", err)
		}
		return story != nil, nil
	case KindTask:
		task, err := e.store.GetTask(id)
		if err != nil {
			return false, storageError("get task", err)
		}
		return task != nil, nil
	}
	return false, validationError(fmt.Sprintf("invalid entity kind %q", kind))
}

// ─── Workload ────────────────────────────────────────────────────────────────

// Workload summarizes an agent's open tasks and stories. A non-empty
// projectID narrows both to one project; a non-empty status keeps only
// tasks in that status. TasksByStatus is computed over the same task
// set the payload carries.
func (e *Engine) Workload(agentID, projectID string, status TaskStatus) (*AgentWorkload, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, validationError("agent_id is required")
	}
	if status != "" {
		if err := ValidateTaskStatus(status); err != nil {
			return nil, validationError(err.Error())
		}
	}

	tasks, err := e.store.WorkloadTasks(agentID, projectID)
	if err != nil {
		return nil, storageError("load workload tasks", err)
	}
	stories, err := e.store.WorkloadStories(agentID, projectID)
	if err != nil {
		return nil, storageError("load workload stories", err)
	}

	if status != "" {
		filtered := tasks[:0:0]
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	byStatus := make(map[string]int)
	for _, t := range tasks {
		byStatus[string(t.Status)]++
	}

	return &AgentWorkload{
		AgentID:       agentID,
		Tasks:         tasks,
		Stories:       stories,
		TasksByStatus: byStatus,
		TotalTasks:    len(tasks),
		TotalStories:  len(stories),
	}, nil
}

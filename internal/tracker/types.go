// Package tracker implements the work-hierarchy engine for agentflow.
//
// It persists a Project → PRD → Story → Task tree (plus polymorphic
// comments) in SQLite and enforces the workflow rules on top of it:
// status state machines per entity kind, task dependency validation,
// upward status cascades (Task→Story→PRD), and derived progress
// statistics for collaborating agents.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
)

// ─── Status enums ────────────────────────────────────────────────────────────

// PRDStatus is the lifecycle state of a PRD.
type PRDStatus string

const (
	PRDDraft     PRDStatus = "draft"
	PRDActive    PRDStatus = "active"
	PRDCompleted PRDStatus = "completed"
	PRDArchived  PRDStatus = "archived"
)

// validPRDStatuses is the closed set of allowed PRD statuses.
var validPRDStatuses = map[PRDStatus]bool{
	PRDDraft:     true,
	PRDActive:    true,
	PRDCompleted: true,
	PRDArchived:  true,
}

// ValidatePRDStatus returns an error if the status is not recognized.
func ValidatePRDStatus(s PRDStatus) error {
	if !validPRDStatuses[s] {
		return fmt.Errorf("invalid PRD status %q: must be one of: draft, active, completed, archived", s)
	}
	return nil
}

// StoryStatus is the lifecycle state of a Story.
type StoryStatus string

const (
	StoryTodo       StoryStatus = "todo"
	StoryInProgress StoryStatus = "in_progress"
	StoryReview     StoryStatus = "review"
	StoryDone       StoryStatus = "done"
	StoryArchived   StoryStatus = "archived"
)

var validStoryStatuses = map[StoryStatus]bool{
	StoryTodo:       true,
	StoryInProgress: true,
	StoryReview:     true,
	StoryDone:       true,
	StoryArchived:   true,
}

// ValidateStoryStatus returns an error if the status is not recognized.
func ValidateStoryStatus(s StoryStatus) error {
	if !validStoryStatuses[s] {
		return fmt.Errorf("invalid story status %q: must be one of: todo, in_progress, review, done, archived", s)
	}
	return nil
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
	TaskArchived   TaskStatus = "archived"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskTodo:       true,
	TaskInProgress: true,
	TaskBlocked:    true,
	TaskReview:     true,
	TaskDone:       true,
	TaskArchived:   true,
}

// ValidateTaskStatus returns an error if the status is not recognized.
func ValidateTaskStatus(s TaskStatus) error {
	if !validTaskStatuses[s] {
		return fmt.Errorf("invalid task status %q: must be one of: todo, in_progress, blocked, review, done, archived", s)
	}
	return nil
}

// CommentType categorizes a comment.
type CommentType string

const (
	CommentPlain    CommentType = "comment"
	CommentQuestion CommentType = "question"
	CommentDecision CommentType = "decision"
	CommentBlocker  CommentType = "blocker"
)

var validCommentTypes = map[CommentType]bool{
	CommentPlain:    true,
	CommentQuestion: true,
	CommentDecision: true,
	CommentBlocker:  true,
}

// ValidateCommentType returns an error if the type is not recognized.
func ValidateCommentType(t CommentType) error {
	if !validCommentTypes[t] {
		return fmt.Errorf("invalid comment type %q: must be one of: comment, question, decision, blocker", t)
	}
	return nil
}

// EntityKind names the entity kinds comments can attach to.
// KindProject exists for error reporting; comments cannot attach to it.
type EntityKind string

const (
	KindProject EntityKind = "project"
	KindPRD     EntityKind = "prd"
	KindStory   EntityKind = "story"
	KindTask    EntityKind = "task"
)

var validEntityKinds = map[EntityKind]bool{
	KindPRD:   true,
	KindStory: true,
	KindTask:  true,
}

// ValidateEntityKind returns an error if the kind is not recognized.
func ValidateEntityKind(k EntityKind) error {
	if !validEntityKinds[k] {
		return fmt.Errorf("invalid entity kind %q: must be one of: prd, story, task", k)
	}
	return nil
}

// ─── Entities ────────────────────────────────────────────────────────────────

// Project is the root container of the hierarchy. Projects carry no status.
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// PRD is a Product Requirement Document under a project.
type PRD struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      PRDStatus      `json:"status"`
	CreatedBy   string         `json:"created_by"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// Story is a user story under a PRD.
type Story struct {
	ID                 string         `json:"id"`
	PRDID              string         `json:"prd_id"`
	AgentID            string         `json:"agent_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	Status             StoryStatus    `json:"status"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	StoryPoints        *int           `json:"story_points,omitempty"`
	AcceptanceCriteria string         `json:"acceptance_criteria,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

// Task is an atomic unit of work under a story. AssignedTo is mandatory.
// DependsOn holds ids of tasks that must be started before this one.
type Task struct {
	ID          string         `json:"id"`
	StoryID     string         `json:"story_id"`
	AgentID     string         `json:"agent_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      TaskStatus     `json:"status"`
	AssignedTo  string         `json:"assigned_to"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

// Comment attaches to a PRD, story, or task.
type Comment struct {
	ID          string         `json:"id"`
	EntityKind  EntityKind     `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Author      string         `json:"author"`
	Content     string         `json:"content"`
	CommentType CommentType    `json:"comment_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// ─── Create / update parameters ──────────────────────────────────────────────

// CreateProjectParams holds the input for creating a project.
type CreateProjectParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateProjectParams holds partial update fields for a project.
// Nil pointers leave the stored value unchanged.
type UpdateProjectParams struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreatePRDParams holds the input for creating a PRD.
type CreatePRDParams struct {
	ProjectID   string         `json:"project_id"`
	AgentID     string         `json:"agent_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdatePRDParams holds partial update fields for a PRD.
type UpdatePRDParams struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *PRDStatus     `json:"status,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreateStoryParams holds the input for creating a story.
type CreateStoryParams struct {
	PRDID              string         `json:"prd_id"`
	AgentID            string         `json:"agent_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	AcceptanceCriteria string         `json:"acceptance_criteria,omitempty"`
	StoryPoints        *int           `json:"story_points,omitempty"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// UpdateStoryParams holds partial update fields for a story.
type UpdateStoryParams struct {
	Title              *string        `json:"title,omitempty"`
	Description        *string        `json:"description,omitempty"`
	Status             *StoryStatus   `json:"status,omitempty"`
	AssignedTo         *string        `json:"assigned_to,omitempty"`
	StoryPoints        *int           `json:"story_points,omitempty"`
	AcceptanceCriteria *string        `json:"acceptance_criteria,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// CreateTaskParams holds the input for creating a task.
type CreateTaskParams struct {
	StoryID     string         `json:"story_id"`
	AgentID     string         `json:"agent_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  string         `json:"assigned_to"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateTaskParams holds partial update fields for a task.
// A nil DependsOn leaves the stored dependency set unchanged;
// an empty non-nil slice clears it.
type UpdateTaskParams struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *TaskStatus    `json:"status,omitempty"`
	AssignedTo  *string        `json:"assigned_to,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AddCommentParams holds the input for attaching a comment to an entity.
type AddCommentParams struct {
	EntityKind  EntityKind     `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	AgentID     string         `json:"agent_id"`
	Content     string         `json:"content"`
	CommentType CommentType    `json:"comment_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ─── List filters ────────────────────────────────────────────────────────────

// PRDFilter selects PRDs in list queries. Zero values mean "no filter".
type PRDFilter struct {
	ProjectID string
	Status    string
	CreatedBy string
	Limit     int
	Offset    int
}

// StoryFilter selects stories in list queries.
type StoryFilter struct {
	PRDID      string
	Status     string
	AssignedTo string
	Limit      int
	Offset     int
}

// TaskFilter selects tasks in list queries.
type TaskFilter struct {
	StoryID    string
	Status     string
	AssignedTo string
	Limit      int
	Offset     int
}

// ─── Derived read models ─────────────────────────────────────────────────────

// ProjectWithStats is a project enriched with descendant counts.
type ProjectWithStats struct {
	Project
	PRDCount   int `json:"prd_count"`
	StoryCount int `json:"story_count"`
	TaskCount  int `json:"task_count"`
}

// PRDWithStats is a PRD enriched with descendant counts.
type PRDWithStats struct {
	PRD
	StoryCount int `json:"story_count"`
	TaskCount  int `json:"task_count"`
}

// StoryWithStats is a story enriched with task counts.
type StoryWithStats struct {
	Story
	TaskCount      int `json:"task_count"`
	CompletedTasks int `json:"completed_tasks"`
}

// TaskWithContext is a task enriched with its story, PRD, and project
// context, used for agent workload queries.
type TaskWithContext struct {
	Task
	StoryTitle string `json:"story_title"`
	PRDTitle   string `json:"prd_title"`
	ProjectID  string `json:"project_id"`
}

// AgentWorkload summarizes the open work assigned to one agent.
type AgentWorkload struct {
	AgentID       string            `json:"agent_id"`
	Tasks         []TaskWithContext `json:"tasks"`
	Stories       []Story           `json:"stories"`
	TasksByStatus map[string]int    `json:"tasks_by_status"`
	TotalTasks    int               `json:"total_tasks"`
	TotalStories  int               `json:"total_stories"`
}

// StoryProgress reports completion statistics for a single story.
type StoryProgress struct {
	Story                Story   `json:"story"`
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	InProgressTasks      int     `json:"in_progress_tasks"`
	BlockedTasks         int     `json:"blocked_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// ProjectProgress reports aggregate statistics across a whole project.
type ProjectProgress struct {
	ProjectID            string         `json:"project_id"`
	TotalPRDs            int            `json:"total_prds"`
	TotalStories         int            `json:"total_stories"`
	TotalTasks           int            `json:"total_tasks"`
	StoriesByStatus      map[string]int `json:"stories_by_status"`
	TasksByStatus        map[string]int `json:"tasks_by_status"`
	TasksByAgent         map[string]int `json:"tasks_by_agent"`
	CompletionPercentage float64        `json:"completion_percentage"`
}

// Advisory is a non-blocking warning attached to a successful transition.
// It is set when a task is completed while other tasks that depend on it
// are still incomplete — allowed, but worth surfacing to the caller.
type Advisory struct {
	Message              string   `json:"message"`
	IncompleteDependents []string `json:"incomplete_dependents"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds tracker store configuration.
type Config struct {
	// DataDir is where the SQLite database lives.
	DataDir string
	// DBPath, when set, overrides DataDir entirely.
	DBPath string
}

// DefaultConfig resolves the data directory from AGENTFLOW_DATA_DIR
// (fallback ~/.agentflow) and an optional AGENTFLOW_DB_PATH override.
func DefaultConfig() Config {
	cfg := Config{DBPath: os.Getenv("AGENTFLOW_DB_PATH")}
	if dir := os.Getenv("AGENTFLOW_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
		return cfg
	}
	home, _ := os.UserHomeDir()
	cfg.DataDir = filepath.Join(home, ".agentflow")
	return cfg
}

package tracker_test

import (
	"testing"

	"github.com/HendryAvila/agentflow/internal/tracker"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *tracker.Store {
	t.Helper()
	s, err := tracker.NewStore(tracker.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProject(t *testing.T, s *tracker.Store, id string) {
	t.Helper()
	err := s.CreateProject(&tracker.Project{
		ID: id, Name: "Project " + id,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

func seedPRD(t *testing.T, s *tracker.Store, id, projectID string) {
	t.Helper()
	err := s.CreatePRD(&tracker.PRD{
		ID: id, ProjectID: projectID, Title: "PRD " + id,
		Status: tracker.PRDDraft, CreatedBy: "agent-1",
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed prd %s: %v", id, err)
	}
}

func seedStory(t *testing.T, s *tracker.Store, id, prdID string) {
	t.Helper()
	err := s.CreateStory(&tracker.Story{
		ID: id, PRDID: prdID, AgentID: "agent-1", Title: "Story " + id,
		Status:    tracker.StoryTodo,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed story %s: %v", id, err)
	}
}

func seedTask(t *testing.T, s *tracker.Store, id, storyID string, deps ...string) {
	t.Helper()
	err := s.CreateTask(&tracker.Task{
		ID: id, StoryID: storyID, AgentID: "agent-1", Title: "Task " + id,
		Status: tracker.TaskTodo, AssignedTo: "agent-2", DependsOn: deps,
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
}

// ─── Projects ────────────────────────────────────────────────────────────────

func TestStore_ProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	project := &tracker.Project{
		ID: "p1", Name: "Checkout", Description: "Payments rework",
		Metadata:  map[string]any{"team": "payments"},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	if err := s.CreateProject(project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := s.GetProject("p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got == nil {
		t.Fatal("GetProject returned nil for existing project")
	}
	if got.Name != "Checkout" || got.Description != "Payments rework" {
		t.Errorf("got %+v", got)
	}
	if got.Metadata["team"] != "payments" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestStore_CreateProject_BadMetadata(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateProject(&tracker.Project{
		ID: "p1", Name: "Checkout",
		Metadata:  map[string]any{"bad": make(chan int)},
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err == nil {
		t.Fatal("expected error for unencodable metadata")
	}
	if got, _ := s.GetProject("p1"); got != nil {
		t.Errorf("project was written despite metadata error: %+v", got)
	}
}

func TestStore_GetProject_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetProject("nope")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing id", got)
	}
}

func TestStore_UpdateProject_Partial(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")

	name := "Renamed"
	got, err := s.UpdateProject("p1", tracker.UpdateProjectParams{Name: &name}, "2026-02-01T00:00:00Z")
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q", got.Name)
	}
	if got.UpdatedAt != "2026-02-01T00:00:00Z" {
		t.Errorf("updated_at = %q, want bumped", got.UpdatedAt)
	}
	if got.CreatedAt != "2026-01-01T00:00:00Z" {
		t.Errorf("created_at = %q, want untouched", got.CreatedAt)
	}
}

func TestStore_ListProjects_Pagination(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"p1", "p2", "p3"} {
		err := s.CreateProject(&tracker.Project{
			ID: id, Name: id,
			CreatedAt: "2026-01-0" + string(rune('1'+i)) + "T00:00:00Z",
			UpdatedAt: "2026-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	page, err := s.ListProjects(2, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(page) != 2 || page[0].ID != "p3" || page[1].ID != "p2" {
		t.Errorf("page = %+v, want p3,p2 (newest first)", page)
	}

	rest, err := s.ListProjects(2, 2)
	if err != nil {
		t.Fatalf("ListProjects offset: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "p1" {
		t.Errorf("rest = %+v, want p1", rest)
	}
}

// ─── Referential integrity ───────────────────────────────────────────────────

func TestStore_CreatePRD_MissingProjectRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.CreatePRD(&tracker.PRD{
		ID: "d1", ProjectID: "ghost", Title: "x",
		Status: tracker.PRDDraft, CreatedBy: "a",
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	if err == nil {
		t.Fatal("create with nonexistent parent should fail the foreign key")
	}
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

func TestStore_TaskDependsOnRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1", "t1")

	got, err := s.GetTask("t2")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(got.DependsOn) != 1 || got.DependsOn[0] != "t1" {
		t.Errorf("depends_on = %v, want [t1]", got.DependsOn)
	}
}

func TestStore_UpdateTask_NilDependsOnUnchanged(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1", "t1")

	title := "renamed"
	got, err := s.UpdateTask("t2", tracker.UpdateTaskParams{Title: &title}, "2026-02-01T00:00:00Z")
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if len(got.DependsOn) != 1 {
		t.Errorf("nil DependsOn should leave deps alone, got %v", got.DependsOn)
	}

	got, err = s.UpdateTask("t2", tracker.UpdateTaskParams{DependsOn: []string{}}, "2026-02-01T00:00:00Z")
	if err != nil {
		t.Fatalf("UpdateTask clear: %v", err)
	}
	if len(got.DependsOn) != 0 {
		t.Errorf("empty DependsOn should clear deps, got %v", got.DependsOn)
	}
}

func TestStore_ListTasks_Filters(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedStory(t, s, "s2", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1")
	seedTask(t, s, "t3", "s2")

	status := tracker.TaskInProgress
	if _, err := s.UpdateTask("t1", tracker.UpdateTaskParams{Status: &status}, "2026-02-01T00:00:00Z"); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	byStory, err := s.ListTasks(tracker.TaskFilter{StoryID: "s1"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(byStory) != 2 {
		t.Errorf("by story = %d tasks, want 2", len(byStory))
	}

	byStatus, err := s.ListTasks(tracker.TaskFilter{Status: "in_progress"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "t1" {
		t.Errorf("by status = %+v, want [t1]", byStatus)
	}

	byAgent, err := s.ListTasks(tracker.TaskFilter{AssignedTo: "agent-2"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(byAgent) != 3 {
		t.Errorf("by agent = %d tasks, want 3", len(byAgent))
	}
}

func TestStore_DependencyEdges(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1", "t1")

	edges, err := s.DependencyEdges()
	if err != nil {
		t.Fatalf("DependencyEdges: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("edges = %v, want both tasks present", edges)
	}
	if len(edges["t2"]) != 1 || edges["t2"][0] != "t1" {
		t.Errorf("edges[t2] = %v, want [t1]", edges["t2"])
	}
	if len(edges["t1"]) != 0 {
		t.Errorf("edges[t1] = %v, want empty", edges["t1"])
	}
}

// ─── Cascade delete ──────────────────────────────────────────────────────────

func TestStore_DeletePRD_RemovesSubtreeAndComments(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")

	for _, c := range []tracker.Comment{
		{ID: "c1", EntityKind: tracker.KindPRD, EntityID: "d1", Author: "a", Content: "x", CommentType: tracker.CommentPlain, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "c2", EntityKind: tracker.KindStory, EntityID: "s1", Author: "a", Content: "x", CommentType: tracker.CommentPlain, CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: "c3", EntityKind: tracker.KindTask, EntityID: "t1", Author: "a", Content: "x", CommentType: tracker.CommentPlain, CreatedAt: "2026-01-01T00:00:00Z"},
	} {
		if err := s.CreateComment(&c); err != nil {
			t.Fatalf("CreateComment %s: %v", c.ID, err)
		}
	}

	if err := s.DeletePRD("d1"); err != nil {
		t.Fatalf("DeletePRD: %v", err)
	}

	if got, _ := s.GetPRD("d1"); got != nil {
		t.Error("prd should be gone")
	}
	if got, _ := s.GetStory("s1"); got != nil {
		t.Error("story should be cascade-deleted")
	}
	if got, _ := s.GetTask("t1"); got != nil {
		t.Error("task should be cascade-deleted")
	}
	for _, ref := range []struct {
		kind tracker.EntityKind
		id   string
	}{
		{tracker.KindPRD, "d1"}, {tracker.KindStory, "s1"}, {tracker.KindTask, "t1"},
	} {
		comments, err := s.ListComments(ref.kind, ref.id, 10, 0)
		if err != nil {
			t.Fatalf("ListComments: %v", err)
		}
		if len(comments) != 0 {
			t.Errorf("comments for %s %s should be gone, got %d", ref.kind, ref.id, len(comments))
		}
	}

	// Siblings in other projects are untouched.
	if got, _ := s.GetProject("p1"); got == nil {
		t.Error("project should survive PRD deletion")
	}
}

// ─── Aggregates ──────────────────────────────────────────────────────────────

func TestStore_ProjectCounts(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedPRD(t, s, "d2", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1")

	prds, stories, tasks, err := s.ProjectCounts("p1")
	if err != nil {
		t.Fatalf("ProjectCounts: %v", err)
	}
	if prds != 2 || stories != 1 || tasks != 2 {
		t.Errorf("counts = (%d, %d, %d), want (2, 1, 2)", prds, stories, tasks)
	}
}

func TestStore_StoryTaskCounts(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1")

	done := tracker.TaskDone
	// Walk t1 through the legal chain to done.
	for _, st := range []tracker.TaskStatus{tracker.TaskInProgress, tracker.TaskReview, done} {
		s2 := st
		if _, err := s.UpdateTask("t1", tracker.UpdateTaskParams{Status: &s2}, "2026-02-01T00:00:00Z"); err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}
	}

	total, doneCount, err := s.StoryTaskCounts("s1")
	if err != nil {
		t.Fatalf("StoryTaskCounts: %v", err)
	}
	if total != 2 || doneCount != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", total, doneCount)
	}
}

func TestStore_WorkloadTasks_ExcludesClosed(t *testing.T) {
	s := newTestStore(t)
	seedProject(t, s, "p1")
	seedPRD(t, s, "d1", "p1")
	seedStory(t, s, "s1", "d1")
	seedTask(t, s, "t1", "s1")
	seedTask(t, s, "t2", "s1")

	for _, st := range []tracker.TaskStatus{tracker.TaskInProgress, tracker.TaskReview, tracker.TaskDone} {
		s2 := st
		if _, err := s.UpdateTask("t2", tracker.UpdateTaskParams{Status: &s2}, "2026-02-01T00:00:00Z"); err != nil {
			t.Fatalf("UpdateTask: %v", err)
		}
	}

	tasks, err := s.WorkloadTasks("agent-2", "")
	if err != nil {
		t.Fatalf("WorkloadTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("workload = %+v, want only t1", tasks)
	}
	if tasks[0].StoryTitle != "Story s1" || tasks[0].PRDTitle != "PRD d1" || tasks[0].ProjectID != "p1" {
		t.Errorf("context = %q / %q / %q", tasks[0].StoryTitle, tasks[0].PRDTitle, tasks[0].ProjectID)
	}
}

package tracker

import (
	"testing"
	"time"
)

func init() {
	// Freeze time for deterministic timestamps.
	timeNow = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
}

// --- Transition tables ---

func TestCanTransitionPRD_HappyPath(t *testing.T) {
	steps := []struct {
		from, to PRDStatus
	}{
		{PRDDraft, PRDActive},
		{PRDActive, PRDCompleted},
		{PRDCompleted, PRDArchived},
	}
	for _, s := range steps {
		if !CanTransitionPRD(s.from, s.to) {
			t.Errorf("CanTransitionPRD(%s, %s) = false, want true", s.from, s.to)
		}
	}
}

func TestCanTransitionPRD_Rejected(t *testing.T) {
	steps := []struct {
		from, to PRDStatus
	}{
		{PRDDraft, PRDCompleted}, // skip-ahead
		{PRDCompleted, PRDDraft}, // backwards
		{PRDArchived, PRDActive}, // archived is terminal
		{PRDActive, PRDActive},   // self-transition
	}
	for _, s := range steps {
		if CanTransitionPRD(s.from, s.to) {
			t.Errorf("CanTransitionPRD(%s, %s) = true, want false", s.from, s.to)
		}
	}
}

func TestCanTransitionStory_Reopen(t *testing.T) {
	if !CanTransitionStory(StoryInProgress, StoryTodo) {
		t.Error("in_progress → todo should be allowed")
	}
	if CanTransitionStory(StoryReview, StoryTodo) {
		t.Error("review → todo should be rejected")
	}
}

func TestCanTransitionStory_Rejected(t *testing.T) {
	steps := []struct {
		from, to StoryStatus
	}{
		{StoryTodo, StoryDone},     // skip-ahead
		{StoryDone, StoryReview},   // backwards
		{StoryArchived, StoryTodo}, // archived is terminal
		{StoryTodo, StoryTodo},     // self-transition
	}
	for _, s := range steps {
		if CanTransitionStory(s.from, s.to) {
			t.Errorf("CanTransitionStory(%s, %s) = true, want false", s.from, s.to)
		}
	}
}

func TestCanTransitionTask_BlockUnblock(t *testing.T) {
	if !CanTransitionTask(TaskInProgress, TaskBlocked) {
		t.Error("in_progress → blocked should be allowed")
	}
	if !CanTransitionTask(TaskBlocked, TaskInProgress) {
		t.Error("blocked → in_progress should be allowed")
	}
	if CanTransitionTask(TaskTodo, TaskBlocked) {
		t.Error("todo → blocked should be rejected")
	}
	if CanTransitionTask(TaskBlocked, TaskDone) {
		t.Error("blocked → done should be rejected")
	}
}

func TestCanTransitionTask_AnyToArchived(t *testing.T) {
	for _, from := range []TaskStatus{TaskTodo, TaskInProgress, TaskBlocked, TaskReview, TaskDone} {
		if !CanTransitionTask(from, TaskArchived) {
			t.Errorf("%s → archived should be allowed", from)
		}
	}
	if CanTransitionTask(TaskArchived, TaskTodo) {
		t.Error("archived → todo should be rejected")
	}
}

// --- Cascade reconciliation ---

func taskWith(status TaskStatus) Task {
	return Task{ID: "t-" + string(status), Status: status}
}

func TestNextStoryStatus_AllDone(t *testing.T) {
	tasks := []Task{taskWith(TaskDone), taskWith(TaskDone)}
	next, ok := NextStoryStatus(StoryInProgress, tasks)
	if !ok || next != StoryReview {
		t.Errorf("NextStoryStatus = (%s, %v), want (review, true)", next, ok)
	}
}

func TestNextStoryStatus_IgnoresArchivedTasks(t *testing.T) {
	tasks := []Task{taskWith(TaskDone), taskWith(TaskArchived)}
	next, ok := NextStoryStatus(StoryTodo, tasks)
	if !ok || next != StoryReview {
		t.Errorf("NextStoryStatus = (%s, %v), want (review, true)", next, ok)
	}
}

func TestNextStoryStatus_OpenTaskBlocksCascade(t *testing.T) {
	tasks := []Task{taskWith(TaskDone), taskWith(TaskInProgress)}
	if _, ok := NextStoryStatus(StoryInProgress, tasks); ok {
		t.Error("cascade should not fire with an open task")
	}
}

func TestNextStoryStatus_NoTasks(t *testing.T) {
	if _, ok := NextStoryStatus(StoryTodo, nil); ok {
		t.Error("cascade should not fire with no tasks")
	}
	// All-archived is the same as empty.
	if _, ok := NextStoryStatus(StoryTodo, []Task{taskWith(TaskArchived)}); ok {
		t.Error("cascade should not fire with only archived tasks")
	}
}

func TestNextStoryStatus_ManualStatesUntouched(t *testing.T) {
	tasks := []Task{taskWith(TaskDone)}
	for _, current := range []StoryStatus{StoryReview, StoryDone, StoryArchived} {
		if _, ok := NextStoryStatus(current, tasks); ok {
			t.Errorf("cascade should not fire from %s", current)
		}
	}
}

func storyWith(status StoryStatus) Story {
	return Story{ID: "s-" + string(status), Status: status}
}

func TestNextPRDStatus_AllStoriesDone(t *testing.T) {
	stories := []Story{storyWith(StoryDone), storyWith(StoryDone)}
	next, ok := NextPRDStatus(PRDActive, stories)
	if !ok || next != PRDCompleted {
		t.Errorf("NextPRDStatus = (%s, %v), want (completed, true)", next, ok)
	}
}

func TestNextPRDStatus_FiresFromDraft(t *testing.T) {
	stories := []Story{storyWith(StoryDone)}
	next, ok := NextPRDStatus(PRDDraft, stories)
	if !ok || next != PRDCompleted {
		t.Errorf("NextPRDStatus = (%s, %v), want (completed, true)", next, ok)
	}
}

func TestNextPRDStatus_OpenStoryBlocksCascade(t *testing.T) {
	stories := []Story{storyWith(StoryDone), storyWith(StoryReview)}
	if _, ok := NextPRDStatus(PRDActive, stories); ok {
		t.Error("cascade should not fire with an open story")
	}
}

func TestNextPRDStatus_CompletedUntouched(t *testing.T) {
	stories := []Story{storyWith(StoryDone)}
	for _, current := range []PRDStatus{PRDCompleted, PRDArchived} {
		if _, ok := NextPRDStatus(current, stories); ok {
			t.Errorf("cascade should not fire from %s", current)
		}
	}
}

package tracker

import "slices"

// --- Status state machines ---
//
// Each entity kind has a closed transition table: a request is allowed
// only when (from, to) appears in the table. There is no skip-ahead and
// no self-transition; "archived" is reachable from every non-terminal
// state and is itself terminal.

// prdTransitions: draft → active → completed → archived.
var prdTransitions = map[PRDStatus][]PRDStatus{
	PRDDraft:     {PRDActive, PRDArchived},
	PRDActive:    {PRDCompleted, PRDArchived},
	PRDCompleted: {PRDArchived},
	PRDArchived:  {},
}

// storyTransitions: todo → in_progress → review → done → archived,
// with in_progress → todo as an explicit reopen edge.
var storyTransitions = map[StoryStatus][]StoryStatus{
	StoryTodo:       {StoryInProgress, StoryArchived},
	StoryInProgress: {StoryReview, StoryTodo, StoryArchived},
	StoryReview:     {StoryDone, StoryArchived},
	StoryDone:       {StoryArchived},
	StoryArchived:   {},
}

// taskTransitions: todo → in_progress → review → done → archived, with
// in_progress ↔ blocked for blocking and unblocking.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskTodo:       {TaskInProgress, TaskArchived},
	TaskInProgress: {TaskReview, TaskBlocked, TaskArchived},
	TaskBlocked:    {TaskInProgress, TaskArchived},
	TaskReview:     {TaskDone, TaskArchived},
	TaskDone:       {TaskArchived},
	TaskArchived:   {},
}

// CanTransitionPRD reports whether a PRD may move from one status to another.
func CanTransitionPRD(from, to PRDStatus) bool {
	return slices.Contains(prdTransitions[from], to)
}

// CanTransitionStory reports whether a story may move from one status to another.
func CanTransitionStory(from, to StoryStatus) bool {
	return slices.Contains(storyTransitions[from], to)
}

// CanTransitionTask reports whether a task may move from one status to another.
func CanTransitionTask(from, to TaskStatus) bool {
	return slices.Contains(taskTransitions[from], to)
}

// --- Cascade reconciliation ---
//
// Pure functions of (parent status, child statuses): the engine calls
// them after a child reaches a terminal state and applies the returned
// status when ok is true. Keeping them free of storage makes the
// cascade rules testable in isolation.

// NextStoryStatus computes the automatic status for a story after its
// tasks changed. When every non-archived task is done (and at least one
// exists) and the story is still todo or in_progress, the story moves
// to review. A story already in review, done, or archived is left alone
// so manual decisions are never clobbered.
func NextStoryStatus(current StoryStatus, tasks []Task) (StoryStatus, bool) {
	if current != StoryTodo && current != StoryInProgress {
		return current, false
	}

	live := 0
	for _, t := range tasks {
		if t.Status == TaskArchived {
			continue
		}
		if t.Status != TaskDone {
			return current, false
		}
		live++
	}
	if live == 0 {
		return current, false
	}
	return StoryReview, true
}

// NextPRDStatus computes the automatic status for a PRD after its
// stories changed. When every non-archived story is done (and at least
// one exists) and the PRD is still draft or active, the PRD completes.
func NextPRDStatus(current PRDStatus, stories []Story) (PRDStatus, bool) {
	if current != PRDDraft && current != PRDActive {
		return current, false
	}

	live := 0
	for _, st := range stories {
		if st.Status == StoryArchived {
			continue
		}
		if st.Status != StoryDone {
			return current, false
		}
		live++
	}
	if live == 0 {
		return current, false
	}
	return PRDCompleted, true
}

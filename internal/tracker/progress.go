package tracker

// Progress is derived state, recomputed on read from stored entities.
// Completion is done/total*100; a story or project with no tasks is
// 0.0 percent complete, never a division error.

// ProjectProgressFor aggregates status and assignee breakdowns across
// every PRD, story, and task under a project.
func (e *Engine) ProjectProgressFor(projectID string) (*ProjectProgress, error) {
	project, err := e.store.GetProject(projectID)
	if err != nil {
		return nil, storageError("get project", err)
	}
	if project == nil {
		return nil, notFoundError(KindProject, projectID)
	}

	prds, stories, tasks, err := e.store.ProjectCounts(projectID)
	if err != nil {
		return nil, storageError("count project descendants", err)
	}
	storiesByStatus, err := e.store.ProjectStoryStatusCounts(projectID)
	if err != nil {
		return nil, storageError("count stories by status", err)
	}
	tasksByStatus, err := e.store.ProjectTaskStatusCounts(projectID)
	if err != nil {
		return nil, storageError("count tasks by status", err)
	}
	tasksByAgent, err := e.store.ProjectTaskAgentCounts(projectID)
	if err != nil {
		return nil, storageError("count tasks by agent", err)
	}

	return &ProjectProgress{
		ProjectID:            projectID,
		TotalPRDs:            prds,
		TotalStories:         stories,
		TotalTasks:           tasks,
		StoriesByStatus:      storiesByStatus,
		TasksByStatus:        tasksByStatus,
		TasksByAgent:         tasksByAgent,
		CompletionPercentage: completionPct(tasksByStatus[string(TaskDone)], tasks),
	}, nil
}

// StoryProgressFor reports a single story's task completion.
func (e *Engine) StoryProgressFor(storyID string) (*StoryProgress, error) {
	story, err := e.store.GetStory(storyID)
	if err != nil {
		return nil, storageError("get story", err)
	}
	if story == nil {
		return nil, notFoundError(KindStory, storyID)
	}

	byStatus, err := e.store.StoryTaskStatusCounts(storyID)
	if err != nil {
		return nil, storageError("count story tasks", err)
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	done := byStatus[string(TaskDone)]

	return &StoryProgress{
		Story:                *story,
		TotalTasks:           total,
		CompletedTasks:       done,
		InProgressTasks:      byStatus[string(TaskInProgress)],
		BlockedTasks:         byStatus[string(TaskBlocked)],
		CompletionPercentage: completionPct(done, total),
	}, nil
}

func completionPct(done, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(done) / float64(total) * 100.0
}

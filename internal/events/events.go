// Package events provides an in-memory, bounded event queue for
// activity tracking. Events describe what happened to which entity and
// who did it; they are advisory and never block or fail a mutation.
package events

import (
	"sync"
	"time"
)

// Event types emitted by the tracker engine.
const (
	ProjectCreated     = "project.created"
	ProjectUpdated     = "project.updated"
	PRDCreated         = "prd.created"
	PRDUpdated         = "prd.updated"
	PRDStatusChanged   = "prd.status_changed"
	StoryCreated       = "story.created"
	StoryUpdated       = "story.updated"
	StoryStatusChanged = "story.status_changed"
	TaskCreated        = "task.created"
	TaskUpdated        = "task.updated"
	TaskStatusChanged  = "task.status_changed"
	CommentCreated     = "comment.created"
)

// Event records one thing that happened.
type Event struct {
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	AgentID    string         `json:"agent_id"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Queue is a thread-safe ring of recent events. When full, the oldest
// event is dropped.
type Queue struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewQueue creates a queue holding at most max events. A non-positive
// max falls back to 1000.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 1000
	}
	return &Queue{max: max}
}

// Push appends an event, evicting the oldest when the queue is full.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	q.events = append(q.events, e)
	if len(q.events) > q.max {
		q.events = q.events[len(q.events)-q.max:]
	}
}

// Recent returns up to limit events, newest first.
func (q *Queue) Recent(limit int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filter(limit, func(Event) bool { return true })
}

// ByAgent returns up to limit events attributed to an agent, newest first.
func (q *Queue) ByAgent(agentID string, limit int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filter(limit, func(e Event) bool { return e.AgentID == agentID })
}

// ByEntity returns up to limit events for one entity, newest first.
func (q *Queue) ByEntity(entityID string, limit int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filter(limit, func(e Event) bool { return e.EntityID == entityID })
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// filter walks the buffer backwards so results come out newest first.
// Callers hold q.mu.
func (q *Queue) filter(limit int, keep func(Event) bool) []Event {
	if limit <= 0 {
		limit = 50
	}
	out := make([]Event, 0, limit)
	for i := len(q.events) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(q.events[i]) {
			out = append(out, q.events[i])
		}
	}
	return out
}

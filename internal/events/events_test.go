package events

import (
	"fmt"
	"testing"
)

func pushN(q *Queue, n int, agentID string) {
	for i := 0; i < n; i++ {
		q.Push(Event{
			Type:     TaskUpdated,
			EntityID: fmt.Sprintf("t%d", i),
			AgentID:  agentID,
		})
	}
}

func TestQueue_RecentNewestFirst(t *testing.T) {
	q := NewQueue(10)
	pushN(q, 3, "a")

	got := q.Recent(10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].EntityID != "t2" || got[2].EntityID != "t0" {
		t.Errorf("order = %s..%s, want t2..t0", got[0].EntityID, got[2].EntityID)
	}
}

func TestQueue_BoundedEviction(t *testing.T) {
	q := NewQueue(5)
	pushN(q, 8, "a")

	if q.Len() != 5 {
		t.Fatalf("len = %d, want 5 after eviction", q.Len())
	}
	got := q.Recent(10)
	if got[len(got)-1].EntityID != "t3" {
		t.Errorf("oldest = %s, want t3 (t0-t2 evicted)", got[len(got)-1].EntityID)
	}
}

func TestQueue_ByAgent(t *testing.T) {
	q := NewQueue(10)
	pushN(q, 2, "alice")
	pushN(q, 3, "bob")

	got := q.ByAgent("alice", 10)
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	for _, e := range got {
		if e.AgentID != "alice" {
			t.Errorf("agent = %s, want alice", e.AgentID)
		}
	}
}

func TestQueue_ByEntity(t *testing.T) {
	q := NewQueue(10)
	q.Push(Event{Type: TaskCreated, EntityID: "t1", AgentID: "a"})
	q.Push(Event{Type: TaskStatusChanged, EntityID: "t1", AgentID: "a"})
	q.Push(Event{Type: TaskCreated, EntityID: "t2", AgentID: "a"})

	got := q.ByEntity("t1", 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != TaskStatusChanged {
		t.Errorf("newest = %s, want %s", got[0].Type, TaskStatusChanged)
	}
}

func TestQueue_LimitApplied(t *testing.T) {
	q := NewQueue(10)
	pushN(q, 6, "a")

	if got := q.Recent(2); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestQueue_TimestampDefaulted(t *testing.T) {
	q := NewQueue(10)
	q.Push(Event{Type: ProjectCreated, EntityID: "p1"})

	got := q.Recent(1)
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp should be set on push")
	}
}

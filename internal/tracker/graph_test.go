package tracker

import (
	"errors"
	"slices"
	"testing"
)

// --- findCycle ---

func TestFindCycle_Acyclic(t *testing.T) {
	edges := map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": {},
	}
	if cycle := findCycle(edges); cycle != nil {
		t.Errorf("findCycle = %v, want nil", cycle)
	}
}

func TestFindCycle_Empty(t *testing.T) {
	if cycle := findCycle(nil); cycle != nil {
		t.Errorf("findCycle = %v, want nil", cycle)
	}
}

func TestFindCycle_DirectCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	cycle := findCycle(edges)
	want := []string{"a", "b", "a"}
	if !slices.Equal(cycle, want) {
		t.Errorf("findCycle = %v, want %v", cycle, want)
	}
}

func TestFindCycle_LongerCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"}, // outside the cycle
	}
	cycle := findCycle(edges)
	if len(cycle) != 4 {
		t.Fatalf("findCycle = %v, want 4 nodes with closing repeat", cycle)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle should close on its first node: %v", cycle)
	}
}

func TestFindCycle_SelfLoop(t *testing.T) {
	edges := map[string][]string{
		"a": {"a"},
	}
	cycle := findCycle(edges)
	want := []string{"a", "a"}
	if !slices.Equal(cycle, want) {
		t.Errorf("findCycle = %v, want %v", cycle, want)
	}
}

func TestFindCycle_DisconnectedComponents(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {},
		"x": {"y"},
		"y": {"x"},
	}
	if cycle := findCycle(edges); cycle == nil {
		t.Error("cycle in a disconnected component should be found")
	}
}

// --- validateDependencies ---

func existsIn(known ...string) func(string) (bool, error) {
	return func(id string) (bool, error) {
		return slices.Contains(known, id), nil
	}
}

func TestValidateDependencies_Valid(t *testing.T) {
	edges := map[string][]string{"t1": nil, "t2": nil}
	err := validateDependencies("t2", []string{"t1"}, existsIn("t1", "t2"), edges)
	if err != nil {
		t.Errorf("validateDependencies = %v, want nil", err)
	}
}

func TestValidateDependencies_Duplicate(t *testing.T) {
	err := validateDependencies("t2", []string{"t1", "t1"}, existsIn("t1", "t2"), nil)
	if !IsKind(err, ErrValidation) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestValidateDependencies_Unknown(t *testing.T) {
	err := validateDependencies("t1", []string{"ghost"}, existsIn("t1"), nil)
	if !IsKind(err, ErrUnknownDependency) {
		t.Errorf("err = %v, want UnknownDependency", err)
	}
}

func TestValidateDependencies_Self(t *testing.T) {
	// On create the task's own id is not stored yet; self-reference must
	// still come back as SelfDependency, not UnknownDependency.
	err := validateDependencies("t1", []string{"t1"}, existsIn(), nil)
	if !IsKind(err, ErrSelfDependency) {
		t.Errorf("err = %v, want SelfDependency", err)
	}
}

func TestValidateDependencies_CycleThroughExistingEdges(t *testing.T) {
	// b already depends on a; making a depend on b closes the loop.
	edges := map[string][]string{
		"a": nil,
		"b": {"a"},
	}
	err := validateDependencies("a", []string{"b"}, existsIn("a", "b"), edges)
	if !IsKind(err, ErrCyclicDependency) {
		t.Fatalf("err = %v, want CyclicDependency", err)
	}

	var te *Error
	if !errors.As(err, &te) || len(te.Cycle) == 0 {
		t.Errorf("cycle path should be populated, got %+v", te)
	}
}

func TestValidateDependencies_ReplacementBreaksOldCycleCheck(t *testing.T) {
	// a currently depends on b; replacing a's deps with nothing that
	// loops must pass, because the candidate substitutes the old edges.
	edges := map[string][]string{
		"a": {"b"},
		"b": nil,
		"c": nil,
	}
	err := validateDependencies("b", []string{"c"}, existsIn("a", "b", "c"), edges)
	if err != nil {
		t.Errorf("validateDependencies = %v, want nil", err)
	}
}

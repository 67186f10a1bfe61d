package tracker

import "sort"

// --- Dependency graph validation ---
//
// Task dependency edges form a directed graph over ALL tasks, not just
// the one being edited: an update to task A can close a cycle through
// B → C → A. The engine therefore rebuilds the global adjacency map on
// every mutation that touches depends_on and checks the whole graph.

// findCycle runs a depth-first search over the dependency graph and
// returns the first cycle found as a path of task ids (closing node
// repeated last), or nil when the graph is acyclic. Nodes are visited
// in sorted order so the reported path is deterministic.
func findCycle(edges map[string][]string) []string {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(edges))

	nodes := make([]string, 0, len(edges))
	for id := range edges {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		state[node] = visiting
		path = append(path, node)

		for _, dep := range edges[node] {
			switch state[dep] {
			case visiting:
				// Found a back edge — extract the cycle portion of the path.
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle = append(append([]string{}, path[start:]...), dep)
				return true
			case unvisited:
				if dfs(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		state[node] = visited
		return false
	}

	for _, node := range nodes {
		if state[node] == unvisited && dfs(node) {
			return cycle
		}
	}
	return nil
}

// validateDependencies checks a candidate depends_on set for one task.
// exists answers whether a task id is known; edges is the current global
// adjacency map. Checks run in contract order: unknown ids first, then
// self-reference, then a cycle check over the global graph with the
// candidate edges substituted in.
func validateDependencies(taskID string, candidate []string, exists func(string) (bool, error), edges map[string][]string) error {
	seen := make(map[string]bool, len(candidate))
	for _, depID := range candidate {
		if seen[depID] {
			return validationError("depends_on must contain unique task ids")
		}
		seen[depID] = true

		// Self-reference is reported as SelfDependency below, not as an
		// unknown id — on create the task's own id is not stored yet.
		if depID == taskID {
			continue
		}

		ok, err := exists(depID)
		if err != nil {
			return storageError("checking dependency "+depID, err)
		}
		if !ok {
			return unknownDependencyError(depID)
		}
	}

	if seen[taskID] {
		return selfDependencyError(taskID)
	}

	merged := make(map[string][]string, len(edges)+1)
	for id, deps := range edges {
		merged[id] = deps
	}
	merged[taskID] = candidate

	if cycle := findCycle(merged); cycle != nil {
		return cyclicDependencyError(cycle)
	}
	return nil
}

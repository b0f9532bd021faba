package registry

import (
	"fmt"
	"sort"
	"strings"
)

// CycleWarning describes a group of rules that reference each other.
//
// DEFINE rejects direct self-reference, but rules may name rules that are
// defined later, so mutual recursion can only be seen across the whole
// registry. Compiling a query through such a cycle fails with a
// recursion-limit error.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles finds rule cycles using Tarjan's strongly connected
// components algorithm over the rule call graph (aliases followed).
// A registry without cycles returns an empty slice.
func (d *EngineData) AnalyzeCycles() []CycleWarning {
	graph := d.callGraph()

	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	return warnings
}

// callGraph maps rule name to the rules its body calls.
type callGraph map[string][]string

func (d *EngineData) callGraph() callGraph {
	graph := make(callGraph)
	for _, rule := range d.SortedRules() {
		graph[rule.Name] = []string{}
		for _, name := range rule.Calls() {
			rel, err := d.Resolve(name, rule.Pos, nil)
			if err != nil {
				continue
			}
			if callee, ok := rel.(*RuleData); ok {
				graph[rule.Name] = append(graph[rule.Name], callee.Name)
			}
		}
	}
	return graph
}

func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph callGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("rule %s calls itself", name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("rules form a cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath walks SCC members from the smallest name until it
// returns to the start.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)

	start := sorted[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

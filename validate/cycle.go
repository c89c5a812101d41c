package validate

import (
	"fmt"
	"strings"

	"ruleengine"
)

type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully explored
)

// CycleDetector runs a three-color DFS over the rule graph (same edge set
// as ReachabilityValidator) and reports a WARNING for each gray→gray
// back-edge found, since cycles are sometimes intentional — relying on a
// transition condition to eventually break out. The traversal uses an
// explicit work list rather than Go call-stack recursion, per §9's
// "stack via explicit work list to avoid unbounded recursion" guidance;
// this also makes path reconstruction for the reported cycle simple since
// the frame holds its own position in the adjacency list.
type CycleDetector struct{}

func (*CycleDetector) Name() string { return "CycleDetector" }

func (*CycleDetector) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	edges := buildEdges(cfg)
	colors := make(map[string]color)
	for _, rule := range cfg.Rules {
		colors[rule.RuleID] = white
	}

	var issues []Issue
	seenCycles := map[string]bool{}

	for _, rule := range cfg.Rules {
		if colors[rule.RuleID] != white {
			continue
		}
		if cycle := dfsFindCycles(rule.RuleID, edges, colors, &issues, seenCycles); cycle {
			// dfsFindCycles records issues itself and keeps scanning for
			// additional, non-overlapping cycles elsewhere in the graph.
			_ = cycle
		}
	}

	return Result{Issues: issues}
}

type frame struct {
	node string
	idx  int
	path []string
}

// dfsFindCycles performs an explicit-stack three-color DFS from start,
// appending a WARNING issue for every distinct back-edge cycle found
// reachable from start. Returns true if at least one cycle was recorded.
func dfsFindCycles(start string, edges map[string][]string, colors map[string]color, issues *[]Issue, seen map[string]bool) bool {
	found := false
	stack := []*frame{{node: start, path: []string{start}}}
	colors[start] = gray

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		succs := edges[top.node]

		if top.idx >= len(succs) {
			colors[top.node] = black
			stack = stack[:len(stack)-1]
			continue
		}

		next := succs[top.idx]
		top.idx++

		switch colors[next] {
		case white:
			colors[next] = gray
			newPath := append(append([]string{}, top.path...), next)
			stack = append(stack, &frame{node: next, path: newPath})
		case gray:
			cyclePath := extractCycle(top.path, next)
			key := strings.Join(cyclePath, "->")
			if !seen[key] {
				seen[key] = true
				*issues = append(*issues, Issue{
					Severity: SeverityWarning,
					Code:     "CYCLE-001",
					Message:  fmt.Sprintf("cycle detected: %s", strings.Join(cyclePath, " -> ")),
					Context:  next,
				})
				found = true
			}
		case black:
			// already fully explored, no new cycle through here
		}
	}
	return found
}

// extractCycle returns the suffix of path starting at the first
// occurrence of target, with target appended again to close the loop.
func extractCycle(path []string, target string) []string {
	for i, n := range path {
		if n == target {
			cycle := append([]string{}, path[i:]...)
			cycle = append(cycle, target)
			return cycle
		}
	}
	return append(append([]string{}, path...), target)
}

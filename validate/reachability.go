package validate

import (
	"fmt"

	"ruleengine"
)

// ReachabilityValidator builds the directed edge set described in §4.3
// (transition targets, onError targets, and a virtual entry→
// defaultErrorRule edge) and runs a BFS from the entry point. Rules never
// reached are reported as WARNING, not ERROR — an unreachable rule is
// sometimes intentional, so it does not fail validation.
type ReachabilityValidator struct{}

func (*ReachabilityValidator) Name() string { return "ReachabilityValidator" }

func (*ReachabilityValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	edges := buildEdges(cfg)

	visited := map[string]bool{}
	if cfg.EntryPoint != "" {
		queue := []string{cfg.EntryPoint}
		visited[cfg.EntryPoint] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range edges[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	var issues []Issue
	for _, rule := range cfg.Rules {
		if !visited[rule.RuleID] {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "REACH-001",
				Message: fmt.Sprintf("rule %q is not reachable from entry point %q", rule.RuleID, cfg.EntryPoint),
				Context: rule.RuleID,
			})
		}
	}
	return Result{Issues: issues}
}

// buildEdges returns the rule-id → successor-id adjacency used by both
// ReachabilityValidator and CycleDetector.
func buildEdges(cfg *ruleengine.RuleEngineConfig) map[string][]string {
	edges := make(map[string][]string)
	for _, rule := range cfg.Rules {
		for _, tr := range rule.Transitions {
			if tr.TargetRule != "" {
				edges[rule.RuleID] = append(edges[rule.RuleID], tr.TargetRule)
			}
		}
		for _, action := range rule.Actions {
			if action.OnError != nil && action.OnError.TargetRule != "" {
				edges[rule.RuleID] = append(edges[rule.RuleID], action.OnError.TargetRule)
			}
		}
	}
	if cfg.GlobalSettings.DefaultErrorRule != "" && cfg.EntryPoint != "" {
		edges[cfg.EntryPoint] = append(edges[cfg.EntryPoint], cfg.GlobalSettings.DefaultErrorRule)
	}
	return edges
}

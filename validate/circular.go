package validate

import (
	"fmt"
	"regexp"
	"strings"

	"ruleengine"
)

// CircularDependencyValidator builds, for each rule, a dependency graph
// from output variable to the set of other in-rule output variables its
// inputs reference — via `${var}` placeholders inside Config (recursed
// through nested maps/slices/strings) and via identifiers mentioned in
// OutputExpression — and reports an ERROR on any cycle among variables
// defined within that rule (§4.3).
type CircularDependencyValidator struct{}

func (*CircularDependencyValidator) Name() string { return "CircularDependencyValidator" }

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.]*)\}`)
var identifierRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

var reservedIdentifiers = map[string]bool{
	"true": true, "false": true, "null": true, "util": true, "result": true,
}

func (*CircularDependencyValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	var issues []Issue

	for _, rule := range cfg.Rules {
		definedHere := map[string]bool{}
		for _, action := range rule.Actions {
			if action.OutputVariable != "" {
				definedHere[action.OutputVariable] = true
			}
		}
		if len(definedHere) == 0 {
			continue
		}

		deps := map[string]map[string]bool{}
		for _, action := range rule.Actions {
			if action.OutputVariable == "" {
				continue
			}
			set := deps[action.OutputVariable]
			if set == nil {
				set = map[string]bool{}
				deps[action.OutputVariable] = set
			}
			for _, ref := range extractPlaceholders(action.Config) {
				root := firstSegment(ref)
				if root != action.OutputVariable && definedHere[root] {
					set[root] = true
				}
			}
			for _, ref := range extractIdentifiers(action.OutputExpression) {
				if ref != action.OutputVariable && definedHere[ref] {
					set[ref] = true
				}
			}
		}

		if cyc := findVariableCycle(deps); cyc != nil {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "CIRC-001",
				Message: fmt.Sprintf("rule %q has a circular variable dependency: %s", rule.RuleID, strings.Join(cyc, " -> ")),
				Context: rule.RuleID,
			})
		}
	}

	return Result{Issues: issues}
}

func firstSegment(ref string) string {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i]
	}
	return ref
}

// extractPlaceholders recursively scans a config map for `${var}`
// placeholders in string values, including within nested maps and slices.
func extractPlaceholders(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
			out = append(out, m[1])
		}
	case map[string]any:
		for _, val := range t {
			out = append(out, extractPlaceholders(val)...)
		}
	case []any:
		for _, val := range t {
			out = append(out, extractPlaceholders(val)...)
		}
	}
	return out
}

func extractIdentifiers(expr string) []string {
	if expr == "" {
		return nil
	}
	var out []string
	for _, m := range identifierRe.FindAllString(expr, -1) {
		if reservedIdentifiers[m] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// findVariableCycle runs a white/gray/black DFS over the output→inputs
// dependency graph and returns the first cycle found, or nil.
func findVariableCycle(deps map[string]map[string]bool) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := map[string]int{}
	var path []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		state[node] = gray
		path = append(path, node)
		for next := range deps[node] {
			switch state[next] {
			case white:
				if dfs(next) {
					return true
				}
			case gray:
				for i, n := range path {
					if n == next {
						cycle = append(append([]string{}, path[i:]...), next)
						return true
					}
				}
			}
		}
		path = path[:len(path)-1]
		state[node] = black
		return false
	}

	for node := range deps {
		if state[node] == white {
			if dfs(node) {
				return cycle
			}
		}
	}
	return nil
}

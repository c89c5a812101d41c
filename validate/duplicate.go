package validate

import (
	"fmt"

	"ruleengine"
)

// DuplicateActionValidator reports an ERROR for any repeated actionId
// within a single rule.
type DuplicateActionValidator struct{}

func (*DuplicateActionValidator) Name() string { return "DuplicateActionValidator" }

func (*DuplicateActionValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	var issues []Issue
	for _, rule := range cfg.Rules {
		seen := map[string]bool{}
		for _, action := range rule.Actions {
			if seen[action.ActionID] {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "DUP-001",
					Message: fmt.Sprintf("rule %q has duplicate actionId %q", rule.RuleID, action.ActionID),
					Context: rule.RuleID,
				})
				continue
			}
			seen[action.ActionID] = true
		}
	}
	return Result{Issues: issues}
}

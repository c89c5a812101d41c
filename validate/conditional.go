package validate

import (
	"fmt"
	"regexp"
	"strings"

	"ruleengine"
)

// ConditionalActionValidator inspects each action's condition expression
// text for the syntactic smells named in §4.3: a condition made only of
// whitespace (WARNING — the action always runs, which is suspicious if a
// condition was written at all; an empty string cannot be told apart from
// no condition and is not flagged), unbalanced parentheses (ERROR), a bare `=` that isn't
// part of `==`, `!=`, `<=` or `>=` (WARNING — likely an assignment
// mistake), and mixed `&&`/`||` without parentheses (WARNING — operator
// precedence is easy to get wrong here).
type ConditionalActionValidator struct{}

func (*ConditionalActionValidator) Name() string { return "ConditionalActionValidator" }

var bareEqualsRe = regexp.MustCompile(`[^=!<>]=[^=]`)

func (*ConditionalActionValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	var issues []Issue
	for _, rule := range cfg.Rules {
		for _, action := range rule.Actions {
			if action.Condition == "" {
				continue
			}
			cond := action.Condition
			ctx := fmt.Sprintf("%s.%s", rule.RuleID, action.ActionID)

			if strings.TrimSpace(cond) == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Code: "COND-001",
					Message: fmt.Sprintf("action %q has a blank condition", ctx), Context: rule.RuleID,
				})
				continue
			}

			if !parenthesesBalanced(cond) {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "COND-002",
					Message: fmt.Sprintf("action %q condition has unbalanced parentheses: %q", ctx, cond), Context: rule.RuleID,
				})
			}

			if bareEqualsRe.MatchString(" " + cond + " ") {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Code: "COND-003",
					Message: fmt.Sprintf("action %q condition contains a bare '=' — did you mean '=='? (%q)", ctx, cond), Context: rule.RuleID,
				})
			}

			if strings.Contains(cond, "&&") && strings.Contains(cond, "||") && !strings.Contains(cond, "(") {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Code: "COND-004",
					Message: fmt.Sprintf("action %q condition mixes && and || without parentheses: %q", ctx, cond), Context: rule.RuleID,
				})
			}
		}
	}
	return Result{Issues: issues}
}

func parenthesesBalanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			return false
		}
	}
	return depth == 0
}

package validate

import (
	"fmt"

	"ruleengine"
)

// ReferenceValidator checks structural reference integrity: an existing,
// non-empty entry point; at least one rule; every transition target,
// onError target and defaultErrorRule naming a rule that exists; and a
// WARNING for any non-terminal rule with no transitions. Error codes
// REF-001..REF-010 per §4.3.
type ReferenceValidator struct{}

func (*ReferenceValidator) Name() string { return "ReferenceValidator" }

func (*ReferenceValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	var issues []Issue

	if len(cfg.Rules) == 0 {
		issues = append(issues, Issue{Severity: SeverityError, Code: "REF-001", Message: "configuration defines no rules"})
	}

	if cfg.EntryPoint == "" {
		issues = append(issues, Issue{Severity: SeverityError, Code: "REF-002", Message: "entryPoint is required"})
	} else if _, ok := cfg.RuleByID(cfg.EntryPoint); !ok {
		issues = append(issues, Issue{
			Severity: SeverityError, Code: "REF-003",
			Message: fmt.Sprintf("entryPoint %q does not name an existing rule", cfg.EntryPoint),
		})
	}

	if cfg.GlobalSettings.DefaultErrorRule != "" {
		if _, ok := cfg.RuleByID(cfg.GlobalSettings.DefaultErrorRule); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "REF-004",
				Message: fmt.Sprintf("defaultErrorRule %q does not name an existing rule", cfg.GlobalSettings.DefaultErrorRule),
			})
		}
	}

	for _, rule := range cfg.Rules {
		for _, action := range rule.Actions {
			if action.OnError != nil {
				if _, ok := cfg.RuleByID(action.OnError.TargetRule); !ok {
					issues = append(issues, Issue{
						Severity: SeverityError, Code: "REF-005",
						Message: fmt.Sprintf("rule %q action %q onError.targetRule %q does not exist", rule.RuleID, action.ActionID, action.OnError.TargetRule),
						Context:  rule.RuleID,
					})
				}
			}
		}

		for i, tr := range rule.Transitions {
			if tr.Condition == "" {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "REF-006",
					Message: fmt.Sprintf("rule %q transition #%d has an empty condition", rule.RuleID, i),
					Context: rule.RuleID,
				})
			}
			if tr.TargetRule == "" {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "REF-007",
					Message: fmt.Sprintf("rule %q transition #%d has an empty targetRule", rule.RuleID, i),
					Context: rule.RuleID,
				})
			} else if _, ok := cfg.RuleByID(tr.TargetRule); !ok {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "REF-008",
					Message: fmt.Sprintf("rule %q transition #%d targetRule %q does not exist", rule.RuleID, i, tr.TargetRule),
					Context: rule.RuleID,
				})
			}
		}

		if !rule.Terminal && len(rule.Transitions) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "REF-009",
				Message: fmt.Sprintf("rule %q is non-terminal but defines no transitions", rule.RuleID),
				Context: rule.RuleID,
			})
		}

		if rule.RuleID == "" {
			issues = append(issues, Issue{Severity: SeverityError, Code: "REF-010", Message: "a rule has an empty ruleId"})
		}
	}

	return Result{Issues: issues}
}

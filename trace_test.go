package ruleengine

import (
	"strings"
	"testing"
)

func TestExecutionTrace_MetricsCountActionsAndFailures(t *testing.T) {
	tr := NewExecutionTrace("start")
	tr.append(ExecutionStep{Type: StepRuleEntered, RuleID: "start"})
	tr.append(ExecutionStep{Type: StepActionCompleted, RuleID: "start", ActionID: "a1", DurationMs: 10})
	tr.append(ExecutionStep{Type: StepActionCompleted, RuleID: "start", ActionID: "a1", DurationMs: 5})
	tr.append(ExecutionStep{Type: StepActionFailed, RuleID: "start", ActionID: "a2"})
	tr.Complete(false, "boom")

	m := tr.Metrics()
	if m.RulesExecuted != 1 {
		t.Fatalf("expected 1 rule executed, got %d", m.RulesExecuted)
	}
	if m.ActionsExecuted != 2 {
		t.Fatalf("expected 2 distinct actions executed, got %d", m.ActionsExecuted)
	}
	if m.FailedActions != 1 {
		t.Fatalf("expected 1 failed action, got %d", m.FailedActions)
	}
	if m.ActionDurations["a1"] != 15 {
		t.Fatalf("expected a1's durations to sum to 15ms, got %d", m.ActionDurations["a1"])
	}
	if m.TotalActionTimeMs != 15 {
		t.Fatalf("expected total action time 15ms, got %d", m.TotalActionTimeMs)
	}
}

func TestExecutionTrace_ToMermaidDiagram_StylesFailureRed(t *testing.T) {
	tr := NewExecutionTrace("start")
	tr.append(ExecutionStep{Type: StepRuleEntered, RuleID: "start"})
	tr.append(ExecutionStep{Type: StepActionFailed, RuleID: "start", ActionID: "a1"})
	tr.Complete(false, "boom")

	diagram := tr.ToMermaidDiagram()
	if !strings.Contains(diagram, "graph TD") {
		t.Fatalf("expected a Mermaid graph TD block, got %q", diagram)
	}
	if !strings.Contains(diagram, "fill:#f99") {
		t.Fatalf("expected red styling for a failed trace, got %q", diagram)
	}
}

func TestExecutionTrace_ToDetailedSummary_ReportsStatus(t *testing.T) {
	tr := NewExecutionTrace("start")
	tr.append(ExecutionStep{Type: StepRuleEntered, RuleID: "start"})
	tr.Complete(true, "")

	summary := tr.ToDetailedSummary()
	if !strings.Contains(summary, "Status: SUCCESS") {
		t.Fatalf("expected a SUCCESS status line, got %q", summary)
	}
	if !strings.Contains(summary, "Rules Executed: 1") {
		t.Fatalf("expected rules-executed count, got %q", summary)
	}
}

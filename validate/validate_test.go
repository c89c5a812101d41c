package validate

import (
	"testing"

	"ruleengine"
)

func TestReferenceValidator_MissingEntryPoint(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		Rules: []ruleengine.RuleDefinition{{RuleID: "a", Terminal: true}},
	}
	res := (&ReferenceValidator{}).Validate(cfg)
	if res.IsValid() {
		t.Fatalf("expected REF-002 error for missing entryPoint")
	}
	found := false
	for _, i := range res.Errors() {
		if i.Code == "REF-002" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a REF-002 issue, got %+v", res.Errors())
	}
}

func TestReferenceValidator_UnknownTransitionTarget(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Transitions: []ruleengine.TransitionDefinition{{Condition: "true", TargetRule: "missing"}}},
		},
	}
	res := (&ReferenceValidator{}).Validate(cfg)
	if res.IsValid() {
		t.Fatalf("expected REF-008 error for unknown targetRule")
	}
}

func TestReachabilityValidator_UnreachableRule(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Terminal: true},
			{RuleID: "orphan", Terminal: true},
		},
	}
	res := (&ReachabilityValidator{}).Validate(cfg)
	if !res.IsValid() {
		t.Fatalf("reachability issues are warnings, IsValid should stay true")
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != "REACH-001" {
		t.Fatalf("expected one REACH-001 issue, got %+v", res.Issues)
	}
}

func TestCycleDetector_FindsDirectedCycle(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Transitions: []ruleengine.TransitionDefinition{{Condition: "true", TargetRule: "b"}}},
			{RuleID: "b", Transitions: []ruleengine.TransitionDefinition{{Condition: "true", TargetRule: "a"}}},
		},
	}
	res := (&CycleDetector{}).Validate(cfg)
	hasCycle := false
	for _, i := range res.Issues {
		if i.Code == "CYCLE-001" {
			hasCycle = true
		}
	}
	if !hasCycle {
		t.Fatalf("expected a CYCLE-001 issue for a->b->a, got %+v", res.Issues)
	}
}

func TestCycleDetector_NoCycleOnDAG(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Transitions: []ruleengine.TransitionDefinition{{Condition: "true", TargetRule: "b"}}},
			{RuleID: "b", Terminal: true},
		},
	}
	res := (&CycleDetector{}).Validate(cfg)
	if len(res.Issues) != 0 {
		t.Fatalf("expected no cycle issues on a DAG, got %+v", res.Issues)
	}
}

func TestDuplicateActionValidator(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Terminal: true, Actions: []ruleengine.ActionDefinition{
				{ActionID: "x", Type: "SCRIPT"},
				{ActionID: "x", Type: "SCRIPT"},
			}},
		},
	}
	res := (&DuplicateActionValidator{}).Validate(cfg)
	if res.IsValid() {
		t.Fatalf("expected DUP-001 error for repeated actionId")
	}
}

func TestCircularDependencyValidator_DetectsVariableCycle(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{
		EntryPoint: "a",
		Rules: []ruleengine.RuleDefinition{
			{RuleID: "a", Terminal: true, Actions: []ruleengine.ActionDefinition{
				{ActionID: "x", Type: "SCRIPT", OutputVariable: "foo", Config: map[string]any{"expression": "${bar}"}},
				{ActionID: "y", Type: "SCRIPT", OutputVariable: "bar", Config: map[string]any{"expression": "${foo}"}},
			}},
		},
	}
	res := (&CircularDependencyValidator{}).Validate(cfg)
	if res.IsValid() {
		t.Fatalf("expected CIRC-001 error for foo<->bar variable cycle")
	}
}

func TestDefaultChain_StopsOnFirstError(t *testing.T) {
	cfg := &ruleengine.RuleEngineConfig{} // no entry point, no rules: multiple REF errors
	chain := DefaultChain(true)
	res := chain.Validate(cfg)
	if res.IsValid() {
		t.Fatalf("expected validation errors for an empty configuration")
	}
	// ReferenceValidator runs first and already reports errors, so the
	// chain should stop before ReachabilityValidator/CycleDetector run.
	for _, i := range res.Issues {
		if i.Code == "REACH-001" || i.Code == "CYCLE-001" {
			t.Fatalf("expected the chain to stop before reachability/cycle checks, got %+v", i)
		}
	}
}

func TestComposite_RecoversValidatorPanic(t *testing.T) {
	chain := NewComposite(false, panickyValidator{})
	res := chain.Validate(&ruleengine.RuleEngineConfig{EntryPoint: "a", Rules: []ruleengine.RuleDefinition{{RuleID: "a", Terminal: true}}})
	if res.IsValid() {
		t.Fatalf("expected a COMP-002 error from the recovered panic")
	}
	if res.Issues[0].Code != "COMP-002" {
		t.Fatalf("expected COMP-002, got %+v", res.Issues[0])
	}
}

type panickyValidator struct{}

func (panickyValidator) Name() string { return "panickyValidator" }
func (panickyValidator) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	panic("boom")
}

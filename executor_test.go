package ruleengine

import (
	"testing"
	"time"
)

func scriptAction(id, expr, outputVar string) ActionDefinition {
	return ActionDefinition{
		ActionID:       id,
		Type:           "SCRIPT",
		Config:         map[string]any{"expression": expr},
		OutputVariable: outputVar,
	}
}

func mustBuild(t *testing.T, cfg *RuleEngineConfig, providers ...ActionProvider) *Executor {
	t.Helper()
	exec, err := BuildExecutor(cfg, providers)
	if err != nil {
		t.Fatalf("BuildExecutor failed: %v", err)
	}
	return exec
}

// Scenario 1: validate-approve-reject.
func TestExecute_ValidateApproveReject(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint: "validate",
		Rules: []RuleDefinition{
			{
				RuleID: "validate",
				Transitions: []TransitionDefinition{
					{Condition: "age>=18", TargetRule: "approve", Priority: 1},
					{Condition: "!(age>=18)", TargetRule: "reject", Priority: 2},
				},
			},
			{RuleID: "approve", Terminal: true, Actions: []ActionDefinition{scriptAction("setApproved", `"APPROVED"`, "status")}},
			{RuleID: "reject", Terminal: true, Actions: []ActionDefinition{scriptAction("setRejected", `"REJECTED"`, "status")}},
		},
	}
	exec := mustBuild(t, cfg)

	res := exec.Execute(NewExecutionContext(map[string]any{"age": 25}, nil))
	if !res.Success || res.FinalRuleID != "approve" || res.Variables["status"] != "APPROVED" {
		t.Fatalf("age=25: got success=%v final=%q status=%v", res.Success, res.FinalRuleID, res.Variables["status"])
	}

	res = exec.Execute(NewExecutionContext(map[string]any{"age": 15}, nil))
	if !res.Success || res.FinalRuleID != "reject" || res.Variables["status"] != "REJECTED" {
		t.Fatalf("age=15: got success=%v final=%q status=%v", res.Success, res.FinalRuleID, res.Variables["status"])
	}
}

// Scenario 1b: a transition's contextTransform renames a variable on
// hand-off, writing the target even when the source is absent.
func TestExecute_ContextTransform(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint: "start",
		Rules: []RuleDefinition{
			{
				RuleID: "start",
				Transitions: []TransitionDefinition{
					{
						Condition:        "true",
						TargetRule:       "end",
						ContextTransform: map[string]string{"renamed": "original", "missing": "neverSet"},
					},
				},
			},
			{RuleID: "end", Terminal: true},
		},
	}
	exec := mustBuild(t, cfg)

	res := exec.Execute(NewExecutionContext(map[string]any{"original": "payload"}, nil))
	if !res.Success || res.FinalRuleID != "end" {
		t.Fatalf("got success=%v final=%q", res.Success, res.FinalRuleID)
	}
	if res.Variables["renamed"] != "payload" {
		t.Fatalf("expected renamed == payload, got %v", res.Variables["renamed"])
	}
	if _, present := res.Variables["missing"]; !present {
		t.Fatalf("expected target key 'missing' to be written even though its source was never set")
	}
	if res.Variables["missing"] != nil {
		t.Fatalf("expected 'missing' == nil, got %v", res.Variables["missing"])
	}
}

// Scenario 2: conditional action skipped.
func TestExecute_ConditionalActionSkipped(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint: "pricing",
		Rules: []RuleDefinition{
			{
				RuleID:   "pricing",
				Terminal: true,
				Actions: []ActionDefinition{
					{
						ActionID:       "discount",
						Type:           "SCRIPT",
						Condition:      "amount>100",
						Config:         map[string]any{"expression": "amount*0.9"},
						OutputVariable: "discountedAmount",
					},
					{
						ActionID:       "total",
						Type:           "SCRIPT",
						Config:         map[string]any{"expression": "util.roundTo((discountedAmount!=null?discountedAmount:amount)*1.1, 2)"},
						OutputVariable: "total",
					},
				},
			},
		},
	}
	exec := mustBuild(t, cfg)

	res := exec.Execute(NewExecutionContext(map[string]any{"amount": 50}, nil))
	if !res.Success || res.Variables["discountedAmount"] != nil || res.Variables["total"] != 55.0 {
		t.Fatalf("amount=50: got success=%v discounted=%v total=%v", res.Success, res.Variables["discountedAmount"], res.Variables["total"])
	}

	res = exec.Execute(NewExecutionContext(map[string]any{"amount": 150}, nil))
	if !res.Success || res.Variables["discountedAmount"] != 135.0 || res.Variables["total"] != 148.5 {
		t.Fatalf("amount=150: got success=%v discounted=%v total=%v", res.Success, res.Variables["discountedAmount"], res.Variables["total"])
	}
}

// Scenario 3: depth limit.
func TestExecute_DepthLimit(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint:     "A",
		GlobalSettings: GlobalSettings{MaxExecutionDepth: 5},
		Rules: []RuleDefinition{
			{
				RuleID:      "A",
				Transitions: []TransitionDefinition{{Condition: "true", TargetRule: "A"}},
			},
		},
	}
	exec, err := BuildExecutor(cfg, nil, WithValidation(false))
	if err != nil {
		t.Fatalf("BuildExecutor failed: %v", err)
	}

	execCtx := NewExecutionContext(nil, nil)
	execCtx.EnableTrace()
	res := exec.Execute(execCtx)
	if res.Success {
		t.Fatalf("expected failure, got success")
	}
	if res.FinalRuleID != "A" {
		t.Fatalf("expected finalRuleId A, got %q", res.FinalRuleID)
	}
	if res.Error == nil {
		t.Fatalf("expected error info")
	}

	ruleEntries := 0
	for _, step := range res.Trace.Steps() {
		if step.Type == StepRuleEntered {
			ruleEntries++
		}
	}
	if ruleEntries != 5 {
		t.Fatalf("expected exactly 5 RULE_ENTERED steps at maxExecutionDepth=5, saw %d", ruleEntries)
	}
}

// Scenario 4: output expression extraction, with the "result" temp binding
// cleaned up afterward.
func TestExecute_OutputExpressionExtraction(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint: "extract",
		Rules: []RuleDefinition{
			{
				RuleID:   "extract",
				Terminal: true,
				Actions: []ActionDefinition{
					{
						ActionID:         "lookup",
						Type:             "SCRIPT",
						Config:           map[string]any{"expression": `{"data": {"user": {"id": "U1"}}}`},
						OutputVariable:   "userId",
						OutputExpression: "result.data.user.id",
					},
				},
			},
		},
	}
	exec := mustBuild(t, cfg)

	res := exec.Execute(NewExecutionContext(nil, nil))
	if !res.Success {
		t.Fatalf("expected success, got failure: %v", res.Error)
	}
	if res.Variables["userId"] != "U1" {
		t.Fatalf("expected userId == U1, got %v", res.Variables["userId"])
	}
	if _, present := res.Variables["result"]; present {
		t.Fatalf("temp variable 'result' leaked into final variables")
	}
}

// sleepAction blocks for a fixed duration, exercising a genuinely slow
// action rather than relying on depth exhaustion racing the deadline.
type sleepAction struct {
	id       string
	duration time.Duration
}

func (a *sleepAction) Type() string     { return "SLEEP" }
func (a *sleepAction) ActionID() string { return a.id }
func (a *sleepAction) Execute(ctx *ExecutionContext) (ActionResult, error) {
	time.Sleep(a.duration)
	return ActionSuccess(nil), nil
}

type sleepActionProvider struct{ duration time.Duration }

func (p *sleepActionProvider) Supports(typeTag string) bool { return EqualFoldType(typeTag, "SLEEP") }
func (p *sleepActionProvider) Priority() int                { return 0 }
func (p *sleepActionProvider) ProviderName() string         { return "test.sleep" }
func (p *sleepActionProvider) CreateAction(def ActionDefinition) (Action, error) {
	return &sleepAction{id: def.ActionID, duration: p.duration}, nil
}

// Scenario 5: timeout. The single action blocks for longer than TimeoutMs,
// so the deadline must elapse mid-action — depth exhaustion never enters
// into it, since the rule is terminal and never loops.
func TestExecute_Timeout(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint:     "burn",
		GlobalSettings: GlobalSettings{TimeoutMs: 50},
		Rules: []RuleDefinition{
			{RuleID: "burn", Terminal: true, Actions: []ActionDefinition{{ActionID: "spin", Type: "SLEEP"}}},
		},
	}
	exec, err := BuildExecutor(cfg, []ActionProvider{&sleepActionProvider{duration: 300 * time.Millisecond}}, WithValidation(false))
	if err != nil {
		t.Fatalf("BuildExecutor failed: %v", err)
	}

	start := time.Now()
	res := exec.Execute(NewExecutionContext(nil, nil))
	elapsed := time.Since(start)

	if res.Success {
		t.Fatalf("expected timeout failure, got success")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("timeout took too long to surface: %v", elapsed)
	}
	if res.Error == nil || res.Error.ErrorType != "TimeoutError" {
		t.Fatalf("expected a TimeoutError, got %+v", res.Error)
	}
	if res.Error.Message != "Execution timed out after 50ms" {
		t.Fatalf("expected exact timeout message, got %q", res.Error.Message)
	}
}

// failAction always fails, exercising action-level error routing (scenario 6).
type failAction struct{ id string }

func (a *failAction) Type() string     { return "FAIL" }
func (a *failAction) ActionID() string { return a.id }
func (a *failAction) Execute(ctx *ExecutionContext) (ActionResult, error) {
	return ActionFailure("intentional failure", nil), nil
}

type failActionProvider struct{}

func (*failActionProvider) Supports(typeTag string) bool { return EqualFoldType(typeTag, "FAIL") }
func (*failActionProvider) Priority() int                { return 0 }
func (*failActionProvider) ProviderName() string         { return "test.fail" }
func (*failActionProvider) CreateAction(def ActionDefinition) (Action, error) {
	return &failAction{id: def.ActionID}, nil
}

// Scenario 6: error routing to an action-level onError.targetRule handler.
func TestExecute_ErrorRoutingActionLevel(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint: "X",
		Rules: []RuleDefinition{
			{
				RuleID: "X",
				Actions: []ActionDefinition{
					{ActionID: "fail", Type: "FAIL", OnError: &OnError{TargetRule: "recover"}},
				},
			},
			{RuleID: "recover", Terminal: true, Actions: []ActionDefinition{scriptAction("setRecovered", `"RECOVERED"`, "status")}},
		},
	}
	exec := mustBuild(t, cfg, &failActionProvider{})

	res := exec.Execute(NewExecutionContext(nil, nil))
	if !res.Success || res.FinalRuleID != "recover" || res.Variables["status"] != "RECOVERED" {
		t.Fatalf("got success=%v final=%q status=%v", res.Success, res.FinalRuleID, res.Variables["status"])
	}
}

// Scenario 6b: the same outcome via GlobalSettings.DefaultErrorRule instead
// of an action-level onError.
func TestExecute_ErrorRoutingDefaultErrorRule(t *testing.T) {
	cfg := &RuleEngineConfig{
		EntryPoint:     "X",
		GlobalSettings: GlobalSettings{DefaultErrorRule: "recover"},
		Rules: []RuleDefinition{
			{RuleID: "X", Actions: []ActionDefinition{{ActionID: "fail", Type: "FAIL"}}},
			{RuleID: "recover", Terminal: true, Actions: []ActionDefinition{scriptAction("setRecovered", `"RECOVERED"`, "status")}},
		},
	}
	exec := mustBuild(t, cfg, &failActionProvider{})

	res := exec.Execute(NewExecutionContext(nil, nil))
	if !res.Success || res.FinalRuleID != "recover" || res.Variables["status"] != "RECOVERED" {
		t.Fatalf("got success=%v final=%q status=%v", res.Success, res.FinalRuleID, res.Variables["status"])
	}
}

package ruleengine

import (
	"fmt"

	"ruleengine/expression"
)

// ScriptAction is the built-in action type (§4.2): it compiles
// config.expression once at creation time and, on Execute, evaluates the
// compiled expression against the context's variables and returns the
// result as a success payload.
type ScriptAction struct {
	id         string
	compiled   *expression.CompiledExpression
	evaluator  *expression.Evaluator
}

func (a *ScriptAction) Type() string     { return "SCRIPT" }
func (a *ScriptAction) ActionID() string { return a.id }

func (a *ScriptAction) Execute(ctx *ExecutionContext) (ActionResult, error) {
	value, err := a.evaluator.Run(a.compiled, ctx.Variables())
	if err != nil {
		return ActionFailure("script evaluation failed", err), nil
	}
	return ActionSuccess(value), nil
}

// ScriptActionProvider creates ScriptActions. It supports the "SCRIPT"
// type tag (case-insensitive) at the default priority 0.
type ScriptActionProvider struct {
	Evaluator *expression.Evaluator
}

func NewScriptActionProvider(evaluator *expression.Evaluator) *ScriptActionProvider {
	return &ScriptActionProvider{Evaluator: evaluator}
}

func (p *ScriptActionProvider) Supports(typeTag string) bool {
	return EqualFoldType(typeTag, "SCRIPT")
}

func (p *ScriptActionProvider) Priority() int { return 0 }

func (p *ScriptActionProvider) ProviderName() string { return "builtin.script" }

func (p *ScriptActionProvider) CreateAction(def ActionDefinition) (Action, error) {
	exprText, ok := def.Config["expression"].(string)
	if !ok || exprText == "" {
		return nil, fmt.Errorf("SCRIPT action %q requires a non-empty config.expression", def.ActionID)
	}
	compiled, err := p.Evaluator.Compile(exprText)
	if err != nil {
		return nil, fmt.Errorf("SCRIPT action %q: %w", def.ActionID, err)
	}
	return &ScriptAction{id: def.ActionID, compiled: compiled, evaluator: p.Evaluator}, nil
}

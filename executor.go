package ruleengine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"ruleengine/expression"
)

// ExecutionResult is returned by Executor.Execute once a traversal reaches
// a terminal rule, exhausts its transitions, hits an unrecovered error, or
// times out.
type ExecutionResult struct {
	Success     bool
	FinalRuleID string
	Variables   map[string]any
	Error       *ErrorInfo
	Trace       *ExecutionTrace
	DurationMs  int64
}

// Executor runs a validated RuleEngineConfig's rule graph against an
// ExecutionContext, one rule at a time: run the rule's actions in order,
// then pick the highest-priority transition whose condition is true, and
// repeat from the target rule until a terminal rule is reached or an
// unrecovered error/timeout occurs (§4.4).
type Executor struct {
	config        *RuleEngineConfig
	registry      *ActionRegistry
	evaluator     *expression.Evaluator
	actionsByRule map[string]map[string]Action
	l             *slog.Logger

	shutdownMu sync.Mutex
	shutdown   bool
	inFlight   sync.WaitGroup
}

// Execute runs one traversal starting at config.EntryPoint. The wall-clock
// deadline from GlobalSettings.TimeoutMs is enforced by running the
// traversal on a background goroutine and racing it against a timer; the
// ExecutionContext passed to actions is given a derived, cancellable
// context.Context so a well-behaved Action observes the deadline too. A
// goroutine abandoned at the deadline is still tracked by inFlight so
// Shutdown can wait for it instead of leaking it indefinitely.
func (e *Executor) Execute(ctx *ExecutionContext) ExecutionResult {
	start := time.Now()

	e.shutdownMu.Lock()
	if e.shutdown {
		e.shutdownMu.Unlock()
		shutdownErr := &RuleExecutionError{Message: "executor is shut down"}
		return ExecutionResult{
			Success: false,
			Error:   &ErrorInfo{ErrorType: "RuleExecutionError", Message: shutdownErr.Error(), Cause: shutdownErr, Timestamp: time.Now()},
		}
	}
	e.inFlight.Add(1)
	e.shutdownMu.Unlock()

	timeout := time.Duration(e.config.GlobalSettings.TimeoutMs) * time.Millisecond
	deadlineCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = ctx.WithContext(deadlineCtx)

	if ctx.traceOn() {
		ctx.mu.Lock()
		ctx.trace = NewExecutionTrace(e.config.EntryPoint)
		ctx.mu.Unlock()
		ctx.Trace().SnapshotVariables("initial-state", ctx.Variables())
	}

	type outcome struct {
		res ExecutionResult
	}
	done := make(chan outcome, 1)

	go func() {
		defer e.inFlight.Done()
		res := e.traverse(ctx, e.config.EntryPoint, 0)
		done <- outcome{res: res}
	}()

	select {
	case o := <-done:
		o.res.DurationMs = time.Since(start).Milliseconds()
		if tr := ctx.Trace(); tr != nil {
			tr.SnapshotVariables("final-state", o.res.Variables)
			tr.Complete(o.res.Success, errorMessage(o.res.Error))
			o.res.Trace = tr
		}
		return o.res
	case <-deadlineCtx.Done():
		timeoutErr := &TimeoutError{TimeoutMs: e.config.GlobalSettings.TimeoutMs}
		info := &ErrorInfo{
			RuleID:    ctx.CurrentRuleID(),
			ErrorType: "TimeoutError",
			Message:   timeoutErr.Error(),
			Cause:     timeoutErr,
			Timestamp: time.Now(),
		}
		res := ExecutionResult{
			Success:     false,
			FinalRuleID: ctx.CurrentRuleID(),
			Variables:   ctx.Variables(),
			Error:       info,
			DurationMs:  time.Since(start).Milliseconds(),
		}
		if tr := ctx.Trace(); tr != nil {
			tr.append(ExecutionStep{Type: StepErrorOccurred, RuleID: info.RuleID, Timestamp: info.Timestamp, Metadata: map[string]any{"reason": "timeout"}})
			tr.SnapshotVariables("final-state", res.Variables)
			tr.Complete(false, info.Message)
			res.Trace = tr
		}
		return res
	}
}

// Shutdown stops the executor from accepting new Execute calls and waits
// for outstanding traversal goroutines — including any already abandoned
// past their own deadline — to finish, bounded by ctx. Pending work is not
// forcibly killed (Go has no mechanism to do that to a running goroutine);
// each traversal already races its own ExecutionContext deadline, and
// Shutdown's role is only to give the caller a bounded wait for however
// many of those are still in flight, mirroring the teacher's own
// Container.Shutdown(ctx) contract.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.shutdownMu.Lock()
	e.shutdown = true
	e.shutdownMu.Unlock()

	waited := make(chan struct{})
	go func() {
		e.inFlight.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown: %w", ctx.Err())
	}
}

func errorMessage(info *ErrorInfo) string {
	if info == nil {
		return ""
	}
	return info.Message
}

// traverse is the rule-to-rule state machine. It runs on its own
// goroutine so Execute can race it against the timeout deadline. startRule
// and startDepth let error routing (§4.4.5) re-enter the loop at an
// arbitrary rule without re-running Execute's timeout/trace setup.
func (e *Executor) traverse(ctx *ExecutionContext, startRule string, startDepth int) ExecutionResult {
	maxDepth := e.config.GlobalSettings.MaxExecutionDepth
	ruleID := startRule
	depth := startDepth

	for {
		select {
		case <-ctx.Done():
			timeoutErr := &TimeoutError{TimeoutMs: e.config.GlobalSettings.TimeoutMs}
			info := &ErrorInfo{
				RuleID:    ruleID,
				ErrorType: "TimeoutError",
				Message:   timeoutErr.Error(),
				Cause:     timeoutErr,
				Timestamp: time.Now(),
			}
			ctx.SetError(*info)
			return e.errorResult(ctx, ruleID, info)
		default:
		}

		if depth >= maxDepth {
			ruleErr := &RuleExecutionError{RuleID: ruleID, Message: fmt.Sprintf("max execution depth %d exceeded", maxDepth)}
			info := &ErrorInfo{RuleID: ruleID, ErrorType: "RuleExecutionError", Message: ruleErr.Error(), Cause: ruleErr, Timestamp: time.Now()}
			ctx.SetError(*info)
			return e.errorResult(ctx, ruleID, info)
		}

		rule, ok := e.config.RuleByID(ruleID)
		if !ok {
			ruleErr := &RuleExecutionError{RuleID: ruleID, Message: "rule not found"}
			info := &ErrorInfo{RuleID: ruleID, ErrorType: "RuleExecutionError", Message: ruleErr.Error(), Cause: ruleErr, Timestamp: time.Now()}
			ctx.SetError(*info)
			return e.errorResult(ctx, ruleID, info)
		}

		ctx.setCurrentRule(ruleID, depth+1)
		ctx.appendStep(ExecutionStep{Type: StepRuleEntered, RuleID: ruleID, Timestamp: time.Now()})
		e.l.InfoContext(ctx, fmt.Sprintf("Entering rule: %s", ruleID), "depth", depth)

		if errRes, failed := e.runActions(ctx, &rule); failed {
			return errRes
		}

		ctx.appendStep(ExecutionStep{Type: StepRuleExited, RuleID: ruleID, Timestamp: time.Now()})

		if rule.Terminal {
			return ExecutionResult{Success: true, FinalRuleID: ruleID, Variables: ctx.Variables()}
		}

		target, transform, matched, guardErr := e.selectTransition(ctx, &rule)
		if guardErr != nil {
			ruleErr := &RuleExecutionError{RuleID: ruleID, Message: "failed to evaluate transition condition", Cause: guardErr}
			info := &ErrorInfo{RuleID: ruleID, ErrorType: "RuleExecutionError", Message: ruleErr.Error(), Cause: ruleErr, Timestamp: time.Now()}
			ctx.SetError(*info)
			return e.errorResult(ctx, ruleID, info)
		}
		if !matched {
			ruleErr := &RuleExecutionError{RuleID: ruleID, Message: "no transition matched and rule is not terminal"}
			info := &ErrorInfo{RuleID: ruleID, ErrorType: "RuleExecutionError", Message: ruleErr.Error(), Cause: ruleErr, Timestamp: time.Now()}
			ctx.SetError(*info)
			return e.errorResult(ctx, ruleID, info)
		}

		e.applyContextTransform(ctx, transform)

		ruleID = target
		depth++
	}
}

// runActions runs rule's actions in order, applying the condition-default-
// true rule (an empty condition, or one that fails to evaluate, runs the
// action — §9), binding outputs, and routing failures through
// continueOnError / onError.targetRule / GlobalSettings.DefaultErrorRule.
// It returns (result, true) when the rule's traversal must stop here.
func (e *Executor) runActions(ctx *ExecutionContext, rule *RuleDefinition) (ExecutionResult, bool) {
	actions := e.actionsByRule[rule.RuleID]

	for _, def := range rule.Actions {
		var conditionErr *ExpressionError
		if def.Condition != "" {
			shouldRun, err := e.evaluator.EvaluateBoolean(def.Condition, ctx.Variables())
			if err != nil {
				// Condition failed to evaluate: default to true and run (§9),
				// but keep the typed failure around to surface in the trace.
				conditionErr = &ExpressionError{Expression: def.Condition, Err: err}
			} else if !shouldRun {
				continue
			}
		}

		action := actions[def.ActionID]
		started := time.Now()
		var startMeta map[string]any
		if conditionErr != nil {
			startMeta = map[string]any{"conditionEvaluationError": conditionErr.Error()}
		}
		ctx.appendStep(ExecutionStep{Type: StepActionStarted, RuleID: rule.RuleID, ActionID: def.ActionID, Timestamp: started, Metadata: startMeta})
		e.l.InfoContext(ctx, fmt.Sprintf("Starting action: %s", def.ActionID), "rule", rule.RuleID, "type", def.Type)

		result, execErr := action.Execute(ctx)
		durationMs := time.Since(started).Milliseconds()

		failed := execErr != nil || !result.Success
		if !failed {
			ctx.appendStep(ExecutionStep{Type: StepActionCompleted, RuleID: rule.RuleID, ActionID: def.ActionID, Timestamp: time.Now(), DurationMs: durationMs})
			e.bindOutput(ctx, def, result.Payload)
			continue
		}

		cause := execErr
		message := result.Message
		if cause == nil {
			cause = result.Cause
		}
		if message == "" {
			message = "action failed"
		}
		actionErr := &ActionError{ActionID: def.ActionID, Message: message, Cause: cause}
		ctx.appendStep(ExecutionStep{Type: StepActionFailed, RuleID: rule.RuleID, ActionID: def.ActionID, Timestamp: time.Now(), DurationMs: durationMs, Metadata: map[string]any{"message": message}})
		e.l.ErrorContext(ctx, fmt.Sprintf("Action failed: %s", def.ActionID), "rule", rule.RuleID, "error", actionErr)

		info := &ErrorInfo{RuleID: rule.RuleID, ActionID: def.ActionID, ErrorType: "ActionError", Message: message, Cause: actionErr, Timestamp: time.Now()}
		ctx.SetError(*info)
		ctx.appendStep(ExecutionStep{Type: StepErrorOccurred, RuleID: rule.RuleID, ActionID: def.ActionID, Timestamp: time.Now()})

		if def.ContinueOnError {
			continue
		}
		if def.OnError != nil && def.OnError.TargetRule != "" {
			return e.routeToErrorRule(ctx, def.OnError.TargetRule, info)
		}
		if e.config.GlobalSettings.DefaultErrorRule != "" {
			return e.routeToErrorRule(ctx, e.config.GlobalSettings.DefaultErrorRule, info)
		}
		return e.errorResult(ctx, rule.RuleID, info), true
	}

	return ExecutionResult{}, false
}

// routeToErrorRule re-enters traverse at targetRule rather than returning,
// so the error rule runs exactly like any other rule reached by a
// transition (§4.4.5).
func (e *Executor) routeToErrorRule(ctx *ExecutionContext, targetRule string, info *ErrorInfo) (ExecutionResult, bool) {
	e.l.InfoContext(ctx, fmt.Sprintf("Routing error to rule: %s", targetRule), "sourceRule", info.RuleID, "errorType", info.ErrorType)
	if _, ok := e.config.RuleByID(targetRule); !ok {
		ruleErr := &RuleExecutionError{RuleID: targetRule, Message: "error-routing target rule not found", Cause: info.Cause}
		info = &ErrorInfo{RuleID: targetRule, ErrorType: "RuleExecutionError", Message: ruleErr.Error(), Cause: ruleErr, Timestamp: time.Now()}
		ctx.SetError(*info)
		return e.errorResult(ctx, targetRule, info), true
	}
	res := e.traverse(ctx, targetRule, ctx.Depth())
	return res, true
}

func (e *Executor) errorResult(ctx *ExecutionContext, ruleID string, info *ErrorInfo) ExecutionResult {
	return ExecutionResult{Success: false, FinalRuleID: ruleID, Variables: ctx.Variables(), Error: info}
}

// resultIdentifierPattern matches the whole-word identifier "result" inside
// an outputExpression source string, so it can be rewritten to a temporary
// variable name that can't collide with a real context variable, per
// §4.4.3's "bind the raw result into a uniquely-named temporary context
// variable... evaluate outputExpression with references to 'result'
// rewritten to the temporary name" contract.
var resultIdentifierPattern = regexp.MustCompile(`\bresult\b`)

// bindOutput stores an action's payload under OutputVariable, first running
// it through OutputExpression when one is configured (§4.4.3). The payload
// is bound under a temporary variable unique to this action (not the
// literal name "result", which could already be a real user variable in
// scope) for the duration of that evaluation; whatever value — including
// none — previously lived under that temporary key is restored afterward,
// even if the extractor itself fails.
func (e *Executor) bindOutput(ctx *ExecutionContext, def ActionDefinition, payload any) {
	if def.OutputVariable == "" {
		return
	}
	if def.OutputExpression == "" {
		ctx.Set(def.OutputVariable, payload)
		return
	}

	tempVar := "__ruleengine_output_result__" + def.ActionID
	previous, hadPrevious := ctx.Get(tempVar)

	ctx.Set(tempVar, payload)
	rewritten := resultIdentifierPattern.ReplaceAllString(def.OutputExpression, tempVar)
	value, err := e.evaluator.Evaluate(rewritten, ctx.Variables())

	if hadPrevious {
		ctx.Set(tempVar, previous)
	} else {
		ctx.Unset(tempVar)
	}

	if err != nil {
		ctx.Set(def.OutputVariable, payload)
		return
	}
	ctx.Set(def.OutputVariable, value)
}

// selectTransition evaluates rule's transitions in descending Priority
// order (ties broken by configuration order) and returns the first whose
// Condition evaluates truthy. A transition whose condition fails to
// evaluate stops the scan and is returned as an *ExpressionError, which
// traverse turns into a fatal RuleExecutionError — unlike an action's
// condition, a broken guard is never defaulted to either outcome.
func (e *Executor) selectTransition(ctx *ExecutionContext, rule *RuleDefinition) (target string, transform map[string]string, matched bool, guardErr error) {
	ordered := make([]TransitionDefinition, len(rule.Transitions))
	copy(ordered, rule.Transitions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	vars := ctx.Variables()
	for _, t := range ordered {
		ok, err := e.evaluator.EvaluateBoolean(t.Condition, vars)
		meta := map[string]any{"condition": t.Condition, "targetRule": t.TargetRule, "result": ok && err == nil}
		if err != nil {
			meta["error"] = (&ExpressionError{Expression: t.Condition, Err: err}).Error()
		}
		ctx.appendStep(ExecutionStep{Type: StepTransitionEvaluated, RuleID: rule.RuleID, Timestamp: time.Now(), Metadata: meta})
		if err != nil {
			return "", nil, false, &ExpressionError{Expression: t.Condition, Err: err}
		}
		if ok {
			return t.TargetRule, t.ContextTransform, true, nil
		}
	}
	return "", nil, false, nil
}

// applyContextTransform reads each transform entry's source straight out of
// the context and writes it under target, letting a transition rename state
// as it hands off to the next rule (§3's TransitionDefinition.contextTransform).
// This is a flat variable rename, not an expression: the value is written
// even when source is absent (read as nil), matching a plain map lookup
// rather than something that can fail to evaluate.
func (e *Executor) applyContextTransform(ctx *ExecutionContext, transform map[string]string) {
	for target, source := range transform {
		value, _ := ctx.Get(source)
		ctx.Set(target, value)
	}
}

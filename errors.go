package ruleengine

import (
	"fmt"
	"strings"
)

// ConfigurationError wraps a failure to parse or load a RuleEngineConfig.
// Origin names where the bytes came from (caller-supplied, e.g. "string",
// a file path, or a classpath resource id); the core itself never reads
// files, so Origin is just a label the caller passes through LoadConfig.
type ConfigurationError struct {
	Origin string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Origin, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ActionCreationError is raised when an ActionProvider cannot instantiate
// an Action from its ActionDefinition, including the case where no
// registered provider supports the action's type tag.
type ActionCreationError struct {
	ActionID string
	Type     string
	Err      error
}

func (e *ActionCreationError) Error() string {
	return fmt.Sprintf("cannot create action %q (type %q): %v", e.ActionID, e.Type, e.Err)
}

func (e *ActionCreationError) Unwrap() error { return e.Err }

// ActionError is a runtime failure raised by Action.Execute. Cause, when
// set, is the underlying error that triggered the failure.
type ActionError struct {
	ActionID string
	Message  string
	Cause    error
}

func (e *ActionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("action %q failed: %s: %v", e.ActionID, e.Message, e.Cause)
	}
	return fmt.Sprintf("action %q failed: %s", e.ActionID, e.Message)
}

func (e *ActionError) Unwrap() error { return e.Cause }

// ExpressionError is a compile or evaluate failure in the expression
// subsystem. Expression carries the offending source text so the error
// message is actionable without a stack trace.
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression error in %q: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// RuleExecutionError is a terminal engine-level failure: depth exceeded, a
// transition or onError target names a missing rule, or a transition
// guard itself failed to evaluate. RuleID names where the traversal was
// when the failure occurred.
type RuleExecutionError struct {
	RuleID  string
	Message string
	Cause   error
}

func (e *RuleExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rule %q: %s: %v", e.RuleID, e.Message, e.Cause)
	}
	return fmt.Sprintf("rule %q: %s", e.RuleID, e.Message)
}

func (e *RuleExecutionError) Unwrap() error { return e.Cause }

// TimeoutError reports that the executor's wall-clock deadline elapsed
// before the traversal completed.
type TimeoutError struct {
	TimeoutMs int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Execution timed out after %dms", e.TimeoutMs)
}

// BuildError is returned by BuildExecutor when configuration validation
// fails or required collaborators are missing. Issues carries the
// formatted validation issue messages (the validate package's Result is
// not referenced here directly, since that package imports this one).
type BuildError struct {
	Issues []string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return fmt.Sprintf("build failed: configuration has %d validation error(s): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

func (e *BuildError) Unwrap() error { return e.Err }

package ruleengine

import (
	"context"
	"sync"
	"time"
)

var _ context.Context = &ExecutionContext{}

// StepType tags one entry in an execution trace.
type StepType string

const (
	StepRuleEntered        StepType = "RULE_ENTERED"
	StepRuleExited         StepType = "RULE_EXITED"
	StepActionStarted      StepType = "ACTION_STARTED"
	StepActionCompleted    StepType = "ACTION_COMPLETED"
	StepActionFailed       StepType = "ACTION_FAILED"
	StepTransitionEvaluated StepType = "TRANSITION_EVALUATED"
	StepErrorOccurred       StepType = "ERROR_OCCURRED"
)

// ExecutionStep is one append-only entry in a trace's event log.
type ExecutionStep struct {
	Type       StepType
	RuleID     string
	ActionID   string
	Timestamp  time.Time
	DurationMs int64
	Metadata   map[string]any
}

// ErrorInfo is the structured record of the most recent action/rule-level
// failure observed during a traversal, attached to the ExecutionContext so
// error-routing and the final ExecutionResult can both read it.
type ErrorInfo struct {
	RuleID    string
	ActionID  string
	ErrorType string
	Message   string
	Cause     error
	Timestamp time.Time
}

// ExecutionContext is the mutable bag of state carried through exactly one
// Executor.Execute call. It embeds a context.Context so timeout
// cancellation (§5) propagates to anything the traversal calls, the same
// way Execution does in the teacher runtime. An ExecutionContext must not
// be shared across concurrent Execute calls; distinct contexts against the
// same Executor may run concurrently.
type ExecutionContext struct {
	mu sync.Mutex

	variables map[string]any
	resources map[string]any

	currentRuleID string
	depth         int
	err           *ErrorInfo

	traceEnabled bool
	trace        *ExecutionTrace

	ctx context.Context
}

// NewExecutionContext creates a context seeded with the given variables.
// variables may be nil. resources are host-provided and read-only from the
// perspective of actions; the engine never mutates them.
func NewExecutionContext(variables map[string]any, resources map[string]any) *ExecutionContext {
	vars := make(map[string]any, len(variables))
	for k, v := range variables {
		vars[k] = v
	}
	res := make(map[string]any, len(resources))
	for k, v := range resources {
		res[k] = v
	}
	return &ExecutionContext{
		variables: vars,
		resources: res,
		ctx:       context.Background(),
	}
}

// EnableTrace turns on execution tracing for this context. Must be called
// before Execute; tracing cannot be toggled mid-run.
func (c *ExecutionContext) EnableTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceEnabled = true
}

func (c *ExecutionContext) traceOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traceEnabled
}

// Trace returns the accumulated execution trace, or nil if tracing was not
// enabled.
func (c *ExecutionContext) Trace() *ExecutionTrace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace
}

// Get reads a variable. The second return value reports whether the key
// was present, distinguishing "absent" from "present and nil".
func (c *ExecutionContext) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.variables[key]
	return v, ok
}

// Set stores or overwrites a variable.
func (c *ExecutionContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = value
}

// Unset removes a variable, used to clean up the temporary binding created
// while extracting an outputExpression (§4.4.3).
func (c *ExecutionContext) Unset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.variables, key)
}

// Resource reads a host-provided resource.
func (c *ExecutionContext) Resource(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.resources[key]
	return v, ok
}

// Variables returns a snapshot copy of every variable currently bound,
// suitable for expression evaluation or trace snapshots. Mutating the
// returned map does not affect the context.
func (c *ExecutionContext) Variables() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// CurrentRuleID reports the rule currently being traversed.
func (c *ExecutionContext) CurrentRuleID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRuleID
}

func (c *ExecutionContext) setCurrentRule(ruleID string, depth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentRuleID = ruleID
	c.depth = depth
}

// Depth reports how many rule entries this execution has performed so far.
func (c *ExecutionContext) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// SetError records the most recent ErrorInfo, surfaced on the
// ExecutionResult when a run fails.
func (c *ExecutionContext) SetError(info ErrorInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = &info
}

// Error returns the most recently recorded ErrorInfo, if any.
func (c *ExecutionContext) Error() *ErrorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *ExecutionContext) appendStep(step ExecutionStep) {
	c.mu.Lock()
	tr := c.trace
	on := c.traceEnabled
	c.mu.Unlock()
	if on && tr != nil {
		tr.append(step)
	}
}

// context.Context implementation — delegates to the embedded ctx so
// cancellation/deadlines set by the Executor's timeout watcher propagate
// to anything a custom Action calls with the ExecutionContext itself.

func (c *ExecutionContext) Deadline() (deadline time.Time, ok bool) {
	return c.ctx.Deadline()
}

func (c *ExecutionContext) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *ExecutionContext) Err() error {
	return c.ctx.Err()
}

func (c *ExecutionContext) Value(key any) any {
	if k, ok := key.(string); ok {
		if v, present := c.Get(k); present {
			return v
		}
	}
	return c.ctx.Value(key)
}

// WithContext returns a shallow copy of the ExecutionContext bound to a
// new embedded context.Context, mirroring http.Request.WithContext. The
// Executor uses this to attach the per-execute timeout deadline without
// mutating the caller's original context value.
func (c *ExecutionContext) WithContext(ctx context.Context) *ExecutionContext {
	c.mu.Lock()
	clone := &ExecutionContext{
		variables:     c.variables,
		resources:     c.resources,
		currentRuleID: c.currentRuleID,
		depth:         c.depth,
		err:           c.err,
		traceEnabled:  c.traceEnabled,
		trace:         c.trace,
		ctx:           ctx,
	}
	c.mu.Unlock()
	return clone
}

package ruleengine

// RuleEngineConfig is the root of a parsed rule-engine configuration: a
// named entry point, global limits, and the ordered set of rules that make
// up the graph. Version is informational and never inspected by the engine
// itself.
type RuleEngineConfig struct {
	Version        string           `json:"version,omitempty"`
	EntryPoint     string           `json:"entryPoint"`
	GlobalSettings GlobalSettings   `json:"globalSettings"`
	Rules          []RuleDefinition `json:"rules"`
}

// RuleByID returns the first rule with the given id, found by a linear
// scan of Rules, or false if no such rule exists. Neither LoadConfig nor
// the validators check rule ids for uniqueness, so a later rule sharing an
// id is never returned.
func (c *RuleEngineConfig) RuleByID(id string) (RuleDefinition, bool) {
	for _, r := range c.Rules {
		if r.RuleID == id {
			return r, true
		}
	}
	return RuleDefinition{}, false
}

// GlobalSettings carries the engine-wide limits applied to every execution.
// MaxExecutionDepth and TimeoutMs are given defaults by ApplyDefaults;
// DefaultErrorRule is optional and, when set, must name an existing rule.
type GlobalSettings struct {
	MaxExecutionDepth int    `json:"maxExecutionDepth" default:"50" validate:"gte=1"`
	TimeoutMs         int64  `json:"timeout" default:"30000" validate:"gte=1"`
	DefaultErrorRule  string `json:"defaultErrorRule,omitempty"`
}

// RuleDefinition is a single named node in the rule graph: an ordered
// sequence of actions to run, followed by an ordered set of guarded
// transitions to successor rules. A terminal rule ends execution once its
// actions complete; its transitions, if any, are never evaluated.
type RuleDefinition struct {
	RuleID      string                 `json:"ruleId"`
	Description string                 `json:"description,omitempty"`
	Actions     []ActionDefinition     `json:"actions"`
	Transitions []TransitionDefinition `json:"transitions"`
	Terminal    bool                   `json:"terminal,omitempty"`
}

// ActionByID returns the action with the given id within this rule.
func (r *RuleDefinition) ActionByID(id string) (ActionDefinition, bool) {
	for _, a := range r.Actions {
		if a.ActionID == id {
			return a, true
		}
	}
	return ActionDefinition{}, false
}

// ActionDefinition describes one unit of work within a rule: its type tag
// (resolved case-insensitively against the ActionRegistry), an opaque
// config blob interpreted by whichever provider creates the action, an
// optional pre-condition, and optional output binding.
type ActionDefinition struct {
	ActionID         string         `json:"actionId"`
	Type             string         `json:"type"`
	Config           map[string]any `json:"config,omitempty"`
	Condition        string         `json:"condition,omitempty"`
	OutputVariable   string         `json:"outputVariable,omitempty"`
	OutputExpression string         `json:"outputExpression,omitempty"`
	ContinueOnError  bool           `json:"continueOnError,omitempty"`
	OnError          *OnError       `json:"onError,omitempty"`
}

// OnError names the rule an action's failure should route execution to,
// bypassing GlobalSettings.DefaultErrorRule.
type OnError struct {
	TargetRule string `json:"targetRule"`
}

// TransitionDefinition is a guarded directed edge from the owning rule to
// TargetRule. Within a rule, transitions are evaluated in descending
// Priority order and the first truthy Condition wins; ties are broken by
// order of appearance in the configuration.
type TransitionDefinition struct {
	Condition        string            `json:"condition"`
	TargetRule       string            `json:"targetRule"`
	Priority         int               `json:"priority,omitempty"`
	ContextTransform map[string]string `json:"contextTransform,omitempty"`
	Terminal         bool              `json:"terminal,omitempty"`
}

package ruleengine

import (
	"fmt"
	"log/slog"

	"ruleengine/expression"
	"ruleengine/validate"
)

// BuilderOption configures a BuildExecutor call. Grounded on the Java
// original's RuleEngineBuilder fluent API, expressed as Go functional
// options rather than a chained mutable builder object.
type BuilderOption func(*buildConfig)

type buildConfig struct {
	skipValidation    bool
	includeOptional   bool
	stopOnFirstError  bool
	registerBuiltins  bool
	registry          *ActionRegistry
	evaluator         *expression.Evaluator
	cacheSize         int
	logger            *slog.Logger
}

// WithValidation toggles the pre-execution validator chain. Validation
// runs by default; pass false only when the caller has already validated
// cfg through some other path and wants to skip the redundant pass.
func WithValidation(enabled bool) BuilderOption {
	return func(c *buildConfig) { c.skipValidation = !enabled }
}

// WithOptionalValidators includes DuplicateActionValidator,
// ConditionalActionValidator and CircularDependencyValidator in the chain
// alongside the always-on reference/reachability/cycle checks. Defaults
// to true.
func WithOptionalValidators(enabled bool) BuilderOption {
	return func(c *buildConfig) { c.includeOptional = enabled }
}

// WithStopOnFirstError controls whether the validator chain short-circuits
// after the first validator reporting an ERROR. Defaults to true.
func WithStopOnFirstError(enabled bool) BuilderOption {
	return func(c *buildConfig) { c.stopOnFirstError = enabled }
}

// WithBuiltInActions toggles automatic registration of the built-in
// SCRIPT action provider. Defaults to true.
func WithBuiltInActions(enabled bool) BuilderOption {
	return func(c *buildConfig) { c.registerBuiltins = enabled }
}

// WithActionRegistry supplies a pre-populated ActionRegistry instead of
// letting BuildExecutor create an empty one. Custom providers should
// already be Register'd on it.
func WithActionRegistry(r *ActionRegistry) BuilderOption {
	return func(c *buildConfig) { c.registry = r }
}

// WithEvaluator supplies a shared expression.Evaluator (and therefore its
// compile cache) instead of letting BuildExecutor create one.
func WithEvaluator(e *expression.Evaluator) BuilderOption {
	return func(c *buildConfig) { c.evaluator = e }
}

// WithExpressionCacheSize sets the single-expression compile cache size
// used by the evaluator BuildExecutor creates. Ignored if WithEvaluator
// supplies one explicitly.
func WithExpressionCacheSize(size int) BuilderOption {
	return func(c *buildConfig) { c.cacheSize = size }
}

// WithLogger supplies the *slog.Logger the Executor logs rule entry,
// action start/failure, and error routing through. Defaults to
// slog.Default(), mirroring NewExecutor(l *slog.Logger, ...) in the
// teacher.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(c *buildConfig) { c.logger = l }
}

// BuildExecutor validates cfg (unless disabled), assembles an
// ActionRegistry and expression.Evaluator (unless supplied), instantiates
// every rule's actions via the registry, and returns a ready-to-run
// Executor. Returns a *BuildError wrapping the validation Result's
// formatted issues when validation fails with any ERROR, or wrapping the
// underlying error when action instantiation fails.
func BuildExecutor(cfg *RuleEngineConfig, providers []ActionProvider, opts ...BuilderOption) (*Executor, error) {
	bc := &buildConfig{
		includeOptional:  true,
		stopOnFirstError: true,
		registerBuiltins: true,
		cacheSize:        expression.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(bc)
	}

	if err := ApplyDefaults(&cfg.GlobalSettings); err != nil {
		return nil, &BuildError{Err: err}
	}
	if err := validateStruct(cfg.GlobalSettings); err != nil {
		return nil, &BuildError{Err: err}
	}

	if !bc.skipValidation {
		chain := validate.DefaultChain(bc.includeOptional)
		chain.StopOnFirstError = bc.stopOnFirstError
		result := chain.Validate(cfg)
		if !result.IsValid() {
			var issues []string
			for _, iss := range result.Sorted() {
				issues = append(issues, fmt.Sprintf("[%s:%s] %s", iss.Severity, iss.Code, iss.Message))
			}
			return nil, &BuildError{Issues: issues}
		}
	}

	logger := bc.logger
	if logger == nil {
		logger = slog.Default()
	}

	evaluator := bc.evaluator
	if evaluator == nil {
		evaluator = expression.NewEvaluator(bc.cacheSize)
	}

	registry := bc.registry
	if registry == nil {
		registry = NewActionRegistry()
	}
	if bc.registerBuiltins {
		registry.Register(NewScriptActionProvider(evaluator))
	}
	for _, p := range providers {
		registry.Register(p)
	}

	actionsByRule := make(map[string]map[string]Action, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		created := make(map[string]Action, len(rule.Actions))
		for _, def := range rule.Actions {
			action, err := registry.CreateAction(def)
			if err != nil {
				return nil, &BuildError{Err: err}
			}
			created[def.ActionID] = action
		}
		actionsByRule[rule.RuleID] = created
	}

	return &Executor{
		config:        cfg,
		registry:      registry,
		evaluator:     evaluator,
		actionsByRule: actionsByRule,
		l:             logger,
	}, nil
}

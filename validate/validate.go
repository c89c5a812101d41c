// Package validate implements the composable pre-execution configuration
// checks of §4.3: reference integrity, reachability, cycle detection,
// duplicate-action, conditional-syntax, and circular variable-dependency
// validators, composed by a CompositeValidator.
package validate

import (
	"fmt"
	"sort"

	"ruleengine"
)

// Severity is one of ERROR, WARNING, INFO (§3).
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

var severityRank = map[Severity]int{SeverityError: 0, SeverityWarning: 1, SeverityInfo: 2}

// Issue is one finding produced by a Validator.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Context  string
}

// Result is the multiset of issues produced by validation. IsValid is true
// iff no issue has ERROR severity.
type Result struct {
	Issues []Issue
}

// IsValid reports whether Result contains no ERROR-severity issue.
func (r Result) IsValid() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the ERROR-severity issues.
func (r Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Sorted returns a copy of Issues ordered ERROR, then WARNING, then INFO,
// stable within each severity.
func (r Result) Sorted() []Issue {
	out := make([]Issue, len(r.Issues))
	copy(out, r.Issues)
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank[out[i].Severity] < severityRank[out[j].Severity]
	})
	return out
}

func merge(results ...Result) Result {
	var all []Issue
	for _, r := range results {
		all = append(all, r.Issues...)
	}
	return Result{Issues: all}
}

// Validator is the shared contract every pre-execution check implements.
type Validator interface {
	Validate(cfg *ruleengine.RuleEngineConfig) Result
	Name() string
}

// Composite runs a sequence of validators in registration order and
// merges their results. When StopOnFirstError is true, it short-circuits
// after the first validator whose result contains any ERROR, mirroring
// the Java original's CompositeValidator.createDefault(true).
type Composite struct {
	StopOnFirstError bool
	validators       []Validator
}

// NewComposite builds a Composite over the given validators.
func NewComposite(stopOnFirstError bool, validators ...Validator) *Composite {
	return &Composite{StopOnFirstError: stopOnFirstError, validators: validators}
}

// DefaultChain returns the standard validator chain named in §4.3:
// ReferenceValidator, ReachabilityValidator, CycleDetector always, plus
// DuplicateActionValidator, ConditionalActionValidator and
// CircularDependencyValidator when includeOptional is true.
func DefaultChain(includeOptional bool) *Composite {
	vs := []Validator{
		&ReferenceValidator{},
		&ReachabilityValidator{},
		&CycleDetector{},
	}
	if includeOptional {
		vs = append(vs,
			&DuplicateActionValidator{},
			&ConditionalActionValidator{},
			&CircularDependencyValidator{},
		)
	}
	return NewComposite(true, vs...)
}

// Validate runs the chain. A validator that panics is converted to a
// COMP-002 ERROR issue rather than propagating, per §4.3's "validator
// exceptions themselves become ERROR entries" rule.
func (c *Composite) Validate(cfg *ruleengine.RuleEngineConfig) Result {
	var results []Result
	for _, v := range c.validators {
		res := runValidatorSafely(v, cfg)
		results = append(results, res)
		if c.StopOnFirstError && !res.IsValid() {
			break
		}
	}
	return merge(results...)
}

func runValidatorSafely(v Validator, cfg *ruleengine.RuleEngineConfig) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Issues: []Issue{{
				Severity: SeverityError,
				Code:     "COMP-002",
				Message:  fmt.Sprintf("validator %q panicked: %v", v.Name(), r),
			}}}
		}
	}()
	return v.Validate(cfg)
}

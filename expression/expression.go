// Package expression implements the compile/cache/evaluate contract of
// §4.1: a small scripting language (literals, member/index access,
// arithmetic, comparisons, logical/ternary operators, and — for
// multi-statement "script" forms — assignment and for-loops), a bound
// util namespace, boolean coercion, and a process-safe compile cache.
package expression

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr/vm"
)

// CompiledExpression is a reusable handle returned by Evaluator.Compile.
// Exactly one of program (expr-lang, single-expression form) or script
// (hand-rolled AST, multi-statement form) is set.
type CompiledExpression struct {
	source  string
	isScript bool
	program *vm.Program
	script  *Script
}

// Source returns the original expression text this handle was compiled
// from.
func (c *CompiledExpression) Source() string { return c.source }

// IsScript reports whether this handle is a multi-statement script form.
func (c *CompiledExpression) IsScript() bool { return c.isScript }

// Evaluator is the expression subsystem's public entry point: it owns the
// single-expression compile cache and dispatches to either expr-lang or
// the hand-rolled interpreter depending on the expression's form.
type Evaluator struct {
	cache *Cache
}

// NewEvaluator creates an Evaluator with a cache of the given max size (0
// or negative uses DefaultCacheSize).
func NewEvaluator(cacheSize int) *Evaluator {
	return &Evaluator{cache: NewCache(cacheSize)}
}

// isScriptForm detects the multi-statement script form per §4.1: presence
// of `;` or a `for (` substring.
func isScriptForm(src string) bool {
	return strings.Contains(src, ";") || strings.Contains(src, "for (")
}

// Compile returns a reusable CompiledExpression. Single-expression forms
// are served from (and inserted into) the shared cache; script forms are
// always freshly parsed, since §4.1 restricts caching to the
// single-expression path.
func (e *Evaluator) Compile(source string) (*CompiledExpression, error) {
	if isScriptForm(source) {
		script, err := parseScript(source)
		if err != nil {
			return nil, &ExpressionError{Expression: source, Err: err}
		}
		return &CompiledExpression{source: source, isScript: true, script: script}, nil
	}

	if program, ok := e.cache.Get(source); ok {
		return &CompiledExpression{source: source, program: program}, nil
	}

	program, err := compileSingle(source, nil)
	if err != nil {
		return nil, &ExpressionError{Expression: source, Err: err}
	}
	e.cache.Put(source, program)
	return &CompiledExpression{source: source, program: program}, nil
}

// Evaluate compiles (or fetches the cached form of) expr and runs it
// against ctx.
func (e *Evaluator) Evaluate(expr string, ctx map[string]any) (any, error) {
	compiled, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.Run(compiled, ctx)
}

// Run evaluates an already-compiled expression against ctx.
func (e *Evaluator) Run(compiled *CompiledExpression, ctx map[string]any) (any, error) {
	if compiled.isScript {
		root := newScope(copyVars(ctx), nil)
		v, err := evalScript(compiled.script, root)
		if err != nil {
			return nil, &ExpressionError{Expression: compiled.source, Err: err}
		}
		return v, nil
	}

	v, err := runSingle(compiled.program, ctx)
	if err != nil {
		return nil, &ExpressionError{Expression: compiled.source, Err: err}
	}
	return v, nil
}

func copyVars(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// EvaluateBoolean evaluates expr then applies the §4.1 boolean coercion
// law via ToBool.
func (e *Evaluator) EvaluateBoolean(expr string, ctx map[string]any) (bool, error) {
	v, err := e.Evaluate(expr, ctx)
	if err != nil {
		return false, err
	}
	return ToBool(v), nil
}

// IsValid parse-checks expr without evaluating it; it never returns an
// error, only a bool, matching §4.1's isValid contract.
func (e *Evaluator) IsValid(expr string) bool {
	_, err := e.Compile(expr)
	return err == nil
}

// EvaluateAs evaluates expr then asserts the runtime value is assignable
// to T, failing with a type-mismatch ExpressionError otherwise. nil passes
// through as the zero value of T only when T's zero value is itself a
// valid "null" representation (pointer, interface, slice, map); for other
// T a nil result is reported as a mismatch.
func EvaluateAs[T any](e *Evaluator, expr string, ctx map[string]any) (T, error) {
	var zero T
	v, err := e.Evaluate(expr, ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		k := reflect.TypeOf(zero)
		if k == nil || isNilable(k.Kind()) {
			return zero, nil
		}
		return zero, &ExpressionError{Expression: expr, Err: fmt.Errorf("expected %T, got null", zero)}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ExpressionError{Expression: expr, Err: fmt.Errorf("expected %T, got %T", zero, v)}
	}
	return typed, nil
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// ExpressionError mirrors the top-level ruleengine.ExpressionError shape
// so this package has no import-cycle dependency on the root package; the
// root package's executor wraps these in its own ExpressionError.
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression error in %q: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

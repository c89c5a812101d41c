package expression

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// compileSingle compiles one bare expression (no `;`, no `for (`) with
// expr-lang, grounded on runtime/engine/yaml/evaluator.go's
// expr.Compile/expr.Run usage. Unlike the teacher's flat-key convention,
// env is passed through untouched: expr-lang resolves `a.b.c` as nested
// map-key access natively, and `util.roundTo(x, 2)` as a method call on
// the UtilNamespace value bound under "util" (expr-lang's member resolver
// tries the literal name before the capitalized Go method name, so
// lowercase call sites work unmodified).
func compileSingle(source string, sampleEnv map[string]any) (*vm.Program, error) {
	env := map[string]any{"util": UtilNamespace{}}
	for k, v := range sampleEnv {
		env[k] = v
	}
	return expr.Compile(source, expr.Env(env), expr.AllowUndefinedVariables())
}

func runSingle(program *vm.Program, ctxVars map[string]any) (any, error) {
	env := map[string]any{"util": UtilNamespace{}}
	for k, v := range ctxVars {
		env[k] = v
	}
	return expr.Run(program, env)
}

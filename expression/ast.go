package expression

// Node is one node of the parsed script AST. The hand-rolled parser
// produces a tree of these; the interpreter walks it directly rather than
// compiling to any intermediate bytecode, per §9's "dependency-free
// hand-written Pratt parser plus tree-walking interpreter is sufficient".
type Node interface{}

type (
	// NilLiteral, BoolLiteral, NumberLiteral, StringLiteral are leaf value
	// nodes.
	NilLiteral    struct{}
	BoolLiteral   struct{ Value bool }
	NumberLiteral struct{ Value float64 }
	StringLiteral struct{ Value string }

	// Identifier references a variable by name, resolved against the
	// current evaluation scope.
	Identifier struct{ Name string }

	// MemberAccess is `Target.Name`, resolved as a key lookup when Target
	// is a map[string]any; any other runtime type yields nil (struct
	// fields and methods are not looked up).
	MemberAccess struct {
		Target Node
		Name   string
	}

	// IndexAccess is `Target[Index]`.
	IndexAccess struct {
		Target Node
		Index  Node
	}

	// Call is a function or method invocation: Target(Args...) when
	// Target is a bare identifier, or Target.Name(Args...) when Target is
	// a MemberAccess — the parser folds both shapes into this node, with
	// Callee holding either the looked-up function value's path.
	Call struct {
		Callee Node
		Args   []Node
	}

	// Unary is `!Operand` or `-Operand`.
	Unary struct {
		Op      string
		Operand Node
	}

	// Binary is a left-associative binary operator application.
	Binary struct {
		Op    string
		Left  Node
		Right Node
	}

	// Ternary is `Cond ? Then : Else`.
	Ternary struct {
		Cond Node
		Then Node
		Else Node
	}

	// Assign is `Name = Value`, a script-form-only statement.
	Assign struct {
		Name  string
		Value Node
	}

	// ForLoop is `for (Var : Iterable) { Body }`, a script-form-only
	// statement. Body is a sequence of statements; the loop itself
	// produces no value.
	ForLoop struct {
		Var      string
		Iterable Node
		Body     []Node
	}

	// Script is an ordered sequence of statements; its value is the value
	// of the last statement if that statement was an expression, else nil.
	Script struct {
		Statements []Node
	}
)

package expression

import (
	"errors"
	"fmt"
)

// scope is a simple chained environment: lookups fall through to the
// parent when a name isn't found locally. for-loop variables and script
// assignments both live in the innermost scope so a loop body can shadow
// an outer binding without leaking it past the loop.
type scope struct {
	vars   map[string]any
	parent *scope
}

func newScope(vars map[string]any, parent *scope) *scope {
	return &scope{vars: vars, parent: parent}
}

func (s *scope) get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set writes into the scope that already owns the name, or the innermost
// scope if the name is new — matching ordinary block-scoped assignment
// semantics.
func (s *scope) set(name string, value any) {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = value
			return
		}
	}
	s.vars[name] = value
}

// evalScript runs every statement in order and returns the value of the
// last one, if it was an expression statement (assignments and for-loops
// contribute no return value of their own).
func evalScript(s *Script, root *scope) (any, error) {
	var result any
	for _, stmt := range s.Statements {
		v, isExpr, err := evalStatement(stmt, root)
		if err != nil {
			return nil, err
		}
		if isExpr {
			result = v
		} else {
			result = nil
		}
	}
	return result, nil
}

func evalStatement(n Node, sc *scope) (any, bool, error) {
	switch t := n.(type) {
	case *Assign:
		v, err := eval(t.Value, sc)
		if err != nil {
			return nil, false, err
		}
		sc.set(t.Name, v)
		return nil, false, nil
	case *ForLoop:
		iterable, err := eval(t.Iterable, sc)
		if err != nil {
			return nil, false, err
		}
		items, err := toIterable(iterable)
		if err != nil {
			return nil, false, err
		}
		for _, item := range items {
			loopScope := newScope(map[string]any{t.Var: item}, sc)
			for _, bodyStmt := range t.Body {
				if _, _, err := evalStatement(bodyStmt, loopScope); err != nil {
					return nil, false, err
				}
			}
		}
		return nil, false, nil
	default:
		v, err := eval(n, sc)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

func toIterable(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case map[string]any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			out = append(out, val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("for-loop: value is not iterable (%T)", v)
	}
}

// eval evaluates a single expression node against sc, recovering a panic
// raised by a util function (e.g. util.roundTo with a negative scale) into
// a plain error.
func eval(n Node, sc *scope) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(error); ok {
				err = pe
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return evalNode(n, sc)
}

func evalNode(n Node, sc *scope) (any, error) {
	switch t := n.(type) {
	case *NilLiteral:
		return nil, nil
	case *BoolLiteral:
		return t.Value, nil
	case *NumberLiteral:
		return t.Value, nil
	case *StringLiteral:
		return t.Value, nil
	case *Identifier:
		v, ok := sc.get(t.Name)
		if !ok {
			return nil, nil
		}
		return v, nil
	case *Unary:
		return evalUnary(t, sc)
	case *Binary:
		return evalBinary(t, sc)
	case *Ternary:
		cond, err := evalNode(t.Cond, sc)
		if err != nil {
			return nil, err
		}
		if ToBool(cond) {
			return evalNode(t.Then, sc)
		}
		return evalNode(t.Else, sc)
	case *MemberAccess:
		return evalMember(t, sc)
	case *IndexAccess:
		return evalIndex(t, sc)
	case *Call:
		return evalCall(t, sc)
	default:
		return nil, fmt.Errorf("unsupported expression node %T", n)
	}
}

func evalUnary(t *Unary, sc *scope) (any, error) {
	v, err := evalNode(t.Operand, sc)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case "!":
		return !ToBool(v), nil
	case "-":
		if v == nil {
			return nil, errors.New("cannot negate null")
		}
		return -ToDouble(v), nil
	}
	return nil, fmt.Errorf("unknown unary operator %q", t.Op)
}

func evalBinary(t *Binary, sc *scope) (any, error) {
	// Logical operators short-circuit and never touch arithmetic coercion.
	switch t.Op {
	case "&&":
		left, err := evalNode(t.Left, sc)
		if err != nil {
			return nil, err
		}
		if !ToBool(left) {
			return false, nil
		}
		right, err := evalNode(t.Right, sc)
		if err != nil {
			return nil, err
		}
		return ToBool(right), nil
	case "||":
		left, err := evalNode(t.Left, sc)
		if err != nil {
			return nil, err
		}
		if ToBool(left) {
			return true, nil
		}
		right, err := evalNode(t.Right, sc)
		if err != nil {
			return nil, err
		}
		return ToBool(right), nil
	}

	left, err := evalNode(t.Left, sc)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(t.Right, sc)
	if err != nil {
		return nil, err
	}

	switch t.Op {
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "<", "<=", ">", ">=":
		if left == nil || right == nil {
			return nil, fmt.Errorf("comparison operand is null")
		}
		l, r := ToDouble(left), ToDouble(right)
		switch t.Op {
		case "<":
			return l < r, nil
		case "<=":
			return l <= r, nil
		case ">":
			return l > r, nil
		case ">=":
			return l >= r, nil
		}
	case "+":
		if isString(left) || isString(right) {
			return stringify(left) + stringify(right), nil
		}
		if left == nil || right == nil {
			return nil, fmt.Errorf("arithmetic operand is null")
		}
		return ToDouble(left) + ToDouble(right), nil
	case "-", "*", "/":
		if left == nil || right == nil {
			return nil, fmt.Errorf("arithmetic operand is null")
		}
		l, r := ToDouble(left), ToDouble(right)
		switch t.Op {
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			if r == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return l / r, nil
		}
	}
	return nil, fmt.Errorf("unknown binary operator %q", t.Op)
}

func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) && isNumber(b) {
		return ToDouble(a) == ToDouble(b)
	}
	return a == b
}

func evalMember(t *MemberAccess, sc *scope) (any, error) {
	if id, ok := t.Target.(*Identifier); ok && id.Name == "util" {
		return nil, fmt.Errorf("util.%s must be called as a function", t.Name)
	}
	target, err := evalNode(t.Target, sc)
	if err != nil {
		return nil, err
	}
	return memberOf(target, t.Name), nil
}

func memberOf(target any, name string) any {
	switch m := target.(type) {
	case nil:
		return nil
	case map[string]any:
		return m[name]
	default:
		return nil
	}
}

func evalIndex(t *IndexAccess, sc *scope) (any, error) {
	target, err := evalNode(t.Target, sc)
	if err != nil {
		return nil, err
	}
	idx, err := evalNode(t.Index, sc)
	if err != nil {
		return nil, err
	}
	switch coll := target.(type) {
	case []any:
		i := ToInt(idx)
		if i < 0 || i >= len(coll) {
			return nil, nil
		}
		return coll[i], nil
	case map[string]any:
		key := stringify(idx)
		return coll[key], nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot index value of type %T", target)
	}
}

func evalCall(t *Call, sc *scope) (any, error) {
	member, ok := t.Callee.(*MemberAccess)
	if ok {
		if id, ok := member.Target.(*Identifier); ok && id.Name == "util" {
			fn, found := utilDispatch[member.Name]
			if !found {
				return nil, fmt.Errorf("unknown util function %q", member.Name)
			}
			args, err := evalArgs(t.Args, sc)
			if err != nil {
				return nil, err
			}
			return fn(args)
		}
		// Method call on an arbitrary object: only maps are supported,
		// and only as a value lookup followed by a call is not meaningful
		// for plain data maps, so this is always an error.
		return nil, fmt.Errorf("unsupported method call %q", member.Name)
	}
	return nil, fmt.Errorf("unsupported call expression")
}

func evalArgs(nodes []Node, sc *scope) ([]any, error) {
	args := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := evalNode(n, sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

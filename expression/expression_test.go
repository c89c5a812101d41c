package expression

import "testing"

func TestEvaluateBoolean_CoercionLaw(t *testing.T) {
	e := NewEvaluator(0)
	cases := []struct {
		expr string
		want bool
	}{
		{"1", true},
		{"0", false},
		{`"hello"`, true},
		{`""`, false},
		{`"false"`, false},
		{`"FALSE"`, false},
		{"true", true},
		{"false", false},
	}
	for _, c := range cases {
		got, err := e.EvaluateBoolean(c.expr, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestCompile_CachesSingleExpressionForm(t *testing.T) {
	e := NewEvaluator(0)
	if _, err := e.Compile("a+b"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if e.cache.Len() != 1 {
		t.Fatalf("expected 1 cached program, got %d", e.cache.Len())
	}
	if _, err := e.Compile("a+b"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if e.cache.Len() != 1 {
		t.Fatalf("expected cache to stay at 1 entry on a repeat compile, got %d", e.cache.Len())
	}
}

func TestCompile_ScriptFormNeverCached(t *testing.T) {
	e := NewEvaluator(0)
	if _, err := e.Compile("x = 1; x + 1"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if e.cache.Len() != 0 {
		t.Fatalf("expected script form to bypass the cache, got %d entries", e.cache.Len())
	}
}

func TestScript_AssignAndForLoop(t *testing.T) {
	e := NewEvaluator(0)
	script := `total = 0; for (item : items) { total = total + item.price }; total`
	v, err := e.Evaluate(script, map[string]any{
		"items": []any{
			map[string]any{"price": 10.0},
			map[string]any{"price": 5.0},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 15.0 {
		t.Fatalf("expected 15.0, got %v", v)
	}
}

func TestUtilRoundTo_Idempotent(t *testing.T) {
	u := UtilNamespace{}
	once := u.RoundTo(1.005, 2)
	twice := u.RoundTo(once, 2)
	if once != twice {
		t.Fatalf("roundTo not idempotent: once=%v twice=%v", once, twice)
	}
}

func TestUtilRoundTo_NegativeDecimalsPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a panic for negative decimals")
		}
	}()
	UtilNamespace{}.RoundTo(1.0, -1)
}

func TestUtilJsonRoundTrip(t *testing.T) {
	u := UtilNamespace{}
	values := []any{
		nil, true, false, 1.5, "hello",
		[]any{1.0, "a", nil},
		map[string]any{"k": "v", "n": 2.0},
	}
	for _, v := range values {
		got := u.FromJson(u.ToJson(v))
		gotJSON := u.ToJson(got)
		wantJSON := u.ToJson(v)
		if gotJSON != wantJSON {
			t.Errorf("round trip mismatch for %v: got %s want %s", v, gotJSON, wantJSON)
		}
	}
}

func TestUtilToJson_MarshalFailureReturnsErrorString(t *testing.T) {
	u := UtilNamespace{}
	ch := make(chan int)
	got := u.ToJson(ch)
	if got[:10] != `{"error": ` {
		t.Fatalf("expected a JSON error string, got %q", got)
	}
}

func TestScript_ErrorsOnNullArithmeticOperand(t *testing.T) {
	e := NewEvaluator(0)
	_, err := e.Evaluate("missing + 1; missing + 1", nil)
	if err == nil {
		t.Fatalf("expected an error for null arithmetic operand")
	}
}

func TestIsValid(t *testing.T) {
	e := NewEvaluator(0)
	if !e.IsValid("1 + 1") {
		t.Fatalf("expected valid expression to parse")
	}
	if e.IsValid("1 +") {
		t.Fatalf("expected malformed expression to be invalid")
	}
}

package expression

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UtilNamespace is the fixed library of pure functions bound into every
// evaluation context as "util" (§4.1). Its methods are exported so the
// expr-lang evaluator can dispatch to them by name via reflection; the
// hand-rolled script interpreter calls the same methods directly through
// the utilDispatch table below, so both evaluators share one
// implementation.
type UtilNamespace struct{}

// Now returns the current instant as a time.Time (UTC).
func (UtilNamespace) Now() time.Time { return time.Now().UTC() }

// Today returns the current date at midnight UTC.
func (UtilNamespace) Today() time.Time {
	n := time.Now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentDateTime returns the current local date-time.
func (UtilNamespace) CurrentDateTime() time.Time { return time.Now() }

// CurrentTimeMillis returns Unix epoch milliseconds.
func (UtilNamespace) CurrentTimeMillis() int64 { return time.Now().UnixMilli() }

// FormatDate formats an instant/date-time value with a Go reference-time
// layout. Per §4.1: nil input returns nil; a non-time value returns its
// default string form.
func (UtilNamespace) FormatDate(value any, pattern string) any {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		return t.Format(pattern)
	}
	return stringify(value)
}

// Abs, Round, Ceil, Floor, Max, Min, Pow, Sqrt — §4.1 Math functions.

func (UtilNamespace) Abs(d float64) float64  { return math.Abs(d) }
func (UtilNamespace) Round(d float64) int64  { return int64(math.Round(d)) }
func (UtilNamespace) Ceil(d float64) float64 { return math.Ceil(d) }
func (UtilNamespace) Floor(d float64) float64 { return math.Floor(d) }
func (UtilNamespace) Max(a, b float64) float64 { return math.Max(a, b) }
func (UtilNamespace) Min(a, b float64) float64 { return math.Min(a, b) }
func (UtilNamespace) Pow(base, exp float64) float64 { return math.Pow(base, exp) }
func (UtilNamespace) Sqrt(d float64) float64 { return math.Sqrt(d) }

// RoundTo rounds d to n decimal places, HALF_UP, per §4.1. Negative n is a
// domain error, reported by panicking with a message string that the
// interpreters convert into an ExpressionError; expr-lang functions and
// the hand-rolled interpreter both treat a panic from a util call as an
// evaluation failure.
func (UtilNamespace) RoundTo(d float64, n int) float64 {
	if n < 0 {
		panic("util.roundTo: decimals cannot be negative")
	}
	shift := math.Pow(10, float64(n))
	return math.Round(d*shift) / shift
}

// SumItems sums price*quantity across a list of maps, skipping entries
// with a missing or nil price/quantity (§4.1).
func (UtilNamespace) SumItems(items any) float64 {
	list, ok := items.([]any)
	if !ok || len(list) == 0 {
		return 0.0
	}
	total := 0.0
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		price, okP := item["price"]
		qty, okQ := item["quantity"]
		if !okP || !okQ || price == nil || qty == nil {
			continue
		}
		total += ToDouble(price) * ToDouble(qty)
	}
	return total
}

// SumField sums the named field's double-coerced values across a list of
// maps.
func (UtilNamespace) SumField(items any, field string) float64 {
	list, ok := items.([]any)
	if !ok || len(list) == 0 || field == "" {
		return 0.0
	}
	sum := 0.0
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if v, present := item[field]; present && v != nil {
			sum += ToDouble(v)
		}
	}
	return sum
}

// AvgField is SumField divided by the list size; an empty list yields 0.0.
func (u UtilNamespace) AvgField(items any, field string) float64 {
	list, ok := items.([]any)
	if !ok || len(list) == 0 {
		return 0.0
	}
	return u.SumField(items, field) / float64(len(list))
}

// CountItems returns the size of a list/map, or 0 for nil.
func (UtilNamespace) CountItems(collection any) int {
	return collectionSize(collection)
}

// ToJson / ToPrettyJson return a stable JSON encoding of v. On marshal
// failure, per the Java original this system was distilled from, they
// return the *string* `{"error": "..."}` rather than a decoded JSON
// object — preserved here (see DESIGN.md's Open Question decision).
func (UtilNamespace) ToJson(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error": "Failed to serialize: ` + err.Error() + `"}`
	}
	return string(b)
}

func (UtilNamespace) ToPrettyJson(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return `{"error": "Failed to serialize: ` + err.Error() + `"}`
	}
	return string(b)
}

// FromJson decodes s, returning nil on a blank input or a decode failure.
func (UtilNamespace) FromJson(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

// IsEmpty resolves on runtime type: strings check length, collections
// check size, nil is always empty (§4.1 — "overloads resolve on runtime
// type").
func (UtilNamespace) IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return collectionSize(v) == 0
	}
}

func (u UtilNamespace) IsNotEmpty(v any) bool { return !u.IsEmpty(v) }

// IsBlank is the string-only predicate; null-safe.
func (UtilNamespace) IsBlank(s any) bool {
	str, ok := s.(string)
	if !ok {
		return s == nil
	}
	return strings.TrimSpace(str) == ""
}

func (UtilNamespace) Lower(s any) any {
	str, ok := s.(string)
	if !ok {
		return nil
	}
	return strings.ToLower(str)
}

func (UtilNamespace) Upper(s any) any {
	str, ok := s.(string)
	if !ok {
		return nil
	}
	return strings.ToUpper(str)
}

func (UtilNamespace) Trim(s any) any {
	str, ok := s.(string)
	if !ok {
		return nil
	}
	return strings.TrimSpace(str)
}

// Contains resolves on runtime type: string containment or collection
// membership.
func (UtilNamespace) Contains(a, b any) bool {
	if str, ok := a.(string); ok {
		sub, ok := b.(string)
		return ok && strings.Contains(str, sub)
	}
	list, ok := a.([]any)
	if !ok {
		return false
	}
	for _, el := range list {
		if el == b {
			return true
		}
	}
	return false
}

func (UtilNamespace) StartsWith(s, prefix any) bool {
	str, ok1 := s.(string)
	p, ok2 := prefix.(string)
	return ok1 && ok2 && strings.HasPrefix(str, p)
}

func (UtilNamespace) EndsWith(s, suffix any) bool {
	str, ok1 := s.(string)
	suf, ok2 := suffix.(string)
	return ok1 && ok2 && strings.HasSuffix(str, suf)
}

func (UtilNamespace) Substring(s any, start, end int) any {
	str, ok := s.(string)
	if !ok {
		return nil
	}
	r := []rune(str)
	if start < 0 || end > len(r) || start > end {
		return ""
	}
	return string(r[start:end])
}

func (UtilNamespace) Replace(s, target, replacement any) any {
	str, ok := s.(string)
	if !ok {
		return nil
	}
	t, _ := target.(string)
	r, _ := replacement.(string)
	return strings.ReplaceAll(str, t, r)
}

// Size mirrors CountItems for collection-typed call sites (§4.1 Collection
// functions).
func (UtilNamespace) Size(collection any) int { return collectionSize(collection) }

func (UtilNamespace) First(collection any) any {
	switch t := collection.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		return t[0]
	default:
		return nil
	}
}

func (UtilNamespace) Last(list any) any {
	l, ok := list.([]any)
	if !ok || len(l) == 0 {
		return nil
	}
	return l[len(l)-1]
}

func (UtilNamespace) IsNull(v any) bool    { return v == nil }
func (UtilNamespace) IsNotNull(v any) bool { return v != nil }

func (UtilNamespace) DefaultIfNull(v, d any) any {
	if v == nil {
		return d
	}
	return v
}

func (UtilNamespace) ToDouble(v any) float64 { return ToDouble(v) }
func (UtilNamespace) ToInt(v any) int        { return ToInt(v) }

func (UtilNamespace) Uuid() string { return uuid.New().String() }

// RandomInt returns a pseudo-random int in [min, max], inclusive.
func (UtilNamespace) RandomInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + rand.Intn(max-min+1)
}

func (UtilNamespace) Join(collection any, delim string) string {
	list, ok := collection.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, len(list))
	for i, el := range list {
		parts[i] = stringify(el)
	}
	return strings.Join(parts, delim)
}

func (UtilNamespace) Split(s, delim string) []any {
	if s == "" {
		return []any{}
	}
	parts := strings.Split(s, delim)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

// Coalesce returns the first non-nil argument, or nil if every argument
// is nil.
func (UtilNamespace) Coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func collectionSize(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	case string:
		return len(t)
	default:
		return 0
	}
}

// utilDispatch is the name→method table the hand-rolled script
// interpreter uses to call util functions without going through
// expr-lang's reflection path. Keys are the lowercase names expressions
// use (util.roundTo(...), etc).
var utilDispatch = buildUtilDispatch()

func buildUtilDispatch() map[string]func(args []any) (any, error) {
	u := UtilNamespace{}
	one := func(f func(any) any) func([]any) (any, error) {
		return func(args []any) (any, error) {
			a := argAt(args, 0)
			return f(a), nil
		}
	}
	return map[string]func(args []any) (any, error){
		"now":             func(a []any) (any, error) { return u.Now(), nil },
		"today":           func(a []any) (any, error) { return u.Today(), nil },
		"currentDateTime": func(a []any) (any, error) { return u.CurrentDateTime(), nil },
		"currentTimeMillis": func(a []any) (any, error) { return u.CurrentTimeMillis(), nil },
		"formatDate": func(a []any) (any, error) {
			return u.FormatDate(argAt(a, 0), stringifyArg(argAt(a, 1))), nil
		},
		"abs":  func(a []any) (any, error) { return u.Abs(ToDouble(argAt(a, 0))), nil },
		"round": func(a []any) (any, error) { return u.Round(ToDouble(argAt(a, 0))), nil },
		"ceil": func(a []any) (any, error) { return u.Ceil(ToDouble(argAt(a, 0))), nil },
		"floor": func(a []any) (any, error) { return u.Floor(ToDouble(argAt(a, 0))), nil },
		"max":  func(a []any) (any, error) { return u.Max(ToDouble(argAt(a, 0)), ToDouble(argAt(a, 1))), nil },
		"min":  func(a []any) (any, error) { return u.Min(ToDouble(argAt(a, 0)), ToDouble(argAt(a, 1))), nil },
		"pow":  func(a []any) (any, error) { return u.Pow(ToDouble(argAt(a, 0)), ToDouble(argAt(a, 1))), nil },
		"sqrt": func(a []any) (any, error) { return u.Sqrt(ToDouble(argAt(a, 0))), nil },
		"roundTo": func(a []any) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &panicError{r}
				}
			}()
			return u.RoundTo(ToDouble(argAt(a, 0)), ToInt(argAt(a, 1))), nil
		},
		"sumItems":      func(a []any) (any, error) { return u.SumItems(argAt(a, 0)), nil },
		"sumField":      func(a []any) (any, error) { return u.SumField(argAt(a, 0), stringifyArg(argAt(a, 1))), nil },
		"avgField":      func(a []any) (any, error) { return u.AvgField(argAt(a, 0), stringifyArg(argAt(a, 1))), nil },
		"countItems":    func(a []any) (any, error) { return u.CountItems(argAt(a, 0)), nil },
		"toJson":        func(a []any) (any, error) { return u.ToJson(argAt(a, 0)), nil },
		"toPrettyJson":  func(a []any) (any, error) { return u.ToPrettyJson(argAt(a, 0)), nil },
		"fromJson":      func(a []any) (any, error) { return u.FromJson(stringifyArg(argAt(a, 0))), nil },
		"isEmpty":       one(func(v any) any { return u.IsEmpty(v) }),
		"isNotEmpty":    one(func(v any) any { return u.IsNotEmpty(v) }),
		"isBlank":       one(func(v any) any { return u.IsBlank(v) }),
		"lower":         one(func(v any) any { return u.Lower(v) }),
		"upper":         one(func(v any) any { return u.Upper(v) }),
		"trim":          one(func(v any) any { return u.Trim(v) }),
		"contains":      func(a []any) (any, error) { return u.Contains(argAt(a, 0), argAt(a, 1)), nil },
		"startsWith":    func(a []any) (any, error) { return u.StartsWith(argAt(a, 0), argAt(a, 1)), nil },
		"endsWith":      func(a []any) (any, error) { return u.EndsWith(argAt(a, 0), argAt(a, 1)), nil },
		"substring":     func(a []any) (any, error) { return u.Substring(argAt(a, 0), ToInt(argAt(a, 1)), ToInt(argAt(a, 2))), nil },
		"replace":       func(a []any) (any, error) { return u.Replace(argAt(a, 0), argAt(a, 1), argAt(a, 2)), nil },
		"size":          one(func(v any) any { return u.Size(v) }),
		"first":         one(func(v any) any { return u.First(v) }),
		"last":          one(func(v any) any { return u.Last(v) }),
		"isNull":        one(func(v any) any { return u.IsNull(v) }),
		"isNotNull":     one(func(v any) any { return u.IsNotNull(v) }),
		"defaultIfNull": func(a []any) (any, error) { return u.DefaultIfNull(argAt(a, 0), argAt(a, 1)), nil },
		"toDouble":      one(func(v any) any { return u.ToDouble(v) }),
		"toInt":         one(func(v any) any { return u.ToInt(v) }),
		"uuid":          func(a []any) (any, error) { return u.Uuid(), nil },
		"randomInt":     func(a []any) (any, error) { return u.RandomInt(ToInt(argAt(a, 0)), ToInt(argAt(a, 1))), nil },
		"join":          func(a []any) (any, error) { return u.Join(argAt(a, 0), stringifyArg(argAt(a, 1))), nil },
		"split":         func(a []any) (any, error) { return u.Split(stringifyArg(argAt(a, 0)), stringifyArg(argAt(a, 1))), nil },
		"coalesce":      func(a []any) (any, error) { return u.Coalesce(a...), nil },
	}
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func stringifyArg(v any) string {
	s, _ := v.(string)
	return s
}

// panicError adapts a recovered panic value into an error for util calls
// (RoundTo) that signal a domain error by panicking, matching the Java
// original's IllegalArgumentException.
type panicError struct{ v any }

func (p *panicError) Error() string { return stringify(p.v) }

package expr

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/reactive"
)

func eval(t *testing.T, src string, b Bindings) any {
	t.Helper()
	p, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	v, err := p.Eval(b)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestEvalLiteralsAndOperators(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"1 + 1", 2},
		{"7 / 2", 3.5},
		{"6 / 3", 2},
		{"7 % 4", 3},
		{"2 ** 10", 1024},
		{"-3 + +'4'", 1},
		{"'a' + 1", "a1"},
		{"1.5 * 2", 3.0},
		{"1 == '1'", true},
		{"1 === '1'", false},
		{"1 === 1.0", true},
		{"null ?? 'x'", "x"},
		{"0 || 'y'", "y"},
		{"1 && 2", 2},
		{"!''", true},
		{"3 > 2 ? 'yes' : 'no'", "yes"},
		{"'b' < 'a'", false},
		{"typeof nope", "undefined"},
		{"typeof 'x'", "string"},
		{"`sum=${1 + 2}!`", "sum=3!"},
		{"[1, 2, 3].length", 3},
		{"'Hello'.toUpperCase()", "HELLO"},
		{"[1, 2, 3].filter(x => x > 1).map(x => x * 2)", []any{4, 6}},
		{"[3, 1, 2].includes(2)", true},
		{"['a', 'b'].join('-')", "a-b"},
		{"[1, 2, 3, 4].slice(-2)", []any{3, 4}},
		{"[1, 2, 3].reduce((a, b) => a + b, 0)", 6},
		{"[...[1, 2], 3]", []any{1, 2, 3}},
		{"((a, b) => a * b)(3, 4)", 12},
		{"Math.max(1, 5, 3)", 5},
		{"Math.floor(2.7)", 2},
		{"String(12) + Number('3')", "123"},
		{"JSON.stringify({b: 1, a: [1, 'x']})", `{"b":1,"a":[1,"x"]}`},
		{"1; 2; 3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := eval(t, tt.src, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestObjectLiteralKeepsOrder(t *testing.T) {
	v := eval(t, "{ z: 1, a: 2, ['m' + 1]: 3, ...{ b: 4 } }", nil)
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("got %T, want *Object", v)
	}
	want := []string{"z", "a", "m1", "b"}
	if got := obj.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestIdentifiersAndAssignment(t *testing.T) {
	b := Map{"a": 1, "user": ObjectFromMap(map[string]any{"name": "Ada"})}

	if got := eval(t, "a += 2; a", b); got != 3 {
		t.Errorf("a = %v, want 3", got)
	}
	if got := eval(t, "user.name", b); got != "Ada" {
		t.Errorf("user.name = %v", got)
	}
	eval(t, "user.name = 'Grace'", b)
	if got := eval(t, "user['name']", b); got != "Grace" {
		t.Errorf("user.name after assignment = %v", got)
	}
	if got := eval(t, "missing?.deep.path", Map{"missing": nil}); got != nil {
		t.Errorf("optional chain = %v, want nil", got)
	}
}

func TestSignals(t *testing.T) {
	defer reactive.Reset()

	count := reactive.NewSignal[any](1)
	items := reactive.NewSignal[any]([]any{1, 2, 3})
	double := reactive.NewMemo(func() int { return count.Get().(int) * 2 })
	b := Map{"count": count, "items": items, "double": double}

	if got := eval(t, "count.value + 1", b); got != 2 {
		t.Errorf("count.value + 1 = %v", got)
	}
	if got := eval(t, "count * 10", b); got != 10 {
		t.Errorf("count * 10 = %v", got)
	}
	if got := eval(t, "count.value++", b); got != 1 {
		t.Errorf("postfix result = %v, want 1", got)
	}
	if count.Peek() != 2 {
		t.Errorf("count = %v, want 2", count.Peek())
	}
	eval(t, "count = count + 3", b)
	if count.Peek() != 5 {
		t.Errorf("count = %v, want 5", count.Peek())
	}
	if got := eval(t, "count.peek()", b); got != 5 {
		t.Errorf("peek() = %v", got)
	}
	if got := eval(t, "items.push(4)", b); got != 4 {
		t.Errorf("push returned %v, want 4", got)
	}
	if got := items.Peek().([]any); len(got) != 4 {
		t.Errorf("items = %v, want four elements", got)
	}
	if got := eval(t, "double.value", b); got != 10 {
		t.Errorf("double = %v, want 10", got)
	}

	p := MustCompile("double = 1")
	if _, err := p.Eval(b); err == nil {
		t.Error("assigning to a memo should fail")
	}
}

func TestSignalReadsAreTracked(t *testing.T) {
	defer reactive.Reset()

	count := reactive.NewSignal(0)
	ev := NewEvaluator()
	b := Map{"count": count}

	var seen []any
	dispose := reactive.Watch(func() {
		seen = append(seen, ev.Evaluate("count.value * 2", b))
	})
	defer dispose()

	count.Set(4)
	reactive.Flush()
	if !reflect.DeepEqual(seen, []any{0, 8}) {
		t.Errorf("seen = %v, want [0 8]", seen)
	}
}

func TestMethodsAndThis(t *testing.T) {
	obj := eval(t, "{ count: 0, inc() { this.count++ }, add(n) { count += n } }", nil)
	b := Map{"o": obj}
	if got := eval(t, "o.inc(); o.inc(); o.add(5); o.count", b); got != 7 {
		t.Errorf("o.count = %v, want 7", got)
	}
}

type person struct {
	Name string `json:"name"`
	Age  int
}

func (p *person) Greet(greeting string) string {
	return greeting + " " + p.Name
}

func TestGoInterop(t *testing.T) {
	p := &person{Name: "Ada", Age: 36}
	b := Map{
		"p":     p,
		"add":   func(a, b int) int { return a + b },
		"tags":  []string{"x", "y"},
		"fails": func() (int, error) { return 0, stderrors.New("nope") },
	}

	if got := eval(t, "p.name + '!'", b); got != "Ada!" {
		t.Errorf("field = %v", got)
	}
	if got := eval(t, "p.greet('hi')", b); got != "hi Ada" {
		t.Errorf("method = %v", got)
	}
	if got := eval(t, "add(1, 2.9)", b); got != 3 {
		t.Errorf("add = %v, want 3", got)
	}
	if got := eval(t, "tags.join('+')", b); got != "x+y" {
		t.Errorf("tags = %v", got)
	}
	eval(t, "p.age = '40'", b)
	if p.Age != 40 {
		t.Errorf("Age = %d, want 40", p.Age)
	}
	if _, err := MustCompile("fails()").Eval(b); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("err = %v, want nope", err)
	}
}

func TestCallFunctionValues(t *testing.T) {
	root, err := Parse("double(21)")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := root.(*CallExpr); !ok {
		t.Fatalf("Parse() root = %T, want *CallExpr", root)
	}

	double := eval(t, "n => n * 2", nil)
	got, err := Call(double, 21)
	if err != nil || got != 42 {
		t.Errorf("Call(lambda) = %v, %v, want 42", got, err)
	}
	if got := eval(t, "double(21)", Map{"double": double}); got != 42 {
		t.Errorf("double(21) = %v, want 42", got)
	}

	got, err = Call(func(a, b int) int { return a - b }, 5, 2)
	if err != nil || got != 3 {
		t.Errorf("Call(go func) = %v, %v, want 3", got, err)
	}
	if _, err := Call(nil); err == nil {
		t.Error("Call(nil) should fail")
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"1 +", "(a", "a b", "{a:}", "'open", "1 = 2"} {
		_, err := Compile(src)
		if err == nil {
			t.Errorf("Compile(%q) succeeded", src)
			continue
		}
		if !stderrors.Is(err, ErrSyntax) {
			t.Errorf("Compile(%q) error %v is not ErrSyntax", src, err)
		}
		if !errors.HasCode(err, "E202") {
			t.Errorf("Compile(%q) error %v lacks E202", src, err)
		}
	}
}

func TestEvaluatorSwallowsFailures(t *testing.T) {
	var failures []error
	ev := NewEvaluator(WithErrorHook(func(_ string, err error) {
		failures = append(failures, err)
	}))

	if got := ev.Evaluate("1 + 1", nil); got != 2 {
		t.Errorf("1 + 1 = %v", got)
	}
	if got := ev.Evaluate("1 +", nil); got != nil {
		t.Errorf("malformed = %v, want nil", got)
	}
	if got := ev.Evaluate("nope.x", nil); got != nil {
		t.Errorf("undefined = %v, want nil", got)
	}
	if got := ev.Evaluate("boom()", Map{"boom": func() { panic("bad") }}); got != nil {
		t.Errorf("panic = %v, want nil", got)
	}

	if len(failures) != 3 {
		t.Fatalf("failures = %v, want 3", failures)
	}
	if !errors.HasCode(failures[0], "E202") || !errors.HasCode(failures[1], "E201") || !errors.HasCode(failures[2], "E201") {
		t.Errorf("unexpected codes: %v", failures)
	}
}

func TestEvaluatorCache(t *testing.T) {
	ev := NewEvaluator(WithCacheSize(2))
	for _, src := range []string{"1", "2", "3", "3"} {
		ev.Evaluate(src, nil)
	}
	if n := ev.CacheLen(); n != 2 {
		t.Errorf("CacheLen() = %d, want 2", n)
	}
}

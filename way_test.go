package way

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebdah/goldie/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/way/pkg/directive"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/form"
	"github.com/vango-dev/way/pkg/metrics"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/registry"
)

func newEngine(t *testing.T, body string, opts ...Option) *Engine {
	t.Helper()
	doc, err := dom.ParseString("<!DOCTYPE html><html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := New(doc, append([]Option{WithLogger(logger)}, opts...)...)
	t.Cleanup(func() {
		eng.Dispose()
		reactive.Reset()
	})
	return eng
}

func render(t *testing.T, eng *Engine, props map[string]any) {
	t.Helper()
	if err := eng.Render(context.Background(), eng.Document().Body(), props); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
}

func byID(t *testing.T, eng *Engine, id string) *dom.Node {
	t.Helper()
	n := eng.Document().GetElementByID(id)
	if n == nil {
		t.Fatalf("no element #%s", id)
	}
	return n
}

func counter(SetupContext) map[string]any {
	count := reactive.NewSignal[any](0)
	return map[string]any{
		"count": count,
		"increment": func() {
			count.Update(func(v any) any { return v.(int) + 1 })
		},
	}
}

func TestCounter(t *testing.T) {
	eng := newEngine(t, `<div x-data="counter"><button id="inc" @click="increment()">+</button><span id="out" x-text="count"></span></div>`)
	if err := eng.RegisterComponent("counter", counter); err != nil {
		t.Fatal(err)
	}
	render(t, eng, nil)

	out := byID(t, eng, "out")
	if got := out.TextContent(); got != "0" {
		t.Fatalf("initial text = %q, want 0", got)
	}
	for range 3 {
		eng.Trigger(byID(t, eng, "inc"), "click")
	}
	if got := out.TextContent(); got != "3" {
		t.Errorf("text after three clicks = %q, want 3", got)
	}
}

func TestComposeShadowsAncestors(t *testing.T) {
	eng := newEngine(t, `<div x-data="{a: 1}"><span id="outer">{a}</span>`+
		`<div id="inner" x-data="{a: 2, b: 3}"><span id="s">{a}-{b}</span></div></div>`)
	render(t, eng, nil)

	if got := byID(t, eng, "s").TextContent(); got != "2-3" {
		t.Errorf("inner text = %q, want 2-3", got)
	}
	if got := byID(t, eng, "outer").TextContent(); got != "1" {
		t.Errorf("outer text = %q, want 1", got)
	}

	st := directive.StateOf(byID(t, eng, "inner"))
	if st == nil || !st.HasData {
		t.Fatal("inner should own data")
	}
	for name, want := range map[string]any{"a": 2, "b": 3} {
		v, ok := st.Scope.Lookup(name)
		if !ok || reactive.Unwrap(v) != want {
			t.Errorf("%s = %v, want %v", name, reactive.Unwrap(v), want)
		}
	}
}

func TestComposeProps(t *testing.T) {
	eng := newEngine(t, `<div x-data="{who: 'Ada'}"><p id="p" x-data="greeter" x-props="{name: who, n: 2}" x-text="greeting"></p></div>`)
	var props map[string]any
	eng.RegisterComponent("greeter", func(ctx SetupContext) map[string]any {
		props = ctx.Props
		name := ctx.Props["name"]
		return map[string]any{
			"greeting": reactive.NewMemo(func() any {
				return "hi " + expr.ToString(reactive.Unwrap(name))
			}),
		}
	})
	render(t, eng, nil)

	if got := byID(t, eng, "p").TextContent(); got != "hi Ada" {
		t.Errorf("text = %q", got)
	}
	if !reactive.IsCell(props["name"]) {
		t.Errorf("signal prop should pass through, got %T", props["name"])
	}
	if props["n"] != 2 {
		t.Errorf("n = %v", props["n"])
	}
}

func TestMissingComponentLeavesNodeUnbound(t *testing.T) {
	eng := newEngine(t, `<div x-data="nope, counter"><span id="out" x-text="count"></span></div><p id="after">{1 + 1}</p>`)
	eng.RegisterComponent("counter", counter)
	render(t, eng, nil)

	if got := byID(t, eng, "out").TextContent(); got != "0" {
		t.Errorf("registered component should still bind, got %q", got)
	}
	if got := byID(t, eng, "after").TextContent(); got != "2" {
		t.Errorf("traversal should continue, got %q", got)
	}
}

func TestHydrateIsIdempotent(t *testing.T) {
	eng := newEngine(t, `<div id="c" x-data="counter"><span id="out" x-text="count"></span></div>`)
	calls := 0
	eng.RegisterComponent("counter", func(ctx SetupContext) map[string]any {
		calls++
		return counter(ctx)
	})
	render(t, eng, nil)
	first := directive.StateOf(byID(t, eng, "c")).Scope

	render(t, eng, nil)
	if calls != 1 {
		t.Errorf("setup called %d times, want 1", calls)
	}
	if directive.StateOf(byID(t, eng, "c")).Scope != first {
		t.Error("hydrating again replaced the component scope")
	}
}

func TestKeyedListIdentity(t *testing.T) {
	eng := newEngine(t, `<ul id="ul" x-data="list"><template x-for="item in items" :key="item.id"><li x-text="item.id"></li></template></ul>`)
	items := reactive.NewSignal[any](nil)
	row := func(id int) any { return expr.ObjectFromMap(map[string]any{"id": id}) }
	items.Set([]any{row(1), row(2), row(3)})
	eng.RegisterComponent("list", func(SetupContext) map[string]any {
		return map[string]any{"items": items}
	})
	render(t, eng, nil)

	lis := func() []*dom.Node {
		var out []*dom.Node
		for _, c := range byID(t, eng, "ul").Children() {
			if c.Tag == "li" {
				out = append(out, c)
			}
		}
		return out
	}
	before := lis()
	if len(before) != 3 {
		t.Fatalf("rendered %d items, want 3", len(before))
	}

	items.Set([]any{row(2), row(1)})
	reactive.Flush()

	after := lis()
	if len(after) != 2 {
		t.Fatalf("rendered %d items, want 2", len(after))
	}
	if after[0] != before[1] || after[1] != before[0] {
		t.Error("surviving items were recreated instead of moved")
	}
	if before[2].IsConnected() {
		t.Error("removed item is still in the document")
	}
	if got := after[0].TextContent() + after[1].TextContent(); got != "21" {
		t.Errorf("texts = %q, want 21", got)
	}
}

func TestConditionalToggle(t *testing.T) {
	eng := newEngine(t, `<div x-data="toggle"><template x-if="on"><p id="yes">yes</p></template><template x-else><p id="no">no</p></template></div>`)
	on := reactive.NewSignal[any](true)
	eng.RegisterComponent("toggle", func(SetupContext) map[string]any {
		return map[string]any{"on": on}
	})
	render(t, eng, nil)

	yes := byID(t, eng, "yes")
	if eng.Document().GetElementByID("no") != nil {
		t.Fatal("both branches mounted")
	}

	on.Set(1)
	reactive.Flush()
	if byID(t, eng, "yes") != yes {
		t.Error("truthy to truthy re-rendered the branch")
	}

	on.Set(false)
	reactive.Flush()
	if yes.IsConnected() || eng.Document().GetElementByID("yes") != nil {
		t.Error("primary branch still mounted")
	}
	byID(t, eng, "no")
}

func TestFormScenario(t *testing.T) {
	eng := newEngine(t, `<form id="f" x-form="signup"><input id="pw" name="password"></form>`)
	var submitted []map[string]string
	eng.RegisterForm("signup", form.Fields{"password": form.MinLength(4, "")},
		form.OnSubmit(func(v map[string]string) { submitted = append(submitted, v) }))
	render(t, eng, nil)

	f, pw := byID(t, eng, "f"), byID(t, eng, "pw")
	pw.SetValue("ab")
	if eng.Trigger(f, "submit") {
		t.Error("invalid submit was not prevented")
	}
	if len(submitted) != 0 {
		t.Fatalf("handler called for invalid form: %v", submitted)
	}

	pw.SetValue("abcd1")
	eng.Trigger(f, "submit")
	if len(submitted) != 1 || submitted[0]["password"] != "abcd1" {
		t.Errorf("submitted = %v", submitted)
	}
}

func TestFormSetupData(t *testing.T) {
	eng := newEngine(t, `<form id="f" x-form="profile"><span id="s" x-text="title"></span></form>`)
	eng.RegisterForm("profile", form.Fields{}, form.Setup(func(ctx form.Context) map[string]any {
		return map[string]any{"title": "Profile of " + ctx.El.Attr("id")}
	}))
	render(t, eng, nil)
	if got := byID(t, eng, "s").TextContent(); got != "Profile of f" {
		t.Errorf("text = %q", got)
	}
}

func TestStoresAndInitialProps(t *testing.T) {
	eng := newEngine(t, `<p id="p">{user.name} {title}</p><button id="b" @click="user.name = 'Bob'"></button>`)
	eng.RegisterStore("user", func() any { return map[string]any{"name": "Ada"} })
	render(t, eng, map[string]any{"title": "admin"})

	p := byID(t, eng, "p")
	if got := p.TextContent(); got != "Ada admin" {
		t.Fatalf("text = %q", got)
	}
	eng.Trigger(byID(t, eng, "b"), "click")
	if got := p.TextContent(); got != "Bob admin" {
		t.Errorf("text after store write = %q", got)
	}
}

const cardTemplate = `<template id="user-card"><div class="card"><h2 x-text="title"></h2><slot></slot></div></template>`

func TestStructuralComponent(t *testing.T) {
	eng := newEngine(t, cardTemplate+`<section id="host"><user-card id="u" x-props="{title: name}"><p id="light">{name}</p></user-card></section>`)
	var mounted, unmounted, cleaned int
	err := eng.RegisterComponent("user-card", func(ctx SetupContext) map[string]any {
		ctx.OnCleanup(func() { cleaned++ })
		return ctx.Props
	}, OnMounted(func(*dom.Node) { mounted++ }), OnUnmounted(func(*dom.Node) { unmounted++ }))
	if err != nil {
		t.Fatal(err)
	}
	name := reactive.NewSignal[any]("Ada")
	render(t, eng, map[string]any{"name": name})

	u := byID(t, eng, "u")
	want := `<user-card id="u" x-props="{title: name}"><div class="card"><h2 x-text="title">Ada</h2><p id="light">Ada</p></div></user-card>`
	if got := u.OuterHTML(); got != want {
		t.Errorf("html =\n%s\nwant\n%s", got, want)
	}
	if mounted != 1 {
		t.Errorf("mounted %d times, want 1", mounted)
	}

	name.Set("Grace")
	reactive.Flush()
	if got := byID(t, eng, "light").TextContent(); got != "Grace" {
		t.Errorf("slot content = %q", got)
	}

	u.Remove()
	if unmounted != 1 || cleaned != 1 {
		t.Errorf("unmounted=%d cleaned=%d, want 1 and 1", unmounted, cleaned)
	}
}

func TestStructuralComponentInList(t *testing.T) {
	eng := newEngine(t, cardTemplate+`<div id="list"><template x-for="n in names"><user-card x-props="{title: n}"></user-card></template></div>`)
	eng.RegisterComponent("user-card", nil)
	names := reactive.NewSignal[any]([]any{"a", "b"})
	render(t, eng, map[string]any{"names": names})

	var got []string
	for _, h2 := range findAll(byID(t, eng, "list"), "h2") {
		got = append(got, h2.TextContent())
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("titles = %v", got)
	}
}

func TestLateRegistration(t *testing.T) {
	eng := newEngine(t, `<template id="x-late"><b x-text="msg"></b><slot></slot></template><x-late id="l"><i>light</i></x-late>`)
	render(t, eng, nil)

	err := eng.RegisterComponent("x-late", func(SetupContext) map[string]any {
		return map[string]any{"msg": "hi"}
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := byID(t, eng, "l").InnerHTML(); got != `<b x-text="msg">hi</b><i>light</i>` {
		t.Errorf("html = %s", got)
	}
}

func TestRegisterComponentWithoutTemplate(t *testing.T) {
	eng := newEngine(t, `<no-tpl></no-tpl>`)
	err := eng.RegisterComponent("no-tpl", nil)
	if !errors.Is(err, registry.ErrTemplateMissing) {
		t.Fatalf("err = %v, want ErrTemplateMissing", err)
	}
	if !strings.Contains(err.Error(), "E221") {
		t.Errorf("err = %v, want code E221", err)
	}
	if _, ok := eng.Registry().Component("no-tpl"); ok {
		t.Error("component registered without template")
	}
	if eng.Document().IsDefined("no-tpl") {
		t.Error("custom element defined without template")
	}
}

func TestRenderDispatchesInit(t *testing.T) {
	eng := newEngine(t, `<p></p>`)
	fired := 0
	eng.Document().Root().AddEventListener(InitEvent, func(*dom.Event) { fired++ })
	render(t, eng, nil)
	if fired != 1 {
		t.Errorf("%s fired %d times", InitEvent, fired)
	}
}

func TestSkipsScriptStyleAndTemplates(t *testing.T) {
	eng := newEngine(t, `<template id="tpl"><p>{1 + 1}</p></template><script>var x = "{1}"</script><p id="p">{1 + 1}</p>`)
	render(t, eng, nil)
	if got := byID(t, eng, "p").TextContent(); got != "2" {
		t.Errorf("text = %q", got)
	}
	if got := byID(t, eng, "tpl").Content.TextContent(); got != "{1 + 1}" {
		t.Errorf("template content was hydrated: %q", got)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := newEngine(t, `<div x-data="counter"><button id="inc" @click="increment()"></button><span x-text="count"></span><i>{1 +}</i></div>`,
		WithMetrics(metrics.New(metrics.WithRegistry(reg))))
	eng.RegisterComponent("counter", counter)
	render(t, eng, nil)
	eng.Trigger(byID(t, eng, "inc"), "click")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			values[f.GetName()] += m.GetCounter().GetValue()
		}
	}
	for _, name := range []string{"way_hydrated_nodes_total", "way_effect_runs_total", "way_expression_errors_total"} {
		if values[name] == 0 {
			t.Errorf("%s = 0", name)
		}
	}
}

func TestMetricsFollowEngineLifetime(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(metrics.WithRegistry(reg))
	runs := func() float64 {
		t.Helper()
		families, err := reg.Gather()
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range families {
			if f.GetName() == "way_effect_runs_total" {
				return f.GetMetric()[0].GetCounter().GetValue()
			}
		}
		return 0
	}

	first := newEngine(t, `<p x-text="1"></p>`, WithMetrics(c))
	shared := newEngine(t, `<p x-text="2"></p>`, WithMetrics(c))
	render(t, first, nil)
	first.Dispose()
	first.Dispose()

	before := runs()
	if before == 0 {
		t.Fatal("no effect runs recorded")
	}
	render(t, shared, nil)
	if runs() == before {
		t.Error("collector detached while another engine still uses it")
	}

	shared.Dispose()
	before = runs()
	n := reactive.NewSignal[any](0)
	plain := newEngine(t, `<p x-text="n"></p>`)
	render(t, plain, map[string]any{"n": n})
	n.Set(1)
	reactive.Flush()
	if got := runs(); got != before {
		t.Errorf("effect runs = %v after every metered engine was disposed, want %v", got, before)
	}
}

func TestRenderGolden(t *testing.T) {
	eng := newEngine(t, `<div id="app" x-data="{count: 2, items: [1, 2]}"><p x-text="count"></p>`+
		`<template x-for="n in items"><i>{n}</i></template>`+
		`<template x-if="count"><b>big</b></template></div>`)
	render(t, eng, nil)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render", []byte(byID(t, eng, "app").OuterHTML()))
}

func findAll(root *dom.Node, tag string) []*dom.Node {
	var out []*dom.Node
	root.Walk(func(n *dom.Node) bool {
		if n.Type == dom.ElementNode && n.Tag == tag {
			out = append(out, n)
		}
		return true
	})
	return out
}

type recordingTracer struct {
	embedded.Tracer
	spans []string
}

func (r *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.spans = append(r.spans, name)
	return ctx, noop.Span{}
}

func TestRenderTraced(t *testing.T) {
	tracer := &recordingTracer{}
	eng := newEngine(t, `<div x-data="{items: [1, 2]}"><template x-for="n in items"><i>{n}</i></template></div>`,
		WithTracer(tracer))
	render(t, eng, nil)

	want := []string{"way.Render", "way.reconcile"}
	if strings.Join(tracer.spans, ",") != strings.Join(want, ",") {
		t.Errorf("spans = %v, want %v", tracer.spans, want)
	}
}

package dom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func mustParse(t *testing.T, body string) *Document {
	t.Helper()
	d, err := ParseString("<!DOCTYPE html><html><head></head><body>" + body + "</body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestParseRoundTrip(t *testing.T) {
	d := mustParse(t, `<div id="app" x-data="{count: 0}"><span x-text="count">0</span></div>`)
	app := d.GetElementByID("app")
	if app == nil {
		t.Fatal("app not found")
	}
	if got := app.Attr("x-data"); got != "{count: 0}" {
		t.Errorf("x-data = %q", got)
	}
	want := `<div id="app" x-data="{count: 0}"><span x-text="count">0</span></div>`
	if got := app.OuterHTML(); got != want {
		t.Errorf("OuterHTML = %q, want %q", got, want)
	}
}

func TestTemplateContent(t *testing.T) {
	d := mustParse(t, `<template id="row"><li>item</li></template>`)
	tpl := d.GetElementByID("row")
	if tpl.FirstChild() != nil {
		t.Fatal("template children should live in Content")
	}
	if tpl.Content == nil || len(tpl.Content.Children()) != 1 {
		t.Fatalf("content = %+v", tpl.Content)
	}
	if got := tpl.OuterHTML(); got != `<template id="row"><li>item</li></template>` {
		t.Errorf("render = %q", got)
	}

	clone := tpl.Content.Clone(true)
	clone.FirstChild().SetTextContent("changed")
	if tpl.Content.TextContent() != "item" {
		t.Error("clone shares children with template content")
	}
}

func TestInsertFragment(t *testing.T) {
	d := NewDocument()
	ul := d.CreateElement("ul")
	frag, err := d.ParseFragment(`<li>a</li><li>b</li>`)
	if err != nil {
		t.Fatal(err)
	}
	ul.AppendChild(frag)
	if frag.FirstChild() != nil {
		t.Error("fragment should be emptied")
	}
	if got := ul.InnerHTML(); got != "<li>a</li><li>b</li>" {
		t.Errorf("InnerHTML = %q", got)
	}

	c := d.CreateElement("li")
	c.SetTextContent("c")
	ul.InsertBefore(c, ul.FirstChild())
	if got := ul.TextContent(); got != "cab" {
		t.Errorf("TextContent = %q", got)
	}
}

func TestLifecycleCallbacks(t *testing.T) {
	d := mustParse(t, `<div id="a"></div><div id="b"></div>`)
	var log []string
	err := d.Define("x-card", Definition{
		Connected:    func(n *Node) { log = append(log, "connect "+n.Attr("id")) },
		Disconnected: func(n *Node) { log = append(log, "disconnect "+n.Attr("id")) },
	})
	if err != nil {
		t.Fatal(err)
	}

	card := d.CreateElement("x-card")
	card.SetAttribute("id", "c1")
	if len(log) != 0 {
		t.Fatalf("detached element connected: %v", log)
	}

	a, b := d.GetElementByID("a"), d.GetElementByID("b")
	a.AppendChild(card)
	b.AppendChild(card) // move inside the document
	card.Remove()

	want := []string{"connect c1", "disconnect c1"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestDefineUpgradesConnected(t *testing.T) {
	d := mustParse(t, `<x-late id="l"></x-late>`)
	var got []string
	if err := d.Define("x-late", Definition{Connected: func(n *Node) { got = append(got, n.Attr("id")) }}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "l" {
		t.Errorf("upgraded = %v", got)
	}
	if err := d.Define("x-late", Definition{}); !errors.Is(err, ErrAlreadyDefined) {
		t.Errorf("redefine err = %v", err)
	}
}

func TestWhenDefined(t *testing.T) {
	d := NewDocument()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.WhenDefined(ctx, "x-missing"); !errors.Is(err, ErrNotDefined) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.WhenDefined(context.Background(), "x-one", "x-two") }()
	_ = d.Define("x-one", Definition{})
	_ = d.Define("x-two", Definition{})
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WhenDefined did not return")
	}
}

func TestOnDisconnect(t *testing.T) {
	d := mustParse(t, `<section id="s"><p id="p1"></p><p id="p2"></p></section>`)
	var gone []string
	d.OnDisconnect(func(n *Node) { gone = append(gone, n.Attr("id")) })
	d.GetElementByID("s").Remove()
	if strings.Join(gone, ",") != "s,p1,p2" {
		t.Errorf("gone = %v", gone)
	}
}

func TestEventBubbling(t *testing.T) {
	d := mustParse(t, `<div id="outer"><button id="btn">go</button></div>`)
	outer, btn := d.GetElementByID("outer"), d.GetElementByID("btn")

	var order []string
	btn.AddEventListener("click", func(e *Event) { order = append(order, "btn") })
	outer.AddEventListener("click", func(e *Event) {
		order = append(order, "outer")
		if e.Target != btn || e.CurrentTarget != outer {
			t.Errorf("target = %v current = %v", e.Target, e.CurrentTarget)
		}
	})
	d.Root().AddEventListener("click", func(e *Event) { order = append(order, "document") }, ListenerOptions{Once: true})

	btn.Dispatch(NewEvent("click"))
	btn.Dispatch(NewEvent("click"))
	if got := strings.Join(order, ","); got != "btn,outer,document,btn,outer" {
		t.Errorf("order = %s", got)
	}

	order = nil
	remove := btn.AddEventListener("click", func(e *Event) {
		e.StopPropagation()
		e.PreventDefault()
	})
	if btn.Dispatch(NewEvent("click")) {
		t.Error("Dispatch should report prevented default")
	}
	if got := strings.Join(order, ","); got != "btn" {
		t.Errorf("stopped order = %s", got)
	}
	remove()
	if btn.ListenerCount("click") != 1 {
		t.Errorf("listeners = %d", btn.ListenerCount("click"))
	}
}

func TestControls(t *testing.T) {
	d := mustParse(t, `<input id="i" value="x" required><select id="s"><option>a</option><option value="2">b</option></select><textarea id="t">hi</textarea>`)

	in := d.GetElementByID("i")
	in.SetValue("")
	if in.CheckValidity() {
		t.Error("empty required input should be invalid")
	}
	in.SetValue("ok")
	in.SetCustomValidity("too short")
	if in.ValidationMessage() != "too short" {
		t.Errorf("message = %q", in.ValidationMessage())
	}
	in.SetCustomValidity("")
	if !in.CheckValidity() {
		t.Error("should be valid")
	}

	sel := d.GetElementByID("s")
	if sel.Value() != "a" {
		t.Errorf("select default = %q", sel.Value())
	}
	sel.SetValue("2")
	if sel.Value() != "2" {
		t.Errorf("select = %q", sel.Value())
	}

	ta := d.GetElementByID("t")
	ta.SetValue("bye")
	if ta.Value() != "bye" {
		t.Errorf("textarea = %q", ta.Value())
	}
}

func TestStyle(t *testing.T) {
	d := NewDocument()
	n := d.CreateElement("div")
	n.SetAttribute("style", "color: red")
	n.SetStyleProperty("display", "none")
	if got := n.Attr("style"); got != "color: red; display: none" {
		t.Errorf("style = %q", got)
	}
	n.RemoveStyleProperty("display")
	n.RemoveStyleProperty("color")
	if n.HasAttribute("style") {
		t.Errorf("style attribute should be dropped, got %q", n.Attr("style"))
	}
}

func TestHIDs(t *testing.T) {
	d := mustParse(t, `<button id="a"></button><p></p><button id="b"></button>`)
	d.GetElementByID("a").AddEventListener("click", func(*Event) {})
	d.GetElementByID("b").AddEventListener("click", func(*Event) {})
	d.AssignHIDs()
	d.AssignHIDs()

	hids := CollectHIDs(d.Root())
	if len(hids) != 2 {
		t.Fatalf("hids = %v", hids)
	}
	if FindByHID(d.Root(), "h2") != d.GetElementByID("b") {
		t.Error("h2 should be button b")
	}
	ClearHIDs(d.Root())
	if len(CollectHIDs(d.Root())) != 0 {
		t.Error("ClearHIDs left ids behind")
	}
}

func TestNodeTypeString(t *testing.T) {
	tests := []struct {
		typ  NodeType
		want string
	}{
		{ElementNode, "Element"},
		{TextNode, "Text"},
		{FragmentNode, "Fragment"},
		{NodeType(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

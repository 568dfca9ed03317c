package directive

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/scope"
)

// watch runs fn in an effect owned by the current owner.
func watch(fn func()) {
	reactive.CreateEffect(func() reactive.Cleanup {
		fn()
		return nil
	})
}

func bindText(d *Dispatcher, el *dom.Node, value string, s *scope.Scope) error {
	watch(func() {
		el.SetTextContent(expr.ToString(d.eval.Evaluate(value, s)))
	})
	return nil
}

// bindHTML replaces the element's children with parsed markup. The
// markup is not hydrated.
func bindHTML(d *Dispatcher, el *dom.Node, value string, s *scope.Scope) error {
	watch(func() {
		if err := el.SetInnerHTML(expr.ToString(d.eval.Evaluate(value, s))); err != nil {
			d.report(el, "x-html", err)
		}
	})
	return nil
}

func bindShow(d *Dispatcher, el *dom.Node, value string, s *scope.Scope) error {
	watch(func() {
		show := expr.Truthy(d.eval.Evaluate(value, s))
		setShown(el, show)
		if next := el.NextElementSibling(); next != nil && next.HasAttribute("x-else") {
			setShown(next, !show)
		}
	})
	return nil
}

func setShown(el *dom.Node, show bool) {
	if show {
		el.RemoveStyleProperty("display")
	} else {
		el.SetStyleProperty("display", "none")
	}
}

func bindLoad(_ *Dispatcher, el *dom.Node, _ string, _ *scope.Scope) error {
	el.SetStyleProperty("display", "block")
	return nil
}

// bindTemp fills the element with a copy of the template whose id is the
// attribute value. The element's own children replace the copy's <slot>.
func bindTemp(_ *Dispatcher, el *dom.Node, value string, _ *scope.Scope) error {
	tpl := findTemplate(el, value)
	if tpl == nil {
		return errors.New("E214").WithDetail(`no <template id="` + value + `">`)
	}
	content := tpl.Content.Clone(true)
	if slot := content.Find(func(n *dom.Node) bool { return n.Tag == "slot" }); slot != nil {
		light := el.OwnerDocument().CreateFragment()
		for _, c := range el.ChildNodes() {
			light.AppendChild(c)
		}
		slot.ReplaceWith(light)
	}
	el.AppendChild(content)
	return nil
}

func findTemplate(el *dom.Node, id string) *dom.Node {
	var tpl *dom.Node
	if doc := el.OwnerDocument(); doc != nil {
		tpl = doc.GetElementByID(id)
	}
	if tpl == nil {
		tpl = el.Root().GetElementByID(id)
	}
	if tpl == nil || tpl.Tag != "template" || tpl.Content == nil {
		return nil
	}
	return tpl
}

func bindForm(d *Dispatcher, el *dom.Node, value string, _ *scope.Scope) error {
	if el.Tag != "form" {
		return errors.New("E210").WithDetail("x-form on <" + el.Tag + ">")
	}
	schema, ok := d.registry.Form(value)
	if !ok {
		return errors.New("E222").WithDetail(`form "` + value + `"`)
	}
	detach := schema.Attach(el)
	reactive.OnCleanup(detach)
	return nil
}

// ───────────────────────── x-model ─────────────────────────

func bindModel(d *Dispatcher, el *dom.Node, value string, s *scope.Scope) error {
	raw, err := d.eval.Run(value, s)
	if err != nil {
		return errors.New("E213").Wrap(err)
	}
	cell, ok := raw.(reactive.WritableCell)
	if !ok {
		return errors.New("E213").WithDetail(value + " is " + expr.TypeOf(raw))
	}

	watch(func() { setControl(el, cell.GetAny()) })
	// Options rendered later in the same pass need the value applied again.
	d.Defer(func() { setControl(el, cell.PeekAny()) })

	update := func(*dom.Event) {
		if err := cell.SetAny(controlValue(el)); err != nil {
			d.report(el, "x-model", err)
		}
	}
	offInput := el.AddEventListener("input", update)
	offChange := el.AddEventListener("change", update)
	reactive.OnCleanup(func() {
		offInput()
		offChange()
	})
	return nil
}

func controlValue(el *dom.Node) any {
	if el.Tag != "input" {
		return el.Value()
	}
	switch el.Attr("type") {
	case "checkbox":
		return el.Checked()
	case "radio":
		if el.Checked() {
			return el.Value()
		}
		return nil
	case "number", "range":
		if el.Value() == "" {
			return nil
		}
		return expr.ToNumber(el.Value())
	}
	return el.Value()
}

func setControl(el *dom.Node, v any) {
	if el.Tag == "input" {
		switch el.Attr("type") {
		case "checkbox":
			el.SetChecked(expr.Truthy(v))
			return
		case "radio":
			el.SetChecked(v != nil && el.Value() == expr.ToString(v))
			return
		}
	}
	el.SetValue(expr.ToString(v))
}

// ───────────────────────── events ─────────────────────────

func (d *Dispatcher) bindEvent(el *dom.Node, name, value string, s *scope.Scope) {
	typ, rest, _ := strings.Cut(name, ".")
	var mods []string
	if rest != "" {
		mods = strings.Split(rest, ".")
	}

	target := el
	if slices.Contains(mods, "outside") {
		if doc := el.OwnerDocument(); doc != nil {
			target = doc.Root()
		} else {
			target = el.Root()
		}
	}
	emit := nearestEmitter(el)

	handler := func(e *dom.Event) {
		for _, m := range mods {
			switch m {
			case "prevent":
				e.PreventDefault()
			case "stop":
				e.StopPropagation()
			case "self":
				if e.Target != el {
					return
				}
			case "outside":
				if e.Target == nil || el.Contains(e.Target) {
					return
				}
			}
		}

		vals := map[string]any{"$event": e, "$el": el}
		if emit != nil {
			vals["emit"] = emit
		}
		v, err := d.eval.Run(value, s.Extend(vals))
		if err != nil {
			return
		}
		if expr.TypeOf(v) == "function" {
			if _, err := expr.Call(v, e); err != nil {
				d.logger.Warn("event handler failed", "event", typ, "expr", value, "error", err)
			}
		}
	}

	var opts []dom.ListenerOptions
	if slices.Contains(mods, "once") {
		opts = append(opts, dom.ListenerOptions{Once: true})
	}
	remove := target.AddEventListener(typ, handler, opts...)
	reactive.OnCleanup(remove)
}

// ───────────────────────── properties ─────────────────────────

func (d *Dispatcher) bindProperty(el *dom.Node, name, value string, s *scope.Scope) {
	static := el.Attr(name)
	watch(func() {
		applyProperty(el, name, static, d.eval.Evaluate(value, s))
	})
}

func applyProperty(el *dom.Node, name, static string, v any) {
	switch name {
	case "class":
		classes := strings.Fields(static)
		classes = append(classes, classNames(v)...)
		if len(classes) == 0 {
			el.RemoveAttribute("class")
			return
		}
		el.SetAttribute("class", strings.Join(classes, " "))
	case "style":
		switch x := v.(type) {
		case nil:
		case string:
			el.SetAttribute("style", x)
		default:
			entries(x, func(k string, val any) {
				el.SetStyleProperty(k, expr.ToString(val))
			})
		}
	case "value":
		el.SetValue(expr.ToString(v))
	case "checked":
		el.SetChecked(expr.Truthy(v))
	default:
		if v == nil || v == false {
			el.RemoveAttribute(name)
			return
		}
		el.SetAttribute(name, expr.ToString(v))
	}
}

func classNames(v any) []string {
	switch x := v.(type) {
	case nil, bool:
		return nil
	case string:
		return strings.Fields(x)
	}
	if list, ok := expr.AsList(v); ok {
		var out []string
		for _, c := range list {
			if s := expr.ToString(reactive.Unwrap(c)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var out []string
	entries(v, func(k string, active any) {
		if expr.Truthy(reactive.Unwrap(active)) {
			out = append(out, k)
		}
	})
	return out
}

// entries iterates an object or string-keyed map in key order.
func entries(v any, fn func(k string, v any)) {
	switch x := v.(type) {
	case *expr.Object:
		x.Range(func(k string, v any) bool {
			fn(k, v)
			return true
		})
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(x)) {
			fn(k, x[k])
		}
	}
}

// ───────────────────────── interpolation ─────────────────────────

var interpolation = regexp.MustCompile(`\{[^{}]*\}`)

func (d *Dispatcher) bindInterpolation(n *dom.Node, s *scope.Scope) {
	src := n.Data
	if strings.TrimSpace(src) == "" || !strings.Contains(src, "{") {
		return
	}
	spans := interpolation.FindAllStringIndex(src, -1)
	if len(spans) == 0 {
		return
	}
	watch(func() {
		var b strings.Builder
		last := 0
		for _, sp := range spans {
			b.WriteString(src[last:sp[0]])
			part := src[sp[0]:sp[1]]
			if v := d.eval.Evaluate(part[1:len(part)-1], s); v != nil {
				b.WriteString(expr.ToString(v))
			} else {
				b.WriteString(part)
			}
			last = sp[1]
		}
		b.WriteString(src[last:])
		n.Data = b.String()
	})
}

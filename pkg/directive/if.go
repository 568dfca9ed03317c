package directive

import (
	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/scope"
)

type branch struct {
	tpl    *dom.Node
	guard  string
	isElse bool
}

// Chain returns the conditional chain starting at a primary x-if
// template: the template itself, the x-else-if templates that directly
// follow it and an optional closing x-else template.
func Chain(tpl *dom.Node) []*dom.Node {
	out := []*dom.Node{tpl}
	for next := tpl.NextElementSibling(); next != nil && next.Tag == "template"; next = next.NextElementSibling() {
		if next.HasAttribute("x-else-if") {
			out = append(out, next)
			continue
		}
		if next.HasAttribute("x-else") {
			out = append(out, next)
		}
		break
	}
	return out
}

// bindIf mounts the first branch of the chain whose guard holds into a
// wrapper placed before the primary template.
func bindIf(d *Dispatcher, tpl *dom.Node, value string, s *scope.Scope) error {
	if tpl.Tag != "template" || tpl.Content == nil {
		return errors.New("E210").WithDetail("x-if on <" + tpl.Tag + ">")
	}
	parent := tpl.Parent()
	if parent == nil {
		return errors.New("E210").WithDetail("x-if template has no parent")
	}

	var chain []branch
	for _, t := range Chain(tpl) {
		switch {
		case t == tpl:
			chain = append(chain, branch{tpl: t, guard: value})
		case t.HasAttribute("x-else-if"):
			chain = append(chain, branch{tpl: t, guard: t.Attr("x-else-if")})
		default:
			chain = append(chain, branch{tpl: t, isElse: true})
		}
	}

	wrapper := tpl.OwnerDocument().CreateElement("div")
	wrapper.SetAttribute("style", "display: contents")
	parent.InsertBefore(wrapper, tpl)

	owner := reactive.CurrentOwner()
	var active *dom.Node
	var mounted *reactive.Owner

	watch(func() {
		var selected *dom.Node
		for _, b := range chain {
			if b.isElse || expr.Truthy(d.eval.Evaluate(b.guard, s)) {
				selected = b.tpl
				break
			}
		}
		if selected == active {
			return
		}

		if mounted != nil {
			mounted.Dispose()
			mounted = nil
		}
		wrapper.RemoveChildren()
		active = selected
		if selected == nil {
			return
		}

		mounted = reactive.NewOwner(owner)
		clone := selected.Content.Clone(true)
		top := clone.ChildNodes()
		wrapper.AppendChild(clone)
		reactive.WithOwner(mounted, func() {
			reactive.Untracked(func() {
				for _, n := range top {
					d.hydrate(n, s)
				}
			})
		})
	})
	return nil
}

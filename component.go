package way

import (
	stderrors "errors"
	"strings"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/directive"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/form"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/registry"
	"github.com/vango-dev/way/pkg/scope"
)

// ComponentOption configures a component registration.
type ComponentOption func(*registry.Descriptor)

// OnMounted registers fn to run after a custom element component is
// attached and hydrated.
func OnMounted(fn func(el *dom.Node)) ComponentOption {
	return func(d *registry.Descriptor) { d.OnMounted = fn }
}

// OnUnmounted registers fn to run when a mounted custom element component
// leaves the document.
func OnUnmounted(fn func(el *dom.Node)) ComponentOption {
	return func(d *registry.Descriptor) { d.OnUnmounted = fn }
}

// RegisterComponent registers setup under name. A nil setup passes the
// component's props through as its data.
//
// Names containing a hyphen are custom elements: the document must hold a
// <template id=name>, whose content is cloned into every such element when
// it is attached. Without one nothing is registered and an error wrapping
// registry.ErrTemplateMissing is returned.
func (e *Engine) RegisterComponent(name string, setup SetupFunc, opts ...ComponentOption) error {
	d := &registry.Descriptor{Name: strings.ToLower(name), Setup: setup}
	for _, opt := range opts {
		opt(d)
	}
	if !d.Structural() {
		e.registry.AddComponent(d)
		return nil
	}

	tpl := e.doc.GetElementByID(d.Name)
	if tpl == nil || tpl.Tag != "template" {
		err := errors.New("E221").
			WithDetail(`no <template id="` + d.Name + `"> found`).
			Wrap(registry.ErrTemplateMissing)
		e.logger.Error("component not registered", "component", d.Name, "error", err)
		return err
	}
	d.Template = tpl
	e.registry.AddComponent(d)

	err := e.doc.Define(d.Name, dom.Definition{
		Connected:    func(el *dom.Node) { e.connected(d.Name, el) },
		Disconnected: func(el *dom.Node) { e.disconnected(d.Name, el) },
	})
	if err != nil && !stderrors.Is(err, dom.ErrAlreadyDefined) {
		return err
	}
	return nil
}

// connected fills a custom element with its template the first time it is
// attached. Existing children are moved into the template's <slot>.
func (e *Engine) connected(name string, el *dom.Node) {
	d, ok := e.registry.Component(name)
	if !ok || d.Template == nil {
		return
	}
	st := directive.EnsureState(el)
	if st.Component != "" {
		e.mount(el)
		return
	}
	st.Component = d.Name

	light := el.ChildNodes()
	content := d.Template.Content.Clone(true)
	added := content.ChildNodes()
	slot := content.Find(func(n *dom.Node) bool {
		return n.Type == dom.ElementNode && n.Tag == "slot"
	})
	el.AppendChild(content)

	if slot != nil {
		for _, c := range light {
			slot.Parent().InsertBefore(c, slot)
		}
		slot.Remove()
	} else {
		for _, c := range light {
			c.Remove()
		}
	}

	if !st.Hydrated {
		return
	}
	// Registered after the element was hydrated: compose its data now and
	// hydrate the content that was just added.
	reactive.WithOwner(e.owner, func() {
		if !st.HasData {
			st.Hydrated = false
			e.composeScope(el, st.Scope)
		}
		run := func() {
			for _, c := range added {
				if c != slot && c.Parent() == el {
					e.Hydrate(c, st.Scope)
				}
			}
		}
		if st.Owner != nil {
			reactive.WithOwner(st.Owner, run)
		} else {
			run()
		}
	})
	e.mount(el)
}

func (e *Engine) disconnected(name string, el *dom.Node) {
	st := directive.StateOf(el)
	if st == nil || !st.Mounted {
		return
	}
	st.Mounted = false
	e.callHook(st, "onUnmounted")
	if d, ok := e.registry.Component(name); ok && d.OnUnmounted != nil {
		d.OnUnmounted(el)
	}
}

// mount runs the mount hooks of a filled, hydrated and attached component.
func (e *Engine) mount(el *dom.Node) {
	st := directive.StateOf(el)
	if st == nil || st.Mounted || !st.Hydrated || st.Component == "" || !el.IsConnected() {
		return
	}
	st.Mounted = true
	e.metrics.ComponentMounted()
	e.callHook(st, "onMounted")
	if d, ok := e.registry.Component(st.Component); ok && d.OnMounted != nil {
		d.OnMounted(el)
	}
}

// callHook calls a function stored in the node's own data.
func (e *Engine) callHook(st *directive.NodeState, name string) {
	if !st.HasData || st.Scope == nil {
		return
	}
	fn, ok := st.Scope.Own(name)
	if !ok || expr.TypeOf(fn) != "function" {
		return
	}
	if _, err := expr.Call(fn); err != nil {
		e.logger.Warn("component hook failed", "hook", name, "error", err)
	}
}

// RegisterForm registers a validation schema for x-form.
func (e *Engine) RegisterForm(name string, fields form.Fields, opts ...form.Option) *form.Schema {
	s := form.NewSchema(name, fields, opts...)
	e.registry.AddForm(s)
	return s
}

// RegisterStore runs setup once and exposes its reactive result in the
// root scope under name.
func (e *Engine) RegisterStore(name string, setup func() any) {
	var data any
	reactive.WithOwner(e.owner, func() {
		reactive.Untracked(func() { data = scope.MakeReactive(setup()) })
	})
	e.registry.SetStore(name, data)
}

package way

import (
	"maps"
	"slices"
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

// dataAttrs name the attributes holding inline data or component names.
var dataAttrs = []string{"x-data", "x-comp"}

// composeScope returns the scope handed to n's descendants. Own data from
// inline objects, named components, a custom element component and a form
// setup hook is layered over parent, so it shadows inherited names.
// A node is composed once; later calls return the stored scope.
func (e *Engine) composeScope(n *dom.Node, parent *scope.Scope) *scope.Scope {
	st := directive.EnsureState(n)
	if st.Hydrated {
		if st.Scope != nil {
			return st.Scope
		}
		return parent
	}
	st.Hydrated = true

	c := &composer{e: e, n: n, parent: parent, data: expr.NewObject()}

	for _, name := range dataAttrs {
		if attr := strings.TrimSpace(n.Attr(name)); attr != "" {
			c.attribute(attr)
			break
		}
	}
	if registry.IsStructural(n.Tag) {
		if d, ok := e.registry.Component(n.Tag); ok {
			c.component(d)
		}
	}
	if name := n.Attr("x-form"); name != "" && n.Tag == "form" {
		if s, ok := e.registry.Form(name); ok && s.HasSetup() {
			c.form(s)
		}
	}

	if !c.has {
		st.Scope = parent
		return parent
	}
	st.HasData = true
	st.Owner = c.owner
	st.Scope = parent.ExtendObject(c.data)
	return st.Scope
}

type composer struct {
	e      *Engine
	n      *dom.Node
	parent *scope.Scope
	data   *expr.Object
	owner  *reactive.Owner
	props  map[string]any
	has    bool
}

func (c *composer) attribute(attr string) {
	if strings.Contains(attr, "{") {
		v := c.e.eval.Evaluate(attr, scope.New(nil))
		obj, ok := v.(*expr.Object)
		if !ok {
			c.e.logger.Warn("inline data is not an object", "expr", attr, "tag", c.n.Tag)
			return
		}
		c.merge(scope.ReactiveObject(obj))
		return
	}
	for _, name := range strings.Split(attr, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		d, ok := c.e.registry.Component(name)
		if !ok {
			c.e.logger.Warn("component not found",
				"component", name,
				"tag", c.n.Tag,
				"error", errors.New("E220").WithDetail(name),
			)
			continue
		}
		c.component(d)
	}
}

func (c *composer) component(d *registry.Descriptor) {
	ctx := registry.SetupContext{
		Props:     c.evalProps(),
		El:        c.n,
		Emit:      directive.Emitter(c.n),
		OnCleanup: c.ensureOwner().OnCleanup,
	}
	var out map[string]any
	c.run(func() { out = d.Run(ctx) })
	c.mergeMap(out)
	c.has = true
}

func (c *composer) form(s *form.Schema) {
	ctx := form.Context{El: c.n, Emit: directive.Emitter(c.n)}
	var out map[string]any
	c.run(func() { out = s.RunSetup(ctx) })
	c.mergeMap(out)
	c.has = true
}

// run calls fn untracked under the node's owner, so effects created by a
// setup function belong to the node.
func (c *composer) run(fn func()) {
	reactive.WithOwner(c.ensureOwner(), func() {
		reactive.Untracked(fn)
	})
}

func (c *composer) ensureOwner() *reactive.Owner {
	if c.owner == nil {
		c.owner = reactive.NewOwner(reactive.CurrentOwner())
	}
	return c.owner
}

// evalProps evaluates x-props against the parent's scope, once per node.
func (c *composer) evalProps() map[string]any {
	if c.props != nil {
		return c.props
	}
	c.props = map[string]any{}
	src := c.n.Attr("x-props")
	if src == "" {
		return c.props
	}
	switch v := c.e.eval.Evaluate(src, c.parent).(type) {
	case *expr.Object:
		c.props = v.Map()
	case map[string]any:
		c.props = v
	case nil:
	default:
		c.e.logger.Warn("x-props is not an object", "expr", src, "tag", c.n.Tag)
	}
	return c.props
}

func (c *composer) merge(obj *expr.Object) {
	obj.Range(func(k string, v any) bool {
		c.data.Set(k, v)
		return true
	})
	c.has = true
}

func (c *composer) mergeMap(m map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		c.data.Set(k, m[k])
	}
}

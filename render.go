package way

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/way/pkg/directive"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/scope"
)

// InitEvent is dispatched on the document before rendering starts.
const InitEvent = "way:init"

// Render hydrates root. It dispatches InitEvent, waits until every
// registered custom element component is defined, then binds the tree
// against a root scope made of the registered stores and initialProps.
// Individual directive failures are logged and never fail the render.
func (e *Engine) Render(ctx context.Context, root *dom.Node, initialProps map[string]any) error {
	ctx, span := e.tracer.Start(ctx, "way.Render",
		trace.WithAttributes(attribute.String("way.root", root.Tag)),
	)
	defer span.End()

	e.doc.Root().Dispatch(dom.NewCustomEvent(InitEvent, nil))

	names := e.registry.StructuralNames()
	if err := e.doc.WhenDefined(ctx, names...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("render aborted", "error", err)
		return err
	}

	values := e.registry.Stores()
	for k, v := range initialProps {
		values[k] = v
	}

	reactive.WithOwner(e.owner, func() {
		e.Hydrate(root, scope.New(values))
	})

	span.SetAttributes(attribute.Int("way.components", len(names)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// Hydrate composes scopes and binds directives in the subtree at n.
// It is also how structural directives hydrate the clones they insert.
// Script, style and <template id> elements are skipped, and the contents
// of an x-html element are left unbound.
func (e *Engine) Hydrate(n *dom.Node, s *scope.Scope) {
	e.depth++
	defer func() {
		e.depth--
		if e.depth == 0 {
			e.dispatch.RunDeferred()
		}
	}()
	e.walk(n, s)
}

func (e *Engine) walk(n *dom.Node, s *scope.Scope) {
	switch n.Type {
	case dom.TextNode:
		e.bind(n, s)
		return
	case dom.DocumentNode, dom.FragmentNode:
		for _, c := range n.ChildNodes() {
			e.walk(c, s)
		}
		return
	case dom.ElementNode:
	default:
		return
	}

	switch {
	case n.Tag == "script", n.Tag == "style":
		return
	case n.Tag == "template" && n.HasAttribute("id"):
		return
	}

	s = e.composeScope(n, s)
	st := directive.StateOf(n)

	body := func() {
		e.bind(n, s)
		if !n.HasAttribute("x-html") {
			for _, c := range n.ChildNodes() {
				e.walk(c, s)
			}
		}
		if st.Component != "" {
			e.mount(n)
		}
	}
	if st.Owner != nil {
		reactive.WithOwner(st.Owner, body)
	} else {
		body()
	}
}

func (e *Engine) bind(n *dom.Node, s *scope.Scope) {
	if st := directive.StateOf(n); st != nil && st.Bound {
		return
	}
	e.dispatch.Bind(n, s)
	e.metrics.NodeHydrated()
}

package directive

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/registry"
	"github.com/vango-dev/way/pkg/scope"
)

// Hydrator binds a cloned subtree against a scope.
type Hydrator interface {
	Hydrate(n *dom.Node, s *scope.Scope)
}

// HydratorFunc adapts a function to Hydrator.
type HydratorFunc func(n *dom.Node, s *scope.Scope)

func (f HydratorFunc) Hydrate(n *dom.Node, s *scope.Scope) { f(n, s) }

// ReconcileStats counts the work of one x-for pass.
type ReconcileStats struct {
	Created int
	Reused  int
	Removed int
	Moved   int
}

// Observer receives reconciliation statistics.
type Observer interface {
	Reconciled(ReconcileStats)
}

type binder func(d *Dispatcher, n *dom.Node, value string, s *scope.Scope) error

// binders run in this order. allowEmpty binders run even when the
// attribute value is empty.
var binders = []struct {
	name       string
	bind       binder
	allowEmpty bool
}{
	{"x-text", bindText, false},
	{"x-html", bindHTML, false},
	{"x-show", bindShow, false},
	{"x-model", bindModel, false},
	{"x-form", bindForm, false},
	{"x-if", bindIf, false},
	{"x-for", bindFor, false},
	{"x-load", bindLoad, true},
	{"x-temp", bindTemp, false},
}

// Names returns the directive attribute names in binding order.
func Names() []string {
	out := make([]string, len(binders))
	for i, b := range binders {
		out[i] = b.name
	}
	return out
}

// Dispatcher binds directives on host nodes.
type Dispatcher struct {
	eval     *expr.Evaluator
	hydrator Hydrator
	registry *registry.Registry
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer

	deferred []func()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRegistry sets the registry x-form schemas are looked up in.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithObserver sets the reconciliation observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithTracer sets the tracer used for x-for reconciliation spans.
// Default: the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// New creates a Dispatcher. h hydrates the clones made by structural
// directives.
func New(eval *expr.Evaluator, h Hydrator, opts ...Option) *Dispatcher {
	d := &Dispatcher{eval: eval, hydrator: h}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.registry == nil {
		d.registry = registry.New()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("github.com/vango-dev/way/pkg/directive")
	}
	return d
}

// Evaluator returns the expression evaluator.
func (d *Dispatcher) Evaluator() *expr.Evaluator { return d.eval }

// Bind binds the directives of an element, or the interpolations of a
// text node. A node is bound at most once.
func (d *Dispatcher) Bind(n *dom.Node, s *scope.Scope) {
	switch n.Type {
	case dom.TextNode:
	case dom.ElementNode:
	default:
		return
	}
	st := EnsureState(n)
	if st.Bound {
		return
	}
	st.Bound = true

	if n.Type == dom.TextNode {
		d.bindInterpolation(n, s)
		return
	}

	for _, b := range binders {
		value, ok := n.GetAttribute(b.name)
		if !ok || (value == "" && !b.allowEmpty) {
			continue
		}
		if err := b.bind(d, n, value, s); err != nil {
			d.report(n, b.name, err)
		}
	}

	keyed := n.Tag == "template" && n.HasAttribute("x-for")
	for _, a := range n.Attributes() {
		if a.Value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(a.Name, "@"):
			d.bindEvent(n, a.Name[1:], a.Value, s)
		case strings.HasPrefix(a.Name, "x-on:"):
			d.bindEvent(n, a.Name[len("x-on:"):], a.Value, s)
		case strings.HasPrefix(a.Name, ":"):
			if keyed && a.Name == ":key" {
				continue
			}
			d.bindProperty(n, a.Name[1:], a.Value, s)
		case strings.HasPrefix(a.Name, "x-bind:"):
			d.bindProperty(n, a.Name[len("x-bind:"):], a.Value, s)
		}
	}
}

// Defer queues fn to run after the current hydration pass.
func (d *Dispatcher) Defer(fn func()) {
	d.deferred = append(d.deferred, fn)
}

// RunDeferred runs queued functions, including ones queued while running.
func (d *Dispatcher) RunDeferred() {
	for len(d.deferred) > 0 {
		fns := d.deferred
		d.deferred = nil
		for _, fn := range fns {
			fn()
		}
	}
}

func (d *Dispatcher) hydrate(n *dom.Node, s *scope.Scope) {
	if d.hydrator != nil {
		d.hydrator.Hydrate(n, s)
	}
}

func (d *Dispatcher) report(n *dom.Node, directive string, err error) {
	level := slog.LevelError
	for _, code := range []string{"E212", "E220", "E222"} {
		if errors.HasCode(err, code) {
			level = slog.LevelWarn
		}
	}
	d.logger.Log(context.Background(), level, "directive failed",
		"directive", directive,
		"tag", n.Tag,
		"error", err,
	)
}

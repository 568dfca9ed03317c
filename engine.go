package way

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/way/pkg/directive"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/metrics"
	"github.com/vango-dev/way/pkg/reactive"
	"github.com/vango-dev/way/pkg/registry"
)

const tracerName = "github.com/vango-dev/way"

// Engine hydrates one document. It is not safe for concurrent use: the
// reactive runtime it drives has a single logical thread of control.
type Engine struct {
	doc      *dom.Document
	registry *registry.Registry
	eval     *expr.Evaluator
	dispatch *directive.Dispatcher
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	owner    *reactive.Owner

	cacheSize int

	// depth counts nested Hydrate calls; deferred directive work runs when
	// the outermost call returns.
	depth int

	disposed bool
}

// observers holds the collectors of live engines in creation order. The
// reactive runtime reports to a single observer: the most recently created
// live engine's collector.
var observers []*metrics.Collector

func attachObserver(c *metrics.Collector) {
	observers = append(observers, c)
	reactive.SetObserver(c)
}

func detachObserver(c *metrics.Collector) {
	for i := len(observers) - 1; i >= 0; i-- {
		if observers[i] == c {
			observers = append(observers[:i], observers[i+1:]...)
			break
		}
	}
	if len(observers) == 0 {
		reactive.SetObserver(nil)
		return
	}
	reactive.SetObserver(observers[len(observers)-1])
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRegistry sets the registry components, forms and stores are kept in.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMetrics installs c as the metrics sink for the engine and the
// reactive runtime.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = c
	}
}

// WithTracer sets the tracer used for render spans. Default: the global
// OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithExprCacheSize bounds the compiled expression cache.
func WithExprCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// New creates an Engine for doc.
func New(doc *dom.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:       doc,
		cacheSize: expr.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.registry == nil {
		e.registry = registry.New()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}

	e.eval = expr.NewEvaluator(
		expr.WithLogger(e.logger),
		expr.WithCacheSize(e.cacheSize),
		expr.WithErrorHook(func(string, error) {
			e.metrics.ExpressionFailed()
		}),
	)

	dopts := []directive.Option{
		directive.WithLogger(e.logger),
		directive.WithRegistry(e.registry),
		directive.WithTracer(e.tracer),
	}
	if e.metrics != nil {
		dopts = append(dopts, directive.WithObserver(e.metrics))
		attachObserver(e.metrics)
	}
	e.dispatch = directive.New(e.eval, e, dopts...)

	e.owner = reactive.NewOwner(nil)
	doc.OnDisconnect(e.detached)
	return e
}

// Document returns the document the engine hydrates.
func (e *Engine) Document() *dom.Document { return e.doc }

// Registry returns the engine's registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Evaluator returns the expression evaluator.
func (e *Engine) Evaluator() *expr.Evaluator { return e.eval }

// Dispose tears down every effect and cleanup created by the engine and
// stops its collector from receiving runtime events. It is safe to call
// more than once.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.owner.Dispose()
	if e.metrics != nil {
		detachObserver(e.metrics)
	}
}

// detached disposes the owner of a data-carrying element that left the
// document.
func (e *Engine) detached(n *dom.Node) {
	st := directive.StateOf(n)
	if st == nil || st.Owner == nil {
		return
	}
	st.Owner.Dispose()
}

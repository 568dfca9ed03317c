// Package metrics exposes Prometheus collectors for the reactive runtime,
// hydration and the preview server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/way/pkg/directive"
	"github.com/vango-dev/way/pkg/reactive"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "way").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effects run per flush.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the flush histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "way",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records engine metrics. It implements reactive.Observer and
// directive.Observer. A nil *Collector records nothing.
type Collector struct {
	effectRuns       prometheus.Counter
	effectErrors     prometheus.Counter
	flushes          prometheus.Counter
	flushEffects     prometheus.Histogram
	expressionErrors prometheus.Counter
	reconcileOps     *prometheus.CounterVec
	hydratedNodes    prometheus.Counter
	componentsMount  prometheus.Counter
	activeSessions   prometheus.Gauge
	wsErrors         *prometheus.CounterVec
}

var (
	_ reactive.Observer  = (*Collector)(nil)
	_ directive.Observer = (*Collector)(nil)
)

// New registers the collectors and returns them.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		effectRuns:       counter("effect_runs_total", "Total number of effect runs"),
		effectErrors:     counter("effect_errors_total", "Total number of effects that panicked"),
		flushes:          counter("flushes_total", "Total number of reactive flushes"),
		expressionErrors: counter("expression_errors_total", "Total number of failed expression evaluations"),
		hydratedNodes:    counter("hydrated_nodes_total", "Total number of nodes bound during hydration"),
		componentsMount:  counter("components_mounted_total", "Total number of structural components mounted"),

		flushEffects: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_effects",
			Help:        "Number of effects run per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		reconcileOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_ops_total",
			Help:        "Total number of x-for reconciliation operations",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_active",
			Help:        "Number of live preview sessions",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total number of WebSocket errors",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// EffectRun records one effect run.
func (c *Collector) EffectRun() {
	if c != nil {
		c.effectRuns.Inc()
	}
}

// EffectPanic records an effect that panicked.
func (c *Collector) EffectPanic() {
	if c != nil {
		c.effectErrors.Inc()
	}
}

// Flushed records a flush that ran n effects.
func (c *Collector) Flushed(n int) {
	if c == nil {
		return
	}
	c.flushes.Inc()
	c.flushEffects.Observe(float64(n))
}

// Reconciled records the work of one x-for pass.
func (c *Collector) Reconciled(s directive.ReconcileStats) {
	if c == nil {
		return
	}
	for op, n := range map[string]int{
		"create": s.Created,
		"reuse":  s.Reused,
		"remove": s.Removed,
		"move":   s.Moved,
	} {
		if n > 0 {
			c.reconcileOps.WithLabelValues(op).Add(float64(n))
		}
	}
}

// ExpressionFailed records a failed expression evaluation.
func (c *Collector) ExpressionFailed() {
	if c != nil {
		c.expressionErrors.Inc()
	}
}

// NodeHydrated records a node bound during hydration.
func (c *Collector) NodeHydrated() {
	if c != nil {
		c.hydratedNodes.Inc()
	}
}

// ComponentMounted records a structural component being mounted.
func (c *Collector) ComponentMounted() {
	if c != nil {
		c.componentsMount.Inc()
	}
}

// SessionOpened records a new preview session.
func (c *Collector) SessionOpened() {
	if c != nil {
		c.activeSessions.Inc()
	}
}

// SessionClosed records a preview session ending.
func (c *Collector) SessionClosed() {
	if c != nil {
		c.activeSessions.Dec()
	}
}

// WebSocketError records a WebSocket error of the given kind.
func (c *Collector) WebSocketError(kind string) {
	if c != nil {
		c.wsErrors.WithLabelValues(kind).Inc()
	}
}

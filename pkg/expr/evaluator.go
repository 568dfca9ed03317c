package expr

import (
	"container/list"
	"log/slog"

	"github.com/vango-dev/way/pkg/reactive"
)

// DefaultCacheSize is the number of compiled programs an Evaluator keeps.
const DefaultCacheSize = 512

// Evaluator evaluates directive expressions with the directive error
// policy: it never returns an error and never panics. Failures are logged
// and reported to the error hook, and the result is nil.
type Evaluator struct {
	logger  *slog.Logger
	onError func(src string, err error)
	cache   *programCache
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for evaluation failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCacheSize bounds the program cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Evaluator) {
		e.cache = newProgramCache(n)
	}
}

// WithErrorHook registers fn to observe every evaluation failure.
func WithErrorHook(fn func(src string, err error)) Option {
	return func(e *Evaluator) {
		e.onError = fn
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: slog.Default(),
		cache:  newProgramCache(DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile returns the cached program for src, compiling it on a miss.
func (e *Evaluator) Compile(src string) (*Program, error) {
	if p, ok := e.cache.get(src); ok {
		return p, nil
	}
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	e.cache.put(src, p)
	return p, nil
}

// Evaluate evaluates src against b and unwraps a cell result to its
// current value. On failure it logs and returns nil.
func (e *Evaluator) Evaluate(src string, b Bindings) any {
	v, err := e.Run(src, b)
	if err != nil {
		return nil
	}
	return reactive.Unwrap(v)
}

// Run evaluates src against b without unwrapping the result. Failures are
// logged and reported as with Evaluate, and also returned.
func (e *Evaluator) Run(src string, b Bindings) (any, error) {
	p, err := e.Compile(src)
	if err == nil {
		var v any
		v, err = p.Eval(b)
		if err == nil {
			return v, nil
		}
	}
	e.logger.Warn("expression failed", "expr", src, "error", err)
	if e.onError != nil {
		e.onError(src, err)
	}
	return nil, err
}

// CacheLen returns the number of cached programs.
func (e *Evaluator) CacheLen() int {
	return e.cache.len()
}

// programCache is a least-recently-used map from source text to program.
type programCache struct {
	max   int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	src  string
	prog *Program
}

func newProgramCache(size int) *programCache {
	return &programCache{
		max:   size,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *programCache) get(src string) (*Program, bool) {
	el, ok := c.items[src]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).prog, true
}

func (c *programCache) put(src string, p *Program) {
	if c.max <= 0 {
		return
	}
	if el, ok := c.items[src]; ok {
		el.Value.(*cacheEntry).prog = p
		c.order.MoveToFront(el)
		return
	}
	c.items[src] = c.order.PushFront(&cacheEntry{src: src, prog: p})
	for c.order.Len() > c.max {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).src)
	}
}

func (c *programCache) len() int {
	return c.order.Len()
}

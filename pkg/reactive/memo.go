package reactive

// Memo is a derived value that recomputes lazily when its sources change.
// A memo is both a Listener (of its sources) and a source (for whoever
// reads it).
type Memo[T any] struct {
	base    signalBase
	compute func() T
	value   T
	valid   bool
	sources []*signalBase

	// computing guards against a memo reading itself.
	computing bool
}

// NewMemo creates a memo. compute is not called until the first read.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{
		base:    signalBase{id: nextID()},
		compute: compute,
	}
}

// Get returns the memoized value, recomputing if stale, and subscribes the
// current listener.
func (m *Memo[T]) Get() T {
	m.base.track()
	if !m.valid {
		m.recompute()
	}
	return m.value
}

// Peek returns the memoized value without subscribing.
func (m *Memo[T]) Peek() T {
	if !m.valid {
		m.recompute()
	}
	return m.value
}

// ID implements Listener.
func (m *Memo[T]) ID() uint64 {
	return m.base.id
}

// MarkDirty invalidates the cached value and propagates to subscribers.
func (m *Memo[T]) MarkDirty() {
	if !m.valid {
		return
	}
	m.valid = false
	m.base.notifySubscribers()
}

// GetAny implements Cell.
func (m *Memo[T]) GetAny() any {
	return m.Get()
}

// PeekAny implements Cell.
func (m *Memo[T]) PeekAny() any {
	return m.Peek()
}

func (m *Memo[T]) addSource(s *signalBase) {
	for _, existing := range m.sources {
		if existing == s {
			return
		}
	}
	m.sources = append(m.sources, s)
}

func (m *Memo[T]) recompute() {
	if m.computing {
		panic("reactive: memo read itself while computing")
	}
	for _, s := range m.sources {
		s.unsubscribe(m)
	}
	m.sources = m.sources[:0]

	m.computing = true
	prev := setCurrentListener(m)
	defer func() {
		setCurrentListener(prev)
		m.computing = false
	}()

	m.value = m.compute()
	m.valid = true
}

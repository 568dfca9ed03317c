package reactive

// Effect is a side effect that re-runs after its dependencies change.
// Effects run once when created; later runs happen during Flush.
type Effect struct {
	id      uint64
	fn      func() Cleanup
	cleanup Cleanup
	sources []*signalBase

	// owner is the owner the effect was created under. scope is a child
	// owner recreated on every run so nested effects die with the run.
	owner *Owner
	scope *Owner

	pending  bool
	disposed bool
}

// CreateEffect creates an effect, attaches it to the current owner and runs
// it immediately.
func CreateEffect(fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: rt.owner,
	}
	if e.owner != nil {
		e.owner.addEffect(e)
	}
	e.run()
	return e
}

// Watch is the common form of CreateEffect for bodies without cleanup.
// It returns a function that disposes the effect.
func Watch(fn func()) func() {
	e := CreateEffect(func() Cleanup {
		fn()
		return nil
	})
	return e.Dispose
}

// ID implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// MarkDirty schedules the effect for the next flush. Scheduling an already
// scheduled effect is a no-op.
func (e *Effect) MarkDirty() {
	if e.disposed || e.pending {
		return
	}
	e.pending = true
	enqueue(e)
}

// Disposed reports whether Dispose has been called.
func (e *Effect) Disposed() bool {
	return e.disposed
}

// Dispose stops the effect, runs its cleanup and releases its subscriptions.
// It is safe to call more than once.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.pending = false
	e.unsubscribeAll()
	if e.scope != nil {
		e.scope.Dispose()
		e.scope = nil
	}
	e.runCleanup()
	if e.owner != nil {
		e.owner.removeEffect(e)
	}
}

func (e *Effect) addSource(s *signalBase) {
	for _, existing := range e.sources {
		if existing == s {
			return
		}
	}
	e.sources = append(e.sources, s)
}

func (e *Effect) unsubscribeAll() {
	for _, s := range e.sources {
		s.unsubscribe(e)
	}
	e.sources = e.sources[:0]
}

func (e *Effect) runCleanup() {
	if e.cleanup == nil {
		return
	}
	c := e.cleanup
	e.cleanup = nil
	defer recoverEffect(e)
	c()
}

// run executes the effect body with dependency tracking. A panic in the
// body is reported and the effect stays subscribed to whatever it read
// before panicking.
func (e *Effect) run() {
	e.pending = false
	if e.disposed {
		return
	}
	e.runCleanup()
	e.unsubscribeAll()
	if e.scope != nil {
		e.scope.Dispose()
	}
	e.scope = NewOwner(e.owner)

	if rt.observer != nil {
		rt.observer.EffectRun()
	}

	prevListener := setCurrentListener(e)
	prevOwner := rt.owner
	rt.owner = e.scope
	defer func() {
		rt.owner = prevOwner
		setCurrentListener(prevListener)
	}()
	defer recoverEffect(e)

	e.cleanup = e.fn()
}

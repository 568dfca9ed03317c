package reactive

// Owner represents a scope that owns reactive primitives. When an Owner is
// disposed, all effects, cleanups and child owners it contains are disposed
// too.
//
// Owners form a hierarchy that mirrors the rendered tree: a component, a
// list item or a conditional branch each get their own owner.
type Owner struct {
	id       uint64
	parent   *Owner
	children []*Owner
	effects  []*Effect
	cleanups []func()
	disposed bool
}

// NewOwner creates a new Owner as a child of parent. parent may be nil.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil && !parent.disposed {
		parent.children = append(parent.children, o)
	}
	return o
}

// ID returns the owner's unique identifier.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has been called.
func (o *Owner) IsDisposed() bool {
	return o.disposed
}

// OnCleanup registers fn to run when the owner is disposed. Registering on
// a disposed owner runs fn immediately.
func (o *Owner) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	if o.disposed {
		fn()
		return
	}
	o.cleanups = append(o.cleanups, fn)
}

// Dispose tears down children first, then effects, then cleanups in reverse
// registration order. Calling it more than once is a no-op.
func (o *Owner) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true

	children := o.children
	o.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	effects := o.effects
	o.effects = nil
	for _, e := range effects {
		e.Dispose()
	}

	cleanups := o.cleanups
	o.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}
}

// OnCleanup registers fn with the current owner. It reports false when
// there is no current owner.
func OnCleanup(fn func()) bool {
	if rt.owner == nil {
		return false
	}
	rt.owner.OnCleanup(fn)
	return true
}

func (o *Owner) addEffect(e *Effect) {
	if o.disposed {
		e.disposed = true
		return
	}
	o.effects = append(o.effects, e)
}

func (o *Owner) removeEffect(e *Effect) {
	for i, existing := range o.effects {
		if existing == e {
			o.effects = append(o.effects[:i], o.effects[i+1:]...)
			return
		}
	}
}

func (o *Owner) removeChild(child *Owner) {
	for i, existing := range o.children {
		if existing == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

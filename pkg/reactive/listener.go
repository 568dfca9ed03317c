package reactive

// Listener is anything that can be notified when a dependency changes.
// It is implemented by memos and effects.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	// For memos, this invalidates the cached value.
	// For effects, this schedules the effect for the next flush.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	ID() uint64
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// tracker is a listener that records the sources it read.
type tracker interface {
	Listener
	addSource(source *signalBase)
}

// Cell is the type-erased read side of a signal or memo.
// Expression evaluation uses it to unwrap reactive values.
type Cell interface {
	// GetAny returns the current value and subscribes the current listener.
	GetAny() any

	// PeekAny returns the current value without subscribing.
	PeekAny() any
}

// WritableCell is a Cell that accepts writes.
type WritableCell interface {
	Cell

	// SetAny sets the value from an interface{}.
	// Returns ErrTypeMismatch if the value cannot be converted.
	SetAny(value any) error
}

// IsCell reports whether v is a signal or memo.
func IsCell(v any) bool {
	_, ok := v.(Cell)
	return ok
}

// Unwrap returns the tracked value of v if it is a Cell, else v itself.
func Unwrap(v any) any {
	if c, ok := v.(Cell); ok {
		return c.GetAny()
	}
	return v
}

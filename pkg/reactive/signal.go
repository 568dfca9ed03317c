package reactive

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrTypeMismatch is returned by SetAny when a value cannot be stored.
var ErrTypeMismatch = errors.New("reactive: type mismatch")

// signalBase provides type-erased subscriber management.
// It is embedded in Signal[T] and Memo[T] to share subscription logic.
type signalBase struct {
	id   uint64
	subs []Listener
}

// subscribe adds a listener, deduplicating by ID.
func (s *signalBase) subscribe(l Listener) {
	if l == nil {
		return
	}
	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}
	s.subs = append(s.subs, l)
}

// unsubscribe removes a listener, keeping the order of the rest.
func (s *signalBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}
	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notifySubscribers marks every current subscriber dirty.
// The slice is copied first because MarkDirty may unsubscribe.
func (s *signalBase) notifySubscribers() {
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		sub.MarkDirty()
	}
}

func (s *signalBase) track() {
	l := getCurrentListener()
	if l == nil {
		return
	}
	s.subscribe(l)
	if t, ok := l.(tracker); ok {
		t.addSource(s)
	}
}

// Signal is a reactive value container.
// Reading a Signal's value during a tracked context (memo computation or
// effect execution) subscribes the current listener to receive
// notifications when the value changes.
type Signal[T any] struct {
	base  signalBase
	value T
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base:  signalBase{id: nextID()},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener.
func (s *Signal[T]) Get() T {
	s.base.track()
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set updates the value and schedules subscribers if it changed.
func (s *Signal[T]) Set(value T) {
	if s.equals(s.value, value) {
		return
	}
	s.value = value
	s.base.notifySubscribers()
}

// Update reads and replaces the value in one step.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Notify schedules subscribers without changing the value. Use it after
// mutating a value held by reference.
func (s *Signal[T]) Notify() {
	s.base.notifySubscribers()
}

// WithEquals returns the signal configured with a custom equality function.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// String implements fmt.Stringer without tracking.
func (s *Signal[T]) String() string {
	return fmt.Sprint(s.value)
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// GetAny returns the current value as an interface{} and subscribes.
func (s *Signal[T]) GetAny() any {
	return s.Get()
}

// PeekAny returns the current value as an interface{} without subscribing.
func (s *Signal[T]) PeekAny() any {
	return s.Peek()
}

// SetAny sets the value from an interface{}. Numeric values are converted
// between Go numeric kinds; nil stores the zero value.
func (s *Signal[T]) SetAny(value any) error {
	if value == nil {
		var zero T
		s.Set(zero)
		return nil
	}
	if v, ok := value.(T); ok {
		s.Set(v)
		return nil
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.ValueOf(value)
	if (isNumericKind(rv.Kind()) && isNumericKind(target.Kind())) ||
		(rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target)) {
		s.Set(rv.Convert(target).Interface().(T))
		return nil
	}
	return fmt.Errorf("%w: cannot store %T in Signal[%s]", ErrTypeMismatch, value, target)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// defaultEquals compares scalars and pointers by identity and everything
// else structurally. Functions never compare equal.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	ta := reflect.TypeOf(av)
	if ta != reflect.TypeOf(bv) {
		return false
	}
	switch ta.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return av == bv
	case reflect.Func:
		return false
	}
	return reflect.DeepEqual(av, bv)
}

package reactive

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/way/internal/errors"
)

// DefaultMaxFlushRounds bounds how many times Flush re-drains the queue when
// effects keep scheduling other effects.
const DefaultMaxFlushRounds = 100

// Observer receives runtime events. It is used to feed metrics.
type Observer interface {
	EffectRun()
	EffectPanic()
	Flushed(effects int)
}

// runtime is the process-wide reactive state.
type runtime struct {
	// listener is the computation currently tracking reads.
	listener Listener

	// owner receives effects and cleanups created right now.
	owner *Owner

	// queue holds effects scheduled for the next flush, in schedule order.
	queue []*Effect

	flushing  bool
	maxRounds int

	onSchedule func()
	onError    func(error)
	observer   Observer
}

var rt = &runtime{maxRounds: DefaultMaxFlushRounds}

func getCurrentListener() Listener {
	return rt.listener
}

func setCurrentListener(l Listener) Listener {
	prev := rt.listener
	rt.listener = l
	return prev
}

// CurrentOwner returns the owner that newly created effects attach to.
func CurrentOwner() *Owner {
	return rt.owner
}

// WithOwner runs fn with owner as the current owner.
func WithOwner(owner *Owner, fn func()) {
	prev := rt.owner
	rt.owner = owner
	defer func() { rt.owner = prev }()
	fn()
}

// Untracked runs fn without tracking any signal reads.
func Untracked(fn func()) {
	prev := setCurrentListener(nil)
	defer setCurrentListener(prev)
	fn()
}

// UntrackedGet reads a value without tracking.
func UntrackedGet[T any](s *Signal[T]) T {
	return s.Peek()
}

// Batch runs fn and then flushes, so that all writes made inside fn are
// observed by dependents exactly once.
func Batch(fn func()) {
	fn()
	Flush()
}

// OnSchedule registers fn to be called whenever the queue goes from empty to
// non-empty outside of a flush. Passing nil removes the hook.
func OnSchedule(fn func()) {
	rt.onSchedule = fn
}

// SetErrorHandler replaces the sink for effect panics. Passing nil restores
// the default, which logs through slog.
func SetErrorHandler(fn func(error)) {
	rt.onError = fn
}

// SetObserver installs o to receive runtime events. Passing nil removes it.
func SetObserver(o Observer) {
	rt.observer = o
}

// SetMaxFlushRounds changes the bound used by Flush. Values below 1 restore
// DefaultMaxFlushRounds.
func SetMaxFlushRounds(n int) {
	if n < 1 {
		n = DefaultMaxFlushRounds
	}
	rt.maxRounds = n
}

// Pending returns the number of effects waiting for the next flush.
func Pending() int {
	return len(rt.queue)
}

// Reset drops every queued effect and restores the runtime defaults.
// Intended for tests.
func Reset() {
	for _, e := range rt.queue {
		e.pending = false
	}
	rt.queue = nil
	rt.listener = nil
	rt.owner = nil
	rt.flushing = false
	rt.maxRounds = DefaultMaxFlushRounds
	rt.onSchedule = nil
	rt.onError = nil
	rt.observer = nil
}

func enqueue(e *Effect) {
	wasEmpty := len(rt.queue) == 0
	rt.queue = append(rt.queue, e)
	if wasEmpty && !rt.flushing && rt.onSchedule != nil {
		rt.onSchedule()
	}
}

// Flush runs every scheduled effect. Effects scheduled while flushing run in
// a later round of the same call. It returns the number of effect runs.
// Calling Flush from inside an effect is a no-op.
func Flush() int {
	if rt.flushing {
		return 0
	}
	rt.flushing = true
	total := 0
	rounds := 0
	for len(rt.queue) > 0 {
		if rounds >= rt.maxRounds {
			reportError(errors.New("E231").
				WithDetail(fmt.Sprintf("%d effects still scheduled after %d rounds", len(rt.queue), rounds)))
			break
		}
		rounds++
		batch := rt.queue
		rt.queue = nil
		for _, e := range batch {
			if e.pending {
				e.run()
				total++
			}
		}
	}
	rt.flushing = false

	if rt.observer != nil && total > 0 {
		rt.observer.Flushed(total)
	}
	if len(rt.queue) > 0 && rt.onSchedule != nil {
		rt.onSchedule()
	}
	return total
}

func reportError(err error) {
	if rt.onError != nil {
		rt.onError(err)
		return
	}
	slog.Default().Error("reactive error", "error", err)
}

func recoverEffect(e *Effect) {
	if r := recover(); r != nil {
		if rt.observer != nil {
			rt.observer.EffectPanic()
		}
		err := errors.New("E230").WithDetail(fmt.Sprintf("effect %d: %v", e.id, r))
		if inner, ok := r.(error); ok {
			err = err.Wrap(inner)
		}
		reportError(err)
	}
}

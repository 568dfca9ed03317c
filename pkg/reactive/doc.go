// Package reactive provides the signal store used by way's directives.
//
// The system is fine-grained: reading a signal inside a tracked computation
// (an effect or a memo) subscribes that computation, and writing the signal
// schedules every subscriber. Writes are synchronous; dependents re-run in
// a single deferred flush, so several writes before the flush coalesce into
// one re-run per affected effect.
//
// # Core Types
//
// Signal[T] is a mutable cell:
//
//	count := NewSignal(0)
//	count.Get()   // tracked read
//	count.Peek()  // untracked read
//	count.Set(5)  // schedules subscribers
//
// Memo[T] is a lazily recomputed derived cell:
//
//	doubled := NewMemo(func() int { return count.Get() * 2 })
//
// Effect runs a side effect immediately and again after each flush in which
// one of its dependencies changed:
//
//	e := CreateEffect(func() Cleanup {
//	    fmt.Println(count.Get())
//	    return nil
//	})
//	defer e.Dispose()
//
// # Flushing
//
// Flush drains the queue of scheduled effects. Hosts call it after handling
// an event, or register OnSchedule to be told when the queue becomes
// non-empty (the moral equivalent of queueing a microtask).
//
// # Threading
//
// There is exactly one runtime per process and it is not synchronized.
// Callers that touch signals from several goroutines must serialize that
// work themselves.
package reactive

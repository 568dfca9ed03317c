package reactive

import "testing"

func TestOwnerDisposeOrder(t *testing.T) {
	defer Reset()

	var log []string
	root := NewOwner(nil)
	child := NewOwner(root)
	root.OnCleanup(func() { log = append(log, "root-1") })
	root.OnCleanup(func() { log = append(log, "root-2") })
	child.OnCleanup(func() { log = append(log, "child") })

	WithOwner(root, func() {
		CreateEffect(func() Cleanup {
			return func() { log = append(log, "effect") }
		})
	})

	root.Dispose()
	root.Dispose()

	want := []string{"child", "effect", "root-2", "root-1"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if !child.IsDisposed() {
		t.Error("child not disposed with parent")
	}
}

func TestNestedEffectsDisposedOnRerun(t *testing.T) {
	defer Reset()

	outer := NewSignal(0)
	inner := NewSignal(0)
	innerRuns := 0

	root := NewOwner(nil)
	defer root.Dispose()
	WithOwner(root, func() {
		Watch(func() {
			outer.Get()
			Watch(func() {
				inner.Get()
				innerRuns++
			})
		})
	})

	outer.Set(1)
	Flush()
	innerRuns = 0

	inner.Set(1)
	Flush()
	if innerRuns != 1 {
		t.Errorf("innerRuns = %d, want 1 (stale nested effect still alive)", innerRuns)
	}
}

func TestOnCleanupWithoutOwner(t *testing.T) {
	defer Reset()
	if OnCleanup(func() {}) {
		t.Error("OnCleanup reported success with no owner")
	}
}

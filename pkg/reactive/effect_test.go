package reactive

import (
	"testing"

	"github.com/vango-dev/way/internal/errors"
)

func TestEffectRunsOnCreate(t *testing.T) {
	defer Reset()

	ran := false
	e := CreateEffect(func() Cleanup {
		ran = true
		return nil
	})
	defer e.Dispose()

	if !ran {
		t.Error("effect should run immediately on creation")
	}
}

func TestEffectCoalescesWrites(t *testing.T) {
	defer Reset()

	a := NewSignal(0)
	b := NewSignal(0)
	runs := 0
	e := CreateEffect(func() Cleanup {
		a.Get()
		b.Get()
		runs++
		return nil
	})
	defer e.Dispose()

	a.Set(1)
	b.Set(1)
	a.Set(2)
	if runs != 1 {
		t.Fatalf("effect re-ran before flush: runs = %d", runs)
	}
	if n := Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	if Flush() != 0 {
		t.Error("second Flush should have nothing to do")
	}
}

func TestEffectCleanupBeforeRerun(t *testing.T) {
	defer Reset()

	s := NewSignal(0)
	var log []string
	e := CreateEffect(func() Cleanup {
		v := s.Get()
		log = append(log, "run")
		return func() {
			_ = v
			log = append(log, "cleanup")
		}
	})

	s.Set(1)
	Flush()
	e.Dispose()
	e.Dispose()

	want := []string{"run", "cleanup", "run", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestEffectDynamicDependencies(t *testing.T) {
	defer Reset()

	cond := NewSignal(true)
	a := NewSignal("a")
	b := NewSignal("b")
	var seen string
	dispose := Watch(func() {
		if cond.Get() {
			seen = a.Get()
		} else {
			seen = b.Get()
		}
	})
	defer dispose()

	cond.Set(false)
	Flush()
	if seen != "b" {
		t.Fatalf("seen = %q, want b", seen)
	}

	a.Set("A")
	if Pending() != 0 {
		t.Error("effect still subscribed to a stale dependency")
	}
}

func TestEffectPanicIsReported(t *testing.T) {
	defer Reset()

	var reported []error
	SetErrorHandler(func(err error) { reported = append(reported, err) })

	s := NewSignal(0)
	runs := 0
	e := CreateEffect(func() Cleanup {
		runs++
		if s.Get() == 1 {
			panic("boom")
		}
		return nil
	})
	defer e.Dispose()

	s.Set(1)
	Flush()
	if len(reported) != 1 || !errors.HasCode(reported[0], "E230") {
		t.Fatalf("reported = %v, want one E230", reported)
	}

	// The effect is still live after the panic.
	s.Set(2)
	Flush()
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestFlushRoundLimit(t *testing.T) {
	defer Reset()

	var reported []error
	SetErrorHandler(func(err error) { reported = append(reported, err) })
	SetMaxFlushRounds(5)

	s := NewSignal(0)
	e := CreateEffect(func() Cleanup {
		s.Set(s.Get() + 1)
		return nil
	})
	defer e.Dispose()

	Flush()
	if len(reported) == 0 || !errors.HasCode(reported[0], "E231") {
		t.Fatalf("reported = %v, want E231", reported)
	}
}

func TestOnSchedule(t *testing.T) {
	defer Reset()

	scheduled := 0
	OnSchedule(func() { scheduled++ })

	s := NewSignal(0)
	dispose := Watch(func() { s.Get() })
	defer dispose()

	s.Set(1)
	s.Set(2)
	if scheduled != 1 {
		t.Errorf("scheduled = %d, want 1", scheduled)
	}
	Flush()
	s.Set(3)
	if scheduled != 2 {
		t.Errorf("scheduled = %d, want 2", scheduled)
	}
}

func TestBatchAndUntracked(t *testing.T) {
	defer Reset()

	s := NewSignal(0)
	other := NewSignal(0)
	runs := 0
	dispose := Watch(func() {
		s.Get()
		Untracked(func() { other.Get() })
		runs++
	})
	defer dispose()

	Batch(func() {
		s.Set(1)
		s.Set(2)
	})
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}

	other.Set(1)
	if Pending() != 0 {
		t.Error("untracked read created a subscription")
	}
}

type countingObserver struct {
	runs, panics, flushes int
}

func (c *countingObserver) EffectRun()   { c.runs++ }
func (c *countingObserver) EffectPanic() { c.panics++ }
func (c *countingObserver) Flushed(int)  { c.flushes++ }

func TestObserver(t *testing.T) {
	defer Reset()

	obs := &countingObserver{}
	SetObserver(obs)

	s := NewSignal(0)
	dispose := Watch(func() { s.Get() })
	defer dispose()
	s.Set(1)
	Flush()

	if obs.runs != 2 || obs.flushes != 1 {
		t.Errorf("observer = %+v, want 2 runs and 1 flush", *obs)
	}
}

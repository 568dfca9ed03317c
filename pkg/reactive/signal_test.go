package reactive

import (
	"errors"
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)
	if got := s.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}
	s.Set(2)
	if got := s.Peek(); got != 2 {
		t.Errorf("Peek() = %d, want 2", got)
	}
	s.Update(func(v int) int { return v * 10 })
	if got := s.Peek(); got != 20 {
		t.Errorf("after Update, Peek() = %d, want 20", got)
	}
}

func TestSignalSetAny(t *testing.T) {
	n := NewSignal(0)
	if err := n.SetAny(3.0); err != nil {
		t.Fatalf("SetAny(3.0) error: %v", err)
	}
	if n.Peek() != 3 {
		t.Errorf("Peek() = %d, want 3", n.Peek())
	}
	if err := n.SetAny("x"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("SetAny(string) error = %v, want ErrTypeMismatch", err)
	}
	if err := n.SetAny(nil); err != nil || n.Peek() != 0 {
		t.Errorf("SetAny(nil) = %v, value %d", err, n.Peek())
	}

	a := NewSignal[any](nil)
	if err := a.SetAny("hello"); err != nil {
		t.Fatalf("SetAny on Signal[any]: %v", err)
	}
	if a.Peek() != "hello" {
		t.Errorf("Peek() = %v, want hello", a.Peek())
	}
}

func TestSignalEqualValueDoesNotNotify(t *testing.T) {
	defer Reset()

	s := NewSignal[any]("a")
	runs := 0
	dispose := Watch(func() {
		s.Get()
		runs++
	})
	defer dispose()

	s.Set("a")
	Flush()
	if runs != 1 {
		t.Errorf("runs = %d, want 1 (equal value)", runs)
	}

	// Mixed dynamic types must not panic in the comparison.
	s.Set(1)
	Flush()
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestSignalWithEquals(t *testing.T) {
	defer Reset()

	s := NewSignal(1).WithEquals(func(a, b int) bool { return a%2 == b%2 })
	runs := 0
	dispose := Watch(func() {
		s.Get()
		runs++
	})
	defer dispose()

	s.Set(3)
	Flush()
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	s.Set(4)
	Flush()
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestIsCellAndUnwrap(t *testing.T) {
	s := NewSignal("x")
	if !IsCell(s) {
		t.Error("IsCell(signal) = false")
	}
	if IsCell("x") {
		t.Error("IsCell(string) = true")
	}
	if Unwrap(s) != "x" || Unwrap(5) != 5 {
		t.Error("Unwrap did not return the underlying values")
	}
}

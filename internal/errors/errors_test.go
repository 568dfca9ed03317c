package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "expression error",
			code:    "E201",
			wantMsg: "Expression evaluation failed",
			wantCat: CategoryExpression,
		},
		{
			name:    "directive error",
			code:    "E210",
			wantMsg: "Directive used on the wrong node kind",
			wantCat: CategoryDirective,
		},
		{
			name:    "registry error",
			code:    "E221",
			wantMsg: "Structural component has no template",
			wantCat: CategoryRegistry,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "file %q not found", "way.json")
	if err.Message != `file "way.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want %q", err.Category, CategoryConfig)
	}
}

func TestErrorString(t *testing.T) {
	err := New("E202")
	if got, want := err.Error(), "E202: Expression syntax error"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E201").Wrap(stderrors.New("boom"))
	if got, want := wrapped.Error(), "E201: Expression evaluation failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &Error{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestUnwrapAndHasCode(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New("E120").Wrap(New("E141").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the root cause")
	}
	if !HasCode(err, "E120") {
		t.Error("HasCode(E120) = false")
	}
	if !HasCode(err, "E141") {
		t.Error("HasCode(E141) = false for nested error")
	}
	if HasCode(err, "E201") {
		t.Error("HasCode(E201) = true, want false")
	}
	if HasCode(cause, "E120") {
		t.Error("HasCode on a plain error should be false")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E201") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E213")
	if got := FromError(orig, "E201"); got != orig {
		t.Error("FromError should return an existing *Error unchanged")
	}

	got := FromError(stderrors.New("x"), "E201")
	if got.Code != "E201" || got.Wrapped == nil {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E202").
		WithLocation("count +", 0, 7).
		WithSuggestion("Complete the expression")

	out := err.Format()
	for _, want := range []string{
		"ERROR E202: Expression syntax error",
		`"count +" at column 7`,
		"count +",
		"       ^",
		"Hint: Complete the expression",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E211").WithLocation("item of list", 0, 5)
	got := err.FormatCompact()
	want := `E211: Invalid x-for expression ("item of list" at column 5)`
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("E230"); !ok {
		t.Error("E230 should be registered")
	}
	if _, ok := Lookup("E000"); ok {
		t.Error("E000 should not be registered")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b bytes.Buffer
	Fprint(&b, fmt.Errorf("load: %w", New("E141").WithDetail("No way.json")))
	if !strings.Contains(b.String(), "ERROR E141: Configuration file not found") {
		t.Errorf("coded error output = %q", b.String())
	}

	b.Reset()
	Fprint(&b, stderrors.New("plain failure"))
	if got := b.String(); got != "\nERROR: plain failure\n\n" {
		t.Errorf("plain error output = %q", got)
	}
}

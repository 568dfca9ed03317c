package form

import (
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		v     Validator
		value any
		ok    bool
	}{
		{"required empty", Required(""), "", false},
		{"required blank", Required(""), "   ", false},
		{"required nil", Required(""), nil, false},
		{"required zero", Required(""), 0, true},
		{"required text", Required(""), "x", true},
		{"minlength short", MinLength(3, ""), "ab", false},
		{"minlength exact", MinLength(3, ""), "abc", true},
		{"minlength empty", MinLength(3, ""), "", true},
		{"minlength runes", MinLength(3, ""), "héé", true},
		{"maxlength over", MaxLength(5, ""), "abcdef", false},
		{"maxlength at", MaxLength(5, ""), "abcde", true},
		{"pattern", Pattern(`^\d+$`, ""), "12a", false},
		{"email ok", Email(""), "a@b.io", true},
		{"email bad", Email(""), "a@b", false},
		{"url ok", URL(""), "https://example.com/x", true},
		{"url relative", URL(""), "/x", false},
		{"uuid ok", UUID(""), "123e4567-e89b-12d3-a456-426614174000", true},
		{"uuid bad", UUID(""), "123", false},
		{"alpha", Alpha(""), "abc1", false},
		{"alphanumeric", AlphaNumeric(""), "abc1", true},
		{"numeric", Numeric(""), "0123", true},
		{"oneof ok", OneOf([]string{"red", "blue"}, ""), "blue", true},
		{"oneof bad", OneOf([]string{"red", "blue"}, ""), "green", false},
		{"min", Min(5, ""), "4", false},
		{"min int", Min(5, ""), 5, true},
		{"max", Max(5, ""), 6.5, false},
		{"between", Between(1, 3, ""), "2", true},
		{"between nan", Between(1, 3, ""), "two", false},
		{"positive", Positive(""), -1, false},
		{"positive empty", Positive(""), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate(tt.value)
			if (err == nil) != tt.ok {
				t.Errorf("Validate(%v) = %v, want ok=%v", tt.value, err, tt.ok)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	if r := Check(nil, "anything"); !r.Success {
		t.Error("nil validator should pass")
	}
	r := Check(MinLength(4, ""), "ab")
	if r.Success || r.Message != "Must be at least 4 characters" {
		t.Errorf("Check = %+v", r)
	}
	r = Check(Custom(func(any) error { return ValidationError{} }), "x")
	if r.Message != DefaultMessage {
		t.Errorf("empty message = %q", r.Message)
	}
}

func TestChainFirstFailureWins(t *testing.T) {
	v := Chain(Required("need it"), MinLength(4, "too short"))
	if got := Check(v, "").Message; got != "need it" {
		t.Errorf("empty: %q", got)
	}
	if got := Check(v, "ab").Message; got != "too short" {
		t.Errorf("short: %q", got)
	}
	if !Check(v, "abcd").Success {
		t.Error("abcd should pass")
	}
}

func TestRules(t *testing.T) {
	v, err := Rules("required, minlength=4, oneof=abcd|efgh")
	if err != nil {
		t.Fatal(err)
	}
	for value, ok := range map[string]bool{"": false, "ab": false, "abcd": true, "wxyz": false} {
		if got := Check(v, value).Success; got != ok {
			t.Errorf("%q: success = %v, want %v", value, got, ok)
		}
	}

	for _, bad := range []string{"minlength=x", "nope", "pattern=("} {
		if _, err := Rules(bad); err == nil {
			t.Errorf("Rules(%q) should fail", bad)
		}
	}
}

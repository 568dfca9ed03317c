package form

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Validator checks a single field value.
type Validator interface {
	// Validate returns nil if value is valid, or an error whose message
	// is shown to the user.
	Validate(value any) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Result is the outcome of a single check.
type Result struct {
	Success bool
	Message string
}

// DefaultMessage is reported when a validator fails without a message.
const DefaultMessage = "Invalid value"

// Check runs v against value.
func Check(v Validator, value any) Result {
	if v == nil {
		return Result{Success: true}
	}
	err := v.Validate(value)
	if err == nil {
		return Result{Success: true}
	}
	msg := err.Error()
	if msg == "" {
		msg = DefaultMessage
	}
	return Result{Message: msg}
}

// Chain runs validators in order; the first failure wins.
func Chain(vs ...Validator) Validator {
	return ValidatorFunc(func(value any) error {
		for _, v := range vs {
			if v == nil {
				continue
			}
			if err := v.Validate(value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Custom creates a validator from a function.
func Custom(fn func(value any) error) Validator {
	return ValidatorFunc(fn)
}

// text builds a validator over the string form of a value. Empty values
// pass; Required handles them.
func text(msg string, ok func(s string) bool) Validator {
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" || ok(s) {
			return nil
		}
		return ValidationError{Message: msg}
	})
}

// number builds a validator over the numeric form of a value.
func number(msg string, ok func(f float64) bool) Validator {
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		f, valid := toFloat64(value)
		if valid && ok(f) {
			return nil
		}
		return ValidationError{Message: msg}
	})
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}

// ----------------------------------------------------------------------------
// String Validators
// ----------------------------------------------------------------------------

// Required validates that the value is non-empty.
func Required(msg string) Validator {
	msg = orDefault(msg, "This field is required")
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters.
func MinLength(n int, msg string) Validator {
	msg = orDefault(msg, fmt.Sprintf("Must be at least %d characters", n))
	return text(msg, func(s string) bool { return len([]rune(s)) >= n })
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	msg = orDefault(msg, fmt.Sprintf("Must be at most %d characters", n))
	return text(msg, func(s string) bool { return len([]rune(s)) <= n })
}

// Pattern validates that a string matches the regular expression.
func Pattern(pattern string, msg string) Validator {
	re := regexp.MustCompile(pattern)
	return text(orDefault(msg, "Invalid format"), re.MatchString)
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	uuidPattern  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Email validates that the value looks like an email address.
func Email(msg string) Validator {
	return text(orDefault(msg, "Invalid email address"), emailPattern.MatchString)
}

// URL validates that the value is an absolute URL.
func URL(msg string) Validator {
	return text(orDefault(msg, "Invalid URL"), func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// UUID validates that the value is a UUID.
func UUID(msg string) Validator {
	return text(orDefault(msg, "Invalid UUID"), uuidPattern.MatchString)
}

// Alpha validates that the value contains only letters.
func Alpha(msg string) Validator {
	return text(orDefault(msg, "Must contain only letters"), func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
	})
}

// AlphaNumeric validates that the value contains only letters and digits.
func AlphaNumeric(msg string) Validator {
	return text(orDefault(msg, "Must contain only letters and numbers"), func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) < 0
	})
}

// Numeric validates that the value contains only digits.
func Numeric(msg string) Validator {
	return text(orDefault(msg, "Must contain only numbers"), func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	})
}

// OneOf validates that the value is one of the allowed strings.
func OneOf(allowed []string, msg string) Validator {
	msg = orDefault(msg, "Must be one of: "+strings.Join(allowed, ", "))
	return text(msg, func(s string) bool { return slices.Contains(allowed, s) })
}

// ----------------------------------------------------------------------------
// Numeric Validators
// ----------------------------------------------------------------------------

// Min validates that a numeric value is >= n.
func Min(n float64, msg string) Validator {
	return number(orDefault(msg, fmt.Sprintf("Must be at least %v", n)), func(f float64) bool { return f >= n })
}

// Max validates that a numeric value is <= n.
func Max(n float64, msg string) Validator {
	return number(orDefault(msg, fmt.Sprintf("Must be at most %v", n)), func(f float64) bool { return f <= n })
}

// Between validates that a numeric value is within [lo, hi].
func Between(lo, hi float64, msg string) Validator {
	msg = orDefault(msg, fmt.Sprintf("Must be between %v and %v", lo, hi))
	return number(msg, func(f float64) bool { return f >= lo && f <= hi })
}

// Positive validates that a numeric value is > 0.
func Positive(msg string) Validator {
	return number(orDefault(msg, "Must be positive"), func(f float64) bool { return f > 0 })
}

// ----------------------------------------------------------------------------
// Helper Functions
// ----------------------------------------------------------------------------

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

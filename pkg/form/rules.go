package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rules parses a comma-separated rule list such as
// "required,minlength=4,max=10" into a chained validator.
func Rules(list string) (Validator, error) {
	var vs []Validator
	for _, rule := range strings.Split(list, ",") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		name, arg, _ := strings.Cut(rule, "=")
		v, err := ruleValidator(name, arg)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return Chain(vs...), nil
}

// MustRules is like Rules but panics on error.
func MustRules(list string) Validator {
	v, err := Rules(list)
	if err != nil {
		panic(err)
	}
	return v
}

func ruleValidator(name, arg string) (Validator, error) {
	intArg := func() (int, error) {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return 0, fmt.Errorf("form: rule %s needs an integer, got %q", name, arg)
		}
		return n, nil
	}
	floatArg := func() (float64, error) {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("form: rule %s needs a number, got %q", name, arg)
		}
		return f, nil
	}

	switch name {
	case "required":
		return Required(""), nil
	case "minlen", "minlength":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return MinLength(n, ""), nil
	case "maxlen", "maxlength":
		n, err := intArg()
		if err != nil {
			return nil, err
		}
		return MaxLength(n, ""), nil
	case "min":
		f, err := floatArg()
		if err != nil {
			return nil, err
		}
		return Min(f, ""), nil
	case "max":
		f, err := floatArg()
		if err != nil {
			return nil, err
		}
		return Max(f, ""), nil
	case "email":
		return Email(""), nil
	case "url":
		return URL(""), nil
	case "uuid":
		return UUID(""), nil
	case "alpha":
		return Alpha(""), nil
	case "alphanum", "alphanumeric":
		return AlphaNumeric(""), nil
	case "numeric":
		return Numeric(""), nil
	case "positive":
		return Positive(""), nil
	case "oneof":
		return OneOf(strings.Split(arg, "|"), ""), nil
	case "pattern", "regex":
		if _, err := regexp.Compile(arg); err != nil {
			return nil, fmt.Errorf("form: rule %s: %w", name, err)
		}
		return Pattern(arg, ""), nil
	default:
		return nil, fmt.Errorf("form: unknown rule %q", name)
	}
}

package expr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/way/pkg/reactive"
)

// globals are visible to every expression unless shadowed by Bindings.
var globals map[string]any

// listMutators are the list methods that replace their receiver.
var listMutators map[string]listMutator

func init() {
	globals = builtinGlobals()
	listMutators = builtinMutators()
}

func builtinGlobals() map[string]any {
	return map[string]any{
		"String": Func(func(args ...any) (any, error) {
			return ToString(reactive.Unwrap(arg(args, 0))), nil
		}),
		"Number": Func(func(args ...any) (any, error) {
			return ToNumber(reactive.Unwrap(arg(args, 0))), nil
		}),
		"Boolean": Func(func(args ...any) (any, error) {
			return Truthy(arg(args, 0)), nil
		}),
		"parseInt": Func(func(args ...any) (any, error) {
			s := strings.TrimSpace(ToString(reactive.Unwrap(arg(args, 0))))
			end := 0
			for end < len(s) && (isDigit(s[end]) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
				end++
			}
			n, err := strconv.Atoi(s[:end])
			if err != nil {
				return math.NaN(), nil
			}
			return n, nil
		}),
		"parseFloat": Func(func(args ...any) (any, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(ToString(reactive.Unwrap(arg(args, 0)))), 64)
			if err != nil {
				return math.NaN(), nil
			}
			return f, nil
		}),
		"isNaN": Func(func(args ...any) (any, error) {
			n := ToNumber(reactive.Unwrap(arg(args, 0)))
			f, ok := n.(float64)
			return ok && math.IsNaN(f), nil
		}),
		"Math":    mathObject(),
		"JSON":    jsonObject(),
		"Object":  objectObject(),
		"Array":   arrayObject(),
		"console": consoleObject(),
	}
}

func fn1(f func(float64) float64) Func {
	return func(args ...any) (any, error) {
		return normalize(f(toFloat(ToNumber(reactive.Unwrap(arg(args, 0)))))), nil
	}
}

// normalize turns integral floats produced by Math functions into ints.
func normalize(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

func mathObject() *Object {
	m := NewObject()
	m.Set("PI", math.Pi)
	m.Set("floor", fn1(math.Floor))
	m.Set("ceil", fn1(math.Ceil))
	m.Set("round", fn1(func(f float64) float64 { return math.Floor(f + 0.5) }))
	m.Set("trunc", fn1(math.Trunc))
	m.Set("abs", fn1(math.Abs))
	m.Set("sqrt", fn1(math.Sqrt))
	m.Set("sign", fn1(func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		}
		return f
	}))
	m.Set("pow", Func(func(args ...any) (any, error) {
		return arith(POW, ToNumber(reactive.Unwrap(arg(args, 0))), ToNumber(reactive.Unwrap(arg(args, 1)))), nil
	}))
	extreme := func(less bool, empty float64) Func {
		return func(args ...any) (any, error) {
			if len(args) == 0 {
				return empty, nil
			}
			best := ToNumber(reactive.Unwrap(args[0]))
			for _, a := range args[1:] {
				n := ToNumber(reactive.Unwrap(a))
				if compare(LT, n, best) == less {
					best = n
				}
			}
			return best, nil
		}
	}
	m.Set("min", extreme(true, math.Inf(1)))
	m.Set("max", extreme(false, math.Inf(-1)))
	return m
}

func jsonObject() *Object {
	j := NewObject()
	j.Set("stringify", Func(func(args ...any) (any, error) {
		v := Plain(arg(args, 0))
		if indent := reactive.Unwrap(arg(args, 2)); indent != nil {
			prefix := ToString(indent)
			if n, ok := number(indent); ok {
				prefix = strings.Repeat(" ", int(toFloat(n)))
			}
			b, err := json.MarshalIndent(v, "", prefix)
			return string(b), err
		}
		b, err := json.Marshal(v)
		return string(b), err
	}))
	j.Set("parse", Func(func(args ...any) (any, error) {
		var v any
		if err := json.Unmarshal([]byte(ToString(reactive.Unwrap(arg(args, 0)))), &v); err != nil {
			return nil, err
		}
		return fromJSON(v), nil
	}))
	return j
}

// fromJSON converts decoded JSON into expression values.
func fromJSON(v any) any {
	switch x := v.(type) {
	case map[string]any:
		o := ObjectFromMap(x)
		for _, k := range o.Keys() {
			e, _ := o.Get(k)
			o.Set(k, fromJSON(e))
		}
		return o
	case []any:
		for i, e := range x {
			x[i] = fromJSON(e)
		}
		return x
	case float64:
		return normalize(x)
	}
	return v
}

func objectObject() *Object {
	o := NewObject()
	entries := func(v any) ([]string, []any) {
		switch x := reactive.Unwrap(v).(type) {
		case *Object:
			keys := x.Keys()
			vals := make([]any, len(keys))
			for i, k := range keys {
				vals[i], _ = x.Get(k)
			}
			return keys, vals
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			vals := make([]any, len(keys))
			for i, k := range keys {
				vals[i] = x[k]
			}
			return keys, vals
		}
		return nil, nil
	}
	o.Set("keys", Func(func(args ...any) (any, error) {
		keys, _ := entries(arg(args, 0))
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil
	}))
	o.Set("values", Func(func(args ...any) (any, error) {
		_, vals := entries(arg(args, 0))
		return append([]any{}, vals...), nil
	}))
	o.Set("entries", Func(func(args ...any) (any, error) {
		keys, vals := entries(arg(args, 0))
		out := make([]any, len(keys))
		for i := range keys {
			out[i] = []any{keys[i], vals[i]}
		}
		return out, nil
	}))
	o.Set("assign", Func(func(args ...any) (any, error) {
		target, ok := reactive.Unwrap(arg(args, 0)).(*Object)
		if !ok {
			return nil, fmt.Errorf("Object.assign target must be an object")
		}
		for _, src := range args[1:] {
			keys, vals := entries(src)
			for i, k := range keys {
				target.Set(k, vals[i])
			}
		}
		return target, nil
	}))
	return o
}

func arrayObject() *Object {
	a := NewObject()
	a.Set("isArray", Func(func(args ...any) (any, error) {
		_, ok := AsList(reactive.Unwrap(arg(args, 0)))
		return ok, nil
	}))
	return a
}

func consoleObject() *Object {
	c := NewObject()
	logAt := func(level slog.Level) Func {
		return func(args ...any) (any, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = ToString(reactive.Unwrap(a))
			}
			slog.Default().Log(context.Background(), level, strings.Join(parts, " "), "source", "expression")
			return nil, nil
		}
	}
	c.Set("log", logAt(slog.LevelInfo))
	c.Set("info", logAt(slog.LevelInfo))
	c.Set("warn", logAt(slog.LevelWarn))
	c.Set("error", logAt(slog.LevelError))
	return c
}

// ───────────────────────── list methods ─────────────────────────

func callback(f any, item any, i int, list []any) (any, error) {
	return callValue(f, nil, []any{item, i, list})
}

// relIndex resolves a possibly negative index against n.
func relIndex(v any, n int, def int) int {
	if v == nil {
		return def
	}
	i := int(toFloat(ToNumber(reactive.Unwrap(v))))
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

func listMember(list []any, name string) any {
	switch name {
	case "length":
		return len(list)
	case "filter":
		return Func(func(args ...any) (any, error) {
			out := []any{}
			for i, e := range list {
				ok, err := callback(arg(args, 0), e, i, list)
				if err != nil {
					return nil, err
				}
				if Truthy(ok) {
					out = append(out, e)
				}
			}
			return out, nil
		})
	case "map":
		return Func(func(args ...any) (any, error) {
			out := make([]any, len(list))
			for i, e := range list {
				v, err := callback(arg(args, 0), e, i, list)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		})
	case "forEach":
		return Func(func(args ...any) (any, error) {
			for i, e := range list {
				if _, err := callback(arg(args, 0), e, i, list); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
	case "find", "findIndex":
		return Func(func(args ...any) (any, error) {
			for i, e := range list {
				ok, err := callback(arg(args, 0), e, i, list)
				if err != nil {
					return nil, err
				}
				if Truthy(ok) {
					if name == "findIndex" {
						return i, nil
					}
					return e, nil
				}
			}
			if name == "findIndex" {
				return -1, nil
			}
			return nil, nil
		})
	case "some", "every":
		return Func(func(args ...any) (any, error) {
			want := name == "some"
			for i, e := range list {
				ok, err := callback(arg(args, 0), e, i, list)
				if err != nil {
					return nil, err
				}
				if Truthy(ok) == want {
					return want, nil
				}
			}
			return !want, nil
		})
	case "reduce":
		return Func(func(args ...any) (any, error) {
			acc, start := arg(args, 1), 0
			if len(args) < 2 {
				if len(list) == 0 {
					return nil, fmt.Errorf("reduce of empty list with no initial value")
				}
				acc, start = list[0], 1
			}
			for i := start; i < len(list); i++ {
				v, err := callValue(arg(args, 0), nil, []any{acc, list[i], i, list})
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		})
	case "includes", "indexOf":
		return Func(func(args ...any) (any, error) {
			for i, e := range list {
				if StrictEqual(e, arg(args, 0)) {
					if name == "includes" {
						return true, nil
					}
					return i, nil
				}
			}
			if name == "includes" {
				return false, nil
			}
			return -1, nil
		})
	case "join":
		return Func(func(args ...any) (any, error) {
			sep := ","
			if s := reactive.Unwrap(arg(args, 0)); s != nil {
				sep = ToString(s)
			}
			parts := make([]string, len(list))
			for i, e := range list {
				parts[i] = ToString(reactive.Unwrap(e))
			}
			return strings.Join(parts, sep), nil
		})
	case "slice":
		return Func(func(args ...any) (any, error) {
			from := relIndex(arg(args, 0), len(list), 0)
			to := relIndex(arg(args, 1), len(list), len(list))
			if to < from {
				return []any{}, nil
			}
			return append([]any{}, list[from:to]...), nil
		})
	case "concat":
		return Func(func(args ...any) (any, error) {
			out := append([]any{}, list...)
			for _, a := range args {
				if more, ok := AsList(reactive.Unwrap(a)); ok {
					out = append(out, more...)
				} else {
					out = append(out, a)
				}
			}
			return out, nil
		})
	case "at":
		return Func(func(args ...any) (any, error) {
			i := int(toFloat(ToNumber(reactive.Unwrap(arg(args, 0)))))
			if i < 0 {
				i += len(list)
			}
			if i < 0 || i >= len(list) {
				return nil, nil
			}
			return list[i], nil
		})
	}
	return nil
}

// listMutator returns the updated list and the method's result.
type listMutator func(list []any, args []any) ([]any, any, error)

func builtinMutators() map[string]listMutator {
	return map[string]listMutator{
		"push": func(list, args []any) ([]any, any, error) {
			list = append(list, args...)
			return list, len(list), nil
		},
		"pop": func(list, _ []any) ([]any, any, error) {
			if len(list) == 0 {
				return list, nil, nil
			}
			return list[:len(list)-1], list[len(list)-1], nil
		},
		"shift": func(list, _ []any) ([]any, any, error) {
			if len(list) == 0 {
				return list, nil, nil
			}
			return list[1:], list[0], nil
		},
		"unshift": func(list, args []any) ([]any, any, error) {
			list = append(append([]any{}, args...), list...)
			return list, len(list), nil
		},
		"splice": func(list, args []any) ([]any, any, error) {
			start := relIndex(arg(args, 0), len(list), 0)
			count := len(list) - start
			if len(args) > 1 {
				count = max(0, min(int(toFloat(ToNumber(reactive.Unwrap(args[1])))), len(list)-start))
			}
			removed := append([]any{}, list[start:start+count]...)
			var insert []any
			if len(args) > 2 {
				insert = args[2:]
			}
			out := append(append(append([]any{}, list[:start]...), insert...), list[start+count:]...)
			return out, removed, nil
		},
		"reverse": func(list, _ []any) ([]any, any, error) {
			for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
				list[i], list[j] = list[j], list[i]
			}
			return list, list, nil
		},
		"sort": func(list, args []any) ([]any, any, error) {
			var err error
			cmp := arg(args, 0)
			sort.SliceStable(list, func(i, j int) bool {
				if err != nil {
					return false
				}
				if cmp == nil {
					return ToString(reactive.Unwrap(list[i])) < ToString(reactive.Unwrap(list[j]))
				}
				r, e := callValue(cmp, nil, []any{list[i], list[j]})
				if e != nil {
					err = e
					return false
				}
				return compare(LT, ToNumber(reactive.Unwrap(r)), 0)
			})
			return list, list, err
		},
	}
}

// ───────────────────────── string methods ─────────────────────────

func stringMember(s string, name string) any {
	str := func(args []any, i int) string { return ToString(reactive.Unwrap(arg(args, i))) }
	switch name {
	case "length":
		return len([]rune(s))
	case "toUpperCase":
		return Func(func(...any) (any, error) { return strings.ToUpper(s), nil })
	case "toLowerCase":
		return Func(func(...any) (any, error) { return strings.ToLower(s), nil })
	case "trim":
		return Func(func(...any) (any, error) { return strings.TrimSpace(s), nil })
	case "includes":
		return Func(func(args ...any) (any, error) { return strings.Contains(s, str(args, 0)), nil })
	case "startsWith":
		return Func(func(args ...any) (any, error) { return strings.HasPrefix(s, str(args, 0)), nil })
	case "endsWith":
		return Func(func(args ...any) (any, error) { return strings.HasSuffix(s, str(args, 0)), nil })
	case "indexOf":
		return Func(func(args ...any) (any, error) {
			i := strings.Index(s, str(args, 0))
			if i < 0 {
				return -1, nil
			}
			return len([]rune(s[:i])), nil
		})
	case "split":
		return Func(func(args ...any) (any, error) {
			parts := strings.Split(s, str(args, 0))
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		})
	case "slice", "substring":
		return Func(func(args ...any) (any, error) {
			r := []rune(s)
			from := relIndex(arg(args, 0), len(r), 0)
			to := relIndex(arg(args, 1), len(r), len(r))
			if to < from {
				if name == "slice" {
					return "", nil
				}
				from, to = to, from
			}
			return string(r[from:to]), nil
		})
	case "replace":
		return Func(func(args ...any) (any, error) { return strings.Replace(s, str(args, 0), str(args, 1), 1), nil })
	case "replaceAll":
		return Func(func(args ...any) (any, error) { return strings.ReplaceAll(s, str(args, 0), str(args, 1)), nil })
	case "repeat":
		return Func(func(args ...any) (any, error) {
			n := int(toFloat(ToNumber(reactive.Unwrap(arg(args, 0)))))
			if n < 0 {
				return nil, fmt.Errorf("invalid repeat count %d", n)
			}
			return strings.Repeat(s, n), nil
		})
	case "charAt":
		return Func(func(args ...any) (any, error) {
			r := []rune(s)
			i := int(toFloat(ToNumber(reactive.Unwrap(arg(args, 0)))))
			if i < 0 || i >= len(r) {
				return "", nil
			}
			return string(r[i]), nil
		})
	}
	return nil
}


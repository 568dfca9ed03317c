package expr

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/way/pkg/reactive"
)

// Object is an insertion-ordered string-keyed map. Object literals
// evaluate to *Object.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// ObjectFromMap copies m into a new object with keys in sorted order.
func ObjectFromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

// Set stores value under key, appending key if it is new.
func (o *Object) Set(key string, value any) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, value any) bool) {
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Map returns a shallow copy as a Go map.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, len(o.keys))
	for k, v := range o.vals {
		m[k] = v
	}
	return m
}

// String implements fmt.Stringer.
func (o *Object) String() string {
	return "[object Object]"
}

// MarshalJSON encodes the object with its keys in order. Cells are
// replaced by their values.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(Plain(o.vals[k]))
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Plain replaces every cell reachable through lists and maps by its
// current value. Objects encode their own cells when marshalled and are
// returned as is.
func Plain(v any) any {
	switch x := v.(type) {
	case reactive.Cell:
		return Plain(x.GetAny())
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Plain(e)
		}
		return out
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

// Func is a host function callable from expressions.
type Func func(args ...any) (any, error)

// Lambda is an arrow function value. It closes over the Bindings it was
// created in and may carry a receiver bound with Bind.
type Lambda struct {
	node *Arrow
	env  Bindings

	// this is set by Bind; lexical is the receiver at creation time.
	this    any
	lexical any
}

// Bind returns a copy of f whose receiver is this. When the receiver is an
// *Object its properties are also visible as free identifiers inside the
// body.
func (f *Lambda) Bind(this any) *Lambda {
	c := *f
	c.this = this
	return &c
}

// Receiver returns the bound receiver, if any.
func (f *Lambda) Receiver() any {
	return f.this
}

// Arity returns the number of declared parameters, not counting a rest
// parameter.
func (f *Lambda) Arity() int {
	return len(f.node.Params)
}

// Call invokes the function.
func (f *Lambda) Call(args ...any) (any, error) {
	return f.call(f.this, args)
}

// String implements fmt.Stringer.
func (f *Lambda) String() string {
	return "function(" + strings.Join(f.node.Params, ", ") + ")"
}

// ───────────────────────── coercions ─────────────────────────

// Truthy reports the truthiness of v: nil, false, 0, NaN and "" are
// false, everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case reactive.Cell:
		return Truthy(x.GetAny())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return !rv.IsNil()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	}
	return true
}

// ToString converts v to its display string. nil is the empty string.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case reactive.Cell:
		return ToString(x.GetAny())
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return formatFloat(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		return ToString(toList(rv))
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TypeOf returns the typeof name of v.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case bool:
		return "boolean"
	case string:
		return "string"
	case *Lambda, Func:
		return "function"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return "function"
	}
	return "object"
}

// number returns v as an int or float64 if it is a Go numeric value.
func number(v any) (any, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return x, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return nil, false
}

// ToNumber coerces v to an int or float64. Values with no numeric reading
// become NaN.
func ToNumber(v any) any {
	if n, ok := number(v); ok {
		return n
	}
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case reactive.Cell:
		return ToNumber(x.GetAny())
	}
	return math.NaN()
}

func toFloat(n any) float64 {
	if i, ok := n.(int); ok {
		return float64(i)
	}
	return n.(float64)
}

// StrictEqual implements ===. Numbers compare by value regardless of Go
// type; reference values compare by identity.
func StrictEqual(a, b any) bool {
	a, b = reactive.Unwrap(a), reactive.Unwrap(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	na, aok := number(a)
	nb, bok := number(b)
	if aok && bok {
		return numEqual(na, nb)
	}
	if aok != bok {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		switch ta.Kind() {
		case reflect.Struct, reflect.Array, reflect.Interface:
			return reflect.DeepEqual(a, b)
		}
		return a == b
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return ra.Len() == rb.Len() && (ra.Len() == 0 || ra.Pointer() == rb.Pointer())
	case reflect.Map, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

// LooseEqual implements ==: like StrictEqual, but numbers, numeric strings
// and booleans compare by numeric value.
func LooseEqual(a, b any) bool {
	a, b = reactive.Unwrap(a), reactive.Unwrap(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	_, aNum := number(a)
	_, bNum := number(b)
	_, aStr := a.(string)
	_, bStr := b.(string)
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if (aNum || aStr || aBool) && (bNum || bStr || bBool) && !(aStr && bStr) && !(aBool && bBool) {
		return numEqual(ToNumber(a), ToNumber(b))
	}
	return StrictEqual(a, b)
}

func numEqual(a, b any) bool {
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	if aInt && bInt {
		return ai == bi
	}
	return toFloat(a) == toFloat(b)
}

// toList converts any Go slice or array to []any.
func toList(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// AsList returns v as a []any when it is a slice or array.
func AsList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case nil, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return toList(rv), true
	}
	return nil, false
}

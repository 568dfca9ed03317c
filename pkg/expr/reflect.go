package expr

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/vango-dev/way/pkg/reactive"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Call invokes a function value with args: a *Lambda, a Func, or any Go
// function. Arguments are converted to the Go parameter types.
func Call(fn any, args ...any) (any, error) {
	return callValue(fn, nil, args)
}

func callValue(fn any, recv any, args []any) (any, error) {
	switch f := fn.(type) {
	case *Lambda:
		return f.call(recv, args)
	case Func:
		return f(args...)
	case func(...any) (any, error):
		return f(args...)
	case func():
		f()
		return nil, nil
	case func() any:
		return f(), nil
	case func(any):
		f(reactive.Unwrap(arg(args, 0)))
		return nil, nil
	case func(any) any:
		return f(reactive.Unwrap(arg(args, 0))), nil
	case nil:
		return nil, fmt.Errorf("null is not a function")
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", TypeOf(fn))
	}
	return reflectCall(rv, args)
}

func reflectCall(rv reflect.Value, args []any) (any, error) {
	t := rv.Type()
	n := t.NumIn()
	in := make([]reflect.Value, 0, n)
	for i := 0; i < n; i++ {
		if t.IsVariadic() && i == n-1 {
			et := t.In(i).Elem()
			for j := i; j < len(args); j++ {
				v, err := convertArg(args[j], et)
				if err != nil {
					return nil, fmt.Errorf("argument %d: %w", j+1, err)
				}
				in = append(in, v)
			}
			break
		}
		v, err := convertArg(arg(args, i), t.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}

	out := rv.Call(in)
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errorType) {
		if err, _ := last.Interface().(error); err != nil {
			return nil, err
		}
		if len(out) == 1 {
			return nil, nil
		}
	}
	return out[0].Interface(), nil
}

// convertArg converts an expression value to a Go parameter type. Cells
// are unwrapped unless the parameter asks for the cell itself.
func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if c, ok := a.(reactive.Cell); ok {
		ct := reflect.TypeOf(a)
		if ct.AssignableTo(t) && !(t.Kind() == reflect.Interface && t.NumMethod() == 0) {
			return reflect.ValueOf(a), nil
		}
		a = c.GetAny()
	}
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	switch {
	case isNumeric(v.Kind()) && isNumeric(t.Kind()):
		return v.Convert(t), nil
	case v.Kind() == reflect.String && isNumeric(t.Kind()):
		n := reflect.ValueOf(ToNumber(a))
		return n.Convert(t), nil
	case t.Kind() == reflect.String:
		return reflect.ValueOf(ToString(a)).Convert(t), nil
	case t.Kind() == reflect.Bool:
		return reflect.ValueOf(Truthy(a)).Convert(t), nil
	case t.Kind() == reflect.Slice:
		if list, ok := AsList(a); ok {
			out := reflect.MakeSlice(t, len(list), len(list))
			for i, e := range list {
				ev, err := convertArg(e, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String:
		if obj, ok := a.(*Object); ok {
			out := reflect.MakeMapWithSize(t, obj.Len())
			var err error
			obj.Range(func(k string, e any) bool {
				var ev reflect.Value
				ev, err = convertArg(e, t.Elem())
				if err != nil {
					return false
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
				return true
			})
			if err != nil {
				return reflect.Value{}, err
			}
			return out, nil
		}
	case v.Kind() == t.Kind() && v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// exported returns name with its first letter upper-cased.
func exported(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// structField finds a field by its Go name, its lower-camel spelling or its
// json tag.
func structField(sv reflect.Value, name string) reflect.Value {
	if f := sv.FieldByName(exported(name)); f.IsValid() {
		return f
	}
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == name {
			return sv.Field(i)
		}
	}
	return reflect.Value{}
}

// reflectMember resolves name on an arbitrary Go value: slices, string
// keyed maps, struct fields and methods. Unknown names are nil.
func reflectMember(x any, name string) any {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return listMember(toList(rv), name)
	case reflect.String:
		return stringMember(rv.String(), name)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if v.IsValid() {
				return v.Interface()
			}
		}
		return nil
	}

	if m := rv.MethodByName(exported(name)); m.IsValid() {
		return m.Interface()
	}
	sv := rv
	for sv.Kind() == reflect.Pointer || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if sv.Kind() == reflect.Struct {
		if f := structField(sv, name); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	return nil
}

package scope

import (
	"github.com/vango-dev/way/pkg/expr"
	"github.com/vango-dev/way/pkg/reactive"
)

// MakeReactive converts a plain data object into its reactive form:
// primitives and lists become *reactive.Signal[any], nested objects are
// converted recursively, functions are bound to the resulting object and
// existing cells are kept as they are.
func MakeReactive(v any) any {
	switch x := v.(type) {
	case reactive.Cell:
		return x
	case *expr.Object:
		return reactiveObject(x)
	case map[string]any:
		return reactiveObject(expr.ObjectFromMap(x))
	}
	return reactive.NewSignal[any](v)
}

// ReactiveObject is MakeReactive for an object. Lambdas found in it are
// bound with the new object as receiver.
func ReactiveObject(obj *expr.Object) *expr.Object {
	return reactiveObject(obj)
}

func reactiveObject(obj *expr.Object) *expr.Object {
	out := expr.NewObject()
	var lambdas []string
	obj.Range(func(k string, v any) bool {
		switch x := v.(type) {
		case *expr.Lambda:
			out.Set(k, x)
			lambdas = append(lambdas, k)
		case *expr.Object, map[string]any:
			out.Set(k, MakeReactive(x))
		case nil, bool, string, int, float64, []any:
			out.Set(k, reactive.NewSignal[any](x))
		default:
			if reactive.IsCell(x) || isFunc(x) {
				out.Set(k, x)
			} else {
				out.Set(k, reactive.NewSignal[any](x))
			}
		}
		return true
	})
	for _, k := range lambdas {
		f, _ := out.Get(k)
		out.Set(k, f.(*expr.Lambda).Bind(out))
	}
	return out
}

func isFunc(v any) bool {
	switch v.(type) {
	case expr.Func:
		return true
	}
	return expr.TypeOf(v) == "function"
}

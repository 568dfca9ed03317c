package expr

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/vango-dev/way/pkg/reactive"
)

// Bindings is the resolved symbol table an expression is evaluated
// against.
type Bindings interface {
	// Lookup returns the value bound to name.
	Lookup(name string) (any, bool)

	// Assign rebinds name. It returns false if the binding is read-only.
	Assign(name string, value any) bool
}

// Map is a Bindings backed by a Go map.
type Map map[string]any

// Lookup implements Bindings.
func (m Map) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Assign implements Bindings.
func (m Map) Assign(name string, value any) bool {
	if m == nil {
		return false
	}
	m[name] = value
	return true
}

// RuntimeError reports an evaluation failure at a byte offset.
type RuntimeError struct {
	Pos int
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// state is one activation: the bindings in scope and the receiver.
type state struct {
	b    Bindings
	this any
}

func (s *state) errorf(n Node, format string, args ...any) error {
	return &RuntimeError{Pos: n.pos(), Msg: fmt.Sprintf(format, args...)}
}

func (s *state) wrap(n Node, err error) error {
	if _, ok := err.(*RuntimeError); ok {
		return err
	}
	return &RuntimeError{Pos: n.pos(), Msg: "call failed", Err: err}
}

func (s *state) eval(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *Ident:
		return s.lookup(n)

	case *This:
		return s.this, nil

	case *ArrayLit:
		out := make([]any, 0, len(n.Elems))
		for _, e := range n.Elems {
			if sp, ok := e.(*Spread); ok {
				v, err := s.eval(sp.X)
				if err != nil {
					return nil, err
				}
				list, ok := AsList(reactive.Unwrap(v))
				if !ok {
					return nil, s.errorf(sp, "spread of non-list %s", TypeOf(v))
				}
				out = append(out, list...)
				continue
			}
			v, err := s.eval(e)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *ObjectLit:
		return s.object(n)

	case *Template:
		var b strings.Builder
		for i, str := range n.Strings {
			b.WriteString(str)
			if i < len(n.Exprs) {
				v, err := s.eval(n.Exprs[i])
				if err != nil {
					return nil, err
				}
				b.WriteString(ToString(reactive.Unwrap(v)))
			}
		}
		return b.String(), nil

	case *Unary:
		return s.unary(n)

	case *Binary:
		return s.binary(n)

	case *Conditional:
		test, err := s.eval(n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return s.eval(n.Then)
		}
		return s.eval(n.Else)

	case *Assign:
		return s.assignment(n)

	case *Update:
		cur, err := s.eval(n.Target)
		if err != nil {
			return nil, err
		}
		old := ToNumber(reactive.Unwrap(cur))
		op := PLUS
		if n.Op == DEC {
			op = MINUS
		}
		next := arith(op, old, 1)
		if err := s.assign(n.Target, next); err != nil {
			return nil, err
		}
		if n.Prefix {
			return next, nil
		}
		return old, nil

	case *Member:
		x, err := s.eval(n.X)
		if err != nil {
			return nil, err
		}
		if x == nil && n.Optional {
			return nil, nil
		}
		return s.member(n, x, n.Name)

	case *Index:
		x, err := s.eval(n.X)
		if err != nil {
			return nil, err
		}
		if x == nil && n.Optional {
			return nil, nil
		}
		k, err := s.eval(n.Index)
		if err != nil {
			return nil, err
		}
		return s.index(n, x, reactive.Unwrap(k))

	case *CallExpr:
		return s.call(n)

	case *Arrow:
		return &Lambda{node: n, env: s.b, lexical: s.this}, nil

	case *Sequence:
		return s.block(n, true)

	case *Return:
		if n.X == nil {
			return nil, nil
		}
		return s.eval(n.X)

	case *Spread:
		return nil, s.errorf(n, "unexpected spread")
	}
	return nil, fmt.Errorf("expr: unknown node %T", n)
}

// block runs statements in order. A Return ends the block with its value;
// otherwise the block's value is the last statement's when implicit is set.
func (s *state) block(seq *Sequence, implicit bool) (any, error) {
	var last any
	for _, stmt := range seq.Stmts {
		if r, ok := stmt.(*Return); ok {
			if r.X == nil {
				return nil, nil
			}
			return s.eval(r.X)
		}
		v, err := s.eval(stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	if implicit {
		return last, nil
	}
	return nil, nil
}

func (s *state) lookup(n *Ident) (any, error) {
	if v, ok := s.b.Lookup(n.Name); ok {
		return v, nil
	}
	if v, ok := globals[n.Name]; ok {
		return v, nil
	}
	return nil, s.errorf(n, "%s is not defined", n.Name)
}

func (s *state) object(n *ObjectLit) (any, error) {
	obj := NewObject()
	for _, p := range n.Props {
		v, err := s.eval(p.Value)
		if err != nil {
			return nil, err
		}
		if p.Spread {
			switch src := reactive.Unwrap(v).(type) {
			case nil:
			case *Object:
				src.Range(func(k string, v any) bool {
					obj.Set(k, v)
					return true
				})
			case map[string]any:
				ObjectFromMap(src).Range(func(k string, v any) bool {
					obj.Set(k, v)
					return true
				})
			default:
				return nil, s.errorf(p.Value, "spread of non-object %s", TypeOf(src))
			}
			continue
		}
		key := p.Key
		if p.Computed != nil {
			k, err := s.eval(p.Computed)
			if err != nil {
				return nil, err
			}
			key = ToString(reactive.Unwrap(k))
		}
		obj.Set(key, v)
	}
	return obj, nil
}

func (s *state) unary(n *Unary) (any, error) {
	if id, ok := n.X.(*Ident); ok && n.Op == TYPEOF {
		v, ok := s.b.Lookup(id.Name)
		if !ok {
			v, ok = globals[id.Name]
		}
		if !ok {
			return "undefined", nil
		}
		return TypeOf(reactive.Unwrap(v)), nil
	}
	v, err := s.eval(n.X)
	if err != nil {
		return nil, err
	}
	v = reactive.Unwrap(v)
	switch n.Op {
	case BANG:
		return !Truthy(v), nil
	case MINUS:
		switch x := ToNumber(v).(type) {
		case int:
			return -x, nil
		case float64:
			return -x, nil
		}
	case PLUS:
		return ToNumber(v), nil
	case TYPEOF:
		return TypeOf(v), nil
	}
	return nil, s.errorf(n, "bad unary operator %s", n.Op)
}

func (s *state) binary(n *Binary) (any, error) {
	l, err := s.eval(n.L)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case AND:
		if !Truthy(l) {
			return l, nil
		}
		return s.eval(n.R)
	case OR:
		if Truthy(l) {
			return l, nil
		}
		return s.eval(n.R)
	case NULLISH:
		if reactive.Unwrap(l) != nil {
			return l, nil
		}
		return s.eval(n.R)
	}
	r, err := s.eval(n.R)
	if err != nil {
		return nil, err
	}
	return binaryOp(n.Op, reactive.Unwrap(l), reactive.Unwrap(r)), nil
}

// binaryOp applies a non short-circuit operator to unwrapped operands.
func binaryOp(op TokenType, a, b any) any {
	switch op {
	case EQ:
		return LooseEqual(a, b)
	case NEQ:
		return !LooseEqual(a, b)
	case STRICTEQ:
		return StrictEqual(a, b)
	case STRICTNEQ:
		return !StrictEqual(a, b)
	case LT, LTE, GT, GTE:
		return compare(op, a, b)
	case PLUS:
		if concatenates(a) || concatenates(b) {
			return ToString(a) + ToString(b)
		}
	}
	return arith(op, ToNumber(a), ToNumber(b))
}

// concatenates reports whether + with v is string concatenation.
func concatenates(v any) bool {
	switch v.(type) {
	case nil, bool:
		return false
	case string:
		return true
	}
	_, isNum := number(v)
	return !isNum
}

func compare(op TokenType, a, b any) bool {
	as, aStr := a.(string)
	bs, bStr := b.(string)
	var c int
	if aStr && bStr {
		c = strings.Compare(as, bs)
	} else {
		x, y := ToNumber(a), ToNumber(b)
		xi, xInt := x.(int)
		yi, yInt := y.(int)
		if xInt && yInt {
			switch {
			case xi < yi:
				c = -1
			case xi > yi:
				c = 1
			}
		} else {
			xf, yf := toFloat(x), toFloat(y)
			if math.IsNaN(xf) || math.IsNaN(yf) {
				return false
			}
			switch {
			case xf < yf:
				c = -1
			case xf > yf:
				c = 1
			}
		}
	}
	switch op {
	case LT:
		return c < 0
	case LTE:
		return c <= 0
	case GT:
		return c > 0
	}
	return c >= 0
}

// arith applies an arithmetic operator to two numbers (int or float64).
// Integer operands stay integral except for inexact division and negative
// powers.
func arith(op TokenType, a, b any) any {
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	if aInt && bInt {
		switch op {
		case PLUS:
			return ai + bi
		case MINUS:
			return ai - bi
		case STAR:
			return ai * bi
		case PERCENT:
			if bi == 0 {
				return math.NaN()
			}
			return ai % bi
		case SLASH:
			if bi != 0 && ai%bi == 0 {
				return ai / bi
			}
		case POW:
			if bi >= 0 {
				r := 1
				for i := 0; i < bi; i++ {
					r *= ai
				}
				return r
			}
		}
	}
	fa, fb := toFloat(a), toFloat(b)
	switch op {
	case PLUS:
		return fa + fb
	case MINUS:
		return fa - fb
	case STAR:
		return fa * fb
	case SLASH:
		return fa / fb
	case PERCENT:
		return math.Mod(fa, fb)
	case POW:
		return math.Pow(fa, fb)
	}
	return math.NaN()
}

var compoundOps = map[TokenType]TokenType{
	PLUSEQ:    PLUS,
	MINUSEQ:   MINUS,
	STAREQ:    STAR,
	SLASHEQ:   SLASH,
	PERCENTEQ: PERCENT,
}

func (s *state) assignment(n *Assign) (any, error) {
	var v any
	if n.Op == ASSIGN {
		rhs, err := s.eval(n.Value)
		if err != nil {
			return nil, err
		}
		v = rhs
	} else {
		cur, err := s.eval(n.Target)
		if err != nil {
			return nil, err
		}
		rhs, err := s.eval(n.Value)
		if err != nil {
			return nil, err
		}
		v = binaryOp(compoundOps[n.Op], reactive.Unwrap(cur), reactive.Unwrap(rhs))
	}
	if err := s.assign(n.Target, v); err != nil {
		return nil, err
	}
	return v, nil
}

// assign stores v into target. A target that currently holds a writable
// cell is written through the cell.
func (s *state) assign(target Node, v any) error {
	switch t := target.(type) {
	case *Ident:
		if cur, ok := s.b.Lookup(t.Name); ok {
			if c, ok := cur.(reactive.Cell); ok {
				wc, ok := c.(reactive.WritableCell)
				if !ok {
					return s.errorf(t, "cannot assign to computed value %s", t.Name)
				}
				if err := wc.SetAny(reactive.Unwrap(v)); err != nil {
					return &RuntimeError{Pos: t.At, Msg: "cannot assign to " + t.Name, Err: err}
				}
				return nil
			}
		}
		if !s.b.Assign(t.Name, v) {
			return s.errorf(t, "cannot assign to %s", t.Name)
		}
		return nil

	case *Member:
		obj, err := s.eval(t.X)
		if err != nil {
			return err
		}
		return s.setMember(t, obj, t.Name, v)

	case *Index:
		obj, err := s.eval(t.X)
		if err != nil {
			return err
		}
		k, err := s.eval(t.Index)
		if err != nil {
			return err
		}
		k = reactive.Unwrap(k)
		if n, ok := number(k); ok {
			if _, isFloat := n.(float64); !isFloat {
				return s.setIndex(t, obj, n.(int), v)
			}
		}
		return s.setMember(t, obj, ToString(k), v)
	}
	return s.errorf(target, "invalid assignment target")
}

// notifier is implemented by signals that can announce in-place changes.
type notifier interface {
	Notify()
}

func (s *state) setMember(n Node, obj any, name string, v any) error {
	var owner notifier
	if c, ok := obj.(reactive.Cell); ok {
		if name == "value" {
			wc, ok := c.(reactive.WritableCell)
			if !ok {
				return s.errorf(n, "cannot assign to a computed value")
			}
			if err := wc.SetAny(reactive.Unwrap(v)); err != nil {
				return s.wrap(n, err)
			}
			return nil
		}
		owner, _ = c.(notifier)
		obj = c.PeekAny()
	}
	if err := s.setProperty(n, obj, name, v); err != nil {
		return err
	}
	if owner != nil {
		owner.Notify()
	}
	return nil
}

func (s *state) setProperty(n Node, obj any, name string, v any) error {
	switch o := obj.(type) {
	case nil:
		return s.errorf(n, "cannot set property %q of null", name)
	case *Object:
		if cur, ok := o.Get(name); ok {
			if wc, ok := cur.(reactive.WritableCell); ok {
				return wc.SetAny(reactive.Unwrap(v))
			}
		}
		o.Set(name, v)
		return nil
	case map[string]any:
		if wc, ok := o[name].(reactive.WritableCell); ok {
			return wc.SetAny(reactive.Unwrap(v))
		}
		o[name] = v
		return nil
	}

	rv := reflect.ValueOf(obj)
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		val, err := convertArg(v, rv.Type().Elem())
		if err != nil {
			return s.wrap(n, err)
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), val)
		return nil
	case rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct:
		f := structField(rv.Elem(), name)
		if !f.IsValid() || !f.CanSet() {
			return s.errorf(n, "cannot set property %q of %T", name, obj)
		}
		if wc, ok := f.Interface().(reactive.WritableCell); ok {
			return wc.SetAny(reactive.Unwrap(v))
		}
		val, err := convertArg(v, f.Type())
		if err != nil {
			return s.wrap(n, err)
		}
		f.Set(val)
		return nil
	}
	return s.errorf(n, "cannot set property %q of %s", name, TypeOf(obj))
}

func (s *state) setIndex(n Node, obj any, i int, v any) error {
	var owner notifier
	if c, ok := obj.(reactive.Cell); ok {
		owner, _ = c.(notifier)
		obj = c.PeekAny()
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Slice {
		return s.setMember(n, obj, ToString(i), v)
	}
	if i < 0 || i >= rv.Len() {
		return s.errorf(n, "index %d out of range [0:%d]", i, rv.Len())
	}
	el := rv.Index(i)
	if wc, ok := el.Interface().(reactive.WritableCell); ok {
		return wc.SetAny(reactive.Unwrap(v))
	}
	val, err := convertArg(v, el.Type())
	if err != nil {
		return s.wrap(n, err)
	}
	el.Set(val)
	if owner != nil {
		owner.Notify()
	}
	return nil
}

// member resolves x.name.
func (s *state) member(n Node, x any, name string) (any, error) {
	if c, ok := x.(reactive.Cell); ok {
		switch name {
		case "value":
			return c.GetAny(), nil
		case "peek":
			return Func(func(...any) (any, error) { return c.PeekAny(), nil }), nil
		case "set":
			if wc, ok := c.(reactive.WritableCell); ok {
				return Func(func(args ...any) (any, error) {
					return nil, wc.SetAny(reactive.Unwrap(arg(args, 0)))
				}), nil
			}
		}
		x = c.GetAny()
	}

	switch o := x.(type) {
	case nil:
		return nil, s.errorf(n, "cannot read property %q of null", name)
	case *Object:
		v, _ := o.Get(name)
		return v, nil
	case map[string]any:
		return o[name], nil
	case string:
		return stringMember(o, name), nil
	case []any:
		return listMember(o, name), nil
	}
	return reflectMember(x, name), nil
}

func (s *state) index(n Node, x any, k any) (any, error) {
	x = reactive.Unwrap(x)
	if i, ok := k.(int); ok {
		if list, ok := AsList(x); ok {
			if i < 0 || i >= len(list) {
				return nil, nil
			}
			return list[i], nil
		}
		if str, ok := x.(string); ok {
			r := []rune(str)
			if i < 0 || i >= len(r) {
				return nil, nil
			}
			return string(r[i]), nil
		}
	}
	return s.member(n, x, ToString(k))
}

func (s *state) call(n *CallExpr) (any, error) {
	var fn, recv any
	if m, ok := n.Fn.(*Member); ok {
		r, err := s.eval(m.X)
		if err != nil {
			return nil, err
		}
		if r == nil && (m.Optional || n.Optional) {
			return nil, nil
		}
		if mutate, ok := listMutators[m.Name]; ok && assignable(m.X) {
			if list, ok := AsList(reactive.Unwrap(r)); ok {
				return s.mutateList(n, m, r, list, mutate)
			}
		}
		fn, err = s.member(m, r, m.Name)
		if err != nil {
			return nil, err
		}
		recv = reactive.Unwrap(r)
	} else {
		f, err := s.eval(n.Fn)
		if err != nil {
			return nil, err
		}
		fn = f
	}
	if fn == nil && n.Optional {
		return nil, nil
	}
	args, err := s.args(n.Args)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, s.errorf(n, "%s is not a function", describe(n.Fn))
	}
	v, err := callValue(fn, recv, args)
	if err != nil {
		return nil, s.wrap(n, err)
	}
	return v, nil
}

func (s *state) args(nodes []Node) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for _, a := range nodes {
		if sp, ok := a.(*Spread); ok {
			v, err := s.eval(sp.X)
			if err != nil {
				return nil, err
			}
			list, ok := AsList(reactive.Unwrap(v))
			if !ok {
				return nil, s.errorf(sp, "spread of non-list %s", TypeOf(v))
			}
			out = append(out, list...)
			continue
		}
		v, err := s.eval(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// mutateList runs an in-place list method and stores the new list back
// into the receiver expression, so a list held in a signal notifies.
func (s *state) mutateList(n *CallExpr, m *Member, recv any, list []any, mutate listMutator) (any, error) {
	args, err := s.args(n.Args)
	if err != nil {
		return nil, err
	}
	next, result, err := mutate(append([]any(nil), list...), args)
	if err != nil {
		return nil, s.wrap(n, err)
	}
	var stored any = next
	if orig := reactive.Unwrap(recv); reflect.TypeOf(orig) != reflect.TypeOf(next) {
		rv, err := convertArg(next, reflect.TypeOf(orig))
		if err != nil {
			return nil, s.wrap(n, err)
		}
		stored = rv.Interface()
	}
	if err := s.assign(m.X, stored); err != nil {
		return nil, err
	}
	return result, nil
}

func describe(n Node) string {
	switch n := n.(type) {
	case *Ident:
		return n.Name
	case *Member:
		return describe(n.X) + "." + n.Name
	}
	return "expression"
}

// frame is the activation record of a Lambda call.
type frame struct {
	vars   map[string]any
	self   *Object
	parent Bindings
}

func (f *frame) Lookup(name string) (any, bool) {
	if v, ok := f.vars[name]; ok {
		return v, true
	}
	if f.self != nil {
		if v, ok := f.self.Get(name); ok {
			return v, true
		}
	}
	if f.parent != nil {
		return f.parent.Lookup(name)
	}
	return nil, false
}

func (f *frame) Assign(name string, value any) bool {
	if _, ok := f.vars[name]; ok {
		f.vars[name] = value
		return true
	}
	if f.self != nil && f.self.Has(name) {
		f.self.Set(name, value)
		return true
	}
	if f.parent != nil {
		return f.parent.Assign(name, value)
	}
	f.vars[name] = value
	return true
}

func (f *Lambda) call(recv any, args []any) (any, error) {
	this := f.this
	if this == nil {
		this = recv
	}
	if this == nil {
		this = f.lexical
	}
	fr := &frame{vars: make(map[string]any, len(f.node.Params)+1), parent: f.env}
	if obj, ok := reactive.Unwrap(this).(*Object); ok {
		fr.self = obj
	}
	for i, name := range f.node.Params {
		fr.vars[name] = arg(args, i)
	}
	if f.node.Rest != "" {
		var rest []any
		if len(args) > len(f.node.Params) {
			rest = append(rest, args[len(f.node.Params):]...)
		}
		fr.vars[f.node.Rest] = rest
	}
	st := &state{b: fr, this: this}
	if f.node.Block {
		return st.block(f.node.Body.(*Sequence), false)
	}
	return st.eval(f.node.Body)
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// Package expr implements the expression language used by directive
// attributes.
//
// The language is a small JavaScript-flavoured subset: literals, arrays and
// object literals, member/index/call chains (with optional chaining),
// arrow functions, the usual unary, binary, logical and ternary operators,
// assignment, increment/decrement and statement sequences separated by ';'.
//
// Source text is compiled once into a *Program and evaluated against a
// Bindings symbol table:
//
//	prog, err := expr.Compile("count.value + 1")
//	v, err := prog.Eval(bindings)
//
// Evaluator wraps this with a bounded program cache and the directive error
// policy: failures are logged and evaluate to nil.
//
// Reactive cells (see package reactive) are first-class values. Reading
// x.value reads the cell with tracking, x.peek() reads it without, and a
// cell used as an operand is unwrapped to its current value. Assigning to a
// name or property that holds a writable cell writes through the cell.
package expr

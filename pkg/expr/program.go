package expr

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/way/internal/errors"
)

// ErrSyntax is matched by every compile error.
var ErrSyntax = stderrors.New("expr: syntax error")

// Unwrap lets errors.Is(err, ErrSyntax) match.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Program is a compiled expression.
type Program struct {
	Source string
	root   Node
}

// Compile parses src. Errors are *errors.Error with code E202 wrapping a
// *SyntaxError.
func Compile(src string) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		pos := 0
		if se, ok := err.(*SyntaxError); ok {
			pos = se.Pos
		}
		return nil, errors.New("E202").
			WithLocation(src, 0, pos).
			Wrap(err)
	}
	return &Program{Source: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Root returns the parsed tree.
func (p *Program) Root() Node {
	return p.root
}

// Eval evaluates the program. A nil b evaluates against an empty table.
// Errors, including panics raised by host functions, are returned as
// *errors.Error with code E201.
func (p *Program) Eval(b Bindings) (result any, err error) {
	if b == nil {
		b = Map{}
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = p.runtimeError(&RuntimeError{Msg: fmt.Sprintf("panic: %v", r)})
		}
	}()
	v, evalErr := (&state{b: b}).eval(p.root)
	if evalErr != nil {
		return nil, p.runtimeError(evalErr)
	}
	return v, nil
}

func (p *Program) runtimeError(err error) error {
	pos := 0
	if re, ok := err.(*RuntimeError); ok {
		pos = re.Pos
	}
	return errors.New("E201").
		WithLocation(p.Source, 0, pos).
		Wrap(err)
}

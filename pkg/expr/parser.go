package expr

import (
	"fmt"
	"strings"
)

// parser is a Pratt parser over the token slice produced by lex.
type parser struct {
	toks []Token
	i    int
	base int // offset added to positions of nested template expressions
}

// Parse parses src into an expression tree. A source with more than one
// statement yields a *Sequence.
func Parse(src string) (Node, error) {
	return parseAt(src, 0)
}

func parseAt(src string, base int) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			se.Pos += base
		}
		return nil, err
	}
	p := &parser{toks: toks, base: base}
	stmts, err := p.statements(EOF)
	if err != nil {
		return nil, err
	}
	switch len(stmts) {
	case 0:
		return &Literal{At: base}, nil
	case 1:
		return stmts[0], nil
	}
	return &Sequence{At: stmts[0].pos(), Stmts: stmts}, nil
}

// ───────────────────────── token helpers ─────────────────────────

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.i < len(p.toks) {
		p.i++
	}
	return t
}

func (p *parser) match(tt TokenType) bool {
	if p.peek().Type == tt {
		p.i++
		return true
	}
	return false
}

func (p *parser) need(tt TokenType) (Token, error) {
	t := p.peek()
	if t.Type != tt {
		return t, p.unexpected(t, fmt.Sprintf("expected %s", tt))
	}
	p.i++
	return t, nil
}

func (p *parser) at(t Token) int { return p.base + t.Pos }

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(t Token, want string) error {
	got := t.Text
	if t.Type == EOF {
		got = EOF.String()
	}
	if want == "" {
		return p.errorf(p.at(t), "unexpected %s", got)
	}
	return p.errorf(p.at(t), "%s, found %s", want, got)
}

// ───────────────────────── precedence ─────────────────────────

const (
	bpAssign  = 10
	bpTernary = 20
	bpNullish = 30
	bpOr      = 40
	bpAnd     = 50
	bpEquals  = 60
	bpCompare = 70
	bpSum     = 80
	bpProduct = 90
	bpPower   = 100
	bpPrefix  = 110
	bpPostfix = 120
	bpCall    = 130
)

// infix returns the left binding power of t and whether it is right
// associative.
func infix(t TokenType) (int, bool, bool) {
	switch t {
	case ASSIGN, PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ:
		return bpAssign, true, true
	case QUESTION:
		return bpTernary, true, true
	case NULLISH:
		return bpNullish, false, true
	case OR:
		return bpOr, false, true
	case AND:
		return bpAnd, false, true
	case EQ, NEQ, STRICTEQ, STRICTNEQ:
		return bpEquals, false, true
	case LT, LTE, GT, GTE:
		return bpCompare, false, true
	case PLUS, MINUS:
		return bpSum, false, true
	case STAR, SLASH, PERCENT:
		return bpProduct, false, true
	case POW:
		return bpPower, true, true
	case INC, DEC:
		return bpPostfix, false, true
	case DOT, QDOT, LPAREN, LBRACKET:
		return bpCall, false, true
	}
	return 0, false, false
}

func assignable(n Node) bool {
	switch n.(type) {
	case *Ident, *Member, *Index:
		return true
	}
	return false
}

// ───────────────────────── statements ─────────────────────────

func (p *parser) statements(end TokenType) ([]Node, error) {
	var stmts []Node
	for {
		for p.match(SEMICOLON) {
		}
		if p.peek().Type == end {
			return stmts, nil
		}
		s, err := p.statement(end)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		if !p.match(SEMICOLON) && p.peek().Type != end {
			return nil, p.unexpected(p.peek(), fmt.Sprintf("expected ; or %s", end))
		}
	}
}

func (p *parser) statement(end TokenType) (Node, error) {
	t := p.peek()
	if t.Type == IDENT && t.Text == "return" {
		p.i++
		if next := p.peek().Type; next == SEMICOLON || next == end {
			return &Return{At: p.at(t)}, nil
		}
		x, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		return &Return{At: p.at(t), X: x}, nil
	}
	return p.expression(0)
}

// ───────────────────────── expressions ─────────────────────────

func (p *parser) expression(minBP int) (Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	// optional is set once a ?. appears and stays set for the rest of the
	// member/call chain so that a nil link short-circuits the whole chain.
	optional := false
	for {
		t := p.peek()
		bp, right, ok := infix(t.Type)
		if !ok || bp <= minBP {
			return left, nil
		}
		p.i++
		at := p.at(t)

		switch t.Type {
		case ASSIGN, PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ:
			if !assignable(left) {
				return nil, p.errorf(at, "invalid assignment target")
			}
			value, err := p.expression(bp - 1)
			if err != nil {
				return nil, err
			}
			left = &Assign{At: at, Op: t.Type, Target: left, Value: value}
			optional = false

		case QUESTION:
			then, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(COLON); err != nil {
				return nil, err
			}
			els, err := p.expression(bp - 1)
			if err != nil {
				return nil, err
			}
			left = &Conditional{At: at, Test: left, Then: then, Else: els}
			optional = false

		case INC, DEC:
			if !assignable(left) {
				return nil, p.errorf(at, "invalid increment target")
			}
			left = &Update{At: at, Op: t.Type, Target: left}
			optional = false

		case DOT:
			name, err := p.need(IDENT)
			if err != nil {
				return nil, err
			}
			left = &Member{At: at, X: left, Name: name.Text, Optional: optional}

		case QDOT:
			optional = true
			switch p.peek().Type {
			case LBRACKET:
				p.i++
				idx, err := p.expression(0)
				if err != nil {
					return nil, err
				}
				if _, err := p.need(RBRACKET); err != nil {
					return nil, err
				}
				left = &Index{At: at, X: left, Index: idx, Optional: true}
			case LPAREN:
				p.i++
				args, err := p.list(RPAREN)
				if err != nil {
					return nil, err
				}
				left = &CallExpr{At: at, Fn: left, Args: args, Optional: true}
			default:
				name, err := p.need(IDENT)
				if err != nil {
					return nil, err
				}
				left = &Member{At: at, X: left, Name: name.Text, Optional: true}
			}

		case LBRACKET:
			idx, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RBRACKET); err != nil {
				return nil, err
			}
			left = &Index{At: at, X: left, Index: idx, Optional: optional}

		case LPAREN:
			args, err := p.list(RPAREN)
			if err != nil {
				return nil, err
			}
			left = &CallExpr{At: at, Fn: left, Args: args, Optional: optional}

		default:
			rbp := bp
			if right {
				rbp = bp - 1
			}
			r, err := p.expression(rbp)
			if err != nil {
				return nil, err
			}
			left = &Binary{At: at, Op: t.Type, L: left, R: r}
			optional = false
		}
	}
}

func (p *parser) prefix() (Node, error) {
	t := p.advance()
	at := p.at(t)

	switch t.Type {
	case NUMBER, STRING:
		return &Literal{At: at, Value: t.Value}, nil

	case TEMPLATE:
		return p.template(t)

	case IDENT:
		switch t.Text {
		case "true":
			return &Literal{At: at, Value: true}, nil
		case "false":
			return &Literal{At: at, Value: false}, nil
		case "null", "undefined":
			return &Literal{At: at}, nil
		case "this":
			return &This{At: at}, nil
		case "typeof":
			x, err := p.expression(bpPrefix)
			if err != nil {
				return nil, err
			}
			return &Unary{At: at, Op: TYPEOF, X: x}, nil
		}
		if p.peek().Type == ARROW {
			p.i++
			return p.arrowBody(at, []string{t.Text}, "")
		}
		return &Ident{At: at, Name: t.Text}, nil

	case LPAREN:
		if p.arrowAhead() {
			params, rest, err := p.params()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(ARROW); err != nil {
				return nil, err
			}
			return p.arrowBody(at, params, rest)
		}
		x, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN); err != nil {
			return nil, err
		}
		return x, nil

	case LBRACKET:
		elems, err := p.list(RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{At: at, Elems: elems}, nil

	case LBRACE:
		return p.object(at)

	case BANG, MINUS, PLUS:
		x, err := p.expression(bpPrefix)
		if err != nil {
			return nil, err
		}
		return &Unary{At: at, Op: t.Type, X: x}, nil

	case INC, DEC:
		x, err := p.expression(bpPrefix)
		if err != nil {
			return nil, err
		}
		if !assignable(x) {
			return nil, p.errorf(at, "invalid increment target")
		}
		return &Update{At: at, Op: t.Type, Prefix: true, Target: x}, nil
	}

	return nil, p.unexpected(t, "")
}

// arrowAhead reports whether the '(' just consumed opens an arrow
// function parameter list.
func (p *parser) arrowAhead() bool {
	depth := 1
	for j := p.i; j < len(p.toks); j++ {
		switch p.toks[j].Type {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
			if depth == 0 {
				return j+1 < len(p.toks) && p.toks[j+1].Type == ARROW
			}
		case EOF:
			return false
		}
	}
	return false
}

// params parses "a, b, ...rest)" after the opening parenthesis.
func (p *parser) params() ([]string, string, error) {
	var names []string
	for !p.match(RPAREN) {
		if p.match(ELLIPSIS) {
			name, err := p.need(IDENT)
			if err != nil {
				return nil, "", err
			}
			if _, err := p.need(RPAREN); err != nil {
				return nil, "", err
			}
			return names, name.Text, nil
		}
		name, err := p.need(IDENT)
		if err != nil {
			return nil, "", err
		}
		names = append(names, name.Text)
		if !p.match(COMMA) && p.peek().Type != RPAREN {
			return nil, "", p.unexpected(p.peek(), "expected , or )")
		}
	}
	return names, "", nil
}

func (p *parser) arrowBody(at int, params []string, rest string) (Node, error) {
	if p.peek().Type == LBRACE {
		open := p.advance()
		body, err := p.block(open)
		if err != nil {
			return nil, err
		}
		return &Arrow{At: at, Params: params, Rest: rest, Body: body, Block: true}, nil
	}
	body, err := p.expression(bpAssign - 1)
	if err != nil {
		return nil, err
	}
	return &Arrow{At: at, Params: params, Rest: rest, Body: body}, nil
}

// block parses statements up to the closing brace of open.
func (p *parser) block(open Token) (Node, error) {
	stmts, err := p.statements(RBRACE)
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RBRACE); err != nil {
		return nil, err
	}
	return &Sequence{At: p.at(open), Stmts: stmts}, nil
}

// list parses comma separated expressions (with spreads) up to end.
func (p *parser) list(end TokenType) ([]Node, error) {
	var out []Node
	for !p.match(end) {
		var n Node
		if t := p.peek(); t.Type == ELLIPSIS {
			p.i++
			x, err := p.expression(bpAssign - 1)
			if err != nil {
				return nil, err
			}
			n = &Spread{At: p.at(t), X: x}
		} else {
			x, err := p.expression(bpAssign - 1)
			if err != nil {
				return nil, err
			}
			n = x
		}
		out = append(out, n)
		if !p.match(COMMA) && p.peek().Type != end {
			return nil, p.unexpected(p.peek(), fmt.Sprintf("expected , or %s", end))
		}
	}
	return out, nil
}

func (p *parser) object(at int) (Node, error) {
	obj := &ObjectLit{At: at}
	for !p.match(RBRACE) {
		t := p.advance()
		var prop Property
		switch t.Type {
		case ELLIPSIS:
			x, err := p.expression(bpAssign - 1)
			if err != nil {
				return nil, err
			}
			prop = Property{Value: x, Spread: true}

		case LBRACKET:
			key, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RBRACKET); err != nil {
				return nil, err
			}
			if _, err := p.need(COLON); err != nil {
				return nil, err
			}
			v, err := p.expression(bpAssign - 1)
			if err != nil {
				return nil, err
			}
			prop = Property{Computed: key, Value: v}

		case IDENT, STRING, NUMBER:
			key := t.Text
			if t.Type != IDENT {
				key = fmt.Sprint(t.Value)
			}
			switch p.peek().Type {
			case COLON:
				p.i++
				v, err := p.expression(bpAssign - 1)
				if err != nil {
					return nil, err
				}
				prop = Property{Key: key, Value: v}
			case LPAREN:
				// method shorthand: name(a, b) { ... }
				p.i++
				params, rest, err := p.params()
				if err != nil {
					return nil, err
				}
				open, err := p.need(LBRACE)
				if err != nil {
					return nil, err
				}
				body, err := p.block(open)
				if err != nil {
					return nil, err
				}
				prop = Property{Key: key, Value: &Arrow{At: p.at(t), Params: params, Rest: rest, Body: body, Block: true}}
			default:
				if t.Type != IDENT {
					return nil, p.unexpected(p.peek(), "expected :")
				}
				prop = Property{Key: key, Value: &Ident{At: p.at(t), Name: key}}
			}

		default:
			return nil, p.unexpected(t, "expected property name")
		}
		obj.Props = append(obj.Props, prop)
		if !p.match(COMMA) && p.peek().Type != RBRACE {
			return nil, p.unexpected(p.peek(), "expected , or }")
		}
	}
	return obj, nil
}

// template splits a backquoted string into literal parts and ${} parts.
func (p *parser) template(t Token) (Node, error) {
	raw := t.Value.(string)
	at := p.at(t)
	tpl := &Template{At: at}

	var cur strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				cur.WriteByte('\n')
			case 't':
				cur.WriteByte('\t')
			default:
				cur.WriteByte(raw[i])
			}
			continue
		}
		if c == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			end := matchBrace(raw, i+2)
			if end < 0 {
				return nil, p.errorf(at, "unterminated ${ in template")
			}
			// +1 for the opening backquote
			x, err := parseAt(raw[i+2:end], at+1+i+2)
			if err != nil {
				return nil, err
			}
			tpl.Strings = append(tpl.Strings, cur.String())
			tpl.Exprs = append(tpl.Exprs, x)
			cur.Reset()
			i = end
			continue
		}
		cur.WriteByte(c)
	}
	tpl.Strings = append(tpl.Strings, cur.String())
	return tpl, nil
}

// matchBrace returns the index of the '}' closing a '{' that ends just
// before start, skipping quoted strings.
func matchBrace(s string, start int) int {
	depth := 1
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'', '`':
			for i++; i < len(s) && s[i] != c; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}

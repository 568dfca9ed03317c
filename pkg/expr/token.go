package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota

	// Literals & identifiers
	IDENT
	NUMBER
	STRING
	TEMPLATE

	// Punctuation
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	DOT       // .
	QDOT      // ?.
	COLON     // :
	SEMICOLON // ;
	QUESTION  // ?
	ARROW     // =>
	ELLIPSIS  // ...

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	POW // **
	BANG
	EQ        // ==
	NEQ       // !=
	STRICTEQ  // ===
	STRICTNEQ // !==
	LT
	LTE
	GT
	GTE
	AND       // &&
	OR        // ||
	NULLISH   // ??
	ASSIGN    // =
	PLUSEQ    // +=
	MINUSEQ   // -=
	STAREQ    // *=
	SLASHEQ   // /=
	PERCENTEQ // %=
	INC       // ++
	DEC       // --
	TYPEOF    // typeof, produced by the parser from an identifier
)

var tokenNames = map[TokenType]string{
	EOF: "end of expression", IDENT: "identifier", NUMBER: "number", STRING: "string", TEMPLATE: "template",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]", LBRACE: "{", RBRACE: "}",
	COMMA: ",", DOT: ".", QDOT: "?.", COLON: ":", SEMICOLON: ";", QUESTION: "?", ARROW: "=>", ELLIPSIS: "...",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", POW: "**", BANG: "!",
	EQ: "==", NEQ: "!=", STRICTEQ: "===", STRICTNEQ: "!==", LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	AND: "&&", OR: "||", NULLISH: "??", ASSIGN: "=", PLUSEQ: "+=", MINUSEQ: "-=", STAREQ: "*=",
	SLASHEQ: "/=", PERCENTEQ: "%=", INC: "++", DEC: "--", TYPEOF: "typeof",
}

// String returns the token's source spelling or a description.
func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token.
type Token struct {
	Type TokenType
	Text string // raw source text
	Pos  int    // byte offset of the first character

	// Value holds the decoded literal for NUMBER (int or float64) and
	// STRING/TEMPLATE tokens (string).
	Value any
}

// lexer scans an expression into tokens.
type lexer struct {
	src    string
	pos    int
	tokens []Token
}

func lex(src string) ([]Token, error) {
	l := &lexer{src: src}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b == '$'
}
func isIdentPart(b byte) bool { return isIdentStart(b) || isDigit(b) }

// operators are matched longest first.
var operators = []struct {
	text string
	typ  TokenType
}{
	{"...", ELLIPSIS}, {"===", STRICTEQ}, {"!==", STRICTNEQ},
	{"=>", ARROW}, {"?.", QDOT}, {"**", POW}, {"==", EQ}, {"!=", NEQ}, {"<=", LTE}, {">=", GTE},
	{"&&", AND}, {"||", OR}, {"??", NULLISH}, {"+=", PLUSEQ}, {"-=", MINUSEQ}, {"*=", STAREQ},
	{"/=", SLASHEQ}, {"%=", PERCENTEQ}, {"++", INC}, {"--", DEC},
	{"(", LPAREN}, {")", RPAREN}, {"[", LBRACKET}, {"]", RBRACKET}, {"{", LBRACE}, {"}", RBRACE},
	{",", COMMA}, {".", DOT}, {":", COLON}, {";", SEMICOLON}, {"?", QUESTION},
	{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH}, {"%", PERCENT}, {"!", BANG},
	{"=", ASSIGN}, {"<", LT}, {">", GT},
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.number()
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return Token{Type: IDENT, Text: l.src[start:l.pos], Pos: start}, nil
	case c == '"' || c == '\'':
		return l.str(c, STRING)
	case c == '`':
		return l.str(c, TEMPLATE)
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op.text) {
			// "?." followed by a digit is a ternary, as in a?.5:1
			if op.typ == QDOT && l.pos+2 < len(l.src) && isDigit(l.src[l.pos+2]) {
				continue
			}
			l.pos += len(op.text)
			return Token{Type: op.typ, Text: op.text, Pos: start}, nil
		}
	}
	return Token{}, l.errorf(start, "unexpected character %q", c)
}

func (l *lexer) number() (Token, error) {
	start := l.pos
	float := false
scan:
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isDigit(c) || c == '_':
		case c == '.' && !float:
			float = true
		case (c == 'e' || c == 'E') && l.pos > start:
			float = true
			if l.pos+1 < len(l.src) && (l.src[l.pos+1] == '+' || l.src[l.pos+1] == '-') {
				l.pos++
			}
		default:
			break scan
		}
		l.pos++
	}
	text := l.src[start:l.pos]
	clean := strings.ReplaceAll(text, "_", "")
	if !float {
		if n, err := strconv.Atoi(clean); err == nil {
			return Token{Type: NUMBER, Text: text, Pos: start, Value: n}, nil
		}
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return Token{}, l.errorf(start, "malformed number %q", text)
	}
	return Token{Type: NUMBER, Text: text, Pos: start, Value: f}, nil
}

// str scans a quoted string. Template strings keep their raw body; the
// parser splits ${...} parts out of it.
func (l *lexer) str(quote byte, typ TokenType) (Token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return Token{Type: typ, Text: l.src[start:l.pos], Pos: start, Value: b.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			esc := l.src[l.pos]
			if typ == TEMPLATE {
				// Keep escapes for the template splitter, except the quote.
				if esc != '`' {
					b.WriteByte('\\')
				}
				b.WriteByte(esc)
				l.pos++
				continue
			}
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if l.pos+4 < len(l.src) {
					if r, err := strconv.ParseUint(l.src[l.pos+1:l.pos+5], 16, 32); err == nil {
						b.WriteRune(rune(r))
						l.pos += 5
						continue
					}
				}
				return Token{}, l.errorf(l.pos, "invalid unicode escape")
			default:
				b.WriteByte(esc)
			}
			l.pos++
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	return Token{}, l.errorf(start, "unterminated string")
}

// SyntaxError reports a compile failure at a byte offset of the source.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

// Package condition parses and evaluates the boolean filter expressions
// used by config-declared rule detectors, e.g.
//
//	plan == "free" AND (properties.seats >= 10 OR feature_name matches "^export_")
package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expr is a parsed expression node.
type Expr interface {
	exprNode()
}

// Logical joins two expressions with AND or OR.
type Logical struct {
	Op          string // "AND" | "OR"
	Left, Right Expr
}

// Not negates its operand.
type Not struct {
	X Expr
}

// Compare is <operand> <operator> <operand>.
type Compare struct {
	Left  Operand
	Op    Operator
	Right Operand
	re    *regexp.Regexp // compiled once for literal "matches" patterns
}

func (*Logical) exprNode() {}
func (*Not) exprNode()     {}
func (*Compare) exprNode() {}

// Operand is a Literal or a Field.
type Operand interface {
	operandNode()
}

// Literal is a constant: string, float64 or bool.
type Literal struct {
	Value interface{}
}

// Field is a dotted path such as properties.plan.
type Field struct {
	Path []string
}

func (*Literal) operandNode() {}
func (*Field) operandNode()   {}

// String renders the path back in dotted form.
func (f *Field) String() string { return strings.Join(f.Path, ".") }

// Parse compiles src into an expression tree. Regex literals on the right
// of "matches" are compiled here, so a bad pattern is a parse error.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, fmt.Errorf("unexpected %q after expression", t.text)
	}
	return e, nil
}

// MustParse is Parse for expressions known at compile time.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("condition: %q: %v", src, err))
	}
	return e
}

// ── lexer ──────────────────────────────────────────────────────────────────

type tokKind int

const (
	tWord tokKind = iota // identifier, field path or keyword
	tOp                  // == != >= <= > <
	tString
	tNumber
	tBool
	tLParen
	tRParen
	tEOF
)

type tok struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]tok, error) {
	var out []tok
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			out = append(out, tok{tLParen, "(", i})
			i++
		case c == ')':
			out = append(out, tok{tRParen, ")", i})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			n := 1
			if i+1 < len(src) && src[i+1] == '=' {
				n = 2
			}
			op := src[i : i+n]
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q at position %d", op, i)
			}
			out = append(out, tok{tOp, op, i})
			i += n
		case c == '"' || c == '\'':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("%v at position %d", err, i)
			}
			out = append(out, tok{tString, s, i})
			i += n
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			j := i + 1
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			out = append(out, tok{tNumber, src[i:j], i})
			i = j
		case isWordStart(c):
			j := i + 1
			for j < len(src) && (isWordStart(src[j]) || isDigit(src[j]) || src[j] == '.') {
				j++
			}
			w := src[i:j]
			if lw := strings.ToLower(w); lw == "true" || lw == "false" {
				out = append(out, tok{tBool, lw, i})
			} else {
				out = append(out, tok{tWord, w, i})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}
	return append(out, tok{tEOF, "", len(src)}), nil
}

// lexString reads a quoted literal and returns its unescaped value and
// the number of bytes consumed.
func lexString(src string) (string, int, error) {
	quote := src[0]
	var b strings.Builder
	for j := 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if j+1 < len(src) {
				j++
				b.WriteByte(src[j])
			}
		case quote:
			return b.String(), j + 1, nil
		default:
			b.WriteByte(src[j])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isWordStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// ── parser ─────────────────────────────────────────────────────────────────

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) peek() tok { return p.toks[p.pos] }

func (p *parser) next() tok {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	return t.kind == tWord && strings.EqualFold(t.text, kw)
}

// or = and { "OR" and }
func (p *parser) or() (Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

// and = unary { "AND" unary }
func (p *parser) and() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

// unary = "NOT" unary | "(" or ")" | comparison
func (p *parser) unary() (Expr, error) {
	switch {
	case p.keyword("NOT"):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	case p.peek().kind == tLParen:
		p.next()
		x, err := p.or()
		if err != nil {
			return nil, err
		}
		if t := p.next(); t.kind != tRParen {
			return nil, fmt.Errorf("expected \")\" at position %d, got %q", t.pos, t.text)
		}
		return x, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (Expr, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	t := p.next()
	var op Operator
	switch {
	case t.kind == tOp:
		op = Operator(t.text)
	case t.kind == tWord && (strings.EqualFold(t.text, string(OpContains)) || strings.EqualFold(t.text, string(OpMatches))):
		op = Operator(strings.ToLower(t.text))
	default:
		return nil, fmt.Errorf("expected comparison operator at position %d, got %q", t.pos, t.text)
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	c := &Compare{Left: left, Op: op, Right: right}
	if op == OpMatches {
		if lit, ok := right.(*Literal); ok {
			pattern, ok := lit.Value.(string)
			if !ok {
				return nil, fmt.Errorf("matches: pattern must be a string")
			}
			if c.re, err = regexp.Compile(pattern); err != nil {
				return nil, fmt.Errorf("matches: %w", err)
			}
		}
	}
	return c, nil
}

func (p *parser) operand() (Operand, error) {
	t := p.next()
	switch t.kind {
	case tString:
		return &Literal{Value: t.text}, nil
	case tNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", t.text, t.pos)
		}
		return &Literal{Value: f}, nil
	case tBool:
		return &Literal{Value: t.text == "true"}, nil
	case tWord:
		if isKeyword(t.text) {
			return nil, fmt.Errorf("expected operand at position %d, got keyword %q", t.pos, t.text)
		}
		return &Field{Path: strings.Split(t.text, ".")}, nil
	}
	if t.kind == tEOF {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("expected operand at position %d, got %q", t.pos, t.text)
}

func isKeyword(w string) bool {
	switch strings.ToUpper(w) {
	case "AND", "OR", "NOT", "CONTAINS", "MATCHES":
		return true
	}
	return false
}

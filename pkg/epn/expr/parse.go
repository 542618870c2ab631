package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// parser is a recursive-descent parser over the token list. Precedence,
// lowest first: or, and, not, comparison, + -, * / %, unary minus.
type parser struct {
	toks   []token
	pos    int
	custom map[string]BinaryOp
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// accept reports whether the next token is one of words (identifiers) or
// ops (operators), consuming it if so.
func (p *parser) accept(words []string, ops []string) (string, bool) {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		for _, w := range words {
			if t.text == w {
				p.next()
				return w, true
			}
		}
	case tokOp:
		for _, o := range ops {
			if t.text == o {
				p.next()
				return o, true
			}
		}
	}
	return "", false
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrSyntax, t.pos, fmt.Sprintf(format, args...))
}

func (p *parser) parse() (node, error) {
	if p.peek().kind == tokEOF {
		return literal{v: false}, nil
	}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return n, nil
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept([]string{"or"}, []string{"||"}); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = logical{or: true, l: left, r: right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept([]string{"and"}, []string{"&&"}); !ok {
			return left, nil
		}
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = logical{l: left, r: right}
	}
}

func (p *parser) not() (node, error) {
	if _, ok := p.accept([]string{"not"}, []string{"!"}); ok {
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return negation{x: x}, nil
	}
	return p.comparison()
}

var comparisonOps = []string{"==", "!=", "<=", ">=", "<", ">"}

func (p *parser) comparison() (node, error) {
	left, err := p.sum()
	if err != nil {
		return nil, err
	}

	op, ok := p.accept([]string{"contains"}, comparisonOps)
	if ok {
		right, err := p.sum()
		if err != nil {
			return nil, err
		}
		return comparison{op: op, l: left, r: right}, nil
	}

	if t := p.peek(); t.kind == tokIdent {
		if fn, ok := p.custom[t.text]; ok {
			p.next()
			right, err := p.sum()
			if err != nil {
				return nil, err
			}
			return custom{name: t.text, fn: fn, l: left, r: right}, nil
		}
	}
	return left, nil
}

func (p *parser) sum() (node, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(nil, []string{"+", "-"})
		if !ok {
			return left, nil
		}
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = arithmetic{op: op, l: left, r: right}
	}
}

func (p *parser) product() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(nil, []string{"*", "/", "%"})
		if !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = arithmetic{op: op, l: left, r: right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(nil, []string{"-"}); ok {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return minus{x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if !strings.Contains(t.text, ".") {
			if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
				return literal{v: i}, nil
			}
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %s", t)
		}
		return literal{v: f}, nil

	case tokString:
		return literal{v: t.text}, nil

	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return literal{v: true}, nil
		case "false":
			return literal{v: false}, nil
		case "null", "nil":
			return literal{v: nil}, nil
		case "and", "or", "not", "contains":
			return nil, p.errorf(t, "unexpected keyword %s", t)
		}
		return ident{name: t.text}, nil

	case tokLParen:
		n, err := p.or()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected \")\", got %s", closing)
		}
		return n, nil

	default:
		return nil, p.errorf(t, "unexpected %s", t)
	}
}

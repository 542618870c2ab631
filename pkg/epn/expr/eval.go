package expr

import (
	"fmt"
	"math"
	"strings"
)

type node interface {
	eval(vars map[string]any) (any, error)
}

type literal struct{ v any }

func (n literal) eval(map[string]any) (any, error) { return n.v, nil }

// ident resolves a variable. Dotted names walk nested maps; an unknown name
// evaluates to itself as a string.
type ident struct{ name string }

func (n ident) eval(vars map[string]any) (any, error) {
	if v, ok := Lookup(vars, n.name); ok {
		return v, nil
	}
	return n.name, nil
}

type negation struct{ x node }

func (n negation) eval(vars map[string]any) (any, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return nil, err
	}
	return !IsTruthy(v), nil
}

type logical struct {
	or   bool
	l, r node
}

func (n logical) eval(vars map[string]any) (any, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return nil, err
	}
	if IsTruthy(l) == n.or {
		return n.or, nil
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return nil, err
	}
	return IsTruthy(r), nil
}

type comparison struct {
	op   string
	l, r node
}

func (n comparison) eval(vars map[string]any) (any, error) {
	l, r, err := operands(vars, n.l, n.r)
	if err != nil {
		return nil, err
	}
	return Compare(l, r, n.op)
}

type custom struct {
	name string
	fn   BinaryOp
	l, r node
}

func (n custom) eval(vars map[string]any) (any, error) {
	l, r, err := operands(vars, n.l, n.r)
	if err != nil {
		return nil, err
	}
	return n.fn(l, r), nil
}

type minus struct{ x node }

func (n minus) eval(vars map[string]any) (any, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return nil, err
	}
	if i, ok := toInt64(v); ok {
		return -i, nil
	}
	if f, ok := toFloat(v); ok {
		return -f, nil
	}
	return nil, fmt.Errorf("%w: cannot negate %T", ErrType, v)
}

type arithmetic struct {
	op   string
	l, r node
}

func (n arithmetic) eval(vars map[string]any) (any, error) {
	l, r, err := operands(vars, n.l, n.r)
	if err != nil {
		return nil, err
	}

	if n.op == "+" {
		if ls, ok := l.(string); ok {
			return ls + fmt.Sprint(r), nil
		}
		if rs, ok := r.(string); ok {
			return fmt.Sprint(l) + rs, nil
		}
	}

	li, lok := toInt64(l)
	ri, rok := toInt64(r)
	if lok && rok {
		return intOp(n.op, li, ri)
	}

	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %T %s %T", ErrType, l, n.op, r)
	}
	return floatOp(n.op, lf, rf)
}

func intOp(op string, l, r int64) (any, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, ErrDivideByZero
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, ErrDivideByZero
		}
		return l % r, nil
	}
	return nil, fmt.Errorf("unknown operator: %s", op)
}

func floatOp(op string, l, r float64) (any, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, ErrDivideByZero
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, ErrDivideByZero
		}
		return math.Mod(l, r), nil
	}
	return nil, fmt.Errorf("unknown operator: %s", op)
}

func operands(vars map[string]any, ln, rn node) (any, any, error) {
	l, err := ln.eval(vars)
	if err != nil {
		return nil, nil, err
	}
	r, err := rn.eval(vars)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// Lookup resolves name in vars. A dotted name that is not itself a key is
// resolved segment by segment through nested map[string]any values.
func Lookup(vars map[string]any, name string) (any, bool) {
	if vars == nil {
		return nil, false
	}
	if v, ok := vars[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}

	var cur any = vars
	for _, seg := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

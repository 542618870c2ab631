package expr

import (
	"errors"
	"fmt"
	"maps"
)

var (
	// ErrSyntax indicates an expression that cannot be parsed.
	ErrSyntax = errors.New("expr: syntax error")

	// ErrType indicates an operator applied to values it cannot handle.
	ErrType = errors.New("expr: type mismatch")

	// ErrDivideByZero indicates a division or modulo by zero.
	ErrDivideByZero = errors.New("expr: division by zero")
)

// BinaryOp is a function that compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

// Evaluator compiles and evaluates expressions with optional custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers a custom binary operator.
// The operator name should not conflict with built-in operators.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses src once for repeated evaluation.
func (e *Evaluator) Compile(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, custom: e.customOps}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// Evaluate evaluates a boolean expression against the provided variables.
func (e *Evaluator) Evaluate(src string, vars map[string]any) (bool, error) {
	x, err := e.Compile(src)
	if err != nil {
		return false, err
	}
	return x.Bool(vars)
}

// Eval is a convenience function that evaluates an expression using
// the default evaluator (no custom operators).
func Eval(src string, vars map[string]any) (bool, error) {
	return New().Evaluate(src, vars)
}

// Compile parses src with the default evaluator.
func Compile(src string) (*Expr, error) {
	return New().Compile(src)
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	x, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return x
}

// Expr is a compiled expression. It is safe for concurrent use.
type Expr struct {
	src  string
	root node
}

func (x *Expr) String() string {
	return x.src
}

// Value evaluates the expression against vars.
func (x *Expr) Value(vars map[string]any) (any, error) {
	v, err := x.root.eval(vars)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", x.src, err)
	}
	return v, nil
}

// Bool evaluates the expression against vars and reports its truthiness.
func (x *Expr) Bool(vars map[string]any) (bool, error) {
	v, err := x.Value(vars)
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

// Match evaluates the expression as a predicate over an event payload.
func (x *Expr) Match(payload any) (bool, error) {
	return x.Bool(Bind(payload))
}

// Apply evaluates the expression as a function of an event payload.
func (x *Expr) Apply(payload any) (any, error) {
	return x.Value(Bind(payload))
}

// Bind returns the variables an expression sees for payload: "value" is the
// payload itself, and the keys of a map payload are visible by name.
func Bind(payload any) map[string]any {
	vars := map[string]any{}
	if m, ok := payload.(map[string]any); ok {
		maps.Copy(vars, m)
	}
	vars["value"] = payload
	return vars
}

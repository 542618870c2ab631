/*
Package expr compiles small predicate and value expressions over event
payloads.

# Overview

Expressions are parsed once with Compile and evaluated many times. A payload
is bound to the variable value; when the payload is a map[string]any its keys
are visible by name too, and dotted names walk nested maps.

	even := expr.MustCompile("value % 2 == 0")
	ok, _ := even.Match(4) // true

	big := expr.MustCompile("amount > 100 and customer.tier == 'gold'")
	ok, _ = big.Match(map[string]any{
	    "amount":   250,
	    "customer": map[string]any{"tier": "gold"},
	})

	double := expr.MustCompile("value * 2")
	v, _ := double.Apply(21) // int64(42)

# Expression Syntax

	<expr>    := <and> (('or' | '||') <and>)*
	<and>     := <not> (('and' | '&&') <not>)*
	<not>     := ('not' | '!') <not> | <cmp>
	<cmp>     := <sum> [<op> <sum>]
	<op>      := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains' | custom
	<sum>     := <product> (('+' | '-') <product>)*
	<product> := <unary> (('*' | '/' | '%') <unary>)*
	<unary>   := '-' <unary> | <primary>
	<primary> := number | 'string' | "string" | true | false | null
	           | identifier | '(' <expr> ')'

# Semantics

Equality compares numbers numerically and other values by their string
form. Ordering operators compare numerically. Arithmetic on two integers
stays integral (division truncates); any float operand makes it floating
point. + with a string operand concatenates. Division or modulo by zero is
ErrDivideByZero.

An identifier that is not bound evaluates to its own name, so status ==
active compares against the string "active".

# Truthiness

Single values are evaluated for truthiness:

  - nil/null: false
  - bool: the boolean value
  - string: false if empty, true otherwise
  - numbers: false if zero, true otherwise
  - other types: true

# Custom Operators

Register custom binary operators:

	e := expr.New(
	    expr.WithCustomOperator("matches", func(left, right any) bool {
	        matched, _ := regexp.MatchString(fmt.Sprint(right), fmt.Sprint(left))
	        return matched
	    }),
	)
	result, _ := e.Evaluate("name matches '^test.*'", vars)
*/
package expr

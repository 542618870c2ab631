/*
Package template expands variable references in definition text.

# Syntax

	${name}            value of name
	${name:-fallback}  value of name, or fallback when name is unset
	${a.b}             nested lookup in map[string]any values
	$name              bare form, only with WithDollarStyle(true)

Values are formatted with fmt's %v verb.

# Missing Variables

What happens to an unset variable without a fallback is chosen with
WithMissingAction: MissingKeep (default) leaves the reference in place,
MissingEmpty removes it and MissingError reports every unset name in an
*UndefinedVariableError.

# Usage

	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	path, err := exp.Expand("${dir}/events.db", map[string]any{"dir": "/var/lib/epn"})
*/
package template

package template

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingKeep keeps the reference as-is. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the reference with an empty string.
	MissingEmpty

	// MissingError reports the variable in an *UndefinedVariableError.
	MissingError
)

// String returns the name used in configuration: keep, empty or error.
func (a MissingAction) String() string {
	switch a {
	case MissingEmpty:
		return "empty"
	case MissingError:
		return "error"
	default:
		return "keep"
	}
}

// ParseMissingAction parses keep, empty or error.
func ParseMissingAction(s string) (MissingAction, bool) {
	switch s {
	case "keep", "":
		return MissingKeep, true
	case "empty":
		return MissingEmpty, true
	case "error":
		return MissingError, true
	}
	return MissingKeep, false
}

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
//
// Default: MissingKeep
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithDollarStyle enables or disables $name expansion.
//
// Default: false. Expressions and shell snippets in definitions often
// contain a literal dollar sign.
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) {
		e.dollarStyle = enabled
	}
}

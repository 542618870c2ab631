package template

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// bracePattern matches ${name} and ${name:-fallback}. The fallback may
	// not contain a closing brace.
	bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_.]*)(:-([^}]*))?\}`)

	// dollarPattern matches $name up to the first non-word character, so
	// that $port does not match inside $portNumber.
	dollarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\b|$)`)
)

// Expander expands variable references in strings.
// It is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	dollarStyle   bool
}

// NewExpander creates an Expander. By default missing variables are kept
// and only the ${name} form is expanded.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingKeep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces the variable references in s with values from vars.
// An error is returned only with MissingError; the partially expanded
// string is returned with it.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	result := bracePattern.ReplaceAllStringFunc(s, func(match string) string {
		m := bracePattern.FindStringSubmatch(match)
		if v, ok := Lookup(vars, m[1]); ok {
			return fmt.Sprint(v)
		}
		if m[2] != "" {
			return m[3]
		}
		return e.missing(match, m[1], &missing)
	})

	if e.dollarStyle {
		result = dollarPattern.ReplaceAllStringFunc(result, func(match string) string {
			name := match[1:]
			if v, ok := vars[name]; ok {
				return fmt.Sprint(v)
			}
			return e.missing(match, name, &missing)
		})
	}

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

func (e *Expander) missing(match, name string, names *[]string) string {
	switch e.missingAction {
	case MissingEmpty:
		return ""
	case MissingError:
		*names = append(*names, name)
		return match
	default:
		return match
	}
}

// MustExpand is like Expand but panics on error.
func (e *Expander) MustExpand(s string, vars map[string]any) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

// ExpandMap expands every string value of m, recursing into nested maps and
// slices. It returns a new map; m is not modified.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		expanded, err := e.expandValue(v, vars)
		if err != nil {
			return nil, err
		}
		result[k] = expanded
	}
	return result, nil
}

func (e *Expander) expandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := e.expandValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

// Names returns the variable names referenced in s with the ${name} form,
// in order of first appearance.
func Names(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range bracePattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Lookup resolves a dotted name against vars. A key containing the dot
// literally takes precedence over a nested lookup.
func Lookup(vars map[string]any, name string) (any, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(name, ".")
	if !found {
		return nil, false
	}
	nested, ok := vars[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return Lookup(nested, rest)
}

// UndefinedVariableError is returned with MissingError when variables are
// not set.
type UndefinedVariableError struct {
	Names []string
}

func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands s with the default expander, keeping missing variables.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}

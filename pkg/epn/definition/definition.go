package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csadilek/epn/pkg/epn/template"
)

// ErrInvalid wraps every structural error of a definition.
var ErrInvalid = errors.New("definition: invalid")

// Definition is a parsed network document.
type Definition struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
	Flows   []Flow         `yaml:"flows"`
	Joins   []Join         `yaml:"joins,omitempty"`
}

// Flow is a chain from a source through steps.
type Flow struct {
	Name   string `yaml:"name,omitempty"`
	Source Source `yaml:"source"`
	Steps  []Step `yaml:"steps,omitempty"`
}

// Source selects a catalog source; the remaining keys are its parameters.
type Source struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name,omitempty"`
	Params map[string]any `yaml:",inline"`
}

// Sink selects a catalog sink; the remaining keys are its parameters.
type Sink struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name,omitempty"`
	Params map[string]any `yaml:",inline"`
}

// Step is one operation of a flow. Exactly one of Filter, Map, Transform,
// Split and Sink is set. Name labels the node the step creates.
type Step struct {
	Name      string `yaml:"name,omitempty"`
	Filter    string `yaml:"filter,omitempty"`
	Map       string `yaml:"map,omitempty"`
	Transform string `yaml:"transform,omitempty"`
	Split     *Split `yaml:"split,omitempty"`
	Sink      *Sink  `yaml:"sink,omitempty"`
}

// Split fans a flow out into two branches.
type Split struct {
	When   string    `yaml:"when,omitempty"`
	Top    []Step    `yaml:"top"`
	Bottom []Step    `yaml:"bottom"`
	Join   *JoinSpec `yaml:"join,omitempty"`
}

// JoinSpec re-joins the open tails of a split.
type JoinSpec struct {
	Name    string `yaml:"name,omitempty"`
	Combine string `yaml:"combine,omitempty"`
}

// Join merges two open named flows.
type Join struct {
	Name    string `yaml:"name,omitempty"`
	Top     string `yaml:"top"`
	Bottom  string `yaml:"bottom"`
	Combine string `yaml:"combine,omitempty"`
	Steps   []Step `yaml:"steps,omitempty"`
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	vars    map[string]any
	missing template.MissingAction
}

// WithVars expands ${name} and ${name:-fallback} references in scalar values
// before decoding. An unquoted scalar is re-typed after expansion, so
// "count: ${n}" decodes as an integer.
func WithVars(vars map[string]any) LoadOption {
	return func(c *loadConfig) {
		if c.vars == nil {
			c.vars = map[string]any{}
		}
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

// WithMissingVars sets how references to unset variables are handled.
// Default: template.MissingError.
func WithMissingVars(action template.MissingAction) LoadOption {
	return func(c *loadConfig) {
		c.missing = action
	}
}

// Load parses and checks a YAML definition. Unknown step keys are errors.
func Load(data []byte, opts ...LoadOption) (*Definition, error) {
	cfg := loadConfig{missing: template.MissingError}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.vars != nil {
		expanded, err := expandVars(data, cfg)
		if err != nil {
			return nil, err
		}
		data = expanded
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalid, err)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses the definition at path.
func LoadFile(path string, opts ...LoadOption) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return Load(data, opts...)
}

func expandVars(data []byte, cfg loadConfig) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalid, err)
	}
	if doc.Kind == 0 {
		return data, nil
	}

	exp := template.NewExpander(template.WithMissingAction(cfg.missing))
	if err := expandNode(&doc, exp, cfg.vars); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return yaml.Marshal(&doc)
}

func expandNode(n *yaml.Node, exp *template.Expander, vars map[string]any) error {
	if n.Kind == yaml.ScalarNode {
		if !strings.Contains(n.Value, "${") {
			return nil
		}
		v, err := exp.Expand(n.Value, vars)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		n.Value = v
		if n.Style == 0 {
			n.Tag = ""
		}
		return nil
	}
	for _, c := range n.Content {
		if err := expandNode(c, exp, vars); err != nil {
			return err
		}
	}
	return nil
}

// Check reports structural errors: flows without a source, steps that set
// zero or several operations, steps after a sink, duplicate flow names and
// duplicate sink names. All errors are joined.
func (d *Definition) Check() error {
	var errs []error
	if len(d.Flows) == 0 {
		errs = append(errs, invalid("flows", "at least one flow is required"))
	}

	names := map[string]bool{}
	sinks := map[string]string{}
	for i, f := range d.Flows {
		path := fmt.Sprintf("flows[%d]", i)
		if f.Source.Type == "" {
			errs = append(errs, invalid(path+".source", "type is required"))
		}
		if f.Name != "" {
			if names[f.Name] {
				errs = append(errs, invalid(path, fmt.Sprintf("duplicate flow name %q", f.Name)))
			}
			names[f.Name] = true
		}
		errs = append(errs, checkSteps(path+".steps", f.Steps, sinks)...)
	}

	for i, j := range d.Joins {
		path := fmt.Sprintf("joins[%d]", i)
		if j.Top == "" || j.Bottom == "" {
			errs = append(errs, invalid(path, "top and bottom flow names are required"))
		}
		if j.Name != "" {
			if names[j.Name] {
				errs = append(errs, invalid(path, fmt.Sprintf("duplicate flow name %q", j.Name)))
			}
			names[j.Name] = true
		}
		errs = append(errs, checkSteps(path+".steps", j.Steps, sinks)...)
	}
	return errors.Join(errs...)
}

// checkSteps checks steps recursively. sinks maps the sink names seen so far
// to the path that declared them.
func checkSteps(path string, steps []Step, sinks map[string]string) []error {
	var errs []error
	for i, s := range steps {
		p := fmt.Sprintf("%s[%d]", path, i)
		if n := s.operations(); n != 1 {
			errs = append(errs, invalid(p, fmt.Sprintf("exactly one of filter, map, transform, split, sink is required, got %d", n)))
			continue
		}
		last := i == len(steps)-1
		switch {
		case s.Sink != nil:
			if s.Sink.Type == "" {
				errs = append(errs, invalid(p+".sink", "type is required"))
			}
			if !last {
				errs = append(errs, invalid(p, "sink must be the last step"))
			}
			if name := s.Sink.Name; name != "" {
				if prev, ok := sinks[name]; ok {
					errs = append(errs, invalid(p+".sink", fmt.Sprintf("duplicate sink name %q, first used at %s", name, prev)))
				} else {
					sinks[name] = p + ".sink"
				}
			}
		case s.Split != nil:
			if s.Split.Join == nil && !last {
				errs = append(errs, invalid(p, "steps after a split need a join"))
			}
			errs = append(errs, checkSteps(p+".split.top", s.Split.Top, sinks)...)
			errs = append(errs, checkSteps(p+".split.bottom", s.Split.Bottom, sinks)...)
		}
	}
	return errs
}

func (s Step) operations() int {
	n := 0
	for _, set := range []bool{s.Filter != "", s.Map != "", s.Transform != "", s.Split != nil, s.Sink != nil} {
		if set {
			n++
		}
	}
	return n
}

func invalid(path, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, path, msg)
}

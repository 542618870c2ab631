package definition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/csadilek/epn/pkg/epn"
	"github.com/csadilek/epn/pkg/epn/config"
	"github.com/csadilek/epn/pkg/epn/expr"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Built is a network built from a definition, with its collect sinks.
type Built struct {
	Network *epn.Network

	collectors map[string]*stream.CollectSink[any]
	closers    []func() error
}

// Start starts the network.
func (b *Built) Start(ctx context.Context) error {
	return b.Network.Start(ctx)
}

// Collectors returns the labels of the collect sinks, sorted.
func (b *Built) Collectors() []string {
	names := make([]string, 0, len(b.collectors))
	for name := range b.collectors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Collected returns the values received by the collect sink labelled name.
func (b *Built) Collected(name string) []any {
	c, ok := b.collectors[name]
	if !ok {
		return nil
	}
	return c.Values()
}

// Close releases resources opened by sinks. Errors are joined.
func (b *Built) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	logger  *slog.Logger
	out     io.Writer
	options []epn.Option
}

// WithLogger sets the logger of the network and the log sinks.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOutput sets the writer of stdout sinks. Default: os.Stdout.
func WithOutput(w io.Writer) BuildOption {
	return func(c *buildConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// WithNetworkOptions adds network options after the definition's own, so
// they take precedence.
func WithNetworkOptions(opts ...epn.Option) BuildOption {
	return func(c *buildConfig) {
		c.options = append(c.options, opts...)
	}
}

type anyFlow = *epn.Flow[any]

type builder struct {
	def     *Definition
	catalog *Catalog
	cfg     buildConfig
	net     *epn.Network
	built   *Built
	open    map[string]anyFlow
}

// Build creates the network described by d using the entries of catalog
// (NewCatalog() when nil). The network is validated but not started. On
// error every resource opened so far is released.
func Build(d *Definition, catalog *Catalog, opts ...BuildOption) (*Built, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalid)
	}
	if catalog == nil {
		catalog = NewCatalog()
	}
	cfg := buildConfig{logger: slog.Default(), out: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := d.Check(); err != nil {
		return nil, err
	}

	netOpts, err := epn.OptionsFromConfig(config.New(d.Options))
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", ErrInvalid, err)
	}
	netOpts = append(netOpts, epn.WithLogger(cfg.logger))
	netOpts = append(netOpts, cfg.options...)

	name := d.Name
	if name == "" {
		name = "epn"
	}
	b := &builder{
		def:     d,
		catalog: catalog,
		cfg:     cfg,
		net:     epn.Named(name, netOpts...),
		built:   &Built{collectors: map[string]*stream.CollectSink[any]{}},
		open:    map[string]anyFlow{},
	}
	b.built.Network = b.net

	if err := b.build(); err != nil {
		_ = b.built.Close()
		return nil, err
	}
	if err := b.net.Validate(); err != nil {
		_ = b.built.Close()
		return nil, err
	}
	return b.built, nil
}

func (b *builder) build() error {
	for i, f := range b.def.Flows {
		path := fmt.Sprintf("flows[%d]", i)
		factory, err := b.catalog.Sources.Lookup(f.Source.Type)
		if err != nil {
			return fmt.Errorf("%s.source: %w", path, err)
		}
		src, err := factory(f.Source)
		if err != nil {
			return fmt.Errorf("%s.source: %w", path, err)
		}

		var nodeOpts []epn.NodeOption
		if label := firstNonEmpty(f.Source.Name, f.Name); label != "" {
			nodeOpts = append(nodeOpts, epn.As(label))
		}
		tail, err := b.steps(path+".steps", epn.FromSource(b.net, src, nodeOpts...), f.Steps)
		if err != nil {
			return err
		}
		if tail != nil && f.Name != "" {
			b.open[f.Name] = tail
		}
	}

	for i, j := range b.def.Joins {
		path := fmt.Sprintf("joins[%d]", i)
		top, ok := b.take(j.Top)
		if !ok {
			return invalid(path, fmt.Sprintf("no open flow named %q", j.Top))
		}
		bottom, ok := b.take(j.Bottom)
		if !ok {
			return invalid(path, fmt.Sprintf("no open flow named %q", j.Bottom))
		}

		joined, err := b.join(path, j.Combine, j.Name, func(fn func(any, any) any, opts []epn.NodeOption) anyFlow {
			if fn == nil {
				return epn.Join(top, bottom, opts...)
			}
			return epn.JoinWith(top, bottom, fn, opts...)
		})
		if err != nil {
			return err
		}
		tail, err := b.steps(path+".steps", joined, j.Steps)
		if err != nil {
			return err
		}
		if tail != nil && j.Name != "" {
			b.open[j.Name] = tail
		}
	}
	return nil
}

func (b *builder) take(name string) (anyFlow, bool) {
	f, ok := b.open[name]
	delete(b.open, name)
	return f, ok
}

// steps applies steps to f and returns the open tail, or nil when the
// steps end in a sink or an unjoined split.
func (b *builder) steps(path string, f anyFlow, steps []Step) (anyFlow, error) {
	for i, s := range steps {
		p := fmt.Sprintf("%s[%d]", path, i)
		var opts []epn.NodeOption
		if s.Name != "" {
			opts = append(opts, epn.As(s.Name))
		}

		switch {
		case s.Filter != "":
			x, err := b.compile(p+".filter", s.Filter)
			if err != nil {
				return nil, err
			}
			f = f.Filter(b.predicate(x), opts...)

		case s.Map != "":
			x, err := b.compile(p+".map", s.Map)
			if err != nil {
				return nil, err
			}
			f = epn.TryMap(f, x.Apply, opts...)

		case s.Transform != "":
			fn, err := b.catalog.Transforms.Lookup(s.Transform)
			if err != nil {
				return nil, fmt.Errorf("%s.transform: %w", p, err)
			}
			f = epn.TryMap(f, (func(any) (any, error))(fn), opts...)

		case s.Split != nil:
			next, err := b.split(p+".split", f, s.Split, opts)
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, nil
			}
			f = next

		case s.Sink != nil:
			sink, label, err := b.sink(p+".sink", *s.Sink, f)
			if err != nil {
				return nil, err
			}
			f.ConsumedBy(sink, epn.As(label))
			return nil, nil
		}

		if err := f.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return f, nil
}

func (b *builder) split(path string, f anyFlow, def *Split, opts []epn.NodeOption) (anyFlow, error) {
	var s *epn.Split[any]
	if def.When == "" {
		s = f.Split(opts...)
	} else {
		x, err := b.compile(path+".when", def.When)
		if err != nil {
			return nil, err
		}
		s = f.SplitBy(b.predicate(x), opts...)
	}

	if _, err := b.steps(path+".top", s.Top(), def.Top); err != nil {
		return nil, err
	}
	if _, err := b.steps(path+".bottom", s.Bottom(), def.Bottom); err != nil {
		return nil, err
	}
	if def.Join == nil {
		return nil, nil
	}

	return b.join(path+".join", def.Join.Combine, def.Join.Name, func(fn func(any, any) any, opts []epn.NodeOption) anyFlow {
		if fn == nil {
			return s.Join(opts...)
		}
		return s.JoinWith(fn, opts...)
	})
}

// join resolves combine (catalog name, expression over top and bottom, or
// empty for a plain join) and calls do.
func (b *builder) join(path, combine, name string, do func(func(any, any) any, []epn.NodeOption) anyFlow) (anyFlow, error) {
	var opts []epn.NodeOption
	if name != "" {
		opts = append(opts, epn.As(name))
	}

	var fn func(any, any) any
	if combine != "" {
		c, ok := b.catalog.Combiners.Get(combine)
		if !ok {
			x, err := b.compile(path+".combine", combine)
			if err != nil {
				return nil, err
			}
			c = exprCombiner(x)
		}
		fn = b.combiner(combine, c)
	}

	joined := do(fn, opts)
	if err := joined.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return joined, nil
}

func (b *builder) sink(path string, def Sink, f anyFlow) (stream.Subscriber[any], string, error) {
	factory, err := b.catalog.Sinks.Lookup(def.Type)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	label := def.Name
	if label == "" {
		label = fmt.Sprintf("%s#%d", def.Type, len(b.net.Nodes()))
	}
	env := &SinkEnv{
		Network: b.net.Name(),
		Def:     def,
		Label:   label,
		Logger:  b.cfg.logger,
		Out:     b.cfg.out,
		built:   b.built,
	}
	sink, err := factory(env)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return sink, label, nil
}

func (b *builder) compile(path, src string) (*expr.Expr, error) {
	x, err := b.catalog.Evaluator.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// combiner adapts c to a fan-in function. An error is logged and the pair
// yields nil.
func (b *builder) combiner(name string, c Combiner) func(any, any) any {
	return func(top, bottom any) any {
		v, err := c(top, bottom)
		if err != nil {
			b.cfg.logger.Warn("combiner failed",
				slog.String("combine", name),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return v
	}
}

// predicate adapts x to a filter. An evaluation error counts as no match
// and is logged.
func (b *builder) predicate(x *expr.Expr) func(any) bool {
	return func(v any) bool {
		ok, err := x.Match(v)
		if err != nil {
			b.cfg.logger.Warn("predicate failed",
				slog.String("expr", x.String()),
				slog.String("error", err.Error()),
			)
			return false
		}
		return ok
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

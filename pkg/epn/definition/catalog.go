package definition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/csadilek/epn/pkg/epn/config"
	"github.com/csadilek/epn/pkg/epn/expr"
	"github.com/csadilek/epn/pkg/epn/ext/sqlite"
	"github.com/csadilek/epn/pkg/epn/registry"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// SourceFactory creates a root source from its definition.
type SourceFactory func(def Source) (stream.Source[any], error)

// TransformFunc is a named payload transformation.
type TransformFunc func(v any) (any, error)

// Combiner merges a joined pair. An error is logged by the network builder
// and the pair yields nil.
type Combiner func(top, bottom any) (any, error)

// SinkFactory creates a terminal sink. env gives access to the build.
type SinkFactory func(env *SinkEnv) (stream.Subscriber[any], error)

// SinkEnv is passed to a SinkFactory.
type SinkEnv struct {
	Network string
	Def     Sink
	Label   string
	Logger  *slog.Logger
	Out     io.Writer

	built *Built
}

// Params returns the sink parameters as a config section.
func (e *SinkEnv) Params() config.Config {
	return config.New(e.Def.Params)
}

// Collect registers c so that Built.Collected returns its values under the
// sink label. A label can be collected only once.
func (e *SinkEnv) Collect(c *stream.CollectSink[any]) error {
	if _, ok := e.built.collectors[e.Label]; ok {
		return fmt.Errorf("collect: label %q is already collected", e.Label)
	}
	e.built.collectors[e.Label] = c
	return nil
}

// OnClose registers fn to run on Built.Close.
func (e *SinkEnv) OnClose(fn func() error) {
	e.built.closers = append(e.built.closers, fn)
}

// Catalog holds the named sources, transforms, combiners and sinks a
// definition may refer to, and the evaluator for its expressions.
type Catalog struct {
	Sources    *registry.Registry[string, SourceFactory]
	Transforms *registry.Registry[string, TransformFunc]
	Combiners  *registry.Registry[string, Combiner]
	Sinks      *registry.Registry[string, SinkFactory]
	Evaluator  *expr.Evaluator
}

// NewCatalog returns a catalog with the built-in entries:
//
//	sources:    range (start, count), values (values)
//	transforms: identity, to_string, double, square, negate, repeat
//	combiners:  sum, concat, pair
//	sinks:      collect, log, stdout, sqlite (path)
func NewCatalog() *Catalog {
	c := &Catalog{
		Sources:    registry.New[string, SourceFactory](),
		Transforms: registry.New[string, TransformFunc](),
		Combiners:  registry.New[string, Combiner](),
		Sinks:      registry.New[string, SinkFactory](),
		Evaluator:  expr.New(),
	}

	c.Sources.Register("range", rangeSource)
	c.Sources.Register("values", valuesSource)

	c.Transforms.RegisterMany(map[string]TransformFunc{
		"identity":  func(v any) (any, error) { return v, nil },
		"to_string": func(v any) (any, error) { return fmt.Sprint(v), nil },
		"double":    exprTransform("value * 2"),
		"square":    exprTransform("value * value"),
		"negate":    exprTransform("-value"),
		"repeat": func(v any) (any, error) {
			s := fmt.Sprint(v)
			return s + s, nil
		},
	})

	c.Combiners.RegisterMany(map[string]Combiner{
		"sum": exprCombiner(expr.MustCompile("top + bottom")),
		"concat": func(top, bottom any) (any, error) {
			return fmt.Sprint(top) + fmt.Sprint(bottom), nil
		},
		"pair": func(top, bottom any) (any, error) { return []any{top, bottom}, nil },
	})

	c.Sinks.RegisterMany(map[string]SinkFactory{
		"collect": collectSink,
		"log":     logSink,
		"stdout":  stdoutSink,
		"sqlite":  sqliteSink,
	})
	return c
}

func rangeSource(def Source) (stream.Source[any], error) {
	params := config.New(def.Params)
	start := params.Int("start", 0)
	count := params.Int("count", 0)
	if count < 0 {
		return nil, fmt.Errorf("range: negative count %d", count)
	}
	return stream.NewFuncSource[any](func(ctx context.Context, emit func(any) error) error {
		for i := start; i < start+count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(i); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

func valuesSource(def Source) (stream.Source[any], error) {
	raw, ok := def.Params["values"]
	if !ok {
		return nil, fmt.Errorf("values: missing values")
	}
	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("values: want a list, got %T", raw)
	}
	return stream.NewSliceSource(values), nil
}

func exprTransform(src string) TransformFunc {
	x := expr.MustCompile(src)
	return x.Apply
}

// exprCombiner evaluates x with the pair bound to top and bottom.
func exprCombiner(x *expr.Expr) Combiner {
	return func(top, bottom any) (any, error) {
		return x.Value(map[string]any{"top": top, "bottom": bottom})
	}
}

func collectSink(env *SinkEnv) (stream.Subscriber[any], error) {
	c := stream.NewCollectSink[any]()
	if err := env.Collect(c); err != nil {
		return nil, err
	}
	return c, nil
}

func logSink(env *SinkEnv) (stream.Subscriber[any], error) {
	level := env.Params().LogLevel("level", slog.LevelInfo)
	logger := env.Logger.With(slog.String("sink", env.Label))
	return stream.NewFuncSink(func(ctx context.Context, v any) error {
		logger.Log(ctx, level, "event", slog.Any("value", v))
		return nil
	}).OnFailure(func(err error) {
		logger.Warn("upstream failed", slog.String("error", err.Error()))
	}), nil
}

func stdoutSink(env *SinkEnv) (stream.Subscriber[any], error) {
	prefix := env.Params().String("prefix", env.Label+": ")
	return stream.NewFuncSink(func(_ context.Context, v any) error {
		_, err := fmt.Fprintf(env.Out, "%s%v\n", prefix, v)
		return err
	}), nil
}

func sqliteSink(env *SinkEnv) (stream.Subscriber[any], error) {
	path := env.Params().String("path", "")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	env.OnClose(store.Close)
	return sqlite.NewSink[any](store, env.Network, env.Label), nil
}

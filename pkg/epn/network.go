package epn

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/csadilek/epn/pkg/epn/observability"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Network owns the nodes built for it: its root sources and terminal sinks.
// A single Start drives every root.
//
// Building a network is NOT thread-safe: construct it from one goroutine,
// then Start it. Introspection (Nodes, Graph, Walk, Validate) is safe at any
// time.
type Network struct {
	name string
	cfg  options

	mu    sync.RWMutex
	nodes []*Node
	roots []*root
	sinks []int
	errs  []error

	started atomic.Bool
}

// root is a source registered with FromSource.
type root struct {
	node  *Node
	start func(context.Context) error
	fail  func(error)
}

// Named creates an empty network.
func Named(name string, opts ...Option) *Network {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Network{name: name, cfg: cfg}
}

// New creates an empty network with a random name.
func New(opts ...Option) *Network {
	return Named(uuid.New().String(), opts...)
}

// Name returns the network name.
func (n *Network) Name() string {
	return n.name
}

// Nodes returns every node in creation order.
func (n *Network) Nodes() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Node(nil), n.nodes...)
}

// Roots returns the source nodes in registration order.
func (n *Network) Roots() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Node, len(n.roots))
	for i, r := range n.roots {
		out[i] = r.node
	}
	return out
}

// Sinks returns the sink nodes in registration order.
func (n *Network) Sinks() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Node, len(n.sinks))
	for i, id := range n.sinks {
		out[i] = n.nodes[id]
	}
	return out
}

// Err returns the builder misuse recorded so far, joined, or nil.
func (n *Network) Err() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return errors.Join(n.errs...)
}

// Validate reports recorded builder misuse, a missing root and every outlet
// that nothing consumes. Multiple errors are joined together.
func (n *Network) Validate() error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	errs := append([]error(nil), n.errs...)
	if len(n.roots) == 0 {
		errs = append(errs, ErrNoRoots)
	}
	for _, node := range n.nodes {
		for _, port := range node.kind.outlets() {
			if node.consumers[port] == 0 {
				errs = append(errs, fmt.Errorf("%w: %s outlet %s has no consumer",
					ErrUnterminatedBranch, node.Label(), port))
			}
		}
	}
	return errors.Join(errs...)
}

// Start validates the network, then drives every root once. Roots run one
// after another unless WithConcurrentStart was given. A failing root does
// not stop the others; their errors are returned joined, each wrapped in a
// *RootError. A network can be started only once.
func (n *Network) Start(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := n.Validate(); err != nil {
		return err
	}
	if !n.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	n.mu.RLock()
	roots := append([]*root(nil), n.roots...)
	n.mu.RUnlock()

	ctx, span := n.cfg.spans.StartNetworkSpan(ctx, n.name, len(roots))
	began := time.Now()
	observability.LogNetworkStart(n.cfg.logger, n.name, len(roots))

	errs := make([]error, len(roots))
	if n.cfg.concurrent {
		var g errgroup.Group
		if n.cfg.limit > 0 {
			g.SetLimit(n.cfg.limit)
		}
		for i, r := range roots {
			g.Go(func() error {
				errs[i] = n.runRoot(ctx, r)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, r := range roots {
			errs[i] = n.runRoot(ctx, r)
		}
	}

	err := errors.Join(errs...)
	elapsed := time.Since(began)
	n.cfg.metrics.RecordNetworkRun(ctx, n.name, err == nil, elapsed)
	n.cfg.spans.EndSpanWithError(span, err)
	durationMs := float64(elapsed.Microseconds()) / 1000
	if err != nil {
		observability.LogNetworkError(n.cfg.logger, n.name, err, durationMs)
	} else {
		observability.LogNetworkComplete(n.cfg.logger, n.name, durationMs, len(roots))
	}
	return err
}

// Started reports whether Start has run.
func (n *Network) Started() bool {
	return n.started.Load()
}

func (n *Network) runRoot(ctx context.Context, r *root) (err error) {
	label := r.node.Label()
	ctx, span := n.cfg.spans.StartRootSpan(ctx, label)
	done := observability.TimedOperation()
	began := time.Now()
	observability.LogRootStart(n.cfg.logger, label)

	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Node: label, Value: v, Stack: string(debug.Stack())}
		}
		if err != nil {
			err = &RootError{Root: label, Err: err}
			observability.LogRootError(n.cfg.logger, label, err)
			if n.cfg.errorPolicy == PropagateFailures && r.fail != nil {
				r.fail(err)
			}
		} else {
			observability.LogRootComplete(n.cfg.logger, label, done())
		}
		n.cfg.metrics.RecordRootRun(ctx, n.name, label, time.Since(began), err)
		n.cfg.spans.EndSpanWithError(span, err)
	}()

	return r.start(ctx)
}

// addNode appends a node wired to parents and marks their outlets consumed.
func (n *Network) addNode(kind Kind, nc nodeConfig, parents ...edge) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	node := &Node{
		net:       n,
		id:        len(n.nodes),
		kind:      kind,
		name:      nc.name,
		parents:   parents,
		consumers: make(map[Port]int),
	}
	for _, p := range parents {
		n.nodes[p.node].consumers[p.port]++
	}
	n.nodes = append(n.nodes, node)
	return node
}

func (n *Network) addRoot(r *root) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roots = append(n.roots, r)
}

func (n *Network) addSink(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, node.id)
}

// record stores a builder misuse.
func (n *Network) record(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

// streamOptions returns the options for an operator the builder creates.
func (n *Network) streamOptions(node *Node, nc nodeConfig) []stream.Option {
	policy := n.cfg.policy
	if nc.hasPolicy {
		policy = nc.policy
	}
	opts := []stream.Option{
		stream.WithName(node.Label()),
		stream.WithPolicy(policy),
		stream.WithLogger(observability.EnrichLogger(n.cfg.logger, n.name, node.Label())),
		stream.WithMetrics(n.cfg.metrics),
	}
	if n.cfg.onDrop != nil {
		opts = append(opts, stream.WithOnDrop(n.cfg.onDrop))
	}
	if n.cfg.errorPolicy == IgnoreFailures {
		opts = append(opts, stream.WithIgnoreFailures())
	}
	return opts
}

package epn

import "fmt"

// Kind is the role of a node in a network.
type Kind string

const (
	KindSource    Kind = "source"
	KindFilter    Kind = "filter"
	KindTransform Kind = "transform"
	KindProcessor Kind = "processor"
	KindSplit     Kind = "split"
	KindJoin      Kind = "join"
	KindSink      Kind = "sink"
)

// Port names an outlet of a node. Splits have a top and a bottom outlet;
// every other emitting node has a single outlet.
type Port string

const (
	PortOut    Port = "out"
	PortTop    Port = "top"
	PortBottom Port = "bottom"
)

// outlets returns the ports a node of kind k publishes on.
func (k Kind) outlets() []Port {
	switch k {
	case KindSink:
		return nil
	case KindSplit:
		return []Port{PortTop, PortBottom}
	default:
		return []Port{PortOut}
	}
}

// edge is a parent reference: the parent node index and the outlet used.
type edge struct {
	node int
	port Port
}

// Node is a vertex of a network. Nodes are created by the builder and never
// change their wiring afterwards.
type Node struct {
	net       *Network
	id        int
	kind      Kind
	name      string
	parents   []edge
	consumers map[Port]int
}

// ID returns the node's stable index within its network.
func (n *Node) ID() int { return n.id }

// Kind returns the node's role.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the explicit name given with As, or "".
func (n *Node) Name() string { return n.name }

// Label returns the display label: the explicit name, or kind#id.
func (n *Node) Label() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("%s#%d", n.kind, n.id)
}

// Parents returns the nodes this node consumes from, in input order.
// A join has two parents: top first.
func (n *Node) Parents() []*Node {
	n.net.mu.RLock()
	defer n.net.mu.RUnlock()

	out := make([]*Node, len(n.parents))
	for i, p := range n.parents {
		out[i] = n.net.nodes[p.node]
	}
	return out
}

func (n *Node) String() string {
	return n.Label()
}

// GraphNode is a node of an exported Graph.
type GraphNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// GraphEdge is a directed edge of an exported Graph, from parent to child.
type GraphEdge struct {
	From int  `json:"from"`
	To   int  `json:"to"`
	Port Port `json:"port"`
}

// Graph is the parent-edge export of a network, as seen from its sinks.
type Graph struct {
	Name  string      `json:"name"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Walk visits every node reachable backwards from the network's sinks,
// each exactly once: depth-first from each sink in registration order,
// a node before its parents. Returning false from fn stops the walk.
func (n *Network) Walk(fn func(*Node) bool) {
	n.mu.RLock()
	nodes := n.nodes
	sinks := append([]int(nil), n.sinks...)
	n.mu.RUnlock()

	visited := make([]bool, len(nodes))
	stack := make([]int, 0, len(sinks))
	for i := len(sinks) - 1; i >= 0; i-- {
		stack = append(stack, sinks[i])
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		node := nodes[id]
		if !fn(node) {
			return
		}
		for i := len(node.parents) - 1; i >= 0; i-- {
			if p := node.parents[i].node; !visited[p] {
				stack = append(stack, p)
			}
		}
	}
}

// Graph exports the nodes and edges reachable from the sinks.
func (n *Network) Graph() Graph {
	g := Graph{Name: n.name}
	n.Walk(func(node *Node) bool {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:    node.id,
			Label: node.Label(),
			Kind:  node.kind,
		})
		for _, p := range node.parents {
			g.Edges = append(g.Edges, GraphEdge{From: p.node, To: node.id, Port: p.port})
		}
		return true
	})
	return g
}

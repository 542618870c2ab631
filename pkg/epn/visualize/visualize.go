package visualize

import (
	"cmp"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/csadilek/epn/pkg/epn"
	"github.com/csadilek/epn/pkg/epn/codec"
)

// Format selects the output of Render.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ErrUnknownFormat is returned by Render for an unsupported format.
var ErrUnknownFormat = errors.New("visualize: unknown format")

// File names written by WriteDir.
const (
	HTMLFile = "index.html"
	JSONFile = "epn.json"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Render writes g to w in format f.
func Render(w io.Writer, g epn.Graph, f Format) error {
	switch f {
	case FormatDOT:
		return renderDOT(w, g)
	case FormatJSON:
		return renderJSON(w, g)
	case FormatHTML:
		return renderHTML(w, g)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteDir writes index.html and epn.json for g into dir and returns the
// directory. An empty dir creates a new temporary directory named after the
// network.
func WriteDir(dir string, g epn.Graph) (string, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "epn_"+safeName(g.Name))
		if err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(dir, HTMLFile), g, FormatHTML); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(dir, JSONFile), g, FormatJSON); err != nil {
		return "", err
	}
	return dir, nil
}

func writeFile(path string, g epn.Graph, f Format) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(path), cerr)
		}
	}()

	if err := Render(file, g, f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sorted returns copies of the nodes and edges ordered by id, so output does
// not depend on walk order.
func sorted(g epn.Graph) ([]epn.GraphNode, []epn.GraphEdge) {
	nodes := slices.Clone(g.Nodes)
	slices.SortFunc(nodes, func(a, b epn.GraphNode) int {
		return cmp.Compare(a.ID, b.ID)
	})

	edges := slices.Clone(g.Edges)
	slices.SortFunc(edges, func(a, b epn.GraphEdge) int {
		return cmp.Or(
			cmp.Compare(a.From, b.From),
			cmp.Compare(a.To, b.To),
			cmp.Compare(a.Port, b.Port),
		)
	})
	return nodes, edges
}

var dotShapes = map[epn.Kind]string{
	epn.KindSource:    "invhouse",
	epn.KindFilter:    "diamond",
	epn.KindTransform: "box",
	epn.KindProcessor: "box3d",
	epn.KindSplit:     "triangle",
	epn.KindJoin:      "invtriangle",
	epn.KindSink:      "house",
}

func renderDOT(w io.Writer, g epn.Graph) error {
	nodes, edges := sorted(g)

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(g.Name))
	b.WriteString("  rankdir=LR;\n")
	for _, n := range nodes {
		shape := dotShapes[n.Kind]
		if shape == "" {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  n%d [label=%s, shape=%s];\n", n.ID, strconv.Quote(n.Label), shape)
	}
	for _, e := range edges {
		if e.Port == epn.PortOut || e.Port == "" {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&b, "  n%d -> n%d [label=%s];\n", e.From, e.To, strconv.Quote(string(e.Port)))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func renderJSON(w io.Writer, g epn.Graph) error {
	nodes, edges := sorted(g)
	g.Nodes, g.Edges = nodes, edges
	if g.Nodes == nil {
		g.Nodes = []epn.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []epn.GraphEdge{}
	}

	data, err := codec.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// visNode and visEdge are the vis-network data set shapes.
type visNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

type visEdge struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Arrows string `json:"arrows"`
	Label  string `json:"label,omitempty"`
}

type page struct {
	Name  string
	Nodes template.JS
	Edges template.JS
}

func renderHTML(w io.Writer, g epn.Graph) error {
	nodes, edges := sorted(g)

	vn := make([]visNode, len(nodes))
	for i, n := range nodes {
		vn[i] = visNode{ID: n.ID, Label: n.Label, Group: string(n.Kind)}
	}
	ve := make([]visEdge, len(edges))
	for i, e := range edges {
		ve[i] = visEdge{From: e.From, To: e.To, Arrows: "to"}
		if e.Port != epn.PortOut {
			ve[i].Label = string(e.Port)
		}
	}

	// The standard codec escapes <, > and &, so the data is safe inline.
	nodeJSON, err := codec.Marshal(vn)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgeJSON, err := codec.Marshal(ve)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	return pageTemplate.Execute(w, page{
		Name:  g.Name,
		Nodes: template.JS(nodeJSON),
		Edges: template.JS(edgeJSON),
	})
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

var pageTemplate = template.Must(template.New("epn").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Name}}</title>
  <script src="https://unpkg.com/vis-network/standalone/umd/vis-network.min.js"></script>
  <style>
    body { font-family: sans-serif; margin: 0; }
    h1 { font-size: 1.2em; margin: 0.5em; }
    #network { width: 100%; height: 90vh; border-top: 1px solid #ddd; }
  </style>
</head>
<body>
  <h1>{{.Name}}</h1>
  <div id="network"></div>
  <script>
    var _nodes = {{.Nodes}};
    var _edges = {{.Edges}};
    new vis.Network(document.getElementById("network"), {
      nodes: new vis.DataSet(_nodes),
      edges: new vis.DataSet(_edges)
    }, {
      layout: { hierarchical: { direction: "LR", sortMethod: "directed" } },
      physics: false
    });
  </script>
</body>
</html>
`))

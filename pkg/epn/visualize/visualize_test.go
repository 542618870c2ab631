package visualize_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csadilek/epn/pkg/epn"
	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/stream"
	"github.com/csadilek/epn/pkg/epn/visualize"
)

// testGraph builds numbers -> split -> (filter -> sink, sink).
func testGraph(t *testing.T) epn.Graph {
	t.Helper()
	n := epn.Named("viz")
	s := epn.FromSource(n, stream.NewRangeSource(0, 3), epn.As("numbers")).Split()
	s.Top().Filter(func(i int) bool { return i > 0 }).ConsumedBy(stream.NewCollectSink[int]())
	s.Bottom().ConsumedBy(stream.NewCollectSink[int](), epn.As("<b>"))
	require.NoError(t, n.Validate())
	return n.Graph()
}

func TestRender_DOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, visualize.Render(&buf, testGraph(t), visualize.FormatDOT))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `digraph "viz" {`))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `n0 [label="numbers", shape=invhouse];`)
	assert.Contains(t, out, `n1 [label="split#1", shape=triangle];`)
	assert.Contains(t, out, `n4 [label="<b>", shape=house];`)
	assert.Contains(t, out, "n0 -> n1;\n")
	assert.Contains(t, out, `n1 -> n2 [label="top"];`)
	assert.Contains(t, out, `n1 -> n4 [label="bottom"];`)
	assert.Contains(t, out, "n2 -> n3;\n")

	// Nodes are listed by id.
	assert.Less(t, strings.Index(out, "n0 ["), strings.Index(out, "n4 ["))
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, visualize.Render(&buf, testGraph(t), visualize.FormatJSON))

	var g epn.Graph
	require.NoError(t, codec.Unmarshal(buf.Bytes(), &g))
	assert.Equal(t, "viz", g.Name)
	require.Len(t, g.Nodes, 5)
	for i, n := range g.Nodes {
		assert.Equal(t, i, n.ID)
	}
	assert.Equal(t, epn.KindSource, g.Nodes[0].Kind)
	assert.Equal(t, []epn.GraphEdge{
		{From: 0, To: 1, Port: epn.PortOut},
		{From: 1, To: 2, Port: epn.PortTop},
		{From: 1, To: 4, Port: epn.PortBottom},
		{From: 2, To: 3, Port: epn.PortOut},
	}, g.Edges)
}

func TestRender_JSONEmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, visualize.Render(&buf, epn.Graph{Name: "empty"}, visualize.FormatJSON))
	assert.Contains(t, buf.String(), `"nodes": []`)
	assert.Contains(t, buf.String(), `"edges": []`)
}

func TestRender_HTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, visualize.Render(&buf, testGraph(t), visualize.FormatHTML))

	out := buf.String()
	assert.Contains(t, out, "<title>viz</title>")
	assert.Contains(t, out, "var _nodes = [")
	assert.Contains(t, out, `"label":"numbers"`)
	assert.Contains(t, out, `"group":"split"`)
	assert.Contains(t, out, `"arrows":"to"`)
	assert.Contains(t, out, `"label":"top"`)
	assert.NotContains(t, out, `"label":"<b>"`, "labels must not break out of the script")
}

func TestRender_UnknownFormat(t *testing.T) {
	err := visualize.Render(&bytes.Buffer{}, testGraph(t), visualize.Format("svg"))
	assert.ErrorIs(t, err, visualize.ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    visualize.Format
		wantErr bool
	}{
		{in: "dot", want: visualize.FormatDOT},
		{in: "JSON", want: visualize.FormatJSON},
		{in: " html ", want: visualize.FormatHTML},
		{in: "png", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := visualize.ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, visualize.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteDir(t *testing.T) {
	t.Run("given dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		got, err := visualize.WriteDir(dir, testGraph(t))
		require.NoError(t, err)
		assert.Equal(t, dir, got)

		html, err := os.ReadFile(filepath.Join(dir, visualize.HTMLFile))
		require.NoError(t, err)
		assert.Contains(t, string(html), "vis.Network")

		data, err := os.ReadFile(filepath.Join(dir, visualize.JSONFile))
		require.NoError(t, err)
		var g epn.Graph
		require.NoError(t, codec.Unmarshal(data, &g))
		assert.Len(t, g.Nodes, 5)
	})

	t.Run("temp dir", func(t *testing.T) {
		got, err := visualize.WriteDir("", epn.Graph{Name: "a/b c"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = os.RemoveAll(got) })

		assert.Contains(t, filepath.Base(got), "epn_a_b_c")
		assert.FileExists(t, filepath.Join(got, visualize.HTMLFile))
		assert.FileExists(t, filepath.Join(got, visualize.JSONFile))
	})
}

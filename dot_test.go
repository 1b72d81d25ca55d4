package pipeline

import (
	"testing"

	gographviz "github.com/awalterschulze/gographviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDOT(t *testing.T, src string) *gographviz.Graph {
	t.Helper()
	ast, err := gographviz.ParseString(src)
	require.NoError(t, err)
	g := gographviz.NewGraph()
	require.NoError(t, gographviz.Analyse(ast, g))
	return g
}

func TestRenderDOT(t *testing.T) {
	t.Run("highlights the reported cycle", func(t *testing.T) {
		p := &Pipeline{
			Name:  "Loop",
			Nodes: nodes("A", "B", "C", "D"),
			Edges: edges("A", "B", "B", "C", "C", "A", "C", "D"),
		}
		res, err := Analyze(p.Nodes, p.Edges)
		require.NoError(t, err)

		out, err := RenderDOT(p, res)
		require.NoError(t, err)
		assert.Contains(t, out, "digraph pipeline")

		g := readDOT(t, out)
		require.Len(t, g.Edges.Edges, 4)
		assert.Equal(t, "red", g.Nodes.Lookup[`"A"`].Attrs["color"])
		assert.Empty(t, g.Nodes.Lookup[`"D"`].Attrs["color"])

		red := 0
		for _, e := range g.Edges.Edges {
			if e.Attrs["color"] == "red" {
				red++
			}
		}
		assert.Equal(t, 3, red)
	})

	t.Run("skips dangling edges", func(t *testing.T) {
		p := &Pipeline{Nodes: nodes("A"), Edges: edges("A", "ghost")}

		out, err := RenderDOT(p, nil)
		require.NoError(t, err)

		g := readDOT(t, out)
		assert.Len(t, g.Nodes.Nodes, 1)
		assert.Empty(t, g.Edges.Edges)
	})

	t.Run("quotes awkward ids", func(t *testing.T) {
		p := &Pipeline{Nodes: []Node{{ID: `say "hi"`}, {ID: "llm-1"}}, Edges: edges(`say "hi"`, "llm-1")}

		out, err := RenderDOT(p, nil)
		require.NoError(t, err)

		g := readDOT(t, out)
		assert.Len(t, g.Edges.Edges, 1)
	})
}

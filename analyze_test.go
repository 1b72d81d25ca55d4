package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{ID: id, Type: "customInput", Data: map[string]any{"inputName": id}}
	}
	return out
}

func edges(pairs ...string) []Edge {
	var out []Edge
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Edge{
			ID:     fmt.Sprintf("e%d", i/2),
			Source: pairs[i],
			Target: pairs[i+1],
		})
	}
	return out
}

func TestAnalyze(t *testing.T) {
	t.Run("empty graph is a DAG", func(t *testing.T) {
		res, err := Analyze(nil, nil)
		require.NoError(t, err)

		assert.True(t, res.IsDAG)
		assert.Equal(t, 0, res.NumNodes)
		assert.Equal(t, 0, res.NumEdges)
		assert.Nil(t, res.Cycles)
	})

	t.Run("chain is a DAG", func(t *testing.T) {
		res, err := Analyze(nodes("A", "B", "C"), edges("A", "B", "B", "C"))
		require.NoError(t, err)

		assert.True(t, res.IsDAG)
		assert.Equal(t, 3, res.NumNodes)
		assert.Equal(t, 2, res.NumEdges)
		assert.Nil(t, res.Cycles)
	})

	t.Run("diamond is a DAG", func(t *testing.T) {
		res, err := Analyze(nodes("A", "B", "C", "D"), edges("A", "B", "A", "C", "B", "D", "C", "D"))
		require.NoError(t, err)

		assert.True(t, res.IsDAG)
	})

	t.Run("triangle reports the full cycle", func(t *testing.T) {
		res, err := Analyze(nodes("A", "B", "C"), edges("A", "B", "B", "C", "C", "A"))
		require.NoError(t, err)

		assert.False(t, res.IsDAG)
		require.NotNil(t, res.Cycles)
		assert.Equal(t, []string{"A", "B", "C"}, res.Cycles.CyclePath)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, res.Cycles.CycleNodeIDs)
		assert.Equal(t, []EdgePair{{"A", "B"}, {"B", "C"}, {"C", "A"}}, res.Cycles.CycleEdges)
	})

	t.Run("cycle path starts at the gray node", func(t *testing.T) {
		// S leads into the loop B → C → D → B; S itself is not on it.
		res, err := Analyze(nodes("S", "B", "C", "D"), edges("S", "B", "B", "C", "C", "D", "D", "B"))
		require.NoError(t, err)

		require.NotNil(t, res.Cycles)
		assert.Equal(t, []string{"B", "C", "D"}, res.Cycles.CyclePath)
		assert.Equal(t, []EdgePair{{"B", "C"}, {"C", "D"}, {"D", "B"}}, res.Cycles.CycleEdges)
	})

	t.Run("self loop", func(t *testing.T) {
		res, err := Analyze(nodes("A"), edges("A", "A"))
		require.NoError(t, err)

		assert.False(t, res.IsDAG)
		require.NotNil(t, res.Cycles)
		assert.Equal(t, []string{"A"}, res.Cycles.CyclePath)
		assert.Equal(t, []string{"A"}, res.Cycles.CycleNodeIDs)
		assert.Equal(t, []EdgePair{{"A", "A"}}, res.Cycles.CycleEdges)
	})

	t.Run("disjoint cycles report the first in node order", func(t *testing.T) {
		n := nodes("A", "B", "C", "D", "E")
		e := edges("C", "D", "D", "C", "A", "B", "B", "A")

		res, err := Analyze(n, e)
		require.NoError(t, err)
		require.NotNil(t, res.Cycles)
		assert.Equal(t, []string{"A", "B"}, res.Cycles.CyclePath)

		// Reordering nodes changes which cycle is found first.
		res, err = Analyze(nodes("E", "D", "C", "B", "A"), e)
		require.NoError(t, err)
		require.NotNil(t, res.Cycles)
		assert.Equal(t, []string{"D", "C"}, res.Cycles.CyclePath)
	})

	t.Run("edge order decides which branch closes first", func(t *testing.T) {
		// Two loops through A: A → B → A and A → C → A.
		n := nodes("A", "B", "C")

		res, err := Analyze(n, edges("A", "B", "A", "C", "B", "A", "C", "A"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, res.Cycles.CyclePath)

		res, err = Analyze(n, edges("A", "C", "A", "B", "B", "A", "C", "A"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, res.Cycles.CyclePath)
	})

	t.Run("dangling edge is ignored but counted", func(t *testing.T) {
		res, err := Analyze(nodes("A"), edges("A", "ghost", "ghost", "A"))
		require.NoError(t, err)

		assert.True(t, res.IsDAG)
		assert.Equal(t, 1, res.NumNodes)
		assert.Equal(t, 2, res.NumEdges)
		assert.Nil(t, res.Cycles)
	})

	t.Run("parallel edges are counted independently", func(t *testing.T) {
		res, err := Analyze(nodes("A", "B"), edges("A", "B", "A", "B"))
		require.NoError(t, err)

		assert.True(t, res.IsDAG)
		assert.Equal(t, 2, res.NumEdges)
	})

	t.Run("duplicate node ids are rejected", func(t *testing.T) {
		_, err := Analyze([]Node{{ID: "x"}, {ID: "x"}}, nil)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidGraph))
		assert.Contains(t, err.Error(), `"x"`)
	})

	t.Run("identical input gives identical output", func(t *testing.T) {
		n := nodes("A", "B", "C", "D", "E", "F")
		e := edges("A", "B", "B", "C", "C", "D", "D", "B", "E", "F", "F", "E")

		first, err := Analyze(n, e)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := Analyze(n, e)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("long chain does not exhaust the stack", func(t *testing.T) {
		const size = 200000
		n := make([]Node, size)
		e := make([]Edge, 0, size)
		for i := range n {
			n[i] = Node{ID: fmt.Sprintf("n%d", i)}
			if i > 0 {
				e = append(e, Edge{Source: n[i-1].ID, Target: n[i].ID})
			}
		}
		e = append(e, Edge{Source: n[size-1].ID, Target: n[0].ID})

		res, err := Analyze(n, e)
		require.NoError(t, err)
		assert.False(t, res.IsDAG)
		assert.Len(t, res.Cycles.CyclePath, size)
	})
}

func TestAnalyzeScope(t *testing.T) {
	t.Run("tangle widens to every node between cycles", func(t *testing.T) {
		// A ⇄ B, B → C, C ⇄ D, D → E (sink), F → A (source).
		n := nodes("F", "A", "B", "C", "D", "E")
		e := edges("F", "A", "A", "B", "B", "A", "B", "C", "C", "D", "D", "C", "D", "E")

		res, err := AnalyzeScope(n, e, ScopeTangle)
		require.NoError(t, err)
		require.NotNil(t, res.Cycles)

		assert.Equal(t, []string{"A", "B"}, res.Cycles.CyclePath)
		assert.Equal(t, []string{"A", "B", "C", "D"}, res.Cycles.CycleNodeIDs)
		assert.Equal(t, []EdgePair{{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "D"}, {"D", "C"}}, res.Cycles.CycleEdges)
	})

	t.Run("tangle prunes a tail hanging off the cycle", func(t *testing.T) {
		n := nodes("A", "B", "C", "D")
		e := edges("A", "B", "B", "C", "C", "A", "C", "D")

		res, err := AnalyzeScope(n, e, ScopeTangle)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, res.Cycles.CycleNodeIDs)
		assert.Len(t, res.Cycles.CycleEdges, 3)
	})

	t.Run("tangle keeps parallel edges", func(t *testing.T) {
		res, err := AnalyzeScope(nodes("A", "B"), edges("A", "B", "A", "B", "B", "A"), ScopeTangle)
		require.NoError(t, err)
		assert.Equal(t, []EdgePair{{"A", "B"}, {"A", "B"}, {"B", "A"}}, res.Cycles.CycleEdges)
	})

	t.Run("tangle on a DAG reports nothing", func(t *testing.T) {
		res, err := AnalyzeScope(nodes("A", "B"), edges("A", "B"), ScopeTangle)
		require.NoError(t, err)
		assert.True(t, res.IsDAG)
		assert.Nil(t, res.Cycles)
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := AnalyzeScope(nodes("A"), nil, Scope("scc"))
		assert.True(t, errors.Is(err, ErrUnknownScope))
	})
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"", ScopeCycle, false},
		{"cycle", ScopeCycle, false},
		{"tangle", ScopeTangle, false},
		{"Tangle", "", true},
		{"all", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownScope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepare(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		p := &Pipeline{Nodes: []Node{{ID: "A"}, {ID: "B"}}, Edges: []Edge{{Source: "A", Target: "B"}}}

		require.NoError(t, p.Prepare())
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, DefaultName, p.Name)
		assert.NotEmpty(t, p.Edges[0].ID)
		assert.NotNil(t, p.Nodes[0].Data)
	})

	t.Run("keeps caller ids", func(t *testing.T) {
		p := &Pipeline{ID: "p1", Name: "Mine", Edges: edges("A", "B")}

		require.NoError(t, p.Prepare())
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, "Mine", p.Name)
		assert.Equal(t, "e0", p.Edges[0].ID)
	})

	t.Run("rejects duplicate node ids", func(t *testing.T) {
		p := &Pipeline{Nodes: nodes("A", "A")}
		assert.ErrorIs(t, p.Prepare(), ErrInvalidGraph)
	})

	t.Run("rejects duplicate edge ids", func(t *testing.T) {
		p := &Pipeline{Nodes: nodes("A", "B"), Edges: []Edge{
			{ID: "e", Source: "A", Target: "B"},
			{ID: "e", Source: "B", Target: "A"},
		}}
		assert.ErrorIs(t, p.Prepare(), ErrInvalidGraph)
	})
}

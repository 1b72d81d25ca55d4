// Package storetest holds behaviour checks shared by every pipeline.Store driver.
package storetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/pipeline"
)

// Run exercises s against the pipeline.Store contract. The schema must
// already exist and be empty.
func Run(t *testing.T, s pipeline.Store) {
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		saved, err := s.SavePipeline(ctx, sample("round-trip"))
		require.NoError(t, err)
		assert.False(t, saved.UpdatedAt.IsZero())

		got, err := s.GetPipeline(ctx, "round-trip")
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "Sample", got.Name)
		require.Len(t, got.Nodes, 3)
		assert.Equal(t, []string{"input-1", "llm-1", "output-1"}, nodeIDs(got))
		assert.Equal(t, "llm", got.Nodes[1].Type)
		assert.Equal(t, "gpt-4", got.Nodes[1].Data["model"])
		require.Len(t, got.Edges, 3)
		assert.Equal(t, "e1", got.Edges[0].ID)
		assert.Equal(t, "output-1", got.Edges[2].Source)
		assert.Equal(t, "llm-1", got.Edges[2].Target)
	})

	t.Run("canvas layout survives a round trip", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, &pipeline.Pipeline{
			ID: "canvas",
			Nodes: []pipeline.Node{
				{ID: "A", Type: "llm", Position: json.RawMessage(`{"x":10,"y":20}`), Data: map[string]any{}},
				{ID: "B"},
			},
			Edges: []pipeline.Edge{
				{ID: "e", Source: "A", Target: "A", SourceHandle: "A-out", TargetHandle: "A-in"},
			},
		})
		require.NoError(t, err)

		got, err := s.GetPipeline(ctx, "canvas")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 2)

		assert.JSONEq(t, `{"x":10,"y":20}`, string(got.Nodes[0].Position))
		assert.NotNil(t, got.Nodes[0].Data)
		assert.Empty(t, got.Nodes[0].Data)
		assert.Empty(t, got.Nodes[1].Position)
		require.Len(t, got.Edges, 1)
		assert.Equal(t, "A-out", got.Edges[0].SourceHandle)
		assert.Equal(t, "A-in", got.Edges[0].TargetHandle)

		b, err := json.Marshal(got.Nodes[0])
		require.NoError(t, err)
		assert.Contains(t, string(b), `"data":{}`)

		_, err = s.AddNode(ctx, "canvas", &pipeline.Node{ID: "C", Position: json.RawMessage(`{"x":1,"y":2}`)})
		require.NoError(t, err)
		require.NoError(t, s.UpdateNode(ctx, "canvas", &pipeline.Node{ID: "A", Type: "llm", Position: json.RawMessage(`{"x":30,"y":40}`)}))
		_, err = s.AddEdge(ctx, "canvas", &pipeline.Edge{ID: "f", Source: "A", Target: "C", SourceHandle: "A-out", TargetHandle: "C-in"})
		require.NoError(t, err)

		got, err = s.GetPipeline(ctx, "canvas")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 3)
		assert.JSONEq(t, `{"x":30,"y":40}`, string(got.Nodes[0].Position))
		assert.JSONEq(t, `{"x":1,"y":2}`, string(got.Nodes[2].Position))
		require.Len(t, got.Edges, 2)
		assert.Equal(t, "C-in", got.Edges[1].TargetHandle)
	})

	t.Run("save replaces previous snapshot", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, sample("replace"))
		require.NoError(t, err)

		_, err = s.SavePipeline(ctx, &pipeline.Pipeline{
			ID:    "replace",
			Name:  "Smaller",
			Nodes: []pipeline.Node{{ID: "only"}},
		})
		require.NoError(t, err)

		got, err := s.GetPipeline(ctx, "replace")
		require.NoError(t, err)
		assert.Equal(t, "Smaller", got.Name)
		assert.Equal(t, []string{"only"}, nodeIDs(got))
		assert.Empty(t, got.Edges)
	})

	t.Run("save assigns ids and default name", func(t *testing.T) {
		saved, err := s.SavePipeline(ctx, &pipeline.Pipeline{
			Nodes: []pipeline.Node{{ID: "a"}, {ID: "b"}},
			Edges: []pipeline.Edge{{Source: "a", Target: "b"}},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, pipeline.DefaultName, saved.Name)
		assert.NotEmpty(t, saved.Edges[0].ID)
	})

	t.Run("save rejects duplicate node ids", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, &pipeline.Pipeline{
			ID:    "dup",
			Nodes: []pipeline.Node{{ID: "x"}, {ID: "x"}},
		})
		assert.ErrorIs(t, err, pipeline.ErrInvalidGraph)

		got, err := s.GetPipeline(ctx, "dup")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := s.GetPipeline(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("node operations", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, sample("nodes"))
		require.NoError(t, err)

		id, err := s.AddNode(ctx, "nodes", &pipeline.Node{ID: "text-1", Type: "text", Data: map[string]any{"text": "{{input}}"}})
		require.NoError(t, err)
		assert.Equal(t, "text-1", id)

		_, err = s.AddNode(ctx, "nodes", &pipeline.Node{ID: "text-1"})
		assert.ErrorIs(t, err, pipeline.ErrInvalidGraph)

		generated, err := s.AddNode(ctx, "nodes", &pipeline.Node{Type: "note"})
		require.NoError(t, err)
		assert.NotEmpty(t, generated)

		_, err = s.AddNode(ctx, "missing", &pipeline.Node{ID: "z"})
		assert.ErrorIs(t, err, pipeline.ErrPipelineNotFound)

		require.NoError(t, s.UpdateNode(ctx, "nodes", &pipeline.Node{ID: "text-1", Type: "text", Data: map[string]any{"text": "hi"}}))
		assert.ErrorIs(t, s.UpdateNode(ctx, "nodes", &pipeline.Node{ID: "ghost"}), pipeline.ErrNodeNotFound)

		got, err := s.GetPipeline(ctx, "nodes")
		require.NoError(t, err)
		assert.Equal(t, []string{"input-1", "llm-1", "output-1", "text-1", generated}, nodeIDs(got))
		assert.Equal(t, "hi", got.Nodes[3].Data["text"])

		require.NoError(t, s.DeleteNode(ctx, "nodes", "llm-1"))
		require.NoError(t, s.DeleteNode(ctx, "nodes", "llm-1"))

		got, err = s.GetPipeline(ctx, "nodes")
		require.NoError(t, err)
		assert.NotContains(t, nodeIDs(got), "llm-1")
		assert.Empty(t, got.Edges, "edges touching the deleted node go with it")
	})

	t.Run("edge operations", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, sample("edges"))
		require.NoError(t, err)

		id, err := s.AddEdge(ctx, "edges", &pipeline.Edge{Source: "output-1", Target: "output-1"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		_, err = s.AddEdge(ctx, "edges", &pipeline.Edge{ID: "e1", Source: "input-1", Target: "output-1"})
		assert.ErrorIs(t, err, pipeline.ErrInvalidGraph)

		_, err = s.AddEdge(ctx, "missing", &pipeline.Edge{Source: "a", Target: "b"})
		assert.ErrorIs(t, err, pipeline.ErrPipelineNotFound)

		got, err := s.GetPipeline(ctx, "edges")
		require.NoError(t, err)
		require.Len(t, got.Edges, 4)
		assert.Equal(t, id, got.Edges[3].ID)

		require.NoError(t, s.DeleteEdge(ctx, "edges", "e3"))
		require.NoError(t, s.DeleteEdge(ctx, "edges", "e3"))

		got, err = s.GetPipeline(ctx, "edges")
		require.NoError(t, err)
		assert.Len(t, got.Edges, 3)
	})

	t.Run("list and delete", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, sample("listed"))
		require.NoError(t, err)

		list, err := s.ListPipelines(ctx)
		require.NoError(t, err)

		var found *pipeline.PipelineSummary
		for i := range list {
			if list[i].ID == "listed" {
				found = &list[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, 3, found.NumNodes)
		assert.Equal(t, 3, found.NumEdges)

		require.NoError(t, s.DeletePipeline(ctx, "listed"))
		require.NoError(t, s.DeletePipeline(ctx, "listed"))

		got, err := s.GetPipeline(ctx, "listed")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list is most recently updated first", func(t *testing.T) {
		_, err := s.SavePipeline(ctx, sample("order-a"))
		require.NoError(t, err)
		_, err = s.SavePipeline(ctx, sample("order-b"))
		require.NoError(t, err)
		_, err = s.AddNode(ctx, "order-a", &pipeline.Node{ID: "late"})
		require.NoError(t, err)

		list, err := s.ListPipelines(ctx)
		require.NoError(t, err)

		var order []string
		for _, sum := range list {
			if sum.ID == "order-a" || sum.ID == "order-b" {
				order = append(order, sum.ID)
			}
		}
		assert.Equal(t, []string{"order-a", "order-b"}, order)
	})

	t.Run("stored snapshot analyzes like the input", func(t *testing.T) {
		in := sample("analyze")
		want, err := pipeline.Analyze(in.Nodes, in.Edges)
		require.NoError(t, err)

		_, err = s.SavePipeline(ctx, in)
		require.NoError(t, err)
		got, err := s.GetPipeline(ctx, "analyze")
		require.NoError(t, err)

		res, err := pipeline.Analyze(got.Nodes, got.Edges)
		require.NoError(t, err)
		assert.Equal(t, want, res)
		assert.False(t, res.IsDAG)
	})
}

// sample is a three-node pipeline whose last edge closes a loop between the
// output and the LLM.
func sample(id string) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		ID:   id,
		Name: "Sample",
		Nodes: []pipeline.Node{
			{ID: "input-1", Type: "customInput", Data: map[string]any{"inputName": "question"}},
			{ID: "llm-1", Type: "llm", Data: map[string]any{"model": "gpt-4"}},
			{ID: "output-1", Type: "customOutput", Data: map[string]any{"outputName": "answer"}},
		},
		Edges: []pipeline.Edge{
			{ID: "e1", Source: "input-1", Target: "llm-1"},
			{ID: "e2", Source: "llm-1", Target: "output-1"},
			{ID: "e3", Source: "output-1", Target: "llm-1"},
		},
	}
}

func nodeIDs(p *pipeline.Pipeline) []string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultName is used for pipelines saved without a name.
const DefaultName = "Untitled Pipeline"

// Pipeline is a saved editor snapshot: the canvas nodes and the edges wiring them.
type Pipeline struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is a vertex on the canvas. Everything but ID is opaque to analysis;
// Position is kept verbatim so a loaded snapshot lands where it was saved.
type Node struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Position json.RawMessage `json:"position,omitempty"`
	Data     map[string]any  `json:"data"`
}

// Edge is a directed connection Source → Target. The handles name the ports
// the edge is attached to on the canvas.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// PipelineSummary is the listing view of a saved pipeline.
type PipelineSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NumNodes  int       `json:"num_nodes"`
	NumEdges  int       `json:"num_edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EdgePair is a (source, target) arc. It encodes as a two-element JSON array.
type EdgePair [2]string

// CycleInfo describes the cycle reported for a graph that is not a DAG.
// CyclePath closes implicitly: its last element points back to its first.
type CycleInfo struct {
	CyclePath    []string   `json:"cycle_path"`
	CycleNodeIDs []string   `json:"cycle_node_ids"`
	CycleEdges   []EdgePair `json:"cycle_edges"`
}

// AnalysisResult is the response to an analysis request.
// Cycles is nil when IsDAG is true.
type AnalysisResult struct {
	NumNodes int        `json:"num_nodes"`
	NumEdges int        `json:"num_edges"`
	IsDAG    bool       `json:"is_dag"`
	Cycles   *CycleInfo `json:"cycles,omitempty"`
}

// Prepare fills in defaults before a pipeline is persisted: a generated ID,
// DefaultName, empty node data, and generated edge IDs. It rejects duplicate
// node or edge ids.
func (p *Pipeline) Prepare() error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		p.Name = DefaultName
	}
	if err := Validate(p.Nodes); err != nil {
		return err
	}
	for i := range p.Nodes {
		if p.Nodes[i].Data == nil {
			p.Nodes[i].Data = map[string]any{}
		}
	}
	seen := make(map[string]bool, len(p.Edges))
	for i := range p.Edges {
		e := &p.Edges[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate edge id %q", ErrInvalidGraph, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

package pipeline

import (
	"fmt"
	"strconv"

	gographviz "github.com/awalterschulze/gographviz"
)

const (
	dotGraphName = "pipeline"
	cycleColor   = "red"
)

// RenderDOT renders p as a Graphviz digraph. If res reports a cycle, the
// nodes and arcs it names are drawn in red. Edges with an unknown endpoint
// are not drawn.
func RenderDOT(p *Pipeline, res *AnalysisResult) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(dotGraphName); err != nil {
		return "", fmt.Errorf("pipeline: dot name: %w", err)
	}
	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("pipeline: dot dir: %w", err)
	}
	if err := g.AddAttr(dotGraphName, "rankdir", "LR"); err != nil {
		return "", fmt.Errorf("pipeline: dot attr: %w", err)
	}
	if p.Name != "" {
		if err := g.AddAttr(dotGraphName, "label", strconv.Quote(p.Name)); err != nil {
			return "", fmt.Errorf("pipeline: dot attr: %w", err)
		}
	}

	hotNodes := make(map[string]bool)
	hotEdges := make(map[EdgePair]bool)
	if res != nil && res.Cycles != nil {
		for _, id := range res.Cycles.CycleNodeIDs {
			hotNodes[id] = true
		}
		for _, pair := range res.Cycles.CycleEdges {
			hotEdges[pair] = true
		}
	}

	known := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if known[n.ID] {
			continue
		}
		known[n.ID] = true

		label := n.ID
		if n.Type != "" {
			label += "\n" + n.Type
		}
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(label),
		}
		if hotNodes[n.ID] {
			attrs["color"] = cycleColor
			attrs["penwidth"] = "2"
		}
		if err := g.AddNode(dotGraphName, strconv.Quote(n.ID), attrs); err != nil {
			return "", fmt.Errorf("pipeline: dot node %s: %w", n.ID, err)
		}
	}

	for _, e := range p.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		attrs := map[string]string{}
		if hotEdges[EdgePair{e.Source, e.Target}] {
			attrs["color"] = cycleColor
			attrs["penwidth"] = "2"
		}
		if err := g.AddEdge(strconv.Quote(e.Source), strconv.Quote(e.Target), true, attrs); err != nil {
			return "", fmt.Errorf("pipeline: dot edge %s: %w", e.ID, err)
		}
	}

	return g.String(), nil
}

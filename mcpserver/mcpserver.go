// Package mcpserver exposes pipeline analysis as a Model Context Protocol tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/meikuraledutech/pipeline"
)

// AnalyzeArgs is the input of the analyze_pipeline tool.
type AnalyzeArgs struct {
	Nodes []GraphNode `json:"nodes" jsonschema:"the pipeline nodes; only id is used"`
	Edges []GraphEdge `json:"edges" jsonschema:"directed edges from source node id to target node id"`
	Scope string      `json:"scope,omitempty" jsonschema:"cycle (default) reports one cycle; tangle widens the node and edge sets"`
}

// GraphNode is the part of a canvas node the tool needs. Layout fields are
// left out so clients are not asked for them.
type GraphNode struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// GraphEdge is a directed arc between two node ids.
type GraphEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (a AnalyzeArgs) graph() ([]pipeline.Node, []pipeline.Edge) {
	nodes := make([]pipeline.Node, len(a.Nodes))
	for i, n := range a.Nodes {
		nodes[i] = pipeline.Node{ID: n.ID, Type: n.Type}
	}
	edges := make([]pipeline.Edge, len(a.Edges))
	for i, e := range a.Edges {
		edges[i] = pipeline.Edge{ID: e.ID, Source: e.Source, Target: e.Target}
	}
	return nodes, edges
}

// New returns an MCP server with the analyze_pipeline tool registered.
func New(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "pipeline", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_pipeline",
		Description: "Checks whether a pipeline graph is a DAG and reports one cycle if it is not",
	}, analyzePipeline)

	return server
}

// Serve runs the server over stdin/stdout until the client disconnects or ctx ends.
func Serve(ctx context.Context, version string) error {
	return New(version).Run(ctx, &mcp.StdioTransport{})
}

func analyzePipeline(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, any, error) {
	scope, err := pipeline.ParseScope(args.Scope)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	nodes, edges := args.graph()
	res, err := pipeline.AnalyzeScope(nodes, edges, scope)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	out, err := json.Marshal(res)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return textResult(string(out)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

package pipeline

import (
	"context"
	"errors"
)

var (
	ErrInvalidGraph     = errors.New("pipeline: invalid graph")
	ErrUnknownScope     = errors.New("pipeline: unknown analysis scope")
	ErrPipelineNotFound = errors.New("pipeline: pipeline not found")
	ErrNodeNotFound     = errors.New("pipeline: node not found")
	ErrEdgeNotFound     = errors.New("pipeline: edge not found")
)

// Store defines the contract for persisting and retrieving pipeline snapshots.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Pipelines (bulk operations)
	SavePipeline(ctx context.Context, p *Pipeline) (*Pipeline, error)
	GetPipeline(ctx context.Context, pipelineID string) (*Pipeline, error)
	ListPipelines(ctx context.Context) ([]PipelineSummary, error)
	DeletePipeline(ctx context.Context, pipelineID string) error

	// Nodes
	AddNode(ctx context.Context, pipelineID string, node *Node) (string, error)
	UpdateNode(ctx context.Context, pipelineID string, node *Node) error
	DeleteNode(ctx context.Context, pipelineID, nodeID string) error

	// Edges
	AddEdge(ctx context.Context, pipelineID string, edge *Edge) (string, error)
	DeleteEdge(ctx context.Context, pipelineID, edgeID string) error
}

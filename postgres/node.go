package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
)

// AddNode appends a single node to a pipeline.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, pipelineID string, node *pipeline.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := touch(ctx, tx, pipelineID); err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO pipeline_nodes (pipeline_id, id, seq, type, data, canvas_position)
		SELECT $1, $2::text, COALESCE(MAX(seq) + 1, 0), $3::text, $4::jsonb, $5::jsonb
		FROM pipeline_nodes WHERE pipeline_id = $1`,
		pipelineID, node.ID, node.Type, nodeData(*node), node.Position,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: duplicate node id %q", pipeline.ErrInvalidGraph, node.ID)
		}
		return "", fmt.Errorf("pipeline: insert node: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("pipeline: commit: %w", err)
	}
	return node.ID, nil
}

// UpdateNode replaces the type, data and canvas position of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, pipelineID string, node *pipeline.Node) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE pipeline_nodes SET type = $1, data = $2, canvas_position = $3 WHERE pipeline_id = $4 AND id = $5`,
		node.Type, nodeData(*node), node.Position, pipelineID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("pipeline: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pipeline.ErrNodeNotFound
	}
	if err := touch(ctx, tx, pipelineID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteNode deletes a node and every edge that starts or ends at it.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, pipelineID, nodeID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM pipeline_edges WHERE pipeline_id = $1 AND (source = $2 OR target = $2)`,
		pipelineID, nodeID,
	); err != nil {
		return fmt.Errorf("pipeline: delete node edges: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM pipeline_nodes WHERE pipeline_id = $1 AND id = $2`, pipelineID, nodeID)
	if err != nil {
		return fmt.Errorf("pipeline: delete node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil
	}
	if err := touch(ctx, tx, pipelineID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

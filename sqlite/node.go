package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
)

// AddNode appends a single node to a pipeline.
// If node.ID is empty, a UUID is auto-generated.
func (s *SQLiteStore) AddNode(ctx context.Context, pipelineID string, node *pipeline.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	data, err := encodeData(node.Data)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := touch(ctx, tx, pipelineID); err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_nodes (pipeline_id, id, seq, type, data, canvas_position)
		SELECT ?1, ?2, COALESCE(MAX(seq) + 1, 0), ?3, ?4, ?5
		FROM pipeline_nodes WHERE pipeline_id = ?1`,
		pipelineID, node.ID, node.Type, data, positionText(node.Position),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: duplicate node id %q", pipeline.ErrInvalidGraph, node.ID)
		}
		return "", fmt.Errorf("pipeline: insert node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("pipeline: commit: %w", err)
	}
	return node.ID, nil
}

// UpdateNode replaces the type, data and canvas position of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *SQLiteStore) UpdateNode(ctx context.Context, pipelineID string, node *pipeline.Node) error {
	data, err := encodeData(node.Data)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE pipeline_nodes SET type = ?, data = ?, canvas_position = ? WHERE pipeline_id = ? AND id = ?`,
		node.Type, data, positionText(node.Position), pipelineID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("pipeline: update node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeline.ErrNodeNotFound
	}
	if err := touch(ctx, tx, pipelineID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteNode deletes a node and every edge that starts or ends at it.
// No error if the node doesn't exist.
func (s *SQLiteStore) DeleteNode(ctx context.Context, pipelineID, nodeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pipeline_edges WHERE pipeline_id = ?1 AND (source = ?2 OR target = ?2)`,
		pipelineID, nodeID,
	); err != nil {
		return fmt.Errorf("pipeline: delete node edges: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pipeline_nodes WHERE pipeline_id = ? AND id = ?`, pipelineID, nodeID)
	if err != nil {
		return fmt.Errorf("pipeline: delete node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if err := touch(ctx, tx, pipelineID); err != nil {
		return err
	}

	return tx.Commit()
}

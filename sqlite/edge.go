package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/pipeline"
)

// AddEdge appends a single edge to a pipeline.
// If edge.ID is empty, a UUID is auto-generated.
func (s *SQLiteStore) AddEdge(ctx context.Context, pipelineID string, edge *pipeline.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
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
		INSERT INTO pipeline_edges (pipeline_id, id, seq, source, target, source_handle, target_handle)
		SELECT ?1, ?2, COALESCE(MAX(seq) + 1, 0), ?3, ?4, ?5, ?6
		FROM pipeline_edges WHERE pipeline_id = ?1`,
		pipelineID, edge.ID, edge.Source, edge.Target, edge.SourceHandle, edge.TargetHandle,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: duplicate edge id %q", pipeline.ErrInvalidGraph, edge.ID)
		}
		return "", fmt.Errorf("pipeline: insert edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("pipeline: commit: %w", err)
	}
	return edge.ID, nil
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, pipelineID, edgeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM pipeline_edges WHERE pipeline_id = ? AND id = ?`, pipelineID, edgeID)
	if err != nil {
		return fmt.Errorf("pipeline: delete edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if err := touch(ctx, tx, pipelineID); err != nil {
		return err
	}

	return tx.Commit()
}

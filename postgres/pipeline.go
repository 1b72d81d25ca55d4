package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/pipeline"
)

// SavePipeline saves a full pipeline (nodes + edges) in one transaction.
// An existing pipeline with the same ID is replaced. Missing pipeline and
// edge IDs get auto-generated UUIDs. Returns the pipeline with IDs and
// UpdatedAt filled in.
func (s *PGStore) SavePipeline(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Pipeline, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO pipelines (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING updated_at`,
		p.ID, p.Name,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: upsert pipeline: %w", err)
	}

	// Replace semantics: drop whatever was saved before.
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_edges WHERE pipeline_id = $1`, p.ID); err != nil {
		return nil, fmt.Errorf("pipeline: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_nodes WHERE pipeline_id = $1`, p.ID); err != nil {
		return nil, fmt.Errorf("pipeline: delete nodes: %w", err)
	}

	for i, n := range p.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_nodes (pipeline_id, id, seq, type, data, canvas_position) VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, n.ID, i, n.Type, nodeData(n), n.Position,
		); err != nil {
			return nil, fmt.Errorf("pipeline: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range p.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_edges (pipeline_id, id, seq, source, target, source_handle, target_handle) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle,
		); err != nil {
			return nil, fmt.Errorf("pipeline: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: commit: %w", err)
	}

	return p, nil
}

// GetPipeline retrieves a full pipeline (nodes + edges) by its ID, in saved order.
// Returns nil, nil if the pipeline doesn't exist.
func (s *PGStore) GetPipeline(ctx context.Context, pipelineID string) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{ID: pipelineID, Nodes: []pipeline.Node{}, Edges: []pipeline.Edge{}}

	err := s.db.QueryRow(ctx,
		`SELECT name, updated_at FROM pipelines WHERE id = $1`, pipelineID,
	).Scan(&p.Name, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pipeline: get pipeline: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, type, data, canvas_position FROM pipeline_nodes WHERE pipeline_id = $1 ORDER BY seq`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n   pipeline.Node
			pos []byte
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Data, &pos); err != nil {
			return nil, fmt.Errorf("pipeline: scan node: %w", err)
		}
		n.Position = pos
		p.Nodes = append(p.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, source, target, source_handle, target_handle FROM pipeline_edges WHERE pipeline_id = $1 ORDER BY seq`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e pipeline.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.SourceHandle, &e.TargetHandle); err != nil {
			return nil, fmt.Errorf("pipeline: scan edge: %w", err)
		}
		p.Edges = append(p.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows edges: %w", err)
	}

	return p, nil
}

// ListPipelines returns a summary of every saved pipeline, most recently
// updated first. Returns an empty slice (not nil) if none exist.
func (s *PGStore) ListPipelines(ctx context.Context) ([]pipeline.PipelineSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, p.updated_at,
		       (SELECT COUNT(*) FROM pipeline_nodes n WHERE n.pipeline_id = p.id),
		       (SELECT COUNT(*) FROM pipeline_edges e WHERE e.pipeline_id = p.id)
		FROM pipelines p
		ORDER BY p.updated_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list pipelines: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pipeline.PipelineSummary, error) {
		var sum pipeline.PipelineSummary
		err := row.Scan(&sum.ID, &sum.Name, &sum.UpdatedAt, &sum.NumNodes, &sum.NumEdges)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: scan pipelines: %w", err)
	}
	if summaries == nil {
		summaries = []pipeline.PipelineSummary{}
	}
	return summaries, nil
}

// DeletePipeline removes a pipeline with its nodes and edges.
// No error if the pipeline doesn't exist.
func (s *PGStore) DeletePipeline(ctx context.Context, pipelineID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, pipelineID); err != nil {
		return fmt.Errorf("pipeline: delete pipeline: %w", err)
	}
	return nil
}

// touch bumps updated_at and reports ErrPipelineNotFound if the pipeline is missing.
func touch(ctx context.Context, tx pgx.Tx, pipelineID string) error {
	ct, err := tx.Exec(ctx, `UPDATE pipelines SET updated_at = NOW() WHERE id = $1`, pipelineID)
	if err != nil {
		return fmt.Errorf("pipeline: touch pipeline: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pipeline.ErrPipelineNotFound
	}
	return nil
}

func nodeData(n pipeline.Node) map[string]any {
	if n.Data == nil {
		return map[string]any{}
	}
	return n.Data
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meikuraledutech/pipeline"
)

// SavePipeline saves a full pipeline (nodes + edges) in one transaction,
// replacing any pipeline with the same ID.
func (s *SQLiteStore) SavePipeline(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Pipeline, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pipelines (id, name, created_at, updated_at) VALUES (?1, ?2, ?3, ?3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		p.ID, p.Name, ts,
	); err != nil {
		return nil, fmt.Errorf("pipeline: upsert pipeline: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pipeline_edges WHERE pipeline_id = ?`, p.ID); err != nil {
		return nil, fmt.Errorf("pipeline: delete edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pipeline_nodes WHERE pipeline_id = ?`, p.ID); err != nil {
		return nil, fmt.Errorf("pipeline: delete nodes: %w", err)
	}

	for i, n := range p.Nodes {
		data, err := encodeData(n.Data)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_nodes (pipeline_id, id, seq, type, data, canvas_position) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, n.ID, i, n.Type, data, positionText(n.Position),
		); err != nil {
			return nil, fmt.Errorf("pipeline: insert node %s: %w", n.ID, err)
		}
	}

	for i, e := range p.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pipeline_edges (pipeline_id, id, seq, source, target, source_handle, target_handle)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle,
		); err != nil {
			return nil, fmt.Errorf("pipeline: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pipeline: commit: %w", err)
	}

	p.UpdatedAt = ts
	return p, nil
}

// GetPipeline retrieves a full pipeline by its ID, in saved order.
// Returns nil, nil if the pipeline doesn't exist.
func (s *SQLiteStore) GetPipeline(ctx context.Context, pipelineID string) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{ID: pipelineID, Nodes: []pipeline.Node{}, Edges: []pipeline.Edge{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT name, updated_at FROM pipelines WHERE id = ?`, pipelineID,
	).Scan(&p.Name, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pipeline: get pipeline: %w", err)
	}

	nodes, err := s.queryNodes(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	p.Nodes = nodes

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, target, source_handle, target_handle FROM pipeline_edges WHERE pipeline_id = ? ORDER BY seq`, pipelineID)
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

func (s *SQLiteStore) queryNodes(ctx context.Context, pipelineID string) ([]pipeline.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, data, canvas_position FROM pipeline_nodes WHERE pipeline_id = ? ORDER BY seq`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []pipeline.Node{}
	for rows.Next() {
		var (
			n   pipeline.Node
			raw string
			pos sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Type, &raw, &pos); err != nil {
			return nil, fmt.Errorf("pipeline: scan node: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &n.Data); err != nil {
			return nil, fmt.Errorf("pipeline: decode node %s data: %w", n.ID, err)
		}
		if pos.Valid {
			n.Position = json.RawMessage(pos.String)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows nodes: %w", err)
	}
	return nodes, nil
}

// ListPipelines returns a summary of every saved pipeline, most recently
// updated first.
func (s *SQLiteStore) ListPipelines(ctx context.Context) ([]pipeline.PipelineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.updated_at,
		       (SELECT COUNT(*) FROM pipeline_nodes n WHERE n.pipeline_id = p.id),
		       (SELECT COUNT(*) FROM pipeline_edges e WHERE e.pipeline_id = p.id)
		FROM pipelines p
		ORDER BY p.updated_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list pipelines: %w", err)
	}
	defer rows.Close()

	summaries := []pipeline.PipelineSummary{}
	for rows.Next() {
		var sum pipeline.PipelineSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.UpdatedAt, &sum.NumNodes, &sum.NumEdges); err != nil {
			return nil, fmt.Errorf("pipeline: scan pipeline: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: rows pipelines: %w", err)
	}
	return summaries, nil
}

// DeletePipeline removes a pipeline with its nodes and edges.
// No error if the pipeline doesn't exist.
func (s *SQLiteStore) DeletePipeline(ctx context.Context, pipelineID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM pipeline_edges WHERE pipeline_id = ?`,
		`DELETE FROM pipeline_nodes WHERE pipeline_id = ?`,
		`DELETE FROM pipelines WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, pipelineID); err != nil {
			return fmt.Errorf("pipeline: delete pipeline: %w", err)
		}
	}
	return tx.Commit()
}

func touch(ctx context.Context, tx *sql.Tx, pipelineID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE pipelines SET updated_at = ? WHERE id = ?`, now(), pipelineID)
	if err != nil {
		return fmt.Errorf("pipeline: touch pipeline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pipeline.ErrPipelineNotFound
	}
	return nil
}

// positionText stores an absent position as NULL so it reads back absent.
func positionText(pos json.RawMessage) any {
	if len(pos) == 0 {
		return nil
	}
	return string(pos)
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("pipeline: encode node data: %w", err)
	}
	return string(b), nil
}

package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipelines (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pipeline_nodes (
    pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    seq         INT  NOT NULL,
    type        TEXT NOT NULL DEFAULT '',
    data        JSONB NOT NULL DEFAULT '{}',
    canvas_position JSONB,
    PRIMARY KEY (pipeline_id, id)
);

CREATE TABLE IF NOT EXISTS pipeline_edges (
    pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    seq         INT  NOT NULL,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (pipeline_id, id)
);

CREATE INDEX IF NOT EXISTS idx_pipeline_nodes_seq ON pipeline_nodes(pipeline_id, seq);
CREATE INDEX IF NOT EXISTS idx_pipeline_edges_seq ON pipeline_edges(pipeline_id, seq);
CREATE INDEX IF NOT EXISTS idx_pipelines_updated_at ON pipelines(updated_at DESC);
`

// CreateSchema creates the pipeline tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the pipeline tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS pipeline_edges, pipeline_nodes, pipelines CASCADE;`)
	return err
}

package sqlite

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipelines (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_nodes (
    pipeline_id TEXT NOT NULL REFERENCES pipelines(id),
    id          TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    type        TEXT NOT NULL DEFAULT '',
    data        TEXT NOT NULL DEFAULT '{}',
    canvas_position TEXT,
    PRIMARY KEY (pipeline_id, id)
);

CREATE TABLE IF NOT EXISTS pipeline_edges (
    pipeline_id TEXT NOT NULL REFERENCES pipelines(id),
    id          TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (pipeline_id, id)
);

CREATE INDEX IF NOT EXISTS idx_pipeline_nodes_seq ON pipeline_nodes(pipeline_id, seq);
CREATE INDEX IF NOT EXISTS idx_pipeline_edges_seq ON pipeline_edges(pipeline_id, seq);
`

// CreateSchema creates the pipeline tables if they don't exist.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropSchema drops the pipeline tables.
func (s *SQLiteStore) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS pipeline_edges;
		DROP TABLE IF EXISTS pipeline_nodes;
		DROP TABLE IF EXISTS pipelines;`)
	return err
}

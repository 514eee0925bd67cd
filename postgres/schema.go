package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS canvas_states (
    key          TEXT PRIMARY KEY,
    project_id   TEXT NOT NULL DEFAULT '',
    project_name TEXT NOT NULL DEFAULT '',
    prompt       TEXT NOT NULL DEFAULT '',
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS canvas_nodes (
    state_key  TEXT NOT NULL REFERENCES canvas_states(key) ON DELETE CASCADE,
    id         TEXT NOT NULL,
    ordinal    INT NOT NULL,
    type       TEXT NOT NULL DEFAULT '',
    x          DOUBLE PRECISION NOT NULL DEFAULT 0,
    y          DOUBLE PRECISION NOT NULL DEFAULT 0,
    width      DOUBLE PRECISION NOT NULL DEFAULT 0,
    height     DOUBLE PRECISION NOT NULL DEFAULT 0,
    data       JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (state_key, id)
);

CREATE TABLE IF NOT EXISTS canvas_edges (
    state_key     TEXT NOT NULL,
    id            TEXT NOT NULL,
    ordinal       INT NOT NULL,
    source        TEXT NOT NULL,
    target        TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (state_key, id),
    FOREIGN KEY (state_key, source) REFERENCES canvas_nodes(state_key, id) ON DELETE CASCADE,
    FOREIGN KEY (state_key, target) REFERENCES canvas_nodes(state_key, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_canvas_nodes_state ON canvas_nodes(state_key);
CREATE INDEX IF NOT EXISTS idx_canvas_edges_state ON canvas_edges(state_key);
`

// CreateSchema creates the canvas tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the canvas tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS canvas_edges, canvas_nodes, canvas_states CASCADE;`)
	return err
}

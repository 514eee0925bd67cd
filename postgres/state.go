package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meikuraledutech/architex"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Save replaces the canvas stored under key in one transaction.
// Edges whose endpoints are not among the nodes are rejected up front.
func (s *PGStore) Save(ctx context.Context, key string, st *architex.State) error {
	if err := validateEdges(st.Nodes, st.Edges); err != nil {
		return err
	}

	updatedAt := time.Now().UTC()
	if st.UpdatedAt > 0 {
		updatedAt = time.UnixMilli(st.UpdatedAt).UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: cascades clear the previous nodes and edges.
	if _, err := tx.Exec(ctx, `DELETE FROM canvas_states WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete state: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO canvas_states (key, project_id, project_name, prompt, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		key, st.ProjectID, st.ProjectName, st.Prompt, updatedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert state: %w", err)
	}

	if err := insertNodes(ctx, tx, key, st.Nodes); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, key, st.Edges); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Load retrieves the canvas stored under key.
// Returns architex.ErrStateNotFound if there is none.
func (s *PGStore) Load(ctx context.Context, key string) (*architex.State, error) {
	st := &architex.State{}
	var updatedAt time.Time
	err := s.db.QueryRow(ctx,
		`SELECT project_id, project_name, prompt, updated_at FROM canvas_states WHERE key = $1`, key,
	).Scan(&st.ProjectID, &st.ProjectName, &st.Prompt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, architex.ErrStateNotFound
		}
		return nil, fmt.Errorf("postgres: get state: %w", err)
	}
	st.UpdatedAt = updatedAt.UnixMilli()

	if st.Nodes, err = listNodes(ctx, s.db, key); err != nil {
		return nil, err
	}
	if st.Edges, err = listEdges(ctx, s.db, key); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes the canvas under key. No error if it doesn't exist.
func (s *PGStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM canvas_states WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete state: %w", err)
	}
	return nil
}

// Keys lists every stored canvas key, most recently updated first.
func (s *PGStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT key FROM canvas_states ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan keys: %w", err)
	}
	return keys, nil
}

// validateEdges checks every edge endpoint names a node being saved.
func validateEdges(nodes []architex.Node, edges []architex.Edge) error {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	for _, e := range edges {
		if !ids[e.Source] || !ids[e.Target] {
			return fmt.Errorf("postgres: edge %q references unknown node", e.ID)
		}
	}
	return nil
}

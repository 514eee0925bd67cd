package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/architex"
)

// insertEdges writes edges in order. The foreign keys on (state_key,
// source) and (state_key, target) cascade-delete an edge with its nodes.
func insertEdges(ctx context.Context, q querier, key string, edges []architex.Edge) error {
	for i, e := range edges {
		if _, err := q.Exec(ctx,
			`INSERT INTO canvas_edges (state_key, id, ordinal, source, target, source_handle, target_handle)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			key, e.ID, i, e.Source, e.Target, e.SourceHandle, e.TargetHandle,
		); err != nil {
			return fmt.Errorf("postgres: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

// listEdges returns the edges of a canvas in their saved order.
// Returns an empty slice (not nil) if none found.
func listEdges(ctx context.Context, q querier, key string) ([]architex.Edge, error) {
	rows, err := q.Query(ctx,
		`SELECT id, source, target, source_handle, target_handle FROM canvas_edges WHERE state_key = $1 ORDER BY ordinal`, key)
	if err != nil {
		return nil, fmt.Errorf("postgres: list edges: %w", err)
	}
	defer rows.Close()

	edges := []architex.Edge{}
	for rows.Next() {
		var e architex.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.SourceHandle, &e.TargetHandle); err != nil {
			return nil, fmt.Errorf("postgres: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows edges: %w", err)
	}

	return edges, nil
}

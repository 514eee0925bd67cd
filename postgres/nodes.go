package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/architex"
)

// insertNodes writes nodes in order; ordinal keeps the canvas order on reload.
func insertNodes(ctx context.Context, q querier, key string, nodes []architex.Node) error {
	for i, n := range nodes {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("postgres: encode node %s: %w", n.ID, err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO canvas_nodes (state_key, id, ordinal, type, x, y, width, height, data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			key, n.ID, i, n.Type, n.Position.X, n.Position.Y, n.Width, n.Height, data,
		); err != nil {
			return fmt.Errorf("postgres: insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

// listNodes returns the nodes of a canvas in their saved order.
// Returns an empty slice (not nil) if none found.
func listNodes(ctx context.Context, q querier, key string) ([]architex.Node, error) {
	rows, err := q.Query(ctx,
		`SELECT id, type, x, y, width, height, data FROM canvas_nodes WHERE state_key = $1 ORDER BY ordinal`, key)
	if err != nil {
		return nil, fmt.Errorf("postgres: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []architex.Node{}
	for rows.Next() {
		var (
			n    architex.Node
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Position.X, &n.Position.Y, &n.Width, &n.Height, &data); err != nil {
			return nil, fmt.Errorf("postgres: scan node: %w", err)
		}
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("postgres: decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows nodes: %w", err)
	}

	return nodes, nil
}

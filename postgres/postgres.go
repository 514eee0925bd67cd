// Package postgres implements architex.StateStore on PostgreSQL via pgx.
// Nodes and edges are stored as rows so the database enforces the edge
// endpoints through foreign keys.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements architex.StateStore using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const toolsQuery = `SELECT id::text, name, category, COALESCE(frameworks, '{}'), COALESCE(pricing, '')
FROM tools
ORDER BY created_at, id`

// PostgresStore reads the catalog from a "tools" table
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to the catalog database
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an existing connection pool
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Tools loads every catalog tool in insertion order
func (s *PostgresStore) Tools(ctx context.Context) ([]Tool, error) {
	rows, err := s.db.QueryContext(ctx, toolsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var tools []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, pq.Array(&t.Frameworks), &t.Pricing); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	return tools, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the warehouse.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the warehouse connection.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// QuoteIdentifier quotes a possibly schema-qualified table name.
	QuoteIdentifier(name string) string

	// BulkLoadJSON loads every JSON object under req.Source into req.Table
	// using the warehouse's native bulk-load statement.
	BulkLoadJSON(ctx context.Context, req BulkLoadRequest) error

	// DialectName returns the SQL dialect name of the adapter.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a warehouse.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}

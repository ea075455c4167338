// Package schema creates the staging and star-schema tables in the warehouse.
package schema

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
)

//go:embed create_tables.sql
var createTables string

// Tables lists every table created by Apply, staging tables first.
var Tables = []string{"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time"}

// Execer runs a statement against the warehouse.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Statements returns the DDL statements in execution order.
func Statements() []string {
	var stmts []string
	for _, s := range strings.Split(createTables, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Apply creates any missing tables. Existing tables are left untouched.
func Apply(ctx context.Context, db Execer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for i, stmt := range Statements() {
		if err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", Tables[i], err)
		}
		logger.Debug("table ready", slog.String("table", Tables[i]))
	}
	logger.Info("warehouse schema applied", slog.Int("tables", len(Tables)))
	return nil
}

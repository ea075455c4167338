// Package duckdb provides a DuckDB warehouse adapter for leapetl.
//
// DuckDB stands in for Redshift on a laptop: it reads the same S3 prefixes
// through the httpfs extension, or local directories during development.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("opening duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	// Settings and extensions are per connection; pin a single one.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params

	if err := a.applyParams(ctx); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

var settingName = regexp.MustCompile(`^[a-z_]+$`)

func (a *Adapter) applyParams(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		if !settingName.MatchString(ext) {
			return fmt.Errorf("invalid duckdb extension name %q", ext)
		}
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, value := range a.params.Settings {
		if !settingName.MatchString(key) {
			return fmt.Errorf("invalid duckdb setting name %q", key)
		}
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", key, quoteLiteral(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// QuoteIdentifier quotes a possibly schema-qualified table name.
func (a *Adapter) QuoteIdentifier(name string) string {
	parts := adapter.SplitQualifiedName(name)
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// BulkLoadJSON reads every .json object under req.Source with
// read_json_auto and inserts it by column name.
//
// Column matching is by name and case-insensitive, which is what Redshift's
// "auto ignorecase" does. JSONPaths documents are not supported.
func (a *Adapter) BulkLoadJSON(ctx context.Context, req core.BulkLoadRequest) error {
	if req.Table == "" || req.Source == "" {
		return fmt.Errorf("bulk load: table and source are required")
	}
	switch req.JSONMapping {
	case core.JSONMappingAuto, core.JSONMappingAutoIgnoreCase:
	default:
		return fmt.Errorf("bulk load: duckdb only supports %q json mapping, got %q", core.JSONMappingAuto, req.JSONMapping)
	}

	if req.Credentials.Valid() && isRemote(req.Source) {
		if err := a.Exec(ctx, secretStatement(req)); err != nil {
			return fmt.Errorf("failed to create s3 secret: %w", err)
		}
	}

	a.Logger.Debug("reading json", slog.String("table", req.Table), slog.String("source", req.Source))

	stmt := fmt.Sprintf("INSERT INTO %s BY NAME SELECT * FROM read_json_auto(%s)",
		a.QuoteIdentifier(req.Table), quoteLiteral(sourceGlob(req.Source)))
	return a.Exec(ctx, stmt)
}

// sourceGlob turns a prefix into a recursive glob over its JSON objects.
// Explicit files and globs are used as given.
func sourceGlob(source string) string {
	if strings.HasSuffix(source, ".json") || strings.Contains(source, "*") {
		return source
	}
	return strings.TrimRight(source, "/") + "/**/*.json"
}

// isRemote reports whether source is read through httpfs and needs a secret.
func isRemote(source string) bool {
	for _, scheme := range []string{"s3://", "s3a://", "s3n://"} {
		if strings.HasPrefix(source, scheme) {
			return true
		}
	}
	return false
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// secretStatement scopes a temporary S3 secret to the source prefix so
// concurrent stage tasks with different credentials do not collide.
func secretStatement(req core.BulkLoadRequest) string {
	name := "leapetl_" + nonIdent.ReplaceAllString(req.Table, "_")

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE SECRET %s (TYPE S3, KEY_ID %s, SECRET %s",
		name, quoteLiteral(req.Credentials.AccessKeyID), quoteLiteral(req.Credentials.SecretAccessKey))
	if req.Credentials.SessionToken != "" {
		fmt.Fprintf(&b, ", SESSION_TOKEN %s", quoteLiteral(req.Credentials.SessionToken))
	}
	if req.Region != "" {
		fmt.Fprintf(&b, ", REGION %s", quoteLiteral(req.Region))
	}
	fmt.Fprintf(&b, ", SCOPE %s)", quoteLiteral(req.Source))
	return b.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

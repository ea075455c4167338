// Package redshift provides an Amazon Redshift warehouse adapter for leapetl.
//
// Redshift speaks the PostgreSQL wire protocol, so the adapter uses the pgx
// database/sql driver and adds Redshift's COPY-from-S3 bulk load.
package redshift

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// DefaultPort is the port Redshift clusters listen on unless configured otherwise.
const DefaultPort = 5439

// Adapter implements the adapter.Adapter interface for Redshift.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new Redshift adapter instance.
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
	return "redshift"
}

// Connect establishes a connection to the cluster.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildDSN(cfg)

	a.Logger.Debug("connecting to redshift", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open redshift connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping redshift: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN constructs a key=value connection string.
func buildDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	sslmode := "require"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	pairs := []string{
		"host=" + quoteDSNValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteDSNValue(cfg.Database),
		"sslmode=" + quoteDSNValue(sslmode),
	}
	if cfg.Username != "" {
		pairs = append(pairs, "user="+quoteDSNValue(cfg.Username))
	}
	if cfg.Password != "" {
		pairs = append(pairs, "password="+quoteDSNValue(cfg.Password))
	}
	if cfg.Schema != "" {
		pairs = append(pairs, "search_path="+quoteDSNValue(cfg.Schema))
	}
	return strings.Join(pairs, " ")
}

// quoteDSNValue quotes a value for a key=value DSN when it is empty or
// contains spaces or quotes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\\t\n") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// QuoteIdentifier quotes a possibly schema-qualified table name.
func (a *Adapter) QuoteIdentifier(name string) string {
	return pgx.Identifier(adapter.SplitQualifiedName(name)).Sanitize()
}

// BulkLoadJSON issues COPY ... FORMAT AS JSON for the request.
func (a *Adapter) BulkLoadJSON(ctx context.Context, req core.BulkLoadRequest) error {
	stmt, err := a.copyStatement(req)
	if err != nil {
		return err
	}

	a.Logger.Debug("copying from s3",
		slog.String("table", req.Table),
		slog.String("source", req.Source),
		slog.String("json", req.JSONMapping))

	return a.Exec(ctx, stmt)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

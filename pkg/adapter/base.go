package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// ErrNotConnected is returned when a statement is issued before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
// The driver error text is kept intact in the wrapped error.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if b.Logger != nil {
		b.Logger.Debug("exec", slog.String("sql", Redact(sqlStr)))
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if b.Logger != nil {
		b.Logger.Debug("query", slog.String("sql", sqlStr))
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// SplitQualifiedName splits "schema.table" into its parts.
// An unqualified name yields a single element.
func SplitQualifiedName(name string) []string {
	return strings.Split(name, ".")
}

// secretMarkers are keywords after which a bulk-load statement carries key
// material as a quoted literal.
var secretMarkers = []string{"SECRET_ACCESS_KEY", "SESSION_TOKEN", "SECRET ", "KEY_ID "}

// Redact masks the literal following any secret marker so statements can be
// logged safely.
func Redact(sqlStr string) string {
	out := sqlStr
	for _, marker := range secretMarkers {
		idx := 0
		for {
			pos := strings.Index(out[idx:], marker)
			if pos < 0 {
				break
			}
			start := idx + pos + len(marker)
			open := strings.IndexByte(out[start:], '\'')
			if open < 0 {
				break
			}
			open += start
			end := closingQuote(out, open+1)
			if end < 0 {
				break
			}
			out = out[:open+1] + "***" + out[end:]
			idx = open + 5
		}
	}
	return out
}

// closingQuote finds the quote ending a literal that starts at from,
// skipping doubled quotes.
func closingQuote(s string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

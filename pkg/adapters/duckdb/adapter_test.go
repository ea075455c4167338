package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapetl/internal/testutil"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	a := New(testutil.NewTestLogger(t))
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func countRows(t *testing.T, a *Adapter, table string) int {
	t.Helper()
	rows, err := a.Query(context.Background(), "SELECT COUNT(*) FROM "+a.QuoteIdentifier(table))
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	return n
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestAdapter_Connect(t *testing.T) {
	a := connect(t)
	assert.True(t, a.IsConnected())
	assert.Equal(t, "duckdb", a.DialectName())
}

func TestAdapter_ConnectRejectsBadParams(t *testing.T) {
	a := New(nil)
	err := a.Connect(context.Background(), adapter.Config{
		Type:   "duckdb",
		Params: map[string]any{"settings": map[string]any{"bad-name": "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb setting name")
	assert.False(t, a.IsConnected())
}

func TestAdapter_QuoteIdentifier(t *testing.T) {
	a := New(nil)
	assert.Equal(t, `"staging_events"`, a.QuoteIdentifier("staging_events"))
	assert.Equal(t, `"public"."songs"`, a.QuoteIdentifier("public.songs"))
	assert.Equal(t, `"we""ird"`, a.QuoteIdentifier(`we"ird`))
}

func TestAdapter_BulkLoadJSON(t *testing.T) {
	a := connect(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A", "B", "TRABC.json"),
		`{"song_id": "S1", "Title": "One", "duration": 120.5}`)
	writeFile(t, filepath.Join(dir, "A", "C", "TRABD.json"),
		`{"song_id": "S2", "Title": "Two", "duration": 99.0}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	require.NoError(t, a.Exec(ctx, "CREATE TABLE staging_songs (song_id VARCHAR, title VARCHAR, duration DOUBLE)"))

	err := a.BulkLoadJSON(ctx, core.BulkLoadRequest{
		Table:       "staging_songs",
		Source:      dir,
		JSONMapping: core.JSONMappingAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, a, "staging_songs"))

	rows, err := a.Query(ctx, "SELECT title FROM staging_songs WHERE song_id = ?", "S2")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var title string
	require.NoError(t, rows.Scan(&title))
	assert.Equal(t, "Two", title)
}

func TestAdapter_BulkLoadJSON_RejectsJSONPaths(t *testing.T) {
	a := connect(t)
	err := a.BulkLoadJSON(context.Background(), core.BulkLoadRequest{
		Table:       "staging_events",
		Source:      t.TempDir(),
		JSONMapping: "s3://bucket/log_json_path.json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only supports")
}

func TestSourceGlob(t *testing.T) {
	assert.Equal(t, "s3://bucket/log_data/**/*.json", sourceGlob("s3://bucket/log_data/"))
	assert.Equal(t, "s3://bucket/log_data/**/*.json", sourceGlob("s3://bucket/log_data"))
	assert.Equal(t, "data/one.json", sourceGlob("data/one.json"))
	assert.Equal(t, "data/*/x.json", sourceGlob("data/*/x.json"))
}

func TestSecretStatement(t *testing.T) {
	got := secretStatement(core.BulkLoadRequest{
		Table:  "public.staging_events",
		Source: "s3://bucket/log_data",
		Region: "us-west-2",
		Credentials: core.Credentials{
			AccessKeyID:     "AKIA",
			SecretAccessKey: "it's",
			SessionToken:    "tok",
		},
	})
	assert.Equal(t,
		"CREATE OR REPLACE SECRET leapetl_public_staging_events (TYPE S3, KEY_ID 'AKIA', SECRET 'it''s', SESSION_TOKEN 'tok', REGION 'us-west-2', SCOPE 's3://bucket/log_data')",
		got)
	assert.NotContains(t, adapter.Redact(got), "it''s")
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"))
	a, err := adapter.NewAdapter(adapter.Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", a.DialectName())
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("s3://udacity-dend/song_data"))
	assert.False(t, isRemote("testdata/song_data"))
	assert.False(t, isRemote("/tmp/s3://x"))
}

package redshift

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapetl/internal/testutil"
	"github.com/leapstack-labs/leapetl/pkg/adapter"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "sparkify.abc123.us-west-2.redshift.amazonaws.com",
				Port:     5439,
				Database: "dev",
				Username: "awsuser",
				Password: "Passw0rd",
			},
			expected: "host=sparkify.abc123.us-west-2.redshift.amazonaws.com port=5439 dbname=dev sslmode=require user=awsuser password=Passw0rd",
		},
		{
			name: "custom sslmode and schema",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "dev",
				Schema:   "sparkify",
				Options:  map[string]string{"sslmode": "disable"},
			},
			expected: "host=localhost port=5432 dbname=dev sslmode=disable search_path=sparkify",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "dev"},
			expected: "host=localhost port=5439 dbname=dev sslmode=require",
		},
		{
			name: "password with spaces is quoted",
			config: adapter.Config{
				Database: "dev",
				Password: "it's a secret",
			},
			expected: `host=localhost port=5439 dbname=dev sslmode=require password='it\'s a secret'`,
		},
		{
			name: "every value is quoted",
			config: adapter.Config{
				Database: "sparkify dev",
				Username: "o'brien",
				Schema:   "etl stage",
			},
			expected: `host=localhost port=5439 dbname='sparkify dev' sslmode=require user='o\'brien' search_path='etl stage'`,
		},
		{
			name:     "empty database",
			config:   adapter.Config{},
			expected: "host=localhost port=5439 dbname='' sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(tt.config))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	adp := New(nil)

	tests := []struct {
		input    string
		expected string
	}{
		{"songplays", `"songplays"`},
		{"time", `"time"`},
		{"public.users", `"public"."users"`},
		{`bad"name`, `"bad""name"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, adp.QuoteIdentifier(tt.input))
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'auto'`, quoteLiteral("auto"))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
	assert.Equal(t, `'a\\b'`, quoteLiteral(`a\b`))
}

func TestCopyStatement(t *testing.T) {
	creds := core.Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "wJalr/EXAMPLE"}

	tests := []struct {
		name    string
		req     core.BulkLoadRequest
		want    string
		wantErr string
	}{
		{
			name: "jsonpaths mapping",
			req: core.BulkLoadRequest{
				Table:       "staging_events",
				Source:      "s3://udacity-dend/log_data",
				JSONMapping: "s3://udacity-dend/log_json_path.json",
				Region:      "us-west-2",
				Credentials: creds,
			},
			want: `COPY "staging_events" FROM 's3://udacity-dend/log_data'` +
				` ACCESS_KEY_ID 'AKIAEXAMPLE' SECRET_ACCESS_KEY 'wJalr/EXAMPLE'` +
				` REGION 'us-west-2' FORMAT AS JSON 's3://udacity-dend/log_json_path.json'`,
		},
		{
			name: "auto mapping with session token",
			req: core.BulkLoadRequest{
				Table:       "staging_songs",
				Source:      "s3://udacity-dend/song_data",
				JSONMapping: "auto",
				Credentials: core.Credentials{AccessKeyID: "ASIA", SecretAccessKey: "s", SessionToken: "tok"},
			},
			want: `COPY "staging_songs" FROM 's3://udacity-dend/song_data'` +
				` ACCESS_KEY_ID 'ASIA' SECRET_ACCESS_KEY 's' SESSION_TOKEN 'tok' FORMAT AS JSON 'auto'`,
		},
		{
			name: "injection attempt in source stays inside the literal",
			req: core.BulkLoadRequest{
				Table:       "staging_songs",
				Source:      "s3://b/x'; DROP TABLE users; --",
				JSONMapping: "auto",
				Credentials: creds,
			},
			want: `COPY "staging_songs" FROM 's3://b/x''; DROP TABLE users; --'` +
				` ACCESS_KEY_ID 'AKIAEXAMPLE' SECRET_ACCESS_KEY 'wJalr/EXAMPLE' FORMAT AS JSON 'auto'`,
		},
		{
			name:    "missing credentials",
			req:     core.BulkLoadRequest{Table: "t", Source: "s3://b/p", JSONMapping: "auto"},
			wantErr: "access key id and secret access key are required",
		},
		{
			name:    "bad mapping",
			req:     core.BulkLoadRequest{Table: "t", Source: "s3://b/p", JSONMapping: "jsonpaths.json", Credentials: creds},
			wantErr: `json mapping "jsonpaths.json"`,
		},
		{
			name:    "missing table",
			req:     core.BulkLoadRequest{Source: "s3://b/p", JSONMapping: "auto", Credentials: creds},
			wantErr: "table is required",
		},
	}

	adp := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := adp.copyStatement(tt.req)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBulkLoadJSON_Executes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(testutil.NewTestLogger(t))
	adp.DB = db

	mock.ExpectExec(regexp.QuoteMeta(`COPY "staging_songs" FROM 's3://udacity-dend/song_data'`)).
		WillReturnResult(sqlmock.NewResult(0, 14896))

	err = adp.BulkLoadJSON(context.Background(), core.BulkLoadRequest{
		Table:       "staging_songs",
		Source:      "s3://udacity-dend/song_data",
		JSONMapping: "auto",
		Credentials: core.Credentials{AccessKeyID: "a", SecretAccessKey: "b"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)

	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	err = adp.BulkLoadJSON(ctx, core.BulkLoadRequest{
		Table: "t", Source: "s3://b/p", JSONMapping: "auto",
		Credentials: core.Credentials{AccessKeyID: "a", SecretAccessKey: "b"},
	})
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("redshift"))

	adp, err := adapter.NewAdapter(adapter.Config{Type: "redshift"}, nil)
	require.NoError(t, err)

	rs, ok := adp.(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "redshift", rs.DialectName())
	assert.NoError(t, rs.Close())
}

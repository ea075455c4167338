package config

import (
	"testing"

	"github.com/leapstack-labs/leapetl/pkg/adapter"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/redshift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTargetDefaults(t *testing.T) {
	tests := []struct {
		name   string
		in     TargetConfig
		expect TargetConfig
	}{
		{
			name:   "empty defaults to redshift",
			in:     TargetConfig{},
			expect: TargetConfig{Type: "redshift", Port: 5439, Schema: "public"},
		},
		{
			name:   "duckdb",
			in:     TargetConfig{Type: "duckdb", Database: "sparkify.duckdb"},
			expect: TargetConfig{Type: "duckdb", Database: "sparkify.duckdb", Schema: "main"},
		},
		{
			name:   "explicit values kept",
			in:     TargetConfig{Type: "redshift", Port: 5432, Schema: "sparkify"},
			expect: TargetConfig{Type: "redshift", Port: 5432, Schema: "sparkify"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			ApplyTargetDefaults(&got)
			assert.Equal(t, tt.expect, got)
		})
	}

	ApplyTargetDefaults(nil)
}

func TestTargetConfig_Validate(t *testing.T) {
	assert.NoError(t, (&TargetConfig{Type: "redshift"}).Validate())
	assert.NoError(t, (&TargetConfig{Type: "DuckDB"}).Validate())

	err := (&TargetConfig{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target type is required")

	err = (&TargetConfig{Type: "oracle"}).Validate()
	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	rs := TargetConfig{Type: "Redshift", Host: "h", Port: 5439, Database: "dev", User: "u", Password: "p",
		Options: map[string]string{"sslmode": "disable"}}
	cfg := rs.AdapterConfig()
	assert.Equal(t, "redshift", cfg.Type)
	assert.Equal(t, "u", cfg.Username)
	assert.Empty(t, cfg.Path)

	// options are copied
	cfg.Options["sslmode"] = "require"
	assert.Equal(t, "disable", rs.Options["sslmode"])

	duck := TargetConfig{Type: "duckdb", Database: "local.duckdb"}
	assert.Equal(t, "local.duckdb", duck.AdapterConfig().Path)
}

func TestTargetConfig_Redacted(t *testing.T) {
	tc := TargetConfig{Type: "redshift", Password: "hunter2"}
	assert.Equal(t, "********", tc.Redacted().Password)
	assert.Equal(t, "hunter2", tc.Password)
	assert.Empty(t, TargetConfig{}.Redacted().Password)
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{
		Type: "redshift", Host: "prod", Port: 5439, Database: "dev", User: "awsuser",
		Options: map[string]string{"sslmode": "require"},
	}
	override := &TargetConfig{
		Host:    "staging",
		Options: map[string]string{"connect_timeout": "5"},
		Params:  map[string]any{"x": 1},
	}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "redshift", merged.Type)
	assert.Equal(t, "staging", merged.Host)
	assert.Equal(t, "awsuser", merged.User)
	assert.Equal(t, map[string]string{"sslmode": "require", "connect_timeout": "5"}, merged.Options)
	assert.Equal(t, map[string]any{"x": 1}, merged.Params)

	// base is not modified
	assert.Equal(t, "prod", base.Host)
	assert.Len(t, base.Options, 1)

	assert.Same(t, override, MergeTargetConfig(nil, override))
	assert.Same(t, base, MergeTargetConfig(base, nil))
}

package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "snowflake",
		Available: []string{"duckdb", "redshift"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "snowflake")
	assert.Contains(t, msg, "redshift")
	assert.Contains(t, msg, "leapetl.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestNewAdapter(t *testing.T) {
	t.Run("empty type", func(t *testing.T) {
		_, err := NewAdapter(Config{}, nil)
		require.Error(t, err)
		assert.Equal(t, "adapter type not specified", err.Error())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewAdapter(Config{Type: "oracle"}, nil)
		var unknown *UnknownAdapterError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "oracle", unknown.Type)
	})

	t.Run("type lookup is case-insensitive", func(t *testing.T) {
		Register("test_case_adapter", func(_ *slog.Logger) Adapter { return nil })
		_, err := NewAdapter(Config{Type: "TEST_Case_Adapter"}, nil)
		assert.NoError(t, err)
	})
}

func TestRegister_Panics(t *testing.T) {
	factory := func(_ *slog.Logger) Adapter { return nil }
	Register("test_dup_adapter", factory)

	assert.Panics(t, func() { Register("TEST_DUP_ADAPTER", factory) }, "duplicate name")
	assert.Panics(t, func() { Register(" ", factory) }, "empty name")
	assert.Panics(t, func() { Register("test_nil_factory", nil) }, "nil factory")
}

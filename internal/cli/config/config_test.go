package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/redshift"
)

func testdataConfig(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", "leapetl.yaml"))
	require.NoError(t, err)
	return path
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("env", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.String("log-level", "", "")
	flags.StringP("output", "o", "", "")
	flags.String("database", "", "")
	flags.String("target", "", "")
	flags.String("pushgateway-url", "", "")
	flags.String("unrelated", "", "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultMetricsJob, cfg.Metrics.Job)
	assert.False(t, cfg.Metrics.Enabled())

	// the shipped pipeline
	assert.Equal(t, pipeline.DefaultDefinition(), cfg.Pipeline)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "redshift", cfg.Target.Type)
	assert.Equal(t, 5439, cfg.Target.Port)

	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Setenv("TEST_REDSHIFT_HOST", "sparkify.abc123.us-west-2.redshift.amazonaws.com")
	t.Setenv("TEST_REDSHIFT_PASSWORD", "Passw0rd")
	t.Setenv("TEST_AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("TEST_AWS_SECRET_ACCESS_KEY", "secret")

	path := testdataConfig(t)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Dir(path), cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(filepath.Dir(path), ".leapetl", "state.db"), cfg.StatePath)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.Equal(t, "sparkify.abc123.us-west-2.redshift.amazonaws.com", cfg.Target.Host)
	assert.Equal(t, "Passw0rd", cfg.Target.Password)
	assert.Equal(t, "require", cfg.Target.Options["sslmode"])

	conn := cfg.Connections["aws_credentials"]
	assert.Equal(t, "AKIAEXAMPLE", conn.AccessKeyID)
	assert.Equal(t, "secret", conn.SecretAccessKey)
	assert.NoError(t, cfg.ValidateConnections())

	p := cfg.Pipeline
	assert.Equal(t, "udacity", p.Args.Owner)
	assert.Equal(t, time.Date(2019, 1, 12, 0, 0, 0, 0, time.UTC), p.Args.StartDate)
	assert.Equal(t, 2, p.Args.Retries)
	assert.Equal(t, 30*time.Second, p.Args.RetryDelay)
	assert.Equal(t, 2, p.Args.MaxActiveTasks)
	assert.True(t, p.PartitionByDate)
	assert.Equal(t, pipeline.ModeAppend, p.Modes["songplays"])
	assert.Equal(t, []string{"songplays", "users"}, p.Quality.Tables)

	// untouched pipeline keys keep their defaults
	assert.Equal(t, "s3://udacity-dend/log_data", p.Events.SourcePath)
	assert.Equal(t, "s3://udacity-dend/log_json_path.json", p.Events.JSONMapping)

	assert.True(t, cfg.Metrics.Enabled())
	assert.Equal(t, "leapetl", cfg.Metrics.Job)

	_, err = pipeline.Define(p)
	assert.NoError(t, err)
}

func TestLoadConfig_UnsetVariableKeepsPlaceholder(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Setenv("TEST_REDSHIFT_HOST", "h")

	cfg, err := LoadConfig(testdataConfig(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "${TEST_REDSHIFT_PASSWORD}", cfg.Target.Password)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("..", "..", "..", "leapetl.example.yaml"))
	require.NoError(t, err)
	t.Setenv("REDSHIFT_HOST", "sparkify.abc123.us-west-2.redshift.amazonaws.com")

	t.Run("default environment", func(t *testing.T) {
		t.Cleanup(ResetConfig)
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)

		assert.Equal(t, DefaultEnv, cfg.Environment)
		assert.Equal(t, "redshift", cfg.Target.Type)
		assert.Equal(t, "sparkify.abc123.us-west-2.redshift.amazonaws.com", cfg.Target.Host)
		assert.Equal(t, "udacity", cfg.Pipeline.Args.Owner)
		assert.Equal(t, 5*time.Minute, cfg.Pipeline.Args.RetryDelay)
		assert.Equal(t, "static", cfg.Connections["aws_credentials"].Type)
	})

	t.Run("local environment", func(t *testing.T) {
		t.Cleanup(ResetConfig)
		flags := newFlags()
		require.NoError(t, flags.Parse([]string{"--env", "local"}))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "duckdb", cfg.Target.Type)
		assert.Equal(t, "default", cfg.Connections["aws_credentials"].Type)
	})
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Setenv("TEST_REDSHIFT_HOST", "h")

	path := testdataConfig(t)
	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--env", "local"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	root := filepath.Dir(path)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, filepath.Join(root, "local", "state.db"), cfg.StatePath)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, filepath.Join(root, "sparkify.duckdb"), cfg.Target.Database)
	// merged from the base target
	assert.Equal(t, "awsuser", cfg.Target.User)

	conn := cfg.Connections["aws_credentials"]
	assert.Equal(t, "profile", conn.Type)
	assert.Equal(t, "sparkify", conn.Profile)
}

func TestLoadConfig_UnknownEnvironment(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Setenv("TEST_REDSHIFT_HOST", "h")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--env", "prod"}))

	_, err := LoadConfig(testdataConfig(t), flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment "prod" is not defined`)
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Cleanup(ResetConfig)
	path := writeConfig(t, `
log_level: warn
output: text
target:
  type: duckdb
pipeline:
  retries: 5
`)

	t.Setenv("LEAPETL_LOG_LEVEL", "error")
	t.Setenv("LEAPETL_PIPELINE__RETRIES", "7")
	t.Setenv("LEAPETL_PIPELINE__EVENTS__SOURCE_PATH", "s3://other-bucket/log_data")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--output", "json", "--log-level", "debug", "--unrelated", "x"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flag beats env")
	assert.Equal(t, "json", cfg.OutputFormat, "flag beats file")
	assert.Equal(t, 7, cfg.Pipeline.Args.Retries, "env beats file")
	assert.Equal(t, "s3://other-bucket/log_data", cfg.Pipeline.Events.SourcePath)
	assert.Equal(t, "main", cfg.Target.Schema)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown key",
			body:    "target:\n  type: duckdb\nmodels_dir: models\n",
			wantErr: "models_dir",
		},
		{
			name:    "bad json mapping",
			body:    "target:\n  type: duckdb\npipeline:\n  events:\n    json_mapping: jsonpaths.json\n",
			wantErr: "pipeline.events.json_mapping",
		},
		{
			name:    "bad output",
			body:    "output: yaml\ntarget:\n  type: duckdb\n",
			wantErr: "output must be one of",
		},
		{
			name:    "unknown target",
			body:    "target:\n  type: oracle\n",
			wantErr: "unknown warehouse type",
		},
		{
			name:    "bad start date",
			body:    "target:\n  type: duckdb\npipeline:\n  start_date: yesterday\n",
			wantErr: "yesterday",
		},
		{
			name:    "assume role without arn",
			body:    "target:\n  type: duckdb\nconnections:\n  aws_credentials:\n    type: assume_role\n",
			wantErr: "role_arn",
		},
		{
			name:    "empty quality tables",
			body:    "target:\n  type: duckdb\npipeline:\n  quality:\n    tables: []\n",
			wantErr: "pipeline.quality.tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(ResetConfig)
			_, err := LoadConfig(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Cleanup(ResetConfig)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	t.Cleanup(ResetConfig)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("target:\n  type: duckdb\n"), 0o600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), GetConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestValidateConnections(t *testing.T) {
	cfg := &Config{Pipeline: pipeline.DefaultDefinition()}
	err := cfg.ValidateConnections()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `connection "aws_credentials"`)

	cfg.Connections = map[string]Connection{"aws_credentials": {Type: "default"}}
	assert.NoError(t, cfg.ValidateConnections())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPETL_TEST_VALUE", "expanded")
	assert.Equal(t, "expanded", expandEnvVars("${LEAPETL_TEST_VALUE}"))
	assert.Equal(t, "a-expanded-b", expandEnvVars("a-${LEAPETL_TEST_VALUE}-b"))
	assert.Equal(t, "${LEAPETL_TEST_MISSING}", expandEnvVars("${LEAPETL_TEST_MISSING}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

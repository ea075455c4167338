package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/leapetl/internal/config"
	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes environment variable overrides. A double underscore
// separates nesting levels: LEAPETL_TARGET__HOST sets target.host.
const EnvPrefix = "LEAPETL_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a leapetl config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if p := configExistsIn(dir); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, ":memory:", remote or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// defaults returns the built-in configuration as a nested map. The
// pipeline section is the shipped Sparkify definition.
func defaults() (map[string]any, error) {
	raw, err := yamlv3.Marshal(pipeline.DefaultDefinition())
	if err != nil {
		return nil, err
	}
	var def map[string]any
	if err := yamlv3.Unmarshal(raw, &def); err != nil {
		return nil, err
	}

	return map[string]any{
		"state_path":  DefaultStateFile,
		"environment": DefaultEnv,
		"verbose":     false,
		"log_level":   DefaultLogLevel,
		"output":      DefaultOutput,
		"pipeline":    def,
		"metrics": map[string]any{
			"job": DefaultMetricsJob,
		},
	}, nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed = ""

	// 1. Load defaults
	defs, err := defaults()
	if err != nil {
		return nil, fmt.Errorf("failed to build defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(defs, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = findConfigUpward(cwd)
		}
	}
	projectRoot, _ := os.Getwd()
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Load environment variables (LEAPETL_ prefix)
	// Transform: LEAPETL_TARGET__HOST -> target.host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.ProjectRoot = projectRoot

	// 6. Apply the selected environment
	if err := cfg.applyEnvironment(cfg.Environment); err != nil {
		return nil, err
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	intconfig.ApplyTargetDefaults(cfg.Target)
	cfg.expandEnvVars()

	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	if cfg.Target.Type == "duckdb" {
		cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
	}
	cfg.Pipeline.Events.SourcePath = resolvePathRelativeTo(cfg.Pipeline.Events.SourcePath, projectRoot)
	cfg.Pipeline.Songs.SourcePath = resolvePathRelativeTo(cfg.Pipeline.Songs.SourcePath, projectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = cfg

	return cfg, nil
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"state":           "state_path",
	"env":             "environment",
	"verbose":         "verbose",
	"log-level":       "log_level",
	"output":          "output",
	"database":        "target.database",
	"target":          "target.type",
	"pushgateway-url": "metrics.pushgateway_url",
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToTimeHook(),
				mapstructure.StringToSliceHookFunc(","),
			),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// stringToTimeHook parses RFC 3339 timestamps and plain dates.
func stringToTimeHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as a date or RFC 3339 timestamp", s)
	}
}

// applyEnvironment merges the overrides of the named environment. The
// default environment needs no declaration; any other name must be declared
// once environments are in use.
func (c *Config) applyEnvironment(name string) error {
	if name == "" || len(c.Environments) == 0 {
		return nil
	}
	envCfg, ok := c.Environments[name]
	if !ok {
		if name == DefaultEnv {
			return nil
		}
		names := make([]string, 0, len(c.Environments))
		for n := range c.Environments {
			names = append(names, n)
		}
		return fmt.Errorf("environment %q is not defined (available: %s)", name, strings.Join(names, ", "))
	}

	if envCfg.StatePath != "" {
		c.StatePath = envCfg.StatePath
	}
	if envCfg.Target != nil {
		c.Target = intconfig.MergeTargetConfig(c.Target, envCfg.Target)
	}
	if len(envCfg.Connections) > 0 {
		merged := make(map[string]Connection, len(c.Connections)+len(envCfg.Connections))
		for id, conn := range c.Connections {
			merged[id] = conn
		}
		for id, conn := range envCfg.Connections {
			merged[id] = conn
		}
		c.Connections = merged
	}
	if envCfg.Metrics != nil {
		if envCfg.Metrics.PushgatewayURL != "" {
			c.Metrics.PushgatewayURL = envCfg.Metrics.PushgatewayURL
		}
		if envCfg.Metrics.Job != "" {
			c.Metrics.Job = envCfg.Metrics.Job
		}
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR}
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandEnvVars expands environment variables in sensitive and
// deployment-specific fields.
func (c *Config) expandEnvVars() {
	if t := c.Target; t != nil {
		t.Password = expandEnvVars(t.Password)
		t.User = expandEnvVars(t.User)
		t.Host = expandEnvVars(t.Host)
		t.Database = expandEnvVars(t.Database)
	}
	for id, conn := range c.Connections {
		conn.AccessKeyID = expandEnvVars(conn.AccessKeyID)
		conn.SecretAccessKey = expandEnvVars(conn.SecretAccessKey)
		conn.SessionToken = expandEnvVars(conn.SessionToken)
		conn.RoleARN = expandEnvVars(conn.RoleARN)
		conn.ExternalID = expandEnvVars(conn.ExternalID)
		conn.Profile = expandEnvVars(conn.Profile)
		c.Connections[id] = conn
	}
	c.Pipeline.Events.SourcePath = expandEnvVars(c.Pipeline.Events.SourcePath)
	c.Pipeline.Songs.SourcePath = expandEnvVars(c.Pipeline.Songs.SourcePath)
	c.Metrics.PushgatewayURL = expandEnvVars(c.Metrics.PushgatewayURL)
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapetl/internal/pipeline"
	"github.com/leapstack-labs/leapetl/internal/schema"
)

// generateSchemaDocs generates the configuration and warehouse table references.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateTablesDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate tables.md: %w", err)
	}
	log.Printf("  Generated tables.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "target", "pipeline", "connection"
}

// getConfigSchema returns the configuration schema definition.
// This is based on internal/cli/config/types.go and internal/pipeline.
func getConfigSchema() []ConfigField {
	def := pipeline.DefaultDefinition()
	return []ConfigField{
		{Name: "state_path", Type: "string", Default: ".leapetl/state.db", Description: "SQLite run history database", Category: "project"},
		{Name: "environment", Type: "string", Default: "dev", Description: "Environment name recorded with each run", Category: "project"},
		{Name: "log_level", Type: "string", Default: "info", Description: "debug, info, warn or error", Category: "project"},
		{Name: "output", Type: "string", Default: "auto", Description: "auto, text, markdown or json", Category: "project"},
		{Name: "metrics.pushgateway_url", Type: "string", Description: "Push run metrics to this Prometheus Pushgateway", Category: "project"},

		{Name: "type", Type: "string", Default: "redshift", Description: "Warehouse type: redshift or duckdb", Category: "target"},
		{Name: "host", Type: "string", Description: "Redshift cluster endpoint", Category: "target"},
		{Name: "port", Type: "int", Default: "5439", Description: "Redshift port", Category: "target"},
		{Name: "database", Type: "string", Description: "Database name, or DuckDB file path", Category: "target"},
		{Name: "user", Type: "string", Description: "Database user", Category: "target"},
		{Name: "password", Type: "string", Description: "Database password", Category: "target"},
		{Name: "schema", Type: "string", Default: "public", Description: "Schema the tables live in", Category: "target"},
		{Name: "params", Type: "map[string]any", Description: "Adapter-specific settings (DuckDB extensions and settings)", Category: "target"},

		{Name: "owner", Type: "string", Default: def.Args.Owner, Description: "Pipeline owner", Category: "pipeline"},
		{Name: "retries", Type: "int", Default: fmt.Sprint(def.Args.Retries), Description: "Retries per failing task", Category: "pipeline"},
		{Name: "retry_delay", Type: "duration", Default: def.Args.RetryDelay.String(), Description: "Delay between attempts", Category: "pipeline"},
		{Name: "max_active_tasks", Type: "int", Default: fmt.Sprint(def.Args.MaxActiveTasks), Description: "Concurrent tasks per level", Category: "pipeline"},
		{Name: "partition_by_date", Type: "bool", Default: "false", Description: "Load only the execution date's partition", Category: "pipeline"},
		{Name: "events / songs", Type: "stage", Description: "table, source_path, json_mapping, credentials_id, region, partition_layout", Category: "pipeline"},
		{Name: "modes", Type: "map[string]string", Description: "append or replace per fact or dimension table", Category: "pipeline"},
		{Name: "quality.tables", Type: "[]string", Default: strings.Join(def.Quality.Tables, ", "), Description: "Tables checked by the quality gate", Category: "pipeline"},

		{Name: "type", Type: "string", Description: "static, profile, default or assume_role", Category: "connection"},
		{Name: "access_key_id / secret_access_key", Type: "string", Description: "Static key pair", Category: "connection"},
		{Name: "profile", Type: "string", Description: "Shared config profile", Category: "connection"},
		{Name: "role_arn", Type: "string", Description: "Role assumed through STS", Category: "connection"},
		{Name: "region", Type: "string", Description: "AWS region", Category: "connection"},
	}
}

func fieldTable(w *MarkdownWriter, category string) {
	headers := []string{"Field", "Type", "Default", "Description"}
	var rows [][]string
	for _, f := range getConfigSchema() {
		if f.Category != category {
			continue
		}
		defVal := "-"
		if f.Default != "" {
			defVal = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
	}
	w.Table(headers, rows)
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leapetl configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapetl is configured via `leapetl.yaml`, searched upward from the working directory.")

	w.Header(2, "Project Settings")
	fieldTable(w, "project")

	w.Header(2, "Target")
	w.Paragraph("The warehouse the pipeline loads, under the `target` key.")
	fieldTable(w, "target")

	w.Header(2, "Pipeline")
	w.Paragraph("Settings under the `pipeline` key. Everything defaults to the shipped Sparkify pipeline.")
	fieldTable(w, "pipeline")

	w.Header(2, "Connections")
	w.Paragraph("Named object-storage credentials under `connections`, referenced by a stage's `credentials_id`.")
	fieldTable(w, "connection")

	w.Header(2, "Environment Variables")
	w.Paragraph("Use `${VAR_NAME}` syntax to reference environment variables in your configuration:")
	w.CodeBlock("yaml", `target:
  type: redshift
  host: ${REDSHIFT_HOST}
  password: ${REDSHIFT_PASSWORD}`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateTablesDoc documents the warehouse DDL.
func generateTablesDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Warehouse Tables", "Staging and star-schema tables")
	w.GeneratedMarker()

	w.Header(1, "Warehouse Tables")
	w.Paragraph("Created by `leapetl schema --apply` or `leapetl run --create-tables`.")

	for i, stmt := range schema.Statements() {
		w.Header(2, schema.Tables[i])
		w.CodeBlock("sql", stmt+";")
	}

	filename := filepath.Join(outDir, "tables.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// Package pipeline declares the Sparkify task graph.
//
// A Pipeline is an immutable dag.Graph of Tasks built once at startup through
// a Builder. Each Task carries the typed configuration of exactly one
// operator kind; executing it is the job of internal/operators.
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind identifies which operator executes a task.
type Kind string

// Task kinds.
const (
	KindStart   Kind = "start"
	KindStage   Kind = "stage"
	KindLoad    Kind = "load"
	KindQuality Kind = "quality"
)

// LoadMode controls whether a load clears its target first.
type LoadMode string

// Load modes.
const (
	ModeAppend  LoadMode = "append"
	ModeReplace LoadMode = "replace"
)

// Role labels a load task as feeding the fact or a dimension table.
type Role string

// Load roles.
const (
	RoleFact      Role = "fact"
	RoleDimension Role = "dimension"
)

// StageConfig describes a bulk JSON load from object storage into a staging table.
type StageConfig struct {
	Table         string `mapstructure:"table" yaml:"table" validate:"required"`
	SourcePath    string `mapstructure:"source_path" yaml:"source_path" validate:"required"`
	JSONMapping   string `mapstructure:"json_mapping" yaml:"json_mapping" validate:"required,json_mapping"`
	CredentialsID string `mapstructure:"credentials_id" yaml:"credentials_id" validate:"required"`
	Region        string `mapstructure:"region" yaml:"region,omitempty"`
	// PartitionLayout is a Go time layout appended to SourcePath when a run
	// has an execution date, e.g. "2006/02" (year and day of month).
	PartitionLayout string `mapstructure:"partition_layout" yaml:"partition_layout,omitempty"`
}

// Source returns the object-storage prefix to load for a run.
// Without an execution date or a partition layout the full prefix is used.
func (c StageConfig) Source(executionDate *time.Time) string {
	if executionDate == nil || c.PartitionLayout == "" {
		return c.SourcePath
	}
	return strings.TrimRight(c.SourcePath, "/") + "/" + executionDate.UTC().Format(c.PartitionLayout) + "/"
}

// LoadConfig describes an INSERT INTO <Table> <Query> task.
type LoadConfig struct {
	Table string   `validate:"required"`
	Query string   `validate:"required"`
	Mode  LoadMode `validate:"required,oneof=append replace"`
	Role  Role     `validate:"required,oneof=fact dimension"`
}

// QualityCheckConfig lists the tables that must not be empty.
type QualityCheckConfig struct {
	Tables []string `mapstructure:"tables" yaml:"tables" validate:"required,min=1,dive,required"`
}

// Task is a node of the pipeline graph.
type Task struct {
	ID      string
	Kind    Kind
	Stage   *StageConfig
	Load    *LoadConfig
	Quality *QualityCheckConfig
}

// clone returns a copy of t that shares no config with the original.
func (t Task) clone() Task {
	if t.Stage != nil {
		stage := *t.Stage
		t.Stage = &stage
	}
	if t.Load != nil {
		load := *t.Load
		t.Load = &load
	}
	if t.Quality != nil {
		quality := *t.Quality
		quality.Tables = slices.Clone(quality.Tables)
		t.Quality = &quality
	}
	return t
}

// Validate checks that the task carries exactly the config its kind needs
// and that the config is complete.
func (t Task) Validate() error {
	if t.ID == "" {
		return &ConfigError{Field: "id", Reason: "is required"}
	}

	set := 0
	for _, present := range []bool{t.Stage != nil, t.Load != nil, t.Quality != nil} {
		if present {
			set++
		}
	}

	switch t.Kind {
	case KindStart:
		if set != 0 {
			return &ConfigError{Task: t.ID, Field: "kind", Reason: "start tasks take no configuration"}
		}
		return nil
	case KindStage:
		if t.Stage == nil || set != 1 {
			return &ConfigError{Task: t.ID, Field: "stage", Reason: "stage tasks need exactly a stage config"}
		}
		return validateStruct(t.ID, t.Stage)
	case KindLoad:
		if t.Load == nil || set != 1 {
			return &ConfigError{Task: t.ID, Field: "load", Reason: "load tasks need exactly a load config"}
		}
		return validateStruct(t.ID, t.Load)
	case KindQuality:
		if t.Quality == nil || set != 1 {
			return &ConfigError{Task: t.ID, Field: "quality", Reason: "quality tasks need exactly a quality config"}
		}
		return validateStruct(t.ID, t.Quality)
	default:
		return &ConfigError{Task: t.ID, Field: "kind", Reason: fmt.Sprintf("unknown kind %q", t.Kind)}
	}
}

// Target returns the table a task writes to, or "" for start and quality tasks.
func (t Task) Target() string {
	switch {
	case t.Stage != nil:
		return t.Stage.Table
	case t.Load != nil:
		return t.Load.Table
	default:
		return ""
	}
}

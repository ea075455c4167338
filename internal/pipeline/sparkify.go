package pipeline

import (
	"fmt"

	"github.com/leapstack-labs/leapetl/internal/queries"
)

// Task IDs of the Sparkify pipeline.
const (
	TaskBegin        = "Begin_execution"
	TaskStageEvents  = "Stage_events"
	TaskStageSongs   = "Stage_songs"
	TaskLoadSongplay = "Load_songplays_fact_table"
	TaskLoadUsers    = "Load_user_dim_table"
	TaskLoadSongs    = "Load_song_dim_table"
	TaskLoadArtists  = "Load_artist_dim_table"
	TaskLoadTime     = "Load_time_dim_table"
	TaskQuality      = "Run_data_quality_checks"
)

// Definition is the typed input to Define.
type Definition struct {
	Name        string      `mapstructure:"name" yaml:"name" validate:"required"`
	Description string      `mapstructure:"description" yaml:"description,omitempty"`
	Schedule    string      `mapstructure:"schedule" yaml:"schedule,omitempty"`
	Args        DefaultArgs `mapstructure:",squash" yaml:",inline"`

	// PartitionByDate gives stages without a PartitionLayout the default
	// year/day-of-month layout.
	PartitionByDate bool `mapstructure:"partition_by_date" yaml:"partition_by_date"`

	Events StageConfig `mapstructure:"events" yaml:"events"`
	Songs  StageConfig `mapstructure:"songs" yaml:"songs"`

	// Modes maps a fact or dimension table to its load mode. Missing
	// tables use replace.
	Modes map[string]LoadMode `mapstructure:"modes" yaml:"modes,omitempty"`

	Quality QualityCheckConfig `mapstructure:"quality" yaml:"quality"`
}

// DefaultDefinition returns the Sparkify pipeline as shipped: the public
// udacity-dend bucket, every table in replace mode and a gate over all five
// star-schema tables.
func DefaultDefinition() Definition {
	return Definition{
		Name:        "sparkify",
		Description: "Load and transform Sparkify data in the warehouse",
		Args:        DefaultDefaultArgs(),
		Events: StageConfig{
			Table:         "staging_events",
			SourcePath:    "s3://udacity-dend/log_data",
			JSONMapping:   "s3://udacity-dend/log_json_path.json",
			CredentialsID: "aws_credentials",
			Region:        "us-west-2",
		},
		Songs: StageConfig{
			Table:         "staging_songs",
			SourcePath:    "s3://udacity-dend/song_data",
			JSONMapping:   "auto",
			CredentialsID: "aws_credentials",
			Region:        "us-west-2",
		},
		Quality: QualityCheckConfig{
			Tables: []string{"songplays", "songs", "artists", "time", "users"},
		},
	}
}

type loadSpec struct {
	id    string
	table string
	role  Role
}

var dimensionLoads = []loadSpec{
	{TaskLoadUsers, "users", RoleDimension},
	{TaskLoadSongs, "songs", RoleDimension},
	{TaskLoadArtists, "artists", RoleDimension},
	{TaskLoadTime, "time", RoleDimension},
}

// Define declares the Sparkify graph:
//
//	Begin_execution
//	  -> Stage_events, Stage_songs
//	  -> Load_songplays_fact_table
//	  -> Load_user_dim_table, Load_song_dim_table, Load_artist_dim_table, Load_time_dim_table
//	  -> Run_data_quality_checks
func Define(def Definition) (*Pipeline, error) {
	for table, mode := range def.Modes {
		if _, ok := queries.ForTable(table); !ok {
			return nil, &ConfigError{Field: "modes." + table, Reason: "is not a fact or dimension table"}
		}
		if mode != ModeAppend && mode != ModeReplace {
			return nil, &ConfigError{Field: "modes." + table, Reason: fmt.Sprintf("must be one of: append replace, got %q", mode)}
		}
	}

	events, songs := def.Events, def.Songs
	if def.PartitionByDate {
		for _, s := range []*StageConfig{&events, &songs} {
			if s.PartitionLayout == "" {
				s.PartitionLayout = DefaultPartitionLayout
			}
		}
	}
	quality := QualityCheckConfig{Tables: append([]string(nil), def.Quality.Tables...)}

	b := NewBuilder(def.Name, def.Args)
	b.AddTask(Task{ID: TaskBegin, Kind: KindStart})
	b.AddTask(Task{ID: TaskStageEvents, Kind: KindStage, Stage: &events})
	b.AddTask(Task{ID: TaskStageSongs, Kind: KindStage, Stage: &songs})
	b.AddTask(loadTask(def, loadSpec{TaskLoadSongplay, "songplays", RoleFact}))
	for _, d := range dimensionLoads {
		b.AddTask(loadTask(def, d))
	}
	b.AddTask(Task{ID: TaskQuality, Kind: KindQuality, Quality: &quality})

	b.AddDependency(TaskBegin, TaskStageEvents)
	b.AddDependency(TaskBegin, TaskStageSongs)
	b.AddDependency(TaskStageEvents, TaskLoadSongplay)
	b.AddDependency(TaskStageSongs, TaskLoadSongplay)
	for _, d := range dimensionLoads {
		b.AddDependency(TaskLoadSongplay, d.id)
		b.AddDependency(d.id, TaskQuality)
	}

	return b.Build()
}

func loadTask(def Definition, s loadSpec) Task {
	mode := def.Modes[s.table]
	if mode == "" {
		mode = ModeReplace
	}
	query, _ := queries.ForTable(s.table)
	return Task{
		ID:   s.id,
		Kind: KindLoad,
		Load: &LoadConfig{Table: s.table, Query: query, Mode: mode, Role: s.role},
	}
}

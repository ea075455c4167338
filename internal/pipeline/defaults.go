package pipeline

import "time"

// DefaultArgs are the pipeline-level policy settings. Only Retries,
// RetryDelay and MaxActiveTasks are evaluated by the local runner; the rest
// are carried for an external orchestrator.
type DefaultArgs struct {
	Owner          string        `mapstructure:"owner" yaml:"owner"`
	StartDate      time.Time     `mapstructure:"start_date" yaml:"start_date"`
	Retries        int           `mapstructure:"retries" yaml:"retries" validate:"gte=0"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" validate:"gte=0"`
	Catchup        bool          `mapstructure:"catchup" yaml:"catchup"`
	EmailOnFailure bool          `mapstructure:"email_on_failure" yaml:"email_on_failure"`
	EmailOnRetry   bool          `mapstructure:"email_on_retry" yaml:"email_on_retry"`
	DependsOnPast  bool          `mapstructure:"depends_on_past" yaml:"depends_on_past"`
	MaxActiveTasks int           `mapstructure:"max_active_tasks" yaml:"max_active_tasks" validate:"gte=0"`
}

// Default policy values.
const (
	DefaultRetries         = 3
	DefaultRetryDelay      = 5 * time.Minute
	DefaultMaxActiveTasks  = 4
	DefaultPartitionLayout = "2006/02"
)

// DefaultDefaultArgs returns the policy used when the config file is silent.
func DefaultDefaultArgs() DefaultArgs {
	return DefaultArgs{
		Owner:          "sparkify",
		Retries:        DefaultRetries,
		RetryDelay:     DefaultRetryDelay,
		MaxActiveTasks: DefaultMaxActiveTasks,
	}
}

// Package output renders command results for terminals, pipes and machines.
//
// Auto mode picks styled text on a terminal and markdown otherwise, so
// piped output stays readable for scripts and agents. JSON mode is for
// automation.
package output

import "fmt"

// Mode selects how results are rendered.
type Mode string

// OutputMode is an alias kept for readability at call sites.
type OutputMode = Mode

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ParseMode validates a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeText, ModeMarkdown, ModeJSON:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want auto, text, markdown or json)", s)
	}
}

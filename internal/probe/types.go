// Package probe implements the environment checks that explain protocol
// failures without needing a live protocol exchange: is the server process
// there, is the socket healthy, is the editor configured, are the required
// extensions installed. Probes are independent of one another and never
// short-circuit; the report needs the full picture.
package probe

import (
	"context"
	"time"
)

// Outcome is the tri-state result of one probe.
type Outcome string

const (
	// OutcomePassed indicates the precondition holds.
	OutcomePassed Outcome = "PASSED"
	// OutcomeFailed indicates the precondition does not hold.
	OutcomeFailed Outcome = "FAILED"
	// OutcomeSkipped indicates the probe could not run at all, e.g. its
	// external collaborator is absent. Skipped probes do not fail a run.
	OutcomeSkipped Outcome = "SKIPPED"
)

// Result is the outcome of a single probe.
type Result struct {
	// Name identifies the probe.
	Name string `json:"name"`
	// Outcome is the tri-state result.
	Outcome Outcome `json:"outcome"`
	// Detail is the human-readable finding, set for every outcome.
	Detail string `json:"detail,omitempty"`
	// Remediation is the fixed advice text, set only on failure.
	Remediation string `json:"remediation,omitempty"`
	// Duration is how long the probe took.
	Duration time.Duration `json:"duration"`
}

// Probe is a single environment check. Run never panics and never returns an
// error: a broken precondition is a failed Result, not a Go error.
type Probe interface {
	Name() string
	Run(ctx context.Context) Result
}

// Package report aggregates probe and scenario outcomes into one run
// verdict and renders it for the console and as a JSON artifact.
package report

import (
	"time"

	"github.com/google/uuid"

	"mcpdiag/internal/probe"
	"mcpdiag/internal/scenario"
)

// Summary is the aggregated outcome of one diagnostic run.
type Summary struct {
	RunID     string            `json:"runId"`
	Target    string            `json:"target"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
	Probes    []probe.Result    `json:"probes,omitempty"`
	Scenarios []scenario.Result `json:"scenarios,omitempty"`

	ProbesPassed     int `json:"probesPassed"`
	ProbesFailed     int `json:"probesFailed"`
	ProbesSkipped    int `json:"probesSkipped"`
	ScenariosPassed  int `json:"scenariosPassed"`
	ScenariosFailed  int `json:"scenariosFailed"`
	ScenariosAborted int `json:"scenariosAborted"`

	// Overall is true iff every scenario passed and no probe failed.
	// Skipped probes do not count against the verdict.
	Overall bool `json:"overall"`
}

// Aggregate computes the run verdict from individual results.
func Aggregate(target string, probes []probe.Result, scenarios []scenario.Result, started time.Time) Summary {
	s := Summary{
		RunID:     uuid.New().String(),
		Target:    target,
		StartedAt: started,
		Duration:  time.Since(started),
		Probes:    probes,
		Scenarios: scenarios,
	}

	for _, p := range probes {
		switch p.Outcome {
		case probe.OutcomePassed:
			s.ProbesPassed++
		case probe.OutcomeFailed:
			s.ProbesFailed++
		case probe.OutcomeSkipped:
			s.ProbesSkipped++
		}
	}
	for _, sc := range scenarios {
		switch {
		case sc.State == scenario.StateAborted:
			s.ScenariosAborted++
		case sc.Passed:
			s.ScenariosPassed++
		default:
			s.ScenariosFailed++
		}
	}

	s.Overall = s.ProbesFailed == 0 && s.ScenariosFailed == 0 && s.ScenariosAborted == 0
	return s
}

// ExitCode maps the verdict to the process exit status. A transport that
// cannot even be constructed is handled before a Summary exists and exits
// with a distinct code.
func (s Summary) ExitCode() int {
	if s.Overall {
		return 0
	}
	return 1
}

// Remediations collects the probe remediation hints from failing probes, in
// probe order, without duplicates.
func (s Summary) Remediations() []string {
	seen := make(map[string]bool)
	var hints []string
	for _, p := range s.Probes {
		if p.Outcome != probe.OutcomeFailed || p.Remediation == "" {
			continue
		}
		if seen[p.Remediation] {
			continue
		}
		seen[p.Remediation] = true
		hints = append(hints, p.Remediation)
	}
	return hints
}

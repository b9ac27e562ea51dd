package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mcpdiag/internal/color"
	"mcpdiag/internal/probe"
	"mcpdiag/internal/scenario"
)

// Renderer writes a run summary to the console.
type Renderer struct {
	out     io.Writer
	verbose bool
}

// NewRenderer builds a console renderer.
func NewRenderer(out io.Writer, verbose bool) *Renderer {
	return &Renderer{out: out, verbose: verbose}
}

// Render prints the summary. Verbose mode adds per-step detail and raw
// diagnostics; the compact mode is one line per check.
func (r *Renderer) Render(s Summary) {
	fmt.Fprintf(r.out, "🔍 %s\n\n", color.Header.Render("MCP diagnostics for "+s.Target))

	if len(s.Probes) > 0 {
		fmt.Fprintf(r.out, "Environment probes:\n")
		for _, p := range s.Probes {
			fmt.Fprintf(r.out, "  %s %s: %s\n", outcomeSymbol(p.Outcome), p.Name, p.Detail)
			if r.verbose && p.Remediation != "" {
				fmt.Fprintf(r.out, "     💡 %s\n", p.Remediation)
			}
		}
		fmt.Fprintf(r.out, "\n")
	}

	if len(s.Scenarios) > 0 {
		fmt.Fprintf(r.out, "Protocol scenarios:\n")
		for _, sc := range s.Scenarios {
			r.renderScenario(sc)
		}
		fmt.Fprintf(r.out, "\n")
	}

	fmt.Fprintf(r.out, "📊 Results:\n")
	if len(s.Probes) > 0 {
		fmt.Fprintf(r.out, "   Probes: %d passed", s.ProbesPassed)
		if s.ProbesFailed > 0 {
			fmt.Fprintf(r.out, ", %d failed", s.ProbesFailed)
		}
		if s.ProbesSkipped > 0 {
			fmt.Fprintf(r.out, ", %d skipped", s.ProbesSkipped)
		}
		fmt.Fprintf(r.out, "\n")
	}
	if len(s.Scenarios) > 0 {
		fmt.Fprintf(r.out, "   Scenarios: %d passed", s.ScenariosPassed)
		if s.ScenariosFailed > 0 {
			fmt.Fprintf(r.out, ", %d failed", s.ScenariosFailed)
		}
		if s.ScenariosAborted > 0 {
			fmt.Fprintf(r.out, ", %d aborted", s.ScenariosAborted)
		}
		fmt.Fprintf(r.out, "\n")
	}

	if hints := s.Remediations(); len(hints) > 0 {
		fmt.Fprintf(r.out, "\n💡 Suggested fixes:\n")
		for _, hint := range hints {
			fmt.Fprintf(r.out, "   • %s\n", hint)
		}
	}

	if s.Overall {
		fmt.Fprintf(r.out, "\n🎉 %s\n", color.Success.Render("All checks passed"))
	} else {
		fmt.Fprintf(r.out, "\n💔 %s\n", color.Error.Render("Some checks failed"))
	}
}

func (r *Renderer) renderScenario(sc scenario.Result) {
	if sc.State == scenario.StateAborted {
		fmt.Fprintf(r.out, "  💥 %s: %s\n", sc.Name, sc.Diagnostic)
		return
	}

	symbol := "✅"
	if !sc.Passed {
		symbol = "❌"
	}
	fmt.Fprintf(r.out, "  %s %s (%d step(s))\n", symbol, sc.Name, len(sc.Steps))

	for _, step := range sc.Steps {
		if step.Outcome == scenario.StepPassed && !r.verbose {
			continue
		}
		fmt.Fprintf(r.out, "     %s %s", stepSymbol(step.Outcome), step.Name)
		if step.Diagnostic != "" {
			fmt.Fprintf(r.out, ": [%s] %s", step.Kind, step.Diagnostic)
		}
		fmt.Fprintf(r.out, "\n")
	}
}

func outcomeSymbol(o probe.Outcome) string {
	switch o {
	case probe.OutcomePassed:
		return "✅"
	case probe.OutcomeFailed:
		return "❌"
	case probe.OutcomeSkipped:
		return "⏭️"
	default:
		return "❓"
	}
}

func stepSymbol(o scenario.StepOutcome) string {
	switch o {
	case scenario.StepPassed:
		return "✅"
	case scenario.StepFailed:
		return "❌"
	case scenario.StepError:
		return "💥"
	default:
		return "❓"
	}
}

// WriteJSON saves the full summary under dir with a timestamped filename and
// returns the path written.
func (s Summary) WriteJSON(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	timestamp := s.StartedAt.Format("20060102-150405")
	if s.StartedAt.IsZero() {
		timestamp = time.Now().Format("20060102-150405")
	}
	path := filepath.Join(dir, fmt.Sprintf("mcpdiag-report-%s.json", timestamp))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

package probe

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ExtensionProbe lists the editor's installed extensions through an external
// command and intersects them with the required set. If the command itself
// is not installed the probe is skipped, not failed: a headless host without
// the editor is a valid place to run the harness.
type ExtensionProbe struct {
	// ListCommand prints installed extension identifiers, one per line.
	ListCommand []string
	// Required maps extension identifier to display name.
	Required map[string]string
}

func (p *ExtensionProbe) Name() string { return "editor-extensions" }

func (p *ExtensionProbe) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{Name: p.Name()}
	defer func() { result.Duration = time.Since(start) }()

	if len(p.ListCommand) == 0 {
		result.Outcome = OutcomeSkipped
		result.Detail = "no extension list command configured"
		return result
	}

	binary := p.ListCommand[0]
	if _, err := exec.LookPath(binary); err != nil {
		result.Outcome = OutcomeSkipped
		result.Detail = fmt.Sprintf("%s not installed", binary)
		return result
	}

	out, err := exec.CommandContext(ctx, binary, p.ListCommand[1:]...).Output()
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Detail = fmt.Sprintf("%s failed: %v", strings.Join(p.ListCommand, " "), err)
		result.Remediation = fmt.Sprintf("Run %q manually to inspect the editor installation", strings.Join(p.ListCommand, " "))
		return result
	}

	installed := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			installed[strings.ToLower(id)] = true
		}
	}

	var present, missing []string
	for id, name := range p.Required {
		if installed[strings.ToLower(id)] {
			present = append(present, name)
		} else {
			missing = append(missing, fmt.Sprintf("%s (%s)", name, id))
		}
	}
	sort.Strings(present)
	sort.Strings(missing)

	// One capable extension is enough for the integration to work.
	if len(present) > 0 {
		result.Outcome = OutcomePassed
		result.Detail = fmt.Sprintf("found: %s", strings.Join(present, ", "))
		if len(missing) > 0 {
			result.Detail += fmt.Sprintf("; missing: %s", strings.Join(missing, ", "))
		}
	} else {
		result.Outcome = OutcomeFailed
		result.Detail = fmt.Sprintf("none of the required extensions installed: %s", strings.Join(missing, ", "))
		result.Remediation = "Install one of the MCP-capable extensions from the editor marketplace"
	}
	return result
}

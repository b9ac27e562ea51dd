package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"mcpdiag/pkg/logging"
)

// ProcessProbe checks the OS process table for a command line matching the
// server pattern.
type ProcessProbe struct {
	// Pattern is the substring looked for in process command lines,
	// e.g. "nixai mcp-server".
	Pattern string
	// StartHint is the remediation shown when no process matches.
	StartHint string
}

func (p *ProcessProbe) Name() string { return "server-process" }

func (p *ProcessProbe) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{Name: p.Name()}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		// Not being able to read the process table is a skipped probe, not
		// evidence about the server.
		result.Outcome = OutcomeSkipped
		result.Detail = fmt.Sprintf("cannot read process table: %v", err)
		result.Duration = time.Since(start)
		return result
	}

	var matches []int32
	for _, proc := range procs {
		cmdline, err := proc.CmdlineWithContext(ctx)
		if err != nil {
			// Processes come and go while we scan; a vanished one is noise.
			continue
		}
		if strings.Contains(cmdline, p.Pattern) {
			matches = append(matches, proc.Pid)
		}
	}

	if len(matches) > 0 {
		logging.Debug("probe", "found %d process(es) matching %q", len(matches), p.Pattern)
		result.Outcome = OutcomePassed
		result.Detail = fmt.Sprintf("server process running (pid %d)", matches[0])
	} else {
		result.Outcome = OutcomeFailed
		result.Detail = fmt.Sprintf("no process matching %q", p.Pattern)
		result.Remediation = p.StartHint
	}
	result.Duration = time.Since(start)
	return result
}

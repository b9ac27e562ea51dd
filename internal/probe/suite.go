package probe

import (
	"context"
	"sync"

	"mcpdiag/internal/config"
	"mcpdiag/pkg/logging"
)

// Suite is an ordered collection of probes.
type Suite struct {
	probes []Probe
}

// NewSuite builds the standard probe set from the harness configuration.
func NewSuite(cfg config.Config) *Suite {
	return &Suite{
		probes: []Probe{
			&ProcessProbe{
				Pattern:   cfg.Server.ProcessPattern,
				StartHint: cfg.Server.StartHint,
			},
			&SocketProbe{
				Path:        cfg.Server.SocketPath,
				DialTimeout: cfg.Timeouts.ProbeDial,
				StartHint:   cfg.Server.StartHint,
			},
			&ClientConfigProbe{
				SettingsPaths: cfg.Client.SettingsPaths,
				ServerKeys:    cfg.Client.ServerKeys,
				ServerName:    cfg.Server.Name,
				SocketPath:    cfg.Server.SocketPath,
			},
			&ExtensionProbe{
				ListCommand: cfg.Client.ExtensionListCommand,
				Required:    cfg.Client.RequiredExtensions,
			},
		},
	}
}

// NewCustomSuite builds a suite from an explicit probe list. Used by tests
// and callers that want a subset.
func NewCustomSuite(probes ...Probe) *Suite {
	return &Suite{probes: probes}
}

// Run executes every probe to completion, concurrently, and returns results
// in registration order. There is no short-circuiting: the report needs the
// full picture to produce remediation guidance.
func (s *Suite) Run(ctx context.Context) []Result {
	results := make([]Result, len(s.probes))
	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			logging.Debug("probe", "running %s", p.Name())
			results[i] = p.Run(ctx)
			logging.Debug("probe", "%s: %s", p.Name(), results[i].Outcome)
		}(i, p)
	}
	wg.Wait()
	return results
}

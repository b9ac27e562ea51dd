package scenario

import (
	"fmt"
	"sort"
)

// Protocol constants for the built-in scenarios.
const (
	// ProtocolVersion is the MCP revision the harness speaks.
	ProtocolVersion = "2024-11-05"
	clientName      = "mcpdiag"
	clientVersion   = "1.0.0"
)

// initializeStep is the handshake every protocol scenario opens with.
func initializeStep() Step {
	return Step{
		Name:   "initialize",
		Method: "initialize",
		Params: map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    clientName,
				"version": clientVersion,
			},
		},
		Expect: Expectation{
			ResultFields: []string{"serverInfo.name", "protocolVersion"},
		},
		Capture: map[string]string{
			"serverName": "serverInfo.name",
		},
	}
}

// Builtins returns the statically defined scenarios. Scenario selection is
// always by explicit registry lookup, never by runtime name discovery.
func Builtins() []Scenario {
	return []Scenario{
		{
			Name:        "connect",
			Description: "Open and close a connection without any protocol exchange",
			// No steps: passes iff the transport accepts a connection.
		},
		{
			Name:        "initialize",
			Description: "Perform the protocol handshake and validate the server identity",
			Steps:       []Step{initializeStep()},
		},
		{
			Name:        "tools-list",
			Description: "Handshake, then enumerate the advertised tools",
			Steps: []Step{
				initializeStep(),
				{
					Name:   "tools/list",
					Method: "tools/list",
					Expect: Expectation{
						ListFields:    []string{"tools"},
						ElementFields: map[string][]string{"tools": {"name", "description"}},
					},
				},
			},
		},
		{
			Name:        "tools-call",
			Description: "Handshake, enumerate tools, then invoke the docs query tool",
			Steps: []Step{
				initializeStep(),
				{
					Name:   "tools/list",
					Method: "tools/list",
					Expect: Expectation{
						ListFields: []string{"tools"},
					},
				},
				{
					Name:   "tools/call query_nixos_docs",
					Method: "tools/call",
					Params: map[string]any{
						"name": "query_nixos_docs",
						"arguments": map[string]any{
							"query": "services.nginx.enable",
						},
					},
					Expect: Expectation{
						ListFields:    []string{"content"},
						ElementFields: map[string][]string{"content": {"text"}},
					},
				},
			},
		},
	}
}

// Registry maps scenario names to their static step sequences. Resolved once
// at harness startup.
type Registry struct {
	byName map[string]Scenario
	order  []string
}

// NewRegistry builds a registry from the given scenarios, rejecting
// duplicate or empty names.
func NewRegistry(scenarios ...Scenario) (*Registry, error) {
	r := &Registry{byName: make(map[string]Scenario, len(scenarios))}
	for _, sc := range scenarios {
		if err := r.Add(sc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers one scenario.
func (r *Registry) Add(sc Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("scenario with empty name")
	}
	if _, exists := r.byName[sc.Name]; exists {
		return fmt.Errorf("duplicate scenario name %q", sc.Name)
	}
	r.byName[sc.Name] = sc
	r.order = append(r.order, sc.Name)
	return nil
}

// Get returns the scenario registered under name.
func (r *Registry) Get(name string) (Scenario, bool) {
	sc, ok := r.byName[name]
	return sc, ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Select resolves a name list against the registry, keeping registration
// order when the list is empty (meaning: everything).
func (r *Registry) Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		all := make([]Scenario, 0, len(r.order))
		for _, name := range r.order {
			all = append(all, r.byName[name])
		}
		return all, nil
	}
	selected := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (known: %v)", name, r.Names())
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

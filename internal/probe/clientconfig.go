package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"mcpdiag/internal/config"
)

// ClientConfigProbe checks the editor-side configuration files for a server
// registration under one of the recognized keys, and sanity-checks that the
// registered command actually bridges to the socket.
type ClientConfigProbe struct {
	// SettingsPaths are the files to inspect; missing files are reported but
	// a single registration anywhere passes the probe.
	SettingsPaths []string
	// ServerKeys are the recognized registration keys, e.g. "mcp.servers".
	ServerKeys []string
	// ServerName is the registration entry looked for, e.g. "nixai".
	ServerName string
	// SocketPath is the socket the bridge command should reference.
	SocketPath string
}

func (p *ClientConfigProbe) Name() string { return "client-config" }

func (p *ClientConfigProbe) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{Name: p.Name()}
	defer func() { result.Duration = time.Since(start) }()

	var findings []string
	found := false
	examined := 0

	for _, rawPath := range p.SettingsPaths {
		path := config.ExpandPath(rawPath)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				findings = append(findings, fmt.Sprintf("%s: not present", path))
				continue
			}
			findings = append(findings, fmt.Sprintf("%s: unreadable: %v", path, err))
			continue
		}
		examined++

		var settings map[string]any
		if err := json.Unmarshal(data, &settings); err != nil {
			// A parse failure is a probe failure with the raw error, never a
			// crash.
			findings = append(findings, fmt.Sprintf("%s: parse error: %v", path, err))
			continue
		}

		keys := p.registrationKeys(settings)
		if len(keys) == 0 {
			findings = append(findings, fmt.Sprintf("%s: no %q registration", path, p.ServerName))
			continue
		}

		found = true
		findings = append(findings, fmt.Sprintf("%s: registered under %s", path, strings.Join(keys, ", ")))
		for _, key := range keys {
			entry := settings[key].(map[string]any)[p.ServerName]
			if note := p.checkBridgeCommand(entry); note != "" {
				findings = append(findings, fmt.Sprintf("%s: %s: %s", path, key, note))
			}
		}
	}

	result.Detail = strings.Join(findings, "; ")
	if found {
		result.Outcome = OutcomePassed
	} else {
		result.Outcome = OutcomeFailed
		result.Remediation = fmt.Sprintf(
			"Add a %q entry under one of %s in your editor settings, bridging to %s via socat",
			p.ServerName, strings.Join(p.ServerKeys, "/"), p.SocketPath)
	}
	return result
}

// registrationKeys returns the recognized keys under which the server entry
// was found in one settings document.
func (p *ClientConfigProbe) registrationKeys(settings map[string]any) []string {
	var keys []string
	for _, key := range p.ServerKeys {
		section, ok := settings[key].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := section[p.ServerName]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// checkBridgeCommand validates the command/args shape of one registration
// entry. Recognized forms are a plain socat invocation and a bash -c wrapper
// around socat; anything else gets a note rather than a failure, since
// custom bridges can still work.
func (p *ClientConfigProbe) checkBridgeCommand(entry any) string {
	m, ok := entry.(map[string]any)
	if !ok {
		return "entry is not an object"
	}
	command, _ := m["command"].(string)
	var args []string
	if rawArgs, ok := m["args"].([]any); ok {
		for _, a := range rawArgs {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}

	joined := strings.Join(args, " ")
	connectRef := "UNIX-CONNECT:" + p.SocketPath
	switch {
	case command == "socat" && strings.Contains(joined, connectRef):
		return ""
	case command == "bash" && strings.Contains(joined, "socat") && strings.Contains(joined, connectRef):
		return ""
	case command == "":
		return "registration has no command"
	default:
		return fmt.Sprintf("unrecognized bridge command %q %v", command, args)
	}
}

package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testServerKeys = []string{"mcp.servers", "mcpServers", "copilot.mcp.servers", "claude-dev.mcpServers"}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestClientConfigProbeFindsSocatRegistration(t *testing.T) {
	path := writeSettings(t, `{
		"mcp.servers": {
			"nixai": {
				"command": "socat",
				"args": ["STDIO", "UNIX-CONNECT:/tmp/nixai-mcp.sock"]
			}
		}
	}`)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomePassed, result.Outcome)
	assert.Contains(t, result.Detail, "registered under mcp.servers")
	assert.NotContains(t, result.Detail, "unrecognized bridge command")
}

func TestClientConfigProbeFindsBashSocatWrapper(t *testing.T) {
	path := writeSettings(t, `{
		"claude-dev.mcpServers": {
			"nixai": {
				"command": "bash",
				"args": ["-c", "exec socat STDIO UNIX-CONNECT:/tmp/nixai-mcp.sock"]
			}
		}
	}`)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomePassed, result.Outcome)
	assert.Contains(t, result.Detail, "claude-dev.mcpServers")
}

func TestClientConfigProbeReportsAllRegistrationKeys(t *testing.T) {
	path := writeSettings(t, `{
		"mcp.servers": {"nixai": {"command": "socat", "args": ["STDIO", "UNIX-CONNECT:/tmp/nixai-mcp.sock"]}},
		"mcpServers": {"nixai": {"command": "socat", "args": ["STDIO", "UNIX-CONNECT:/tmp/nixai-mcp.sock"]}}
	}`)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomePassed, result.Outcome)
	assert.Contains(t, result.Detail, "mcp.servers, mcpServers")
}

func TestClientConfigProbeNoRegistration(t *testing.T) {
	path := writeSettings(t, `{"editor.fontSize": 14}`)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Remediation, "nixai")
	assert.Contains(t, result.Remediation, "socat")
}

func TestClientConfigProbeParseFailureIsReportedNotFatal(t *testing.T) {
	path := writeSettings(t, `{"mcp.servers": `)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Detail, "parse error")
}

func TestClientConfigProbeMissingFiles(t *testing.T) {
	p := &ClientConfigProbe{
		SettingsPaths: []string{filepath.Join(t.TempDir(), "nope", "settings.json")},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Detail, "not present")
}

func TestClientConfigProbeFlagsUnrecognizedBridge(t *testing.T) {
	path := writeSettings(t, `{
		"mcpServers": {
			"nixai": {"command": "nc", "args": ["-U", "/tmp/nixai-mcp.sock"]}
		}
	}`)

	p := &ClientConfigProbe{
		SettingsPaths: []string{path},
		ServerKeys:    testServerKeys,
		ServerName:    "nixai",
		SocketPath:    "/tmp/nixai-mcp.sock",
	}
	result := p.Run(context.Background())
	// Registration exists, so the probe passes, but the odd command is noted.
	assert.Equal(t, OutcomePassed, result.Outcome)
	assert.Contains(t, result.Detail, "unrecognized bridge command")
}

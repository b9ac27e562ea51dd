package config

import "time"

// Defaults target the nixai MCP server, the service this harness ships with.
// Everything here is overridable through the user and project config files.

// DefaultSocketPath is the documented fallback socket location.
const DefaultSocketPath = "/tmp/nixai-mcp.sock"

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:           "nixai",
			SocketPath:     DefaultSocketPath,
			ProcessPattern: "nixai mcp-server",
			StartHint:      "Start it with: nixai mcp-server start",
		},
		Client: ClientConfig{
			SettingsPaths: []string{
				".vscode/settings.json",
				"~/.config/Code/User/settings.json",
			},
			// The registration can live under any of these keys depending on
			// which extension owns it.
			ServerKeys: []string{
				"mcp.servers",
				"mcpServers",
				"copilot.mcp.servers",
				"claude-dev.mcpServers",
			},
			RequiredExtensions: map[string]string{
				"automatalabs.copilot-mcp":    "Copilot MCP",
				"zebradev.mcp-server-runner":  "MCP Server Runner",
				"saoudrizwan.claude-dev":      "Claude Dev (Cline)",
			},
			ExtensionListCommand: []string{"code", "--list-extensions"},
		},
		Timeouts: TimeoutConfig{
			Connect:   5 * time.Second,
			Step:      10 * time.Second,
			ProbeDial: time.Second,
		},
	}
}

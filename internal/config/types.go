package config

import "time"

// Config is the top-level configuration structure for mcpdiag.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Client   ClientConfig  `yaml:"client"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// ServerConfig identifies the MCP server under test.
type ServerConfig struct {
	// Name is the registration key the server appears under in client
	// configuration files, e.g. "nixai".
	Name string `yaml:"name"`
	// SocketPath is the Unix domain socket the server listens on.
	SocketPath string `yaml:"socketPath"`
	// ProcessPattern is matched against process command lines by the
	// liveness probe, e.g. "nixai mcp-server".
	ProcessPattern string `yaml:"processPattern"`
	// StartHint is the remediation shown when the server is not running.
	StartHint string `yaml:"startHint,omitempty"`
}

// ClientConfig describes the editor-side integration the probes validate.
type ClientConfig struct {
	// SettingsPaths are the client configuration files checked for a server
	// registration. Relative paths are resolved against the working
	// directory; "~" expands to the home directory.
	SettingsPaths []string `yaml:"settingsPaths"`
	// ServerKeys are the recognized top-level keys a registration can live
	// under.
	ServerKeys []string `yaml:"serverKeys"`
	// RequiredExtensions maps extension identifier to display name.
	RequiredExtensions map[string]string `yaml:"requiredExtensions"`
	// ExtensionListCommand is the external command that prints installed
	// extension identifiers, one per line.
	ExtensionListCommand []string `yaml:"extensionListCommand"`
}

// TimeoutConfig carries the deadlines applied to protocol exchanges.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect,omitempty"`
	Step    time.Duration `yaml:"step,omitempty"`
	// ProbeDial bounds the socket-health probe's reachability check.
	ProbeDial time.Duration `yaml:"probeDial,omitempty"`
}

// Package config loads the mcpdiag configuration by layering default, user,
// and project settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/mcpdiag"
	projectConfigDir = ".mcpdiag"
	configFileName   = "config.yaml"
)

// Load layers the built-in defaults with the optional user and project
// configuration files. A missing file is fine; an unreadable or invalid one
// is an error.
func Load() (Config, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	cwd, err := osGetwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, projectConfigDir, configFileName), nil
}

func loadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// mergeConfigs overlays non-zero fields of the overlay onto the base.
func mergeConfigs(base, overlay Config) Config {
	if overlay.Server.Name != "" {
		base.Server.Name = overlay.Server.Name
	}
	if overlay.Server.SocketPath != "" {
		base.Server.SocketPath = overlay.Server.SocketPath
	}
	if overlay.Server.ProcessPattern != "" {
		base.Server.ProcessPattern = overlay.Server.ProcessPattern
	}
	if overlay.Server.StartHint != "" {
		base.Server.StartHint = overlay.Server.StartHint
	}
	if len(overlay.Client.SettingsPaths) > 0 {
		base.Client.SettingsPaths = overlay.Client.SettingsPaths
	}
	if len(overlay.Client.ServerKeys) > 0 {
		base.Client.ServerKeys = overlay.Client.ServerKeys
	}
	if len(overlay.Client.RequiredExtensions) > 0 {
		base.Client.RequiredExtensions = overlay.Client.RequiredExtensions
	}
	if len(overlay.Client.ExtensionListCommand) > 0 {
		base.Client.ExtensionListCommand = overlay.Client.ExtensionListCommand
	}
	if overlay.Timeouts.Connect > 0 {
		base.Timeouts.Connect = overlay.Timeouts.Connect
	}
	if overlay.Timeouts.Step > 0 {
		base.Timeouts.Step = overlay.Timeouts.Step
	}
	if overlay.Timeouts.ProbeDial > 0 {
		base.Timeouts.ProbeDial = overlay.Timeouts.ProbeDial
	}
	return base
}

// ExpandPath resolves a leading "~" against the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := osUserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
		}
	}
	return path
}

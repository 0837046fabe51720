package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SettingsFileName is the model-selection store inside the workspace.
const SettingsFileName = "agent-settings.json"

// AgentSettings records the selected reasoner providers and models. The
// agent stays in Setup until both tiers are selected.
type AgentSettings struct {
	LocalProvider    string `json:"local_provider"`
	LocalModel       string `json:"local_model"`
	FrontierProvider string `json:"frontier_provider"`
	FrontierModel    string `json:"frontier_model"`
}

// Complete reports whether both reasoner tiers are selected.
func (s *AgentSettings) Complete() bool {
	return s.LocalProvider != "" && s.LocalModel != "" &&
		s.FrontierProvider != "" && s.FrontierModel != ""
}

// LoadSettings reads the workspace settings file; a missing file yields
// empty settings.
func LoadSettings(workspace string) (*AgentSettings, error) {
	path := filepath.Join(workspace, SettingsFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &AgentSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", SettingsFileName, err)
	}

	settings := &AgentSettings{}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", SettingsFileName, err)
	}
	return settings, nil
}

// SaveSettings persists the settings into the workspace.
func SaveSettings(workspace string, settings *AgentSettings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	path := filepath.Join(workspace, SettingsFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", SettingsFileName, err)
	}
	return nil
}

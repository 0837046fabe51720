package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeysFileName is the provider key store inside the workspace.
const KeysFileName = "keys.json"

// Keys maps provider names to API keys. Keys are sanitized on both load
// and store so a pasted "Bearer sk-..." or quoted value round-trips to
// the bare key.
type Keys struct {
	path string
	keys map[string]string
}

// LoadKeys reads the workspace key file; a missing file yields an empty
// store.
func LoadKeys(workspace string) (*Keys, error) {
	k := &Keys{
		path: filepath.Join(workspace, KeysFileName),
		keys: make(map[string]string),
	}

	data, err := os.ReadFile(k.path)
	if os.IsNotExist(err) {
		return k, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", KeysFileName, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", KeysFileName, err)
	}
	for provider, key := range raw {
		k.keys[provider] = SanitizeAPIKey(key)
	}
	return k, nil
}

// SanitizeAPIKey trims whitespace, strips a leading "Bearer " marker,
// and removes one layer of surrounding quotes.
func SanitizeAPIKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "Bearer ")
	key = strings.TrimSpace(key)
	if len(key) >= 2 {
		if (key[0] == '"' && key[len(key)-1] == '"') || (key[0] == '\'' && key[len(key)-1] == '\'') {
			key = key[1 : len(key)-1]
		}
	}
	return strings.TrimSpace(key)
}

// Set sanitizes and stores the key, persisting the file.
func (k *Keys) Set(provider, key string) error {
	if provider == "" {
		return fmt.Errorf("provider is required")
	}
	clean := SanitizeAPIKey(key)
	if clean == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	k.keys[provider] = clean
	return k.save()
}

// Get returns the key for a provider, falling back to the conventional
// environment variable.
func (k *Keys) Get(provider string) string {
	if key, ok := k.keys[provider]; ok && key != "" {
		return key
	}
	return SanitizeAPIKey(ProviderAPIKeyFromEnv(provider))
}

// Providers lists providers with stored keys.
func (k *Keys) Providers() []string {
	out := make([]string, 0, len(k.keys))
	for provider := range k.keys {
		out = append(out, provider)
	}
	return out
}

func (k *Keys) save() error {
	data, err := json.MarshalIndent(k.keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keys: %w", err)
	}
	if err := os.WriteFile(k.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeysFileName, err)
	}
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/looperhq/looper/pkg/config"
)

// KeysCmd groups API key management.
type KeysCmd struct {
	Set KeysSetCmd `cmd:"" help:"Store an API key for a provider."`
}

// KeysSetCmd prompts for a key without echoing it and persists it to
// the workspace key file.
type KeysSetCmd struct {
	Provider  string `arg:"" help:"Provider name (openai, anthropic, ollama)."`
	Workspace string `help:"Agent workspace." env:"LOOPER_WORKSPACE_ROOT" default:"."`
}

func (c *KeysSetCmd) Run() error {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" {
		return fmt.Errorf("provider is required")
	}

	key, err := promptKey(fmt.Sprintf("Enter API key for %s: ", provider))
	if err != nil {
		return err
	}

	keys, err := config.LoadKeys(c.Workspace)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}
	if err := keys.Set(provider, key); err != nil {
		return err
	}

	fmt.Printf("Key for %s saved to %s\n", provider, filepath.Join(c.Workspace, config.KeysFileName))
	return nil
}

// promptKey reads a key without echo on terminals and falls back to a
// plain line read when stdin is piped.
func promptKey(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

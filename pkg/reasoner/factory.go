package reasoner

import (
	"fmt"
	"os"

	"github.com/looperhq/looper/pkg/config"
)

// RulesProviderName selects the deterministic keyword tiers instead of
// a model provider. Useful for offline runs and tests.
const RulesProviderName = "rules"

// NewProvider builds a chat-completion provider by name. The OpenAI
// provider requires an API key; Ollama runs unauthenticated.
func NewProvider(name string, keys *config.Keys) (Provider, error) {
	switch name {
	case "ollama":
		return NewOllamaProvider(os.Getenv("OLLAMA_HOST")), nil
	case "openai":
		key := keys.Get("openai")
		if key == "" {
			return nil, fmt.Errorf("provider openai requires an API key")
		}
		return NewOpenAIProvider(key, os.Getenv("OPENAI_BASE_URL")), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: ollama, openai, rules)", name)
	}
}

// BuildTiers constructs the local and frontier reasoners from the agent
// settings. Both tiers must be fully selected before the loop can run.
func BuildTiers(settings *config.AgentSettings, keys *config.Keys) (Local, Frontier, error) {
	if !settings.Complete() {
		return nil, nil, fmt.Errorf("model selection incomplete: local and frontier provider and model are all required")
	}

	var local Local
	if settings.LocalProvider == RulesProviderName {
		local = NewRuleBasedLocal()
	} else {
		provider, err := NewProvider(settings.LocalProvider, keys)
		if err != nil {
			return nil, nil, fmt.Errorf("local reasoner: %w", err)
		}
		local = NewLLMLocal(provider, settings.LocalModel)
	}

	var frontier Frontier
	if settings.FrontierProvider == RulesProviderName {
		frontier = NewRuleBasedFrontier()
	} else {
		provider, err := NewProvider(settings.FrontierProvider, keys)
		if err != nil {
			return nil, nil, fmt.Errorf("frontier reasoner: %w", err)
		}
		frontier = NewLLMFrontier(provider, settings.FrontierModel)
	}

	return local, frontier, nil
}

package reasoner

import (
	"strings"
	"testing"

	"github.com/looperhq/looper/pkg/config"
)

func testKeys(t *testing.T) *config.Keys {
	t.Helper()
	keys, err := config.LoadKeys(t.TempDir())
	if err != nil {
		t.Fatalf("LoadKeys() error = %v", err)
	}
	return keys
}

func TestBuildTiersIncomplete(t *testing.T) {
	_, _, err := BuildTiers(&config.AgentSettings{LocalProvider: "ollama"}, testKeys(t))
	if err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Fatalf("BuildTiers() error = %v, want incomplete selection", err)
	}
}

func TestBuildTiersRules(t *testing.T) {
	settings := &config.AgentSettings{
		LocalProvider: "rules", LocalModel: "keywords",
		FrontierProvider: "rules", FrontierModel: "keywords",
	}
	local, frontier, err := BuildTiers(settings, testKeys(t))
	if err != nil {
		t.Fatalf("BuildTiers() error = %v", err)
	}
	if _, ok := local.(*RuleBasedLocal); !ok {
		t.Errorf("local tier type = %T, want *RuleBasedLocal", local)
	}
	if _, ok := frontier.(*RuleBasedFrontier); !ok {
		t.Errorf("frontier tier type = %T, want *RuleBasedFrontier", frontier)
	}
}

func TestBuildTiersProviders(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	keys := testKeys(t)
	settings := &config.AgentSettings{
		LocalProvider: "ollama", LocalModel: "llama3",
		FrontierProvider: "openai", FrontierModel: "gpt-4o",
	}

	// OpenAI requires a key.
	_, _, err := BuildTiers(settings, keys)
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("BuildTiers() error = %v, want missing API key", err)
	}

	if err := keys.Set("openai", "sk-test"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	local, frontier, err := BuildTiers(settings, keys)
	if err != nil {
		t.Fatalf("BuildTiers() error = %v", err)
	}
	if _, ok := local.(*LLMLocal); !ok {
		t.Errorf("local tier type = %T, want *LLMLocal", local)
	}
	if _, ok := frontier.(*LLMFrontier); !ok {
		t.Errorf("frontier tier type = %T, want *LLMFrontier", frontier)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("mystery", testKeys(t))
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("NewProvider() error = %v, want unknown provider", err)
	}
}

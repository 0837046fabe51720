package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"
)

// Provider is a chat-completion backend able to answer with a single
// JSON document.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model, system, user string) (content string, tokensUsed int, err error)
}

const detectSystemPrompt = `You are a surprise detector for an agent's sensory loop.
Given the latest percepts and recent history windows, decide which of the
latest percepts are surprising enough to escalate.
Respond with a single JSON object and nothing else:
{"surprising_indices": [<zero-based indices into the latest percepts>], "rationale": "<short reason>"}`

const planSystemPrompt = `You are an action planner for an agent's sensory loop.
Given surprising percepts, recommend an ordered list of actions.
Valid action types: "chat" (message), "grep" (pattern, path), "glob" (pattern, path),
"shell" (command), "web_search" (query). The actuator_name usually matches the type.
Respond with a single JSON object and nothing else:
{"actions": [{"actuator_name": "<name>", "action": {"type": "<type>", ...}}], "rationale": "<short reason>"}`

// LLMLocal asks a provider to detect surprises.
type LLMLocal struct {
	provider Provider
	model    string
}

func NewLLMLocal(provider Provider, model string) *LLMLocal {
	return &LLMLocal{provider: provider, model: model}
}

func (l *LLMLocal) Detect(ctx context.Context, latest []sensor.Percept, previousWindows [][]string) (*Detection, error) {
	user := renderDetectInput(latest, previousWindows)

	content, tokens, err := l.provider.Complete(ctx, l.model, detectSystemPrompt, user)
	if err != nil {
		return nil, &ReasonerError{Tier: TierLocal, Provider: l.provider.Name(), Message: "detection call failed", Err: err}
	}

	detection := &Detection{}
	if err := json.Unmarshal([]byte(extractJSONBlock(content)), detection); err != nil {
		return nil, &ReasonerError{Tier: TierLocal, Provider: l.provider.Name(), Message: "detection response is not the expected JSON contract", Err: err}
	}
	if detection.SurprisingIndices == nil {
		detection.SurprisingIndices = []int{}
	}

	detection.TokensUsed = tokens
	if detection.TokensUsed == 0 {
		detection.TokensUsed = EstimateTokens(l.model, detectSystemPrompt+user, content)
	}
	return detection, nil
}

// LLMFrontier asks a provider to plan actions.
type LLMFrontier struct {
	provider Provider
	model    string
}

func NewLLMFrontier(provider Provider, model string) *LLMFrontier {
	return &LLMFrontier{provider: provider, model: model}
}

func (f *LLMFrontier) Plan(ctx context.Context, surprising []sensor.Percept) (*Plan, error) {
	user := renderPlanInput(surprising)

	content, tokens, err := f.provider.Complete(ctx, f.model, planSystemPrompt, user)
	if err != nil {
		return nil, &ReasonerError{Tier: TierFrontier, Provider: f.provider.Name(), Message: "planning call failed", Err: err}
	}

	plan := &Plan{}
	if err := json.Unmarshal([]byte(extractJSONBlock(content)), plan); err != nil {
		return nil, &ReasonerError{Tier: TierFrontier, Provider: f.provider.Name(), Message: "plan response is not the expected JSON contract", Err: err}
	}
	if plan.Actions == nil {
		plan.Actions = []action.Recommended{}
	}
	for i := range plan.Actions {
		if err := plan.Actions[i].Action.Validate(); err != nil {
			return nil, &ReasonerError{
				Tier:     TierFrontier,
				Provider: f.provider.Name(),
				Message:  fmt.Sprintf("planned action %d is invalid", i),
				Err:      err,
			}
		}
	}

	plan.TokensUsed = tokens
	if plan.TokensUsed == 0 {
		plan.TokensUsed = EstimateTokens(f.model, planSystemPrompt+user, content)
	}
	return plan, nil
}

func renderDetectInput(latest []sensor.Percept, previousWindows [][]string) string {
	var b strings.Builder

	b.WriteString("Latest percepts:\n")
	for i, p := range latest {
		fmt.Fprintf(&b, "%d: [%s] %s\n", i, p.SensorName, p.Content)
	}

	if len(previousWindows) > 0 {
		b.WriteString("\nRecent iteration windows, oldest first:\n")
		for i, window := range previousWindows {
			fmt.Fprintf(&b, "%d: %s\n", i, strings.Join(window, " | "))
		}
	}
	return b.String()
}

func renderPlanInput(surprising []sensor.Percept) string {
	var b strings.Builder
	b.WriteString("Surprising percepts:\n")
	for i, p := range surprising {
		fmt.Fprintf(&b, "%d: [%s] %s\n", i, p.SensorName, p.Content)
	}
	return b.String()
}

// extractJSONBlock tolerates markdown fences and prose around the JSON
// document models sometimes emit.
func extractJSONBlock(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// Package reasoner defines the two reasoning tiers the loop drives:
// a cheap local surprise detector and an expensive frontier planner.
// Rule-based implementations serve tests; provider-backed ones forward
// to Ollama or an OpenAI-compatible endpoint and parse a JSON contract.
package reasoner

import (
	"context"
	"fmt"
	"strings"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"
)

// Tier names the reasoning tier an error came from.
type Tier string

const (
	TierLocal    Tier = "local"
	TierFrontier Tier = "frontier"
)

// ReasonerError wraps a reasoning failure with its tier and provider.
type ReasonerError struct {
	Tier     Tier
	Provider string
	Message  string
	Err      error
}

func (e *ReasonerError) Error() string {
	msg := fmt.Sprintf("[%s reasoner", e.Tier)
	if e.Provider != "" {
		msg += "/" + e.Provider
	}
	msg += "] " + e.Message
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ReasonerError) Unwrap() error {
	return e.Err
}

// Detection is the local tier's verdict on the latest percepts.
// Indices reference positions in the sensed slice; the engine drops
// out-of-range values.
type Detection struct {
	SurprisingIndices []int  `json:"surprising_indices"`
	Rationale         string `json:"rationale"`
	TokensUsed        int    `json:"tokens_used"`
}

// Plan is the frontier tier's ordered action recommendation.
type Plan struct {
	Actions    []action.Recommended `json:"actions"`
	Rationale  string               `json:"rationale"`
	TokensUsed int                  `json:"tokens_used"`
}

// Local detects surprising percepts. previousWindows holds the sensed
// contents of up to the last ten iterations, oldest first.
type Local interface {
	Detect(ctx context.Context, latest []sensor.Percept, previousWindows [][]string) (*Detection, error)
}

// Frontier plans actions for the surprising percepts.
type Frontier interface {
	Plan(ctx context.Context, surprising []sensor.Percept) (*Plan, error)
}

// communicationMarkers classify frontier transport trouble. A match
// stops the agent instead of burning the provider budget on a loop that
// will keep failing.
var communicationMarkers = []string{"rate", "token", "timeout", "network", "transport", "429"}

// IsCommunicationFailure reports whether the formatted error chain
// reads like a provider communication problem.
func IsCommunicationFailure(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range communicationMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

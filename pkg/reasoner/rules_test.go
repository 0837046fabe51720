package reasoner

import (
	"context"
	"reflect"
	"testing"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"
)

func chatPercepts(contents ...string) []sensor.Percept {
	out := make([]sensor.Percept, 0, len(contents))
	for _, c := range contents {
		out = append(out, sensor.Percept{SensorName: "chat", Content: c})
	}
	return out
}

func TestRuleBasedDetect(t *testing.T) {
	tests := []struct {
		name        string
		contents    []string
		wantIndices []int
	}{
		{
			name:        "calm percepts",
			contents:    []string{"routine status update", "nothing new today"},
			wantIndices: []int{},
		},
		{
			name:        "single keyword",
			contents:    []string{"routine status update", "disk error detected"},
			wantIndices: []int{1},
		},
		{
			name:        "multiple matches preserve order",
			contents:    []string{"please respond", "all good", "build failure"},
			wantIndices: []int{0, 2},
		},
		{
			name:        "case insensitive",
			contents:    []string{"URGENT: look at this"},
			wantIndices: []int{0},
		},
		{
			name:        "empty input",
			contents:    nil,
			wantIndices: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detection, err := NewRuleBasedLocal().Detect(context.Background(), chatPercepts(tt.contents...), nil)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if !reflect.DeepEqual(detection.SurprisingIndices, tt.wantIndices) {
				t.Errorf("Detect() indices = %v, want %v", detection.SurprisingIndices, tt.wantIndices)
			}
			if detection.Rationale == "" {
				t.Error("Detect() returned empty rationale")
			}
		})
	}
}

func TestRuleBasedPlanRoutes(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantActuator string
		wantAction   action.Action
	}{
		{
			name:         "search request",
			content:      "please search docs for model guidance",
			wantActuator: "web_search",
			wantAction:   action.NewWebSearch("please search docs for model guidance"),
		},
		{
			name:         "grep with pattern and path",
			content:      "grep TODO src",
			wantActuator: "grep",
			wantAction:   action.NewGrep("TODO", "src"),
		},
		{
			name:         "glob with pattern only",
			content:      "glob *.go",
			wantActuator: "glob",
			wantAction:   action.NewGlob("*.go", ""),
		},
		{
			name:         "run prefix goes to shell",
			content:      "run cargo test",
			wantActuator: "shell",
			wantAction:   action.NewShell("cargo test"),
		},
		{
			name:         "execute keyword goes to shell",
			content:      "now execute make lint",
			wantActuator: "shell",
			wantAction:   action.NewShell("make lint"),
		},
		{
			name:         "conversational request goes to chat",
			content:      "please respond to the customer",
			wantActuator: "chat",
			wantAction:   action.NewChatResponse("please respond to the customer"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewRuleBasedFrontier().Plan(context.Background(), chatPercepts(tt.content))
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if len(plan.Actions) != 1 {
				t.Fatalf("Plan() produced %d actions, want 1", len(plan.Actions))
			}
			got := plan.Actions[0]
			if got.ActuatorName != tt.wantActuator {
				t.Errorf("Plan() actuator = %q, want %q", got.ActuatorName, tt.wantActuator)
			}
			if !reflect.DeepEqual(got.Action, tt.wantAction) {
				t.Errorf("Plan() action = %+v, want %+v", got.Action, tt.wantAction)
			}
		})
	}
}

func TestRuleBasedPlanEmptyForUnroutable(t *testing.T) {
	plan, err := NewRuleBasedFrontier().Plan(context.Background(), chatPercepts("totally unroutable text"))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Actions) != 0 {
		t.Fatalf("Plan() produced %d actions, want 0", len(plan.Actions))
	}
	if plan.Rationale != "no actionable route for the surprising percepts" {
		t.Errorf("Plan() rationale = %q", plan.Rationale)
	}
}

func TestRuleBasedPlanSkipsUnroutable(t *testing.T) {
	plan, err := NewRuleBasedFrontier().Plan(context.Background(), chatPercepts("run cargo test", "meaningless noise"))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("Plan() produced %d actions, want 1", len(plan.Actions))
	}
	if plan.Actions[0].Action.Command != "cargo test" {
		t.Errorf("Plan() command = %q, want %q", plan.Actions[0].Action.Command, "cargo test")
	}
}

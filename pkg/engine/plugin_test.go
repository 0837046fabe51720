package engine

import (
	"testing"
)

func TestParsePluginRoute(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantOK       bool
		wantActuator string
	}{
		{
			name:         "full route",
			content:      `{"looper_signal":"plugin_route_v1","route_to_actuator":"chat","action_message":"done","event":"deploy"}`,
			wantOK:       true,
			wantActuator: "chat",
		},
		{
			name:         "minimal route",
			content:      `{"looper_signal":"plugin_route_v1","route_to_actuator":"web_search"}`,
			wantOK:       true,
			wantActuator: "web_search",
		},
		{
			name:    "leading whitespace",
			content: "  \n\t" + `{"looper_signal":"plugin_route_v1","route_to_actuator":"chat"}`,
			wantOK:  true, wantActuator: "chat",
		},
		{name: "plain text", content: "just a chat message", wantOK: false},
		{name: "wrong signal", content: `{"looper_signal":"something_else","route_to_actuator":"chat"}`, wantOK: false},
		{name: "missing actuator", content: `{"looper_signal":"plugin_route_v1"}`, wantOK: false},
		{name: "malformed json", content: `{"looper_signal":`, wantOK: false},
		{name: "json array", content: `[1, 2, 3]`, wantOK: false},
		{name: "empty", content: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := parsePluginRoute(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && route.RouteToActuator != tt.wantActuator {
				t.Errorf("actuator = %q, want %q", route.RouteToActuator, tt.wantActuator)
			}
		})
	}
}

func TestPluginRouteRecommendation(t *testing.T) {
	withMessage := &PluginRoute{RouteToActuator: "chat", ActionMessage: "release shipped"}
	rec := withMessage.recommendation()
	if rec.ActuatorName != "chat" || rec.Action.Message != "release shipped" {
		t.Errorf("recommendation = %+v", rec)
	}

	withEvent := &PluginRoute{RouteToActuator: "chat", Event: "deploy_complete"}
	rec = withEvent.recommendation()
	if rec.Action.Message != "plugin event received: deploy_complete" {
		t.Errorf("event message = %q", rec.Action.Message)
	}

	bare := &PluginRoute{RouteToActuator: "chat"}
	rec = bare.recommendation()
	if rec.Action.Message != "plugin route received" {
		t.Errorf("bare message = %q", rec.Action.Message)
	}
}

func TestPluginRouteSchema(t *testing.T) {
	schema := PluginRouteSchema()
	if schema == nil {
		t.Fatal("schema is nil")
	}

	for _, field := range []string{"looper_signal", "route_to_actuator"} {
		if _, ok := schema.Properties.Get(field); !ok {
			t.Errorf("schema is missing property %q", field)
		}
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	if !required["looper_signal"] || !required["route_to_actuator"] {
		t.Errorf("required = %v, want looper_signal and route_to_actuator", schema.Required)
	}
}

package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/reasoner"
	"github.com/looperhq/looper/pkg/sensor"
)

// PluginRouteSignal marks a percept payload as a deterministic route
// request. Its presence is what opts a percept into the contract.
const PluginRouteSignal = "plugin_route_v1"

// PluginRoute is the v1 percept-payload convention for plugins that
// want to bypass the frontier planner and address an actuator directly.
type PluginRoute struct {
	LooperSignal    string `json:"looper_signal" jsonschema:"enum=plugin_route_v1,description=Constant identifying the route contract version"`
	RouteToActuator string `json:"route_to_actuator" jsonschema:"description=Name of the registered actuator to dispatch to"`
	ActionMessage   string `json:"action_message,omitempty" jsonschema:"description=Message for the chat action; a default is derived when absent"`
	Event           string `json:"event,omitempty" jsonschema:"description=Optional event label recorded with the route"`
}

// PluginRouteSchema reflects the JSON schema document published to
// plugin authors.
func PluginRouteSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&PluginRoute{})
}

// parsePluginRoute reads the route convention out of a percept content
// string. Non-JSON content and JSON without the signal are not routes.
func parsePluginRoute(content string) (*PluginRoute, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var route PluginRoute
	if err := json.Unmarshal([]byte(trimmed), &route); err != nil {
		return nil, false
	}
	if route.LooperSignal != PluginRouteSignal || route.RouteToActuator == "" {
		return nil, false
	}
	return &route, true
}

// recommendation converts the route into a dispatchable plan entry.
func (r *PluginRoute) recommendation() action.Recommended {
	message := r.ActionMessage
	if message == "" {
		if r.Event != "" {
			message = fmt.Sprintf("plugin event received: %s", r.Event)
		} else {
			message = "plugin route received"
		}
	}
	return action.Recommended{
		ActuatorName: r.RouteToActuator,
		Action:       action.NewChatResponse(message),
	}
}

// pluginPlanLocked short-circuits planning when routing is enabled and
// at least one surprising percept carries the route signal. The plan is
// built from the matching percepts in order; the frontier reasoner is
// not consulted.
func (e *Engine) pluginPlanLocked(surprising []sensor.Percept) (*reasoner.Plan, bool) {
	if !e.pluginRouting {
		return nil, false
	}

	plan := &reasoner.Plan{Actions: []action.Recommended{}}
	for _, p := range surprising {
		route, ok := parsePluginRoute(p.Content)
		if !ok {
			continue
		}
		plan.Actions = append(plan.Actions, route.recommendation())
	}
	if len(plan.Actions) == 0 {
		return nil, false
	}

	plan.Rationale = fmt.Sprintf("plugin route signal matched %d percept(s)", len(plan.Actions))
	return plan, true
}

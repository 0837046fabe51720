// Package config carries the bootstrap configuration, the persisted
// key and model-selection files, and shared database plumbing.
package config

import (
	"fmt"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/actuator"
	"github.com/looperhq/looper/pkg/sensor"
)

const (
	// DefaultBind is the agent's listen address.
	DefaultBind = "127.0.0.1:10001"
	// DefaultLoopIntervalMS is the scheduler tick.
	DefaultLoopIntervalMS = 200
)

// Config is the root bootstrap configuration. Everything is optional;
// the zero config yields a chat-only agent on the default bind.
type Config struct {
	// Workspace roots the executors and the persisted key/settings
	// files.
	Workspace string `yaml:"workspace,omitempty" json:"workspace,omitempty"`

	// Bind is the host:port the HTTP API listens on.
	Bind string `yaml:"bind,omitempty" json:"bind,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	// LoopIntervalMS is the scheduler sleep between iterations.
	LoopIntervalMS int `yaml:"loop_interval_ms,omitempty" json:"loop_interval_ms,omitempty"`

	// PluginRouting enables the deterministic plugin route convention
	// for matching percepts.
	PluginRouting bool `yaml:"plugin_routing,omitempty" json:"plugin_routing,omitempty"`

	// Metrics exposes the Prometheus endpoint when set.
	Metrics bool `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Journal selects the iteration store backend.
	Journal DatabaseConfig `yaml:"journal,omitempty" json:"journal,omitempty"`

	Sensors   []SensorConfig   `yaml:"sensors,omitempty" json:"sensors,omitempty"`
	Actuators []ActuatorConfig `yaml:"actuators,omitempty" json:"actuators,omitempty"`
}

// SensorConfig declares one sensor to register at boot.
type SensorConfig struct {
	Name             string `yaml:"name" json:"name"`
	Description      string `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled          *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	SensitivityScore *int   `yaml:"sensitivity_score,omitempty" json:"sensitivity_score,omitempty"`

	// Ingress is "internal", "directory", or "rest".
	Ingress   string `yaml:"ingress,omitempty" json:"ingress,omitempty"`
	Directory string `yaml:"directory,omitempty" json:"directory,omitempty"`
	Format    string `yaml:"format,omitempty" json:"format,omitempty"`
}

// ToSensor builds the sensor entity, validated.
func (c *SensorConfig) ToSensor() (*sensor.Sensor, error) {
	s := sensor.New(c.Name)
	s.Description = c.Description
	if c.Enabled != nil {
		s.Enabled = *c.Enabled
	}
	if c.SensitivityScore != nil {
		s.SensitivityScore = *c.SensitivityScore
	}
	if c.Ingress != "" {
		s.Ingress.Mode = sensor.IngressMode(c.Ingress)
	}
	s.Ingress.Directory = c.Directory
	if c.Format != "" {
		s.Ingress.Format = sensor.PayloadFormat(c.Format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ActuatorConfig declares one actuator to register at boot.
type ActuatorConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Kind is "internal", "mcp", or "workflow".
	Kind       string `yaml:"kind" json:"kind"`
	ActionKind string `yaml:"action_kind,omitempty" json:"action_kind,omitempty"`
	Server     string `yaml:"server,omitempty" json:"server,omitempty"`
	Tool       string `yaml:"tool,omitempty" json:"tool,omitempty"`
	Workflow   string `yaml:"workflow,omitempty" json:"workflow,omitempty"`

	Policy PolicyConfig `yaml:"policy,omitempty" json:"policy,omitempty"`
}

// PolicyConfig declares an actuator safety policy.
type PolicyConfig struct {
	Allowlist   []string         `yaml:"allowlist,omitempty" json:"allowlist,omitempty"`
	Denylist    []string         `yaml:"denylist,omitempty" json:"denylist,omitempty"`
	RateLimit   *RateLimitConfig `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RequireHITL bool             `yaml:"require_hitl,omitempty" json:"require_hitl,omitempty"`
	Sandboxed   bool             `yaml:"sandboxed,omitempty" json:"sandboxed,omitempty"`
}

// RateLimitConfig caps executions through an actuator.
type RateLimitConfig struct {
	Max    uint64 `yaml:"max" json:"max"`
	Period string `yaml:"period" json:"period"`
}

// ToActuator builds the actuator entity, validated.
func (c *ActuatorConfig) ToActuator() (*actuator.Actuator, error) {
	var kind actuator.Kind
	switch actuator.KindType(c.Kind) {
	case actuator.KindInternal:
		kind = actuator.Internal(action.Kind(c.ActionKind))
	case actuator.KindMCP:
		kind = actuator.MCP(c.Server, c.Tool)
	case actuator.KindWorkflow:
		kind = actuator.Workflow(c.Workflow)
	default:
		return nil, fmt.Errorf("actuator %q has unknown kind %q", c.Name, c.Kind)
	}

	a := actuator.New(c.Name, kind)
	a.Description = c.Description
	a.Policy = actuator.SafetyPolicy{
		Allowlist:   c.Policy.Allowlist,
		Denylist:    c.Policy.Denylist,
		RequireHITL: c.Policy.RequireHITL,
		Sandboxed:   c.Policy.Sandboxed,
	}
	if c.Policy.RateLimit != nil {
		a.Policy.RateLimit = &actuator.RateLimit{
			Max:    c.Policy.RateLimit.Max,
			Period: actuator.RatePeriod(c.Policy.RateLimit.Period),
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// SetDefaults applies the zero-config defaults.
func (c *Config) SetDefaults() {
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if c.Bind == "" {
		c.Bind = DefaultBind
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LoopIntervalMS == 0 {
		c.LoopIntervalMS = DefaultLoopIntervalMS
	}
	c.Journal.SetDefaults()
}

// Validate checks the whole bootstrap configuration.
func (c *Config) Validate() error {
	if c.LoopIntervalMS < 0 {
		return fmt.Errorf("loop_interval_ms must be non-negative")
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	for i := range c.Sensors {
		if _, err := c.Sensors[i].ToSensor(); err != nil {
			return fmt.Errorf("sensor %d: %w", i, err)
		}
	}
	for i := range c.Actuators {
		if _, err := c.Actuators[i].ToActuator(); err != nil {
			return fmt.Errorf("actuator %d: %w", i, err)
		}
	}
	return nil
}

// Package actuator defines the named, policy-bearing endpoints a plan
// dispatches through.
package actuator

import (
	"fmt"
	"sync"

	"github.com/looperhq/looper/pkg/action"
)

// KindType discriminates actuator kinds.
type KindType string

const (
	KindInternal KindType = "internal"
	KindMCP      KindType = "mcp"
	KindWorkflow KindType = "workflow"
)

// Kind is a tagged variant. Internal actuators bind to exactly one
// action kind; MCP and workflow actuators carry descriptors and never
// reach the executor table.
type Kind struct {
	Type KindType `json:"type"`

	// internal
	ActionKind action.Kind `json:"action_kind,omitempty"`

	// mcp
	Server string `json:"server,omitempty"`
	Tool   string `json:"tool,omitempty"`

	// workflow
	Workflow string `json:"workflow,omitempty"`
}

func Internal(kind action.Kind) Kind {
	return Kind{Type: KindInternal, ActionKind: kind}
}

func MCP(server, tool string) Kind {
	return Kind{Type: KindMCP, Server: server, Tool: tool}
}

func Workflow(name string) Kind {
	return Kind{Type: KindWorkflow, Workflow: name}
}

// RatePeriod is the declared rate-limit window.
type RatePeriod string

const (
	PeriodMinute RatePeriod = "minute"
	PeriodHour   RatePeriod = "hour"
	PeriodDay    RatePeriod = "day"
	PeriodWeek   RatePeriod = "week"
	PeriodMonth  RatePeriod = "month"
)

var validPeriods = map[RatePeriod]bool{
	PeriodMinute: true,
	PeriodHour:   true,
	PeriodDay:    true,
	PeriodWeek:   true,
	PeriodMonth:  true,
}

// RateLimit caps executions through an actuator. The counter is
// monotonic for the life of the process; Period is declared and
// surfaced but does not reset the counter.
type RateLimit struct {
	Max    uint64     `json:"max"`
	Period RatePeriod `json:"period"`
}

func (r *RateLimit) Validate() error {
	if r.Max < 1 {
		return fmt.Errorf("rate_limit.max must be >= 1, got %d", r.Max)
	}
	if !validPeriods[r.Period] {
		return fmt.Errorf("rate_limit.period must be one of: minute, hour, day, week, month; got %q", r.Period)
	}
	return nil
}

// SafetyPolicy gates dispatch through an actuator. Allowlist and
// denylist are mutually exclusive.
type SafetyPolicy struct {
	Allowlist   []string   `json:"allowlist,omitempty"`
	Denylist    []string   `json:"denylist,omitempty"`
	RateLimit   *RateLimit `json:"rate_limit,omitempty"`
	RequireHITL bool       `json:"require_hitl,omitempty"`
	Sandboxed   bool       `json:"sandboxed,omitempty"`
}

func (p *SafetyPolicy) Validate() error {
	if len(p.Allowlist) > 0 && len(p.Denylist) > 0 {
		return fmt.Errorf("policy cannot set both allowlist and denylist")
	}
	if p.RateLimit != nil {
		if err := p.RateLimit.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Denies reports whether the policy denylist names the keyword.
func (p *SafetyPolicy) Denies(keyword string) bool {
	for _, k := range p.Denylist {
		if k == keyword {
			return true
		}
	}
	return false
}

// Omits reports whether a non-empty allowlist leaves the keyword out.
func (p *SafetyPolicy) Omits(keyword string) bool {
	if len(p.Allowlist) == 0 {
		return false
	}
	for _, k := range p.Allowlist {
		if k == keyword {
			return false
		}
	}
	return true
}

// Actuator is a named dispatch endpoint. Execution counts live on the
// entity so replacing an actuator starts a fresh counter.
type Actuator struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Kind        Kind         `json:"kind"`
	Policy      SafetyPolicy `json:"policy"`

	mu        sync.Mutex
	execCount uint64
}

// New creates an actuator with an empty policy.
func New(name string, kind Kind) *Actuator {
	return &Actuator{Name: name, Kind: kind}
}

// Validate checks name, kind, and policy invariants.
func (a *Actuator) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("actuator name cannot be empty")
	}
	switch a.Kind.Type {
	case KindInternal:
		switch a.Kind.ActionKind {
		case action.KindChat, action.KindGrep, action.KindGlob, action.KindShell, action.KindWebSearch:
		default:
			return fmt.Errorf("actuator %q has unknown internal kind %q", a.Name, a.Kind.ActionKind)
		}
	case KindMCP:
		if a.Kind.Server == "" || a.Kind.Tool == "" {
			return fmt.Errorf("actuator %q mcp kind requires server and tool", a.Name)
		}
	case KindWorkflow:
		if a.Kind.Workflow == "" {
			return fmt.Errorf("actuator %q workflow kind requires a workflow name", a.Name)
		}
	default:
		return fmt.Errorf("actuator %q has unknown kind %q", a.Name, a.Kind.Type)
	}
	if err := a.Policy.Validate(); err != nil {
		return fmt.Errorf("actuator %q: %w", a.Name, err)
	}
	return nil
}

// ExecCount returns how many times the actuator has run.
func (a *Actuator) ExecCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.execCount
}

// RecordExecution increments the execution counter.
func (a *Actuator) RecordExecution() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.execCount++
}

// RateLimited reports whether a configured rate limit has been reached.
func (a *Actuator) RateLimited() bool {
	if a.Policy.RateLimit == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.execCount >= a.Policy.RateLimit.Max
}

// Snapshot is the read-only view served over the API.
type Snapshot struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Kind        Kind         `json:"kind"`
	Policy      SafetyPolicy `json:"policy"`
	ExecCount   uint64       `json:"exec_count"`
}

func (a *Actuator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Name:        a.Name,
		Description: a.Description,
		Kind:        a.Kind,
		Policy:      a.Policy,
		ExecCount:   a.execCount,
	}
}

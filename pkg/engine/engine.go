// Copyright 2025 The Looper Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine drives the sensory loop: it senses unread percepts,
// detects surprises with the local reasoner, plans with the frontier
// reasoner, and dispatches the plan through policy-gated actuators.
// All mutating operations serialise on a single engine-wide mutex, so
// iterations never interleave with API mutations.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/looperhq/looper/pkg/actuator"
	"github.com/looperhq/looper/pkg/config"
	"github.com/looperhq/looper/pkg/executor"
	"github.com/looperhq/looper/pkg/journal"
	"github.com/looperhq/looper/pkg/observability"
	"github.com/looperhq/looper/pkg/reasoner"
	"github.com/looperhq/looper/pkg/sensor"
)

var (
	// ErrNotRunning reports an iteration attempted outside the Running
	// state.
	ErrNotRunning = errors.New("agent is not running")

	// ErrNotConfigured reports a missing reasoner configuration.
	ErrNotConfigured = errors.New("reasoners are not configured")

	// ErrUnknownApproval reports an approval id with no pending entry.
	ErrUnknownApproval = errors.New("unknown approval id")
)

// AgentState is the engine lifecycle. Setup means reasoners are not
// configured yet; Stopped requires explicit reconfiguration to leave.
type AgentState string

const (
	StateSetup   AgentState = "setup"
	StateRunning AgentState = "running"
	StateStopped AgentState = "stopped"
)

// Journal is the subset of the journal store the engine depends on.
// A nil Journal disables persistence.
type Journal interface {
	Append(ctx context.Context, it *journal.Iteration) (int64, error)
	LatestID(ctx context.Context) (int64, error)
	LatestPerceptWindows(ctx context.Context, n int) ([][]string, error)
}

// Engine owns the sensor map, actuator map, executor table, approval
// registry, observability counters, and visualisation state. The
// journal is an external collaborator; reasoners are replaceable
// strategy values.
type Engine struct {
	mu sync.Mutex

	workspace string

	sensors   *sensor.Store
	actuators *actuator.Store
	executors *executor.Table
	approvals *approvalRegistry
	counters  *observability.Counters
	metrics   *observability.LoopMetrics
	vis       *loopVisualisation
	events    *phaseEventLog

	journal Journal

	local    reasoner.Local
	frontier reasoner.Frontier

	pluginRouting bool

	state      AgentState
	stopReason string
	selection  config.AgentSettings

	sched *scheduler
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithJournal attaches a persistent iteration journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithMetrics attaches the OpenTelemetry mirror for loop counters.
func WithMetrics(m *observability.LoopMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPluginRouting enables the deterministic plugin route convention
// for percept payloads carrying the route signal.
func WithPluginRouting(enabled bool) Option {
	return func(e *Engine) { e.pluginRouting = enabled }
}

// New builds an engine rooted at the workspace. The chat sensor and
// the built-in actuators and executors are seeded; the engine starts
// in Setup until reasoners are configured.
func New(workspace string, opts ...Option) *Engine {
	e := &Engine{
		workspace: workspace,
		sensors:   sensor.NewStore(),
		actuators: actuator.NewStore(),
		executors: executor.NewTable(workspace),
		approvals: newApprovalRegistry(),
		counters:  observability.NewCounters(),
		metrics:   &observability.LoopMetrics{},
		vis:       &loopVisualisation{phase: PhaseIdle},
		events:    newPhaseEventLog(),
		state:     StateSetup,
		sched:     &scheduler{intervalMS: config.DefaultLoopIntervalMS},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConfigureReasoners installs both reasoner tiers and records the model
// selection. It moves the engine to Running, which is also the explicit
// reconfiguration path out of Stopped.
func (e *Engine) ConfigureReasoners(selection config.AgentSettings, local reasoner.Local, frontier reasoner.Frontier) error {
	if local == nil || frontier == nil {
		return ErrNotConfigured
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection = selection
	e.local = local
	e.frontier = frontier
	e.state = StateRunning
	e.stopReason = ""
	return nil
}

// AddSensor registers or replaces a sensor.
func (e *Engine) AddSensor(s *sensor.Sensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensors.AddOrReplace(s)
}

// AddActuator registers or replaces an actuator.
func (e *Engine) AddActuator(a *actuator.Actuator) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actuators.AddOrReplace(a)
}

// Enqueue appends a percept to the named sensor.
func (e *Engine) Enqueue(sensorName, content, chatID string) (sensor.Percept, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensors.Enqueue(sensorName, content, chatID)
}

// EnqueueChat appends a percept to the built-in chat sensor. A chat id
// is assigned when the caller omits one so responses can be correlated.
func (e *Engine) EnqueueChat(content, chatID string) (sensor.Percept, error) {
	if chatID == "" {
		chatID = uuid.NewString()
	}
	return e.Enqueue(sensor.ChatSensorName, content, chatID)
}

// Sensors returns a name-sorted snapshot of all sensors.
func (e *Engine) Sensors() []sensor.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensors.Snapshots()
}

// Actuators returns a name-sorted snapshot of all actuators.
func (e *Engine) Actuators() []actuator.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actuators.Snapshots()
}

// StateSnapshot is the agent lifecycle view served by the state
// endpoint.
type StateSnapshot struct {
	State             AgentState           `json:"state"`
	StopReason        string               `json:"stop_reason,omitempty"`
	Selections        config.AgentSettings `json:"selections"`
	LatestIterationID int64                `json:"latest_iteration_id"`
}

// State reports the lifecycle, stop reason, model selections, and the
// latest journaled iteration id.
func (e *Engine) State(ctx context.Context) (StateSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(ctx)
}

func (e *Engine) stateLocked(ctx context.Context) (StateSnapshot, error) {
	snap := StateSnapshot{
		State:      e.state,
		StopReason: e.stopReason,
		Selections: e.selection,
	}
	if e.journal != nil {
		id, err := e.journal.LatestID(ctx)
		if err != nil {
			return StateSnapshot{}, err
		}
		snap.LatestIterationID = id
	}
	return snap, nil
}

// setStoppedLocked transitions to Stopped. The first stop reason wins;
// later stops keep it so the original cause stays visible.
func (e *Engine) setStoppedLocked(reason string) {
	if e.state != StateStopped {
		e.stopReason = reason
	}
	e.state = StateStopped
}

// MetricsSnapshot joins the loop counters with the current
// visualisation state.
type MetricsSnapshot struct {
	observability.Snapshot
	Visualisation VisualisationSnapshot `json:"visualisation"`
}

// Metrics returns the observability snapshot.
func (e *Engine) Metrics() MetricsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MetricsSnapshot{
		Snapshot:      e.counters.Snapshot(),
		Visualisation: e.vis.snapshot(),
	}
}

// EventsAfter returns retained phase events with sequence > after,
// oldest first.
func (e *Engine) EventsAfter(after uint64) []PhaseEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.eventsAfter(after)
}

// Dashboard aggregates the views an operator console needs in one
// consistent read.
type Dashboard struct {
	State            StateSnapshot       `json:"state"`
	Loop             LoopStatus          `json:"loop"`
	Metrics          MetricsSnapshot     `json:"metrics"`
	Sensors          []sensor.Snapshot   `json:"sensors"`
	Actuators        []actuator.Snapshot `json:"actuators"`
	PendingApprovals int                 `json:"pending_approvals"`
}

// Dashboard assembles the aggregated snapshot. The loop status is read
// before the engine lock so the scheduler is never awaited while the
// engine mutex is held.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	loop := e.LoopStatus()

	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.stateLocked(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		State: state,
		Loop:  loop,
		Metrics: MetricsSnapshot{
			Snapshot:      e.counters.Snapshot(),
			Visualisation: e.vis.snapshot(),
		},
		Sensors:          e.sensors.Snapshots(),
		Actuators:        e.actuators.Snapshots(),
		PendingApprovals: e.approvals.count(),
	}, nil
}

// transitionLocked moves the visualisation to the phase and emits a
// phase event.
func (e *Engine) transitionLocked(phase Phase) {
	e.vis.phase = phase
	e.events.append(phase, e.vis.snapshot())
}

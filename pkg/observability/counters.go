// Package observability accumulates loop execution counters and mirrors
// them into OpenTelemetry instruments exported through Prometheus.
package observability

import (
	"sync"
	"time"
)

// Phase keys for per-phase execution counts.
const (
	PhaseSurpriseDetection = "surprise_detection"
	PhaseReasoning         = "reasoning"
	PhasePerformActions    = "perform_actions"
)

// Token tiers for the token usage counter.
const (
	TierLocalTokens    = "local"
	TierFrontierTokens = "frontier"
)

// Counters accumulates loop statistics. Safe for concurrent use.
type Counters struct {
	mu sync.Mutex

	start time.Time

	phase                  map[string]uint64
	totalIterations        uint64
	localTokens            uint64
	frontierTokens         uint64
	falsePositiveSurprises uint64
	failedToolExecutions   uint64
}

func NewCounters() *Counters {
	return &Counters{
		start: time.Now(),
		phase: make(map[string]uint64),
	}
}

func (c *Counters) IncPhase(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase[phase]++
}

func (c *Counters) IncIterations() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalIterations++
}

func (c *Counters) AddLocalTokens(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.localTokens += uint64(n)
}

func (c *Counters) AddFrontierTokens(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frontierTokens += uint64(n)
}

func (c *Counters) IncFalsePositiveSurprises() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.falsePositiveSurprises++
}

func (c *Counters) IncFailedToolExecutions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedToolExecutions++
}

// Snapshot is the JSON form served by the metrics endpoint.
type Snapshot struct {
	PhaseExecutionCounts         map[string]uint64 `json:"phase_execution_counts"`
	TotalIterations              uint64            `json:"total_iterations"`
	LocalTokens                  uint64            `json:"local_tokens"`
	FrontierTokens               uint64            `json:"frontier_tokens"`
	FalsePositiveSurprises       uint64            `json:"false_positive_surprises"`
	FailedToolExecutions         uint64            `json:"failed_tool_executions"`
	LoopsPerMinute               float64           `json:"loops_per_minute"`
	FailedToolExecutionPercent   float64           `json:"failed_tool_execution_percent"`
	FalsePositiveSurprisePercent float64           `json:"false_positive_surprise_percent"`
	ProcessStartUnix             int64             `json:"process_start_unix"`
}

// Snapshot returns a consistent copy of the counters with the derived
// rates. Loops-per-minute reads zero until a second has elapsed so a
// fresh process does not report a meaningless spike.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	phase := make(map[string]uint64, len(c.phase))
	for k, v := range c.phase {
		phase[k] = v
	}

	snap := Snapshot{
		PhaseExecutionCounts:   phase,
		TotalIterations:        c.totalIterations,
		LocalTokens:            c.localTokens,
		FrontierTokens:         c.frontierTokens,
		FalsePositiveSurprises: c.falsePositiveSurprises,
		FailedToolExecutions:   c.failedToolExecutions,
		ProcessStartUnix:       c.start.Unix(),
	}

	if elapsed := time.Since(c.start); elapsed >= time.Second {
		snap.LoopsPerMinute = float64(c.totalIterations) / elapsed.Minutes()
	}
	if c.totalIterations > 0 {
		snap.FailedToolExecutionPercent = float64(c.failedToolExecutions) / float64(c.totalIterations) * 100
		snap.FalsePositiveSurprisePercent = float64(c.falsePositiveSurprises) / float64(c.totalIterations) * 100
	}
	return snap
}

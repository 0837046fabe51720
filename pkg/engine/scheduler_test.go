package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looperhq/looper/pkg/config"
	"github.com/looperhq/looper/pkg/reasoner"
)

func TestStartLoopRunsIterations(t *testing.T) {
	e := newTestEngine(t)
	defer e.StopLoop()

	status, err := e.StartLoop(10)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, uint64(10), status.IntervalMS)

	require.Eventually(t, func() bool {
		return e.Metrics().TotalIterations >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartLoopIdempotent(t *testing.T) {
	e := newTestEngine(t)
	defer e.StopLoop()

	_, err := e.StartLoop(10)
	require.NoError(t, err)

	// A second start keeps the original cadence.
	status, err := e.StartLoop(999)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, uint64(10), status.IntervalMS)
}

func TestStartLoopZeroUsesDefaultInterval(t *testing.T) {
	e := newTestEngine(t)
	defer e.StopLoop()

	status, err := e.StartLoop(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(config.DefaultLoopIntervalMS), status.IntervalMS)
}

func TestStartLoopRequiresConfiguration(t *testing.T) {
	e := New(t.TempDir())

	_, err := e.StartLoop(10)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestStopLoopStopsAgent(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.StartLoop(10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Metrics().TotalIterations >= 1
	}, 2*time.Second, 10*time.Millisecond)

	status := e.StopLoop()
	assert.False(t, status.Running)

	state, err := e.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateStopped, state.State)
	assert.Equal(t, "manually stopped", state.StopReason)

	// The worker is gone: the iteration count must hold still.
	before := e.Metrics().TotalIterations
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, e.Metrics().TotalIterations)
}

func TestStopLoopWhenIdleIsNoOp(t *testing.T) {
	e := newTestEngine(t)

	status := e.StopLoop()
	assert.False(t, status.Running)

	state, err := e.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state.State)
	assert.Empty(t, state.StopReason)
}

func TestStartLoopAfterStopRequiresReconfiguration(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.StartLoop(10)
	require.NoError(t, err)
	e.StopLoop()

	_, err = e.StartLoop(10)
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "manually stopped")

	// Reconfiguring the reasoners is the explicit path back to Running.
	err = e.ConfigureReasoners(rulesSelection(), reasoner.NewRuleBasedLocal(), reasoner.NewRuleBasedFrontier())
	require.NoError(t, err)

	status, err := e.StartLoop(25)
	require.NoError(t, err)
	assert.True(t, status.Running)
	e.StopLoop()
}

func TestLoopRecoversAfterIterationError(t *testing.T) {
	e := New(t.TempDir())
	frontier := &stubFrontier{err: errors.New("planner exploded")}
	require.NoError(t, e.ConfigureReasoners(rulesSelection(), reasoner.NewRuleBasedLocal(), frontier))
	defer e.StopLoop()

	// The queued percept makes the first iteration fail in planning.
	// Later iterations sense nothing and complete normally.
	_, err := e.EnqueueChat("urgent problem", "")
	require.NoError(t, err)

	_, err = e.StartLoop(10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Metrics().TotalIterations >= 1
	}, 2*time.Second, 20*time.Millisecond)

	state, err := e.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state.State)
}

func TestLoopStatusReportsInterval(t *testing.T) {
	e := newTestEngine(t)
	defer e.StopLoop()

	status := e.LoopStatus()
	assert.False(t, status.Running)

	_, err := e.StartLoop(75)
	require.NoError(t, err)

	status = e.LoopStatus()
	assert.True(t, status.Running)
	assert.Equal(t, uint64(75), status.IntervalMS)
}

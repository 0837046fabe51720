package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/looperhq/looper/pkg/config"
)

// recoveryInterval is how long the worker waits after a failed
// iteration before trying again.
const recoveryInterval = 500 * time.Millisecond

// LoopStatus reports whether the background worker is running and at
// what interval.
type LoopStatus struct {
	Running    bool   `json:"running"`
	IntervalMS uint64 `json:"interval_ms"`
}

// scheduler owns the single background worker. It has its own mutex:
// the worker takes the engine mutex through RunIteration, so the
// scheduler must never be locked while the engine mutex is held.
type scheduler struct {
	mu         sync.Mutex
	running    bool
	intervalMS uint64
	stopCh     chan struct{}
	done       chan struct{}
}

// StartLoop starts the background worker. It is idempotent: when a
// worker is already running the current status is returned unchanged.
// The first start moves the engine to Running; an unconfigured or
// stopped engine fails with ErrNotConfigured.
func (e *Engine) StartLoop(intervalMS uint64) (LoopStatus, error) {
	e.sched.mu.Lock()
	defer e.sched.mu.Unlock()

	if e.sched.running {
		return LoopStatus{Running: true, IntervalMS: e.sched.intervalMS}, nil
	}
	if intervalMS == 0 {
		intervalMS = config.DefaultLoopIntervalMS
	}

	e.mu.Lock()
	if e.local == nil || e.frontier == nil {
		e.mu.Unlock()
		return LoopStatus{}, ErrNotConfigured
	}
	if e.state == StateStopped {
		e.mu.Unlock()
		return LoopStatus{}, fmt.Errorf("%w: agent stopped (%s), reconfigure models to resume", ErrNotConfigured, e.stopReason)
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.sched.running = true
	e.sched.intervalMS = intervalMS
	e.sched.stopCh = make(chan struct{})
	e.sched.done = make(chan struct{})

	go e.loopWorker(e.sched.stopCh, e.sched.done, time.Duration(intervalMS)*time.Millisecond)

	slog.Info("loop started", "interval_ms", intervalMS)
	return LoopStatus{Running: true, IntervalMS: intervalMS}, nil
}

// loopWorker alternates between sleeping and running one iteration. A
// failed iteration shortens the next sleep to the recovery interval.
// The stop signal is checked at every sleep boundary; an in-flight
// iteration is never aborted.
func (e *Engine) loopWorker(stopCh, done chan struct{}, interval time.Duration) {
	defer close(done)

	delay := interval
	for {
		select {
		case <-stopCh:
			return
		case <-time.After(delay):
		}

		if _, err := e.RunIteration(context.Background()); err != nil {
			slog.Warn("iteration failed", "error", err)
			delay = recoveryInterval
			continue
		}
		delay = interval
	}
}

// StopLoop signals the worker, waits for the in-flight iteration to
// drain, and moves the engine to Stopped. Stopping an idle scheduler is
// a no-op. No iteration starts after StopLoop returns.
func (e *Engine) StopLoop() LoopStatus {
	e.sched.mu.Lock()
	defer e.sched.mu.Unlock()

	if !e.sched.running {
		return LoopStatus{Running: false, IntervalMS: e.sched.intervalMS}
	}

	close(e.sched.stopCh)
	<-e.sched.done
	e.sched.running = false

	e.mu.Lock()
	e.setStoppedLocked("manually stopped")
	e.mu.Unlock()

	slog.Info("loop stopped")
	return LoopStatus{Running: false, IntervalMS: e.sched.intervalMS}
}

// LoopStatus reports the scheduler state.
func (e *Engine) LoopStatus() LoopStatus {
	e.sched.mu.Lock()
	defer e.sched.mu.Unlock()
	return LoopStatus{Running: e.sched.running, IntervalMS: e.sched.intervalMS}
}

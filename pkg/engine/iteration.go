package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/actuator"
	"github.com/looperhq/looper/pkg/journal"
	"github.com/looperhq/looper/pkg/observability"
	"github.com/looperhq/looper/pkg/reasoner"
	"github.com/looperhq/looper/pkg/sensor"
)

// Report is the outcome of one iteration.
type Report struct {
	IterationID                 int64                    `json:"iteration_id,omitempty"`
	Sensed                      []sensor.Percept         `json:"sensed"`
	Surprising                  []sensor.Percept         `json:"surprising"`
	Planned                     []action.Recommended     `json:"planned"`
	Results                     []action.ExecutionResult `json:"results"`
	EndedAfterSurpriseDetection bool                     `json:"ended_after_surprise_detection,omitempty"`
	EndedAfterReasoning         bool                     `json:"ended_after_reasoning,omitempty"`
	LocalRationale              string                   `json:"local_rationale,omitempty"`
	FrontierRationale           string                   `json:"frontier_rationale,omitempty"`
}

// RunIteration drives one traversal of the surprise, plan, execute
// state machine. It holds the engine mutex for the whole traversal,
// including across reasoner and executor calls, which serialises the
// loop with all other engine operations.
func (e *Engine) RunIteration(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runIterationLocked(ctx)
}

func (e *Engine) runIterationLocked(ctx context.Context) (*Report, error) {
	if e.local == nil || e.frontier == nil {
		return nil, ErrNotConfigured
	}
	if e.state != StateRunning {
		return nil, ErrNotRunning
	}

	report := &Report{
		Sensed:     []sensor.Percept{},
		Surprising: []sensor.Percept{},
		Planned:    []action.Recommended{},
		Results:    []action.ExecutionResult{},
	}

	// GatherPercepts
	e.vis.localLoopCount++
	e.vis.surpriseFound = false
	e.vis.actionsRequired = false
	e.transitionLocked(PhaseGatherNewPercepts)
	if sensed := e.sensors.SenseUnread(); sensed != nil {
		report.Sensed = sensed
	}

	// CheckSurprises
	e.transitionLocked(PhaseCheckForSurprises)
	e.counters.IncPhase(observability.PhaseSurpriseDetection)
	e.metrics.RecordPhase(ctx, observability.PhaseSurpriseDetection)

	windows, err := e.historyWindows(ctx)
	if err != nil {
		return nil, err
	}
	detection, err := e.local.Detect(ctx, report.Sensed, windows)
	if err != nil {
		return nil, err
	}
	e.counters.AddLocalTokens(detection.TokensUsed)
	e.metrics.RecordTokens(ctx, observability.TierLocalTokens, detection.TokensUsed)
	report.LocalRationale = detection.Rationale

	report.Surprising = e.composeSurpriseSet(report.Sensed, detection.SurprisingIndices)
	e.vis.surpriseFound = len(report.Surprising) > 0

	if len(report.Surprising) == 0 {
		e.transitionLocked(PhaseIdle)
		report.EndedAfterSurpriseDetection = true
		if err := e.finishIterationLocked(ctx, report); err != nil {
			return nil, err
		}
		return report, nil
	}

	// DeeperPerceptInvestigation is a display phase: no reasoner call.
	e.vis.frontierLoopCount++
	e.transitionLocked(PhaseDeeperPerceptInvestigation)

	// PlanActions
	e.transitionLocked(PhasePlanActions)
	e.counters.IncPhase(observability.PhaseReasoning)
	e.metrics.RecordPhase(ctx, observability.PhaseReasoning)

	plan, routed := e.pluginPlanLocked(report.Surprising)
	if !routed {
		plan, err = e.frontier.Plan(ctx, report.Surprising)
		if err != nil {
			if reasoner.IsCommunicationFailure(err) {
				e.setStoppedLocked(fmt.Sprintf("frontier communication failure: %v", err))
				slog.Error("frontier reasoner unreachable, stopping agent", "error", err)
			}
			return nil, err
		}
		e.counters.AddFrontierTokens(plan.TokensUsed)
		e.metrics.RecordTokens(ctx, observability.TierFrontierTokens, plan.TokensUsed)
		report.FrontierRationale = plan.Rationale
	}
	if plan.Actions != nil {
		report.Planned = plan.Actions
	}

	if len(report.Planned) == 0 {
		e.counters.IncFalsePositiveSurprises()
		e.metrics.RecordFalsePositiveSurprise(ctx)
		e.transitionLocked(PhaseIdle)
		report.EndedAfterReasoning = true
		if err := e.finishIterationLocked(ctx, report); err != nil {
			return nil, err
		}
		return report, nil
	}

	// ExecuteActions
	e.vis.actionsRequired = true
	e.transitionLocked(PhaseExecuteActions)
	e.counters.IncPhase(observability.PhasePerformActions)
	e.metrics.RecordPhase(ctx, observability.PhasePerformActions)

	results := make([]action.ExecutionResult, 0, len(report.Planned))
	for _, rec := range report.Planned {
		res, err := e.dispatchLocked(ctx, rec, false)
		if err != nil {
			// Executor failure aborts the remaining plan; the results
			// produced so far are discarded with it.
			return nil, err
		}
		if res.Status == action.StatusDenied {
			e.counters.IncFailedToolExecutions()
			e.metrics.RecordFailedToolExecution(ctx)
		}
		results = append(results, res)
	}
	report.Results = results

	e.transitionLocked(PhaseIdle)
	if err := e.finishIterationLocked(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// historyWindows fetches the recent percept windows for the local
// reasoner. Without a journal the detector works from the latest
// percepts alone.
func (e *Engine) historyWindows(ctx context.Context) ([][]string, error) {
	if e.journal == nil {
		return nil, nil
	}
	return e.journal.LatestPerceptWindows(ctx, journal.HistoryWindowLimit)
}

// composeSurpriseSet keeps the detector's flagged percepts (deduped,
// order kept, out-of-range indices dropped) and then force-appends
// every percept whose sensor sensitivity is at or above the threshold.
func (e *Engine) composeSurpriseSet(sensed []sensor.Percept, indices []int) []sensor.Percept {
	out := []sensor.Percept{}
	seen := make(map[int]bool, len(indices))

	for _, idx := range indices {
		if idx < 0 || idx >= len(sensed) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, sensed[idx])
	}

	for i, p := range sensed {
		if seen[i] {
			continue
		}
		sn, ok := e.sensors.Get(p.SensorName)
		if ok && sn.SensitivityScore >= sensor.ForceSurpriseThreshold {
			seen[i] = true
			out = append(out, p)
		}
	}
	return out
}

// finishIterationLocked counts the completed iteration and appends it
// to the journal when one is attached. Journal failures surface; the
// in-memory effects already applied are not rolled back.
func (e *Engine) finishIterationLocked(ctx context.Context, report *Report) error {
	e.counters.IncIterations()
	e.metrics.RecordIteration(ctx)

	if e.journal == nil {
		return nil
	}
	id, err := e.journal.Append(ctx, &journal.Iteration{
		Sensed:     report.Sensed,
		Surprising: report.Surprising,
		Planned:    report.Planned,
		Results:    report.Results,
	})
	if err != nil {
		return err
	}
	report.IterationID = id
	return nil
}

// dispatchLocked resolves the actuator and applies its policy in a
// fixed order: HITL suspension, denylist, allowlist, rate limit, kind
// compatibility, execution, counter increment.
func (e *Engine) dispatchLocked(ctx context.Context, rec action.Recommended, bypassHITL bool) (action.ExecutionResult, error) {
	act, err := e.actuators.Get(rec.ActuatorName)
	if err != nil {
		return action.ExecutionResult{}, err
	}

	keyword := string(rec.Action.Type)

	if act.Policy.RequireHITL && !bypassHITL {
		id := e.approvals.add(rec)
		slog.Info("dispatch suspended for approval", "actuator", act.Name, "approval_id", id)
		return action.RequiresHITL(id), nil
	}
	if act.Policy.Denies(keyword) {
		return action.Denied(fmt.Sprintf("keyword %q is deny-listed for actuator %q", keyword, act.Name)), nil
	}
	if act.Policy.Omits(keyword) {
		return action.Denied(fmt.Sprintf("keyword %q is not on the allowlist of actuator %q", keyword, act.Name)), nil
	}
	if act.RateLimited() {
		return action.Denied(fmt.Sprintf("actuator %q reached its rate limit", act.Name)), nil
	}

	var output string
	switch act.Kind.Type {
	case actuator.KindInternal:
		if act.Kind.ActionKind != rec.Action.Type {
			return action.Denied(fmt.Sprintf("actuator %q executes %s actions, not %s",
				act.Name, act.Kind.ActionKind, rec.Action.Type)), nil
		}
		exec, err := e.executors.Get(rec.Action.Type)
		if err != nil {
			return action.ExecutionResult{}, err
		}
		output, err = exec.Execute(ctx, rec.Action)
		if err != nil {
			return action.ExecutionResult{}, err
		}
	case actuator.KindMCP:
		output = fmt.Sprintf("mcp request accepted: server %q tool %q", act.Kind.Server, act.Kind.Tool)
	case actuator.KindWorkflow:
		output = fmt.Sprintf("workflow request accepted: %q", act.Kind.Workflow)
	default:
		return action.Denied(fmt.Sprintf("actuator %q has unsupported kind %q", act.Name, act.Kind.Type)), nil
	}

	act.RecordExecution()
	return action.Executed(output), nil
}

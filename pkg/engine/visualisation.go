package engine

import (
	"time"
)

// Phase is a coarse position in the iteration state machine, exposed to
// external consumers for loop visualisation.
type Phase string

const (
	PhaseGatherNewPercepts          Phase = "GatherNewPercepts"
	PhaseCheckForSurprises          Phase = "CheckForSurprises"
	PhaseDeeperPerceptInvestigation Phase = "DeeperPerceptInvestigation"
	PhasePlanActions                Phase = "PlanActions"
	PhaseExecuteActions             Phase = "ExecuteActions"
	PhaseIdle                       Phase = "Idle"
)

// loopVisualisation tracks where the loop currently is. Guarded by the
// engine mutex.
type loopVisualisation struct {
	phase             Phase
	surpriseFound     bool
	actionsRequired   bool
	localLoopCount    uint64
	frontierLoopCount uint64
}

// VisualisationSnapshot is the JSON view of the loop position.
type VisualisationSnapshot struct {
	Phase             Phase  `json:"phase"`
	SurpriseFound     bool   `json:"surprise_found"`
	ActionsRequired   bool   `json:"actions_required"`
	LocalLoopCount    uint64 `json:"local_loop_count"`
	FrontierLoopCount uint64 `json:"frontier_loop_count"`
}

func (v *loopVisualisation) snapshot() VisualisationSnapshot {
	return VisualisationSnapshot{
		Phase:             v.phase,
		SurpriseFound:     v.surpriseFound,
		ActionsRequired:   v.actionsRequired,
		LocalLoopCount:    v.localLoopCount,
		FrontierLoopCount: v.frontierLoopCount,
	}
}

// phaseEventBuffer bounds the retained phase transition history.
const phaseEventBuffer = 512

// PhaseEvent records one state machine transition.
type PhaseEvent struct {
	Sequence      uint64                `json:"sequence"`
	Phase         Phase                 `json:"phase"`
	Visualisation VisualisationSnapshot `json:"visualisation"`
	EmittedAtMS   int64                 `json:"emitted_at_ms"`
}

// phaseEventLog is a fixed-capacity ring of phase events with monotonic
// sequences. Guarded by the engine mutex.
type phaseEventLog struct {
	buf     []PhaseEvent
	start   int
	nextSeq uint64
}

func newPhaseEventLog() *phaseEventLog {
	return &phaseEventLog{nextSeq: 1}
}

func (l *phaseEventLog) append(phase Phase, vis VisualisationSnapshot) PhaseEvent {
	ev := PhaseEvent{
		Sequence:      l.nextSeq,
		Phase:         phase,
		Visualisation: vis,
		EmittedAtMS:   time.Now().UnixMilli(),
	}
	l.nextSeq++

	if len(l.buf) < phaseEventBuffer {
		l.buf = append(l.buf, ev)
	} else {
		l.buf[l.start] = ev
		l.start = (l.start + 1) % phaseEventBuffer
	}
	return ev
}

// eventsAfter returns retained events with sequence > after, oldest
// first.
func (l *phaseEventLog) eventsAfter(after uint64) []PhaseEvent {
	out := []PhaseEvent{}
	n := len(l.buf)
	for i := 0; i < n; i++ {
		ev := l.buf[(l.start+i)%n]
		if ev.Sequence > after {
			out = append(out, ev)
		}
	}
	return out
}

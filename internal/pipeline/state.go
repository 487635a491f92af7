package pipeline

import "fmt"

// State is the orchestrator's position in the capture pipeline.
//
//	Idle → Reading → Classifying → DedupCheck → {Persisting | Bumping} → Evicting → Idle
type State int32

const (
	StateIdle State = iota
	StateReading
	StateClassifying
	StateDedupCheck
	StatePersisting
	StateBumping
	StateEvicting
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateReading:     "reading",
	StateClassifying: "classifying",
	StateDedupCheck:  "dedup_check",
	StatePersisting:  "persisting",
	StateBumping:     "bumping",
	StateEvicting:    "evicting",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Outcome is what happened to one clipboard change.
type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeBumped
	OutcomeDiscarded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeBumped:
		return "bumped"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

package sync

import "fmt"

// EditState is the lifecycle phase of a single edit. Every in-flight edit
// drives its own machine, so edits on different records never queue on
// each other.
type EditState int

const (
	// StateIdle accepts new edits and refreshes.
	StateIdle EditState = iota
	// StateEditing holds a coerced, validated update not yet applied.
	StateEditing
	// StateSaving has applied the update locally and is waiting on the
	// remote write.
	StateSaving
	// StateReconciling re-fetches authoritative data after a successful
	// write.
	StateReconciling
	// StateRollingBack restores the pre-edit snapshot after a failed write.
	StateRollingBack
)

func (s EditState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateReconciling:
		return "reconciling"
	case StateRollingBack:
		return "rolling_back"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

// transitions is the complete set of legal moves. Anything absent here is a
// programming error, not a recoverable condition.
var transitions = map[EditState][]EditState{
	StateIdle:        {StateEditing, StateReconciling},
	StateEditing:     {StateSaving, StateIdle},
	StateSaving:      {StateReconciling, StateRollingBack},
	StateReconciling: {StateIdle},
	StateRollingBack: {StateIdle},
}

type machine struct {
	state EditState
}

func (m *machine) can(to EditState) bool {
	for _, next := range transitions[m.state] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the machine or reports the illegal edge it refused.
func (m *machine) transition(to EditState) error {
	if !m.can(to) {
		return fmt.Errorf("illegal state transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}

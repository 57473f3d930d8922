package navigation

import "fmt"

// State is a navigation state for one goal.
type State int

const (
	Idle State = iota
	PathRequested
	Stepping
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PathRequested:
		return "path_requested"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Completed || s == Aborted
}

var transitions = map[State][]State{
	Idle:          {PathRequested},
	PathRequested: {Stepping, Aborted},
	Stepping:      {Completed, Aborted},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// machine tracks the state of one goal. Illegal transitions are
// programming errors and panic.
type machine struct {
	state State
}

func (m *machine) to(next State) {
	if !m.state.CanTransition(next) {
		panic(fmt.Sprintf("navigation: illegal transition %s -> %s", m.state, next))
	}
	m.state = next
}

// Outcome is how a goal ended.
type Outcome string

const (
	OutcomeCompleted            Outcome = "completed"
	OutcomeSkippedNoPath        Outcome = "skipped_no_path"
	OutcomeSkippedPlanningError Outcome = "skipped_planning_error"
)

// Skipped reports whether the goal was abandoned.
func (o Outcome) Skipped() bool {
	return o != OutcomeCompleted
}

// Package actions defines the agent action vocabulary and the rate
// transformer that replays coarse planner actions at agent resolution.
//
// A planner-rate action such as move_forward moves the agent by the full
// actuation amount. Its agent-rate variant move_forward_freq moves it by
// amount/multiplier, so repeating the variant multiplier times covers the
// same distance in smaller increments.
package actions

// Action is a single action token understood by the simulator.
type Action string

const (
	MoveForward Action = "move_forward"
	TurnLeft    Action = "turn_left"
	TurnRight   Action = "turn_right"

	MoveForwardFreq Action = "move_forward_freq"
	TurnLeftFreq    Action = "turn_left_freq"
	TurnRightFreq   Action = "turn_right_freq"

	Stop  Action = "stop"
	Error Action = "error"
	// None is what the follower returns when it has nothing left to do.
	None Action = ""
)

// IsTerminal reports whether a ends navigation toward the current goal.
func (a Action) IsTerminal() bool {
	return a == Stop || a == Error || a == None
}

// IsMove reports whether a translates the agent.
func (a Action) IsMove() bool {
	return a == MoveForward || a == MoveForwardFreq
}

// IsTurn reports whether a rotates the agent.
func (a Action) IsTurn() bool {
	switch a {
	case TurnLeft, TurnRight, TurnLeftFreq, TurnRightFreq:
		return true
	}
	return false
}

// IsFreq reports whether a is an agent-rate variant.
func (a Action) IsFreq() bool {
	switch a {
	case MoveForwardFreq, TurnLeftFreq, TurnRightFreq:
		return true
	}
	return false
}

// String renders None as "None" so log lines stay readable.
func (a Action) String() string {
	if a == None {
		return "None"
	}
	return string(a)
}

var freqVariant = map[Action]Action{
	MoveForward: MoveForwardFreq,
	TurnLeft:    TurnLeftFreq,
	TurnRight:   TurnRightFreq,
}

// FreqVariant returns the agent-rate variant of a planner action.
func FreqVariant(a Action) (Action, bool) {
	v, ok := freqVariant[a]
	return v, ok
}

// Known reports whether a belongs to the vocabulary.
func Known(a Action) bool {
	if a.IsTerminal() || a.IsFreq() {
		return true
	}
	_, ok := freqVariant[a]
	return ok
}

package actions

// Transformer expands planner-rate actions into agent-rate actions.
// Multipliers are validated by the scenario configuration; values below one
// are treated as one.
type Transformer struct {
	MoveMultiplier int
	TurnMultiplier int
}

// NewTransformer returns a Transformer with the given multipliers.
func NewTransformer(move, turn int) Transformer {
	return Transformer{MoveMultiplier: move, TurnMultiplier: turn}
}

// Multiplier returns how many agent-rate tokens a expands into.
func (t Transformer) Multiplier(a Action) int {
	var n int
	switch {
	case a.IsTerminal():
		return 1
	case a == MoveForward:
		n = t.MoveMultiplier
	case a == TurnLeft || a == TurnRight:
		n = t.TurnMultiplier
	default:
		return 1
	}
	if n < 1 {
		return 1
	}
	return n
}

// Expand maps one planner action to its agent-rate sequence. Terminal and
// already agent-rate tokens pass through exactly once.
func (t Transformer) Expand(a Action) []Action {
	v, ok := FreqVariant(a)
	if !ok {
		return []Action{a}
	}
	n := t.Multiplier(a)
	out := make([]Action, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ExpandAll expands a planner sequence in order. Expansion stops after the
// first terminal token, which is emitted once as the last element.
func (t Transformer) ExpandAll(seq []Action) []Action {
	size := 0
	for _, a := range seq {
		size += t.Multiplier(a)
		if a.IsTerminal() {
			break
		}
	}

	out := make([]Action, 0, size)
	for _, a := range seq {
		out = append(out, t.Expand(a)...)
		if a.IsTerminal() {
			break
		}
	}
	return out
}

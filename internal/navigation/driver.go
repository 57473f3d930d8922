// Package navigation drives the agent toward one goal at a time.
//
// Each goal runs through Idle, PathRequested and Stepping before ending in
// Completed or Aborted. Planning failures end the goal and are reported in
// the Result; simulator and recorder failures are returned as errors and end
// the run.
package navigation

import (
	"context"
	"errors"
	"fmt"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// ErrUnknownAction is wrapped in the planning error when the follower
// proposes a token outside the action vocabulary.
var ErrUnknownAction = errors.New("unknown action")

// ErrActionLimit is wrapped in the planning error when a goal exceeds the
// driver's action budget.
var ErrActionLimit = errors.New("action limit reached")

// Recorder receives every simulator step. The step logger implements it.
type Recorder interface {
	Record(ctx context.Context, transform geom.Mat4, frames sim.Frames) (int, error)
	Index() int
	Logf(format string, args ...any)
}

// Observer is told about progress. It cannot influence navigation.
type Observer interface {
	OnGoalStart(goal int, point geom.Vec3)
	OnStep(goal, step int, a actions.Action)
	OnGoalDone(goal int, res Result)
}

// Result summarizes one goal.
type Result struct {
	Goal    int
	Point   geom.Vec3
	State   State
	Outcome Outcome
	// FirstStep is the recorder index when the goal started.
	FirstStep int
	// Steps is the number of steps recorded for the goal.
	Steps int
	// PlannerActions counts actions returned by the follower, terminal included.
	PlannerActions int
	// FinalAction is the terminal token, if one was received.
	FinalAction actions.Action
	// Err is the absorbed planning failure of a skipped goal.
	Err error
}

// Driver runs the per-goal state machine.
type Driver struct {
	Transformer actions.Transformer
	// Expand replays planner actions at agent rate.
	Expand   bool
	Agent    int
	Recorder Recorder
	Observer Observer
	// MaxActions bounds the movement actions taken per goal. A terminal
	// action is always honored. Zero means unbounded.
	MaxActions int
}

// Navigate drives s toward goal using f. The returned error is non-nil only
// for failures that must end the run.
func (d *Driver) Navigate(ctx context.Context, s sim.Simulator, f sim.Follower, goal int, point geom.Vec3) (Result, error) {
	m := &machine{state: Idle}
	res := Result{Goal: goal, Point: point, FirstStep: d.Recorder.Index()}
	if d.Observer != nil {
		d.Observer.OnGoalStart(goal, point)
	}

	finish := func(state State, outcome Outcome, err error) (Result, error) {
		m.to(state)
		res.State = m.state
		res.Outcome = outcome
		res.Err = err
		if d.Observer != nil {
			d.Observer.OnGoalDone(goal, res)
		}
		return res, nil
	}

	m.to(PathRequested)
	path, err := f.FindPath(ctx, point)
	if err != nil {
		d.Recorder.Logf("Path exception: %v. Skip goal %d at %s", err, goal, formatPoint(point))
		return finish(Aborted, OutcomeSkippedNoPath, err)
	}

	m.to(Stepping)
	d.Recorder.Logf("Navigating to goal %d at %s, path of %d points", goal, formatPoint(point), len(path))

	for {
		a, err := f.NextAction(ctx, point)
		if err != nil {
			perr := planningError(point, err)
			d.Recorder.Logf("Path exception: %v. Skip goal %d", perr, goal)
			return finish(Aborted, OutcomeSkippedPlanningError, perr)
		}
		res.PlannerActions++

		if a.IsTerminal() {
			res.FinalAction = a
			d.Recorder.Logf("Final action: %s", a)
			if a == actions.Error {
				return finish(Aborted, OutcomeSkippedPlanningError,
					&sim.PlanningError{Goal: point, Err: errors.New("follower returned error action")})
			}
			return finish(Completed, OutcomeCompleted, nil)
		}

		if d.MaxActions > 0 && res.PlannerActions > d.MaxActions {
			perr := &sim.PlanningError{Goal: point, Err: ErrActionLimit}
			d.Recorder.Logf("Goal %d skipped: %v", goal, perr)
			return finish(Aborted, OutcomeSkippedPlanningError, perr)
		}

		if !actions.Known(a) {
			perr := &sim.PlanningError{Goal: point, Err: fmt.Errorf("%w %q", ErrUnknownAction, string(a))}
			d.Recorder.Logf("Goal %d skipped: %v", goal, perr)
			return finish(Aborted, OutcomeSkippedPlanningError, perr)
		}

		d.Recorder.Logf("Action: %s", a)
		tokens := []actions.Action{a}
		if d.Expand {
			tokens = d.Transformer.Expand(a)
		}
		for _, tok := range tokens {
			obs, err := s.Step(ctx, d.Agent, tok)
			if err != nil {
				res.State = m.state
				return res, fmt.Errorf("stepping %s toward goal %d: %w", tok, goal, err)
			}
			idx, err := d.Recorder.Record(ctx, obs.CapturePose().Transform(), obs.Frames)
			if err != nil {
				res.State = m.state
				return res, fmt.Errorf("recording step toward goal %d: %w", goal, err)
			}
			res.Steps++
			if d.Observer != nil {
				d.Observer.OnStep(goal, idx, tok)
			}
		}
	}
}

func planningError(goal geom.Vec3, err error) error {
	var perr *sim.PlanningError
	if errors.As(err, &perr) {
		return err
	}
	return &sim.PlanningError{Goal: goal, Err: err}
}

func formatPoint(p geom.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

package gridsim

import (
	"context"
	"math"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// Follower greedily follows an A* path with planner-rate actions: turn in
// place until facing the next waypoint, then move forward.
type Follower struct {
	sim        *Sim
	agent      int
	goalRadius float64

	goal  geom.Vec3
	path  []geom.Vec3
	next  int
	steps int
}

var _ sim.Follower = (*Follower)(nil)

// NewFollower returns a follower for agent.
func (s *Sim) NewFollower(agent int, goalRadius float64) (sim.Follower, error) {
	if err := s.check(agent); err != nil {
		return nil, err
	}
	return &Follower{sim: s, agent: agent, goalRadius: goalRadius}, nil
}

// FindPath plans from the agent's position to goal and resets the follower.
func (f *Follower) FindPath(_ context.Context, goal geom.Vec3) ([]geom.Vec3, error) {
	st, err := f.sim.AgentState(f.agent)
	if err != nil {
		return nil, err
	}
	path, err := f.sim.pf.FindPath(st.Pose.Position, goal)
	if err != nil {
		return nil, err
	}
	f.goal = goal
	f.path = path
	f.next = 1
	f.steps = 0
	return path, nil
}

// NextAction returns stop within the goal radius, the error action once
// MaxStepsPerGoal actions have been issued, and otherwise a turn or a move
// toward the next waypoint.
func (f *Follower) NextAction(ctx context.Context, goal geom.Vec3) (actions.Action, error) {
	st, err := f.sim.AgentState(f.agent)
	if err != nil {
		return actions.None, err
	}
	pos := st.Pose.Position

	if pos.HorizontalDist(goal) <= f.goalRadius {
		return actions.Stop, nil
	}
	if f.path == nil || goal != f.goal {
		if _, err := f.FindPath(ctx, goal); err != nil {
			return actions.None, err
		}
	}
	if limit := f.sim.opts.MaxStepsPerGoal; limit > 0 && f.steps >= limit {
		return actions.Error, nil
	}
	f.steps++

	reach := f.sim.opts.MoveAmount
	for f.next < len(f.path)-1 && pos.HorizontalDist(f.path[f.next]) < reach {
		f.next++
	}
	target := f.path[min(f.next, len(f.path)-1)]

	d := target.Sub(pos)
	want := math.Atan2(-d.X, -d.Z)
	diff := wrapAngle(want - geom.Yaw(st.Pose.Rotation))
	tol := f.sim.opts.TurnAmount * math.Pi / 180 / 2
	switch {
	case diff > tol:
		return actions.TurnLeft, nil
	case diff < -tol:
		return actions.TurnRight, nil
	default:
		return actions.MoveForward, nil
	}
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

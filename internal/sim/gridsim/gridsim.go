// Package gridsim is a deterministic simulator over a grid floor plan.
//
// It implements the sim interfaces without a physics engine: a navmesh of
// square floor cells, A* path planning with a greedy follower, and a
// raycast renderer that produces color, depth and semantic frames.
package gridsim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// ErrClosed is returned by a handle after Close or Reconfigure.
var ErrClosed = errors.New("simulator handle is closed")

// Options configures a Sim.
type Options struct {
	Agents      int
	AgentRadius float64

	MoveAmount float64
	// TurnAmount is in degrees.
	TurnAmount     float64
	MoveMultiplier int
	TurnMultiplier int

	Sensors      map[sim.SensorKind]bool
	Camera       Camera
	SensorHeight float64
	WallHeight   float64

	// MaxStepsPerGoal bounds follower actions per goal before it answers
	// with the error action. Zero means unbounded.
	MaxStepsPerGoal int
}

// Sim is one simulator handle.
type Sim struct {
	world  *World
	pf     *Pathfinder
	opts   Options
	agents []sim.AgentState
	render *renderer
	setup  string
	closed bool
}

var _ sim.Simulator = (*Sim)(nil)

// New returns a simulator over w with every agent at the first floor cell.
func New(w *World, opts Options) (*Sim, error) {
	start, ok := w.FirstFree()
	if !ok {
		return nil, fmt.Errorf("grid world has no floor cells")
	}
	if opts.Agents <= 0 {
		opts.Agents = 1
	}
	if opts.MoveMultiplier < 1 {
		opts.MoveMultiplier = 1
	}
	if opts.TurnMultiplier < 1 {
		opts.TurnMultiplier = 1
	}

	s := &Sim{
		world: w,
		pf:    NewPathfinder(w),
		opts:  opts,
		render: &renderer{
			world:      w,
			cam:        opts.Camera,
			wallHeight: opts.WallHeight,
		},
	}
	s.agents = make([]sim.AgentState, opts.Agents)
	for i := range s.agents {
		s.agents[i] = sim.AgentState{Pose: geom.Pose{Position: start, Rotation: geom.Identity}}
	}
	return s, nil
}

// World returns the floor plan.
func (s *Sim) World() *World { return s.world }

// LightSetup returns the name of the active light setup.
func (s *Sim) LightSetup() string { return s.setup }

func (s *Sim) Pathfinder() sim.Pathfinder { return s.pf }

func (s *Sim) NumAgents() int { return len(s.agents) }

func (s *Sim) AgentState(agent int) (sim.AgentState, error) {
	if err := s.check(agent); err != nil {
		return sim.AgentState{}, err
	}
	return s.agents[agent], nil
}

func (s *Sim) SetAgentState(agent int, st sim.AgentState) error {
	if err := s.check(agent); err != nil {
		return err
	}
	st.Pose.Rotation = geom.Normalize(st.Pose.Rotation)
	s.agents[agent] = st
	return nil
}

// Reconfigure returns a new handle with the given lights. Agents start
// over at the initial pose on the new handle, as after a scene reload.
func (s *Sim) Reconfigure(_ context.Context, rc sim.Reconfiguration) (sim.Simulator, error) {
	if s.closed {
		return nil, ErrClosed
	}
	next, err := New(s.world, s.opts)
	if err != nil {
		return nil, err
	}
	next.setup = rc.LightSetup
	next.render.lights = append([]sim.Light(nil), rc.Lights...)
	s.closed = true
	return next, nil
}

func (s *Sim) Close() error {
	s.closed = true
	return nil
}

// Step applies a to agent and renders the enabled sensors.
func (s *Sim) Step(ctx context.Context, agent int, a actions.Action) (sim.Observation, error) {
	if err := s.check(agent); err != nil {
		return sim.Observation{}, err
	}
	if err := ctx.Err(); err != nil {
		return sim.Observation{}, err
	}

	st := s.agents[agent]
	switch {
	case a.IsMove():
		amount := s.opts.MoveAmount
		if a.IsFreq() {
			amount /= float64(s.opts.MoveMultiplier)
		}
		next := st.Pose.Position.Add(st.Pose.Forward().Scale(amount))
		if s.canOccupy(next) {
			st.Pose.Position = next
		}
	case a.IsTurn():
		deg := s.opts.TurnAmount
		if a.IsFreq() {
			deg /= float64(s.opts.TurnMultiplier)
		}
		if a == actions.TurnRight || a == actions.TurnRightFreq {
			deg = -deg
		}
		yaw := geom.Yaw(st.Pose.Rotation) + deg*math.Pi/180
		st.Pose.Rotation = geom.YawRotation(yaw)
	case a.IsTerminal():
	default:
		return sim.Observation{}, fmt.Errorf("unknown action %q", string(a))
	}
	s.agents[agent] = st

	return s.observe(st.Pose), nil
}

// Observe renders the enabled sensors at the current pose of agent
// without moving it.
func (s *Sim) Observe(agent int) (sim.Observation, error) {
	if err := s.check(agent); err != nil {
		return sim.Observation{}, err
	}
	return s.observe(s.agents[agent].Pose), nil
}

func (s *Sim) observe(agentPose geom.Pose) sim.Observation {
	sensor := geom.Pose{
		Position: agentPose.Position.Add(geom.Vec3{Y: s.opts.SensorHeight}),
		Rotation: agentPose.Rotation,
	}
	obs := sim.Observation{
		Frames:      s.render.render(sensor, s.opts.Sensors),
		SensorPoses: make(map[sim.SensorKind]geom.Pose, len(s.opts.Sensors)),
		AgentPose:   agentPose,
	}
	for kind, on := range s.opts.Sensors {
		if on {
			obs.SensorPoses[kind] = sensor
		}
	}
	return obs
}

func (s *Sim) canOccupy(p geom.Vec3) bool {
	return s.pf.IsNavigable(p) && s.pf.DistanceToObstacle(p, s.opts.AgentRadius) >= s.opts.AgentRadius
}

func (s *Sim) check(agent int) error {
	if s.closed {
		return ErrClosed
	}
	if agent < 0 || agent >= len(s.agents) {
		return fmt.Errorf("agent %d out of range [0, %d)", agent, len(s.agents))
	}
	return nil
}

// Package sim defines the boundary between the scenario engine and the
// simulator that renders frames, owns the navmesh and plans paths.
//
// The engine never reaches past these interfaces. A physics-backed
// simulator, a remote one, or the built-in grid world in package gridsim
// can all drive the same scenario.
package sim

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
)

// SensorKind identifies a frame stream.
type SensorKind string

const (
	SensorColor    SensorKind = "color"
	SensorDepth    SensorKind = "depth"
	SensorSemantic SensorKind = "semantic"
)

// DepthFrame holds per-pixel distances in meters, row-major.
type DepthFrame struct {
	Width, Height int
	Meters        []float32
}

// SemanticFrame holds per-pixel instance labels, row-major.
type SemanticFrame struct {
	Width, Height int
	Labels        []uint32
}

// Frames is the optional frame triplet of one step. A nil field means the
// sensor is not enabled.
type Frames struct {
	Color    *image.RGBA
	Depth    *DepthFrame
	Semantic *SemanticFrame
}

// Kinds lists the sensors present in f, in a fixed order.
func (f Frames) Kinds() []SensorKind {
	var out []SensorKind
	if f.Color != nil {
		out = append(out, SensorColor)
	}
	if f.Depth != nil {
		out = append(out, SensorDepth)
	}
	if f.Semantic != nil {
		out = append(out, SensorSemantic)
	}
	return out
}

// Observation is what one simulator step returns.
type Observation struct {
	Frames Frames
	// SensorPoses holds the world pose of each enabled sensor.
	SensorPoses map[SensorKind]geom.Pose
	// AgentPose is the pose of the agent body.
	AgentPose geom.Pose
}

// CapturePose returns the pose recorded in the trajectory: the color sensor
// if present, otherwise any sensor in a fixed order, otherwise the agent.
func (o Observation) CapturePose() geom.Pose {
	for _, k := range []SensorKind{SensorColor, SensorDepth, SensorSemantic} {
		if p, ok := o.SensorPoses[k]; ok {
			return p
		}
	}
	return o.AgentPose
}

// AgentState is the snapshot taken around reconfiguration.
type AgentState struct {
	Pose geom.Pose
}

// LightModel tells the renderer what a light position is relative to.
type LightModel string

const (
	LightCamera LightModel = "camera"
	LightGlobal LightModel = "global"
	LightObject LightModel = "object"
)

// Light is a resolved light handed to the renderer.
type Light struct {
	ID     string
	Vector [4]float64
	Color  [3]float64
	Model  LightModel
}

// Reconfiguration describes a renderer reconfiguration.
type Reconfiguration struct {
	LightSetup string
	Lights     []Light
}

// Constraint restricts where a random point may be drawn.
type Constraint struct {
	// Near, when set, centers a disk of Radius around the point.
	Near     *geom.Vec3
	Radius   float64
	MaxTries int
}

// Pathfinder exposes the navmesh.
type Pathfinder interface {
	// SamplePoint draws a random navigable point. Implementations return a
	// NaN point or an error when MaxTries attempts fail.
	SamplePoint(rng *rand.Rand, c Constraint) (geom.Vec3, error)
	// IsNavigable reports whether p lies on the walkable surface.
	IsNavigable(p geom.Vec3) bool
	// DistanceToObstacle returns the distance from p to the closest
	// obstacle, capped at maxSearch.
	DistanceToObstacle(p geom.Vec3, maxSearch float64) float64
}

// Follower plans toward a goal and proposes planner-rate actions.
type Follower interface {
	// FindPath computes a path to goal. ErrNoPath means none exists.
	FindPath(ctx context.Context, goal geom.Vec3) ([]geom.Vec3, error)
	// NextAction returns the next action toward goal from the agent's
	// current state.
	NextAction(ctx context.Context, goal geom.Vec3) (actions.Action, error)
}

// Simulator is a handle to a running simulator. Reconfigure returns a new
// handle; the old one must not be used afterwards.
type Simulator interface {
	Pathfinder() Pathfinder
	NewFollower(agent int, goalRadius float64) (Follower, error)
	Step(ctx context.Context, agent int, a actions.Action) (Observation, error)

	NumAgents() int
	AgentState(agent int) (AgentState, error)
	SetAgentState(agent int, st AgentState) error

	Reconfigure(ctx context.Context, rc Reconfiguration) (Simulator, error)
	Close() error
}

// ErrNoPath is returned by Follower.FindPath when the goal is unreachable.
var ErrNoPath = errors.New("no path to goal")

// PlanningError wraps a failure of the follower while choosing an action.
type PlanningError struct {
	Goal geom.Vec3
	Err  error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning toward (%.3f, %.3f, %.3f): %v", e.Goal.X, e.Goal.Y, e.Goal.Z, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// Package sampler draws navigation goals from the walkable surface.
//
// A candidate is accepted only if it has no NaN component, lies on the
// navmesh and keeps at least twice the agent radius of clearance from the
// nearest obstacle. Rejected candidates are redrawn without limit; the
// pathfinder's own per-draw retry cap keeps each draw bounded.
package sampler

import (
	"context"
	"math/rand"

	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// Options configures a Sampler.
type Options struct {
	Seed                int64
	AgentRadius         float64
	MoveActuationAmount float64
	// MaxTries is the pathfinder retry cap per draw. Zero means
	// constants.PathfinderMaxTries.
	MaxTries int
}

// Sampler produces navigable points from a seeded random stream. The same
// seed and call sequence yields the same points.
type Sampler struct {
	pf        sim.Pathfinder
	rng       *rand.Rand
	clearance float64
	radius    float64
	maxTries  int
	rejected  int
}

// New returns a Sampler over pf.
func New(pf sim.Pathfinder, opts Options) *Sampler {
	maxTries := opts.MaxTries
	if maxTries <= 0 {
		maxTries = constants.PathfinderMaxTries
	}
	return &Sampler{
		pf:        pf,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		clearance: constants.ObstacleClearanceFactor * opts.AgentRadius,
		radius:    constants.ProximityRadiusFactor * opts.MoveActuationAmount,
		maxTries:  maxTries,
	}
}

// Sample draws a point uniformly from the walkable surface.
func (s *Sampler) Sample(ctx context.Context) (geom.Vec3, error) {
	return s.draw(ctx, sim.Constraint{MaxTries: s.maxTries})
}

// SampleNear draws a point within the proximity disk around prev.
func (s *Sampler) SampleNear(ctx context.Context, prev geom.Vec3) (geom.Vec3, error) {
	center := prev
	return s.draw(ctx, sim.Constraint{Near: &center, Radius: s.radius, MaxTries: s.maxTries})
}

// ProximityRadius is the radius used by SampleNear.
func (s *Sampler) ProximityRadius() float64 { return s.radius }

// Rejections counts candidates discarded so far, including pathfinder
// failures.
func (s *Sampler) Rejections() int { return s.rejected }

func (s *Sampler) draw(ctx context.Context, c sim.Constraint) (geom.Vec3, error) {
	for {
		if err := ctx.Err(); err != nil {
			return geom.NaN3(), err
		}

		p, err := s.pf.SamplePoint(s.rng, c)
		if err != nil || !s.Accept(p) {
			s.rejected++
			continue
		}
		return p, nil
	}
}

// Accept reports whether p satisfies every constraint of a navigable point.
func (s *Sampler) Accept(p geom.Vec3) bool {
	if p.HasNaN() {
		return false
	}
	if !s.pf.IsNavigable(p) {
		return false
	}
	return s.pf.DistanceToObstacle(p, s.clearance) >= s.clearance
}

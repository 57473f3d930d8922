package lighting

import (
	"context"
	"fmt"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// Setup is the light set active for one life index.
type Setup struct {
	Name      string
	LifeIndex int
	Lights    []sim.Light
}

// IDs lists the active light IDs in declaration order.
func (s Setup) IDs() []string {
	var ids []string
	for _, l := range s.Lights {
		ids = append(ids, l.ID)
	}
	return ids
}

// SetupName returns the renderer name of the setup for lifeIndex.
func SetupName(lifeIndex int) string {
	return fmt.Sprintf("%s%d", constants.LightSetupPrefix, lifeIndex)
}

// Coefficient returns the color scale factor for an intensity. The mapping
// is asymmetric: negative intensities attenuate, others boost.
func Coefficient(intensity float64) float64 {
	if intensity < 0 {
		return constants.AttenuationCoefficient
	}
	return constants.BoostCoefficient
}

func lightModel(tag string) (sim.LightModel, error) {
	switch m := sim.LightModel(tag); m {
	case sim.LightCamera, sim.LightGlobal, sim.LightObject:
		return m, nil
	}
	return "", fmt.Errorf("unknown lighting model %q (valid: camera, global, object)", tag)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Resolve returns the lights of p active at lifeIndex. For every entry the
// first interval containing the index wins; when several entries share an
// ID only the first active one is kept.
func Resolve(p *Profile, lifeIndex int) (Setup, error) {
	if lifeIndex < 0 {
		return Setup{}, fmt.Errorf("life index must be non-negative, got %d", lifeIndex)
	}

	setup := Setup{Name: SetupName(lifeIndex), LifeIndex: lifeIndex}
	seen := make(map[string]bool)

	for i, e := range p.Lights {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("light_%d", i)
		}
		if seen[id] || !active(e, lifeIndex) {
			continue
		}

		l, err := resolveEntry(id, e)
		if err != nil {
			return Setup{}, config.Errorf(fmt.Sprintf("lights[%d]", i), "%v", err)
		}
		seen[id] = true
		setup.Lights = append(setup.Lights, l)
	}

	return setup, nil
}

func active(e Entry, lifeIndex int) bool {
	if len(e.Intervals) == 0 {
		return true
	}
	for _, iv := range e.Intervals {
		if iv.Contains(lifeIndex) {
			return true
		}
	}
	return false
}

func resolveEntry(id string, e Entry) (sim.Light, error) {
	model, err := lightModel(e.Model)
	if err != nil {
		return sim.Light{}, err
	}

	l := sim.Light{ID: id, Model: model}

	switch len(e.Vector) {
	case 3:
		copy(l.Vector[:], e.Vector)
		l.Vector[3] = 1.0
	case 4:
		copy(l.Vector[:], e.Vector)
	default:
		return sim.Light{}, fmt.Errorf("vector needs 3 or 4 components, got %d", len(e.Vector))
	}

	if len(e.Color) != 3 {
		return sim.Light{}, fmt.Errorf("color needs 3 components, got %d", len(e.Color))
	}
	copy(l.Color[:], e.Color)

	if e.Intensity != nil {
		scale := *e.Intensity * Coefficient(*e.Intensity)
		for c := range l.Color {
			l.Color[c] = clamp01(l.Color[c]) * scale
		}
	}

	return l, nil
}

// Resolver applies light setups to a simulator for the lifetime of a
// scenario.
type Resolver struct {
	Profile *Profile
	// Enabled mirrors the override_lights setting. When false Apply hands
	// the simulator back untouched.
	Enabled bool
}

// Apply resolves the setup for lifeIndex and reconfigures s with it. Agent
// poses are snapshotted before reconfiguration and restored on the new
// handle, which the caller must use from then on.
func (r *Resolver) Apply(ctx context.Context, s sim.Simulator, lifeIndex int) (sim.Simulator, Setup, error) {
	if !r.Enabled || r.Profile == nil {
		return s, Setup{LifeIndex: lifeIndex}, nil
	}

	setup, err := Resolve(r.Profile, lifeIndex)
	if err != nil {
		return s, Setup{}, err
	}

	states := make([]sim.AgentState, s.NumAgents())
	for i := range states {
		st, err := s.AgentState(i)
		if err != nil {
			return s, Setup{}, fmt.Errorf("snapshotting agent %d: %w", i, err)
		}
		states[i] = st
	}

	next, err := s.Reconfigure(ctx, sim.Reconfiguration{LightSetup: setup.Name, Lights: setup.Lights})
	if err != nil {
		return s, Setup{}, fmt.Errorf("reconfiguring lights %s: %w", setup.Name, err)
	}

	for i, st := range states {
		if err := next.SetAgentState(i, st); err != nil {
			return next, Setup{}, fmt.Errorf("restoring agent %d: %w", i, err)
		}
	}

	return next, setup, nil
}

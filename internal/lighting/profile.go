// Package lighting resolves a light profile into the concrete light setup
// active at a point of the scenario's lifecycle, and applies it to a
// simulator.
package lighting

import (
	"fmt"
	"os"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"gopkg.in/yaml.v3"
)

// Interval is a half-open life interval [Start, End). A nil bound is open.
type Interval struct {
	Start *int
	End   *int
}

// Span builds an interval from optional bounds.
func Span(start, end *int) Interval { return Interval{Start: start, End: end} }

// Bound is a helper for building intervals in code and tests.
func Bound(i int) *int { return &i }

// Contains reports whether index falls inside the interval.
func (iv Interval) Contains(index int) bool {
	return (iv.Start == nil || *iv.Start <= index) && (iv.End == nil || index < *iv.End)
}

func (iv Interval) String() string {
	s, e := "-inf", "+inf"
	if iv.Start != nil {
		s = fmt.Sprint(*iv.Start)
	}
	if iv.End != nil {
		e = fmt.Sprint(*iv.End)
	}
	return "[" + s + ", " + e + ")"
}

// UnmarshalYAML accepts either a two element sequence, where null marks an
// open bound, or a mapping with start and end keys.
func (iv *Interval) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var bounds []*int
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return fmt.Errorf("line %d: life interval needs 2 bounds, got %d", node.Line, len(bounds))
		}
		iv.Start, iv.End = bounds[0], bounds[1]
		return nil
	case yaml.MappingNode:
		var m struct {
			Start *int `yaml:"start"`
			End   *int `yaml:"end"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		iv.Start, iv.End = m.Start, m.End
		return nil
	default:
		return fmt.Errorf("line %d: life interval must be a sequence or mapping", node.Line)
	}
}

// MarshalYAML writes the sequence form.
func (iv Interval) MarshalYAML() (any, error) {
	return []*int{iv.Start, iv.End}, nil
}

// Entry is one light of a profile.
type Entry struct {
	ID     string
	Vector []float64
	Color  []float64
	// Intensity, when set, turns on clamp-then-scale color mapping.
	Intensity *float64
	Model     string
	// Intervals are scanned in order; the first one containing the life
	// index activates the light. No intervals means always active.
	Intervals []Interval
}

type lightInfo struct {
	Vector    []float64 `yaml:"vector"`
	Color     []float64 `yaml:"color"`
	Intensity *float64  `yaml:"intensity,omitempty"`
	Model     string    `yaml:"model"`
}

type entryDoc struct {
	ID            string     `yaml:"id,omitempty"`
	Info          *lightInfo `yaml:"info,omitempty"`
	lightInfo     `yaml:",inline"`
	LifeInterval  *Interval  `yaml:"life_interval,omitempty"`
	LifeIntervals []Interval `yaml:"life_intervals,omitempty"`
}

// UnmarshalYAML accepts both the flat layout and the layout that nests
// vector, color and model under an "info" key.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	var doc entryDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	info := doc.lightInfo
	if doc.Info != nil {
		info = *doc.Info
	}

	e.ID = doc.ID
	e.Vector = info.Vector
	e.Color = info.Color
	e.Intensity = info.Intensity
	e.Model = info.Model
	e.Intervals = nil
	if doc.LifeInterval != nil {
		e.Intervals = append(e.Intervals, *doc.LifeInterval)
	}
	e.Intervals = append(e.Intervals, doc.LifeIntervals...)
	return nil
}

// MarshalYAML writes the flat layout.
func (e Entry) MarshalYAML() (any, error) {
	return entryDoc{
		ID: e.ID,
		lightInfo: lightInfo{
			Vector:    e.Vector,
			Color:     e.Color,
			Intensity: e.Intensity,
			Model:     e.Model,
		},
		LifeIntervals: e.Intervals,
	}, nil
}

// Profile is an ordered list of lights.
type Profile struct {
	Lights []Entry `json:"lights" yaml:"lights"`
}

// DefaultProfile is a red camera light for the first goal followed by a
// green one for every later goal.
func DefaultProfile() *Profile {
	return &Profile{
		Lights: []Entry{
			{
				ID:        "red",
				Vector:    []float64{0, 0, 0, 1},
				Color:     []float64{10, 0, 0},
				Model:     "camera",
				Intervals: []Interval{Span(nil, Bound(1))},
			},
			{
				ID:        "green",
				Vector:    []float64{0, 0, 0, 1},
				Color:     []float64{0, 10, 0},
				Model:     "camera",
				Intervals: []Interval{Span(Bound(1), nil)},
			},
		},
	}
}

// LoadProfile reads a YAML or JSON light profile and validates it.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading light profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, config.Errorf("lights", "parsing %s: %v", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every entry once so that a bad profile fails before the
// first goal. Empty or inverted life intervals are accepted and never match.
func (p *Profile) Validate() error {
	for i, e := range p.Lights {
		field := fmt.Sprintf("lights[%d]", i)
		if _, err := lightModel(e.Model); err != nil {
			return config.Errorf(field+".model", "%v", err)
		}
		if n := len(e.Vector); n != 3 && n != 4 {
			return config.Errorf(field+".vector", "needs 3 or 4 components, got %d", n)
		}
		if len(e.Color) != 3 {
			return config.Errorf(field+".color", "needs 3 components, got %d", len(e.Color))
		}
	}
	return nil
}

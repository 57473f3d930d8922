package lighting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadProfile_NestedJSON(t *testing.T) {
	path := writeFile(t, "light_settings.json", `{
  "lights": [
    {"info": {"vector": [0.0, 0.0, 0.0, 1.0], "color": [10.0, 0.0, 0.0], "model": "camera"}, "life_interval": [null, 1]},
    {"info": {"vector": [0.0, 0.0, 0.0, 1.0], "color": [0.0, 10.0, 0.0], "model": "camera"}, "life_interval": [1, null]}
  ]
}`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile error = %v", err)
	}
	if len(p.Lights) != 2 {
		t.Fatalf("len(Lights) = %d, want 2", len(p.Lights))
	}
	first := p.Lights[0]
	if first.Model != "camera" || first.Color[0] != 10 {
		t.Errorf("first = %+v", first)
	}
	if len(first.Intervals) != 1 || first.Intervals[0].Start != nil || *first.Intervals[0].End != 1 {
		t.Errorf("first intervals = %v", first.Intervals)
	}
}

func TestLoadProfile_FlatYAML(t *testing.T) {
	path := writeFile(t, "lights.yaml", `
lights:
  - id: lamp
    vector: [1, 2, 3]
    color: [0.5, 0.5, 0.5]
    intensity: 1.5
    model: global
    life_intervals:
      - [0, 2]
      - {start: 5}
`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile error = %v", err)
	}
	e := p.Lights[0]
	if e.ID != "lamp" || e.Intensity == nil || *e.Intensity != 1.5 {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Intervals) != 2 || e.Intervals[1].End != nil || *e.Intervals[1].Start != 5 {
		t.Errorf("intervals = %v", e.Intervals)
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown model", "lights:\n  - {vector: [0,0,0], color: [1,1,1], model: sky}\n"},
		{"short vector", "lights:\n  - {vector: [0,0], color: [1,1,1], model: camera}\n"},
		{"short color", "lights:\n  - {vector: [0,0,0], color: [1,1], model: camera}\n"},
		{"interval arity", "lights:\n  - {vector: [0,0,0], color: [1,1,1], model: camera, life_interval: [1]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.yaml", tt.content)
			_, err := LoadProfile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !config.IsConfigurationError(err) {
				t.Errorf("error %v is not a ConfigurationError", err)
			}
		})
	}
}

func TestLoadProfile_EmptyIntervalsNeverMatch(t *testing.T) {
	path := writeFile(t, "lights.yaml", `
lights:
  - {id: empty, vector: [0,0,0], color: [1,1,1], model: camera, life_interval: [3, 3]}
  - {id: inverted, vector: [0,0,0], color: [1,1,1], model: camera, life_interval: [5, 2]}
  - {id: always, vector: [0,0,0], color: [1,1,1], model: global}
`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile error = %v", err)
	}
	for _, index := range []int{0, 2, 3, 4, 5} {
		setup, err := Resolve(p, index)
		if err != nil {
			t.Fatalf("Resolve(%d) error = %v", index, err)
		}
		if ids := setup.IDs(); len(ids) != 1 || ids[0] != "always" {
			t.Errorf("Resolve(%d) ids = %v, want [always]", index, ids)
		}
	}
}

func TestProfile_MarshalRoundTrip(t *testing.T) {
	p := DefaultProfile()
	data, err := yaml.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var back Profile
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error = %v\n%s", err, data)
	}
	if len(back.Lights) != 2 || back.Lights[1].ID != "green" || *back.Lights[1].Intervals[0].Start != 1 {
		t.Errorf("round trip lost data:\n%s", data)
	}
}

func TestDefaultProfile_Valid(t *testing.T) {
	if err := DefaultProfile().Validate(); err != nil {
		t.Fatalf("DefaultProfile invalid: %v", err)
	}
	setup, err := Resolve(DefaultProfile(), 0)
	if err != nil || len(setup.Lights) != 1 || setup.Lights[0].ID != "red" {
		t.Errorf("Resolve(default, 0) = %+v, %v", setup, err)
	}
}

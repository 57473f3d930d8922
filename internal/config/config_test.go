package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.MoveFreqMultiplier != 5 {
		t.Errorf("MoveFreqMultiplier = %d, want 5", cfg.MoveFreqMultiplier)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if !cfg.Sensors.Color {
		t.Error("color sensor should be enabled by default")
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "settings.yaml")

	content := `
dataset_name: gibson
scene_name: Allensville
data_path: /data
seed: 42
nav_points_number: 3
move_freq_multiplier: 4
turn_freq_multiplier: 3
sensors:
  color: true
  depth: false
  width: 320
  height: 240
  hfov: 90
  sensor_height: 1.5
  zfar: 100
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.MoveFreqMultiplier != 4 {
		t.Errorf("MoveFreqMultiplier = %d, want 4", cfg.MoveFreqMultiplier)
	}
	if cfg.TurnFreqMultiplier != 3 {
		t.Errorf("TurnFreqMultiplier = %d, want 3", cfg.TurnFreqMultiplier)
	}
	// Unset keys keep their defaults.
	if cfg.GoalRadius != 0.2 {
		t.Errorf("GoalRadius = %v, want default 0.2", cfg.GoalRadius)
	}
	if cfg.Sensors.Depth {
		t.Error("depth sensor should be disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "settings.json")

	content := `{"dataset_name": "replica_cad", "scene_name": "apt_0", "agent_radius": 0.2, "depth_scale": 5000, "move_freq_multiplier": 5, "turn_freq_multiplier": 2}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.AgentRadius != 0.2 || cfg.DepthScale != 5000 {
		t.Errorf("AgentRadius=%v DepthScale=%v", cfg.AgentRadius, cfg.DepthScale)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("seed: [not, a, number"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected error for malformed file")
	}
	if !IsConfigurationError(err) {
		t.Errorf("error %v is not a ConfigurationError", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFile_MissingMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"move missing", "dataset_name: grid\nscene_name: room\nturn_freq_multiplier: 3\n", "move_freq_multiplier"},
		{"turn missing", "dataset_name: grid\nscene_name: room\nmove_freq_multiplier: 3\n", "turn_freq_multiplier"},
		{"both missing", `{"dataset_name": "grid", "scene_name": "room"}`, "move_freq_multiplier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			cfg, err := LoadFromFile(path)
			if err == nil {
				t.Fatalf("LoadFromFile() = %+v, want error", cfg)
			}
			if !IsConfigurationError(err) {
				t.Fatalf("error %v is not a ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.field) || !strings.Contains(err.Error(), "is required") {
				t.Errorf("error = %v, want %s is required", err, tt.field)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	t.Setenv("DATAGEN_SEED", "7")
	t.Setenv("DATAGEN_NAV_POINTS", "12")
	t.Setenv("DATAGEN_OUTPUT_DIR", filepath.Join(tmpDir, "out"))
	t.Setenv("DATAGEN_OVERRIDE_LIGHTS", "false")
	t.Setenv("DATAGEN_LOG_LEVEL", "trace")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	if cfg.NavPointsNumber != 12 {
		t.Errorf("NavPointsNumber = %d, want 12", cfg.NavPointsNumber)
	}
	if cfg.OutputDir != filepath.Join(tmpDir, "out") {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.OverrideLights {
		t.Error("OverrideLights should be false")
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	if err := os.WriteFile(DefaultConfigFile, []byte("seed: 99\nmove_freq_multiplier: 5\nturn_freq_multiplier: 2\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Seed)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ScenarioConfig)
		field   string
		wantErr bool
	}{
		{"valid default", func(c *ScenarioConfig) {}, "", false},
		{"zero move multiplier", func(c *ScenarioConfig) { c.MoveFreqMultiplier = 0 }, "move_freq_multiplier", true},
		{"negative turn multiplier", func(c *ScenarioConfig) { c.TurnFreqMultiplier = -1 }, "turn_freq_multiplier", true},
		{"zero agent radius", func(c *ScenarioConfig) { c.AgentRadius = 0 }, "agent_radius", true},
		{"negative points", func(c *ScenarioConfig) { c.NavPointsNumber = -1 }, "nav_points_number", true},
		{"zero depth scale", func(c *ScenarioConfig) { c.DepthScale = 0 }, "depth_scale", true},
		{"unknown dataset", func(c *ScenarioConfig) { c.DatasetName = "matterport" }, "dataset_name", true},
		{"unknown backend", func(c *ScenarioConfig) { c.Simulator.Backend = "bullet" }, "simulator.backend", true},
		{"bad hfov", func(c *ScenarioConfig) { c.Sensors.HFOV = 180 }, "sensors.hfov", true},
		{"bad resolution", func(c *ScenarioConfig) { c.Sensors.Width = 0 }, "sensors", true},
		{"bad level", func(c *ScenarioConfig) { c.Logging.Level = "verbose" }, "logging.level", true},
		{"empty level", func(c *ScenarioConfig) { c.Logging.Level = "" }, "", false},
		{"missing output", func(c *ScenarioConfig) { c.OutputDir = "" }, "output_dir", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !IsConfigurationError(err) {
				t.Fatalf("error %v is not a ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err, tt.field)
			}
		})
	}
}

func TestResolveScene(t *testing.T) {
	tests := []struct {
		dataset    string
		scene      string
		wantScene  string
		wantConfig string
	}{
		{"gibson", "Allensville", "data/scene_datasets/gibson/Allensville.glb", "data/pointnav/gibson/v1/train/content/Allensville.json"},
		{"replica_cad", "apt_1", "apt_1", "data/ReplicaCAD_dataset/replicaCAD.scene_dataset_config.json"},
		{"hm3d_minival", "00800-TEEsavR23oF", "data/hm3d_v0.2/minival/00800-TEEsavR23oF/TEEsavR23oF.basis.glb", "data/hm3d_v0.2/hm3d_annotated_minival_basis.scene_dataset_config.json"},
		{"grid", "procedural", "procedural", ""},
	}

	for _, tt := range tests {
		t.Run(tt.dataset, func(t *testing.T) {
			cfg := Default()
			cfg.DataPath = "data"
			cfg.DatasetName = tt.dataset
			cfg.SceneName = tt.scene

			ref, err := cfg.ResolveScene()
			if err != nil {
				t.Fatalf("ResolveScene() error = %v", err)
			}
			if ref.Scene != filepath.FromSlash(tt.wantScene) {
				t.Errorf("Scene = %q, want %q", ref.Scene, tt.wantScene)
			}
			if ref.DatasetConfig != filepath.FromSlash(tt.wantConfig) {
				t.Errorf("DatasetConfig = %q, want %q", ref.DatasetConfig, tt.wantConfig)
			}
		})
	}
}

func TestResolveScene_GridMap(t *testing.T) {
	cfg := Default()
	cfg.Simulator.GridMap = "maps/office.txt"
	ref, err := cfg.ResolveScene()
	if err != nil {
		t.Fatalf("ResolveScene() error = %v", err)
	}
	if ref.Scene != "maps/office.txt" {
		t.Errorf("Scene = %q", ref.Scene)
	}
}

func TestRunDir(t *testing.T) {
	cfg := Default()
	cfg.OutputDir = "out"
	cfg.DatasetName = "gibson"
	cfg.SceneName = "Allensville"
	if got, want := cfg.RunDir(), filepath.Join("out", "gibson", "Allensville"); got != want {
		t.Errorf("RunDir() = %q, want %q", got, want)
	}
}

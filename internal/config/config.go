// Package config provides scenario configuration loading for the generator.
// It supports loading from YAML (or JSON) files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "datagen.yaml"

// ScenarioConfig contains every run parameter. It is validated once by
// Validate and treated as read-only afterwards.
type ScenarioConfig struct {
	// DatasetName selects how SceneName is resolved to a scene file:
	// "gibson", "replica_cad", "hm3d_minival", "hm3d_v0.2_minival" or "grid".
	DatasetName string `json:"dataset_name" yaml:"dataset_name"`
	SceneName   string `json:"scene_name" yaml:"scene_name"`

	// DataPath is the root of the scene datasets.
	DataPath string `json:"data_path" yaml:"data_path"`

	// OutputDir receives <dataset>/<scene>/ run directories and the catalog.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Overwrite allows an existing run directory to be replaced.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	Seed         int64 `json:"seed" yaml:"seed"`
	DefaultAgent int   `json:"default_agent" yaml:"default_agent"`

	AgentRadius float64 `json:"agent_radius" yaml:"agent_radius"`
	// GoalRadius is the distance at which the follower considers a goal reached.
	GoalRadius      float64 `json:"goal_radius" yaml:"goal_radius"`
	NavPointsNumber int     `json:"nav_points_number" yaml:"nav_points_number"`

	MoveActuationAmount float64 `json:"move_actuation_amount" yaml:"move_actuation_amount"`
	TurnActuationAmount float64 `json:"turn_actuation_amount" yaml:"turn_actuation_amount"`
	MoveFreqMultiplier  int     `json:"move_freq_multiplier" yaml:"move_freq_multiplier"`
	TurnFreqMultiplier  int     `json:"turn_freq_multiplier" yaml:"turn_freq_multiplier"`

	// ActionExpansion replays planner actions at agent rate.
	ActionExpansion bool `json:"action_expansion" yaml:"action_expansion"`

	// ProximitySampling draws each goal near the previous one.
	ProximitySampling bool `json:"proximity_sampling" yaml:"proximity_sampling"`

	// DepthScale multiplies depth in meters before 16-bit encoding.
	DepthScale float64 `json:"depth_scale" yaml:"depth_scale"`

	// OverrideLights enables per-goal light setups from the light profile.
	OverrideLights bool `json:"override_lights" yaml:"override_lights"`

	Sensors   SensorConfig    `json:"sensors" yaml:"sensors"`
	Simulator SimulatorConfig `json:"simulator" yaml:"simulator"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// SensorConfig enables sensors and sets their shared camera parameters.
type SensorConfig struct {
	Color    bool `json:"color" yaml:"color"`
	Depth    bool `json:"depth" yaml:"depth"`
	Semantic bool `json:"semantic" yaml:"semantic"`

	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	// HFOV is the horizontal field of view in degrees.
	HFOV float64 `json:"hfov" yaml:"hfov"`
	// SensorHeight is the camera offset above the agent root.
	SensorHeight float64 `json:"sensor_height" yaml:"sensor_height"`
	ZFar         float64 `json:"zfar" yaml:"zfar"`
}

// SimulatorConfig selects the simulator backend.
type SimulatorConfig struct {
	// Backend names the simulator implementation. Only "grid" ships with
	// this binary.
	Backend string `json:"backend" yaml:"backend"`

	// GridMap is an ASCII map for the grid backend. Empty means a
	// procedurally generated floor plan.
	GridMap string `json:"grid_map,omitempty" yaml:"grid_map,omitempty"`

	// MaxStepsPerGoal bounds the movement actions spent on one goal. Past
	// it the goal is skipped with a planning error.
	MaxStepsPerGoal int `json:"max_steps_per_goal" yaml:"max_steps_per_goal"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the JSONL event log in the run directory.
	Level string `json:"level" yaml:"level"`
}

// Default returns a ScenarioConfig with sensible defaults.
func Default() *ScenarioConfig {
	return &ScenarioConfig{
		DatasetName: "grid",
		SceneName:   "procedural",
		DataPath:    "data",
		OutputDir:   "generated",

		Seed:            constants.DefaultSeed,
		AgentRadius:     constants.DefaultAgentRadius,
		GoalRadius:      constants.DefaultGoalRadius,
		NavPointsNumber: constants.DefaultNavPointsNumber,

		MoveActuationAmount: constants.DefaultMoveActuationAmount,
		TurnActuationAmount: constants.DefaultTurnActuationAmount,
		MoveFreqMultiplier:  constants.DefaultMoveFreqMultiplier,
		TurnFreqMultiplier:  constants.DefaultTurnFreqMultiplier,
		ActionExpansion:     true,
		ProximitySampling:   true,

		DepthScale:     constants.DefaultDepthScale,
		OverrideLights: true,

		Sensors: SensorConfig{
			Color:        true,
			Depth:        true,
			Semantic:     true,
			Width:        constants.DefaultWidth,
			Height:       constants.DefaultHeight,
			HFOV:         constants.DefaultHFOV,
			SensorHeight: constants.DefaultSensorHeight,
			ZFar:         constants.DefaultZFar,
		},
		Simulator: SimulatorConfig{
			Backend:         "grid",
			MaxStepsPerGoal: constants.DefaultMaxStepsPerGoal,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path, or from DefaultConfigFile in the
// working directory when path is empty and the file exists.
// Order: defaults -> file -> environment variables.
func Load(path string) (*ScenarioConfig, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML or JSON file on top
// of the defaults. Both frequency multipliers must be set in the file.
func LoadFromFile(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &ConfigurationError{Field: filepath.Base(path), Reason: err.Error()}
	}
	if err := requireMultipliers(data); err != nil {
		return nil, err
	}

	config.DataPath = expandEnvVars(config.DataPath)
	config.OutputDir = expandEnvVars(config.OutputDir)
	config.Simulator.GridMap = expandEnvVars(config.Simulator.GridMap)

	return config, nil
}

// requireMultipliers rejects a settings file that leaves out either
// frequency multiplier. They have no file-level default.
func requireMultipliers(data []byte) error {
	var keys struct {
		Move *int `yaml:"move_freq_multiplier"`
		Turn *int `yaml:"turn_freq_multiplier"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return &ConfigurationError{Field: "settings", Reason: err.Error()}
	}
	if keys.Move == nil {
		return Errorf("move_freq_multiplier", "is required")
	}
	if keys.Turn == nil {
		return Errorf("turn_freq_multiplier", "is required")
	}
	return nil
}

// ConfigurationError reports an invalid or unknown setting. It is fatal and
// always raised before the first simulator step.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Errorf builds a ConfigurationError for field.
func Errorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Validate checks that the configuration is valid.
func (c *ScenarioConfig) Validate() error {
	if c.AgentRadius <= 0 {
		return Errorf("agent_radius", "must be positive, got %v", c.AgentRadius)
	}
	if c.GoalRadius <= 0 {
		return Errorf("goal_radius", "must be positive, got %v", c.GoalRadius)
	}
	if c.NavPointsNumber < 0 {
		return Errorf("nav_points_number", "must be non-negative, got %d", c.NavPointsNumber)
	}
	if c.DefaultAgent < 0 {
		return Errorf("default_agent", "must be non-negative, got %d", c.DefaultAgent)
	}
	if c.MoveActuationAmount <= 0 {
		return Errorf("move_actuation_amount", "must be positive, got %v", c.MoveActuationAmount)
	}
	if c.TurnActuationAmount <= 0 {
		return Errorf("turn_actuation_amount", "must be positive, got %v", c.TurnActuationAmount)
	}
	if c.MoveFreqMultiplier < 1 {
		return Errorf("move_freq_multiplier", "required and must be >= 1, got %d", c.MoveFreqMultiplier)
	}
	if c.TurnFreqMultiplier < 1 {
		return Errorf("turn_freq_multiplier", "required and must be >= 1, got %d", c.TurnFreqMultiplier)
	}
	if c.DepthScale <= 0 {
		return Errorf("depth_scale", "must be positive, got %v", c.DepthScale)
	}
	if c.OutputDir == "" {
		return Errorf("output_dir", "is required")
	}
	if c.SceneName == "" {
		return Errorf("scene_name", "is required")
	}
	if _, err := c.ResolveScene(); err != nil {
		return err
	}

	if c.Sensors.Width <= 0 || c.Sensors.Height <= 0 {
		return Errorf("sensors", "resolution must be positive, got %dx%d", c.Sensors.Width, c.Sensors.Height)
	}
	if c.Sensors.HFOV <= 0 || c.Sensors.HFOV >= 180 {
		return Errorf("sensors.hfov", "must be in (0, 180), got %v", c.Sensors.HFOV)
	}
	if c.Sensors.ZFar <= 0 {
		return Errorf("sensors.zfar", "must be positive, got %v", c.Sensors.ZFar)
	}

	validBackends := map[string]bool{"grid": true}
	if !validBackends[c.Simulator.Backend] {
		return Errorf("simulator.backend", "unknown backend %q (valid: grid)", c.Simulator.Backend)
	}
	if c.Simulator.MaxStepsPerGoal <= 0 {
		return Errorf("simulator.max_steps_per_goal", "must be positive, got %d", c.Simulator.MaxStepsPerGoal)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return Errorf("logging.level", "invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// RunDir returns the directory that holds one run's output.
func (c *ScenarioConfig) RunDir() string {
	return filepath.Join(c.OutputDir, c.DatasetName, c.SceneName)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *ScenarioConfig) {
	if v := os.Getenv("DATAGEN_DATA_PATH"); v != "" {
		config.DataPath = v
	}

	if v := os.Getenv("DATAGEN_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}

	if v := os.Getenv("DATAGEN_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Seed = n
		}
	}

	if v := os.Getenv("DATAGEN_NAV_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.NavPointsNumber = n
		}
	}

	if v := os.Getenv("DATAGEN_OVERRIDE_LIGHTS"); v != "" {
		config.OverrideLights = v == "true" || v == "1"
	}

	if v := os.Getenv("DATAGEN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

package gridsim

import (
	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// OptionsFromConfig maps scenario settings onto simulator options.
func OptionsFromConfig(cfg *config.ScenarioConfig) Options {
	return Options{
		Agents:         cfg.DefaultAgent + 1,
		AgentRadius:    cfg.AgentRadius,
		MoveAmount:     cfg.MoveActuationAmount,
		TurnAmount:     cfg.TurnActuationAmount,
		MoveMultiplier: cfg.MoveFreqMultiplier,
		TurnMultiplier: cfg.TurnFreqMultiplier,
		Sensors: map[sim.SensorKind]bool{
			sim.SensorColor:    cfg.Sensors.Color,
			sim.SensorDepth:    cfg.Sensors.Depth,
			sim.SensorSemantic: cfg.Sensors.Semantic,
		},
		Camera: Camera{
			Width:  cfg.Sensors.Width,
			Height: cfg.Sensors.Height,
			HFOV:   cfg.Sensors.HFOV,
			ZFar:   cfg.Sensors.ZFar,
		},
		SensorHeight:    cfg.Sensors.SensorHeight,
		WallHeight:      constants.GridWallHeight,
		MaxStepsPerGoal: cfg.Simulator.MaxStepsPerGoal,
	}
}

// WorldFromConfig loads the configured grid map, or generates a floor plan
// from the scenario seed when none is set. Mesh datasets cannot be loaded
// by this backend.
func WorldFromConfig(cfg *config.ScenarioConfig) (*World, error) {
	if cfg.DatasetName != "grid" {
		return nil, config.Errorf("simulator.backend",
			"grid backend cannot load %s scene %q; use dataset_name: grid", cfg.DatasetName, cfg.SceneName)
	}
	if cfg.Simulator.GridMap != "" {
		w, err := LoadWorld(cfg.Simulator.GridMap, constants.GridCellSize)
		if err != nil {
			return nil, config.Errorf("simulator.grid_map", "%v", err)
		}
		return w, nil
	}
	return Procedural(cfg.Seed, constants.GridProceduralCols, constants.GridProceduralRows, constants.GridCellSize), nil
}

// FromConfig builds a simulator for a validated scenario.
func FromConfig(cfg *config.ScenarioConfig) (*Sim, error) {
	w, err := WorldFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(w, OptionsFromConfig(cfg))
}

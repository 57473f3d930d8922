package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"github.com/be2rlab/OpenSemanticMapping/internal/lighting"
	"github.com/be2rlab/OpenSemanticMapping/internal/logging"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim/gridsim"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datagen",
		Short: "Navigation dataset generator",
		Long: `datagen drives a simulated agent through sampled navigation goals and
records color, depth and semantic frames, camera poses and a step log for
every simulator step.

Each goal is visited under its own light setup taken from a light profile.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Scenario config file (default ./"+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().String("lights", "", "Light profile file (default: built-in profile)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides logging.level)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newSampleCmd(),
		newLightsCmd(),
		newConfigCmd(),
		newRunsCmd(),
	)

	return rootCmd
}

// loadConfig loads the scenario named by --config, applies command line
// overrides and validates the result.
func loadConfig(cmd *cobra.Command) (*config.ScenarioConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if f := cmd.Flags().Lookup("goals"); f != nil && f.Changed {
		cfg.NavPointsNumber, _ = cmd.Flags().GetInt("goals")
	}
	if f := cmd.Flags().Lookup("overwrite"); f != nil && f.Changed {
		cfg.Overwrite, _ = cmd.Flags().GetBool("overwrite")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProfile loads the light profile named by --lights, or the built-in one.
func loadProfile(cmd *cobra.Command) (*lighting.Profile, error) {
	path, _ := cmd.Flags().GetString("lights")
	if path == "" {
		return lighting.DefaultProfile(), nil
	}
	return lighting.LoadProfile(path)
}

func newLogger(cmd *cobra.Command, cfg *config.ScenarioConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// openSimulator builds the configured simulator backend.
func openSimulator(cfg *config.ScenarioConfig) (sim.Simulator, error) {
	switch cfg.Simulator.Backend {
	case "grid":
		s, err := gridsim.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, config.Errorf("simulator.backend", "unknown backend %q", cfg.Simulator.Backend)
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

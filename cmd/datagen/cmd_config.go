package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect scenario configuration",
		Long: `View the effective scenario configuration after defaults, the config
file and DATAGEN_* environment overrides are applied.

Examples:
  datagen config show                          # Print the effective config
  datagen config get sensors.width             # Get a specific setting
  datagen config init                          # Write ./datagen.yaml with defaults`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			scene, err := cfg.ResolveScene()
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"config":  cfg,
					"scene":   scene,
					"run_dir": cfg.RunDir(),
				})
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, string(data))
			fmt.Fprintf(out, "# scene: %s\n", scene.Scene)
			if scene.DatasetConfig != "" {
				fmt.Fprintf(out, "# dataset config: %s\n", scene.DatasetConfig)
			}
			fmt.Fprintf(out, "# run dir: %s\n", cfg.RunDir())
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found, err := getConfigValue(cfg, key)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

// getConfigValue looks up a dot-notation key using the YAML field names.
func getConfigValue(cfg *config.ScenarioConfig, key string) (any, bool, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, false, fmt.Errorf("failed to read config: %w", err)
	}

	var cur any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if cur, ok = m[part]; !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

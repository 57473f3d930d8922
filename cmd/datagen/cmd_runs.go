package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs indexed in <output_dir>/catalog.db, newest first.

Examples:
  datagen runs
  datagen runs --limit 5 --json
  datagen runs show <run-id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			catalog, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			if catalog == nil {
				if jsonOut {
					return writeJSON(cmd, []store.Run{})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			defer catalog.Close()

			runs, err := catalog.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %-11s %6d steps  %s/%s  seed=%d  started %s\n",
					r.ID, r.Status, r.Steps, r.Dataset, r.Scene, r.Seed, r.StartedAt.Format(time.DateTime))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	cmd.AddCommand(newRunsShowCmd())

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the goals of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			runID := args[0]

			catalog, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			if catalog == nil {
				return fmt.Errorf("run not found: %s", runID)
			}
			defer catalog.Close()

			goals, err := catalog.Goals(cmd.Context(), runID)
			if err != nil {
				return err
			}
			steps, err := catalog.StepCount(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(goals) == 0 && steps == 0 {
				return fmt.Errorf("run not found or empty: %s", runID)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"run_id": runID,
					"steps":  steps,
					"goals":  goals,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d goals, %d steps\n", runID, len(goals), steps)
			for _, g := range goals {
				fmt.Fprintf(out, "  goal %3d  %-22s steps %6d..%-6d %-16s %s\n",
					g.Index, g.Outcome, g.FirstStep, g.FirstStep+g.Steps, g.LightSetup, g.FinalAction)
			}
			return nil
		},
	}
}

// openCatalog opens the catalog of the configured output directory. It
// returns nil without error when no catalog exists yet.
func openCatalog(cmd *cobra.Command) (*store.Catalog, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.OutputDir, constants.CatalogFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return store.Open(cmd.Context(), path)
}

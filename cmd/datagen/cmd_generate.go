package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/constants"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/navigation"
	"github.com/be2rlab/OpenSemanticMapping/internal/pathutil"
	"github.com/be2rlab/OpenSemanticMapping/internal/ratelimit"
	"github.com/be2rlab/OpenSemanticMapping/internal/scenario"
	"github.com/be2rlab/OpenSemanticMapping/internal/store"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Sample a scenario and record a dataset run",
		Long: `Sample a start point and navigation goals, then drive the agent to each
goal and record every step under <output_dir>/<dataset>/<scene>/.

SIGINT or SIGTERM stops the run after the goal in progress. The run is
indexed in <output_dir>/catalog.db.

Examples:
  datagen generate --config scenario.yaml
  datagen generate --seed 7 --goals 20 --overwrite
  datagen generate --lights lights.yaml --json`,
		RunE: runGenerate,
	}

	cmd.Flags().Int64("seed", 0, "Override the scenario seed")
	cmd.Flags().Int("goals", 0, "Override nav_points_number")
	cmd.Flags().Bool("overwrite", false, "Replace an existing run directory")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle SIGINT/SIGTERM: finish the current goal, then stop.
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("stopping after the current goal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", pathutil.RedactPath(cfg.OutputDir), err)
	}
	catalog, err := store.Open(ctx, filepath.Join(cfg.OutputDir, constants.CatalogFile))
	if err != nil {
		return err
	}
	defer catalog.Close()

	s, err := openSimulator(cfg)
	if err != nil {
		return err
	}

	var observer navigation.Observer
	progress := &progressPrinter{w: cmd.OutOrStdout(), limits: ratelimit.NewProgress()}
	if !jsonOut {
		observer = progress
	}

	ctrl, err := scenario.New(scenario.Options{
		Config:   cfg,
		Profile:  profile,
		Logger:   logger,
		Observer: observer,
		Catalog:  catalog,
	})
	if err != nil {
		s.Close()
		return err
	}

	plan, err := ctrl.Generate(ctx, s.Pathfinder())
	if err != nil {
		s.Close()
		return err
	}
	progress.total = len(plan.Goals)

	final, sum, err := ctrl.Run(ctx, s, plan)
	if cerr := final.Close(); cerr != nil {
		logger.Warn("failed to close simulator", "error", cerr)
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if jsonOut {
		return writeJSON(cmd, map[string]any{
			"plan":    plan,
			"summary": sum,
		})
	}

	out := cmd.OutOrStdout()
	if sum.Interrupted {
		fmt.Fprintf(out, "Interrupted after %d of %d goals.\n", len(sum.Goals), len(plan.Goals))
	}
	fmt.Fprintf(out, "Recorded %d steps in %s\n", sum.Steps, sum.RunDir)
	fmt.Fprintf(out, "  run id: %s\n", sum.RunID)
	for _, o := range sortedOutcomes(sum.Counts) {
		fmt.Fprintf(out, "  %-24s %d\n", o+":", sum.Counts[navigation.Outcome(o)])
	}
	return nil
}

func sortedOutcomes(counts map[navigation.Outcome]int) []string {
	keys := make([]string, 0, len(counts))
	for o := range counts {
		keys = append(keys, string(o))
	}
	sort.Strings(keys)
	return keys
}

// progressPrinter writes goal progress to the terminal. Step lines are
// throttled.
type progressPrinter struct {
	w      io.Writer
	total  int
	limits ratelimit.Progress
}

func (p *progressPrinter) OnGoalStart(goal int, point geom.Vec3) {
	fmt.Fprintf(p.w, "Goal %d/%d at (%.2f, %.2f, %.2f)\n", goal+1, p.total, point.X, point.Y, point.Z)
}

func (p *progressPrinter) OnStep(goal, step int, a actions.Action) {
	if p.limits.Allow(ratelimit.KindStep) {
		fmt.Fprintf(p.w, "  step %0*d %s\n", constants.StepIndexWidth, step, a)
	}
}

func (p *progressPrinter) OnGoalDone(goal int, res navigation.Result) {
	fmt.Fprintf(p.w, "Goal %d/%d %s after %d steps\n", goal+1, p.total, res.Outcome, res.Steps)
}

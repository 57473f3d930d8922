package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/lighting"
	"github.com/be2rlab/OpenSemanticMapping/internal/navigation"
	"github.com/be2rlab/OpenSemanticMapping/internal/pathutil"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim/gridsim"
	"github.com/be2rlab/OpenSemanticMapping/internal/store"
)

func testConfig(t *testing.T) *config.ScenarioConfig {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Seed = 11
	cfg.NavPointsNumber = 3
	cfg.MoveActuationAmount = 0.25
	cfg.TurnActuationAmount = 15
	cfg.MoveFreqMultiplier = 2
	cfg.TurnFreqMultiplier = 3
	cfg.Sensors.Width = 16
	cfg.Sensors.Height = 12
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(Options{Config: cfg})
	require.NoError(t, err)

	w, err := gridsim.WorldFromConfig(cfg)
	require.NoError(t, err)
	pf := gridsim.NewPathfinder(w)

	a, err := c.Generate(context.Background(), pf)
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), pf)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different plans (-first +second):\n%s", diff)
	}
	require.Len(t, a.Goals, 3)
	for _, p := range append([]geom.Vec3{a.Start}, a.Goals...) {
		require.True(t, pf.IsNavigable(p), "point %+v not navigable", p)
		require.GreaterOrEqual(t, pf.DistanceToObstacle(p, 2*cfg.AgentRadius), 2*cfg.AgentRadius)
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(Options{Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, gridsim.NewPathfinder(gridsim.Procedural(1, 8, 8, 0.5)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.MoveFreqMultiplier = 0
	_, err := New(Options{Config: cfg})
	require.True(t, config.IsConfigurationError(err), "got %v", err)

	cfg = testConfig(t)
	bad := &lighting.Profile{Lights: []lighting.Entry{{ID: "x", Vector: []float64{0, 0, 0}, Color: []float64{1, 1, 1}, Model: "spot"}}}
	_, err = New(Options{Config: cfg, Profile: bad})
	require.True(t, config.IsConfigurationError(err), "got %v", err)
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	catalog, err := store.Open(context.Background(), filepath.Join(cfg.OutputDir, "catalog.db"))
	require.NoError(t, err)
	defer catalog.Close()

	c, err := New(Options{Config: cfg, Catalog: catalog})
	require.NoError(t, err)

	s, err := gridsim.FromConfig(cfg)
	require.NoError(t, err)

	plan, err := c.Generate(context.Background(), s.Pathfinder())
	require.NoError(t, err)

	final, sum, err := c.Run(context.Background(), s, plan)
	require.NoError(t, err)
	defer final.Close()

	require.NotSame(t, s, final, "light overrides should replace the simulator handle")
	require.False(t, sum.Interrupted)
	require.Len(t, sum.Goals, 3)
	require.Greater(t, sum.Steps, 0)

	runDir := cfg.RunDir()
	require.Equal(t, runDir, sum.RunDir)
	require.Len(t, readLines(t, filepath.Join(runDir, "traj.txt")), sum.Steps)

	for _, name := range []string{"sim_settings.yaml", "light_settings.yaml", "intrinsics.txt"} {
		require.FileExists(t, filepath.Join(runDir, name))
	}
	entries, err := os.ReadDir(filepath.Join(runDir, "results"))
	require.NoError(t, err)
	require.Len(t, entries, 3*sum.Steps)

	// Steps of consecutive goals are contiguous.
	next := 0
	for _, g := range sum.Goals {
		require.Equal(t, next, g.FirstStep)
		next += g.Steps
	}
	require.Equal(t, sum.Steps, next)

	log := readLines(t, filepath.Join(runDir, "log.txt"))
	require.Contains(t, log, "[000000] Light setup: lights_setup_0")
	var setups []string
	for _, l := range log {
		if i := strings.Index(l, "Light setup: "); i >= 0 {
			setups = append(setups, l[i+len("Light setup: "):])
		}
	}
	require.Equal(t, []string{"lights_setup_0", "lights_setup_1", "lights_setup_2"}, setups)

	runs, err := catalog.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, sum.RunID, runs[0].ID)
	require.Equal(t, store.StatusCompleted, runs[0].Status)
	require.Equal(t, sum.Steps, runs[0].Steps)

	n, err := catalog.StepCount(context.Background(), sum.RunID)
	require.NoError(t, err)
	require.Equal(t, sum.Steps, n)

	goals, err := catalog.Goals(context.Background(), sum.RunID)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	require.Equal(t, "lights_setup_1", goals[1].LightSetup)
}

func TestRun_GoalFailureIsolation(t *testing.T) {
	cfg := testConfig(t)
	cfg.OverrideLights = false
	cfg.Sensors.Semantic = false

	w, err := gridsim.ParseWorld(strings.NewReader("....#...\n....#...\n....#..."), 0.5)
	require.NoError(t, err)
	s, err := gridsim.New(w, gridsim.OptionsFromConfig(cfg))
	require.NoError(t, err)

	c, err := New(Options{Config: cfg})
	require.NoError(t, err)

	plan := Plan{
		Start: w.Center(1, 1),
		Goals: []geom.Vec3{w.Center(3, 2), w.Center(7, 1), w.Center(1, 3)},
	}
	final, sum, err := c.Run(context.Background(), s, plan)
	require.NoError(t, err)
	require.Same(t, s, final, "disabled overrides keep the handle")

	var outcomes []navigation.Outcome
	for _, g := range sum.Goals {
		outcomes = append(outcomes, g.Outcome)
	}
	require.Equal(t, []navigation.Outcome{
		navigation.OutcomeCompleted, navigation.OutcomeSkippedNoPath, navigation.OutcomeCompleted,
	}, outcomes)
	require.Equal(t, 0, sum.Goals[1].Steps)
	require.Equal(t, sum.Goals[1].FirstStep, sum.Goals[2].FirstStep)
	require.Equal(t, 1, sum.Counts[navigation.OutcomeSkippedNoPath])

	runDir := cfg.RunDir()
	require.Len(t, readLines(t, filepath.Join(runDir, "traj.txt")), sum.Steps)
	entries, err := os.ReadDir(filepath.Join(runDir, "results"))
	require.NoError(t, err)
	require.Len(t, entries, 2*sum.Steps)

	log := strings.Join(readLines(t, filepath.Join(runDir, "log.txt")), "\n")
	require.Contains(t, log, "Path exception: no path to goal. Skip goal 1")
	require.Contains(t, log, "Final action: stop")
	require.NotContains(t, log, "Light setup")
}

func TestRun_GoalActionBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.OverrideLights = false
	cfg.Sensors.Semantic = false
	cfg.Simulator.MaxStepsPerGoal = 2

	w, err := gridsim.ParseWorld(strings.NewReader("...............\n..............."), 0.5)
	require.NoError(t, err)
	opts := gridsim.OptionsFromConfig(cfg)
	opts.MaxStepsPerGoal = 0
	s, err := gridsim.New(w, opts)
	require.NoError(t, err)

	c, err := New(Options{Config: cfg})
	require.NoError(t, err)

	plan := Plan{Start: w.Center(0, 0), Goals: []geom.Vec3{w.Center(14, 1)}}
	_, sum, err := c.Run(context.Background(), s, plan)
	require.NoError(t, err)

	require.Len(t, sum.Goals, 1)
	require.Equal(t, navigation.OutcomeSkippedPlanningError, sum.Goals[0].Outcome)
	require.ErrorIs(t, sum.Goals[0].Err, navigation.ErrActionLimit)
	require.Equal(t, 3, sum.Goals[0].PlannerActions)
	require.Len(t, readLines(t, filepath.Join(cfg.RunDir(), "traj.txt")), sum.Steps)

	log := strings.Join(readLines(t, filepath.Join(cfg.RunDir(), "log.txt")), "\n")
	require.Contains(t, log, "action limit reached")
}

func TestRun_ExistingRunDir(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.RunDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.RunDir(), "traj.txt"), []byte("old\n"), 0644))

	c, err := New(Options{Config: cfg})
	require.NoError(t, err)
	s, err := gridsim.FromConfig(cfg)
	require.NoError(t, err)

	_, _, err = c.Run(context.Background(), s, Plan{Start: geom.Vec3{X: 1, Z: 1}})
	require.True(t, errors.Is(err, pathutil.ErrRunExists), "got %v", err)
}

func TestRun_InterruptedBetweenGoals(t *testing.T) {
	cfg := testConfig(t)
	catalog, err := store.Open(context.Background(), filepath.Join(cfg.OutputDir, "catalog.db"))
	require.NoError(t, err)
	defer catalog.Close()

	c, err := New(Options{Config: cfg, Catalog: catalog})
	require.NoError(t, err)
	s, err := gridsim.FromConfig(cfg)
	require.NoError(t, err)
	plan, err := c.Generate(context.Background(), s.Pathfinder())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, sum, err := c.Run(ctx, s, plan)
	require.NoError(t, err)
	require.True(t, sum.Interrupted)
	require.Equal(t, 0, sum.Steps)
	require.Empty(t, sum.Goals)
	require.Contains(t, readLines(t, filepath.Join(cfg.RunDir(), "log.txt")), "[000000] Interrupted before goal 0")

	runs, err := catalog.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, store.StatusInterrupted, runs[0].Status)
}

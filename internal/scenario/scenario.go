// Package scenario runs a dataset generation scenario end to end: it
// samples a start point and navigation goals, then drives the agent to each
// goal under that goal's light setup while the step logger records every
// simulator step.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/be2rlab/OpenSemanticMapping/internal/actions"
	"github.com/be2rlab/OpenSemanticMapping/internal/config"
	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/lighting"
	"github.com/be2rlab/OpenSemanticMapping/internal/logging"
	"github.com/be2rlab/OpenSemanticMapping/internal/navigation"
	"github.com/be2rlab/OpenSemanticMapping/internal/pathutil"
	"github.com/be2rlab/OpenSemanticMapping/internal/sampler"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
	"github.com/be2rlab/OpenSemanticMapping/internal/steplog"
	"github.com/be2rlab/OpenSemanticMapping/internal/store"
)

// Plan is the sampled scenario: where the agent starts and the goals it
// visits in order.
type Plan struct {
	Start geom.Vec3   `json:"start"`
	Goals []geom.Vec3 `json:"goals"`
}

// Options configures a Controller.
type Options struct {
	Config *config.ScenarioConfig
	// Profile is the light profile. Nil uses lighting.DefaultProfile.
	Profile *lighting.Profile
	Logger  *slog.Logger
	// Observer receives navigation progress.
	Observer navigation.Observer
	// Catalog, when set, indexes the run.
	Catalog *store.Catalog
}

// Controller owns the configuration and light profile of one scenario.
type Controller struct {
	cfg      *config.ScenarioConfig
	profile  *lighting.Profile
	lights   *lighting.Resolver
	logger   *slog.Logger
	observer navigation.Observer
	catalog  *store.Catalog
}

// New validates the configuration and light profile. Every
// ConfigurationError surfaces here, before any simulator step.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, errors.New("scenario: nil config")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	profile := opts.Profile
	if profile == nil {
		profile = lighting.DefaultProfile()
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Controller{
		cfg:      opts.Config,
		profile:  profile,
		lights:   &lighting.Resolver{Profile: profile, Enabled: opts.Config.OverrideLights},
		logger:   logger,
		observer: opts.Observer,
		catalog:  opts.Catalog,
	}, nil
}

// Config returns the validated configuration.
func (c *Controller) Config() *config.ScenarioConfig { return c.cfg }

// Generate samples the start point and NavPointsNumber goals. With
// proximity sampling each goal is drawn near the previous point, starting
// from the start point.
func (c *Controller) Generate(ctx context.Context, pf sim.Pathfinder) (Plan, error) {
	smp := sampler.New(pf, sampler.Options{
		Seed:                c.cfg.Seed,
		AgentRadius:         c.cfg.AgentRadius,
		MoveActuationAmount: c.cfg.MoveActuationAmount,
	})

	start, err := smp.Sample(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("sampling start point: %w", err)
	}

	plan := Plan{Start: start, Goals: make([]geom.Vec3, 0, c.cfg.NavPointsNumber)}
	prev := start
	for i := 0; i < c.cfg.NavPointsNumber; i++ {
		var goal geom.Vec3
		if c.cfg.ProximitySampling {
			goal, err = smp.SampleNear(ctx, prev)
		} else {
			goal, err = smp.Sample(ctx)
		}
		if err != nil {
			return Plan{}, fmt.Errorf("sampling goal %d: %w", i, err)
		}
		plan.Goals = append(plan.Goals, goal)
		prev = goal
	}

	c.logger.Debug("scenario sampled",
		"start", start, "goals", len(plan.Goals), "rejections", smp.Rejections())
	return plan, nil
}

// Summary describes a finished run.
type Summary struct {
	RunID  string                     `json:"run_id,omitempty"`
	RunDir string                     `json:"run_dir"`
	Steps  int                        `json:"steps"`
	Goals  []navigation.Result        `json:"-"`
	Counts map[navigation.Outcome]int `json:"outcomes"`
	// Interrupted is set when the context was cancelled between goals.
	Interrupted bool `json:"interrupted"`
}

// Run drives s through plan and records the run under the configured run
// directory. Reconfiguration replaces the simulator handle, so Run returns
// the handle that is current when it stops; the caller owns and closes it.
//
// Planning failures skip a goal. Configuration, simulator and I/O failures
// stop the run and are returned. Cancellation is checked between goals; a
// goal in progress runs to its outcome.
func (c *Controller) Run(ctx context.Context, s sim.Simulator, plan Plan) (sim.Simulator, Summary, error) {
	cfg := c.cfg
	work := context.WithoutCancel(ctx)
	runDir := cfg.RunDir()
	sum := Summary{RunDir: runDir, Counts: map[navigation.Outcome]int{}}

	if err := pathutil.PrepareRunDir(cfg.OutputDir, runDir, cfg.Overwrite); err != nil {
		return s, sum, err
	}

	opts := steplog.Options{DepthScale: cfg.DepthScale, Logger: c.logger}
	if c.catalog != nil {
		run, err := c.catalog.BeginRun(work, store.Run{
			Dataset:   cfg.DatasetName,
			Scene:     cfg.SceneName,
			RunDir:    runDir,
			Seed:      cfg.Seed,
			NavPoints: len(plan.Goals),
		})
		if err != nil {
			return s, sum, err
		}
		sum.RunID = run.ID
		opts.Indexer = c.catalog
	}

	rec, err := steplog.Open(runDir, opts)
	if err != nil {
		c.finishCatalog(store.StatusFailed, 0)
		return s, sum, err
	}

	s, err = c.run(ctx, work, s, plan, rec, &sum)
	sum.Steps = rec.Index()

	status := store.StatusCompleted
	switch {
	case err != nil:
		status = store.StatusFailed
	case sum.Interrupted:
		status = store.StatusInterrupted
	}
	c.finishCatalog(status, sum.Steps)

	if cerr := rec.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing step log: %w", cerr)
	}
	return s, sum, err
}

// run checks ctx between goals and performs all work under work.
func (c *Controller) run(ctx, work context.Context, s sim.Simulator, plan Plan, rec *steplog.Logger, sum *Summary) (sim.Simulator, error) {
	cfg := c.cfg

	if err := rec.WriteSettings(cfg, c.profile); err != nil {
		return s, err
	}
	if err := rec.WriteIntrinsics(geom.Intrinsics(cfg.Sensors.Width, cfg.Sensors.Height, cfg.Sensors.HFOV)); err != nil {
		return s, err
	}

	events := logging.NewEventLogger(rec.Dir(), cfg.Logging.Level)
	defer events.Close()

	start := sim.AgentState{Pose: geom.Pose{Position: plan.Start, Rotation: geom.Identity}}
	if err := s.SetAgentState(cfg.DefaultAgent, start); err != nil {
		return s, fmt.Errorf("placing agent at start: %w", err)
	}
	rec.Logf("Start point: (%.3f, %.3f, %.3f)", plan.Start.X, plan.Start.Y, plan.Start.Z)
	events.Log("start", rec.Index(), map[string]any{"point": plan.Start.Slice(), "goals": len(plan.Goals)})

	driver := &navigation.Driver{
		Transformer: actions.NewTransformer(cfg.MoveFreqMultiplier, cfg.TurnFreqMultiplier),
		Expand:      cfg.ActionExpansion,
		Agent:       cfg.DefaultAgent,
		Recorder:    rec,
		Observer:    c.observer,
		MaxActions:  cfg.Simulator.MaxStepsPerGoal,
	}

	for i, goal := range plan.Goals {
		if ctx.Err() != nil {
			sum.Interrupted = true
			rec.Logf("Interrupted before goal %d", i)
			c.logger.Info("run interrupted", "goal", i, "of", len(plan.Goals))
			return s, nil
		}

		next, setup, err := c.lights.Apply(work, s, i)
		s = next
		if err != nil {
			return s, err
		}
		if setup.Name != "" {
			rec.Logf("Light setup: %s", setup.Name)
			events.Log("light_setup", rec.Index(), map[string]any{
				"goal": i, "setup": setup.Name, "lights": setup.IDs(),
			})
		}

		follower, err := s.NewFollower(cfg.DefaultAgent, cfg.GoalRadius)
		if err != nil {
			return s, fmt.Errorf("creating follower for goal %d: %w", i, err)
		}

		res, err := driver.Navigate(work, s, follower, i, goal)
		if err != nil {
			return s, err
		}
		sum.Goals = append(sum.Goals, res)
		sum.Counts[res.Outcome]++

		fields := map[string]any{
			"goal":     i,
			"point":    goal.Slice(),
			"outcome":  string(res.Outcome),
			"steps":    res.Steps,
			"first":    res.FirstStep,
			"final":    res.FinalAction.String(),
			"setup":    setup.Name,
			"planning": res.PlannerActions,
		}
		if res.Err != nil {
			fields["error"] = res.Err.Error()
		}
		events.Log("goal", rec.Index(), fields)
		c.logger.Debug("goal finished", "goal", i, "outcome", res.Outcome, "steps", res.Steps)

		if c.catalog != nil {
			g := store.Goal{
				Index:      i,
				Point:      goal,
				LightSetup: setup.Name,
				Outcome:    string(res.Outcome),
				FirstStep:  res.FirstStep,
				Steps:      res.Steps,
			}
			if res.Outcome == navigation.OutcomeCompleted || res.FinalAction == actions.Error {
				g.FinalAction = res.FinalAction.String()
			}
			if err := c.catalog.RecordGoal(work, g); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

func (c *Controller) finishCatalog(status string, steps int) {
	if c.catalog == nil {
		return
	}
	if err := c.catalog.FinishRun(context.Background(), status, steps); err != nil {
		c.logger.Warn("failed to finish catalog run", "error", err)
	}
}

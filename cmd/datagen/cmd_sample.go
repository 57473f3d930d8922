package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/scenario"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// sampledGoal is one goal of `datagen sample` output.
type sampledGoal struct {
	Index     int       `json:"index"`
	Point     geom.Vec3 `json:"point"`
	Navigable bool      `json:"navigable"`
	// PathPoints is set with --check-paths; zero means unreachable.
	PathPoints int `json:"path_points,omitempty"`
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the sampled start point and goals without stepping",
		Long: `Sample the scenario exactly as generate would and print the start point
and goals. Nothing is written to the output directory.

With --check-paths each goal is also planned from the previous point.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			checkPaths, _ := cmd.Flags().GetBool("check-paths")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctrl, err := scenario.New(scenario.Options{Config: cfg, Logger: newLogger(cmd, cfg)})
			if err != nil {
				return err
			}

			s, err := openSimulator(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			plan, err := ctrl.Generate(cmd.Context(), s.Pathfinder())
			if err != nil {
				return err
			}

			goals := make([]sampledGoal, len(plan.Goals))
			prev := plan.Start
			for i, p := range plan.Goals {
				goals[i] = sampledGoal{Index: i, Point: p, Navigable: s.Pathfinder().IsNavigable(p)}
				if checkPaths {
					n, err := pathLength(cmd, s, cfg.DefaultAgent, cfg.GoalRadius, prev, p)
					if err != nil {
						return err
					}
					goals[i].PathPoints = n
				}
				prev = p
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"seed":  cfg.Seed,
					"start": plan.Start,
					"goals": goals,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seed %d, %d goals\n", cfg.Seed, len(goals))
			fmt.Fprintf(out, "Start: %s\n", formatVec(plan.Start))
			for _, g := range goals {
				line := fmt.Sprintf("Goal %d: %s", g.Index, formatVec(g.Point))
				if !g.Navigable {
					line += " (not navigable)"
				}
				if checkPaths {
					if g.PathPoints == 0 {
						line += " unreachable"
					} else {
						line += fmt.Sprintf(" path of %d points", g.PathPoints)
					}
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "Override the scenario seed")
	cmd.Flags().Int("goals", 0, "Override nav_points_number")
	cmd.Flags().Bool("check-paths", false, "Plan a path to every goal from the previous point")

	return cmd
}

// pathLength places the agent at from and plans to goal. It returns 0 when
// no path exists.
func pathLength(cmd *cobra.Command, s sim.Simulator, agent int, goalRadius float64, from, goal geom.Vec3) (int, error) {
	st := sim.AgentState{Pose: geom.Pose{Position: from, Rotation: geom.Identity}}
	if err := s.SetAgentState(agent, st); err != nil {
		return 0, fmt.Errorf("placing agent: %w", err)
	}
	f, err := s.NewFollower(agent, goalRadius)
	if err != nil {
		return 0, err
	}
	path, err := f.FindPath(cmd.Context(), goal)
	if errors.Is(err, sim.ErrNoPath) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(path), nil
}

func formatVec(v geom.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

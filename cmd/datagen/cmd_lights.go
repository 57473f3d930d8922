package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/be2rlab/OpenSemanticMapping/internal/lighting"
)

type lightView struct {
	ID     string     `json:"id"`
	Model  string     `json:"model"`
	Vector [4]float64 `json:"vector"`
	Color  [3]float64 `json:"color"`
}

type setupView struct {
	Name      string      `json:"name"`
	LifeIndex int         `json:"life_index"`
	Lights    []lightView `json:"lights"`
}

func newLightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lights",
		Short: "Preview resolved light setups",
		Long: `Resolve the light profile for one or more life indices (goal indices)
and print the lights each setup activates.

Examples:
  datagen lights --index 3
  datagen lights --lights lights.yaml --index 0 --count 10 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("index")
			count, _ := cmd.Flags().GetInt("count")
			if index < 0 {
				return fmt.Errorf("--index must be non-negative, got %d", index)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			profile, err := loadProfile(cmd)
			if err != nil {
				return err
			}
			if err := profile.Validate(); err != nil {
				return err
			}

			views := make([]setupView, 0, count)
			for i := index; i < index+count; i++ {
				setup, err := lighting.Resolve(profile, i)
				if err != nil {
					return err
				}
				v := setupView{Name: setup.Name, LifeIndex: setup.LifeIndex, Lights: []lightView{}}
				for _, l := range setup.Lights {
					v.Lights = append(v.Lights, lightView{ID: l.ID, Model: string(l.Model), Vector: l.Vector, Color: l.Color})
				}
				views = append(views, v)
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			for _, v := range views {
				fmt.Fprintf(out, "%s:\n", v.Name)
				if len(v.Lights) == 0 {
					fmt.Fprintln(out, "  (no lights)")
					continue
				}
				for _, l := range v.Lights {
					fmt.Fprintf(out, "  %-12s model=%-6s vector=%s color=%s\n",
						l.ID, l.Model, formatFloats(l.Vector[:]), formatFloats(l.Color[:]))
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("index", 0, "First life index to resolve")
	cmd.Flags().Int("count", 1, "Number of consecutive life indices")

	return cmd
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

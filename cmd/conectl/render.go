package main

import (
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"Prism/internal/domain/models"
	"Prism/internal/services/density"
	"Prism/internal/usecase"
)

type gridStats struct {
	StepsX       int     `json:"steps_x"`
	StepsZ       int     `json:"steps_z"`
	Empty        bool    `json:"empty"`
	MinElevation float64 `json:"min_elevation"`
	MaxElevation float64 `json:"max_elevation"`
	MeanHeight   float64 `json:"mean_elevation"`
}

type renderOutput struct {
	Asset   string                `json:"asset"`
	Horizon models.Horizon        `json:"horizon"`
	Points  int                   `json:"points"`
	Render  models.ConeRenderData `json:"render"`
	Grid    gridStats             `json:"grid"`
}

func statsOf(g models.DensityGrid) gridStats {
	s := gridStats{StepsX: g.StepsX, StepsZ: g.StepsZ, Empty: g.IsEmpty()}
	if s.Empty || len(g.Elevations) == 0 {
		return s
	}
	s.MinElevation = floats.Min(g.Elevations)
	s.MaxElevation = floats.Max(g.Elevations)
	s.MeanHeight = floats.Sum(g.Elevations) / float64(len(g.Elevations))
	return s
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	var width float64
	cmd := &cobra.Command{
		Use:   "render <cone.json>",
		Short: "Print render parameters and surface statistics for a cone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cone, err := root.loadCone(args[0])
			if err != nil {
				return err
			}
			b := usecase.NewSceneBuilder(density.NewGenerator(density.WithPriceAxisWidth(width)), nil)
			scene := b.Build(cone)
			return printJSON(cmd.OutOrStdout(), renderOutput{
				Asset:   cone.Asset,
				Horizon: cone.Horizon,
				Points:  len(cone.Points),
				Render:  scene.Render,
				Grid:    statsOf(scene.Grid),
			})
		},
	}
	cmd.Flags().Float64Var(&width, "price-axis-width", density.PriceAxisWidth, "full width of the price axis")
	return cmd
}

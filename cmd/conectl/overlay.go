package main

import (
	"github.com/spf13/cobra"

	"Prism/internal/domain/models"
	"Prism/internal/usecase"
)

func newOverlayCmd(root *rootOptions) *cobra.Command {
	var target, low, high, liq, tp, sl float64
	cmd := &cobra.Command{
		Use:   "overlay <cone.json>",
		Short: "Map price levels onto the cone's price axis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cone, err := root.loadCone(args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			opt := func(name string, v float64) *float64 {
				if f.Changed(name) {
					return models.Float(v)
				}
				return nil
			}
			in := models.OverlayInput{
				TargetPrice: opt("target", target),
				RangeLow:    opt("low", low),
				RangeHigh:   opt("high", high),
				Liquidation: opt("liquidation", liq),
				TakeProfit:  opt("take-profit", tp),
				StopLoss:    opt("stop-loss", sl),
			}
			b := usecase.NewSceneBuilder(nil, nil)
			scene := b.Build(cone)
			return printJSON(cmd.OutOrStdout(), b.Overlay(scene.Render, in))
		},
	}
	cmd.Flags().Float64Var(&target, "target", 0, "target price line")
	cmd.Flags().Float64Var(&low, "low", 0, "highlight range lower bound")
	cmd.Flags().Float64Var(&high, "high", 0, "highlight range upper bound")
	cmd.Flags().Float64Var(&liq, "liquidation", 0, "liquidation price line")
	cmd.Flags().Float64Var(&tp, "take-profit", 0, "take-profit price line")
	cmd.Flags().Float64Var(&sl, "stop-loss", 0, "stop-loss price line")
	return cmd
}

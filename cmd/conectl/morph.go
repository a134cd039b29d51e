package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"Prism/internal/services/morph"
	"Prism/internal/usecase"
)

func newMorphCmd(root *rootOptions) *cobra.Command {
	var fps, maxFrames int
	cmd := &cobra.Command{
		Use:   "morph <from.json> <to.json>",
		Short: "Simulate the animation between two cones and print per-frame progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := root.loadCone(args[0])
			if err != nil {
				return err
			}
			to, err := root.loadCone(args[1])
			if err != nil {
				return err
			}
			if fps <= 0 {
				return fmt.Errorf("fps must be positive")
			}

			b := usecase.NewSceneBuilder(nil, nil)
			a := morph.NewAnimator()
			a.SetTarget(b.Build(from).Grid)
			hard := a.SetTarget(b.Build(to).Grid)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hard_install=%t empty=%t\n", hard, a.Empty())
			step := time.Second / time.Duration(fps)
			frames := 0
			for frames < maxFrames && a.Advance(step) {
				frames++
				fmt.Fprintf(out, "frame=%d progress=%.4f eased=%.4f\n", frames, a.Progress(), morph.Ease(a.Progress()))
			}
			fmt.Fprintf(out, "frames=%d settled=%t\n", frames, !a.Animating())
			return nil
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 60, "simulated frame rate")
	cmd.Flags().IntVar(&maxFrames, "max-frames", 600, "stop after this many frames")
	return cmd
}

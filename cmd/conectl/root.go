package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"Prism/internal/domain/models"
	"Prism/internal/service/synth"
)

type rootOptions struct {
	asset   string
	horizon string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "conectl",
		Short:         "Offline tools for percentile cones and density surfaces",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.asset, "asset", "BTC", "asset symbol for provider-format cone files")
	root.PersistentFlags().StringVar(&opts.horizon, "horizon", "24h", "horizon tag (1h or 24h)")

	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newOverlayCmd(opts))
	root.AddCommand(newMorphCmd(opts))
	root.AddCommand(newFetchCmd(opts))
	return root
}

// loadCone reads either a serialised PercentileCone or a raw provider
// response. Provider files take asset and horizon from the flags.
func (o *rootOptions) loadCone(path string) (models.PercentileCone, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.PercentileCone{}, fmt.Errorf("read cone: %w", err)
	}
	h, err := models.ParseHorizon(o.horizon)
	if err != nil {
		return models.PercentileCone{}, err
	}

	if strings.Contains(string(raw), `"forecast_future"`) {
		return synth.Decode(raw, strings.ToUpper(o.asset), h)
	}

	var cone models.PercentileCone
	if err := json.Unmarshal(raw, &cone); err != nil {
		return models.PercentileCone{}, fmt.Errorf("parse cone %s: %w", path, err)
	}
	if cone.Horizon == "" {
		cone.Horizon = h
	}
	if cone.Asset == "" {
		cone.Asset = strings.ToUpper(o.asset)
	}
	return cone, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"Prism/internal/domain/models"
	"Prism/internal/service/synth"
	"Prism/pkg/config"
	applogger "Prism/pkg/logger"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var cfgPath, out string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a cone from the forecast provider and save it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(cfgPath)
			if err != nil {
				return err
			}
			h, err := models.ParseHorizon(root.horizon)
			if err != nil {
				return err
			}
			l, err := applogger.New(&applogger.Config{Level: cfg.Logging.Level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}

			c := synth.NewClient(synth.Config{
				BaseURL:  cfg.Synth.BaseURL,
				APIKey:   cfg.Synth.APIKey,
				Timeout:  cfg.Synth.Timeout,
				Days:     cfg.Synth.Days,
				Limit:    cfg.Synth.Limit,
				Assets:   cfg.Synth.Assets,
				Horizons: cfg.Synth.Horizons,
			}, nil, l)
			cone, err := c.FetchCone(cmd.Context(), strings.ToUpper(root.asset), h)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return printJSON(w, cone)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config/config.yaml", "config file path")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the cone here instead of stdout")
	return cmd
}

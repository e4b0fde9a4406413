package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moturus/gantry/pkg/capability"
	"github.com/moturus/gantry/pkg/config"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which capabilities this host satisfies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}

		probe := buildProbe(cmd.Context(), cfg, nil, nil)
		for _, tag := range capability.Known() {
			mark := "no"
			if probe.Has(tag) {
				mark = "yes"
			}
			fmt.Printf("%-26s %s\n", tag, mark)
		}
		return nil
	},
}

// buildProbe layers config and flag overrides over live host detection.
// Flag overrides win over config overrides.
func buildProbe(ctx context.Context, cfg *config.Config, assume, deny []string) capability.Probe {
	forced := make(map[capability.Tag]bool)
	for _, t := range cfg.Capabilities.Assume {
		forced[capability.Tag(t)] = true
	}
	for _, t := range cfg.Capabilities.Deny {
		forced[capability.Tag(t)] = false
	}
	for _, t := range assume {
		forced[capability.Tag(t)] = true
	}
	for _, t := range deny {
		forced[capability.Tag(t)] = false
	}

	var probe capability.Probe = capability.NewHostProbe(ctx)
	if len(forced) > 0 {
		probe = capability.Override{Base: probe, Forced: forced}
	}
	return probe
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

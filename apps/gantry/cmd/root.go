package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/moturus/gantry/pkg/config"
	"github.com/moturus/gantry/pkg/glog"
)

type contextKey string

const configContextKey contextKey = "gantryconfig"

var (
	cfgFile string
	verbose bool
	quiet   bool

	rootCmd = &cobra.Command{
		Use:   "gantry",
		Short: "Capability-aware CI pipeline runner",
		Long: `gantry runs a declarative YAML pipeline against the current host. Steps
execute strictly in declaration order; a step gated on a capability the host
lacks (say hardware virtualization on a hosted runner) is skipped and
reported, and the first failing step halts the rest. The process exit code is
zero exactly when the pipeline completed, so gantry slots directly into any
CI provider's job step.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	cfg, ok := ctx.Value(configContextKey).(*config.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func newLogger() *glog.Logger {
	switch {
	case verbose:
		return glog.NewVerbose()
	case quiet:
		return glog.NewQuiet()
	default:
		return glog.NewDefault()
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: gantry.yaml, .gantry/config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/moturus/gantry/pkg/grunner"
	"github.com/moturus/gantry/pkg/pipeline"
)

var (
	runNoCache bool
	runAssume  []string
	runDeny    []string
)

var runCmd = &cobra.Command{
	Use:   "run [pipeline.yaml]",
	Short: "Run a pipeline against the current host",
	Long: `Run a pipeline definition. Steps execute sequentially; steps whose required
capabilities the host lacks are skipped, and the first failure halts the rest.

Examples:
  # Run the default pipeline.yaml
  gantry run

  # Run a specific definition
  gantry run ci/linux.yaml

  # Pretend the host has KVM (e.g. to preview the full step set)
  gantry run --assume hardware-virtualization`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger()

		path := "pipeline.yaml"
		if len(args) > 0 {
			path = args[0]
		}

		p, err := pipeline.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		// Working directory: relative to the config file when one was used,
		// so "gantry -c sub/gantry.yaml run" behaves like running from sub/
		baseDir, err := resolveBaseDir(cfg.ConfigFileUsed())
		if err != nil {
			return err
		}
		workDir := baseDir
		if cfg.WorkingDir != "" {
			if filepath.IsAbs(cfg.WorkingDir) {
				workDir = cfg.WorkingDir
			} else {
				workDir = filepath.Join(baseDir, cfg.WorkingDir)
			}
		}

		ctx := cmd.Context()
		probe := buildProbe(ctx, cfg, runAssume, runDeny)

		var cache cacheHandle
		if !runNoCache {
			cache = newCacheHandle(cfg, logger)
		}
		defer cache.close()

		specs := p.CacheSpecs()
		cache.restoreAll(ctx, specs)

		logger.Info("starting pipeline", "pipeline", p.String(), "file", path)

		runner := grunner.NewRunner(probe,
			grunner.WithBaseDir(baseDir),
			grunner.WithRunWorkDir(workDir),
			grunner.WithRunEnv(cfg.Env),
			grunner.WithLogger(logger),
		)
		result := runner.Run(ctx, p)

		printReport(p, result)

		if result.State == grunner.StateCompleted {
			cache.saveAll(ctx, specs)
			return nil
		}

		os.Exit(result.ExitCode())
		return nil
	},
}

// resolveBaseDir anchors run state next to the config file when one was
// used, otherwise in the current directory.
func resolveBaseDir(configFileUsed string) (string, error) {
	if configFileUsed != "" {
		abs, err := filepath.Abs(configFileUsed)
		if err != nil {
			return "", fmt.Errorf("resolving config path: %w", err)
		}
		return filepath.Dir(abs), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return cwd, nil
}

// printReport writes the auditable per-step report: every evaluated step with
// its outcome, plus the steps a halt left unreached.
func printReport(p *pipeline.Pipeline, result *grunner.PipelineResult) {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Pipeline %s: %s\n", p.String(), result.State)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	for _, sr := range result.Results {
		switch sr.Outcome {
		case grunner.OutcomeSucceeded:
			fmt.Printf("  ✔ %-20s %s\n", sr.Step, sr.Duration.Round(time.Millisecond))
		case grunner.OutcomeFailed:
			fmt.Printf("  ✘ %-20s %s\n", sr.Step, sr.Reason)
		case grunner.OutcomeSkipped:
			fmt.Printf("  ↷ %-20s skipped: %s\n", sr.Step, sr.Reason)
		}
	}
	for _, step := range p.Steps[len(result.Results):] {
		fmt.Printf("  · %-20s not run\n", step.Name)
	}

	switch result.State {
	case grunner.StateHaltedOnFailure:
		fmt.Printf("\nFailed at step: %s\n", result.FailedStep)
	case grunner.StateCancelled:
		fmt.Printf("\nRun cancelled\n")
	}

	if result.RunID != "" {
		fmt.Printf("\nRun state: %s\n", filepath.Join(grunner.RunsSubdir, result.RunID))
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Skip cache restore/save for this run")
	runCmd.Flags().StringSliceVar(&runAssume, "assume", nil, "Capability tags to treat as present regardless of detection")
	runCmd.Flags().StringSliceVar(&runDeny, "deny", nil, "Capability tags to treat as absent regardless of detection")
}

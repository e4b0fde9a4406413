package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moturus/gantry/pkg/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline.yaml>",
	Short: "Check a pipeline definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("✔ %s is valid: %s\n", args[0], p.String())
		for i, step := range p.Steps {
			line := fmt.Sprintf("  %d. %s", i+1, step.Name)
			if len(step.Requires) > 0 {
				line += fmt.Sprintf(" (requires %v)", step.Requires)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

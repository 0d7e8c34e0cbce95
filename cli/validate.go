package cli

import (
	"github.com/spf13/cobra"

	"github.com/ruleforge/ruleforge/graph"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph-file>",
		Short: "Validate a graph without emitting",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("manifest", "", "Definition manifest (JSON or YAML)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	g, err := loadGraph(args[0], reg)
	if err != nil {
		return err
	}

	report := graph.Validate(g)
	if format == "json" {
		printDiagnosticsJSON(out, report.Diagnostics)
	} else {
		printDiagnosticsText(out, report.Diagnostics)
	}

	if report.HasErrors() || (strict && len(report.Warnings()) > 0) {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

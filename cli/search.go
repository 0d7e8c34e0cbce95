package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ruleforge/ruleforge/core"
)

// NewSearchCmd creates the "search" subcommand.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the definition catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("manifest", "", "Definition manifest (JSON or YAML)")
	cmd.Flags().String("category", "", "Restrict to one category: event | condition | action | value")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	catFlag, _ := cmd.Flags().GetString("category")
	cat := core.Category(catFlag)
	if cat != "" && !cat.Valid() {
		return exitError(exitValidation, "unknown category %q", catFlag)
	}

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	hits := reg.Search(query, cat)
	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matches")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tOUTPUT")
	for _, def := range hits {
		out := string(def.Output)
		if out == "" {
			out = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.ID, def.Name, def.Category, out)
	}
	return w.Flush()
}

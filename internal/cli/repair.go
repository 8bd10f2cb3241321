package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/catalog"
)

// RepairOptions holds flags for the repair command.
type RepairOptions struct {
	*RootOptions
	Edition int64
	All     bool
	Limit   int
}

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RepairOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Give orphan editions a parent work",
		Long: `Create a work for every edition that has none.

The work copies the edition's title and authors. Editions that already
have a work are skipped, so repair is safe to run repeatedly.

Example:
  bookcat repair --edition 42
  bookcat repair --all`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Edition, "edition", 0, "repair a single edition by ID")
	cmd.Flags().BoolVar(&opts.All, "all", false, "repair every orphan edition")
	cmd.Flags().IntVar(&opts.Limit, "limit", 1000, "maximum editions to repair with --all")
	cmd.MarkFlagsMutuallyExclusive("edition", "all")
	cmd.MarkFlagsOneRequired("edition", "all")

	return cmd
}

func runRepair(opts *RepairOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	var results []catalog.RepairResult
	if opts.All {
		results, err = a.catalog.RepairOrphans(ctx, opts.Limit)
	} else {
		var res catalog.RepairResult
		res, err = a.catalog.Repair(ctx, opts.Edition)
		results = append(results, res)
	}
	if err != nil {
		return formatter.Fail("repair failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(formatter.Writer, "No orphan editions")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "edition %d: %s (work %d)\n", r.EditionID, r.Result, r.WorkID)
	}
	return nil
}

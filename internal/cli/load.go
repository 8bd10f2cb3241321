package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/fixture"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Load authors, works and editions from a YAML fixture",
		Long: `Load a YAML fixture of authors, works and editions into the catalog.

Records reference each other with symbolic keys. Every record goes through
the normal save path, so ISBNs are derived and editions are ranked.

Example:
  bookcat load --db ./bookcat.db ./seed.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	doc, err := fixture.ReadFile(path)
	if err != nil {
		return formatter.Fail("failed to read fixture", fmt.Errorf("%w: %w", errInvalidInput, err))
	}
	formatter.VerboseLog("Fixture has %d author(s), %d work(s), %d edition(s)",
		len(doc.Authors), len(doc.Works), len(doc.Editions))

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	res, err := fixture.Apply(ctx, a.catalog, doc)
	if err != nil {
		return formatter.Fail("failed to load fixture", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d author(s), %d work(s), %d edition(s)\n",
		len(res.Authors), len(res.Works), len(res.Editions))
	for _, section := range []struct {
		name string
		ids  map[string]int64
	}{{"authors", res.Authors}, {"works", res.Works}, {"editions", res.Editions}} {
		if len(section.ids) == 0 {
			continue
		}
		fmt.Fprintf(formatter.Writer, "\n%s:\n", section.name)
		keys := make([]string, 0, len(section.ids))
		for k := range section.ids {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(formatter.Writer, "  %-20s %d\n", k, section.ids[k])
		}
	}
	return nil
}

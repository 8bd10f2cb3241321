package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/isbn"
)

var errInvalidISBN = errors.New("invalid isbn")

// ISBNResult is the output of the isbn subcommands.
type ISBNResult struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	ISBN10     string `json:"isbn_10,omitempty"`
	ISBN13     string `json:"isbn_13,omitempty"`
	Valid      *bool  `json:"valid,omitempty"`
}

// NewISBNCommand creates the isbn command group.
func NewISBNCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isbn",
		Short: "Normalize, convert and check ISBNs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "normalize <isbn>",
		Short:         "Strip an ISBN down to digits and X",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runISBNNormalize(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "convert <isbn>",
		Short: "Convert between ISBN-10 and ISBN-13",
		Long: `Convert an ISBN-10 to ISBN-13 or a 978-prefixed ISBN-13 to ISBN-10.

The direction is chosen from the normalized length. 979 ISBNs have no
ISBN-10 form and fail.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runISBNConvert(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "check <isbn>",
		Short:         "Validate an ISBN check digit",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runISBNCheck(rootOpts, args[0], cmd)
		},
	})
	return cmd
}

func runISBNNormalize(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	res := ISBNResult{Input: raw, Normalized: isbn.Normalize(raw)}
	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintln(formatter.Writer, res.Normalized)
	return nil
}

func runISBNConvert(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	res := ISBNResult{Input: raw, Normalized: isbn.Normalize(raw)}

	var (
		out string
		ok  bool
	)
	switch len(res.Normalized) {
	case 10:
		res.ISBN10 = res.Normalized
		out, ok = isbn.To13(raw)
		res.ISBN13 = out
	case 13:
		res.ISBN13 = res.Normalized
		out, ok = isbn.To10(raw)
		res.ISBN10 = out
	}
	if !ok {
		return formatter.Fail(fmt.Sprintf("cannot convert %q", raw), errInvalidISBN)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintln(formatter.Writer, out)
	return nil
}

func runISBNCheck(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	res := ISBNResult{Input: raw, Normalized: isbn.Normalize(raw)}

	valid := false
	switch len(res.Normalized) {
	case 10:
		valid = isbn.Valid10(raw)
		res.ISBN10 = res.Normalized
	case 13:
		valid = isbn.Valid13(raw)
		res.ISBN13 = res.Normalized
	}
	res.Valid = &valid
	if !valid {
		return formatter.Fail(fmt.Sprintf("%q is not a valid ISBN", raw), errInvalidISBN)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is a valid ISBN-%d\n", res.Normalized, len(res.Normalized))
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/book"
)

// EditionsOptions holds flags for the editions command.
type EditionsOptions struct {
	*RootOptions
	Page       int
	PageLength int
	Collection bool
}

// EditionInfo is one edition in the editions listing.
type EditionInfo struct {
	ID       int64  `json:"id"`
	Rank     int    `json:"rank"`
	Title    string `json:"title"`
	Info     string `json:"info,omitempty"`
	ISBN13   string `json:"isbn_13,omitempty"`
	RemoteID string `json:"remote_id"`
	Default  bool   `json:"default,omitempty"`
}

// NewEditionsCommand creates the editions command.
func NewEditionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "editions <work-id>",
		Short: "List a work's editions in display order",
		Long: `List a work's editions, best ranked first.

With --collection the federated ordered-collection document is printed
instead: page 0 is the summary, pages from 1 list edition IDs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEditions(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Collection, "collection", false, "print the ordered collection document")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "collection page (0 is the summary)")
	cmd.Flags().IntVar(&opts.PageLength, "page-length", book.DefaultPageLength, "editions per collection page")

	return cmd
}

func runEditions(opts *EditionsOptions, rawID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	workID, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid work id", err)
	}

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	if opts.Collection {
		coll, err := a.catalog.EditionCollection(ctx, workID, opts.Page, opts.PageLength)
		if err != nil {
			return formatter.Fail("failed to build collection", err)
		}
		data, err := coll.JSON()
		if err != nil {
			return formatter.Fail("failed to encode collection", err)
		}
		fmt.Fprintln(formatter.Writer, string(data))
		return nil
	}

	w, editions, err := a.catalog.Editions(ctx, workID)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("work %d", workID), err)
	}
	def := book.DefaultEdition(editions)

	list := make([]EditionInfo, 0, len(editions))
	for _, e := range editions {
		list = append(list, EditionInfo{
			ID:       e.ID,
			Rank:     e.EditionRank,
			Title:    e.Title,
			Info:     e.Info(a.cfg.DefaultLanguage),
			ISBN13:   e.ISBN13,
			RemoteID: e.RemoteID,
			Default:  e == def,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(list)
	}
	fmt.Fprintf(formatter.Writer, "%s (%d edition(s))\n", w.Title, len(list))
	for _, e := range list {
		marker := " "
		if e.Default {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %d  rank %d  %s", marker, e.ID, e.Rank, e.Title)
		if e.Info != "" {
			fmt.Fprintf(formatter.Writer, " (%s)", e.Info)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

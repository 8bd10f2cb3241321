package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/book"
)

// DuplicateInfo is one match reported by the dedup command.
type DuplicateInfo struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	RemoteID string `json:"remote_id"`
	Field    string `json:"field"`
}

// DedupResult is the output of the dedup command.
type DedupResult struct {
	BookID     int64           `json:"book_id"`
	Duplicates []DuplicateInfo `json:"duplicates"`
}

// NewDedupCommand creates the dedup command.
func NewDedupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dedup <book-id>",
		Short: "List stored books that share an identifier with a book",
		Long: `List works or editions of the same kind that share any identifier
(ISBN, OCLC number, Open Library key, Wikidata ID, ...) with the given book.

Nothing is merged; the list is for review.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedup(rootOpts, args[0], cmd)
		},
	}
}

func runDedup(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	id, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid book id", err)
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	it, err := a.catalog.GetBook(ctx, id)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("book %d", id), err)
	}
	matches, err := a.catalog.FindDuplicates(ctx, it)
	if err != nil {
		return formatter.Fail("dedup failed", err)
	}

	res := DedupResult{BookID: id, Duplicates: []DuplicateInfo{}}
	for _, m := range matches {
		info := DuplicateInfo{
			ID:       m.Record.Base().ID,
			Kind:     string(m.Record.Kind()),
			RemoteID: m.Record.Base().RemoteID,
			Field:    m.Field,
		}
		if item, ok := m.Record.(book.Item); ok {
			info.Title = item.Data().Title
		}
		res.Duplicates = append(res.Duplicates, info)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	if len(res.Duplicates) == 0 {
		fmt.Fprintf(formatter.Writer, "No duplicates of %s %d\n", it.Kind(), id)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d possible duplicate(s) of %s %d %q:\n", len(res.Duplicates), it.Kind(), id, it.Data().Title)
	for _, d := range res.Duplicates {
		fmt.Fprintf(formatter.Writer, "  %d  %-14s %s\n", d.ID, d.Field, d.Title)
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", errInvalidInput, raw)
	}
	return id, nil
}

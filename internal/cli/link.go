package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/catalog"
	"github.com/roach88/bookcat/internal/link"
)

// FileLinkInfo is a file link as printed by the link commands.
type FileLinkInfo struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"book_id"`
	URL          string `json:"url"`
	FileType     string `json:"filetype,omitempty"`
	Availability string `json:"availability"`
	AddedBy      string `json:"added_by"`
	DomainID     int64  `json:"domain_id"`
	DomainStatus string `json:"domain_status,omitempty"`
}

// LinkAddOptions holds flags for link add.
type LinkAddOptions struct {
	*RootOptions
	Actor        string
	FileType     string
	Availability string
}

// NewLinkCommand creates the link command group.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage file links on books",
	}

	addOpts := &LinkAddOptions{RootOptions: rootOpts}
	add := &cobra.Command{
		Use:   "add <book-id> <url>",
		Short: "Attach a file link to a book",
		Long: `Attach a link to a copy of a book.

The link's hostname becomes a pending domain the first time it is seen.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkAdd(addOpts, args[0], args[1], cmd)
		},
	}
	add.Flags().StringVar(&addOpts.Actor, "actor", "cli", "actor ID recorded as the link's author")
	add.Flags().StringVar(&addOpts.FileType, "filetype", "", "file type, e.g. epub or pdf")
	add.Flags().StringVar(&addOpts.Availability, "availability", string(link.AvailabilityFree), "free|purchase|loan")

	list := &cobra.Command{
		Use:           "list <book-id>",
		Short:         "List a book's file links",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkList(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func fileLinkInfo(l *link.FileLink) FileLinkInfo {
	return FileLinkInfo{
		ID:           l.ID,
		BookID:       l.BookID,
		URL:          l.URL,
		FileType:     l.FileType,
		Availability: string(l.Availability),
		AddedBy:      l.AddedBy,
		DomainID:     l.DomainID,
	}
}

func runLinkAdd(opts *LinkAddOptions, rawID, url string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	bookID, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid book id", err)
	}
	availability, err := link.ParseAvailability(opts.Availability)
	if err != nil {
		return formatter.Fail("invalid availability", fmt.Errorf("%w: %w", errInvalidInput, err))
	}

	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	fl, d, err := a.catalog.AddFileLink(ctx, auth.Actor{ID: opts.Actor}, catalog.FileLinkInput{
		BookID:       bookID,
		URL:          url,
		FileType:     opts.FileType,
		Availability: availability,
	})
	if err != nil {
		return formatter.Fail("failed to add link", err)
	}
	info := fileLinkInfo(fl)
	info.DomainStatus = string(d.Status)

	if formatter.Format == "json" {
		return formatter.Success(info)
	}
	fmt.Fprintf(formatter.Writer, "✓ Added link %d to book %d (domain %s is %s)\n", fl.ID, bookID, d.Domain, d.Status)
	return nil
}

func runLinkList(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	bookID, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid book id", err)
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	links, err := a.catalog.FileLinks(ctx, bookID)
	if err != nil {
		return formatter.Fail("failed to list links", err)
	}
	infos := make([]FileLinkInfo, 0, len(links))
	for _, l := range links {
		infos = append(infos, fileLinkInfo(l))
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	for _, l := range infos {
		fmt.Fprintf(formatter.Writer, "%d  %-8s %s\n", l.ID, l.Availability, l.URL)
	}
	return nil
}

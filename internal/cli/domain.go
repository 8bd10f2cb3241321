package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/config"
	"github.com/roach88/bookcat/internal/link"
)

// DomainInfo is a link domain as printed by the domain commands.
type DomainInfo struct {
	ID         int64  `json:"id"`
	Domain     string `json:"domain"`
	Status     string `json:"status"`
	Name       string `json:"name"`
	ReportedBy string `json:"reported_by,omitempty"`
	Changed    *bool  `json:"changed,omitempty"`
}

func domainInfo(d *link.Domain) DomainInfo {
	return DomainInfo{
		ID:         d.ID,
		Domain:     d.Domain,
		Status:     string(d.Status),
		Name:       d.Name,
		ReportedBy: d.ReportedBy,
	}
}

// NewDomainCommand creates the domain command group.
func NewDomainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Moderate link domains",
		Long: `List and moderate the hostnames that file links point to.

New hostnames start pending. A moderator token (see "bookcat token issue")
is required to approve, block or rename a domain.`,
	}

	var status string
	list := &cobra.Command{
		Use:           "list",
		Short:         "List link domains",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDomainList(rootOpts, status, cmd)
		},
	}
	list.Flags().StringVar(&status, "status", "", "only list domains with this status (pending|approved|blocked)")

	var token string
	setStatus := &cobra.Command{
		Use:           "set-status <domain-id> <status>",
		Short:         "Approve or block a domain",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDomainSetStatus(rootOpts, token, args[0], args[1], cmd)
		},
	}
	setStatus.Flags().StringVar(&token, "token", "", "moderator token (JWT)")
	_ = setStatus.MarkFlagRequired("token")

	rename := &cobra.Command{
		Use:           "rename <domain-id> <name>",
		Short:         "Set a domain's display name",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDomainRename(rootOpts, token, args[0], args[1], cmd)
		},
	}
	rename.Flags().StringVar(&token, "token", "", "moderator token (JWT)")
	_ = rename.MarkFlagRequired("token")

	var actor string
	report := &cobra.Command{
		Use:           "report <domain-id>",
		Short:         "Flag a domain for moderator review",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDomainReport(rootOpts, actor, args[0], cmd)
		},
	}
	report.Flags().StringVar(&actor, "actor", "cli", "reporting actor ID")

	cmd.AddCommand(list, setStatus, rename, report)
	return cmd
}

func runDomainList(opts *RootOptions, rawStatus string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	var status link.Status
	if rawStatus != "" {
		var err error
		if status, err = link.ParseStatus(rawStatus); err != nil {
			return formatter.Fail("invalid status", fmt.Errorf("%w: %w", errInvalidInput, err))
		}
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	domains, err := a.catalog.ListDomains(ctx, status)
	if err != nil {
		return formatter.Fail("failed to list domains", err)
	}
	infos := make([]DomainInfo, 0, len(domains))
	for _, d := range domains {
		infos = append(infos, domainInfo(d))
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No domains")
		return nil
	}
	for _, d := range infos {
		fmt.Fprintf(formatter.Writer, "%d  %-9s %s", d.ID, d.Status, d.Domain)
		if d.Name != d.Domain {
			fmt.Fprintf(formatter.Writer, " (%s)", d.Name)
		}
		if d.ReportedBy != "" {
			fmt.Fprintf(formatter.Writer, " [reported by %s]", d.ReportedBy)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

// verifyToken resolves a moderator token to its actor.
func verifyToken(cfg *config.Config, token string) (auth.Actor, error) {
	v, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return auth.Actor{}, fmt.Errorf("%w: auth.jwt_secret is not configured", errInvalidInput)
	}
	return v.Verify(token)
}

func runDomainSetStatus(opts *RootOptions, token, rawID, rawStatus string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	id, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid domain id", err)
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	actor, err := verifyToken(a.cfg, token)
	if err != nil {
		return formatter.Fail("token rejected", err)
	}

	d, changed, err := a.catalog.SetDomainStatus(ctx, actor, id, link.Status(rawStatus))
	if err != nil {
		return formatter.Fail("status change refused", err)
	}
	info := domainInfo(d)
	info.Changed = &changed

	if formatter.Format == "json" {
		return formatter.Success(info)
	}
	if !changed {
		fmt.Fprintf(formatter.Writer, "%s is already %s\n", d.Domain, d.Status)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is now %s\n", d.Domain, d.Status)
	return nil
}

func runDomainRename(opts *RootOptions, token, rawID, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	id, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid domain id", err)
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	actor, err := verifyToken(a.cfg, token)
	if err != nil {
		return formatter.Fail("token rejected", err)
	}
	d, err := a.catalog.RenameDomain(ctx, actor, id, name)
	if err != nil {
		return formatter.Fail("rename refused", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(domainInfo(d))
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is now named %q\n", d.Domain, d.Name)
	return nil
}

func runDomainReport(opts *RootOptions, actorID, rawID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := commandContext(cmd)

	id, err := parseID(rawID)
	if err != nil {
		return formatter.Fail("invalid domain id", err)
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail("failed to open catalog", err)
	}
	defer a.Close()

	d, err := a.catalog.ReportDomain(ctx, auth.Actor{ID: actorID}, id)
	if err != nil {
		return formatter.Fail("report failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(domainInfo(d))
	}
	fmt.Fprintf(formatter.Writer, "✓ %s reported\n", d.Domain)
	return nil
}

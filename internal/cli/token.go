package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/auth"
)

// TokenIssueOptions holds flags for token issue.
type TokenIssueOptions struct {
	*RootOptions
	Subject     string
	Permissions []string
	TTL         time.Duration
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue moderator tokens",
	}

	opts := &TokenIssueOptions{RootOptions: rootOpts}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token with the configured secret",
		Long: `Sign an HS256 token with auth.jwt_secret.

Example:
  bookcat token issue --subject alice --perm moderate_post --ttl 1h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(opts, cmd)
		},
	}
	issue.Flags().StringVar(&opts.Subject, "subject", "", "actor ID the token speaks for (required)")
	issue.Flags().StringSliceVar(&opts.Permissions, "perm", nil, "permission to grant (repeatable)")
	issue.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("subject")

	cmd.AddCommand(issue)
	return cmd
}

func runTokenIssue(opts *TokenIssueOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.TTL <= 0 {
		return formatter.Fail("invalid ttl", fmt.Errorf("%w: ttl must be positive", errInvalidInput))
	}
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail("failed to load config", err)
	}
	v, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return formatter.Fail("cannot sign tokens", fmt.Errorf("%w: auth.jwt_secret is not configured", errInvalidInput))
	}
	token, err := v.Issue(auth.Actor{ID: opts.Subject, Permissions: opts.Permissions}, opts.TTL)
	if err != nil {
		return formatter.Fail("failed to sign token", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"token":       token,
			"subject":     opts.Subject,
			"permissions": opts.Permissions,
			"expires_in":  opts.TTL.String(),
		})
	}
	fmt.Fprintln(formatter.Writer, token)
	return nil
}

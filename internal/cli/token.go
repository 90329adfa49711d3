package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brutalist/internal/session"
)

type TokenOptions struct {
	*RootOptions
	User  string
	Email string
	Name  string
	TTL   time.Duration
}

// NewTokenCommand issues session tokens for POST /api/session.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token",
		Long: `Issue a signed session token for a user, using auth.jwt_secret.

Example:
  brutalist token --user 42 --email ana@example.com --ttl 8h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			a, err := bootstrap(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.tokens == nil {
				return f.Fail(ExitCommandError, ErrCodeAuth, "auth.jwt_secret is not configured", nil)
			}
			token, err := a.tokens.Issue(session.Identity{ID: opts.User, Email: opts.Email, Name: opts.Name}, opts.TTL)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeAuth, "failed to issue token", err)
			}
			if opts.Format == "json" {
				return f.Success(map[string]string{"token": token, "user": opts.User})
			}
			return f.Success(token)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "user email")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

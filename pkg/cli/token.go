package cli

import (
	"fmt"
	"io"

	"github.com/jordanlanch/leadsync/pkg/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint an admin bearer token for the HTTP API",
		Long: `Mint an admin JWT signed with JWT_SECRET.

Examples:
  leadsyncctl token ops@example.com
  leadsyncctl token ops@example.com --hours 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if hours <= 0 {
				hours = cfg.JWTExpirationHours
			}
			token, err := auth.GenerateJWT(args[0], auth.RoleAdmin, cfg.JWTSecret, hours)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to sign token", err)
			}
			out := map[string]any{"token": token, "expires_in_hours": hours}
			return printResult(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "token lifetime in hours (default JWT_EXPIRATION_HOURS)")
	return cmd
}

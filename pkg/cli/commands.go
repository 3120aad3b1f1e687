package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jordanlanch/leadsync/pkg/app"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/leadsync"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return WrapExitError(ExitCommandError, "migration failed", err)
				}
				return printResult(cmd.OutOrStdout(), opts.Format, map[string]string{"status": "migrated"}, func(w io.Writer) {
					fmt.Fprintln(w, "Schema is up to date.")
				})
			})
		},
	}
}

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Retry every pending integration log entry once",
		Long: `Run one retry sweep over the Pending integration log entries, oldest first.

Exit codes:
  0 - every entry succeeded or was deferred
  1 - at least one entry failed
  2 - command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				result, err := a.Processor.RetryPending(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "retry sweep failed", err)
				}
				if err := printResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
					fmt.Fprintf(w, "Swept %d entries: %d succeeded, %d failed, %d deferred\n",
						result.Total, result.Succeeded, result.Failed, result.Deferred)
				}); err != nil {
					return err
				}
				if result.Failed > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d entries failed", result.Failed))
				}
				return nil
			})
		},
	}
}

func newRetryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <log-id>",
		Short: "Reprocess one pending or failed integration log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				entry, outcome, err := a.Processor.Retry(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "retry failed", err)
				}
				out := struct {
					Outcome leadsync.Outcome       `json:"outcome"`
					Log     *models.IntegrationLog `json:"log"`
				}{outcome, entry}
				if err := printResult(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %s (%s)\n", entry.ID, entry.Status, entry.ResponseMessage)
				}); err != nil {
					return err
				}
				if outcome == leadsync.OutcomeFailed {
					return NewExitError(ExitFailure, "entry failed again")
				}
				return nil
			})
		},
	}
}

func newFailCommand(opts *RootOptions) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "fail <log-id>",
		Short: "Mark an integration log entry Failed so sweeps stop retrying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				entry, err := a.Processor.MarkFailed(ctx, args[0], message)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to mark entry", err)
				}
				return printResult(cmd.OutOrStdout(), opts.Format, entry, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %s\n", entry.ID, entry.Status)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "Marked failed by operator", "message stored on the entry")
	return cmd
}

func printSummary(cmd *cobra.Command, opts *RootOptions, summary models.SyncSummary) error {
	if err := printResult(cmd.OutOrStdout(), opts.Format, summary, func(w io.Writer) {
		fmt.Fprintln(w, summary.Message)
	}); err != nil {
		return err
	}
	if !summary.Success {
		return NewExitError(ExitFailure, summary.Message)
	}
	return nil
}

func newResyncOwnersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync-owners",
		Short: "Re-apply the owner policy to every lead",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return printSummary(cmd, opts, a.Owners.ResyncAll(ctx))
			})
		},
	}
}

func newBackfillOwnerNamesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-owner-names",
		Short: "Fill in missing lead owner display names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return printSummary(cmd, opts, a.Owners.BackfillOwnerNames(ctx))
			})
		},
	}
}

func newSyncOwnerCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-owner <lead-id>",
		Short: "Set one lead's owner from its assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				result := a.Owners.SyncFromAssignment(ctx, args[0])
				if err := printResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
					fmt.Fprintln(w, result.Message)
				}); err != nil {
					return err
				}
				if !result.Success {
					return NewExitError(ExitFailure, result.Message)
				}
				return nil
			})
		},
	}
}

func newSyncRulesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-rules",
		Short: "Re-derive assignment rules from the stored CRM rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				summary, err := a.Rules.Sync(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "rule sync failed", err)
				}
				return printResult(cmd.OutOrStdout(), opts.Format, summary, func(w io.Writer) {
					fmt.Fprintln(w, summary.Message)
				})
			})
		},
	}
}

func newSeedMappingCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed-mapping",
		Short: "Store the built-in field mapping",
		Long:  "Store the built-in field mapping rows. An existing mapping is left alone unless --force is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				name := a.Config.FieldMappingName
				existing, err := a.Store.GetFieldMappings(ctx, name)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read field mapping", err)
				}
				seeded := false
				if len(existing) == 0 || force {
					if err := a.Store.ReplaceFieldMappings(ctx, name, fieldmap.DefaultMappings()); err != nil {
						return WrapExitError(ExitCommandError, "failed to store field mapping", err)
					}
					seeded = true
				}
				out := map[string]any{"name": name, "seeded": seeded}
				return printResult(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) {
					if seeded {
						fmt.Fprintf(w, "Stored %d default rows in %q.\n", len(fieldmap.DefaultMappings()), name)
					} else {
						fmt.Fprintf(w, "%q already has %d rows; use --force to overwrite.\n", name, len(existing))
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing mapping")
	return cmd
}

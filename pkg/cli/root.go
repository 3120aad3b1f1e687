// Package cli implements leadsyncctl, the operator command line for the
// lead sync service.
package cli

import (
	"context"
	"fmt"

	"github.com/jordanlanch/leadsync/config"
	"github.com/jordanlanch/leadsync/pkg/app"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/secrets"
	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Opener builds the service graph for one command run. The returned func
// releases its connections.
type Opener func(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.App, func(), error)

// RootOptions holds global flags and the environment shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string

	LoadConfig func() (*config.Config, error)
	Open       Opener
}

// LoadConfig reads the environment and then the configured secret store
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	m, err := secrets.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if err := secrets.Apply(context.Background(), m, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenApp connects to the configured database and Redis
func OpenApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.App, func(), error) {
	db, redisClient, err := app.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeAll := func() {
		_ = redisClient.Close()
		_ = db.Close()
	}
	a, err := app.New(cfg, db, redisClient, nil, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return a, closeAll, nil
}

// NewRootCommand creates the root command wired to the real environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: LoadConfig, Open: OpenApp})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadsyncctl",
		Short: "Operate the CRM lead sync",
		Long:  "Run maintenance tasks against the lead sync database: migrations, retry sweeps, owner repairs and rule syncs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newRetryCommand(opts))
	cmd.AddCommand(newFailCommand(opts))
	cmd.AddCommand(newResyncOwnersCommand(opts))
	cmd.AddCommand(newBackfillOwnerNamesCommand(opts))
	cmd.AddCommand(newSyncOwnerCommand(opts))
	cmd.AddCommand(newSyncRulesCommand(opts))
	cmd.AddCommand(newSeedMappingCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withApp loads configuration, opens the app and runs fn against it
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(level, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, closeFn, err := opts.Open(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open lead sync", err)
	}
	defer closeFn()
	return fn(ctx, a)
}

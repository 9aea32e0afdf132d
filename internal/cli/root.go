package cli

import (
	"context"
	"fmt"

	"github.com/fadedpez/pitbot/internal/config"
	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the state shared by every command
type RootOptions struct {
	EnvFile string

	Config *config.Config
	Logger *logging.Logger
}

// NewRootCommand creates the root command for the pitdata CLI
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pitdata",
		Short: "Operator tools for the pitbot roll ledger",
		Long:  "Export monthly reports, remove rolls and manage the ledger schema without going through Discord.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadCLI(opts.EnvFile)
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = logging.NewLoggerTo(cmd.ErrOrStderr(), level)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")

	// Add subcommands
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewInvalidateCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// openLedger opens the configured backend
func (o *RootOptions) openLedger(ctx context.Context) (ledger.Repository, error) {
	cfg := o.Config
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	return ledger.Open(ctx, ledger.OptionsFromConfig(cfg, o.Logger))
}

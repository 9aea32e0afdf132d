package cli

import (
	"fmt"
	"time"

	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/fadedpez/pitbot/pkg/services/roll"
	"github.com/spf13/cobra"
)

// InvalidateOptions holds flags for the invalidate command
type InvalidateOptions struct {
	*RootOptions
	User string
	At   string
	Day  string
	By   string
}

// NewInvalidateCommand creates the invalidate command
func NewInvalidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvalidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Mark a roll as removed",
		Long: `Mark a roll as removed, found either by its exact timestamp or by its day.

Examples:
  pitdata invalidate --user 42 --at 2024-03-01T10:00:00.123456Z --by 7
  pitdata invalidate --user 42 --day 2024-03-01 --by 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvalidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id whose roll is removed")
	cmd.Flags().StringVar(&opts.At, "at", "", "exact roll time, RFC3339")
	cmd.Flags().StringVar(&opts.Day, "day", "", "roll day in the reference zone, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.By, "by", "", "user id of the moderator removing the roll")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("by")
	cmd.MarkFlagsOneRequired("at", "day")
	cmd.MarkFlagsMutuallyExclusive("at", "day")

	return cmd
}

func runInvalidate(cmd *cobra.Command, opts *InvalidateOptions) error {
	user, err := entities.ParseUserID(opts.User)
	if err != nil {
		return err
	}
	by, err := entities.ParseUserID(opts.By)
	if err != nil {
		return err
	}

	repo, err := opts.openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer repo.Close()

	if opts.At != "" {
		at, err := time.Parse(time.RFC3339Nano, opts.At)
		if err != nil {
			return fmt.Errorf("invalid --at %q: %w", opts.At, err)
		}
		if err := repo.Invalidate(cmd.Context(), user, at, by); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed roll of %s at %s\n", user, at.UTC().Format(time.RFC3339Nano))
		return nil
	}

	loc := opts.Config.Location()
	day, err := time.ParseInLocation(entities.DayLayout, opts.Day, loc)
	if err != nil {
		return fmt.Errorf("invalid --day %q: %w", opts.Day, err)
	}

	rolls := roll.NewService(repo, roll.WithLocation(loc), roll.WithLogger(opts.Logger))
	record, err := rolls.InvalidateDay(cmd.Context(), user, day, by)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed roll of %d for %s on %s\n", record.Value, user, record.Day)
	return nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/fadedpez/pitbot/pkg/services/report"
	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command
type ExportOptions struct {
	*RootOptions
	Month int
	Year  int
	User  string
	Out   string
}

// NewExportCommand creates the export command
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a month of rolls as CSV",
		Long: `Write rolls.csv and doublerolls.csv for a month, or rolls_<user>.csv with --user.

Example:
  pitdata export --month 3 --year 2024 --out reports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Month, "month", 0, "month to export (1-12)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "year to export, defaults to the current year")
	cmd.Flags().StringVar(&opts.User, "user", "", "only export this user id")
	cmd.Flags().StringVar(&opts.Out, "out", ".", "directory to write the CSV files into")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	if opts.Month < 1 || opts.Month > 12 {
		return fmt.Errorf("invalid --month %d: must be 1-12", opts.Month)
	}

	loc := opts.Config.Location()
	year := opts.Year
	if year == 0 {
		year = time.Now().In(loc).Year()
	}
	month := time.Month(opts.Month)

	repo, err := opts.openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer repo.Close()

	reports := report.NewService(repo, loc)

	var files []*report.File
	if opts.User != "" {
		user, err := entities.ParseUserID(opts.User)
		if err != nil {
			return err
		}
		file, err := reports.UserMonthExport(cmd.Context(), user, month, year)
		if err != nil {
			return err
		}
		files = append(files, file)
	} else {
		files, err = reports.MonthlyExport(cmd.Context(), month, year)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.Out, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, file := range files {
		path := filepath.Join(opts.Out, file.Name)
		if err := os.WriteFile(path, file.Data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	}
	return nil
}

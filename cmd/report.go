package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/attendly/attendly/internal/attendance"
	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/database/postgres"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an attendance report",
	Long: `Print attendance records for a day range.
Days are inclusive and use the YYYY-MM-DD format. Without flags the report
covers the last 30 days.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("start", "", "First day of the range (YYYY-MM-DD)")
	reportCmd.Flags().String("end", "", "Last day of the range (YYYY-MM-DD)")
	reportCmd.Flags().String("course", "", "Filter by course code")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	now := time.Now()
	start := mustGetString(cmd, "start")
	end := mustGetString(cmd, "end")
	if start == "" {
		start = database.DayOf(now.AddDate(0, 0, -29))
	}
	if end == "" {
		end = database.DayOf(now)
	}
	for _, day := range []string{start, end} {
		if _, err := time.Parse(database.DayLayout, day); err != nil {
			return fmt.Errorf("invalid day %q, expected YYYY-MM-DD", day)
		}
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	ledger := attendance.NewLedger(
		postgres.NewStudentRepository(pool),
		postgres.NewAttendanceRepository(pool),
	)

	records, summary, err := ledger.Report(context.Background(), start, end, mustGetString(cmd, "course"))
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNUMBER\tNAME\tCOURSE\tTIME IN\tSTATUS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Day, rec.StudentNumber, rec.StudentName, rec.Course,
			rec.TimeIn.Local().Format("15:04:05"), rec.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d records, %d enrolled students over %d days (%.1f%% attendance)\n",
		summary.TotalRecords, summary.TotalStudents, summary.TotalDays, summary.AverageAttendance)
	return nil
}

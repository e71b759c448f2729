package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database/postgres"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)

	studentsCmd.Flags().String("name", "", "Filter by name (diacritics ignored)")
	studentsCmd.Flags().String("course", "", "Filter by course code")
}

func runStudents(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	repo := postgres.NewStudentRepository(pool)
	students, err := repo.List(context.Background(), mustGetString(cmd, "name"), mustGetString(cmd, "course"))
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tNUMBER\tNAME\tCOURSE\tENROLLED")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.UID, s.StudentNumber, s.Name, s.Course, s.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

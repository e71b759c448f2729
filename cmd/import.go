package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/database/legacy"
	"github.com/attendly/attendly/internal/database/postgres"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import students from the legacy MySQL system",
	Long: `Import the student roster from the previous attendance system.
Students whose stored descriptor does not match the configured embedding
dimension are skipped, as are student numbers that already exist.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("dry-run", false, "Show what would be imported without writing")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Legacy.DatabaseURL == "" {
		return errors.New("LEGACY_DATABASE_URL environment variable is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	legacyPool, err := legacy.NewPool(cfg.Legacy.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to legacy MySQL: %w", err)
	}
	defer legacyPool.Close()

	ctx := context.Background()
	roster, err := legacyPool.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to read legacy roster: %w", err)
	}
	fmt.Printf("Found %d students in the legacy system\n", len(roster))

	dryRun := mustGetBool(cmd, "dry-run")
	if dryRun {
		for _, rs := range roster {
			fmt.Printf("  %s  %s (%s)\n", rs.StudentNumber, rs.Name, rs.Course)
		}
		return nil
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()
	repo := postgres.NewStudentRepository(pool)

	bar := progressbar.Default(int64(len(roster)), "importing")
	imported, skipped := 0, 0
	for _, rs := range roster {
		bar.Add(1)

		if len(rs.Embedding) != cfg.Matcher.EmbeddingDim {
			fmt.Printf("\nSkipping %s: descriptor has %d values, expected %d\n",
				rs.StudentNumber, len(rs.Embedding), cfg.Matcher.EmbeddingDim)
			skipped++
			continue
		}

		student := &database.Student{
			UID:           uuid.NewString(),
			StudentNumber: rs.StudentNumber,
			Name:          rs.Name,
			Email:         rs.Email,
			Course:        rs.Course,
			Embedding:     rs.Embedding,
		}
		if err := repo.Create(ctx, student); err != nil {
			if errors.Is(err, database.ErrAlreadyExists) {
				skipped++
				continue
			}
			return fmt.Errorf("failed to import %s: %w", rs.StudentNumber, err)
		}
		imported++
	}

	fmt.Printf("\nImported %d students, skipped %d\n", imported, skipped)
	return nil
}

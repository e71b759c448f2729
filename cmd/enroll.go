package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/attendly/attendly/internal/config"
	"github.com/attendly/attendly/internal/database"
	"github.com/attendly/attendly/internal/database/postgres"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <descriptor.json>",
	Short: "Enroll a student from a face descriptor file",
	Long: `Enroll a student using a face descriptor exported from the kiosk.
The descriptor file must contain a JSON array of numbers matching the
configured embedding dimension.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("number", "", "Student number (required)")
	enrollCmd.Flags().String("name", "", "Full name (required)")
	enrollCmd.Flags().String("email", "", "Email address")
	enrollCmd.Flags().String("course", "", "Course code")
	enrollCmd.MarkFlagRequired("number")
	enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read descriptor file: %w", err)
	}

	var descriptor []float32
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return fmt.Errorf("descriptor file is not a JSON array of numbers: %w", err)
	}
	if len(descriptor) != cfg.Matcher.EmbeddingDim {
		return fmt.Errorf("descriptor must have %d values, got %d", cfg.Matcher.EmbeddingDim, len(descriptor))
	}

	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	defer pool.Close()

	student := &database.Student{
		UID:           uuid.NewString(),
		StudentNumber: mustGetString(cmd, "number"),
		Name:          mustGetString(cmd, "name"),
		Email:         mustGetString(cmd, "email"),
		Course:        mustGetString(cmd, "course"),
		Embedding:     descriptor,
	}

	repo := postgres.NewStudentRepository(pool)
	if err := repo.Create(context.Background(), student); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return fmt.Errorf("student number or email already enrolled")
		}
		return fmt.Errorf("failed to enroll student: %w", err)
	}

	fmt.Printf("Enrolled %s (%s) as %s\n", student.Name, student.StudentNumber, student.UID)
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/attendly/attendly/internal/database"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// foreignKeyViolation is the PostgreSQL SQLSTATE for foreign key violations.
const foreignKeyViolation = "23503"

// StudentRepository provides PostgreSQL-backed student directory storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// Create enrolls a new student. The unique constraints on student_number and
// email decide conflicts, not a prior read.
func (r *StudentRepository) Create(ctx context.Context, s *database.Student) error {
	query := `
		INSERT INTO students (uid, student_number, name, email, course, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		s.UID, s.StudentNumber, s.Name, s.Email, s.Course, pgvector.NewVector(s.Embedding),
	).Scan(&s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrAlreadyExists
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// Get retrieves a student by UID, returns nil if not found.
func (r *StudentRepository) Get(ctx context.Context, uid string) (*database.Student, error) {
	query := `
		SELECT uid, student_number, name, email, course, embedding, created_at
		FROM students
		WHERE uid = $1
	`

	var s database.Student
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, query, uid).Scan(
		&s.UID, &s.StudentNumber, &s.Name, &s.Email, &s.Course, &vec, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}

	s.Embedding = vec.Slice()
	return &s, nil
}

// List returns students ordered by enrollment time descending. A non-empty
// name filters by normalized name match (case and diacritic insensitive),
// a non-empty course by exact course code.
func (r *StudentRepository) List(ctx context.Context, name, course string) ([]database.Student, error) {
	query := `
		SELECT uid, student_number, name, email, course, embedding, created_at
		FROM students
		WHERE ($1 = '' OR LOWER(REPLACE(unaccent(name), '-', ' ')) LIKE '%' || $1 || '%')
		  AND ($2 = '' OR course = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, database.NormalizeName(name), course)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// Gallery returns the (uid, embedding) snapshot used by the matcher. Display
// attributes are omitted; they are not part of the matching contract.
func (r *StudentRepository) Gallery(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, "SELECT uid, embedding FROM students ORDER BY created_at, uid")
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		var vec pgvector.Vector
		if err := rows.Scan(&s.UID, &vec); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		s.Embedding = vec.Slice()
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery: %w", err)
	}
	return students, nil
}

// Count returns the number of enrolled students, optionally filtered by course.
func (r *StudentRepository) Count(ctx context.Context, course string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM students WHERE $1 = '' OR course = $1", course,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// Courses returns the distinct course codes present in the directory.
func (r *StudentRepository) Courses(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT course FROM students ORDER BY course")
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

// Update changes display attributes. The enrolled embedding is immutable.
func (r *StudentRepository) Update(ctx context.Context, s *database.Student) error {
	query := `
		UPDATE students
		SET name = $2, email = $3, course = $4
		WHERE uid = $1
	`

	result, err := r.pool.Exec(ctx, query, s.UID, s.Name, s.Email, s.Course)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.ErrAlreadyExists
		}
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes a student from the directory. Ledger rows for the student
// go with it via the foreign key.
func (r *StudentRepository) Delete(ctx context.Context, uid string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE uid = $1", uid)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// scanStudents scans full student rows including the embedding column.
func scanStudents(rows *sql.Rows) ([]database.Student, error) {
	var students []database.Student
	for rows.Next() {
		var s database.Student
		var vec pgvector.Vector
		if err := rows.Scan(
			&s.UID, &s.StudentNumber, &s.Name, &s.Email, &s.Course, &vec, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.Embedding = vec.Slice()
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

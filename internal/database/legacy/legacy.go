// Package legacy reads student rosters from the previous attendance system,
// a MySQL database that stored face embeddings as JSON arrays. Read-only;
// used by the import command to seed the PostgreSQL directory.
package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MySQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MySQL connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("legacy MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping legacy database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing legacy database connection: %w", err)
		}
	}
	return nil
}

// RosterStudent is one row of the legacy students table. The embedding is
// decoded from the JSON column the old system used.
type RosterStudent struct {
	StudentNumber string
	Name          string
	Email         string
	Course        string
	Embedding     []float32
}

// ListStudents reads the full legacy roster. Rows whose embedding JSON does
// not decode are skipped and logged rather than failing the whole import.
func (p *Pool) ListStudents(ctx context.Context) ([]RosterStudent, error) {
	query := `
		SELECT student_number, name, email, course, embedding
		FROM students
		ORDER BY student_number
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query legacy students: %w", err)
	}
	defer rows.Close()

	var students []RosterStudent
	for rows.Next() {
		var s RosterStudent
		var raw []byte
		if err := rows.Scan(&s.StudentNumber, &s.Name, &s.Email, &s.Course, &raw); err != nil {
			return nil, fmt.Errorf("scan legacy student: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Embedding); err != nil {
			log.Printf("legacy: skipping student %s: bad embedding JSON: %v", s.StudentNumber, err)
			continue
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy students: %w", err)
	}
	return students, nil
}

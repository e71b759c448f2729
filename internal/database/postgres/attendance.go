package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/attendly/attendly/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed storage for the attendance
// ledger. The UNIQUE (student_uid, day) constraint is the arbiter of the
// one-record-per-day invariant; the repository never pre-checks with a read.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Insert appends a presence record. Under concurrent callers for the same
// (student, day) pair the constraint lets exactly one insert through; the
// losers get ErrDuplicateAttendance.
func (r *AttendanceRepository) Insert(ctx context.Context, rec *database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (student_uid, day, time_in, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.StudentUID, rec.Day, rec.TimeIn, rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case uniqueViolation:
				return database.ErrDuplicateAttendance
			case foreignKeyViolation:
				return database.ErrNotFound
			}
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// GetForDay retrieves the record for a (student, day) pair, nil if absent.
func (r *AttendanceRepository) GetForDay(ctx context.Context, studentUID, day string) (*database.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_uid, a.day, a.time_in, a.status, a.created_at,
		       s.name, s.student_number, s.course
		FROM attendance a
		JOIN students s ON s.uid = a.student_uid
		WHERE a.student_uid = $1 AND a.day = $2
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, studentUID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance for day: %w", err)
	}
	return rec, nil
}

// ListRange returns records with day in [startDay, endDay], optionally
// filtered by course, ordered by day descending then time-in descending.
func (r *AttendanceRepository) ListRange(ctx context.Context, startDay, endDay, course string) ([]database.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_uid, a.day, a.time_in, a.status, a.created_at,
		       s.name, s.student_number, s.course
		FROM attendance a
		JOIN students s ON s.uid = a.student_uid
		WHERE a.day BETWEEN $1 AND $2
		  AND ($3 = '' OR s.course = $3)
		ORDER BY a.day DESC, a.time_in DESC
	`

	rows, err := r.pool.Query(ctx, query, startDay, endDay, course)
	if err != nil {
		return nil, fmt.Errorf("query attendance range: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountForDay returns the number of students recorded present on a day.
func (r *AttendanceRepository) CountForDay(ctx context.Context, day string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance WHERE day = $1", day).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance for day: %w", err)
	}
	return count, nil
}

// DailyCounts returns present counts keyed by day for days in [startDay, endDay].
// Days with no records are absent from the map.
func (r *AttendanceRepository) DailyCounts(ctx context.Context, startDay, endDay string) (map[string]int, error) {
	query := `
		SELECT day, COUNT(*)
		FROM attendance
		WHERE day BETWEEN $1 AND $2
		GROUP BY day
	`

	rows, err := r.pool.Query(ctx, query, startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		counts[day.Format(database.DayLayout)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return counts, nil
}

// Recent returns the most recently created records, newest first.
func (r *AttendanceRepository) Recent(ctx context.Context, limit int) ([]database.AttendanceRecord, error) {
	query := `
		SELECT a.id, a.student_uid, a.day, a.time_in, a.status, a.created_at,
		       s.name, s.student_number, s.course
		FROM attendance a
		JOIN students s ON s.uid = a.student_uid
		ORDER BY a.created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent attendance: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var day time.Time
	if err := row.Scan(
		&rec.ID, &rec.StudentUID, &day, &rec.TimeIn, &rec.Status, &rec.CreatedAt,
		&rec.StudentName, &rec.StudentNumber, &rec.Course,
	); err != nil {
		return nil, err
	}
	rec.Day = day.Format(database.DayLayout)
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

package database

import (
	"context"
)

// StudentReader provides read-only access to the student directory
type StudentReader interface {
	// Get retrieves a student by UID, returns nil if not found
	Get(ctx context.Context, uid string) (*Student, error)
	// List returns all students ordered by enrollment time descending.
	// When name is non-empty, results are filtered by normalized name match;
	// when course is non-empty, by exact course code.
	List(ctx context.Context, name, course string) ([]Student, error)
	// Gallery returns the (uid, embedding) pairs of every enrolled student.
	// Each call produces a fresh snapshot; the matcher never caches it.
	Gallery(ctx context.Context) ([]Student, error)
	// Count returns the number of enrolled students, optionally filtered by course
	Count(ctx context.Context, course string) (int, error)
	// Courses returns the distinct course codes present in the directory
	Courses(ctx context.Context) ([]string, error)
}

// StudentWriter provides write access to the student directory
type StudentWriter interface {
	StudentReader

	// Create enrolls a new student. Returns ErrAlreadyExists when the
	// student number or email is taken.
	Create(ctx context.Context, s *Student) error
	// Update changes display attributes (name, email, course). The enrolled
	// embedding is immutable and is never touched by Update.
	Update(ctx context.Context, s *Student) error
	// Delete removes a student from the directory
	Delete(ctx context.Context, uid string) error
}

// AttendanceReader provides read access to the attendance ledger
type AttendanceReader interface {
	// GetForDay retrieves the record for a (student, day) pair, nil if absent
	GetForDay(ctx context.Context, studentUID, day string) (*AttendanceRecord, error)
	// ListRange returns records with day in [startDay, endDay], optionally
	// filtered by course, ordered by day descending then time-in descending
	ListRange(ctx context.Context, startDay, endDay, course string) ([]AttendanceRecord, error)
	// CountForDay returns the number of students recorded present on a day
	CountForDay(ctx context.Context, day string) (int, error)
	// DailyCounts returns present counts per day for days in [startDay, endDay]
	DailyCounts(ctx context.Context, startDay, endDay string) (map[string]int, error)
	// Recent returns the most recently created records, newest first
	Recent(ctx context.Context, limit int) ([]AttendanceRecord, error)
}

// AttendanceWriter provides write access to the attendance ledger
type AttendanceWriter interface {
	AttendanceReader

	// Insert appends a presence record. The storage-level unique constraint
	// on (student_uid, day) decides duplicates: a rejected insert surfaces
	// as ErrDuplicateAttendance, an unknown student as ErrNotFound. On
	// success the record's ID and CreatedAt are filled in.
	Insert(ctx context.Context, rec *AttendanceRecord) error
}

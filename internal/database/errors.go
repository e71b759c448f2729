package database

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the referenced student does not exist in the
// directory. Terminal for the request; not retryable.
var ErrNotFound = errors.New("student not found")

// ErrAlreadyExists reports an enrollment conflict: the student number or
// email is already taken.
var ErrAlreadyExists = errors.New("student already exists")

// ErrDuplicateAttendance reports that a presence record for the
// (student, day) pair already exists. The unique constraint in storage is
// the arbiter: repositories return this only when the insert itself was
// rejected, never based on a prior read. Retrying deterministically
// re-fails with the same error.
var ErrDuplicateAttendance = errors.New("attendance already recorded for this day")

// DuplicateAttendanceError carries the record that won the (student, day)
// slot so callers can surface it. It matches ErrDuplicateAttendance under
// errors.Is.
type DuplicateAttendanceError struct {
	Existing AttendanceRecord
}

func (e *DuplicateAttendanceError) Error() string {
	return fmt.Sprintf("attendance already recorded for student %s on %s at %s",
		e.Existing.StudentUID, e.Existing.Day, e.Existing.TimeIn.Format("15:04:05"))
}

func (e *DuplicateAttendanceError) Is(target error) bool {
	return target == ErrDuplicateAttendance
}

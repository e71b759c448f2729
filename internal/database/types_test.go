package database

import (
	"errors"
	"testing"
	"time"
)

func TestDayOf_MidnightBoundary(t *testing.T) {
	// Both sides of a local midnight must land on different calendar days.
	before := time.Date(2024, 5, 1, 23, 59, 59, 0, time.Local)
	after := time.Date(2024, 5, 2, 0, 0, 0, 0, time.Local)

	if got := DayOf(before); got != "2024-05-01" {
		t.Errorf("expected 2024-05-01, got %s", got)
	}
	if got := DayOf(after); got != "2024-05-02" {
		t.Errorf("expected 2024-05-02, got %s", got)
	}
}

func TestDayOf_ConsistentWithinDay(t *testing.T) {
	morning := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	evening := time.Date(2024, 5, 1, 21, 30, 0, 0, time.Local)

	if DayOf(morning) != DayOf(evening) {
		t.Errorf("timestamps within one day must bucket identically: %s vs %s",
			DayOf(morning), DayOf(evening))
	}
}

func TestDuplicateAttendanceError_MatchesSentinel(t *testing.T) {
	err := &DuplicateAttendanceError{Existing: AttendanceRecord{
		StudentUID: "abc",
		Day:        "2024-05-01",
		TimeIn:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local),
	}}

	if !errors.Is(err, ErrDuplicateAttendance) {
		t.Error("DuplicateAttendanceError must match ErrDuplicateAttendance under errors.Is")
	}
}

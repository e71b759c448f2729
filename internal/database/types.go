package database

import (
	"time"
)

// Student is an enrolled identity in the directory. The embedding is captured
// once at enrollment and is immutable afterwards; display attributes may be
// edited without touching it.
type Student struct {
	UID           string
	StudentNumber string
	Name          string
	Email         string
	Course        string
	Embedding     []float32
	CreatedAt     time.Time
}

// StatusPresent is the only status ever written to the ledger. Absence is
// derived at read time (enrolled count minus present count), never stored.
const StatusPresent = "Present"

// DayLayout is the calendar-day format used for the ledger's uniqueness key.
const DayLayout = "2006-01-02"

// AttendanceRecord is one row of the append-only attendance ledger: the first
// accepted recognition of a student on a calendar day. Records are never
// mutated or deleted by normal operation.
type AttendanceRecord struct {
	ID         int64
	StudentUID string
	Day        string // calendar date in DayLayout, server-local boundary
	TimeIn     time.Time
	Status     string
	CreatedAt  time.Time

	// Display attributes joined from the students table for reports and
	// dashboards. Empty on the write path until filled by the caller.
	StudentName   string
	StudentNumber string
	Course        string
}

// DayOf buckets a timestamp into its server-local calendar day
// (midnight-to-midnight). The write path and every duplicate-check read path
// must use this same derivation.
func DayOf(t time.Time) string {
	return t.Local().Format(DayLayout)
}

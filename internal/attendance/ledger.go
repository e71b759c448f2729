// Package attendance implements the attendance ledger: one Present record
// per student per calendar day, with the storage unique constraint acting
// as the arbiter under concurrent marking.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attendly/attendly/internal/database"
)

// Ledger records and reports attendance.
type Ledger struct {
	students database.StudentReader
	records  database.AttendanceWriter
}

// NewLedger creates a ledger over the given stores.
func NewLedger(students database.StudentReader, records database.AttendanceWriter) *Ledger {
	return &Ledger{students: students, records: records}
}

// RecordPresence marks the student present for the calendar day of now.
// When a record for that day already exists it returns a
// database.DuplicateAttendanceError carrying the existing record, so callers
// can show who was already marked and when.
func (l *Ledger) RecordPresence(ctx context.Context, studentUID string, now time.Time) (*database.AttendanceRecord, error) {
	student, err := l.students.Get(ctx, studentUID)
	if err != nil {
		return nil, fmt.Errorf("could not look up student %s: %w", studentUID, err)
	}
	if student == nil {
		return nil, database.ErrNotFound
	}

	day := database.DayOf(now)
	rec := &database.AttendanceRecord{
		StudentUID: studentUID,
		Day:        day,
		TimeIn:     now,
		Status:     database.StatusPresent,
	}

	err = l.records.Insert(ctx, rec)
	if errors.Is(err, database.ErrDuplicateAttendance) {
		existing, getErr := l.records.GetForDay(ctx, studentUID, day)
		if getErr != nil {
			return nil, fmt.Errorf("could not load existing attendance for %s on %s: %w", studentUID, day, getErr)
		}
		if existing == nil {
			// The row vanished between the rejected insert and the read.
			return nil, database.ErrDuplicateAttendance
		}
		return nil, &database.DuplicateAttendanceError{Existing: *existing}
	}
	if err != nil {
		return nil, fmt.Errorf("could not insert attendance for %s: %w", studentUID, err)
	}

	rec.StudentName = student.Name
	rec.StudentNumber = student.StudentNumber
	rec.Course = student.Course
	return rec, nil
}

// Summary aggregates a report range. TotalStudents is the enrolled count
// (course-filtered), not the number of students seen in the range, so range
// absence can be derived from it. AverageAttendance is the percentage of
// possible attendance slots (enrolled students times calendar days) that
// were filled.
type Summary struct {
	TotalRecords      int     `json:"totalRecords"`
	TotalStudents     int     `json:"totalStudents"`
	TotalDays         int     `json:"totalDays"`
	AverageAttendance float64 `json:"averageAttendance"`
}

// Report lists attendance records between two days inclusive, optionally
// filtered by course, together with summary figures.
func (l *Ledger) Report(ctx context.Context, startDay, endDay, course string) ([]database.AttendanceRecord, Summary, error) {
	start, err := time.Parse(database.DayLayout, startDay)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("invalid start day %q: %w", startDay, err)
	}
	end, err := time.Parse(database.DayLayout, endDay)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("invalid end day %q: %w", endDay, err)
	}

	records, err := l.records.ListRange(ctx, startDay, endDay, course)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("could not list attendance: %w", err)
	}

	enrolled, err := l.students.Count(ctx, course)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("could not count students: %w", err)
	}

	summary := Summary{
		TotalRecords:  len(records),
		TotalStudents: enrolled,
		TotalDays:     int(end.Sub(start).Hours()/24) + 1,
	}
	if enrolled > 0 && summary.TotalDays > 0 {
		summary.AverageAttendance = float64(len(records)) / float64(enrolled*summary.TotalDays) * 100
	}
	return records, summary, nil
}

// WeekdayCount is one bucket of the weekly series.
type WeekdayCount struct {
	Day   string `json:"day"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats is the dashboard snapshot for a given day.
type Stats struct {
	TotalStudents  int                         `json:"totalStudents"`
	PresentToday   int                         `json:"presentToday"`
	AbsentToday    int                         `json:"absentToday"`
	AttendanceRate float64                     `json:"attendanceRate"`
	Weekly         []WeekdayCount              `json:"weekly"`
	Recent         []database.AttendanceRecord `json:"recent"`
}

// Stats computes the dashboard snapshot: today's presence against the
// enrolled total and the trailing seven day series ending at now.
func (l *Ledger) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	total, err := l.students.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("could not count students: %w", err)
	}

	today := database.DayOf(now)
	present, err := l.records.CountForDay(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("could not count attendance for %s: %w", today, err)
	}

	start := now.AddDate(0, 0, -6)
	counts, err := l.records.DailyCounts(ctx, database.DayOf(start), today)
	if err != nil {
		return nil, fmt.Errorf("could not load daily counts: %w", err)
	}

	weekly := make([]WeekdayCount, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		day := database.DayOf(d)
		weekly = append(weekly, WeekdayCount{
			Day:   day,
			Label: d.Local().Format("Mon"),
			Count: counts[day],
		})
	}

	recent, err := l.records.Recent(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("could not load recent attendance: %w", err)
	}

	stats := &Stats{
		TotalStudents: total,
		PresentToday:  present,
		AbsentToday:   total - present,
		Weekly:        weekly,
		Recent:        recent,
	}
	if stats.AbsentToday < 0 {
		stats.AbsentToday = 0
	}
	if total > 0 {
		stats.AttendanceRate = float64(present) / float64(total)
	}
	return stats, nil
}

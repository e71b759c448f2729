// Package mock provides in-memory implementations of the database interfaces
// for testing. The attendance mock enforces the same (student, day) unique
// key the PostgreSQL constraint does, so concurrency tests exercise the real
// contract.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/attendly/attendly/internal/database"
)

// StudentStore is an in-memory implementation of database.StudentWriter.
type StudentStore struct {
	mu       sync.RWMutex
	students map[string]*database.Student

	// Error injection
	GetError     error
	ListError    error
	GalleryError error
	CountError   error
	CoursesError error
	CreateError  error
	UpdateError  error
	DeleteError  error
}

// NewStudentStore creates a new in-memory student store.
func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[string]*database.Student)}
}

// AddStudent seeds a student directly, bypassing uniqueness checks.
func (m *StudentStore) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.UID] = &s
}

func (m *StudentStore) Get(ctx context.Context, uid string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[uid]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *StudentStore) List(ctx context.Context, name, course string) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	normalized := database.NormalizeName(name)
	var out []database.Student
	for _, s := range m.students {
		if course != "" && s.Course != course {
			continue
		}
		if normalized != "" && !strings.Contains(database.NormalizeName(s.Name), normalized) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func (m *StudentStore) Gallery(ctx context.Context) ([]database.Student, error) {
	if m.GalleryError != nil {
		return nil, m.GalleryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.Student
	for _, s := range m.students {
		out = append(out, database.Student{UID: s.UID, Embedding: s.Embedding})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (m *StudentStore) Count(ctx context.Context, course string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.students {
		if course == "" || s.Course == course {
			count++
		}
	}
	return count, nil
}

func (m *StudentStore) Courses(ctx context.Context) ([]string, error) {
	if m.CoursesError != nil {
		return nil, m.CoursesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var courses []string
	for _, s := range m.students {
		if _, ok := seen[s.Course]; !ok {
			seen[s.Course] = struct{}{}
			courses = append(courses, s.Course)
		}
	}
	sort.Strings(courses)
	return courses, nil
}

func (m *StudentStore) Create(ctx context.Context, s *database.Student) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.students {
		if existing.StudentNumber == s.StudentNumber {
			return database.ErrAlreadyExists
		}
		// Email uniqueness only applies when one is provided.
		if s.Email != "" && existing.Email == s.Email {
			return database.ErrAlreadyExists
		}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	copied := *s
	m.students[s.UID] = &copied
	return nil
}

func (m *StudentStore) Update(ctx context.Context, s *database.Student) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.students[s.UID]
	if !ok {
		return database.ErrNotFound
	}
	for uid, other := range m.students {
		if uid != s.UID && s.Email != "" && other.Email == s.Email {
			return database.ErrAlreadyExists
		}
	}
	existing.Name = s.Name
	existing.Email = s.Email
	existing.Course = s.Course
	return nil
}

func (m *StudentStore) Delete(ctx context.Context, uid string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[uid]; !ok {
		return database.ErrNotFound
	}
	delete(m.students, uid)
	return nil
}

// AttendanceStore is an in-memory implementation of database.AttendanceWriter.
type AttendanceStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*database.AttendanceRecord // keyed by studentUID + "|" + day

	// Error injection
	InsertError      error
	GetForDayError   error
	ListRangeError   error
	CountError       error
	DailyCountsError error
	RecentError      error
}

// NewAttendanceStore creates a new in-memory attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{records: make(map[string]*database.AttendanceRecord)}
}

func slotKey(studentUID, day string) string {
	return studentUID + "|" + day
}

// Insert enforces the unique (student, day) key under a single lock, mirroring
// the PostgreSQL constraint: the insert is the arbiter, first writer wins.
func (m *AttendanceStore) Insert(ctx context.Context, rec *database.AttendanceRecord) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey(rec.StudentUID, rec.Day)
	if _, exists := m.records[key]; exists {
		return database.ErrDuplicateAttendance
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	copied := *rec
	m.records[key] = &copied
	return nil
}

func (m *AttendanceStore) GetForDay(ctx context.Context, studentUID, day string) (*database.AttendanceRecord, error) {
	if m.GetForDayError != nil {
		return nil, m.GetForDayError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[slotKey(studentUID, day)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *AttendanceStore) ListRange(ctx context.Context, startDay, endDay, course string) ([]database.AttendanceRecord, error) {
	if m.ListRangeError != nil {
		return nil, m.ListRangeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.AttendanceRecord
	for _, rec := range m.records {
		if rec.Day < startDay || rec.Day > endDay {
			continue
		}
		if course != "" && rec.Course != course {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].TimeIn.After(out[j].TimeIn)
	})
	return out, nil
}

func (m *AttendanceStore) CountForDay(ctx context.Context, day string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, rec := range m.records {
		if rec.Day == day {
			count++
		}
	}
	return count, nil
}

func (m *AttendanceStore) DailyCounts(ctx context.Context, startDay, endDay string) (map[string]int, error) {
	if m.DailyCountsError != nil {
		return nil, m.DailyCountsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, rec := range m.records {
		if rec.Day >= startDay && rec.Day <= endDay {
			counts[rec.Day]++
		}
	}
	return counts, nil
}

func (m *AttendanceStore) Recent(ctx context.Context, limit int) ([]database.AttendanceRecord, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []database.AttendanceRecord
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the total number of stored records, for test assertions.
func (m *AttendanceStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
